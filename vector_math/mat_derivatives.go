package vector_math

import "math"

// rot4 returns a 4x4 identity with the rotation block for plane (a, b) filled in.
func rot4(rad float64, a int, b int) Mat {
	c := float32(math.Cos(rad))
	s := float32(math.Sin(rad))
	m := NewUnitMat(4)
	m[a][a] = c
	m[a][b] = -s
	m[b][a] = s
	m[b][b] = c
	return m
}

func New4x4RotXMat(rad float64) Mat {
	return rot4(rad, 1, 2)
}

func New4x4RotYMat(rad float64) Mat {
	return rot4(rad, 2, 0)
}

func New4x4RotZMat(rad float64) Mat {
	return rot4(rad, 0, 1)
}

// New4x4RotMat composes yaw (z), pitch (y) and roll (x) in that order.
func New4x4RotMat(yaw float64, pitch float64, roll float64) Mat {
	return Mul4(Mul4(New4x4RotZMat(yaw), New4x4RotYMat(pitch)), New4x4RotXMat(roll))
}

func NewUnitMat(s uint) Mat {
	um, _ := NewMat(s, s)
	for i := range um {
		um[i][i] = 1
	}
	return um
}

// NewRotation is the axis-angle (Rodrigues) rotation, the axis is normalised if needed.
func NewRotation(rad float64, axis Vec3) Mat {
	u := axis
	if u.Dot(u) != 1 {
		u = axis.Norm()
	}
	cosT := float32(math.Cos(rad))
	sinT := float32(math.Sin(rad))
	t := 1 - cosT
	rm := NewUnitMat(4)
	rm[0][0] = cosT + (u.X*u.X)*t
	rm[0][1] = (u.X*u.Y)*t - (u.Z * sinT)
	rm[0][2] = (u.X*u.Z)*t + (u.Y * sinT)

	rm[1][0] = (u.Y*u.X)*t + (u.Z * sinT)
	rm[1][1] = cosT + (u.Y*u.Y)*t
	rm[1][2] = (u.Y*u.Z)*t - (u.X * sinT)

	rm[2][0] = (u.Z*u.X)*t - (u.Y * sinT)
	rm[2][1] = (u.Z*u.Y)*t + (u.X * sinT)
	rm[2][2] = cosT + (u.Z*u.Z)*t
	return rm
}

func NewScale(s Vec3) Mat {
	sm := NewUnitMat(4)
	sm[0][0] = s.X
	sm[1][1] = s.Y
	sm[2][2] = s.Z
	return sm
}

func NewTranslation(t Vec3) Mat {
	tm := NewUnitMat(4)
	tm[0][3] = t.X
	tm[1][3] = t.Y
	tm[2][3] = t.Z
	return tm
}
