package vector_math

import "math"

// Vec2 only carries texture coordinates.
type Vec2 struct {
	X, Y float32
}

type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{X: v.X + w.X, Y: v.Y + w.Y, Z: v.Z + w.Z}
}

func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{X: v.X - w.X, Y: v.Y - w.Y, Z: v.Z - w.Z}
}

func (v Vec3) ScalarMul(factor float32) Vec3 {
	return Vec3{X: v.X * factor, Y: v.Y * factor, Z: v.Z * factor}
}

func (v Vec3) Dot(w Vec3) float32 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Cross follows the right hand rule.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{X: v.Y*w.Z - v.Z*w.Y, Y: v.Z*w.X - v.X*w.Z, Z: v.X*w.Y - v.Y*w.X}
}

// DistanceSq is the squared euclidean distance between v and w.
func (v Vec3) DistanceSq(w Vec3) float32 {
	d := v.Sub(w)
	return d.Dot(d)
}

func (v Vec3) Len() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Norm scales v to unit length. The zero vector has no direction and yields NaNs.
func (v Vec3) Norm() Vec3 {
	l := v.Len()
	return Vec3{X: v.X / l, Y: v.Y / l, Z: v.Z / l}
}

// Vec4 is a homogeneous point or a plane (xyz normal, w distance).
type Vec4 struct {
	X, Y, Z, W float32
}

func (v Vec4) Dot(w Vec4) float32 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z + v.W*w.W
}

func (v Vec4) Add(w Vec4) Vec4 {
	return Vec4{X: v.X + w.X, Y: v.Y + w.Y, Z: v.Z + w.Z, W: v.W + w.W}
}

func (v Vec4) Sub(w Vec4) Vec4 {
	return Vec4{X: v.X - w.X, Y: v.Y - w.Y, Z: v.Z - w.Z, W: v.W - w.W}
}

func (v Vec4) XYZ() Vec3 {
	return Vec3{X: v.X, Y: v.Y, Z: v.Z}
}
