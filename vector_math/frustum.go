package vector_math

import "math"

// Frustum planes in the order they are extracted: for every clip axis (x, y, z) first the
// "w - axis" plane, then the "w + axis" plane. Names follow the clip space axis they bound.
const (
	PlaneRight = iota
	PlaneLeft
	PlaneTop
	PlaneBottom
	PlaneFar
	PlaneNear
)

// PlaneMask selects the planes taking part in a visibility test, bit i enables plane i.
type PlaneMask uint32

const (
	// SidePlanes is the set tested by the multi draw indirect sample: x and z planes, no y planes.
	SidePlanes PlaneMask = 1<<PlaneRight | 1<<PlaneLeft | 1<<PlaneFar | 1<<PlaneNear
	AllPlanes  PlaneMask = SidePlanes | 1<<PlaneTop | 1<<PlaneBottom
)

// Frustum holds six normalised planes (xyz = normal, w = distance), points p inside satisfy
// dot(p, xyz) + w >= 0 for every plane.
type Frustum [6]Vec4

// NewFrustum extracts the view frustum planes from a combined view-projection matrix following
// Gribb/Hartmann: plane = row3 -/+ row_i, then divided by the length of its normal.
// See https://www.gamedevs.org/uploads/fast-extraction-viewing-frustum-planes-from-world-view-projection-matrix.pdf
func NewFrustum(viewProj Mat) Frustum {
	var f Frustum
	w := viewProj.Row(3)
	for i := 0; i < 3; i++ {
		axis := viewProj.Row(i)
		f[2*i] = w.Sub(axis)
		f[2*i+1] = w.Add(axis)
	}
	for i := range f {
		l := float32(math.Sqrt(float64(f[i].XYZ().Dot(f[i].XYZ()))))
		f[i] = Vec4{X: f[i].X / l, Y: f[i].Y / l, Z: f[i].Z / l, W: f[i].W / l}
	}
	return f
}

// SignedDistance of point p to plane i, positive on the inner side.
func (f *Frustum) SignedDistance(i int, p Vec3) float32 {
	return p.Dot(f[i].XYZ()) + f[i].W
}

// SphereVisible reports whether a sphere touches the inner side of all planes selected by mask.
func (f *Frustum) SphereVisible(center Vec3, radius float32, mask PlaneMask) bool {
	for i := range f {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		if f.SignedDistance(i, center)+radius < 0 {
			return false
		}
	}
	return true
}
