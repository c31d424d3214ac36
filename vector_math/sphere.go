package vector_math

import "math"

type Sphere struct {
	Center Vec3
	Radius float32
}

// BoundingSphere is a cheap, non optimal enclosing sphere: centred on the centroid of pts, with the
// largest centroid distance as radius, bumped by one ulp so every point lies strictly inside.
// An empty point set yields the zero sphere.
func BoundingSphere(pts []Vec3) Sphere {
	if len(pts) == 0 {
		return Sphere{}
	}
	var c Vec3
	for _, p := range pts {
		c = c.Add(p)
	}
	c = c.ScalarMul(1 / float32(len(pts)))
	r2 := pts[0].DistanceSq(c)
	for _, p := range pts[1:] {
		if d := p.DistanceSq(c); d > r2 {
			r2 = d
		}
	}
	r := float32(math.Sqrt(float64(r2)))
	return Sphere{Center: c, Radius: math.Nextafter32(r, math.MaxFloat32)}
}
