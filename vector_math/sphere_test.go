package vector_math

import "testing"

func TestBoundingSphereContainsAllPoints(t *testing.T) {
	pts := []Vec3{
		{X: -1, Y: -1, Z: -1}, {X: 1, Y: -1, Z: -1}, {X: 1, Y: 1, Z: -1}, {X: -1, Y: 1, Z: -1},
		{X: -1, Y: -1, Z: 1}, {X: 1, Y: -1, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: -1, Y: 1, Z: 1},
	}
	s := BoundingSphere(pts)
	if s.Center != (Vec3{}) {
		t.Errorf("Cube should be centred on the origin, got %v", s.Center)
	}
	for _, p := range pts {
		if d := p.Sub(s.Center).Len(); d >= s.Radius {
			t.Errorf("Point %v at distance %f not strictly inside radius %f", p, d, s.Radius)
		}
	}
}

func TestBoundingSphereEmpty(t *testing.T) {
	if s := BoundingSphere(nil); s != (Sphere{}) {
		t.Errorf("Empty point set should give the zero sphere, got %v", s)
	}
}

func TestBoundingSphereSinglePoint(t *testing.T) {
	s := BoundingSphere([]Vec3{{X: 3, Y: 4, Z: 5}})
	if s.Center != (Vec3{X: 3, Y: 4, Z: 5}) || s.Radius <= 0 {
		t.Errorf("Single point should give a tiny sphere around it, got %v", s)
	}
}
