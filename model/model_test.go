package model

import (
	vm "local/vector_math"
	"math"
	"testing"
)

func TestDefaultCameraViewIsIdentity(t *testing.T) {
	c := NewCamera(60, 1, 0.1, 20)
	v := c.GetView()
	unit := vm.NewUnitMat(4)
	if !v.ApproxEquals(&unit, 1e-6) {
		t.Errorf("Expected identity view for a camera at the origin looking down +z, got %s", v.ToString())
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	p := NewPerspectiveProjection(vm.ToRad(60), 1, 0.1, 20)
	near := p.MulVec4(vm.Vec4{Z: 0.1, W: 1})
	far := p.MulVec4(vm.Vec4{Z: 20, W: 1})
	if d := near.Z / near.W; math.Abs(float64(d)) > 1e-5 {
		t.Errorf("Expected near plane depth 0, got %f", d)
	}
	if d := far.Z / far.W; math.Abs(float64(d-1)) > 1e-5 {
		t.Errorf("Expected far plane depth 1, got %f", d)
	}
}

func TestGLPerspectiveFrustum(t *testing.T) {
	vp := NewGLPerspective(60, 1, 0.1, 20, vm.Vec3{}, vm.Vec3{Z: -1})
	f := vm.NewFrustum(vp)
	if !f.SphereVisible(vm.Vec3{Z: -5}, 1, vm.AllPlanes) {
		t.Errorf("Expected sphere in front of a GL camera to be visible")
	}
	if f.SphereVisible(vm.Vec3{Z: 5}, 1, vm.AllPlanes) {
		t.Errorf("Expected sphere behind a GL camera to be culled")
	}
}

func TestOrthographicMapsCuboidOntoCVV(t *testing.T) {
	o := NewOrthographicProjection(vm.Vec3{X: -2, Y: 1, Z: 1}, vm.Vec3{X: 2, Y: -1, Z: 5})
	lbn := vm.Apply(vm.Vec3{X: -2, Y: 1, Z: 1}, 1, o)
	rtf := vm.Apply(vm.Vec3{X: 2, Y: -1, Z: 5}, 1, o)
	if math.Abs(float64(lbn.X+1)) > 1e-6 || math.Abs(float64(lbn.Z)) > 1e-6 {
		t.Errorf("Expected lbn corner at x=-1 z=0, got %v", lbn)
	}
	if math.Abs(float64(rtf.X-1)) > 1e-6 || math.Abs(float64(rtf.Z-1)) > 1e-6 {
		t.Errorf("Expected rtf corner at x=1 z=1, got %v", rtf)
	}
}

func TestScenePackingOffsets(t *testing.T) {
	s := NewScene()
	cube := NewCubeMesh(1)
	quad := NewGridPlaneMesh()
	s.AddModel("cube", cube, 0)
	s.AddModel("quad", quad, 1)
	s.AddModel("cube2", cube, 2)

	info := s.Information()
	if len(info) != 3 {
		t.Fatalf("Expected 3 model records, got %d", len(info))
	}
	if info[1].FirstIndex != 36 || info[1].VertexOffset != 8 {
		t.Errorf("Expected quad at firstIndex 36 vertexOffset 8, got %d %d", info[1].FirstIndex, info[1].VertexOffset)
	}
	if info[2].FirstIndex != 42 || info[2].VertexOffset != 12 || info[2].IndexCount != 36 {
		t.Errorf("Unexpected record for second cube: %+v", info[2])
	}
	if len(s.VertexBytes()) != len(s.Vertices)*VertexSize {
		t.Errorf("Expected %d vertex bytes, got %d", len(s.Vertices)*VertexSize, len(s.VertexBytes()))
	}
	if s.TriangleCount() != 26 {
		t.Errorf("Expected 26 triangles, got %d", s.TriangleCount())
	}
}

func TestGridSceneBounds(t *testing.T) {
	s := NewGridScene(NewCubeMesh(1), 2, 3, 4, 2)
	if len(s.Models) != 6 {
		t.Fatalf("Expected 6 models, got %d", len(s.Models))
	}
	first := s.Models[0].Bounds
	if math.Abs(float64(first.Center.X+4)) > 1e-5 || math.Abs(float64(first.Center.Z+2)) > 1e-5 {
		t.Errorf("Expected first model centred at (-4, 0, -2), got %v", first.Center)
	}
	if r := float32(math.Sqrt(0.75)); first.Radius < r {
		t.Errorf("Expected radius of at least %f, got %f", r, first.Radius)
	}
	if s.Models[3].TextureIndex != 1 {
		t.Errorf("Expected texture slots to cycle, got %d", s.Models[3].TextureIndex)
	}
}

func TestInformationLayout(t *testing.T) {
	in := []Information{
		{Center: vm.Vec3{X: 1, Y: 2, Z: 3}, Radius: 4, TextureIndex: 5, FirstIndex: 6, IndexCount: 7, VertexOffset: -8},
		{Radius: 1},
	}
	raw := EncodeInformation(in)
	if len(raw) != 2*InformationSize {
		t.Fatalf("Expected %d bytes, got %d", 2*InformationSize, len(raw))
	}
	out, err := DecodeInformation(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out[0] != in[0] {
		t.Errorf("Expected %+v, got %+v", in[0], out[0])
	}
	if _, err := DecodeInformation(raw[:31]); err == nil {
		t.Errorf("Expected an error for truncated data")
	}
}

func TestSceneUniformLayout(t *testing.T) {
	c := NewCamera(60, 1.5, 0.1, 20)
	c.Move(vm.Vec3{X: 1, Y: 2, Z: 3})
	u := NewSceneUniform(c.GetProjection(), c.GetView(), 4, vm.SidePlanes)
	raw := u.Bytes()
	if len(raw) != SceneUniformSize {
		t.Fatalf("Expected %d bytes, got %d", SceneUniformSize, len(raw))
	}
	back, err := DecodeSceneUniform(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !back.ProjView.Equals(&u.ProjView) {
		t.Errorf("proj_view does not survive the column-major layout")
	}
	if back.ModelCount != 4 || back.PlaneMask != vm.SidePlanes {
		t.Errorf("Unexpected counters %d %d", back.ModelCount, back.PlaneMask)
	}
}

func TestTargetOverridesLookDirection(t *testing.T) {
	c := NewCamera(60, 1, 0.1, 20)
	c.Move(vm.Vec3{X: 2})
	c.SetTarget(vm.Vec3{X: 2, Z: -4})
	p := vm.Apply(vm.Vec3{X: 2, Z: -4}, 1, c.GetView())
	if math.Abs(float64(p.X)) > 1e-5 || math.Abs(float64(p.Y)) > 1e-5 || p.Z <= 0 {
		t.Errorf("Target should end up straight ahead in view space, got %v", p)
	}
	c.ClearTarget()
	v := c.GetView()
	want := NewDirectionView(c.Pos, c.LookDir, c.Up)
	if !v.Equals(&want) {
		t.Errorf("Clearing the target should fall back to the look direction:\n%s", v.ToString())
	}
}
