package model

import (
	vm "local/vector_math"
	"log"
	"math"

	"github.com/xlab/linmath"
)

type Projection int

const (
	Perspective Projection = iota
	Orthographic
)

// Camera produces the view and projection a frame is culled with. Vulkan conventions: y points down,
// depth runs from 0 at the near to 1 at the far plane.
type Camera struct {
	Projection Projection

	// Fov is the vertical field of view in degrees
	Fov    float32
	Aspect float32
	Near   float32
	Far    float32

	Pos     vm.Vec3
	LookDir vm.Vec3
	// Target overrides LookDir while set
	Target  *vm.Vec3
	Up      vm.Vec3
}

// NewCamera creates a perspective camera at the origin looking down +z.
func NewCamera(fov float32, aspect float32, near float32, far float32) *Camera {
	return &Camera{
		Fov:     fov,
		Aspect:  aspect,
		Near:    near,
		Far:     far,
		LookDir: vm.Vec3{Z: 1},
		Up:      vm.Vec3{Y: -1},
	}
}

func (c *Camera) Move(delta vm.Vec3) {
	c.Pos = c.Pos.Add(delta)
}

// Turn rotates the look direction by deg degrees around axis.
func (c *Camera) Turn(deg float64, axis vm.Vec3) {
	c.LookDir = vm.Apply(c.LookDir, 0, vm.NewRotation(vm.ToRad(deg), axis))
}

func (c *Camera) SetTarget(target vm.Vec3) {
	c.Target = &target
}

func (c *Camera) ClearTarget() {
	c.Target = nil
}

func (c *Camera) GetProjection() vm.Mat {
	switch c.Projection {
	case Perspective:
		return NewPerspectiveProjection(vm.ToRad(float64(c.Fov)), float64(c.Aspect), c.Near, c.Far)
	case Orthographic:
		return NewOrthographicProjection(vm.Vec3{X: -c.Aspect, Y: 1, Z: c.Near}, vm.Vec3{X: c.Aspect, Y: -1, Z: c.Far})
	}
	log.Printf("Unknown projection %d, using identity", c.Projection)
	return vm.NewUnitMat(4)
}

func (c *Camera) GetView() vm.Mat {
	if c.Target == nil {
		return NewDirectionView(c.Pos, c.LookDir, c.Up)
	}
	return NewTargetView(c.Pos, *c.Target, c.Up)
}

// GetViewProjection is projection * view, the matrix the frustum planes are extracted from.
func (c *Camera) GetViewProjection() vm.Mat {
	return vm.Mul4(c.GetProjection(), c.GetView())
}

// NewPerspectiveProjection maps the view frustum onto Vulkan's canonical view volume.
// Implemented after: https://www.youtube.com/watch?v=U0_ONQQ5ZNM
func NewPerspectiveProjection(fovy float64, aspect float64, near float32, far float32) vm.Mat {
	f := 1 / math.Tan(fovy/2)
	depth := far / (far - near)
	return vm.Mat{
		{float32(f / aspect), 0, 0, 0},
		{0, float32(f), 0, 0},
		{0, 0, depth, -near * depth},
		{0, 0, 1, 0},
	}
}

// NewOrthographicProjection maps the cuboid spanning from lbn (left, bottom, near) to rtf (right, top, far)
// onto the canonical view volume (-1, 1, 0) .. (1, -1, 1).
func NewOrthographicProjection(lbn vm.Vec3, rtf vm.Vec3) vm.Mat {
	extent := func(a, b float32) float32 { return float32(math.Abs(float64(b - a))) }
	scale := vm.NewScale(vm.Vec3{
		X: 2 / extent(lbn.X, rtf.X),
		Y: 2 / extent(rtf.Y, lbn.Y),
		Z: 1 / extent(lbn.Z, rtf.Z),
	})
	center := vm.NewTranslation(vm.Vec3{X: -(rtf.X + lbn.X) / 2, Y: -(rtf.Y + lbn.Y) / 2, Z: -lbn.Z})
	return vm.Mul4(scale, center)
}

// NewGLPerspective builds an OpenGL convention (depth in [-1, 1], right handed) view-projection with
// linmath, for tools that hand over matrices produced by GL code.
func NewGLPerspective(fovDeg float32, aspect float32, near float32, far float32, eye, center vm.Vec3) vm.Mat {
	var proj, view, vp linmath.Mat4x4
	proj.Perspective(linmath.DegreesToRadians(fovDeg), aspect, near, far)
	e := linmath.Vec3{eye.X, eye.Y, eye.Z}
	ctr := linmath.Vec3{center.X, center.Y, center.Z}
	up := linmath.Vec3{0, 1, 0}
	view.LookAt(&e, &ctr, &up)
	vp.Mult(&proj, &view)
	return vm.FromLinmath(&vp)
}

// NewDirectionView looks from pos along dir. The rows of the rotation are the camera basis right, down and
// forward.
func NewDirectionView(pos vm.Vec3, dir vm.Vec3, up vm.Vec3) vm.Mat {
	forward := dir.Norm()
	right := forward.Cross(up).Norm()
	down := forward.Cross(right)
	m := vm.NewUnitMat(4)
	for i, axis := range []vm.Vec3{right, down, forward} {
		m[i][0], m[i][1], m[i][2] = axis.X, axis.Y, axis.Z
		m[i][3] = -axis.Dot(pos)
	}
	return m
}

func NewTargetView(pos vm.Vec3, target vm.Vec3, up vm.Vec3) vm.Mat {
	dir := target.Sub(pos)
	if dir.Len() == 0 {
		log.Printf("Camera target equals its position, looking down +z instead")
		dir = vm.Vec3{Z: 1}
	}
	return NewDirectionView(pos, dir, up)
}
