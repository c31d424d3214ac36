package model

import (
	"fmt"
	vm "local/vector_math"
)

// NewCubeMesh returns an axis aligned cube of edge length size centred on the origin.
func NewCubeMesh(size float32) *Mesh {
	h := size / 2
	corners := []vm.Vec3{
		{X: -h, Y: -h, Z: -h}, {X: h, Y: -h, Z: -h}, {X: h, Y: h, Z: -h}, {X: -h, Y: h, Z: -h},
		{X: -h, Y: -h, Z: h}, {X: h, Y: -h, Z: h}, {X: h, Y: h, Z: h}, {X: -h, Y: h, Z: h},
	}
	uv := []vm.Vec2{{X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}, {X: 1, Y: 0}}
	v := make([]Vertex, len(corners))
	for i, c := range corners {
		v[i] = Vertex{Pos: c, Normal: c.Norm(), TexCoord: uv[i%4]}
	}
	id := []uint32{
		2, 1, 0, 0, 3, 2, // front
		5, 1, 6, 1, 2, 6, // right
		4, 5, 6, 7, 4, 6, // back
		4, 7, 0, 0, 7, 3, // left
		0, 1, 5, 5, 4, 0, // top
		3, 7, 6, 2, 3, 6, // bottom
	}
	return NewMesh(v, id)
}

// NewGridPlaneMesh is a unit quad in the xy plane facing -z.
func NewGridPlaneMesh() *Mesh {
	n := vm.Vec3{Z: -1}
	v := []Vertex{
		{Pos: vm.Vec3{X: -1, Y: -1}, Normal: n, TexCoord: vm.Vec2{X: 0, Y: 0}},
		{Pos: vm.Vec3{X: -1, Y: 1}, Normal: n, TexCoord: vm.Vec2{X: 0, Y: 1}},
		{Pos: vm.Vec3{X: 1, Y: 1}, Normal: n, TexCoord: vm.Vec2{X: 1, Y: 1}},
		{Pos: vm.Vec3{X: 1, Y: -1}, Normal: n, TexCoord: vm.Vec2{X: 1, Y: 0}},
	}
	return NewMesh(v, []uint32{0, 1, 2, 2, 3, 0})
}

// NewGridScene places rows x cols copies of mesh on the xz plane, spacing apart and centred on the origin.
// Texture indices cycle through textures slots when textures > 0.
func NewGridScene(mesh *Mesh, rows int, cols int, spacing float32, textures uint32) *Scene {
	s := NewScene()
	x0 := -spacing * float32(cols-1) / 2
	z0 := -spacing * float32(rows-1) / 2
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m := NewMesh(mesh.Vertices, mesh.Indices)
			m.ModelMat = vm.Mul4(vm.NewTranslation(vm.Vec3{X: x0 + float32(c)*spacing, Z: z0 + float32(r)*spacing}), mesh.ModelMat)
			var tex uint32
			if textures > 0 {
				tex = uint32(r*cols+c) % textures
			}
			s.AddModel(fmt.Sprintf("model_%d_%d", r, c), m, tex)
		}
	}
	return s
}
