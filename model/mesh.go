package model

import (
	"bytes"
	"encoding/binary"
	vm "local/vector_math"
	"log"
)

// Vertex is the interleaved vertex layout shared by every scene model, 32 bytes tightly packed.
type Vertex struct {
	Pos      vm.Vec3
	Normal   vm.Vec3
	TexCoord vm.Vec2
}

const VertexSize = 32

type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	ModelMat vm.Mat
}

func NewMesh(v []Vertex, id []uint32) *Mesh {
	return &Mesh{
		Vertices: v,
		Indices:  id,
		ModelMat: vm.NewUnitMat(4),
	}
}

func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Positions returns the vertex positions after applying the model matrix.
func (m *Mesh) Positions() []vm.Vec3 {
	pts := make([]vm.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		pts[i] = vm.Apply(v.Pos, 1, m.ModelMat)
	}
	return pts
}

// Baked returns a copy of the mesh with the model matrix applied to the positions.
func (m *Mesh) Baked() *Mesh {
	pts := m.Positions()
	v := make([]Vertex, len(m.Vertices))
	for i := range m.Vertices {
		v[i] = m.Vertices[i]
		v[i].Pos = pts[i]
	}
	return NewMesh(v, append([]uint32(nil), m.Indices...))
}

func rawBytes(data any) []byte {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		log.Panicf("Failed to serialize %T: %v", data, err)
	}
	return buf.Bytes()
}

func (m *Mesh) VertexBytes() []byte {
	return rawBytes(m.Vertices)
}

func (m *Mesh) IndexBytes() []byte {
	return rawBytes(m.Indices)
}
