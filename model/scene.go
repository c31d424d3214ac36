package model

import (
	vm "local/vector_math"
	"log"
)

// SceneModel is one drawable of a Scene. Offsets are byte offsets into the shared vertex and index
// streams.
type SceneModel struct {
	Name         string
	Mesh         *Mesh
	Bounds       vm.Sphere
	TextureIndex uint32

	VertexBufferOffset uint64
	IndexBufferOffset  uint64
}

// Scene packs the vertex and index data of all models into two shared streams so one multi draw
// can address every model through firstIndex and vertexOffset.
type Scene struct {
	Models   []*SceneModel
	Vertices []Vertex
	Indices  []uint32
}

func NewScene() *Scene {
	return &Scene{}
}

// AddModel bakes the mesh's model matrix, appends it to the shared streams and returns the model index.
func (s *Scene) AddModel(name string, mesh *Mesh, textureIndex uint32) int {
	if len(mesh.Indices)%3 != 0 {
		log.Panicf("Mesh %s has %d indices, which is not a triangle list", name, len(mesh.Indices))
	}
	baked := mesh.Baked()
	m := &SceneModel{
		Name:               name,
		Mesh:               baked,
		Bounds:             vm.BoundingSphere(baked.Positions()),
		TextureIndex:       textureIndex,
		VertexBufferOffset: uint64(len(s.Vertices)) * VertexSize,
		IndexBufferOffset:  uint64(len(s.Indices)) * 4,
	}
	s.Vertices = append(s.Vertices, baked.Vertices...)
	s.Indices = append(s.Indices, baked.Indices...)
	s.Models = append(s.Models, m)
	return len(s.Models) - 1
}

// Information derives the GPU record of a model from its placement in the shared streams.
func (m *SceneModel) Information() Information {
	return Information{
		Center:       m.Bounds.Center,
		Radius:       m.Bounds.Radius,
		TextureIndex: m.TextureIndex,
		FirstIndex:   uint32(m.IndexBufferOffset / 4),
		IndexCount:   uint32(len(m.Mesh.Indices)),
		VertexOffset: int32(m.VertexBufferOffset / VertexSize),
	}
}

func (s *Scene) Information() []Information {
	info := make([]Information, len(s.Models))
	for i, m := range s.Models {
		info[i] = m.Information()
	}
	return info
}

func (s *Scene) VertexBytes() []byte {
	return rawBytes(s.Vertices)
}

func (s *Scene) IndexBytes() []byte {
	return rawBytes(s.Indices)
}

func (s *Scene) TriangleCount() int {
	return len(s.Indices) / 3
}
