package accel

import "GPU_scene_core/resource"

// TriangleGeometry describes triangles for a bottom-level structure. A zero address field is resolved
// from the matching buffer.
type TriangleGeometry struct {
	VertexBuffer    resource.Buffer
	IndexBuffer     resource.Buffer
	TransformBuffer resource.Buffer
	TriangleCount   uint32
	MaxVertex       uint32
	VertexStride    uint64
	TransformOffset uint32
	VertexFormat    Format
	Flags           GeometryFlags

	VertexAddress    uint64
	IndexAddress     uint64
	TransformAddress uint64
}

// NewTriangleGeometry fills in the usual defaults: float3 positions and opaque geometry.
func NewTriangleGeometry(vertices, indices, transform resource.Buffer, triangleCount, maxVertex uint32, vertexStride uint64) TriangleGeometry {
	return TriangleGeometry{
		VertexBuffer:    vertices,
		IndexBuffer:     indices,
		TransformBuffer: transform,
		TriangleCount:   triangleCount,
		MaxVertex:       maxVertex,
		VertexStride:    vertexStride,
		VertexFormat:    FormatR32G32B32Sfloat,
		Flags:           GeometryOpaque,
	}
}

// InstanceGeometry describes the instance array of a top-level structure.
type InstanceGeometry struct {
	InstanceBuffer  resource.Buffer
	InstanceCount   uint32
	TransformOffset uint32
	Flags           GeometryFlags
}

func NewInstanceGeometry(instances resource.Buffer, count uint32) InstanceGeometry {
	return InstanceGeometry{InstanceBuffer: instances, InstanceCount: count, Flags: GeometryOpaque}
}

// Entry is a registered geometry as seen by a build.
type Entry struct {
	Geometry        Geometry
	PrimitiveCount  uint32
	TransformOffset uint32
	Updated         bool

	revision uint64
}

func addressOf(explicit uint64, b resource.Buffer) uint64 {
	if explicit != 0 || b == nil {
		return explicit
	}
	return b.DeviceAddress()
}

func (g TriangleGeometry) entry() Entry {
	format := g.VertexFormat
	if format == 0 {
		format = FormatR32G32B32Sfloat
	}
	return Entry{
		Geometry: Geometry{
			Type:  GeometryTriangles,
			Flags: g.Flags,
			Triangles: TrianglesData{
				VertexFormat:  format,
				VertexData:    addressOf(g.VertexAddress, g.VertexBuffer),
				VertexStride:  g.VertexStride,
				MaxVertex:     g.MaxVertex,
				IndexType:     IndexUint32,
				IndexData:     addressOf(g.IndexAddress, g.IndexBuffer),
				TransformData: addressOf(g.TransformAddress, g.TransformBuffer),
			},
		},
		PrimitiveCount:  g.TriangleCount,
		TransformOffset: g.TransformOffset,
	}
}

func (g InstanceGeometry) entry() Entry {
	return Entry{
		Geometry: Geometry{
			Type:  GeometryInstances,
			Flags: g.Flags,
			Instances: InstancesData{
				ArrayOfPointers: false,
				Data:            addressOf(0, g.InstanceBuffer),
			},
		},
		PrimitiveCount:  g.InstanceCount,
		TransformOffset: g.TransformOffset,
	}
}
