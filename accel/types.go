package accel

import "GPU_scene_core/resource"

// Type is the acceleration structure level.
type Type int

const (
	TopLevel Type = iota
	BottomLevel
)

func (t Type) String() string {
	if t == TopLevel {
		return "top-level"
	}
	return "bottom-level"
}

// BuildFlags mirror VkBuildAccelerationStructureFlagBitsKHR.
type BuildFlags uint32

const (
	BuildAllowUpdate BuildFlags = 1 << iota
	BuildAllowCompaction
	BuildPreferFastTrace
	BuildPreferFastBuild
	BuildLowMemory
)

type BuildMode int

const (
	ModeBuild BuildMode = iota
	ModeUpdate
)

func (m BuildMode) String() string {
	if m == ModeUpdate {
		return "update"
	}
	return "build"
}

// GeometryFlags mirror VkGeometryFlagBitsKHR.
type GeometryFlags uint32

const (
	GeometryOpaque GeometryFlags = 1 << iota
	GeometryNoDuplicateAnyHitInvocation
)

type GeometryType int

const (
	GeometryTriangles GeometryType = iota
	GeometryInstances
)

// Format of the vertex positions read by a triangle geometry.
type Format uint32

const (
	FormatR32G32B32Sfloat Format = iota + 1
	FormatR32G32Sfloat
	FormatR16G16B16A16Sfloat
)

type IndexType uint32

const (
	IndexUint32 IndexType = iota + 1
	IndexUint16
)

// StructureHandle is an opaque device handle, zero is the null handle.
type StructureHandle uint64

type TrianglesData struct {
	VertexFormat  Format
	VertexData    uint64
	VertexStride  uint64
	MaxVertex     uint32
	IndexType     IndexType
	IndexData     uint64
	TransformData uint64
}

type InstancesData struct {
	ArrayOfPointers bool
	Data            uint64
}

// Geometry is the device facing description of one geometry, only the member matching Type is used.
type Geometry struct {
	Type      GeometryType
	Flags     GeometryFlags
	Triangles TrianglesData
	Instances InstancesData
}

// BuildRange mirrors VkAccelerationStructureBuildRangeInfoKHR.
type BuildRange struct {
	PrimitiveCount  uint32
	PrimitiveOffset uint32
	FirstVertex     uint32
	TransformOffset uint32
}

type BuildSizes struct {
	StructureSize     uint64
	UpdateScratchSize uint64
	BuildScratchSize  uint64
}

// BuildGeometryInfo mirrors VkAccelerationStructureBuildGeometryInfoKHR.
type BuildGeometryInfo struct {
	Type           Type
	Flags          BuildFlags
	Mode           BuildMode
	Src            StructureHandle
	Dst            StructureHandle
	Geometries     []Geometry
	ScratchAddress uint64
}

// Device is the device query surface needed to create and build acceleration structures.
type Device interface {
	// BuildSizes is a pure query, it never records GPU work.
	BuildSizes(info *BuildGeometryInfo, primitiveCounts []uint32) BuildSizes
	CreateStructure(t Type, buffer resource.Buffer, size uint64) (StructureHandle, error)
	DestroyStructure(h StructureHandle)
	StructureAddress(h StructureHandle) uint64
	CmdBuildStructure(cmd resource.CommandBuffer, info *BuildGeometryInfo, ranges []BuildRange)
}

// Context bundles the collaborators an acceleration structure is created against.
type Context struct {
	Device   Device
	Pool     resource.BufferPool
	Commands resource.CommandExecutor
}
