package accel

import (
	"log"

	"GPU_scene_core/resource"

	units "github.com/docker/go-units"
)

// AccelerationStructure owns one top or bottom level acceleration structure, its result buffer and
// the set of geometries it is built from.
type AccelerationStructure struct {
	ctx           *Context
	structureType Type

	handle        StructureHandle
	deviceAddress uint64
	sizes         BuildSizes
	buffer        *resource.Handle
	scratch       *resource.Handle

	geometries map[uint64]*Entry
	order      []uint64
	nextID     uint64
	revision   uint64
	generation uint64
}

// New creates an empty structure of type t. Nothing is allocated on the device before the first build.
func New(ctx *Context, t Type) *AccelerationStructure {
	if ctx == nil || ctx.Device == nil || ctx.Pool == nil || ctx.Commands == nil {
		log.Panicf("Acceleration structure needs a device, a buffer pool and a command executor")
	}
	return &AccelerationStructure{
		ctx:           ctx,
		structureType: t,
		geometries:    make(map[uint64]*Entry),
	}
}

func (as *AccelerationStructure) add(e Entry) uint64 {
	id := as.nextID
	as.nextID++
	as.revision++
	e.revision = as.revision
	as.geometries[id] = &e
	as.order = append(as.order, id)
	return id
}

func (as *AccelerationStructure) update(handle uint64, e Entry) {
	old, ok := as.geometries[handle]
	if !ok {
		log.Panicf("Unknown geometry handle %d on %s acceleration structure", handle, as.structureType)
	}
	if old.Geometry.Type != e.Geometry.Type {
		log.Panicf("Geometry %d cannot change its type", handle)
	}
	as.revision++
	e.revision = as.revision
	e.Updated = true
	*old = e
}

// AddTriangleGeometry registers triangles on a bottom-level structure and returns the geometry handle.
func (as *AccelerationStructure) AddTriangleGeometry(g TriangleGeometry) uint64 {
	if as.structureType != BottomLevel {
		log.Panicf("Triangle geometry can only be added to a bottom-level acceleration structure")
	}
	return as.add(g.entry())
}

// UpdateTriangleGeometry replaces the triangles behind handle and marks them for the next update build.
func (as *AccelerationStructure) UpdateTriangleGeometry(handle uint64, g TriangleGeometry) {
	as.update(handle, g.entry())
}

// AddInstanceGeometry registers an instance array on a top-level structure and returns the geometry handle.
func (as *AccelerationStructure) AddInstanceGeometry(g InstanceGeometry) uint64 {
	if as.structureType != TopLevel {
		log.Panicf("Instance geometry can only be added to a top-level acceleration structure")
	}
	return as.add(g.entry())
}

// UpdateInstanceGeometry replaces the instance array behind handle and marks it for the next update build.
func (as *AccelerationStructure) UpdateInstanceGeometry(handle uint64, g InstanceGeometry) {
	as.update(handle, g.entry())
}

// RemoveGeometry drops a geometry, its handle is never handed out again.
func (as *AccelerationStructure) RemoveGeometry(handle uint64) {
	if _, ok := as.geometries[handle]; !ok {
		log.Panicf("Unknown geometry handle %d on %s acceleration structure", handle, as.structureType)
	}
	delete(as.geometries, handle)
	for i, id := range as.order {
		if id == handle {
			as.order = append(as.order[:i], as.order[i+1:]...)
			break
		}
	}
}

// ResetGeometries forgets every geometry. The structure and its buffer are kept, handles keep counting.
func (as *AccelerationStructure) ResetGeometries() {
	as.geometries = make(map[uint64]*Entry)
	as.order = nil
}

// collect gathers the geometries taking part in a build in registration order together with the
// revisions they were taken at.
func (as *AccelerationStructure) collect(mode BuildMode) ([]Geometry, []BuildRange, []uint32, map[uint64]uint64) {
	var (
		geometries []Geometry
		ranges     []BuildRange
		counts     []uint32
	)
	consumed := make(map[uint64]uint64)
	for _, id := range as.order {
		e := as.geometries[id]
		if mode == ModeUpdate && !e.Updated {
			continue
		}
		geometries = append(geometries, e.Geometry)
		ranges = append(ranges, BuildRange{PrimitiveCount: e.PrimitiveCount, TransformOffset: e.TransformOffset})
		counts = append(counts, e.PrimitiveCount)
		consumed[id] = e.revision
	}
	return geometries, ranges, counts, consumed
}

// QueryBuildSizes asks the device what a build of the current geometries would need. Nothing is cached.
func (as *AccelerationStructure) QueryBuildSizes(mode BuildMode) BuildSizes {
	geometries, _, counts, _ := as.collect(mode)
	info := BuildGeometryInfo{Type: as.structureType, Flags: BuildPreferFastTrace, Mode: mode, Geometries: geometries}
	if mode == ModeUpdate && as.handle != 0 {
		info.Src, info.Dst = as.handle, as.handle
	}
	return as.ctx.Device.BuildSizes(&info, counts)
}

// BuildDefault builds from scratch preferring trace performance.
func (as *AccelerationStructure) BuildDefault(queue resource.QueueType) {
	as.Build(queue, BuildPreferFastTrace, ModeBuild)
}

// Build (re)builds the structure from the registered geometries. In update mode only geometries
// updated since the last build take part and the structure is refitted in place.
func (as *AccelerationStructure) Build(queue resource.QueueType, flags BuildFlags, mode BuildMode) {
	if len(as.order) == 0 {
		log.Panicf("Cannot build a %s acceleration structure without geometries", as.structureType)
	}

	geometries, ranges, counts, consumed := as.collect(mode)
	info := BuildGeometryInfo{
		Type:       as.structureType,
		Flags:      flags,
		Mode:       mode,
		Geometries: geometries,
	}
	if mode == ModeUpdate && as.handle != 0 {
		info.Src, info.Dst = as.handle, as.handle
	}

	as.sizes = as.ctx.Device.BuildSizes(&info, counts)

	var (
		retired       StructureHandle
		retiredBuffer *resource.Handle
	)
	if as.buffer == nil || as.buffer.Size() != as.sizes.StructureSize {
		buffer, err := as.ctx.Pool.RequestBuffer(as.sizes.StructureSize,
			resource.UsageAccelerationStructureStorage|resource.UsageShaderDeviceAddress, resource.MemoryGPUOnly)
		if err != nil {
			log.Panicf("Failed to allocate %s acceleration structure buffer: %v", as.structureType, err)
		}
		handle, err := as.ctx.Device.CreateStructure(as.structureType, buffer, as.sizes.StructureSize)
		if err != nil {
			buffer.Release()
			log.Panicf("Failed to create %s acceleration structure: %v", as.structureType, err)
		}
		log.Printf("Allocated %s acceleration structure of %s", as.structureType, units.BytesSize(float64(as.sizes.StructureSize)))
		retired, retiredBuffer = as.handle, as.buffer
		as.handle, as.buffer = handle, buffer
	}
	info.Dst = as.handle

	as.deviceAddress = as.ctx.Device.StructureAddress(as.handle)

	scratchSize := as.sizes.BuildScratchSize
	if mode == ModeUpdate && as.sizes.UpdateScratchSize != 0 {
		scratchSize = as.sizes.UpdateScratchSize
	}
	scratch, err := as.ctx.Pool.RequestScratchBuffer(scratchSize)
	if err != nil {
		log.Panicf("Failed to allocate acceleration structure scratch buffer: %v", err)
	}
	as.scratch = scratch
	info.ScratchAddress = scratch.DeviceAddress()

	err = as.ctx.Commands.OneTimeCommand(queue, func(cmd resource.CommandBuffer) {
		as.ctx.Device.CmdBuildStructure(cmd, &info, ranges)
	}, func() {
		as.scratch = resource.ReleaseHandle(as.scratch)
		if retired != 0 {
			as.ctx.Device.DestroyStructure(retired)
		}
		resource.ReleaseHandle(retiredBuffer)
	})
	if err != nil {
		log.Panicf("Failed to build %s acceleration structure: %v", as.structureType, err)
	}

	for id, rev := range consumed {
		if e, ok := as.geometries[id]; ok && e.revision == rev {
			e.Updated = false
		}
	}
	as.generation++
}

func (as *AccelerationStructure) Handle() StructureHandle {
	return as.handle
}

// HandlePtr points at the live handle for APIs taking handle arrays.
func (as *AccelerationStructure) HandlePtr() *StructureHandle {
	return &as.handle
}

// DeviceAddress of the structure, 0 until it was built.
func (as *AccelerationStructure) DeviceAddress() uint64 {
	return as.deviceAddress
}

// BuildSizes as cached by the last build.
func (as *AccelerationStructure) BuildSizes() BuildSizes {
	return as.sizes
}

// Buffer is the result buffer, nil before the first build.
func (as *AccelerationStructure) Buffer() resource.Buffer {
	if as.buffer == nil {
		return nil
	}
	return as.buffer
}

func (as *AccelerationStructure) Type() Type {
	return as.structureType
}

func (as *AccelerationStructure) GeometryCount() int {
	return len(as.order)
}

// Generation counts completed builds.
func (as *AccelerationStructure) Generation() uint64 {
	return as.generation
}

// Geometry returns a copy of the registered geometry.
func (as *AccelerationStructure) Geometry(handle uint64) (Entry, bool) {
	e, ok := as.geometries[handle]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Handles lists the geometry handles in registration order.
func (as *AccelerationStructure) Handles() []uint64 {
	return append([]uint64(nil), as.order...)
}

// Destroy releases the device structure together with its result and scratch buffers.
func (as *AccelerationStructure) Destroy() {
	if as.handle != 0 {
		as.ctx.Device.DestroyStructure(as.handle)
		as.handle = 0
	}
	as.deviceAddress = 0
	as.buffer = resource.ReleaseHandle(as.buffer)
	as.scratch = resource.ReleaseHandle(as.scratch)
}
