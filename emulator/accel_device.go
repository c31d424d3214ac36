package emulator

import (
	"GPU_scene_core/accel"
	"GPU_scene_core/resource"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
)

// Structure is the emulator's record of an acceleration structure.
type Structure struct {
	Type       accel.Type
	Buffer     resource.Buffer
	Address    uint64
	Size       uint64
	Built      bool
	Builds     int
	Updates    int
	Geometries []accel.Geometry
	Primitives uint32
	Instances  []accel.Instance
}

// AccelDevice implements accel.Device with deterministic sizes: every geometry and every primitive
// costs a fixed amount, rounded up to the address alignment.
type AccelDevice struct {
	mu         sync.Mutex
	mem        *Memory
	next       accel.StructureHandle
	structures map[accel.StructureHandle]*Structure
	destroyed  int
}

func NewAccelDevice(mem *Memory) *AccelDevice {
	return &AccelDevice{mem: mem, structures: make(map[accel.StructureHandle]*Structure)}
}

func (d *AccelDevice) BuildSizes(info *accel.BuildGeometryInfo, primitiveCounts []uint32) accel.BuildSizes {
	d.mu.Lock()
	defer d.mu.Unlock()
	var total uint64
	for _, c := range primitiveCounts {
		total += uint64(c)
	}
	sizes := accel.BuildSizes{
		StructureSize:     alignUp(1024+64*uint64(len(info.Geometries))+64*total, addressAlignment),
		BuildScratchSize:  alignUp(512+32*total, addressAlignment),
		UpdateScratchSize: alignUp(256+16*total, addressAlignment),
	}
	// a refit keeps the layout of the structure it starts from
	if info.Mode == accel.ModeUpdate && info.Src != 0 {
		if s, ok := d.structures[info.Src]; ok && s.Built {
			sizes.StructureSize = s.Size
		}
	}
	return sizes
}

func (d *AccelDevice) CreateStructure(t accel.Type, buffer resource.Buffer, size uint64) (accel.StructureHandle, error) {
	b, err := emulated(buffer)
	if err != nil {
		return 0, err
	}
	if !b.Usage().Has(resource.UsageAccelerationStructureStorage) {
		return 0, errors.Newf("buffer with usage %s cannot back an acceleration structure", b.Usage())
	}
	if b.Size() < size {
		return 0, errors.Newf("buffer of %d bytes cannot hold a structure of %d bytes", b.Size(), size)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.structures[d.next] = &Structure{Type: t, Buffer: buffer, Address: b.DeviceAddress(), Size: size}
	return d.next, nil
}

func (d *AccelDevice) DestroyStructure(h accel.StructureHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.structures[h]; !ok {
		log.Panicf("Destroying unknown acceleration structure %d", h)
	}
	delete(d.structures, h)
	d.destroyed++
}

func (d *AccelDevice) StructureAddress(h accel.StructureHandle) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.structures[h]; ok {
		return s.Address
	}
	return 0
}

func (d *AccelDevice) CmdBuildStructure(cmd resource.CommandBuffer, info *accel.BuildGeometryInfo, ranges []accel.BuildRange) {
	snapshot := *info
	snapshot.Geometries = append([]accel.Geometry(nil), info.Geometries...)
	r := append([]accel.BuildRange(nil), ranges...)
	commandBuffer(cmd).Record(func() error {
		return d.build(&snapshot, r)
	})
}

func (d *AccelDevice) build(info *accel.BuildGeometryInfo, ranges []accel.BuildRange) error {
	if len(ranges) != len(info.Geometries) {
		return errors.Newf("%d build ranges for %d geometries", len(ranges), len(info.Geometries))
	}
	scratch, _, err := d.mem.Resolve(info.ScratchAddress)
	if err != nil {
		return errors.Wrap(err, "scratch buffer")
	}
	if !scratch.Usage().Has(resource.UsageStorage) {
		return errors.Newf("scratch buffer lacks storage usage, has %s", scratch.Usage())
	}

	var instances []accel.Instance
	for i, g := range info.Geometries {
		switch g.Type {
		case accel.GeometryTriangles:
			if info.Type != accel.BottomLevel {
				return errors.Newf("geometry %d: triangles in a %s structure", i, info.Type)
			}
			for _, addr := range []uint64{g.Triangles.VertexData, g.Triangles.IndexData} {
				if _, _, err := d.mem.Resolve(addr); err != nil {
					return errors.Wrapf(err, "geometry %d", i)
				}
			}
			if g.Triangles.TransformData != 0 {
				if _, _, err := d.mem.Resolve(g.Triangles.TransformData); err != nil {
					return errors.Wrapf(err, "geometry %d transform", i)
				}
			}
		case accel.GeometryInstances:
			if info.Type != accel.TopLevel {
				return errors.Newf("geometry %d: instances in a %s structure", i, info.Type)
			}
			raw, err := d.mem.Read(g.Instances.Data, uint64(ranges[i].PrimitiveCount)*accel.InstanceSize)
			if err != nil {
				return errors.Wrapf(err, "geometry %d instances", i)
			}
			decoded, err := accel.DecodeInstances(raw)
			if err != nil {
				return err
			}
			instances = append(instances, decoded...)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, in := range instances {
		if !d.builtBottomLevel(in.StructureReference) {
			return errors.Newf("instance references 0x%x which is not a built bottom-level structure", in.StructureReference)
		}
	}
	dst, ok := d.structures[info.Dst]
	if !ok {
		return errors.Newf("build into unknown structure %d", info.Dst)
	}
	if dst.Type != info.Type {
		return errors.Newf("building a %s structure into a %s one", info.Type, dst.Type)
	}
	if info.Mode == accel.ModeUpdate && info.Src != 0 {
		src, ok := d.structures[info.Src]
		if !ok || !src.Built {
			return errors.Newf("update from structure %d which was never built", info.Src)
		}
		dst.Built = true
		dst.Updates++
		return nil
	}
	var total uint32
	for _, r := range ranges {
		total += r.PrimitiveCount
	}
	dst.Geometries = info.Geometries
	dst.Primitives = total
	dst.Instances = instances
	dst.Built = true
	dst.Builds++
	return nil
}

// builtBottomLevel reports whether addr is the address of a built bottom-level structure. Callers hold mu.
func (d *AccelDevice) builtBottomLevel(addr uint64) bool {
	for _, s := range d.structures {
		if s.Address == addr && s.Type == accel.BottomLevel && s.Built {
			return true
		}
	}
	return false
}

// Structure returns a copy of the record of h.
func (d *AccelDevice) Structure(h accel.StructureHandle) (Structure, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.structures[h]
	if !ok {
		return Structure{}, false
	}
	return *s, true
}

func (d *AccelDevice) LiveStructures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.structures)
}

func (d *AccelDevice) Destroyed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}
