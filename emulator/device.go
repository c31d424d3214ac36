package emulator

import (
	"GPU_scene_core/accel"
	"GPU_scene_core/culling"
	"GPU_scene_core/resource"
	"log"
)

// Device bundles the emulator collaborators around one address space.
type Device struct {
	Memory     *Memory
	Allocator  *Allocator
	Pool       *resource.Pool
	Executor   *Executor
	Accel      *AccelDevice
	Dispatcher *Dispatcher
}

// FullFeatures enables everything the culler can use.
func FullFeatures() culling.Features {
	return culling.Features{MultiDrawIndirect: true, DrawIndirectFirstInstance: true, BufferDeviceAddress: true}
}

func NewDevice(features culling.Features) *Device {
	mem := NewMemory()
	alloc := NewAllocator(mem, features.BufferDeviceAddress)
	d := &Device{
		Memory:     mem,
		Allocator:  alloc,
		Pool:       resource.NewPool("emulator", alloc),
		Executor:   NewExecutor(),
		Accel:      NewAccelDevice(mem),
		Dispatcher: NewDispatcher(mem, features),
	}
	log.Printf("Created emulator device, features %+v", features)
	return d
}

func (d *Device) AccelContext() *accel.Context {
	return &accel.Context{Device: d.Accel, Pool: d.Pool, Commands: d.Executor}
}

func (d *Device) CullContext() culling.Context {
	return culling.Context{Pool: d.Pool, Commands: d.Executor, Dispatcher: d.Dispatcher}
}

func (d *Device) Destroy() {
	d.Pool.Destroy()
}
