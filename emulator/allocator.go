package emulator

import (
	"GPU_scene_core/resource"
	"log"

	"github.com/cockroachdb/errors"
)

// Allocator hands out emulator buffers. Without deviceAddress it rejects shader device address usage
// the way a device without the bufferDeviceAddress feature would.
type Allocator struct {
	mem           *Memory
	deviceAddress bool
}

func NewAllocator(mem *Memory, deviceAddress bool) *Allocator {
	return &Allocator{mem: mem, deviceAddress: deviceAddress}
}

func (a *Allocator) Allocate(size uint64, usage resource.Usage, memory resource.MemoryUsage) (resource.Buffer, error) {
	if usage.Has(resource.UsageShaderDeviceAddress) && !a.deviceAddress {
		return nil, errors.Newf("buffer device addresses are not enabled, cannot create %s buffer", usage)
	}
	return a.mem.allocate(size, usage, memory), nil
}

func (a *Allocator) Free(buf resource.Buffer) {
	b, err := emulated(buf)
	if err != nil {
		log.Panicf("Failed to free buffer: %v", err)
	}
	a.mem.free(b)
}
