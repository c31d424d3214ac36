package resource

import "strings"

// Usage describes what a buffer is going to be bound as. It mirrors the subset of VkBufferUsageFlagBits
// needed by the acceleration structure and culling code; backends translate it to their own flags.
type Usage uint32

const (
	UsageTransferSrc Usage = 1 << iota
	UsageTransferDst
	UsageUniform
	UsageStorage
	UsageIndex
	UsageVertex
	UsageIndirect
	UsageShaderDeviceAddress
	UsageAccelerationStructureStorage
	UsageAccelerationStructureBuildInput
)

// ScratchUsage is the fixed usage of acceleration structure scratch memory.
const ScratchUsage = UsageStorage | UsageShaderDeviceAddress

var usageNames = []string{
	"transfer-src", "transfer-dst", "uniform", "storage", "index", "vertex", "indirect",
	"device-address", "as-storage", "as-build-input",
}

func (u Usage) Has(flags Usage) bool {
	return u&flags == flags
}

func (u Usage) String() string {
	var parts []string
	for i, n := range usageNames {
		if u&(1<<uint(i)) != 0 {
			parts = append(parts, n)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// MemoryUsage is the memory class a buffer lives in, named after the VMA usages.
type MemoryUsage int

const (
	MemoryGPUOnly MemoryUsage = iota
	MemoryCPUToGPU
	MemoryGPUToCPU
)

func (m MemoryUsage) String() string {
	switch m {
	case MemoryGPUOnly:
		return "gpu-only"
	case MemoryCPUToGPU:
		return "cpu-to-gpu"
	case MemoryGPUToCPU:
		return "gpu-to-cpu"
	}
	return "unknown"
}

// HostVisible reports whether the CPU can map memory of this class.
func (m MemoryUsage) HostVisible() bool {
	return m == MemoryCPUToGPU || m == MemoryGPUToCPU
}

// Buffer is a device buffer with bound memory.
type Buffer interface {
	Size() uint64
	Usage() Usage
	Memory() MemoryUsage
	// DeviceAddress is 0 unless the buffer was created with UsageShaderDeviceAddress.
	DeviceAddress() uint64
	// Update copies data into host visible memory at offset.
	Update(data []byte, offset uint64) error
	// Bytes returns a copy of the host visible contents.
	Bytes() ([]byte, error)
}

// Allocator creates and frees the physical buffers a Pool hands out.
type Allocator interface {
	Allocate(size uint64, usage Usage, memory MemoryUsage) (Buffer, error)
	Free(b Buffer)
}
