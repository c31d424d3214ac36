package renderer

import (
	"GPU_scene_core/common"
	"GPU_scene_core/resource"
	"log"
	"unsafe"

	"github.com/docker/go-units"
	vk "github.com/goki/vulkan"
	"github.com/palantir/stacktrace"
)

// This Code section contains allocation helper functions. Every buffer gets its own dedicated memory allocation
// which is fine for the handful of long living buffers the culler and the acceleration structures use.

// Buffer is a vk.Buffer with its bound memory.
type Buffer struct {
	device    vk.Device
	handle    vk.Buffer
	deviceMem vk.DeviceMemory
	size      uint64
	usage     resource.Usage
	memory    resource.MemoryUsage
}

func (b *Buffer) Size() uint64                 { return b.size }
func (b *Buffer) Usage() resource.Usage        { return b.usage }
func (b *Buffer) Memory() resource.MemoryUsage { return b.memory }

// DeviceAddress is always 0, the allocator refuses device address usage.
func (b *Buffer) DeviceAddress() uint64 { return 0 }

func (b *Buffer) Handle() vk.Buffer { return b.handle }

// Update maps the memory, copies data in at offset and unmaps again.
func (b *Buffer) Update(data []byte, offset uint64) error {
	if !b.memory.HostVisible() {
		return stacktrace.NewError("buffer in %s memory is not host visible", b.memory)
	}
	if offset+uint64(len(data)) > b.size {
		return stacktrace.NewError("update of %d bytes at %d overflows buffer of %d bytes", len(data), offset, b.size)
	}
	if len(data) == 0 {
		return nil
	}
	pData, err := common.VkMapMemory(b.device, b.deviceMem, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0)
	if err != nil {
		return stacktrace.Propagate(err, "failed to map device memory")
	}
	vk.Memcopy(pData, data)
	vk.UnmapMemory(b.device, b.deviceMem)
	return nil
}

func (b *Buffer) Bytes() ([]byte, error) {
	if !b.memory.HostVisible() {
		return nil, stacktrace.NewError("buffer in %s memory is not host visible", b.memory)
	}
	pData, err := common.VkMapMemory(b.device, b.deviceMem, 0, vk.DeviceSize(b.size), 0)
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to map device memory")
	}
	out := make([]byte, b.size)
	copy(out, unsafe.Slice((*byte)(pData), b.size))
	vk.UnmapMemory(b.device, b.deviceMem)
	return out, nil
}

// vkBuffer unwraps pool handles down to the renderer buffer.
func vkBuffer(b resource.Buffer) *Buffer {
	buf, ok := resource.Unwrap(b).(*Buffer)
	if !ok {
		log.Panicf("Buffer of type %T does not belong to the vulkan backend", b)
	}
	return buf
}

// Allocator creates buffers with dedicated memory on the device context's device.
type Allocator struct {
	dc *DeviceContext
}

func NewAllocator(dc *DeviceContext) *Allocator {
	return &Allocator{dc: dc}
}

func (a *Allocator) Allocate(size uint64, usage resource.Usage, memory resource.MemoryUsage) (resource.Buffer, error) {
	deviceAddress := usage.Has(resource.UsageShaderDeviceAddress)
	if deviceAddress && !a.dc.features.BufferDeviceAddress {
		return nil, stacktrace.NewError("device address usage requested without bufferDeviceAddress support")
	}
	bufferInfo := vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		PNext:                 nil,
		Flags:                 0,
		Size:                  vk.DeviceSize(size),
		Usage:                 bufferUsageFlags(usage),
		SharingMode:           vk.SharingModeExclusive,
		QueueFamilyIndexCount: 0,
		PQueueFamilyIndices:   nil,
	}
	device := a.dc.device
	buf, err := common.VkCreateBuffer(device, &bufferInfo, nil)
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to create buffer of %s", units.BytesSize(float64(size)))
	}

	bufRequirements := common.ReadBufferMemoryRequirements(device, buf)
	memType, err := findMemoryType(a.dc.pdMemoryProps, bufRequirements.MemoryTypeBits, memoryPropertyFlags(memory))
	if err != nil {
		vk.DestroyBuffer(device, buf, nil)
		return nil, err
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		PNext:           nil,
		AllocationSize:  bufRequirements.Size,
		MemoryTypeIndex: memType,
	}
	deviceMem, err := common.VkAllocateMemory(device, &allocInfo, nil)
	if err != nil {
		vk.DestroyBuffer(device, buf, nil)
		return nil, stacktrace.Propagate(err, "failed to allocate %s of buffer memory", units.BytesSize(float64(bufRequirements.Size)))
	}
	// Associate allocated memory with buffer handle
	if err := common.VkBindBufferMemory(device, buf, deviceMem, 0); err != nil {
		vk.DestroyBuffer(device, buf, nil)
		vk.FreeMemory(device, deviceMem, nil)
		return nil, stacktrace.Propagate(err, "failed to bind device memory to buffer handle")
	}

	b := &Buffer{
		device:    device,
		handle:    buf,
		deviceMem: deviceMem,
		size:      size,
		usage:     usage,
		memory:    memory,
	}
	return b, nil
}

func (a *Allocator) Free(b resource.Buffer) {
	buf := vkBuffer(b)
	vk.DestroyBuffer(buf.device, buf.handle, nil)
	vk.FreeMemory(buf.device, buf.deviceMem, nil)
}

var usageBits = []struct {
	usage resource.Usage
	bit   vk.BufferUsageFlagBits
}{
	{resource.UsageTransferSrc, vk.BufferUsageTransferSrcBit},
	{resource.UsageTransferDst, vk.BufferUsageTransferDstBit},
	{resource.UsageUniform, vk.BufferUsageUniformBufferBit},
	{resource.UsageStorage, vk.BufferUsageStorageBufferBit},
	{resource.UsageIndex, vk.BufferUsageIndexBufferBit},
	{resource.UsageVertex, vk.BufferUsageVertexBufferBit},
	{resource.UsageIndirect, vk.BufferUsageIndirectBufferBit},
	{resource.UsageShaderDeviceAddress, vk.BufferUsageShaderDeviceAddressBit},
	{resource.UsageAccelerationStructureStorage, vk.BufferUsageAccelerationStructureStorageBit},
	{resource.UsageAccelerationStructureBuildInput, vk.BufferUsageAccelerationStructureBuildInputReadOnlyBit},
}

func bufferUsageFlags(u resource.Usage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	for _, b := range usageBits {
		if u.Has(b.usage) {
			flags |= b.bit
		}
	}
	return vk.BufferUsageFlags(flags)
}

// memoryPropertyFlags are the properties a memory usage requires. Host visible memory is always coherent so
// Update and Bytes never flush.
func memoryPropertyFlags(m resource.MemoryUsage) vk.MemoryPropertyFlags {
	switch m {
	case resource.MemoryCPUToGPU, resource.MemoryGPUToCPU:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	default:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	}
}

func findMemoryType(props vk.PhysicalDeviceMemoryProperties, typeFilter uint32, propFlags vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		ofType := (typeFilter & (1 << i)) > 0
		hasProperties := props.MemoryTypes[i].PropertyFlags&propFlags == propFlags
		if ofType && hasProperties {
			return i, nil
		}
	}
	return 0, stacktrace.NewError("failed to find a memory type in %032b with properties %b", typeFilter, propFlags)
}
