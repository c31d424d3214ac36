package renderer

import (
	"GPU_scene_core/resource"
	"testing"

	vk "github.com/goki/vulkan"
)

func TestBufferUsageFlags(t *testing.T) {
	usage := resource.UsageTransferSrc | resource.UsageStorage | resource.UsageIndirect | resource.UsageShaderDeviceAddress
	want := vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit | vk.BufferUsageStorageBufferBit |
		vk.BufferUsageIndirectBufferBit | vk.BufferUsageShaderDeviceAddressBit)
	if got := bufferUsageFlags(usage); got != want {
		t.Errorf("Usage %s mapped to %b but should be %b", usage, got, want)
	}
	if got := bufferUsageFlags(0); got != 0 {
		t.Errorf("No usage should map to no flags, got %b", got)
	}
	as := bufferUsageFlags(resource.UsageAccelerationStructureStorage | resource.UsageAccelerationStructureBuildInput)
	if as&vk.BufferUsageFlags(vk.BufferUsageAccelerationStructureStorageBit) == 0 ||
		as&vk.BufferUsageFlags(vk.BufferUsageAccelerationStructureBuildInputReadOnlyBit) == 0 {
		t.Errorf("Acceleration structure usages are missing in %b", as)
	}
}

func testMemoryProperties() vk.PhysicalDeviceMemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	props.MemoryTypeCount = 3
	props.MemoryTypes[0] = vk.MemoryType{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), HeapIndex: 0}
	props.MemoryTypes[1] = vk.MemoryType{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit), HeapIndex: 1}
	props.MemoryTypes[2] = vk.MemoryType{
		PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit),
		HeapIndex:     1,
	}
	return props
}

func TestFindMemoryType(t *testing.T) {
	props := testMemoryProperties()
	idx, err := findMemoryType(props, 0b111, memoryPropertyFlags(resource.MemoryGPUOnly))
	if err != nil || idx != 0 {
		t.Errorf("GPU only memory should use type 0, got %d (%v)", idx, err)
	}
	idx, err = findMemoryType(props, 0b111, memoryPropertyFlags(resource.MemoryCPUToGPU))
	if err != nil || idx != 2 {
		t.Errorf("Host visible memory has to be coherent and use type 2, got %d (%v)", idx, err)
	}
	if _, err = findMemoryType(props, 0b011, memoryPropertyFlags(resource.MemoryGPUToCPU)); err == nil {
		t.Errorf("Type filter excluding type 2 should leave no host memory")
	}
}

func TestSelectQueueFamily(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		{QueueFlags: vk.QueueFlags(vk.QueueTransferBit), QueueCount: 2},
		{QueueFlags: vk.QueueFlags(vk.QueueComputeBit), QueueCount: 1},
		{QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit), QueueCount: 1},
	}
	indices, err := selectQueueFamily(families)
	if err != nil {
		t.Fatalf("Expected a queue family: %v", err)
	}
	if *indices.computeFamily != 2 {
		t.Errorf("Should pick the graphics and compute family 2, got %d", *indices.computeFamily)
	}
	if _, err := selectQueueFamily(families[:2]); err == nil {
		t.Errorf("Families without graphics support must be rejected")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.EnableValidation || len(cfg.ValidationLayers) != 1 {
		t.Errorf("Validation should be on with the khronos layer by default: %+v", cfg)
	}
	if cfg.ShaderDir != "shaders" {
		t.Errorf("Shader directory is %q", cfg.ShaderDir)
	}
}

func TestAllocateRefusesDeviceAddress(t *testing.T) {
	a := NewAllocator(&DeviceContext{})
	b, err := a.Allocate(64, resource.UsageStorage|resource.UsageShaderDeviceAddress, resource.MemoryGPUOnly)
	if err == nil || b != nil {
		t.Errorf("Device address allocation has to fail without bufferDeviceAddress, got %v", b)
	}
}
