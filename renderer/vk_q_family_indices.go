package renderer

import (
	"GPU_scene_core/common"

	vk "github.com/goki/vulkan"
	"github.com/palantir/stacktrace"
)

// QueueFamilyIndices is headless: a single family able to do graphics and compute serves every queue type.
type QueueFamilyIndices struct {
	computeFamily *uint32
}

func findQueueFamilies(pd vk.PhysicalDevice) (*QueueFamilyIndices, error) {
	return selectQueueFamily(common.ReadQueueFamilies(pd))
}

// selectQueueFamily picks the first family supporting VK_QUEUE_GRAPHICS_BIT and VK_QUEUE_COMPUTE_BIT.
func selectQueueFamily(qFamilies []vk.QueueFamilyProperties) (*QueueFamilyIndices, error) {
	indices := &QueueFamilyIndices{}
	for i := range qFamilies {
		if qFamilies[i].QueueCount > 0 && isBitSet(qFamilies[i], vk.QueueGraphicsBit|vk.QueueComputeBit) {
			indices.computeFamily = new(uint32)
			*indices.computeFamily = uint32(i)
			return indices, nil
		}
	}
	return nil, stacktrace.NewError("unable to find a graphics and compute capable queue family")
}

// isBitSet requires every bit of bits.
func isBitSet(qFamily vk.QueueFamilyProperties, bits vk.QueueFlagBits) bool {
	return vk.QueueFlagBits(qFamily.QueueFlags)&bits == bits
}

func (q *QueueFamilyIndices) isAllQueuesFound() bool {
	return q.computeFamily != nil
}

func (q *QueueFamilyIndices) toQueueCreateInfos() []vk.DeviceQueueCreateInfo {
	return []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		PNext:            nil,
		Flags:            0,
		QueueFamilyIndex: *q.computeFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}
}
