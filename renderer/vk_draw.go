package renderer

import (
	"GPU_scene_core/resource"

	vk "github.com/goki/vulkan"
)

// DrawRecorder records indirect draws into a command buffer inside a render pass owned by the caller.
type DrawRecorder struct {
	cmd vk.CommandBuffer
}

func NewDrawRecorder(cmd resource.CommandBuffer) *DrawRecorder {
	return &DrawRecorder{cmd: vkCommandBuffer(cmd).handle}
}

func (r *DrawRecorder) DrawIndexedIndirect(buffer resource.Buffer, offset uint64, drawCount uint32, stride uint32) {
	vk.CmdDrawIndexedIndirect(r.cmd, vkBuffer(buffer).handle, vk.DeviceSize(offset), drawCount, stride)
}
