package renderer

import (
	"GPU_scene_core/common"
	"GPU_scene_core/resource"
	"context"
	"log"

	vk "github.com/goki/vulkan"
	"github.com/palantir/stacktrace"
	"golang.org/x/sync/semaphore"
)

// CommandBuffer is a recording vk.CommandBuffer handed to one-time command callbacks.
type CommandBuffer struct {
	handle vk.CommandBuffer
	queue  resource.QueueType
}

func (c *CommandBuffer) Handle() vk.CommandBuffer {
	return c.handle
}

func (c *CommandBuffer) CopyBuffer(src resource.Buffer, dst resource.Buffer, size uint64) {
	copyRegions := []vk.BufferCopy{
		{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      vk.DeviceSize(size),
		},
	}
	vk.CmdCopyBuffer(c.handle, vkBuffer(src).handle, vkBuffer(dst).handle, 1, copyRegions)
}

func vkCommandBuffer(cmd resource.CommandBuffer) *CommandBuffer {
	cb, ok := cmd.(*CommandBuffer)
	if !ok {
		log.Panicf("Command buffer of type %T does not belong to the vulkan backend", cmd)
	}
	return cb
}

// Executor submits single time command buffers. The command pool and the fence are shared, so only one
// command is recorded and in flight at any time.
type Executor struct {
	dc    *DeviceContext
	pool  vk.CommandPool
	fence vk.Fence
	sem   *semaphore.Weighted
}

func NewExecutor(dc *DeviceContext) (*Executor, error) {
	pool, err := common.VKSCreateCommandPool(
		dc.device,
		vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
		*dc.qFamilies.computeFamily,
	)
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to create command pool")
	}
	fence, err := common.VKSCreateFence(dc.device)
	if err != nil {
		vk.DestroyCommandPool(dc.device, pool, nil)
		return nil, stacktrace.Propagate(err, "failed to create single time command fence")
	}
	return &Executor{dc: dc, pool: pool, fence: fence, sem: semaphore.NewWeighted(1)}, nil
}

// OneTimeCommand records, submits and waits. Every queue type maps onto the one device queue.
func (e *Executor) OneTimeCommand(queue resource.QueueType, record func(cmd resource.CommandBuffer), completion func()) error {
	if err := e.sem.Acquire(context.Background(), 1); err != nil {
		return stacktrace.Propagate(err, "failed to acquire the command pool")
	}
	err := e.submit(queue, record)
	e.sem.Release(1)
	if err != nil {
		return err
	}
	if completion != nil {
		completion()
	}
	return nil
}

func (e *Executor) submit(queue resource.QueueType, record func(cmd resource.CommandBuffer)) error {
	cmdBuf, err := common.VKBeginSingleTimeCommands(e.dc.device, e.pool)
	if err != nil {
		return stacktrace.Propagate(err, "failed to create command buffer for single time use")
	}
	record(&CommandBuffer{handle: cmdBuf, queue: queue})
	err = common.VKEndSingleTimeCommands(e.dc.device, e.pool, e.dc.queue, e.fence, cmdBuf)
	return stacktrace.Propagate(err, "failed to run single time command on the %s queue", queue)
}

func (e *Executor) Destroy() {
	vk.DestroyFence(e.dc.device, e.fence, nil)
	vk.DestroyCommandPool(e.dc.device, e.pool, nil)
}
