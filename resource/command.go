package resource

// QueueType selects the queue family a one-time command is submitted to.
type QueueType int

const (
	QueueGraphics QueueType = iota
	QueueCompute
	QueueTransfer
)

func (q QueueType) String() string {
	switch q {
	case QueueGraphics:
		return "graphics"
	case QueueCompute:
		return "compute"
	case QueueTransfer:
		return "transfer"
	}
	return "unknown"
}

// CommandBuffer is the recording surface shared by every backend. Backend specific commands (dispatches,
// acceleration structure builds, draws) are recorded by the component knowing the backend, which type
// asserts the command buffer it is handed.
type CommandBuffer interface {
	CopyBuffer(src Buffer, dst Buffer, size uint64)
}

// CommandExecutor runs transient command buffers.
type CommandExecutor interface {
	// OneTimeCommand records into a fresh command buffer, submits it to queue, blocks until the device
	// finished it and then runs completion (which may be nil). Completion does not run when an error
	// is returned.
	OneTimeCommand(queue QueueType, record func(cmd CommandBuffer), completion func()) error
}

// Upload copies data into dst through a temporary host visible staging buffer.
func Upload(pool BufferPool, exec CommandExecutor, queue QueueType, dst Buffer, data []byte) error {
	staging, err := pool.RequestBuffer(uint64(len(data)), UsageTransferSrc, MemoryCPUToGPU)
	if err != nil {
		return err
	}
	if err := staging.Update(data, 0); err != nil {
		staging.Release()
		return err
	}
	err = exec.OneTimeCommand(queue, func(cmd CommandBuffer) {
		cmd.CopyBuffer(staging, dst, uint64(len(data)))
	}, staging.Release)
	if err != nil {
		staging.Release()
	}
	return err
}
