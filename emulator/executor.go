package emulator

import (
	"GPU_scene_core/resource"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
)

// CommandBuffer collects deferred operations, they run in order when the command is submitted.
type CommandBuffer struct {
	queue resource.QueueType
	ops   []func() error
}

func (c *CommandBuffer) Queue() resource.QueueType {
	return c.queue
}

// Record appends an operation executed at submission.
func (c *CommandBuffer) Record(op func() error) {
	c.ops = append(c.ops, op)
}

func (c *CommandBuffer) CopyBuffer(src resource.Buffer, dst resource.Buffer, size uint64) {
	c.Record(func() error {
		s, err := emulated(src)
		if err != nil {
			return err
		}
		d, err := emulated(dst)
		if err != nil {
			return err
		}
		data, err := s.read(0, size)
		if err != nil {
			return errors.Wrap(err, "copy source")
		}
		return errors.Wrap(d.write(data, 0), "copy destination")
	})
}

func commandBuffer(cmd resource.CommandBuffer) *CommandBuffer {
	cb, ok := cmd.(*CommandBuffer)
	if !ok {
		log.Panicf("Command buffer of type %T does not belong to the emulator", cmd)
	}
	return cb
}

// Executor runs one-time commands synchronously, one at a time.
type Executor struct {
	mu          sync.Mutex
	submissions map[resource.QueueType]int
	fail        error
}

func NewExecutor() *Executor {
	return &Executor{submissions: make(map[resource.QueueType]int)}
}

// FailNext makes the next submission fail with err before any of its operations run.
func (e *Executor) FailNext(err error) {
	e.mu.Lock()
	e.fail = err
	e.mu.Unlock()
}

func (e *Executor) OneTimeCommand(queue resource.QueueType, record func(cmd resource.CommandBuffer), completion func()) error {
	e.mu.Lock()
	cmd := &CommandBuffer{queue: queue}
	record(cmd)
	if err := e.fail; err != nil {
		e.fail = nil
		e.mu.Unlock()
		return errors.Wrapf(err, "submitting to the %s queue", queue)
	}
	for i, op := range cmd.ops {
		if err := op(); err != nil {
			e.mu.Unlock()
			return errors.Wrapf(err, "%s queue command %d", queue, i)
		}
	}
	e.submissions[queue]++
	e.mu.Unlock()

	if completion != nil {
		completion()
	}
	return nil
}

// Submissions counts the successful submissions to queue.
func (e *Executor) Submissions(queue resource.QueueType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submissions[queue]
}
