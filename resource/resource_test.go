package resource

import (
	"testing"

	"github.com/cockroachdb/errors"
)

type testBuffer struct {
	size   uint64
	usage  Usage
	memory MemoryUsage
	data   []byte
}

func (b *testBuffer) Size() uint64          { return b.size }
func (b *testBuffer) Usage() Usage          { return b.usage }
func (b *testBuffer) Memory() MemoryUsage   { return b.memory }
func (b *testBuffer) DeviceAddress() uint64 { return 0 }
func (b *testBuffer) Update(data []byte, offset uint64) error {
	copy(b.data[offset:], data)
	return nil
}
func (b *testBuffer) Bytes() ([]byte, error) { return append([]byte(nil), b.data...), nil }

type testAllocator struct {
	freed int
	fail  bool
}

func (a *testAllocator) Allocate(size uint64, usage Usage, memory MemoryUsage) (Buffer, error) {
	if a.fail {
		return nil, errors.New("out of device memory")
	}
	return &testBuffer{size: size, usage: usage, memory: memory, data: make([]byte, size)}, nil
}

func (a *testAllocator) Free(Buffer) { a.freed++ }

type testExecutor struct {
	submitted []QueueType
}

type testCmd struct{}

func (testCmd) CopyBuffer(src Buffer, dst Buffer, size uint64) {
	data, _ := Unwrap(src).Bytes()
	_ = Unwrap(dst).Update(data[:size], 0)
}

func (e *testExecutor) OneTimeCommand(queue QueueType, record func(cmd CommandBuffer), completion func()) error {
	e.submitted = append(e.submitted, queue)
	record(testCmd{})
	if completion != nil {
		completion()
	}
	return nil
}

func TestHandleReleaseReturnsBufferOnce(t *testing.T) {
	alloc := &testAllocator{}
	pool := NewPool("test", alloc)
	h, err := pool.RequestBuffer(256, UsageStorage, MemoryGPUOnly)
	if err != nil {
		t.Fatalf("Failed to request buffer: %s", err)
	}
	shared := h.Retain()
	if shared != h || h.Refs() != 2 {
		t.Errorf("Retain should share the handle, refs=%d", h.Refs())
	}
	h.Release()
	if alloc.freed != 0 {
		t.Errorf("Buffer freed while still referenced")
	}
	shared.Release()
	if alloc.freed != 1 {
		t.Errorf("Buffer should be freed exactly once after the last release, freed=%d", alloc.freed)
	}
	if s := pool.Stats(); s.LiveBuffers != 0 || s.LiveBytes != 0 || s.PeakBytes != 256 {
		t.Errorf("Unexpected pool stats after release: %+v", s)
	}
}

func TestHandleOverReleasePanics(t *testing.T) {
	h := NewHandle(&testBuffer{size: 4}, nil)
	h.Release()
	defer func() {
		if recover() == nil {
			t.Errorf("Releasing a handle twice should panic")
		}
	}()
	h.Release()
}

func TestScratchBufferUsage(t *testing.T) {
	pool := NewPool("test", &testAllocator{})
	h, err := pool.RequestScratchBuffer(1024)
	if err != nil {
		t.Fatalf("Failed to request scratch buffer: %s", err)
	}
	defer h.Release()
	if h.Usage() != UsageStorage|UsageShaderDeviceAddress || h.Memory() != MemoryGPUOnly {
		t.Errorf("Scratch buffer has usage %s in %s memory", h.Usage(), h.Memory())
	}
}

func TestRequestBufferErrors(t *testing.T) {
	pool := NewPool("test", &testAllocator{fail: true})
	if _, err := pool.RequestBuffer(64, UsageUniform, MemoryCPUToGPU); err == nil {
		t.Errorf("Allocator failure should be returned")
	}
	if _, err := pool.RequestBuffer(0, UsageUniform, MemoryCPUToGPU); err == nil {
		t.Errorf("Zero sized request should be refused")
	}
}

func TestUploadReleasesStaging(t *testing.T) {
	alloc := &testAllocator{}
	pool := NewPool("test", alloc)
	exec := &testExecutor{}
	dst, _ := pool.RequestBuffer(4, UsageTransferDst|UsageStorage, MemoryGPUOnly)
	if err := Upload(pool, exec, QueueTransfer, dst, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Upload failed: %s", err)
	}
	got, _ := Unwrap(dst).Bytes()
	if string(got) != string([]byte{1, 2, 3, 4}) {
		t.Errorf("Upload did not reach the destination: %v", got)
	}
	if alloc.freed != 1 || pool.Stats().LiveBuffers != 1 {
		t.Errorf("Staging buffer should be freed after the upload, stats %s", pool.Stats())
	}
	if len(exec.submitted) != 1 || exec.submitted[0] != QueueTransfer {
		t.Errorf("Upload should submit once to the transfer queue: %v", exec.submitted)
	}
}

func TestUsageString(t *testing.T) {
	if s := (UsageStorage | UsageIndirect).String(); s != "storage|indirect" {
		t.Errorf("Unexpected usage string %q", s)
	}
	if s := Usage(0).String(); s != "none" {
		t.Errorf("Unexpected usage string %q", s)
	}
}
