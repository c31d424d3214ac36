package emulator

import (
	"GPU_scene_core/resource"
	"errors"
	"testing"
)

func TestResolveAddresses(t *testing.T) {
	mem := NewMemory()
	a := mem.allocate(100, resource.UsageShaderDeviceAddress, resource.MemoryGPUOnly)
	b := mem.allocate(300, resource.UsageShaderDeviceAddress, resource.MemoryGPUOnly)
	if a.DeviceAddress()%addressAlignment != 0 || b.DeviceAddress()%addressAlignment != 0 {
		t.Errorf("Expected aligned addresses, got 0x%x and 0x%x", a.DeviceAddress(), b.DeviceAddress())
	}
	got, off, err := mem.Resolve(b.DeviceAddress() + 17)
	if err != nil || got != b || off != 17 {
		t.Errorf("Expected buffer b at offset 17, got %p %d %v", got, off, err)
	}
	if _, _, err := mem.Resolve(a.DeviceAddress() + 100); err == nil {
		t.Errorf("Expected the gap behind a to be unmapped")
	}
	if _, _, err := mem.Resolve(0); err == nil {
		t.Errorf("Expected the null address to be unmapped")
	}
	mem.free(a)
	if _, _, err := mem.Resolve(a.DeviceAddress()); err == nil {
		t.Errorf("Expected a freed buffer to be unmapped")
	}
	if mem.LiveBuffers() != 1 {
		t.Errorf("Expected 1 live buffer, got %d", mem.LiveBuffers())
	}
}

func TestDeviceAddressRequiresUsage(t *testing.T) {
	mem := NewMemory()
	b := mem.allocate(16, resource.UsageStorage, resource.MemoryGPUOnly)
	if b.DeviceAddress() != 0 {
		t.Errorf("Expected no device address without the usage flag, got 0x%x", b.DeviceAddress())
	}
	alloc := NewAllocator(mem, false)
	if _, err := alloc.Allocate(16, resource.UsageShaderDeviceAddress, resource.MemoryGPUOnly); err == nil {
		t.Errorf("Expected device address buffers to fail without the feature")
	}
}

func TestGPUOnlyMemoryIsNotMappable(t *testing.T) {
	mem := NewMemory()
	b := mem.allocate(16, resource.UsageStorage, resource.MemoryGPUOnly)
	if err := b.Update([]byte{1}, 0); err == nil {
		t.Errorf("Expected writes to gpu-only memory to fail")
	}
	if _, err := b.Bytes(); err == nil {
		t.Errorf("Expected reads of gpu-only memory to fail")
	}
	h := mem.allocate(16, resource.UsageTransferSrc, resource.MemoryCPUToGPU)
	if err := h.Update(make([]byte, 17), 0); err == nil {
		t.Errorf("Expected an overrunning write to fail")
	}
}

func TestExecutorCopiesAndCompletes(t *testing.T) {
	dev := NewDevice(FullFeatures())
	src, _ := dev.Pool.RequestBuffer(4, resource.UsageTransferSrc, resource.MemoryCPUToGPU)
	dst, _ := dev.Pool.RequestBuffer(4, resource.UsageTransferDst, resource.MemoryGPUOnly)
	_ = src.Update([]byte{1, 2, 3, 4}, 0)

	completed := false
	err := dev.Executor.OneTimeCommand(resource.QueueTransfer, func(cmd resource.CommandBuffer) {
		cmd.CopyBuffer(src, dst, 4)
	}, func() { completed = true })
	if err != nil || !completed {
		t.Fatalf("Expected a completed copy, got %v %v", completed, err)
	}
	b, _ := emulated(dst)
	if got := b.Contents(); got[0] != 1 || got[3] != 4 {
		t.Errorf("Expected copied bytes, got %v", got)
	}
	if dev.Executor.Submissions(resource.QueueTransfer) != 1 {
		t.Errorf("Expected one transfer submission")
	}

	dev.Executor.FailNext(errors.New("device lost"))
	completed = false
	err = dev.Executor.OneTimeCommand(resource.QueueTransfer, func(cmd resource.CommandBuffer) {}, func() { completed = true })
	if err == nil || completed {
		t.Errorf("Expected a failed submission without completion, got %v %v", completed, err)
	}
	err = dev.Executor.OneTimeCommand(resource.QueueTransfer, func(cmd resource.CommandBuffer) {
		cmd.CopyBuffer(src, dst, 8)
	}, nil)
	if err == nil {
		t.Errorf("Expected an overrunning copy to fail")
	}
}

func TestDrawRecorderExpandsCommands(t *testing.T) {
	mem := NewMemory()
	b := mem.allocate(40, resource.UsageIndirect, resource.MemoryGPUOnly)
	// two commands: the first hidden, the second visible as model 7
	raw := []byte{
		36, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 3, 0, 0, 0,
		6, 0, 0, 0, 1, 0, 0, 0, 36, 0, 0, 0, 8, 0, 0, 0, 7, 0, 0, 0,
	}
	_ = b.write(raw, 0)
	var rec DrawRecorder
	rec.DrawIndexedIndirect(b, 0, 2, 20)
	draws, err := rec.Expand()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(draws) != 1 || draws[0].Model != 7 || draws[0].FirstIndex != 36 || draws[0].VertexOffset != 8 {
		t.Errorf("Expected one draw of model 7, got %+v", draws)
	}
	rec.Reset()
	rec.DrawIndexedIndirect(b, 40, 1, 20)
	if _, err := rec.Expand(); err == nil {
		t.Errorf("Expected reading past the buffer to fail")
	}
}
