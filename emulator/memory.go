package emulator

import (
	"GPU_scene_core/resource"
	"log"
	"slices"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

const (
	addressBase      = 0x1_0000_0000
	addressAlignment = 256
)

// Memory is a fake 64 bit device address space backed by host memory.
type Memory struct {
	mu      sync.Mutex
	next    uint64
	buffers []*Buffer // sorted by base address
}

func NewMemory() *Memory {
	return &Memory{next: addressBase}
}

func alignUp(v uint64, a uint64) uint64 {
	return (v + a - 1) / a * a
}

func (m *Memory) allocate(size uint64, usage resource.Usage, memory resource.MemoryUsage) *Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := &Buffer{mem: m, base: m.next, data: make([]byte, size), usage: usage, memory: memory}
	m.next = alignUp(m.next+size, addressAlignment)
	m.buffers = append(m.buffers, b)
	return b
}

func (m *Memory) free(b *Buffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(b.base)
	if i < 0 || m.buffers[i] != b {
		log.Panicf("Freeing buffer at 0x%x which is not alive", b.base)
	}
	m.buffers = slices.Delete(m.buffers, i, i+1)
	b.freed = true
}

// index finds the buffer containing addr, -1 if none does. Callers hold mu.
func (m *Memory) index(addr uint64) int {
	i := sort.Search(len(m.buffers), func(i int) bool { return m.buffers[i].base > addr }) - 1
	if i < 0 || addr >= m.buffers[i].base+uint64(len(m.buffers[i].data)) {
		return -1
	}
	return i
}

// Resolve maps a device address to the live buffer containing it and the offset inside that buffer.
func (m *Memory) Resolve(addr uint64) (*Buffer, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(addr)
	if addr == 0 || i < 0 {
		return nil, 0, errors.Newf("device address 0x%x does not point into a live buffer", addr)
	}
	return m.buffers[i], addr - m.buffers[i].base, nil
}

// Read copies n bytes starting at the device address addr.
func (m *Memory) Read(addr uint64, n uint64) ([]byte, error) {
	b, off, err := m.Resolve(addr)
	if err != nil {
		return nil, err
	}
	if off+n > b.Size() {
		return nil, errors.Newf("reading %d bytes at 0x%x overruns a buffer of %d bytes", n, addr, b.Size())
	}
	return append([]byte(nil), b.data[off:off+n]...), nil
}

func (m *Memory) LiveBuffers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffers)
}

// Buffer is host memory living at a fixed device address.
type Buffer struct {
	mem    *Memory
	base   uint64
	data   []byte
	usage  resource.Usage
	memory resource.MemoryUsage
	freed  bool
}

func (b *Buffer) Size() uint64 {
	return uint64(len(b.data))
}

func (b *Buffer) Usage() resource.Usage {
	return b.usage
}

func (b *Buffer) Memory() resource.MemoryUsage {
	return b.memory
}

// DeviceAddress is zero unless the buffer was created for shader device address use.
func (b *Buffer) DeviceAddress() uint64 {
	if !b.usage.Has(resource.UsageShaderDeviceAddress) {
		return 0
	}
	return b.base
}

func (b *Buffer) Update(data []byte, offset uint64) error {
	if !b.memory.HostVisible() {
		return errors.Newf("cannot map %s buffer at 0x%x", b.memory, b.base)
	}
	return b.write(data, offset)
}

func (b *Buffer) Bytes() ([]byte, error) {
	if !b.memory.HostVisible() {
		return nil, errors.Newf("cannot map %s buffer at 0x%x", b.memory, b.base)
	}
	return append([]byte(nil), b.data...), nil
}

func (b *Buffer) write(data []byte, offset uint64) error {
	if b.freed {
		return errors.Newf("buffer at 0x%x is used after free", b.base)
	}
	if offset+uint64(len(data)) > b.Size() {
		return errors.Newf("writing %d bytes at offset %d overruns a buffer of %d bytes", len(data), offset, b.Size())
	}
	copy(b.data[offset:], data)
	return nil
}

func (b *Buffer) read(offset uint64, n uint64) ([]byte, error) {
	if b.freed {
		return nil, errors.Newf("buffer at 0x%x is used after free", b.base)
	}
	if offset+n > b.Size() {
		return nil, errors.Newf("reading %d bytes at offset %d overruns a buffer of %d bytes", n, offset, b.Size())
	}
	return b.data[offset : offset+n], nil
}

// Contents returns the device side bytes regardless of the memory type, for inspection in tests.
func (b *Buffer) Contents() []byte {
	return append([]byte(nil), b.data...)
}

// emulated unwraps a pooled buffer into the emulator buffer behind it.
func emulated(buf resource.Buffer) (*Buffer, error) {
	if buf == nil {
		return nil, errors.New("no buffer bound")
	}
	b, ok := resource.Unwrap(buf).(*Buffer)
	if !ok {
		return nil, errors.Newf("buffer of type %T does not belong to the emulator", buf)
	}
	return b, nil
}
