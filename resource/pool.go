package resource

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	units "github.com/docker/go-units"
)

// BufferPool hands out reference counted buffers. It is the sole owner of the physical allocations,
// holders give them back by releasing their last handle.
type BufferPool interface {
	RequestBuffer(size uint64, usage Usage, memory MemoryUsage) (*Handle, error)
	// RequestScratchBuffer is RequestBuffer with ScratchUsage and MemoryGPUOnly.
	RequestScratchBuffer(size uint64) (*Handle, error)
}

// Pool is the BufferPool used by the backends, it keeps track of what is alive so leaks show up
// in Stats and at Destroy.
type Pool struct {
	name  string
	alloc Allocator

	mu    sync.Mutex
	live  map[Buffer]struct{}
	bytes uint64
	peak  uint64
	total int
}

func NewPool(name string, alloc Allocator) *Pool {
	return &Pool{
		name:  name,
		alloc: alloc,
		live:  make(map[Buffer]struct{}),
	}
}

func (p *Pool) RequestBuffer(size uint64, usage Usage, memory MemoryUsage) (*Handle, error) {
	if size == 0 {
		return nil, errors.Newf("pool %s: refusing zero sized %s buffer", p.name, usage)
	}
	b, err := p.alloc.Allocate(size, usage, memory)
	if err != nil {
		return nil, errors.Wrapf(err, "pool %s: allocating %s %s buffer", p.name, units.BytesSize(float64(size)), memory)
	}
	p.mu.Lock()
	p.live[b] = struct{}{}
	p.bytes += b.Size()
	if p.bytes > p.peak {
		p.peak = p.bytes
	}
	p.total++
	p.mu.Unlock()
	return NewHandle(b, p.free), nil
}

func (p *Pool) RequestScratchBuffer(size uint64) (*Handle, error) {
	return p.RequestBuffer(size, ScratchUsage, MemoryGPUOnly)
}

func (p *Pool) free(b Buffer) {
	p.mu.Lock()
	if _, ok := p.live[b]; !ok {
		p.mu.Unlock()
		log.Panicf("Pool %s: freeing a buffer it does not own", p.name)
	}
	delete(p.live, b)
	p.bytes -= b.Size()
	p.mu.Unlock()
	p.alloc.Free(b)
}

type PoolStats struct {
	LiveBuffers int
	LiveBytes   uint64
	PeakBytes   uint64
	Requests    int
}

func (s PoolStats) String() string {
	return fmt.Sprintf("%s live in %d buffers, peak %s",
		units.BytesSize(float64(s.LiveBytes)), s.LiveBuffers, units.BytesSize(float64(s.PeakBytes)))
}

func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		LiveBuffers: len(p.live),
		LiveBytes:   p.bytes,
		PeakBytes:   p.peak,
		Requests:    p.total,
	}
}

// Destroy frees whatever is still alive and logs it, handles still held afterwards are dangling.
func (p *Pool) Destroy() {
	p.mu.Lock()
	leaked := make([]Buffer, 0, len(p.live))
	for b := range p.live {
		leaked = append(leaked, b)
	}
	p.live = make(map[Buffer]struct{})
	p.bytes = 0
	p.mu.Unlock()
	if len(leaked) > 0 {
		log.Printf("Pool %s: freeing %d buffers still referenced at destroy", p.name, len(leaked))
	}
	for _, b := range leaked {
		p.alloc.Free(b)
	}
}
