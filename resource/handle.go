package resource

import (
	"log"
	"sync/atomic"
)

// Handle is shared ownership of a pooled Buffer. The last Release hands the buffer back through the
// release hook. Handles are passed around as pointers, Retain returns the same pointer.
type Handle struct {
	Buffer
	refs    atomic.Int32
	release func(Buffer)
}

// NewHandle wraps b with a reference count of one.
func NewHandle(b Buffer, release func(Buffer)) *Handle {
	h := &Handle{Buffer: b, release: release}
	h.refs.Store(1)
	return h
}

func (h *Handle) Retain() *Handle {
	if h.refs.Add(1) <= 1 {
		log.Panicf("Retained a buffer handle that was already released")
	}
	return h
}

func (h *Handle) Release() {
	n := h.refs.Add(-1)
	switch {
	case n == 0:
		if h.release != nil {
			h.release(h.Buffer)
		}
	case n < 0:
		log.Panicf("Buffer handle released more often than retained")
	}
}

// Refs is the current reference count.
func (h *Handle) Refs() int32 {
	return h.refs.Load()
}

// ReleaseHandle releases h if it is set and returns nil, for the common "drop and forget" pattern.
func ReleaseHandle(h *Handle) *Handle {
	if h != nil {
		h.Release()
	}
	return nil
}

// Unwrap strips Handle wrappers so backends can type assert their own buffer type.
func Unwrap(b Buffer) Buffer {
	for {
		h, ok := b.(*Handle)
		if !ok {
			return b
		}
		b = h.Buffer
	}
}
