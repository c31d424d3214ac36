package renderer

import (
	"GPU_scene_core/culling"
	"GPU_scene_core/resource"
	"log"
)

var (
	_ resource.Allocator        = (*Allocator)(nil)
	_ resource.CommandExecutor  = (*Executor)(nil)
	_ culling.ComputeDispatcher = (*CullPipelines)(nil)
	_ culling.DrawRecorder      = (*DrawRecorder)(nil)
)

// Backend is the Vulkan implementation of the culling collaborators.
type Backend struct {
	Context   *DeviceContext
	Allocator *Allocator
	Pool      *resource.Pool
	Executor  *Executor
	Cull      *CullPipelines
}

func NewBackend(cfg Config) (*Backend, error) {
	dc, err := NewDeviceContext(cfg)
	if err != nil {
		return nil, err
	}
	exec, err := NewExecutor(dc)
	if err != nil {
		dc.Destroy()
		return nil, err
	}
	cull, err := NewCullPipelines(dc, cfg.ShaderDir)
	if err != nil {
		exec.Destroy()
		dc.Destroy()
		return nil, err
	}
	alloc := NewAllocator(dc)
	b := &Backend{
		Context:   dc,
		Allocator: alloc,
		Pool:      resource.NewPool("vulkan", alloc),
		Executor:  exec,
		Cull:      cull,
	}
	log.Printf("Created vulkan backend on %s", dc.DeviceName())
	return b, nil
}

func (b *Backend) CullContext() culling.Context {
	return culling.Context{Pool: b.Pool, Commands: b.Executor, Dispatcher: b.Cull}
}

// Destroy waits for the device and tears down in reverse creation order. Buffers still handed out by the pool
// are freed as well.
func (b *Backend) Destroy() {
	b.Pool.Destroy()
	b.Cull.Destroy()
	b.Executor.Destroy()
	b.Context.Destroy()
}
