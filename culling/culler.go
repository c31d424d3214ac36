package culling

import (
	"GPU_scene_core/model"
	"GPU_scene_core/resource"
	"encoding/binary"
	"fmt"
	vm "local/vector_math"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Config selects the culling behaviour of an IndirectDrawCuller.
type Config struct {
	// TestAllPlanes adds the top and bottom planes to the default left, right, near and far set.
	TestAllPlanes bool
	// MultiDraw issues one draw for all models when the device supports it.
	MultiDraw bool
	// Workers > 1 splits the CPU cull into that many concurrently culled ranges.
	Workers int
	// Queue the culler submits its transfers and dispatches to.
	Queue resource.QueueType
}

func DefaultConfig() Config {
	return Config{MultiDraw: true, Workers: 1, Queue: resource.QueueCompute}
}

type Context struct {
	Pool       resource.BufferPool
	Commands   resource.CommandExecutor
	Dispatcher ComputeDispatcher
}

// IndirectDrawCuller owns the indirect command buffer of a static set of models and rewrites it every
// frame, on the CPU or with a compute shader, so hidden models are drawn with zero instances.
type IndirectDrawCuller struct {
	ctx      Context
	cfg      Config
	features Features
	mask     vm.PlaneMask

	models   []model.Information
	commands []DrawIndexedIndirectCommand

	indirect     *resource.Handle
	staging      *resource.Handle
	modelBuffer  *resource.Handle
	sceneBuffer  *resource.Handle
	addressTable *resource.Handle

	proj vm.Mat
	view vm.Mat

	multiDraw bool
	frozen    bool
	inFlight  *semaphore.Weighted
	degraded  sync.Once
}

func NewIndirectDrawCuller(models []model.Information, ctx Context, cfg Config) (*IndirectDrawCuller, error) {
	if ctx.Pool == nil || ctx.Commands == nil || ctx.Dispatcher == nil {
		return nil, errors.New("culler needs a buffer pool, a command executor and a compute dispatcher")
	}
	if len(models) == 0 {
		return nil, errors.New("culler needs at least one model")
	}
	c := &IndirectDrawCuller{
		ctx:       ctx,
		cfg:       cfg,
		features:  ctx.Dispatcher.Features(),
		mask:      vm.SidePlanes,
		models:    append([]model.Information(nil), models...),
		proj:      vm.NewUnitMat(4),
		view:      vm.NewUnitMat(4),
		multiDraw: cfg.MultiDraw,
		inFlight:  semaphore.NewWeighted(1),
	}
	if cfg.TestAllPlanes {
		c.mask = vm.AllPlanes
	}
	if !c.features.DrawIndirectFirstInstance {
		log.Printf("Device lacks drawIndirectFirstInstance, model lookups by instance index will not work")
	}

	c.commands = make([]DrawIndexedIndirectCommand, len(models))
	for i, info := range c.models {
		c.commands[i] = NewCommand(info, uint32(i), true)
	}

	if err := c.allocate(); err != nil {
		c.Destroy()
		return nil, err
	}
	log.Printf("Created indirect draw culler for %d models, features %+v", len(models), c.features)
	return c, nil
}

func (c *IndirectDrawCuller) allocate() error {
	var err error
	size := uint64(len(c.models)) * CommandSize

	usage := resource.UsageTransferSrc | resource.UsageStorage | resource.UsageIndirect | resource.UsageTransferDst
	if c.features.BufferDeviceAddress {
		usage |= resource.UsageShaderDeviceAddress
	}
	if c.indirect, err = c.ctx.Pool.RequestBuffer(size, usage, resource.MemoryGPUOnly); err != nil {
		return errors.Wrap(err, "indirect command buffer")
	}
	if c.staging, err = c.ctx.Pool.RequestBuffer(size, resource.UsageTransferSrc|resource.UsageTransferDst, resource.MemoryCPUToGPU); err != nil {
		return errors.Wrap(err, "indirect staging buffer")
	}
	if err = c.uploadCommands(); err != nil {
		return err
	}

	info := model.EncodeInformation(c.models)
	if c.modelBuffer, err = c.ctx.Pool.RequestBuffer(uint64(len(info)),
		resource.UsageStorage|resource.UsageVertex|resource.UsageTransferDst, resource.MemoryGPUOnly); err != nil {
		return errors.Wrap(err, "model information buffer")
	}
	if err = resource.Upload(c.ctx.Pool, c.ctx.Commands, c.cfg.Queue, c.modelBuffer, info); err != nil {
		return errors.Wrap(err, "uploading model information")
	}

	if c.sceneBuffer, err = c.ctx.Pool.RequestBuffer(model.SceneUniformSize, resource.UsageUniform, resource.MemoryCPUToGPU); err != nil {
		return errors.Wrap(err, "scene uniform buffer")
	}

	if c.features.BufferDeviceAddress {
		if c.addressTable, err = c.ctx.Pool.RequestBuffer(8,
			resource.UsageStorage|resource.UsageShaderDeviceAddress|resource.UsageTransferDst, resource.MemoryGPUOnly); err != nil {
			return errors.Wrap(err, "device address table")
		}
		table := binary.LittleEndian.AppendUint64(nil, c.indirect.DeviceAddress())
		if err = resource.Upload(c.ctx.Pool, c.ctx.Commands, c.cfg.Queue, c.addressTable, table); err != nil {
			return errors.Wrap(err, "uploading device address table")
		}
	}
	return nil
}

func (c *IndirectDrawCuller) acquire(op string) {
	if !c.inFlight.TryAcquire(1) {
		log.Panicf("%s while another cull of the same culler is in flight", op)
	}
}

func (c *IndirectDrawCuller) release() {
	c.inFlight.Release(1)
}

func (c *IndirectDrawCuller) uploadCommands() error {
	data := EncodeCommands(c.commands)
	if err := c.staging.Update(data, 0); err != nil {
		return errors.Wrap(err, "writing indirect staging buffer")
	}
	return c.ctx.Commands.OneTimeCommand(c.cfg.Queue, func(cmd resource.CommandBuffer) {
		cmd.CopyBuffer(c.staging, c.indirect, uint64(len(data)))
	}, nil)
}

func (c *IndirectDrawCuller) updateScene(viewProjection vm.Mat) error {
	u := model.SceneUniform{
		Proj:       c.proj,
		View:       c.view,
		ProjView:   viewProjection,
		ModelCount: uint32(len(c.models)),
		PlaneMask:  c.mask,
	}
	return c.sceneBuffer.Update(u.Bytes(), 0)
}

// SetCamera stores the projection and view written to the scene uniform next to the cull matrix.
func (c *IndirectDrawCuller) SetCamera(proj vm.Mat, view vm.Mat) {
	c.proj, c.view = proj, view
}

func (c *IndirectDrawCuller) cullRange(f *vm.Frustum, from int, to int) {
	for i := from; i < to; i++ {
		info := c.models[i]
		c.commands[i] = NewCommand(info, uint32(i), f.SphereVisible(info.Center, info.Radius, c.mask))
	}
}

// CPUCull tests every model's bounding sphere against the frustum of viewProjection and uploads the
// resulting commands.
func (c *IndirectDrawCuller) CPUCull(viewProjection vm.Mat) error {
	c.acquire("CPU cull")
	defer c.release()

	if err := c.updateScene(viewProjection); err != nil {
		return err
	}
	f := vm.NewFrustum(viewProjection)
	if c.cfg.Workers <= 1 {
		c.cullRange(&f, 0, len(c.models))
		return c.uploadCommands()
	}
	chunk := (len(c.models) + c.cfg.Workers - 1) / c.cfg.Workers
	var g errgroup.Group
	for from := 0; from < len(c.models); from += chunk {
		lo, hi := from, min(from+chunk, len(c.models))
		g.Go(func() error {
			c.cullRange(&f, lo, hi)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "parallel CPU cull")
	}
	return c.uploadCommands()
}

// GPUCull lets the cull compute shader rewrite the indirect buffer. Device address mode falls back to
// the classic pipeline on devices without buffer device addresses.
func (c *IndirectDrawCuller) GPUCull(viewProjection vm.Mat, mode CullMode) error {
	if mode == CullCPU {
		log.Panicf("GPU cull requested with the CPU cull mode")
	}
	c.acquire("GPU cull")
	defer c.release()

	mode = c.effectiveMode(mode)
	if err := c.updateScene(viewProjection); err != nil {
		return err
	}
	d := CullDispatch{
		Mode:       mode,
		Groups:     GroupCount(len(c.models)),
		ModelCount: uint32(len(c.models)),
		Models:     c.modelBuffer,
		Scene:      c.sceneBuffer,
	}
	if mode == CullGPUDeviceAddress {
		d.AddressTable = c.addressTable
	} else {
		d.Commands = c.indirect
	}
	err := c.ctx.Commands.OneTimeCommand(c.cfg.Queue, func(cmd resource.CommandBuffer) {
		c.ctx.Dispatcher.CmdDispatchCull(cmd, d)
	}, nil)
	return errors.Wrapf(err, "dispatching %s cull", mode)
}

func (c *IndirectDrawCuller) effectiveMode(mode CullMode) CullMode {
	if mode == CullGPUDeviceAddress && !c.features.BufferDeviceAddress {
		c.degraded.Do(func() {
			log.Printf("Buffer device address not supported, culling with the classic GPU pipeline")
		})
		return CullGPU
	}
	return mode
}

// Cull runs the cull of the given mode unless culling is frozen.
func (c *IndirectDrawCuller) Cull(viewProjection vm.Mat, mode CullMode) error {
	if c.frozen {
		return nil
	}
	if mode == CullCPU {
		return c.CPUCull(viewProjection)
	}
	return c.GPUCull(viewProjection, mode)
}

// ReadBack copies the device side commands into the staging buffer and returns them.
func (c *IndirectDrawCuller) ReadBack() ([]DrawIndexedIndirectCommand, error) {
	c.acquire("Read back")
	defer c.release()

	size := uint64(len(c.models)) * CommandSize
	err := c.ctx.Commands.OneTimeCommand(c.cfg.Queue, func(cmd resource.CommandBuffer) {
		cmd.CopyBuffer(c.indirect, c.staging, size)
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "copying indirect commands back")
	}
	data, err := c.staging.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "reading indirect staging buffer")
	}
	cmds, err := DecodeCommands(data[:size])
	if err != nil {
		return nil, err
	}
	c.commands = cmds
	return append([]DrawIndexedIndirectCommand(nil), cmds...), nil
}

// Commands is the host copy of the commands as of the last CPU cull or read back.
func (c *IndirectDrawCuller) Commands() []DrawIndexedIndirectCommand {
	return append([]DrawIndexedIndirectCommand(nil), c.commands...)
}

// VisibleCount sums the instance counts of the host copy.
func (c *IndirectDrawCuller) VisibleCount() int {
	return VisibleCount(c.commands)
}

func (c *IndirectDrawCuller) Statistics() string {
	return fmt.Sprintf("Instances: %d / %d", c.VisibleCount(), len(c.models))
}

// RecordDraws records the draws of every model slot into rec.
func (c *IndirectDrawCuller) RecordDraws(rec DrawRecorder) {
	n := uint32(len(c.models))
	if c.MultiDrawActive() {
		rec.DrawIndexedIndirect(c.indirect, 0, n, CommandSize)
		return
	}
	for j := uint32(0); j < n; j++ {
		rec.DrawIndexedIndirect(c.indirect, uint64(j)*CommandSize, 1, CommandSize)
	}
}

// SetMultiDraw toggles multi draw and reports whether the recorded draws have to be recorded again.
func (c *IndirectDrawCuller) SetMultiDraw(enabled bool) bool {
	was := c.MultiDrawActive()
	c.multiDraw = enabled
	return was != c.MultiDrawActive()
}

func (c *IndirectDrawCuller) MultiDrawActive() bool {
	return c.multiDraw && c.features.MultiDrawIndirect
}

func (c *IndirectDrawCuller) SetFrozen(frozen bool) {
	c.frozen = frozen
}

func (c *IndirectDrawCuller) Frozen() bool {
	return c.frozen
}

func (c *IndirectDrawCuller) Features() Features {
	return c.features
}

func (c *IndirectDrawCuller) PlaneMask() vm.PlaneMask {
	return c.mask
}

func (c *IndirectDrawCuller) ModelCount() int {
	return len(c.models)
}

// IndirectBuffer is the buffer the draws read their commands from.
func (c *IndirectDrawCuller) IndirectBuffer() resource.Buffer {
	return c.indirect
}

// ModelBuffer holds the packed model records, bound as instance data by the draw pipeline.
func (c *IndirectDrawCuller) ModelBuffer() resource.Buffer {
	return c.modelBuffer
}

func (c *IndirectDrawCuller) SceneBuffer() resource.Buffer {
	return c.sceneBuffer
}

func (c *IndirectDrawCuller) Destroy() {
	c.indirect = resource.ReleaseHandle(c.indirect)
	c.staging = resource.ReleaseHandle(c.staging)
	c.modelBuffer = resource.ReleaseHandle(c.modelBuffer)
	c.sceneBuffer = resource.ReleaseHandle(c.sceneBuffer)
	c.addressTable = resource.ReleaseHandle(c.addressTable)
}
