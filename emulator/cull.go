package emulator

import (
	"GPU_scene_core/culling"
	"GPU_scene_core/model"
	"GPU_scene_core/resource"
	"encoding/binary"
	vm "local/vector_math"
	"sync"

	"github.com/cockroachdb/errors"
)

// Dispatcher runs the cull kernel on the host, one invocation per model in workgroups of
// culling.WorkgroupSize, reading and writing the bound emulator buffers.
type Dispatcher struct {
	mem      *Memory
	features culling.Features

	mu          sync.Mutex
	dispatches  map[culling.CullMode]int
	invocations int
}

func NewDispatcher(mem *Memory, features culling.Features) *Dispatcher {
	return &Dispatcher{mem: mem, features: features, dispatches: make(map[culling.CullMode]int)}
}

func (d *Dispatcher) Features() culling.Features {
	return d.features
}

func (d *Dispatcher) CmdDispatchCull(cmd resource.CommandBuffer, dispatch culling.CullDispatch) {
	commandBuffer(cmd).Record(func() error {
		return d.run(dispatch)
	})
}

// target resolves where the commands are written: the bound command buffer, or whatever the first
// entry of the device address table points at.
func (d *Dispatcher) target(dispatch culling.CullDispatch) (*Buffer, uint64, error) {
	if dispatch.Mode != culling.CullGPUDeviceAddress {
		b, err := emulated(dispatch.Commands)
		return b, 0, errors.Wrap(err, "command buffer binding")
	}
	if !d.features.BufferDeviceAddress {
		return nil, 0, errors.New("device address cull on a device without buffer device addresses")
	}
	table, err := emulated(dispatch.AddressTable)
	if err != nil {
		return nil, 0, errors.Wrap(err, "address table binding")
	}
	raw, err := table.read(0, 8)
	if err != nil {
		return nil, 0, err
	}
	return d.mem.Resolve(binary.LittleEndian.Uint64(raw))
}

func (d *Dispatcher) run(dispatch culling.CullDispatch) error {
	sceneBuf, err := emulated(dispatch.Scene)
	if err != nil {
		return errors.Wrap(err, "scene uniform binding")
	}
	raw, err := sceneBuf.read(0, model.SceneUniformSize)
	if err != nil {
		return err
	}
	scene, err := model.DecodeSceneUniform(raw)
	if err != nil {
		return err
	}
	modelBuf, err := emulated(dispatch.Models)
	if err != nil {
		return errors.Wrap(err, "model information binding")
	}
	models, err := model.DecodeInformation(modelBuf.data[:len(modelBuf.data)/model.InformationSize*model.InformationSize])
	if err != nil {
		return err
	}
	if int(scene.ModelCount) > len(models) {
		return errors.Newf("scene announces %d models, the model buffer holds %d", scene.ModelCount, len(models))
	}
	out, base, err := d.target(dispatch)
	if err != nil {
		return err
	}

	frustum := vm.NewFrustum(scene.ProjView)
	invocations := 0
	for g := uint32(0); g < dispatch.Groups; g++ {
		for l := uint32(0); l < culling.WorkgroupSize; l++ {
			idx := g*culling.WorkgroupSize + l
			invocations++
			if idx >= scene.ModelCount {
				continue
			}
			info := models[idx]
			cmd := culling.NewCommand(info, idx, frustum.SphereVisible(info.Center, info.Radius, scene.PlaneMask))
			if err := out.write(culling.EncodeCommands([]culling.DrawIndexedIndirectCommand{cmd}), base+uint64(idx)*culling.CommandSize); err != nil {
				return errors.Wrapf(err, "invocation %d", idx)
			}
		}
	}

	d.mu.Lock()
	d.dispatches[dispatch.Mode]++
	d.invocations += invocations
	d.mu.Unlock()
	return nil
}

// Dispatches counts the executed dispatches of mode.
func (d *Dispatcher) Dispatches(mode culling.CullMode) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dispatches[mode]
}

func (d *Dispatcher) Invocations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.invocations
}
