package culling

import (
	"GPU_scene_core/resource"
	"strings"

	"github.com/cockroachdb/errors"
)

type CullMode int

const (
	CullCPU CullMode = iota
	CullGPU
	// CullGPUDeviceAddress writes the commands through a buffer device address table.
	CullGPUDeviceAddress
)

func (m CullMode) String() string {
	switch m {
	case CullCPU:
		return "cpu"
	case CullGPU:
		return "gpu"
	case CullGPUDeviceAddress:
		return "address"
	}
	return "unknown"
}

func ParseCullMode(s string) (CullMode, error) {
	switch strings.ToLower(s) {
	case "cpu":
		return CullCPU, nil
	case "gpu":
		return CullGPU, nil
	case "address", "device-address":
		return CullGPUDeviceAddress, nil
	}
	return CullCPU, errors.Newf("unknown cull mode %q", s)
}

// Features are the device capabilities the culler adapts to.
type Features struct {
	MultiDrawIndirect         bool
	DrawIndirectFirstInstance bool
	BufferDeviceAddress       bool
}

// WorkgroupSize is the local size of the cull compute shaders.
const WorkgroupSize = 64

// GroupCount is the number of workgroups covering n models, at least one.
func GroupCount(n int) uint32 {
	if n <= 0 {
		return 1
	}
	return uint32(1 + (n-1)/WorkgroupSize)
}

// CullDispatch carries everything a cull dispatch binds. AddressTable is only set in device address mode,
// Commands only in the classic mode.
type CullDispatch struct {
	Mode         CullMode
	Groups       uint32
	ModelCount   uint32
	Models       resource.Buffer
	Scene        resource.Buffer
	Commands     resource.Buffer
	AddressTable resource.Buffer
}

// ComputeDispatcher records the cull compute pipelines of a backend.
type ComputeDispatcher interface {
	Features() Features
	CmdDispatchCull(cmd resource.CommandBuffer, d CullDispatch)
}

// DrawRecorder records indirect draws.
type DrawRecorder interface {
	DrawIndexedIndirect(buffer resource.Buffer, offset uint64, drawCount uint32, stride uint32)
}
