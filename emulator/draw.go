package emulator

import (
	"GPU_scene_core/culling"
	"GPU_scene_core/resource"

	"github.com/cockroachdb/errors"
)

// DrawCall is one recorded vkCmdDrawIndexedIndirect.
type DrawCall struct {
	Buffer    resource.Buffer
	Offset    uint64
	DrawCount uint32
	Stride    uint32
}

// Draw is a draw that produces instances once the indirect commands are resolved.
type Draw struct {
	Model        uint32
	IndexCount   uint32
	FirstIndex   uint32
	VertexOffset int32
	Instances    uint32
}

type DrawRecorder struct {
	Calls []DrawCall
}

func (r *DrawRecorder) DrawIndexedIndirect(buffer resource.Buffer, offset uint64, drawCount uint32, stride uint32) {
	r.Calls = append(r.Calls, DrawCall{Buffer: buffer, Offset: offset, DrawCount: drawCount, Stride: stride})
}

func (r *DrawRecorder) Reset() {
	r.Calls = nil
}

// Expand reads the indirect commands of every recorded call and returns the draws with instances,
// in submission order.
func (r *DrawRecorder) Expand() ([]Draw, error) {
	var draws []Draw
	for i, call := range r.Calls {
		b, err := emulated(call.Buffer)
		if err != nil {
			return nil, errors.Wrapf(err, "draw call %d", i)
		}
		for k := uint32(0); k < call.DrawCount; k++ {
			raw, err := b.read(call.Offset+uint64(k)*uint64(call.Stride), culling.CommandSize)
			if err != nil {
				return nil, errors.Wrapf(err, "draw call %d command %d", i, k)
			}
			cmds, err := culling.DecodeCommands(raw)
			if err != nil {
				return nil, err
			}
			c := cmds[0]
			if c.InstanceCount == 0 {
				continue
			}
			draws = append(draws, Draw{
				Model:        c.FirstInstance,
				IndexCount:   c.IndexCount,
				FirstIndex:   c.FirstIndex,
				VertexOffset: c.VertexOffset,
				Instances:    c.InstanceCount,
			})
		}
	}
	return draws, nil
}
