package culling

import (
	"GPU_scene_core/model"
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// DrawIndexedIndirectCommand mirrors VkDrawIndexedIndirectCommand.
type DrawIndexedIndirectCommand struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	VertexOffset  int32
	FirstInstance uint32
}

// CommandSize is the stride of the indirect command buffer.
const CommandSize = 20

// NewCommand builds the draw of model index from its record. Visibility is expressed through the
// instance count so every model keeps its slot.
func NewCommand(info model.Information, index uint32, visible bool) DrawIndexedIndirectCommand {
	cmd := DrawIndexedIndirectCommand{
		IndexCount:    info.IndexCount,
		FirstIndex:    info.FirstIndex,
		VertexOffset:  info.VertexOffset,
		FirstInstance: index,
	}
	if visible {
		cmd.InstanceCount = 1
	}
	return cmd
}

func EncodeCommands(cmds []DrawIndexedIndirectCommand) []byte {
	out := make([]byte, 0, len(cmds)*CommandSize)
	for _, c := range cmds {
		out = binary.LittleEndian.AppendUint32(out, c.IndexCount)
		out = binary.LittleEndian.AppendUint32(out, c.InstanceCount)
		out = binary.LittleEndian.AppendUint32(out, c.FirstIndex)
		out = binary.LittleEndian.AppendUint32(out, uint32(c.VertexOffset))
		out = binary.LittleEndian.AppendUint32(out, c.FirstInstance)
	}
	return out
}

func DecodeCommands(data []byte) ([]DrawIndexedIndirectCommand, error) {
	if len(data)%CommandSize != 0 {
		return nil, errors.Newf("indirect data of %d bytes is not a multiple of %d", len(data), CommandSize)
	}
	out := make([]DrawIndexedIndirectCommand, len(data)/CommandSize)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, out); err != nil {
		return nil, errors.Wrap(err, "decoding indirect commands")
	}
	return out, nil
}

// VisibleCount sums the instance counts of cmds.
func VisibleCount(cmds []DrawIndexedIndirectCommand) int {
	n := 0
	for _, c := range cmds {
		n += int(c.InstanceCount)
	}
	return n
}
