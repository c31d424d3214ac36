package accel

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

// InstanceSize is the size of one VkAccelerationStructureInstanceKHR record.
const InstanceSize = 64

// Instance is one entry of a top-level instance array.
type Instance struct {
	// Transform is a row-major 3x4 matrix.
	Transform           [3][4]float32
	CustomIndex         uint32 // 24 bits
	Mask                uint8
	ShaderBindingOffset uint32 // 24 bits
	Flags               uint8
	StructureReference  uint64
}

// IdentityInstance references a bottom-level structure address with the identity transform.
func IdentityInstance(reference uint64, customIndex uint32) Instance {
	return Instance{
		Transform:          [3][4]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}},
		CustomIndex:        customIndex,
		Mask:               0xFF,
		StructureReference: reference,
	}
}

func EncodeInstances(instances []Instance) []byte {
	out := make([]byte, 0, len(instances)*InstanceSize)
	for _, in := range instances {
		for _, row := range in.Transform {
			for _, v := range row {
				out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
			}
		}
		out = binary.LittleEndian.AppendUint32(out, in.CustomIndex&0xFFFFFF|uint32(in.Mask)<<24)
		out = binary.LittleEndian.AppendUint32(out, in.ShaderBindingOffset&0xFFFFFF|uint32(in.Flags)<<24)
		out = binary.LittleEndian.AppendUint64(out, in.StructureReference)
	}
	return out
}

func DecodeInstances(data []byte) ([]Instance, error) {
	if len(data)%InstanceSize != 0 {
		return nil, errors.Newf("instance data of %d bytes is not a multiple of %d", len(data), InstanceSize)
	}
	type record struct {
		Transform [12]float32
		Index     uint32
		Offset    uint32
		Reference uint64
	}
	recs := make([]record, len(data)/InstanceSize)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, recs); err != nil {
		return nil, errors.Wrap(err, "decoding instances")
	}
	out := make([]Instance, len(recs))
	for i, r := range recs {
		for row := 0; row < 3; row++ {
			copy(out[i].Transform[row][:], r.Transform[row*4:row*4+4])
		}
		out[i].CustomIndex = r.Index & 0xFFFFFF
		out[i].Mask = uint8(r.Index >> 24)
		out[i].ShaderBindingOffset = r.Offset & 0xFFFFFF
		out[i].Flags = uint8(r.Offset >> 24)
		out[i].StructureReference = r.Reference
	}
	return out, nil
}
