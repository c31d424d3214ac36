package model

import (
	"bytes"
	"encoding/binary"
	vm "local/vector_math"

	"github.com/cockroachdb/errors"
)

// Information is the per model record the cull shaders read (std430, 32 bytes).
type Information struct {
	Center       vm.Vec3
	Radius       float32
	TextureIndex uint32
	FirstIndex   uint32
	IndexCount   uint32
	VertexOffset int32
}

const InformationSize = 32

func EncodeInformation(models []Information) []byte {
	return rawBytes(models)
}

func DecodeInformation(data []byte) ([]Information, error) {
	if len(data)%InformationSize != 0 {
		return nil, errors.Newf("model information of %d bytes is not a multiple of %d", len(data), InformationSize)
	}
	out := make([]Information, len(data)/InformationSize)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, out); err != nil {
		return nil, errors.Wrap(err, "decoding model information")
	}
	return out, nil
}
