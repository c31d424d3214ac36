package model

import (
	"bytes"
	"encoding/binary"
	vm "local/vector_math"

	"github.com/cockroachdb/errors"
)

// SceneUniform is the std140 uniform block shared by the cull and draw shaders. Matrices are stored
// column-major like GLSL expects.
type SceneUniform struct {
	Proj       vm.Mat
	View       vm.Mat
	ProjView   vm.Mat
	ModelCount uint32
	PlaneMask  vm.PlaneMask
}

// SceneUniformSize is three mat4 plus a uvec4 slot for the counters.
const SceneUniformSize = 3*64 + 16

type sceneUniformLayout struct {
	Proj       [16]float32
	View       [16]float32
	ProjView   [16]float32
	ModelCount uint32
	PlaneMask  uint32
	_          [2]uint32
}

func NewSceneUniform(proj vm.Mat, view vm.Mat, modelCount int, mask vm.PlaneMask) SceneUniform {
	return SceneUniform{
		Proj:       proj,
		View:       view,
		ProjView:   vm.Mul4(proj, view),
		ModelCount: uint32(modelCount),
		PlaneMask:  mask,
	}
}

func (u *SceneUniform) Bytes() []byte {
	var l sceneUniformLayout
	copy(l.Proj[:], u.Proj.ColumnMajor())
	copy(l.View[:], u.View.ColumnMajor())
	copy(l.ProjView[:], u.ProjView.ColumnMajor())
	l.ModelCount = u.ModelCount
	l.PlaneMask = uint32(u.PlaneMask)
	return rawBytes(&l)
}

func DecodeSceneUniform(data []byte) (SceneUniform, error) {
	if len(data) < SceneUniformSize {
		return SceneUniform{}, errors.Newf("scene uniform needs %d bytes, got %d", SceneUniformSize, len(data))
	}
	var l sceneUniformLayout
	if err := binary.Read(bytes.NewReader(data[:SceneUniformSize]), binary.LittleEndian, &l); err != nil {
		return SceneUniform{}, errors.Wrap(err, "decoding scene uniform")
	}
	var u SceneUniform
	var err error
	if u.Proj, err = vm.FromColumnMajor(l.Proj[:], 4); err != nil {
		return u, err
	}
	if u.View, err = vm.FromColumnMajor(l.View[:], 4); err != nil {
		return u, err
	}
	if u.ProjView, err = vm.FromColumnMajor(l.ProjView[:], 4); err != nil {
		return u, err
	}
	u.ModelCount = l.ModelCount
	u.PlaneMask = vm.PlaneMask(l.PlaneMask)
	return u, nil
}
