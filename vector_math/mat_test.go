package vector_math

import (
	"testing"

	"github.com/xlab/linmath"
)

// TestNewMat calls NewMat and confirms some general size constraints
func TestNewMat(t *testing.T) {
	mat0, err := NewMat(0, 0)
	if mat0 != nil || err == nil {
		t.Errorf("Should not be able to create mat0: %s", mat0.ToString())
	}
	for s := uint(1); s <= 6; s++ {
		m, err := NewMat(s, s)
		if err != nil {
			t.Errorf("Error creating matrix of size %dx%d: %s", s, s, err)
			continue
		}
		if m.ByteSize() != int(4*s*s) {
			t.Errorf("mat%d should have byte size: %d but was %d", s, 4*s*s, m.ByteSize())
		}
	}
}

func TestMultSizeMismatch(t *testing.T) {
	a, _ := NewMat(2, 3)
	b, _ := NewMat(2, 3)
	if _, err := a.Mult(&b); err == nil {
		t.Errorf("Multiplying 2x3 with 2x3 should fail")
	}
}

func TestRotationAxes(t *testing.T) {
	cases := []struct {
		name    string
		special Mat
		axis    Vec3
	}{
		{"X", New4x4RotXMat(ToRad(90)), Vec3{X: 1}},
		{"Y", New4x4RotYMat(ToRad(90)), Vec3{Y: 1}},
		{"Z", New4x4RotZMat(ToRad(90)), Vec3{Z: 1}},
	}
	for _, c := range cases {
		generic := NewRotation(ToRad(90), c.axis)
		if !c.special.ApproxEquals(&generic, 1e-6) {
			t.Errorf(
				"Rot%s not equal to generic rotation around %s. Rot%s: \n%s\n generic: \n%s",
				c.name, c.name, c.name, c.special.ToString(), generic.ToString(),
			)
		}
	}
}

func TestArbitraryRotation(t *testing.T) {
	mr := NewRotation(ToRad(-74), Vec3{X: -0.5, Y: 1, Z: 1})
	mrExample := NewUnitMat(4)
	mrExample[0][0] = 0.3561221
	mrExample[0][1] = 0.47987163
	mrExample[0][2] = -0.8018106

	mrExample[1][0] = -0.8018106
	mrExample[1][1] = 0.5975763
	mrExample[1][2] = 0.0015183985

	mrExample[2][0] = 0.47987163
	mrExample[2][1] = 0.6423595
	mrExample[2][2] = 0.5975763

	if !mr.ApproxEquals(&mrExample, 1e-5) {
		t.Errorf(
			"Arbitrary rotation didnt match expectations. expectation: \n%s\n actual: \n%s",
			mrExample.ToString(),
			mr.ToString(),
		)
	}
}

func TestApplyTranslation(t *testing.T) {
	m := NewTranslation(Vec3{X: 1, Y: 2, Z: 3})
	p := Apply(Vec3{X: 1, Y: 1, Z: 1}, 1, m)
	if p != (Vec3{X: 2, Y: 3, Z: 4}) {
		t.Errorf("Translating a point should move it, got %v", p)
	}
	d := Apply(Vec3{X: 1, Y: 1, Z: 1}, 0, m)
	if d != (Vec3{X: 1, Y: 1, Z: 1}) {
		t.Errorf("Translating a direction should not move it, got %v", d)
	}
}

func TestColumnMajorRoundTrip(t *testing.T) {
	m, _ := NewMat(4, 4)
	for i := range m {
		for j := range m[i] {
			m[i][j] = float32(i*4 + j)
		}
	}
	cm := m.ColumnMajor()
	if cm[1] != m[1][0] || cm[4] != m[0][1] {
		t.Errorf("Column major layout mismatch: %v", cm)
	}
	back, err := FromColumnMajor(cm, 4)
	if err != nil {
		t.Fatalf("Failed to rebuild matrix: %s", err)
	}
	if !back.Equals(&m) {
		t.Errorf("Matrix changed after round trip:\n%s\n%s", m.Describe(), back.Describe())
	}
	if _, err := FromColumnMajor(cm[:15], 4); err == nil {
		t.Errorf("Rebuilding from 15 values should fail")
	}
}

func TestTranspose(t *testing.T) {
	m, _ := NewMat(3, 4)
	m[0][3] = 7
	mT := m.Transpose()
	if mT.RowCnt() != 4 || mT.ColCnt() != 3 || mT[3][0] != 7 {
		t.Errorf("Unexpected transpose: \n%s", mT.Describe())
	}
}

func TestLinmathConversion(t *testing.T) {
	var lm linmath.Mat4x4
	lm.Identity()
	lm[3][0] = 5 // translation x lives in column 3
	m := FromLinmath(&lm)
	if m[0][3] != 5 {
		t.Errorf("Expected translation in m[0][3], got: \n%s", m.ToString())
	}
	back := ToLinmath(m)
	if back != lm {
		t.Errorf("linmath round trip changed the matrix: %v vs %v", back, lm)
	}
}
