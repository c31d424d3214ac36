package vector_math

import "github.com/xlab/linmath"

// FromLinmath converts a column-major linmath matrix (m[col][row]) into a row-major Mat.
func FromLinmath(m *linmath.Mat4x4) Mat {
	r := NewMat4()
	for c := 0; c < 4; c++ {
		for i := 0; i < 4; i++ {
			r[i][c] = m[c][i]
		}
	}
	return r
}

// ToLinmath is the inverse of FromLinmath.
func ToLinmath(m Mat) linmath.Mat4x4 {
	var r linmath.Mat4x4
	for c := 0; c < 4; c++ {
		for i := 0; i < 4; i++ {
			r[c][i] = m[i][c]
		}
	}
	return r
}
