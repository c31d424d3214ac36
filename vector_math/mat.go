package vector_math

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"
)

// Mat is a row-major matrix, m[row][col]. Column vectors are multiplied from the right, so a point p is
// transformed as M * p. The GPU side expects column-major storage, use ColumnMajor before uploading.
type Mat [][]float32

func NewMat(r uint, c uint) (Mat, error) {
	if r == 0 || c == 0 {
		return nil, errors.New("cannot construct 0-sized matrix")
	}
	m := make([][]float32, r)
	for i := range m {
		m[i] = make([]float32, c)
	}
	return m, nil
}

// NewMat4 returns a zeroed 4x4 matrix.
func NewMat4() Mat {
	m, _ := NewMat(4, 4)
	return m
}

func (m *Mat) Mult(b *Mat) (Mat, error) {
	a := *m
	n, inner := a.Size()
	if inner != b.RowCnt() {
		return nil, fmt.Errorf("can't multiply %dx%d matrix with %dx%d matrix, inner dimensions differ",
			n, inner, b.RowCnt(), b.ColCnt())
	}
	c, _ := NewMat(uint(n), uint(b.ColCnt()))
	for i, row := range c {
		for k, aik := range a[i] {
			for j, bkj := range (*b)[k] {
				row[j] += aik * bkj
			}
		}
	}
	return c, nil
}

// Mul4 multiplies two 4x4 matrices and panics on a size mismatch, which can only be a programming error.
func Mul4(a Mat, b Mat) Mat {
	c, err := a.Mult(&b)
	if err != nil {
		panic(err)
	}
	return c
}

func (m *Mat) Transpose() Mat {
	t, _ := NewMat(uint(m.ColCnt()), uint(m.RowCnt()))
	for i, row := range *m {
		for j, v := range row {
			t[j][i] = v
		}
	}
	return t
}

func (m *Mat) sameSize(b *Mat) bool {
	rA, cA := m.Size()
	rB, cB := b.Size()
	return rA == rB && cA == cB
}

func (m *Mat) Equals(b *Mat) bool {
	return m.ApproxEquals(b, 0)
}

// ApproxEquals compares element wise with an absolute tolerance.
func (m *Mat) ApproxEquals(b *Mat, eps float32) bool {
	if !m.sameSize(b) {
		return false
	}
	for i, row := range *m {
		for j, v := range row {
			if d := v - (*b)[i][j]; d > eps || d < -eps {
				return false
			}
		}
	}
	return true
}

// Row returns row i of a 4 column matrix.
func (m *Mat) Row(i int) Vec4 {
	r := (*m)[i]
	return Vec4{X: r[0], Y: r[1], Z: r[2], W: r[3]}
}

// MulVec4 computes M * v for a 4x4 matrix.
func (m *Mat) MulVec4(v Vec4) Vec4 {
	return Vec4{
		X: m.Row(0).Dot(v),
		Y: m.Row(1).Dot(v),
		Z: m.Row(2).Dot(v),
		W: m.Row(3).Dot(v),
	}
}

// Description functions

func (m *Mat) RowCnt() int {
	return len(*m)
}

func (m *Mat) ColCnt() int {
	return len((*m)[0])
}

func (m *Mat) Size() (int, int) {
	return (*m).RowCnt(), (*m).ColCnt()
}

func (m *Mat) ByteSize() int {
	return int(unsafe.Sizeof((*m)[0][0])) * (*m).RowCnt() * (*m).ColCnt()
}

// RowMajor flattens the matrix row by row.
func (m *Mat) RowMajor() []float32 {
	rows, cols := m.Size()
	f := make([]float32, 0, rows*cols)
	for i := 0; i < rows; i++ {
		f = append(f, (*m)[i]...)
	}
	return f
}

// ColumnMajor flattens the matrix column by column, the default layout of a GLSL mat4.
func (m *Mat) ColumnMajor() []float32 {
	rows, cols := m.Size()
	f := make([]float32, 0, rows*cols)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			f = append(f, (*m)[i][j])
		}
	}
	return f
}

// FromColumnMajor rebuilds a square matrix from column-major storage.
func FromColumnMajor(f []float32, n int) (Mat, error) {
	if n <= 0 || len(f) != n*n {
		return nil, fmt.Errorf("can't rebuild %dx%d matrix from %d values", n, n, len(f))
	}
	m, _ := NewMat(uint(n), uint(n))
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			m[i][j] = f[j*n+i]
		}
	}
	return m, nil
}

func (m *Mat) ToString() string {
	mStr := strings.Builder{}
	for i := range *m {
		if i > 0 {
			mStr.WriteString("\n")
		}
		mStr.WriteString(fmt.Sprintf("%v", (*m)[i]))
	}
	return mStr.String()
}

func (m *Mat) Describe() string {
	return fmt.Sprintf(
		"%dx%d Matrix, %d Bytes in memory:\n%s",
		m.RowCnt(), m.ColCnt(), m.ByteSize(), m.ToString(),
	)
}
