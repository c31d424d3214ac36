package vector_math

import "math"

// ToRad turns degree into radians
func ToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Apply multiplies v by a 4x4 matrix using the homogeneous coordinate w and drops the resulting w.
func Apply(v Vec3, w float32, m Mat) Vec3 {
	return m.MulVec4(Vec4{X: v.X, Y: v.Y, Z: v.Z, W: w}).XYZ()
}
