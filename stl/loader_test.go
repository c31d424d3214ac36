package stl

import (
	"GPU_scene_core/model"
	"os"
	"path/filepath"
	"testing"
)

func TestParseCube(t *testing.T) {
	cube := model.NewCubeMesh(2)
	m, err := Parse(Encode(cube))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if m.TriangleCount() != 12 || len(m.Vertices) != 36 {
		t.Errorf("Expected 12 unindexed triangles, got %d triangles and %d vertices", m.TriangleCount(), len(m.Vertices))
	}
	for i, idx := range cube.Indices {
		if m.Vertices[i].Pos != cube.Vertices[idx].Pos {
			t.Errorf("Vertex %d: expected %v, got %v", i, cube.Vertices[idx].Pos, m.Vertices[i].Pos)
		}
		if m.Indices[i] != uint32(i) {
			t.Errorf("Index %d: expected %d, got %d", i, i, m.Indices[i])
		}
	}
}

func TestParseRejectsTruncatedData(t *testing.T) {
	if _, err := Parse(make([]byte, 10)); err == nil {
		t.Errorf("Expected an error for data shorter than the header")
	}
	b := Encode(model.NewCubeMesh(1))
	if _, err := Parse(b[:len(b)-1]); err == nil {
		t.Errorf("Expected an error for a truncated triangle list")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.stl")
	if err := os.WriteFile(path, Encode(model.NewGridPlaneMesh()), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if m.TriangleCount() != 2 {
		t.Errorf("Expected 2 triangles, got %d", m.TriangleCount())
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.stl")); err == nil {
		t.Errorf("Expected an error for a missing file")
	}
}
