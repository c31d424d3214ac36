package stl

import (
	"GPU_scene_core/model"
	"encoding/binary"
	"local/vector_math"
	"log"
	"math"
	"os"

	"github.com/cockroachdb/errors"
	units "github.com/docker/go-units"
)

const (
	headerSize   = 80
	triangleSize = 50
)

// ReadStlFile loads a binary STL file, failing hard on any error.
func ReadStlFile(path string) *model.Mesh {
	m, err := LoadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	return m
}

func LoadFile(path string) (*model.Mesh, error) {
	log.Printf("Reading stl file %s", path)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading stl file %s", path)
	}
	return Parse(b)
}

// Parse decodes binary STL data. Every triangle gets its own three vertices carrying the facet normal.
func Parse(b []byte) (*model.Mesh, error) {
	if len(b) < headerSize+4 {
		return nil, errors.Newf("stl data of %d bytes is shorter than its header", len(b))
	}
	tCnt := binary.LittleEndian.Uint32(b[headerSize : headerSize+4])
	body := b[headerSize+4:]
	if uint64(len(body)) < uint64(tCnt)*triangleSize {
		return nil, errors.Newf("stl data announces %d triangles but only holds %d", tCnt, len(body)/triangleSize)
	}
	log.Printf("Read stl data, Triangle Count: %d, Triangle memory size: %s", tCnt, units.BytesSize(float64(len(body))))
	return toMesh(body, tCnt), nil
}

func toMesh(bytes []byte, triangleCnt uint32) *model.Mesh {
	v := make([]model.Vertex, 0, triangleCnt*3)
	id := make([]uint32, 0, triangleCnt*3)

	for t := 0; t < int(triangleCnt); t++ {
		i := t * triangleSize
		normal := toVec3(bytes[i : i+12])
		for c := 0; c < 3; c++ {
			o := i + 12 + c*12
			id = append(id, uint32(len(v)))
			v = append(v, model.Vertex{Pos: toVec3(bytes[o : o+12]), Normal: normal})
		}
	}

	return model.NewMesh(v, id)
}

func toVec3(bytes []byte) vector_math.Vec3 {
	return vector_math.Vec3{
		X: toFloat32(bytes[:4]),
		Y: toFloat32(bytes[4:8]),
		Z: toFloat32(bytes[8:12]),
	}
}

func toFloat32(bytes []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(bytes))
}

// Encode writes a mesh as binary STL, the inverse of Parse for unindexed meshes.
func Encode(m *model.Mesh) []byte {
	out := make([]byte, headerSize, headerSize+4+m.TriangleCount()*triangleSize)
	copy(out, "binary stl")
	out = binary.LittleEndian.AppendUint32(out, uint32(m.TriangleCount()))
	put := func(v vector_math.Vec3) {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v.X))
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v.Y))
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v.Z))
	}
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Vertices[m.Indices[3*t]], m.Vertices[m.Indices[3*t+1]], m.Vertices[m.Indices[3*t+2]]
		put(b.Pos.Sub(a.Pos).Cross(c.Pos.Sub(a.Pos)).Norm())
		put(a.Pos)
		put(b.Pos)
		put(c.Pos)
		out = append(out, 0, 0)
	}
	return out
}
