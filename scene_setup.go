package main

import (
	"GPU_scene_core/accel"
	"GPU_scene_core/emulator"
	"GPU_scene_core/model"
	"GPU_scene_core/resource"
	"GPU_scene_core/stl"
	vm "local/vector_math"
	"log"
	"math"
)

const inputUsage = resource.UsageShaderDeviceAddress | resource.UsageAccelerationStructureBuildInput | resource.UsageTransferDst

// buildScene places n copies of the base mesh (a cube unless an STL path is given) on a square grid.
func buildScene(stlPath string, n int) (*model.Scene, *model.Mesh) {
	base := model.NewCubeMesh(1)
	if stlPath != "" {
		base = stl.ReadStlFile(stlPath)
	}
	if n < 1 {
		n = 1
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	scene := model.NewGridScene(base, rows, cols, 3, 4)
	log.Printf("Built scene of %d models (%d triangles)", len(scene.Models), scene.TriangleCount())
	return scene, base
}

// sceneStructures is one bottom-level structure over the base mesh, instanced once per scene model by the
// top-level structure.
type sceneStructures struct {
	buffers []*resource.Handle
	blas    *accel.AccelerationStructure
	tlas    *accel.AccelerationStructure
}

func uploadInput(dev *emulator.Device, data []byte) *resource.Handle {
	h, err := dev.Pool.RequestBuffer(uint64(len(data)), inputUsage, resource.MemoryGPUOnly)
	if err != nil {
		log.Panicf("Failed to allocate build input: %v", err)
	}
	if err := resource.Upload(dev.Pool, dev.Executor, resource.QueueTransfer, h, data); err != nil {
		log.Panicf("Failed to upload build input: %v", err)
	}
	return h
}

func buildStructures(dev *emulator.Device, scene *model.Scene, base *model.Mesh) *sceneStructures {
	s := &sceneStructures{}
	vertices := uploadInput(dev, base.VertexBytes())
	indices := uploadInput(dev, base.IndexBytes())
	s.buffers = append(s.buffers, vertices, indices)

	s.blas = accel.New(dev.AccelContext(), accel.BottomLevel)
	s.blas.AddTriangleGeometry(accel.NewTriangleGeometry(
		vertices, indices, nil, uint32(base.TriangleCount()), uint32(len(base.Vertices)-1), model.VertexSize,
	))
	s.blas.BuildDefault(resource.QueueCompute)

	// Grid placements are pure translations, recovered from the bounding sphere centres
	origin := vm.BoundingSphere(base.Positions()).Center
	instances := make([]accel.Instance, len(scene.Models))
	for i, m := range scene.Models {
		t := m.Bounds.Center.Sub(origin)
		instances[i] = accel.IdentityInstance(s.blas.DeviceAddress(), uint32(i))
		instances[i].Transform[0][3] = t.X
		instances[i].Transform[1][3] = t.Y
		instances[i].Transform[2][3] = t.Z
	}
	instanceBuf := uploadInput(dev, accel.EncodeInstances(instances))
	s.buffers = append(s.buffers, instanceBuf)

	s.tlas = accel.New(dev.AccelContext(), accel.TopLevel)
	s.tlas.AddInstanceGeometry(accel.NewInstanceGeometry(instanceBuf, uint32(len(instances))))
	s.tlas.BuildDefault(resource.QueueCompute)
	log.Printf("Built %s structure at %#x over %d instances, %s structure at %#x",
		s.tlas.Type(), s.tlas.DeviceAddress(), len(instances), s.blas.Type(), s.blas.DeviceAddress())
	return s
}

func (s *sceneStructures) Destroy() {
	s.tlas.Destroy()
	s.blas.Destroy()
	for _, b := range s.buffers {
		b.Release()
	}
}
