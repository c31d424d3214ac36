package culling_test

import (
	"GPU_scene_core/culling"
	"GPU_scene_core/emulator"
	"GPU_scene_core/model"
	"GPU_scene_core/resource"
	"errors"
	vm "local/vector_math"
	"math"
	"math/rand/v2"
	"runtime"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func seedModels() []model.Information {
	centers := []vm.Vec3{{Z: 5}, {Z: 50}, {X: 100, Z: 5}, {Z: -5}}
	models := make([]model.Information, len(centers))
	for i, c := range centers {
		models[i] = model.Information{Center: c, Radius: 1, IndexCount: 36, FirstIndex: uint32(36 * i), VertexOffset: int32(8 * i)}
	}
	return models
}

func seedViewProjection() vm.Mat {
	return model.NewCamera(60, 1, 0.1, 20).GetViewProjection()
}

func newCuller(t *testing.T, dev *emulator.Device, models []model.Information, cfg culling.Config) *culling.IndirectDrawCuller {
	t.Helper()
	c, err := culling.NewIndirectDrawCuller(models, dev.CullContext(), cfg)
	if err != nil {
		t.Fatalf("Failed to create culler: %v", err)
	}
	return c
}

func instanceCounts(cmds []culling.DrawIndexedIndirectCommand) []uint32 {
	out := make([]uint32, len(cmds))
	for i, c := range cmds {
		out[i] = c.InstanceCount
	}
	return out
}

func expectPanic(t *testing.T, what string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("Expected a panic when %s", what)
		}
	}()
	fn()
}

func TestSeedSceneAllModes(t *testing.T) {
	want := []uint32{1, 0, 0, 0}
	for _, mode := range []culling.CullMode{culling.CullCPU, culling.CullGPU, culling.CullGPUDeviceAddress} {
		dev := emulator.NewDevice(emulator.FullFeatures())
		c := newCuller(t, dev, seedModels(), culling.DefaultConfig())
		if err := c.Cull(seedViewProjection(), mode); err != nil {
			t.Fatalf("%s cull failed: %v", mode, err)
		}
		cmds, err := c.ReadBack()
		if err != nil {
			t.Fatalf("Read back failed: %v", err)
		}
		got := instanceCounts(cmds)
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s cull, model %d: expected instanceCount %d, got %d", mode, i, want[i], got[i])
			}
		}
		for i, cmd := range cmds {
			if cmd.FirstInstance != uint32(i) || cmd.FirstIndex != uint32(36*i) || cmd.VertexOffset != int32(8*i) || cmd.IndexCount != 36 {
				t.Errorf("%s cull, model %d: unexpected command %+v", mode, i, cmd)
			}
		}
		if c.Statistics() != "Instances: 1 / 4" {
			t.Errorf("%s cull: unexpected statistics %q", mode, c.Statistics())
		}
	}
}

func TestInitialCommandsDrawEverything(t *testing.T) {
	dev := emulator.NewDevice(emulator.FullFeatures())
	c := newCuller(t, dev, seedModels(), culling.DefaultConfig())
	cmds, err := c.ReadBack()
	if err != nil {
		t.Fatal(err)
	}
	if culling.VisibleCount(cmds) != 4 {
		t.Errorf("Expected every model to be drawn before the first cull, got %d", culling.VisibleCount(cmds))
	}
}

func randomScene(r *rand.Rand, n int) []model.Information {
	models := make([]model.Information, n)
	for i := range models {
		models[i] = model.Information{
			Center:     vm.Vec3{X: r.Float32()*80 - 40, Y: r.Float32()*20 - 10, Z: r.Float32()*80 - 40},
			Radius:     r.Float32() * 3,
			IndexCount: uint32(3 * (1 + r.IntN(100))),
			FirstIndex: uint32(r.IntN(10000)),
		}
	}
	return models
}

func randomCamera(r *rand.Rand) vm.Mat {
	cam := model.NewCamera(30+r.Float32()*60, 0.5+r.Float32()*1.5, 0.1, 5+r.Float32()*40)
	cam.Move(vm.Vec3{X: r.Float32()*20 - 10, Z: r.Float32()*20 - 10})
	cam.Turn(r.Float64()*360, vm.Vec3{Y: 1})
	return cam.GetViewProjection()
}

func TestCPUAndGPUCullAgree(t *testing.T) {
	g := NewWithT(t)
	r := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 20; round++ {
		models := randomScene(r, 1+r.IntN(300))
		vp := randomCamera(r)
		cfg := culling.DefaultConfig()
		cfg.TestAllPlanes = round%2 == 1

		var results [][]culling.DrawIndexedIndirectCommand
		for _, mode := range []culling.CullMode{culling.CullCPU, culling.CullGPU, culling.CullGPUDeviceAddress} {
			dev := emulator.NewDevice(emulator.FullFeatures())
			c := newCuller(t, dev, models, cfg)
			g.Expect(c.Cull(vp, mode)).To(Succeed())
			cmds, err := c.ReadBack()
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(cmds).To(HaveLen(len(models)))
			results = append(results, cmds)
		}
		g.Expect(results[1]).To(Equal(results[0]), "GPU cull differs from CPU cull in round %d", round)
		g.Expect(results[2]).To(Equal(results[0]), "device address cull differs from CPU cull in round %d", round)
	}
}

// referenceVisible extracts the planes bounding the given clip axes from vp in float64 and tests the sphere
// against them. Spheres within a millimetre of a plane are reported as ambiguous.
func referenceVisible(vp vm.Mat, axes []int, center vm.Vec3, radius float32) (visible bool, ambiguous bool) {
	p := [4]float64{float64(center.X), float64(center.Y), float64(center.Z), 1}
	visible = true
	for _, axis := range axes {
		for _, sign := range []float64{-1, 1} {
			var plane [4]float64
			dist := 0.0
			for col := range plane {
				plane[col] = float64(vp[3][col]) + sign*float64(vp[axis][col])
				dist += plane[col] * p[col]
			}
			dist = dist/math.Sqrt(plane[0]*plane[0]+plane[1]*plane[1]+plane[2]*plane[2]) + float64(radius)
			if math.Abs(dist) < 1e-3 {
				ambiguous = true
			}
			if dist < 0 {
				visible = false
			}
		}
	}
	return visible, ambiguous
}

func TestVisibleCountMatchesReferenceFrustum(t *testing.T) {
	g := NewWithT(t)
	r := rand.New(rand.NewPCG(21, 34))
	planeSets := []struct {
		allPlanes bool
		axes      []int
	}{
		{false, []int{0, 2}},
		{true, []int{0, 1, 2}},
	}
	for round := 0; round < 20; round++ {
		vp := randomCamera(r)
		for _, set := range planeSets {
			var models []model.Information
			want := 0
			for _, info := range randomScene(r, 1+r.IntN(300)) {
				visible, ambiguous := referenceVisible(vp, set.axes, info.Center, info.Radius)
				if ambiguous {
					continue
				}
				if visible {
					want++
				}
				models = append(models, info)
			}
			if len(models) == 0 {
				continue
			}
			cfg := culling.DefaultConfig()
			cfg.TestAllPlanes = set.allPlanes
			for _, mode := range []culling.CullMode{culling.CullCPU, culling.CullGPU, culling.CullGPUDeviceAddress} {
				c := newCuller(t, emulator.NewDevice(emulator.FullFeatures()), models, cfg)
				g.Expect(c.Cull(vp, mode)).To(Succeed())
				_, err := c.ReadBack()
				g.Expect(err).NotTo(HaveOccurred())
				g.Expect(c.VisibleCount()).To(Equal(want),
					"%s cull with all planes %t in round %d", mode, set.allPlanes, round)
				c.Destroy()
			}
		}
	}
}

func TestParallelCPUCullMatchesSerial(t *testing.T) {
	g := NewWithT(t)
	r := rand.New(rand.NewPCG(3, 5))
	models := randomScene(r, 1000)
	vp := randomCamera(r)

	serial := newCuller(t, emulator.NewDevice(emulator.FullFeatures()), models, culling.DefaultConfig())
	cfg := culling.DefaultConfig()
	cfg.Workers = 4
	parallel := newCuller(t, emulator.NewDevice(emulator.FullFeatures()), models, cfg)

	g.Expect(serial.CPUCull(vp)).To(Succeed())
	g.Expect(parallel.CPUCull(vp)).To(Succeed())
	g.Expect(parallel.Commands()).To(Equal(serial.Commands()))
}

func TestDrawPathsAgree(t *testing.T) {
	g := NewWithT(t)
	r := rand.New(rand.NewPCG(1, 2))
	dev := emulator.NewDevice(emulator.FullFeatures())
	models := randomScene(r, 150)
	c := newCuller(t, dev, models, culling.DefaultConfig())
	g.Expect(c.GPUCull(randomCamera(r), culling.CullGPU)).To(Succeed())
	cmds, err := c.ReadBack()
	g.Expect(err).NotTo(HaveOccurred())

	var multi emulator.DrawRecorder
	c.RecordDraws(&multi)
	g.Expect(multi.Calls).To(HaveLen(1))
	g.Expect(multi.Calls[0].DrawCount).To(BeEquivalentTo(len(models)))
	g.Expect(multi.Calls[0].Stride).To(BeEquivalentTo(culling.CommandSize))

	g.Expect(c.SetMultiDraw(false)).To(BeTrue(), "disabling multi draw needs new draws")
	g.Expect(c.SetMultiDraw(false)).To(BeFalse())
	var single emulator.DrawRecorder
	c.RecordDraws(&single)
	g.Expect(single.Calls).To(HaveLen(len(models)))
	for j, call := range single.Calls {
		g.Expect(call.Offset).To(BeEquivalentTo(j * culling.CommandSize))
		g.Expect(call.DrawCount).To(BeEquivalentTo(1))
	}

	a, err := multi.Expand()
	g.Expect(err).NotTo(HaveOccurred())
	b, err := single.Expand()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(b).To(Equal(a))

	instances := 0
	for _, d := range a {
		instances += int(d.Instances)
	}
	g.Expect(instances).To(Equal(culling.VisibleCount(cmds)))
	g.Expect(len(a)).To(Equal(c.VisibleCount()))
}

func TestMultiDrawNeedsDeviceSupport(t *testing.T) {
	features := emulator.FullFeatures()
	features.MultiDrawIndirect = false
	dev := emulator.NewDevice(features)
	c := newCuller(t, dev, seedModels(), culling.DefaultConfig())
	if c.MultiDrawActive() {
		t.Errorf("Expected multi draw to stay off without device support")
	}
	var rec emulator.DrawRecorder
	c.RecordDraws(&rec)
	if len(rec.Calls) != 4 {
		t.Errorf("Expected one draw per model, got %d calls", len(rec.Calls))
	}
}

func TestDeviceAddressFallsBackToGPU(t *testing.T) {
	features := emulator.FullFeatures()
	features.BufferDeviceAddress = false
	dev := emulator.NewDevice(features)
	c := newCuller(t, dev, seedModels(), culling.DefaultConfig())
	if c.IndirectBuffer().Usage().Has(resource.UsageShaderDeviceAddress) {
		t.Errorf("Expected no device address usage on a device without the feature")
	}
	for i := 0; i < 2; i++ {
		if err := c.Cull(seedViewProjection(), culling.CullGPUDeviceAddress); err != nil {
			t.Fatalf("Cull failed: %v", err)
		}
	}
	if dev.Dispatcher.Dispatches(culling.CullGPU) != 2 || dev.Dispatcher.Dispatches(culling.CullGPUDeviceAddress) != 0 {
		t.Errorf("Expected the classic pipeline to run instead of the device address one")
	}
	cmds, _ := c.ReadBack()
	if got := instanceCounts(cmds); got[0] != 1 || culling.VisibleCount(cmds) != 1 {
		t.Errorf("Expected the seed result from the fallback, got %v", got)
	}
}

func TestDispatchCoversEveryModel(t *testing.T) {
	dev := emulator.NewDevice(emulator.FullFeatures())
	models := randomScene(rand.New(rand.NewPCG(9, 9)), 65)
	c := newCuller(t, dev, models, culling.DefaultConfig())
	if err := c.GPUCull(seedViewProjection(), culling.CullGPU); err != nil {
		t.Fatal(err)
	}
	if dev.Dispatcher.Invocations() != 128 {
		t.Errorf("Expected two workgroups of 64 invocations, got %d", dev.Dispatcher.Invocations())
	}
}

func TestAllPlanesCullsAboveAndBelow(t *testing.T) {
	models := []model.Information{{Center: vm.Vec3{Y: 10, Z: 5}, Radius: 1, IndexCount: 3}}
	dev := emulator.NewDevice(emulator.FullFeatures())
	sides := newCuller(t, dev, models, culling.DefaultConfig())
	cfg := culling.DefaultConfig()
	cfg.TestAllPlanes = true
	all := newCuller(t, dev, models, cfg)

	if sides.PlaneMask() != vm.SidePlanes || all.PlaneMask() != vm.AllPlanes {
		t.Errorf("Unexpected plane masks %b %b", sides.PlaneMask(), all.PlaneMask())
	}
	_ = sides.CPUCull(seedViewProjection())
	_ = all.CPUCull(seedViewProjection())
	if sides.VisibleCount() != 1 {
		t.Errorf("Expected the default planes to ignore the vertical bounds")
	}
	if all.VisibleCount() != 0 {
		t.Errorf("Expected all planes to cull a sphere above the frustum")
	}
}

func TestFrozenCullKeepsCommands(t *testing.T) {
	dev := emulator.NewDevice(emulator.FullFeatures())
	c := newCuller(t, dev, seedModels(), culling.DefaultConfig())
	if err := c.Cull(seedViewProjection(), culling.CullCPU); err != nil {
		t.Fatal(err)
	}
	c.SetFrozen(true)
	turned := model.NewCamera(60, 1, 0.1, 20)
	turned.Turn(180, vm.Vec3{Y: 1})
	before := dev.Executor.Submissions(resource.QueueCompute)
	for _, mode := range []culling.CullMode{culling.CullCPU, culling.CullGPU} {
		if err := c.Cull(turned.GetViewProjection(), mode); err != nil {
			t.Fatal(err)
		}
	}
	if dev.Executor.Submissions(resource.QueueCompute) != before {
		t.Errorf("Expected a frozen culler not to submit")
	}
	c.SetFrozen(false)
	if err := c.Cull(turned.GetViewProjection(), culling.CullCPU); err != nil {
		t.Fatal(err)
	}
	if got := instanceCounts(c.Commands()); got[3] != 1 || got[0] != 0 {
		t.Errorf("Expected the turned camera to see the model behind the origin, got %v", got)
	}
}

// blockingDispatcher parks the dispatch until released.
type blockingDispatcher struct {
	*emulator.Dispatcher
	started chan struct{}
	proceed chan struct{}
}

func (d *blockingDispatcher) CmdDispatchCull(cmd resource.CommandBuffer, dispatch culling.CullDispatch) {
	close(d.started)
	<-d.proceed
	d.Dispatcher.CmdDispatchCull(cmd, dispatch)
}

func TestConcurrentCullIsRejected(t *testing.T) {
	dev := emulator.NewDevice(emulator.FullFeatures())
	bd := &blockingDispatcher{Dispatcher: dev.Dispatcher, started: make(chan struct{}), proceed: make(chan struct{})}
	ctx := dev.CullContext()
	ctx.Dispatcher = bd
	c, err := culling.NewIndirectDrawCuller(seedModels(), ctx, culling.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error)
	go func() { done <- c.GPUCull(seedViewProjection(), culling.CullGPU) }()
	<-bd.started
	expectPanic(t, "a second cull starts while one is in flight", func() { _ = c.CPUCull(seedViewProjection()) })
	close(bd.proceed)
	if err := <-done; err != nil {
		t.Errorf("Expected the first cull to finish, got %v", err)
	}
	if err := c.CPUCull(seedViewProjection()); err != nil {
		t.Errorf("Expected culling to work again once the first cull finished, got %v", err)
	}
}

func TestCullErrors(t *testing.T) {
	dev := emulator.NewDevice(emulator.FullFeatures())
	if _, err := culling.NewIndirectDrawCuller(nil, dev.CullContext(), culling.DefaultConfig()); err == nil {
		t.Errorf("Expected an error without models")
	}
	if _, err := culling.NewIndirectDrawCuller(seedModels(), culling.Context{Pool: dev.Pool, Commands: dev.Executor}, culling.DefaultConfig()); err == nil {
		t.Errorf("Expected an error without a dispatcher")
	}
	c := newCuller(t, dev, seedModels(), culling.DefaultConfig())
	dev.Executor.FailNext(errors.New("device lost"))
	if err := c.GPUCull(seedViewProjection(), culling.CullGPU); err == nil {
		t.Errorf("Expected the submission failure to be returned")
	}
	expectPanic(t, "a GPU cull is asked for the CPU mode", func() { _ = c.GPUCull(seedViewProjection(), culling.CullCPU) })
}

func TestDestroyReleasesBuffers(t *testing.T) {
	dev := emulator.NewDevice(emulator.FullFeatures())
	c := newCuller(t, dev, seedModels(), culling.DefaultConfig())
	if got := dev.Pool.Stats().LiveBuffers; got != 5 {
		t.Errorf("Expected 5 owned buffers, got %d", got)
	}
	if got := c.SceneBuffer().Size(); got != model.SceneUniformSize {
		t.Errorf("Scene uniform buffer has %d bytes", got)
	}
	c.Destroy()
	if got := dev.Pool.Stats().LiveBuffers; got != 0 {
		t.Errorf("Expected every buffer to be released, %d still alive", got)
	}
	if dev.Memory.LiveBuffers() != 0 {
		t.Errorf("Expected the emulator memory to be empty")
	}
}

func TestParallelCullLeavesNoGoroutines(t *testing.T) {
	r := rand.New(rand.NewPCG(4, 4))
	models := randomScene(r, 200)
	cfg := culling.DefaultConfig()
	cfg.Workers = 4
	before := runtime.NumGoroutine()
	for i := 0; i < 10; i++ {
		c := newCuller(t, emulator.NewDevice(emulator.FullFeatures()), models, cfg)
		if err := c.CPUCull(randomCamera(r)); err != nil {
			t.Fatal(err)
		}
		c.Destroy()
	}
	after := runtime.NumGoroutine()
	for deadline := time.Now().Add(time.Second); after > before && time.Now().Before(deadline); {
		time.Sleep(10 * time.Millisecond)
		after = runtime.NumGoroutine()
	}
	if after > before {
		t.Errorf("Goroutines grew from %d to %d over 10 parallel cullers", before, after)
	}
}

func TestCullSubmitsToConfiguredQueue(t *testing.T) {
	dev := emulator.NewDevice(emulator.FullFeatures())
	cfg := culling.DefaultConfig()
	cfg.Queue = resource.QueueGraphics
	c := newCuller(t, dev, seedModels(), cfg)
	for _, mode := range []culling.CullMode{culling.CullCPU, culling.CullGPU, culling.CullGPUDeviceAddress} {
		if err := c.Cull(seedViewProjection(), mode); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := c.ReadBack(); err != nil {
		t.Fatal(err)
	}
	if got := dev.Executor.Submissions(resource.QueueCompute); got != 0 {
		t.Errorf("Expected no compute queue submissions, got %d", got)
	}
	if dev.Executor.Submissions(resource.QueueGraphics) == 0 {
		t.Errorf("Expected the culler to submit to the graphics queue")
	}
}
