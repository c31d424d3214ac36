package main

import (
	"GPU_scene_core/culling"
	"GPU_scene_core/emulator"
	"GPU_scene_core/model"
	"GPU_scene_core/renderer"
	"flag"
	vm "local/vector_math"
	"log"
	"os"
	"runtime"
)

var (
	modelsFlag      = flag.Int("models", 256, "number of model instances placed on the grid")
	modeFlag        = flag.String("mode", "gpu", "cull mode: cpu, gpu or address")
	allPlanesFlag   = flag.Bool("all-planes", false, "test the top and bottom frustum planes as well")
	mdiFlag         = flag.Bool("mdi", true, "record one multi draw instead of a draw per model")
	workersFlag     = flag.Int("workers", 1, "worker count of the CPU cull")
	stlFlag         = flag.String("stl", "", "binary STL mesh instanced instead of the cube")
	vulkanFlag      = flag.Bool("vulkan", false, "cull on the vulkan backend instead of the emulator")
	framesFlag      = flag.Int("frames", 36, "frames rendered while the camera turns once")
	freezeFlag      = flag.Int("freeze-after", -1, "freeze culling after this many frames, negative never")
	noAddressesFlag = flag.Bool("no-device-address", false, "emulate a device without buffer device addresses")
	shaderDirFlag   = flag.String("shaders", "shaders", "directory holding the compiled cull shaders")
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stdout)
	log.Println("Starting scene culling demo")
	log.Printf("Using GoLang: [%s]", runtime.Version())
}

func main() {
	flag.Parse()
	mode, err := culling.ParseCullMode(*modeFlag)
	if err != nil {
		log.Fatal(err)
	}

	// Acceleration structures need device addresses, so they always live on a fully featured device
	emu := emulator.NewDevice(emulator.FullFeatures())
	defer emu.Destroy()
	cullDevice := emu
	if *noAddressesFlag {
		features := emulator.FullFeatures()
		features.BufferDeviceAddress = false
		cullDevice = emulator.NewDevice(features)
		defer cullDevice.Destroy()
	}

	scene, base := buildScene(*stlFlag, *modelsFlag)
	structures := buildStructures(emu, scene, base)
	defer structures.Destroy()

	ctx := cullDevice.CullContext()
	var backend *renderer.Backend
	if *vulkanFlag {
		cfg := renderer.DefaultConfig()
		cfg.ShaderDir = *shaderDirFlag
		backend, err = renderer.NewBackend(cfg)
		if err != nil {
			log.Fatalf("Failed to create the vulkan backend: %+v", err)
		}
		defer backend.Destroy()
		ctx = backend.CullContext()
	}

	cfg := culling.DefaultConfig()
	cfg.TestAllPlanes = *allPlanesFlag
	cfg.MultiDraw = *mdiFlag
	cfg.Workers = *workersFlag
	culler, err := culling.NewIndirectDrawCuller(scene.Information(), ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create culler: %v", err)
	}
	defer culler.Destroy()
	log.Printf("Culling %d models in %s mode, features %+v, multi draw %t", culler.ModelCount(), mode, culler.Features(), culler.MultiDrawActive())

	cam := model.NewCamera(60, 16.0/9.0, 0.1, 100)
	cam.Move(vm.Vec3{Y: -1})
	rec := &emulator.DrawRecorder{}
	for frame := 0; frame < *framesFlag; frame++ {
		if frame == *freezeFlag {
			log.Printf("Freezing culling at frame %d", frame)
			culler.SetFrozen(true)
		}
		cam.Turn(360/float64(*framesFlag), vm.Vec3{Y: 1})
		culler.SetCamera(cam.GetProjection(), cam.GetView())
		if err := culler.Cull(cam.GetViewProjection(), mode); err != nil {
			log.Panicf("Cull of frame %d failed: %v", frame, err)
		}
		if mode != culling.CullCPU && !culler.Frozen() {
			if _, err := culler.ReadBack(); err != nil {
				log.Panicf("Read back of frame %d failed: %v", frame, err)
			}
		}
		if backend == nil {
			drawFrame(culler, rec)
		}
		log.Printf("Frame %3d: %s", frame, culler.Statistics())
	}

	if backend != nil {
		log.Printf("Vulkan pool: %s", backend.Pool.Stats())
	}
	log.Printf("Emulator pool: %s", cullDevice.Pool.Stats())
}

// drawFrame records the frame's draws and expands them the way the device would execute them.
func drawFrame(culler *culling.IndirectDrawCuller, rec *emulator.DrawRecorder) {
	rec.Reset()
	culler.RecordDraws(rec)
	draws, err := rec.Expand()
	if err != nil {
		log.Panicf("Failed to expand recorded draws: %v", err)
	}
	if len(draws) != culler.VisibleCount() {
		log.Panicf("Expanded %d draws for %d visible models", len(draws), culler.VisibleCount())
	}
}
