package renderer

import (
	"GPU_scene_core/common"
	"GPU_scene_core/culling"
	"log"

	vk "github.com/goki/vulkan"
	"github.com/palantir/stacktrace"
)

// DeviceContext owns the instance, the selected hardware and the logical device. There is no surface, all work
// goes through one graphics and compute capable queue.
type DeviceContext struct {
	cfg      Config
	instance vk.Instance

	physicalDevice vk.PhysicalDevice
	pdProps        vk.PhysicalDeviceProperties
	pdMemoryProps  vk.PhysicalDeviceMemoryProperties
	qFamilies      QueueFamilyIndices
	features       culling.Features

	device vk.Device
	queue  vk.Queue
}

func NewDeviceContext(cfg Config) (*DeviceContext, error) {
	dc := &DeviceContext{cfg: cfg}
	if err := initVulkan(); err != nil {
		return nil, err
	}
	if err := dc.createInstance(); err != nil {
		return nil, err
	}
	if err := dc.selectPhysicalDevice(); err != nil {
		vk.DestroyInstance(dc.instance, nil)
		return nil, err
	}
	if err := dc.createLogicalDevice(); err != nil {
		vk.DestroyInstance(dc.instance, nil)
		return nil, err
	}
	return dc, nil
}

// Features is what the logical device was created with.
func (dc *DeviceContext) Features() culling.Features {
	return dc.features
}

func (dc *DeviceContext) DeviceName() string {
	return vk.ToString(dc.pdProps.DeviceName[:])
}

func (dc *DeviceContext) Destroy() {
	vk.DeviceWaitIdle(dc.device)
	vk.DestroyDevice(dc.device, nil)
	vk.DestroyInstance(dc.instance, nil)
}

func initVulkan() error {
	// Without a window system the loader is resolved directly
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return stacktrace.Propagate(err, "failed to resolve vkGetInstanceProcAddr")
	}
	return stacktrace.Propagate(vk.Init(), "failed to initialize vulkan")
}

func (dc *DeviceContext) createInstance() error {
	if err := checkInstanceExtensionSupport(nil); err != nil {
		return err
	}
	var layers []string
	if dc.cfg.EnableValidation {
		log.Printf("Validation enabled, checking layer support")
		if err := checkValidationLayerSupport(dc.cfg.ValidationLayers); err != nil {
			return err
		}
		layers = common.TerminatedStrs(dc.cfg.ValidationLayers)
	}
	applicationInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PNext:              nil,
		PApplicationName:   common.TerminatedStr(dc.cfg.AppName),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "No Engine\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.MakeVersion(1, 2, 0),
	}
	createInfo := &vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		PApplicationInfo:        applicationInfo,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
		EnabledExtensionCount:   0,
		PpEnabledExtensionNames: nil,
	}
	in, err := common.VkCreateInstance(createInfo, nil)
	if err != nil {
		return stacktrace.Propagate(err, "failed to create vulkan instance")
	}
	dc.instance = in
	return nil
}

func (dc *DeviceContext) selectPhysicalDevice() error {
	var candidates []vk.PhysicalDevice
	for _, pd := range common.ReadPhysicalDevices(dc.instance) {
		if dc.isDeviceSuitable(pd) {
			candidates = append(candidates, pd)
		}
	}
	if len(candidates) == 0 {
		return stacktrace.NewError("no suitable physical device (GPU) found")
	}
	pd := candidates[0]
	if dc.cfg.PreferDiscrete {
		for _, c := range candidates {
			if common.ReadPhysicalDeviceProperties(c).DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
				pd = c
				break
			}
		}
	}
	dc.physicalDevice = pd

	qf, err := findQueueFamilies(pd)
	if err != nil {
		return stacktrace.Propagate(err, "failed to read queue families from selected device")
	}
	dc.qFamilies = *qf
	dc.pdProps = common.ReadPhysicalDeviceProperties(pd)
	dc.pdMemoryProps = common.ReadDeviceMemoryProperties(pd)
	dc.features = queryFeatures(pd)
	log.Printf("Selected device %s with %+v", dc.DeviceName(), dc.features)
	log.Printf("Memory properties:\n%s", common.ToStringPhysicalDeviceMemProps(dc.pdMemoryProps))
	return nil
}

func (dc *DeviceContext) isDeviceSuitable(pd vk.PhysicalDevice) bool {
	pdProps := common.ReadPhysicalDeviceProperties(pd)
	pdQueueFams := common.ReadQueueFamilies(pd)
	log.Printf("Physical device\n%s", common.ToStringPhysicalDeviceTable(pdProps, pdQueueFams))

	indices, err := selectQueueFamily(pdQueueFams)
	if err != nil {
		log.Printf("Failed to get required queue families: %s", err)
		return false
	}
	return indices.isAllQueuesFound() && checkDeviceExtensionSupport(pd, dc.cfg.DeviceExtensions)
}

func queryFeatures(pd vk.PhysicalDevice) culling.Features {
	f := common.ReadPhysicalDeviceFeatures(pd)
	return culling.Features{
		MultiDrawIndirect:         f.MultiDrawIndirect == vk.True,
		DrawIndirectFirstInstance: f.DrawIndirectFirstInstance == vk.True,
		BufferDeviceAddress:       common.ReadBufferDeviceAddressSupport(pd),
	}
}

func (dc *DeviceContext) createLogicalDevice() error {
	queueInfos := dc.qFamilies.toQueueCreateInfos()
	deviceFeatures := vk.PhysicalDeviceFeatures{}
	if dc.features.MultiDrawIndirect {
		deviceFeatures.MultiDrawIndirect = vk.True
	}
	if dc.features.DrawIndirectFirstInstance {
		deviceFeatures.DrawIndirectFirstInstance = vk.True
	}
	extensions := common.TerminatedStrs(dc.cfg.DeviceExtensions)
	deviceCreateInfo := &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledLayerCount:       0,
		PpEnabledLayerNames:     nil,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
	}
	if dc.cfg.EnableValidation {
		deviceCreateInfo.EnabledLayerCount = uint32(len(dc.cfg.ValidationLayers))
		deviceCreateInfo.PpEnabledLayerNames = common.TerminatedStrs(dc.cfg.ValidationLayers)
	}

	var err error
	dc.device, err = common.VkCreateDevice(dc.physicalDevice, deviceCreateInfo, nil)
	if err != nil {
		return stacktrace.Propagate(err, "failed to create logical device")
	}
	dc.queue, err = common.VkGetDeviceQueue(dc.device, dc.qFamilies.computeFamily, 0)
	if err != nil {
		vk.DestroyDevice(dc.device, nil)
		return stacktrace.Propagate(err, "failed to get the compute device queue")
	}
	return nil
}
