package renderer

// Config collects the settings the Vulkan backend is created with.
type Config struct {
	AppName          string
	EnableValidation bool
	ValidationLayers []string
	// DeviceExtensions must all be supported by the selected physical device.
	DeviceExtensions []string
	// PreferDiscrete picks a discrete GPU over other suitable devices when there is one.
	PreferDiscrete bool
	// ShaderDir holds cull.comp.spv and cull_address.comp.spv.
	ShaderDir string
}

func DefaultConfig() Config {
	return Config{
		AppName:          "GPU scene core",
		EnableValidation: true,
		ValidationLayers: []string{"VK_LAYER_KHRONOS_validation"},
		DeviceExtensions: nil,
		PreferDiscrete:   true,
		ShaderDir:        "shaders",
	}
}
