package renderer

import (
	"GPU_scene_core/common"
	"log"

	vk "github.com/goki/vulkan"
	"github.com/palantir/stacktrace"
)

// Provides validation functions to ensure support and availability of requirements of layers/extensions and so on.

func checkInstanceExtensionSupport(requiredInstanceExt []string) error {
	supportedExt := common.ReadInstanceExtensionProperties()
	log.Printf("Required instance extensions: %v", requiredInstanceExt)
	log.Printf("Available extensions (%d):\n%v", len(supportedExt), common.TableStringExtensionProps(supportedExt))
	if !common.AllOfAinB(requiredInstanceExt, common.ReadInstanceExtensionPropertyNames()) {
		return stacktrace.NewError("at least one required instance extension of %v is not supported", requiredInstanceExt)
	}
	log.Println("Success - All required instance extensions are supported")
	return nil
}

func checkValidationLayerSupport(requiredLayers []string) error {
	supportedLayers := common.ReadInstanceLayerProperties()
	log.Printf("Desired validation layers: %v", requiredLayers)
	log.Printf("Supported layers (%d):\n%v", len(supportedLayers), common.TableStringLayerProps(supportedLayers))
	if !common.AllOfAinB(requiredLayers, common.ReadInstanceLayerPropertyNames()) {
		return stacktrace.NewError("at least one desired layer of %v is not supported", requiredLayers)
	}
	log.Println("Success - All desired validation layers are supported")
	return nil
}

func checkDeviceExtensionSupport(pd vk.PhysicalDevice, requiredDeviceExt []string) bool {
	supportedExt := common.ReadDeviceExtensionPropertyNames(pd)
	log.Printf("Required device extensions: %v", requiredDeviceExt)
	log.Printf("Available device extensions (%d) [...]\n", len(supportedExt))
	return common.AllOfAinB(requiredDeviceExt, supportedExt)
}
