package renderer

import (
	"GPU_scene_core/common"
	"log"
	"os"

	"github.com/docker/go-units"
	vk "github.com/goki/vulkan"
	"github.com/palantir/stacktrace"
)

// LoadComp reads a '.spv' file with the expectation of it containing a compute shader. The shader module and
// the vk.PipelineShaderStageCreateInfo binding it to a compute pipeline are returned.
func LoadComp(d vk.Device, path string) (vk.ShaderModule, vk.PipelineShaderStageCreateInfo, error) {
	compMod, err := readShaderCode(d, path)
	if err != nil {
		return nil, vk.PipelineShaderStageCreateInfo{}, err
	}
	log.Printf("Created compute shader module: %v", compMod)

	computeShaderStageInfo := vk.PipelineShaderStageCreateInfo{
		SType:               vk.StructureTypePipelineShaderStageCreateInfo,
		PNext:               nil,
		Flags:               0,
		Stage:               vk.ShaderStageComputeBit,
		Module:              compMod,
		PName:               "main\x00", // entrypoint -> function name in the shader
		PSpecializationInfo: nil,
	}
	return compMod, computeShaderStageInfo, nil
}

// DeleteShaderMod discards a shader module. It can be destroyed right after the pipeline using it was created.
func DeleteShaderMod(d vk.Device, mod vk.ShaderModule) {
	vk.DestroyShaderModule(d, mod, nil)
}

func readShaderCode(d vk.Device, shaderFile string) (vk.ShaderModule, error) {
	code, err := os.ReadFile(shaderFile)
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to read shader file '%s'", shaderFile)
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, stacktrace.NewError("shader file '%s' of %d bytes is no SPIR-V binary", shaderFile, len(code))
	}
	log.Printf("Read shader file (%s) of size: %s", shaderFile, units.BytesSize(float64(len(code))))

	module, err := common.VKSCreateShaderModule(d, code)
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to create shader module '%s'", shaderFile)
	}
	return module, nil
}
