package renderer

import (
	"GPU_scene_core/common"
	"GPU_scene_core/resource"

	vk "github.com/goki/vulkan"
	"github.com/palantir/stacktrace"
)

// Binding slots of the cull shaders. The command binding holds the indirect commands in the classic mode and the
// device address table in the device address mode.
const (
	bindingModels   = 0
	bindingCommands = 1
	bindingScene    = 2
)

// DescriptorProvisioner owns the single descriptor set the cull pipelines bind. Dispatches are serialised by the
// executor so the set is rewritten before every dispatch.
type DescriptorProvisioner struct {
	device vk.Device

	layout vk.DescriptorSetLayout
	pool   vk.DescriptorPool
	set    vk.DescriptorSet
}

func NewDescriptorProvisioner(device vk.Device) (*DescriptorProvisioner, error) {
	dp := &DescriptorProvisioner{device: device}
	if err := dp.createDescriptorSetLayout(); err != nil {
		return nil, err
	}
	if err := dp.createDescriptorPool(); err != nil {
		vk.DestroyDescriptorSetLayout(device, dp.layout, nil)
		return nil, err
	}
	sets, err := common.VkAllocateDescriptorSets(device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		PNext:              nil,
		DescriptorPool:     dp.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{dp.layout},
	})
	if err != nil {
		dp.Destroy()
		return nil, stacktrace.Propagate(err, "failed to allocate the cull descriptor set")
	}
	dp.set = sets[0]
	return dp, nil
}

func computeBinding(binding uint32, t vk.DescriptorType) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:            binding,
		DescriptorType:     t,
		DescriptorCount:    1,
		StageFlags:         vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		PImmutableSamplers: nil,
	}
}

func (dp *DescriptorProvisioner) createDescriptorSetLayout() error {
	bindings := []vk.DescriptorSetLayoutBinding{
		computeBinding(bindingModels, vk.DescriptorTypeStorageBuffer),
		computeBinding(bindingCommands, vk.DescriptorTypeStorageBuffer),
		computeBinding(bindingScene, vk.DescriptorTypeUniformBuffer),
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		PNext:        nil,
		Flags:        0,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	dsl, err := common.VkCreateDescriptorSetLayout(dp.device, &layoutInfo, nil)
	if err != nil {
		return stacktrace.Propagate(err, "failed to create the cull descriptor set layout")
	}
	dp.layout = dsl
	return nil
}

func (dp *DescriptorProvisioner) createDescriptorPool() error {
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PNext:         nil,
		Flags:         0,
		MaxSets:       1,
		PoolSizeCount: 2,
		PPoolSizes: []vk.DescriptorPoolSize{
			{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 2},
			{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1},
		},
	}
	pool, err := common.VkCreateDescriptorPool(dp.device, &poolInfo, nil)
	if err != nil {
		return stacktrace.Propagate(err, "failed to create the cull descriptor pool")
	}
	dp.pool = pool
	return nil
}

func bufferWrite(set vk.DescriptorSet, binding uint32, t vk.DescriptorType, b resource.Buffer) vk.WriteDescriptorSet {
	buf := vkBuffer(b)
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		PNext:           nil,
		DstSet:          set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  t,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buf.handle,
			Offset: 0,
			Range:  vk.DeviceSize(buf.size),
		}},
	}
}

// bind points the set at the buffers of one dispatch.
func (dp *DescriptorProvisioner) bind(models, commands, scene resource.Buffer) {
	writes := []vk.WriteDescriptorSet{
		bufferWrite(dp.set, bindingModels, vk.DescriptorTypeStorageBuffer, models),
		bufferWrite(dp.set, bindingCommands, vk.DescriptorTypeStorageBuffer, commands),
		bufferWrite(dp.set, bindingScene, vk.DescriptorTypeUniformBuffer, scene),
	}
	vk.UpdateDescriptorSets(dp.device, uint32(len(writes)), writes, 0, nil)
}

func (dp *DescriptorProvisioner) Destroy() {
	if dp.pool != nil {
		vk.DestroyDescriptorPool(dp.device, dp.pool, nil)
	}
	vk.DestroyDescriptorSetLayout(dp.device, dp.layout, nil)
}
