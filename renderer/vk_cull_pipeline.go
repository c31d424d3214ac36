package renderer

import (
	"GPU_scene_core/common"
	"GPU_scene_core/culling"
	"GPU_scene_core/resource"
	"log"
	"path/filepath"

	vk "github.com/goki/vulkan"
	"github.com/palantir/stacktrace"
)

const (
	cullShader        = "cull.comp.spv"
	cullAddressShader = "cull_address.comp.spv"
)

// CullPipelines holds the classic and the device address cull compute pipelines. Both share one pipeline
// layout, the device address variant is only created when the device supports buffer device addresses.
type CullPipelines struct {
	dc          *DeviceContext
	descriptors *DescriptorProvisioner
	layout      vk.PipelineLayout
	pipelines   map[culling.CullMode]vk.Pipeline
}

func NewCullPipelines(dc *DeviceContext, shaderDir string) (*CullPipelines, error) {
	descriptors, err := NewDescriptorProvisioner(dc.device)
	if err != nil {
		return nil, err
	}
	cp := &CullPipelines{dc: dc, descriptors: descriptors, pipelines: make(map[culling.CullMode]vk.Pipeline)}
	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		PNext:                  nil,
		Flags:                  0,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{descriptors.layout},
		PushConstantRangeCount: 0,
		PPushConstantRanges:    nil,
	}
	cp.layout, err = common.VkCreatePipelineLayout(dc.device, &layoutInfo, nil)
	if err != nil {
		descriptors.Destroy()
		return nil, stacktrace.Propagate(err, "failed to create the cull pipeline layout")
	}

	shaders := map[culling.CullMode]string{culling.CullGPU: cullShader}
	if dc.features.BufferDeviceAddress {
		shaders[culling.CullGPUDeviceAddress] = cullAddressShader
	}
	for mode, name := range shaders {
		pipeline, err := cp.createPipeline(filepath.Join(shaderDir, name))
		if err != nil {
			cp.Destroy()
			return nil, stacktrace.Propagate(err, "failed to create the %s cull pipeline", mode)
		}
		cp.pipelines[mode] = pipeline
	}
	return cp, nil
}

func (cp *CullPipelines) createPipeline(path string) (vk.Pipeline, error) {
	mod, stage, err := LoadComp(cp.dc.device, path)
	if err != nil {
		return nil, err
	}
	defer DeleteShaderMod(cp.dc.device, mod)
	pipelineInfo := vk.ComputePipelineCreateInfo{
		SType:              vk.StructureTypeComputePipelineCreateInfo,
		PNext:              nil,
		Flags:              0,
		Stage:              stage,
		Layout:             cp.layout,
		BasePipelineHandle: nil,
		BasePipelineIndex:  -1,
	}
	pipelines, err := common.VkCreateComputePipelines(cp.dc.device, nil, []vk.ComputePipelineCreateInfo{pipelineInfo}, nil)
	if err != nil {
		return nil, err
	}
	return pipelines[0], nil
}

func (cp *CullPipelines) Features() culling.Features {
	return cp.dc.features
}

// CmdDispatchCull binds the dispatch buffers and records the cull followed by a barrier making the written
// commands visible to indirect draws and transfers.
func (cp *CullPipelines) CmdDispatchCull(cmd resource.CommandBuffer, d culling.CullDispatch) {
	pipeline, ok := cp.pipelines[d.Mode]
	if !ok {
		log.Panicf("No cull pipeline for mode %s", d.Mode)
	}
	commands := d.Commands
	if d.Mode == culling.CullGPUDeviceAddress {
		commands = d.AddressTable
	}
	cp.descriptors.bind(d.Models, commands, d.Scene)

	cb := vkCommandBuffer(cmd).handle
	vk.CmdPipelineBarrier(
		cb,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit|vk.PipelineStageHostBit),
		vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		0,
		1, []vk.MemoryBarrier{{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: vk.AccessFlags(vk.AccessTransferWriteBit | vk.AccessHostWriteBit),
			DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessUniformReadBit),
		}},
		0, nil, 0, nil,
	)
	vk.CmdBindPipeline(cb, vk.PipelineBindPointCompute, pipeline)
	vk.CmdBindDescriptorSets(cb, vk.PipelineBindPointCompute, cp.layout, 0, 1, []vk.DescriptorSet{cp.descriptors.set}, 0, nil)
	vk.CmdDispatch(cb, d.Groups, 1, 1)
	vk.CmdPipelineBarrier(
		cb,
		vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		vk.PipelineStageFlags(vk.PipelineStageDrawIndirectBit|vk.PipelineStageTransferBit),
		0,
		1, []vk.MemoryBarrier{{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: vk.AccessFlags(vk.AccessShaderWriteBit),
			DstAccessMask: vk.AccessFlags(vk.AccessIndirectCommandReadBit | vk.AccessTransferReadBit),
		}},
		0, nil, 0, nil,
	)
}

func (cp *CullPipelines) Destroy() {
	for _, p := range cp.pipelines {
		vk.DestroyPipeline(cp.dc.device, p, nil)
	}
	vk.DestroyPipelineLayout(cp.dc.device, cp.layout, nil)
	cp.descriptors.Destroy()
}
