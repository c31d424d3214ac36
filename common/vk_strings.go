package common

import (
	"encoding/hex"
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"
)

// ExtensionProperties
func TableStringExtensionProps(ext []vk.ExtensionProperties) string {
	strBuilder := strings.Builder{}
	for i := range ext {
		strBuilder.WriteString(fmt.Sprintf(" %-59s%10s\n", vk.ToString(ext[i].ExtensionName[:]), vk.Version(ext[i].SpecVersion).String()))
	}
	return strBuilder.String()
}

// LayerProperties
func TableStringLayerProps(lay []vk.LayerProperties) string {
	strBuilder := strings.Builder{}
	for _, l := range lay {
		strBuilder.WriteString(fmt.Sprintf(
			" %-40sspec: %8s   impl: %8s%50s\n",
			vk.ToString(l.LayerName[:]),
			vk.Version(l.SpecVersion).String(),
			vk.Version(l.ImplementationVersion).String(),
			vk.ToString(l.Description[:]),
		))
	}
	return strBuilder.String()
}

// ToStringPhysicalDeviceTable renders a device with its queue families as a small tree for the selection log.
func ToStringPhysicalDeviceTable(pdProps vk.PhysicalDeviceProperties, qFamilies []vk.QueueFamilyProperties) string {
	strBuilder := strings.Builder{}
	for i := range qFamilies {
		prefix := "| "
		if i == len(qFamilies)-1 {
			prefix = "|_"
		}
		strBuilder.WriteString(fmt.Sprintf("%sQfamily[%d] %s\n", prefix, i, ToStringQueueFamilyProps(qFamilies[i])))
	}
	return fmt.Sprintf(
		"%s:\n|_%s\n%s",
		vk.ToString(pdProps.DeviceName[:]),
		ToStringPhysicalDeviceProps(pdProps),
		strBuilder.String(),
	)
}

func ToStringPhysicalDeviceProps(pdProps vk.PhysicalDeviceProperties) string {
	return fmt.Sprintf("api: %s, driver: %s, vendorId: %d (%s), deviceId: %d, deviceType: %d (%s), UUID: %v",
		vk.Version(pdProps.ApiVersion).String(),
		AsDriverVersion(pdProps.VendorID, pdProps.DriverVersion),
		pdProps.VendorID,
		AsVendorName(pdProps.VendorID),
		pdProps.DeviceID,
		pdProps.DeviceType,
		ToStringDeviceType(pdProps.DeviceType),
		hex.EncodeToString(pdProps.PipelineCacheUUID[:]),
	)
}

// AsVendorName maps the handful of known PCI vendor ids.
func AsVendorName(v uint32) string {
	switch v {
	case 0x1002:
		return "AMD"
	case 0x1010:
		return "ImgTec"
	case 0x10DE:
		return "NVIDIA"
	case 0x13B5:
		return "ARM"
	case 0x5143:
		return "Qualcomm"
	case 0x8086:
		return "INTEL"
	case 0x10005:
		return "Mesa"
	default:
		return "unknown"
	}
}

// AsDriverVersion decodes the driver version, NVIDIA packs it differently than the api version.
func AsDriverVersion(vendor uint32, raw uint32) string {
	if vendor == 0x10DE {
		return fmt.Sprintf("%d.%d.%d.%d", (raw>>22)&0x3ff, (raw>>14)&0x0ff, (raw>>6)&0x0ff, raw&0x003f)
	}
	return vk.Version(raw).String()
}

func ToStringDeviceType(dt vk.PhysicalDeviceType) string {
	switch dt {
	case vk.PhysicalDeviceTypeOther:
		return "other"
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated Gpu"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete Gpu"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual Gpu"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "unknown"
	}
}

func ToStringPhysicalDeviceMemProps(pdMemProps vk.PhysicalDeviceMemoryProperties) string {
	b := strings.Builder{}
	for i := uint32(0); i < pdMemProps.MemoryTypeCount; i++ {
		mt := pdMemProps.MemoryTypes[i]
		b.WriteString(fmt.Sprintf(" type %d: flags %032b heap %d\n", i, mt.PropertyFlags, mt.HeapIndex))
	}
	for i := uint32(0); i < pdMemProps.MemoryHeapCount; i++ {
		mh := pdMemProps.MemoryHeaps[i]
		b.WriteString(fmt.Sprintf(" heap %d: %d Byte flags %d\n", i, mh.Size, mh.Flags))
	}
	return b.String()
}

func ToStringQueueFamilyProps(q vk.QueueFamilyProperties) string {
	return fmt.Sprintf(
		"Count: %2d, Valid ts bits: %d, ImageGranularity: (%d,%d,%d), Flags: %v",
		q.QueueCount,
		q.TimestampValidBits,
		q.MinImageTransferGranularity.Width,
		q.MinImageTransferGranularity.Height,
		q.MinImageTransferGranularity.Depth,
		ToStringQueueFlags(q.QueueFlags),
	)
}

var queueFlagNames = []struct {
	bit  vk.QueueFlagBits
	name string
}{
	{vk.QueueGraphicsBit, "VK_QUEUE_GRAPHICS_BIT"},
	{vk.QueueComputeBit, "VK_QUEUE_COMPUTE_BIT"},
	{vk.QueueTransferBit, "VK_QUEUE_TRANSFER_BIT"},
	{vk.QueueSparseBindingBit, "VK_QUEUE_SPARSE_BINDING_BIT"},
	{vk.QueueProtectedBit, "VK_QUEUE_PROTECTED_BIT"},
}

func ToStringQueueFlags(bits vk.QueueFlags) []string {
	var properties []string
	flags := vk.QueueFlagBits(bits)
	for _, f := range queueFlagNames {
		if flags&f.bit > 0 {
			properties = append(properties, f.name)
		}
	}
	return properties
}
