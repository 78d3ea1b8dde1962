package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// VulkanBuffer is a buffer in host-visible, host-coherent memory.
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
}

// NewHostBuffer creates a host-visible buffer and copies data into it.
// data must not be empty.
func NewHostBuffer(context *VulkanContext, usage vk.BufferUsageFlags, data []byte) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{
		Size: vk.DeviceSize(len(data)),
	}

	sharing, families := context.SharingMode()
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		Size:                  buffer.Size,
		Usage:                 usage,
		SharingMode:           sharing,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
	}
	if err := vkCheck("vkCreateBuffer", vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &buffer.Handle)); err != nil {
		return nil, err
	}

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &reqs)
	reqs.Deref()

	memory, err := allocateMemory(context, reqs,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	buffer.Memory = memory

	if err := vkCheck("vkBindBufferMemory", vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0)); err != nil {
		buffer.Destroy(context)
		return nil, err
	}

	var pData unsafe.Pointer
	if err := vkCheck("vkMapMemory", vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, 0, buffer.Size, 0, &pData)); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	vk.Memcopy(pData, data)
	vk.UnmapMemory(context.Device.LogicalDevice, buffer.Memory)

	return buffer, nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	if vb.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = vk.NullBuffer
	}
	if vb.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = vk.NullDeviceMemory
	}
	vb.Size = 0
}
