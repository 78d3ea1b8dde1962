package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxel/engine/core"
)

// FindMemoryIndex returns the first memory type, by index, that is allowed by
// typeBits and whose property flags contain every bit of flags.
//
// props must already be dereferenced (including each MemoryTypes entry).
func FindMemoryIndex(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, flags vk.MemoryPropertyFlags) (uint32, error) {
	count := props.MemoryTypeCount
	if count > vk.MaxMemoryTypes {
		count = vk.MaxMemoryTypes
	}
	for i := uint32(0); i < count; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		if props.MemoryTypes[i].PropertyFlags&flags == flags {
			return i, nil
		}
	}
	return 0, errors.Wrapf(core.ErrNoMatchingMemoryType, "type bits %#x, property flags %#x", typeBits, uint32(flags))
}

// allocateMemory allocates and returns device memory matching reqs and flags.
func allocateMemory(context *VulkanContext, reqs vk.MemoryRequirements, flags vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	index, err := context.FindMemoryIndex(reqs.MemoryTypeBits, flags)
	if err != nil {
		return vk.NullDeviceMemory, err
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: index,
	}
	var memory vk.DeviceMemory
	if err := vkCheck("vkAllocateMemory", vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &memory)); err != nil {
		return vk.NullDeviceMemory, err
	}
	return memory, nil
}
