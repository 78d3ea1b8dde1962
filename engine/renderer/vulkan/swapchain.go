package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxel/engine/core"
)

type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	ImageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// ChooseSurfaceFormat prefers 8-bit BGRA sRGB with the sRGB non-linear color
// space and otherwise takes the first format the device reports.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	if len(formats) == 0 {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	}
	return formats[0]
}

// ChoosePresentMode returns preferred when available and FIFO otherwise.
// FIFO is the only mode every device must support.
func ChoosePresentMode(modes []vk.PresentMode, preferred vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == preferred {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent clamps the requested size to the extents the surface allows.
func ChooseExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	return vk.Extent2D{
		Width:  MathClamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: MathClamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (*VulkanSwapchainSupportInfo, error) {
	info := &VulkanSwapchainSupportInfo{}

	if err := vkCheck("vkGetPhysicalDeviceSurfaceCapabilities", vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &info.Capabilities)); err != nil {
		return nil, err
	}
	info.Capabilities.Deref()
	info.Capabilities.MinImageExtent.Deref()
	info.Capabilities.MaxImageExtent.Deref()
	info.Capabilities.CurrentExtent.Deref()

	var formatCount uint32
	if err := vkCheck("vkGetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil)); err != nil {
		return nil, err
	}
	if formatCount != 0 {
		info.Formats = make([]vk.SurfaceFormat, formatCount)
		if err := vkCheck("vkGetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, info.Formats)); err != nil {
			return nil, err
		}
		for i := range info.Formats {
			info.Formats[i].Deref()
		}
	}

	var modeCount uint32
	if err := vkCheck("vkGetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, nil)); err != nil {
		return nil, err
	}
	if modeCount != 0 {
		info.PresentModes = make([]vk.PresentMode, modeCount)
		if err := vkCheck("vkGetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, info.PresentModes)); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// SwapchainCreate negotiates format, present mode and extent against the
// surface and creates the swapchain with one view per image.
func SwapchainCreate(context *VulkanContext, width, height uint32, preferredMode vk.PresentMode) (*VulkanSwapchain, error) {
	support, err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface)
	if err != nil {
		return nil, err
	}

	swapchain := &VulkanSwapchain{
		ImageFormat: ChooseSurfaceFormat(support.Formats),
		PresentMode: ChoosePresentMode(support.PresentModes, preferredMode),
		Extent:      ChooseExtent(support.Capabilities, width, height),
	}

	sharing, families := context.SharingMode()
	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               context.Surface,
		MinImageCount:         support.Capabilities.MinImageCount,
		ImageFormat:           swapchain.ImageFormat.Format,
		ImageColorSpace:       swapchain.ImageFormat.ColorSpace,
		ImageExtent:           swapchain.Extent,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      sharing,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
		PreTransform:          support.Capabilities.CurrentTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           swapchain.PresentMode,
		Clipped:               vk.True,
		OldSwapchain:          vk.NullSwapchain,
	}

	if err := vkCheck("vkCreateSwapchain", vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchain.Handle)); err != nil {
		return nil, err
	}

	if err := vkCheck("vkGetSwapchainImages", vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil)); err != nil {
		swapchain.Destroy(context)
		return nil, err
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	if err := vkCheck("vkGetSwapchainImages", vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images)); err != nil {
		swapchain.Destroy(context)
		return nil, err
	}

	swapchain.Views = make([]vk.ImageView, 0, swapchain.ImageCount)
	for i := 0; i < int(swapchain.ImageCount); i++ {
		view, err := createImageView(context, swapchain.Images[i], swapchain.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			swapchain.Destroy(context)
			return nil, err
		}
		swapchain.Views = append(swapchain.Views, view)
	}

	core.LogInfo("Swapchain created: %dx%d, %d images, present mode %d.",
		swapchain.Extent.Width, swapchain.Extent.Height, swapchain.ImageCount, swapchain.PresentMode)
	return swapchain, nil
}

// AcquireNextImageIndex returns the raw result so callers can tell an outdated
// swapchain from a failure.
func (vs *VulkanSwapchain) AcquireNextImageIndex(context *VulkanContext, imageAvailable vk.Semaphore) (uint32, vk.Result) {
	var index uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, math.MaxUint64, imageAvailable, vk.NullFence, &index)
	return index, result
}

func (vs *VulkanSwapchain) Present(context *VulkanContext, renderFinished vk.Semaphore, imageIndex uint32) vk.Result {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	return vk.QueuePresent(context.Device.Present.Handle, &presentInfo)
}

// Destroy releases the remaining views and the swapchain. The images are
// owned by the swapchain and go with it.
func (vs *VulkanSwapchain) Destroy(context *VulkanContext) {
	for _, view := range vs.Views {
		vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
	}
	vs.Views = nil
	vs.Images = nil
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}
