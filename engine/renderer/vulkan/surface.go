package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/voxel/engine/core"
)

type SurfaceConfig struct {
	ClearColor    [4]float32
	PresentMode   vk.PresentMode
	Width, Height uint32
}

// RenderTarget is what a pipeline needs to know about the surface it draws to.
type RenderTarget struct {
	Format     vk.Format
	Extent     vk.Extent2D
	RenderPass vk.RenderPass
	// Generation changes on every rebuild.
	Generation uuid.UUID
}

// VulkanSurface owns everything that depends on the window size: the
// swapchain, the render pass, the depth image and one framebuffer per
// swapchain image.
type VulkanSurface struct {
	context *VulkanContext
	config  SurfaceConfig

	Swapchain    *VulkanSwapchain
	Renderpass   *VulkanRenderpass
	Depth        *VulkanImage
	Framebuffers []*VulkanFramebuffer

	generation uuid.UUID
}

// NewSurface builds the surface and takes a reference on context.
func NewSurface(context *VulkanContext, config SurfaceConfig) (*VulkanSurface, error) {
	surface := &VulkanSurface{
		context:    context.Acquire(),
		config:     config,
		generation: uuid.New(),
	}
	if err := surface.create(); err != nil {
		surface.Destroy()
		return nil, err
	}
	core.LogInfo("Surface %s built at %dx%d.", surface.generation, surface.Swapchain.Extent.Width, surface.Swapchain.Extent.Height)
	return surface, nil
}

func (s *VulkanSurface) create() error {
	context := s.context

	swapchain, err := SwapchainCreate(context, s.config.Width, s.config.Height, s.config.PresentMode)
	if err != nil {
		return err
	}
	s.Swapchain = swapchain

	renderpass, err := RenderpassCreate(context, swapchain.ImageFormat.Format, s.config.ClearColor, 1.0, 0)
	if err != nil {
		return err
	}
	s.Renderpass = renderpass

	depth, err := ImageCreate(
		context,
		swapchain.Extent.Width,
		swapchain.Extent.Height,
		DepthFormat,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		return err
	}
	s.Depth = depth

	s.Framebuffers = make([]*VulkanFramebuffer, 0, swapchain.ImageCount)
	for i := 0; i < int(swapchain.ImageCount); i++ {
		fb, err := FramebufferCreate(context, renderpass, swapchain.Extent, []vk.ImageView{swapchain.Views[i], depth.View})
		if err != nil {
			return err
		}
		s.Framebuffers = append(s.Framebuffers, fb)
	}
	return nil
}

// Rebuild tears the surface down and builds a new one at the given size.
// The device must be idle. The receiver is unusable afterwards.
func (s *VulkanSurface) Rebuild(width, height uint32) (*VulkanSurface, error) {
	context := s.context.Acquire()
	defer context.Release()

	config := s.config
	config.Width, config.Height = width, height
	s.Destroy()
	return NewSurface(context, config)
}

// Destroy releases framebuffer then view per image, then the depth image,
// the swapchain and the render pass, and finally its context reference.
func (s *VulkanSurface) Destroy() {
	if s.context == nil {
		return
	}
	context := s.context

	for i, fb := range s.Framebuffers {
		fb.Destroy(context)
		if s.Swapchain != nil && i < len(s.Swapchain.Views) {
			vk.DestroyImageView(context.Device.LogicalDevice, s.Swapchain.Views[i], context.Allocator)
			s.Swapchain.Views[i] = vk.NullImageView
		}
	}
	s.Framebuffers = nil

	if s.Depth != nil {
		s.Depth.Destroy(context)
		s.Depth = nil
	}
	if s.Swapchain != nil {
		s.Swapchain.Views = compactViews(s.Swapchain.Views)
		s.Swapchain.Destroy(context)
		s.Swapchain = nil
	}
	if s.Renderpass != nil {
		s.Renderpass.Destroy(context)
		s.Renderpass = nil
	}

	s.context = nil
	context.Release()
}

// compactViews drops views already destroyed alongside their framebuffer.
func compactViews(views []vk.ImageView) []vk.ImageView {
	out := views[:0]
	for _, v := range views {
		if v != vk.NullImageView {
			out = append(out, v)
		}
	}
	return out
}

func (s *VulkanSurface) Context() *VulkanContext {
	return s.context
}

func (s *VulkanSurface) Extent() vk.Extent2D {
	return s.Swapchain.Extent
}

func (s *VulkanSurface) AspectRatio() float32 {
	return aspectRatio(s.Extent())
}

func aspectRatio(extent vk.Extent2D) float32 {
	if extent.Height == 0 {
		return 1
	}
	return float32(extent.Width) / float32(extent.Height)
}

func (s *VulkanSurface) Generation() uuid.UUID {
	return s.generation
}

func (s *VulkanSurface) RenderTarget() RenderTarget {
	return RenderTarget{
		Format:     s.Swapchain.ImageFormat.Format,
		Extent:     s.Swapchain.Extent,
		RenderPass: s.Renderpass.Handle,
		Generation: s.generation,
	}
}
