package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxel/engine/core"
	"github.com/spaghettifunk/voxel/engine/platform"
)

type ContextConfig struct {
	AppName string
	// Validation enables VK_LAYER_KHRONOS_validation and routes its reports
	// through the engine logger.
	Validation bool
}

// VulkanContext owns the instance, the window surface and the logical device.
// It is shared by every object that holds device handles; the last Release
// destroys it.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	refs int
	// teardown is replaced in tests.
	teardown func()
}

func NewContext(p *platform.Platform, cfg ContextConfig) (*VulkanContext, error) {
	context := &VulkanContext{
		Allocator: nil,
		refs:      1,
	}
	context.teardown = context.destroy

	instance, err := createInstance(cfg.AppName, p.GetRequiredExtensionNames(), cfg.Validation)
	if err != nil {
		return nil, err
	}
	context.Instance = instance

	if cfg.Validation {
		core.LogDebug("Creating Vulkan debugger...")
		dbg, err := createDebugCallback(context.Instance, context.Allocator)
		if err != nil {
			context.destroy()
			return nil, err
		}
		context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := p.Window.CreateWindowSurface(context.Instance, nil)
	if err != nil {
		context.destroy()
		return nil, errors.Wrap(err, "vulkan surface creation failed")
	}
	context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	device, err := DeviceCreate(context)
	if err != nil {
		context.destroy()
		return nil, err
	}
	context.Device = device

	core.LogInfo("Vulkan context initialized successfully.")
	return context, nil
}

// Acquire registers a new owner of the context.
func (vc *VulkanContext) Acquire() *VulkanContext {
	vc.refs++
	return vc
}

// Release drops one owner. The last owner tears the context down.
func (vc *VulkanContext) Release() {
	if vc.refs <= 0 {
		core.LogWarn("VulkanContext released more times than acquired")
		return
	}
	vc.refs--
	if vc.refs == 0 {
		vc.teardown()
	}
}

func (vc *VulkanContext) Refs() int {
	return vc.refs
}

func (vc *VulkanContext) WaitIdle() error {
	return vkCheck("vkDeviceWaitIdle", vk.DeviceWaitIdle(vc.Device.LogicalDevice))
}

func (vc *VulkanContext) FindMemoryIndex(typeBits uint32, flags vk.MemoryPropertyFlags) (uint32, error) {
	return FindMemoryIndex(vc.Device.Memory, typeBits, flags)
}

// SharingMode is exclusive when graphics and present share a family and
// concurrent over both families otherwise.
func (vc *VulkanContext) SharingMode() (vk.SharingMode, []uint32) {
	return sharingMode(vc.Device.Graphics.FamilyIndex, vc.Device.Present.FamilyIndex)
}

func sharingMode(graphics, present uint32) (vk.SharingMode, []uint32) {
	if graphics == present {
		return vk.SharingModeExclusive, nil
	}
	return vk.SharingModeConcurrent, []uint32{graphics, present}
}

type teardownStep struct {
	name string
	run  func()
}

// teardownSteps lists the destruction of the context in the only valid
// order: device, surface, debug callback, instance.
func (vc *VulkanContext) teardownSteps() []teardownStep {
	return []teardownStep{
		{"device", func() {
			if vc.Device != nil {
				DeviceDestroy(vc)
				vc.Device = nil
			}
		}},
		{"surface", func() {
			if vc.Surface != vk.NullSurface {
				vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
				vc.Surface = vk.NullSurface
			}
		}},
		{"debug", func() {
			if vc.debugMessenger != vk.NullDebugReportCallback {
				vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
				vc.debugMessenger = vk.NullDebugReportCallback
			}
		}},
		{"instance", func() {
			if vc.Instance != nil {
				vk.DestroyInstance(vc.Instance, vc.Allocator)
				vc.Instance = nil
			}
		}},
	}
}

func (vc *VulkanContext) destroy() {
	for _, step := range vc.teardownSteps() {
		core.LogDebug("Destroying Vulkan %s...", step.name)
		step.run()
	}
}
