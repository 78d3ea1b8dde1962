package vulkan

import (
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxel/engine/core"
)

// MaxFramesInFlight is the number of frames the CPU may record ahead of the GPU.
const MaxFramesInFlight = 2

type FrameState int

const (
	FRAME_STATE_IDLE FrameState = iota
	FRAME_STATE_ACQUIRING
	FRAME_STATE_RECORDING
	FRAME_STATE_SUBMITTED
	FRAME_STATE_PRESENTED
	FRAME_STATE_STALE
)

func (s FrameState) String() string {
	switch s {
	case FRAME_STATE_IDLE:
		return "idle"
	case FRAME_STATE_ACQUIRING:
		return "acquiring"
	case FRAME_STATE_RECORDING:
		return "recording"
	case FRAME_STATE_SUBMITTED:
		return "submitted"
	case FRAME_STATE_PRESENTED:
		return "presented"
	case FRAME_STATE_STALE:
		return "stale"
	}
	return "unknown"
}

type frameSlot struct {
	CommandBuffer  *VulkanCommandBuffer
	InFlight       *VulkanFence
	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore
	State          FrameState
}

// VulkanFrameScheduler cycles through MaxFramesInFlight slots, each with its
// own command buffer, fence and semaphores.
type VulkanFrameScheduler struct {
	context     *VulkanContext
	commandPool vk.CommandPool
	slots       [MaxFramesInFlight]frameSlot
	current     int
	FrameNumber uint64
}

func nextSlot(current int) int {
	return (current + 1) % MaxFramesInFlight
}

// NewFrameScheduler creates the slot pool for frames presented to surface.
// The slots only hold the surface's context, so they outlive surface rebuilds.
func NewFrameScheduler(surface *VulkanSurface) (*VulkanFrameScheduler, error) {
	context := surface.Context()
	fs := &VulkanFrameScheduler{
		context: context.Acquire(),
		// The first Render advances to slot 0.
		current: MaxFramesInFlight - 1,
	}

	pool, err := NewCommandPool(context, context.Device.Graphics.FamilyIndex)
	if err != nil {
		fs.Destroy()
		return nil, err
	}
	fs.commandPool = pool

	buffers, err := NewVulkanCommandBuffers(context, pool, MaxFramesInFlight)
	if err != nil {
		fs.Destroy()
		return nil, err
	}

	for i := range fs.slots {
		slot := &fs.slots[i]
		slot.CommandBuffer = buffers[i]

		semaphoreCreateInfo := vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}
		if err := vkCheck("vkCreateSemaphore", vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &slot.ImageAvailable)); err != nil {
			fs.Destroy()
			return nil, err
		}
		if err := vkCheck("vkCreateSemaphore", vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &slot.RenderFinished)); err != nil {
			fs.Destroy()
			return nil, err
		}

		// Signaled, so the first wait on each slot returns immediately.
		fence, err := NewFence(context, true)
		if err != nil {
			fs.Destroy()
			return nil, err
		}
		slot.InFlight = fence
		slot.State = FRAME_STATE_IDLE
	}

	core.LogDebug("Frame scheduler created with %d slots.", MaxFramesInFlight)
	return fs, nil
}

func (fs *VulkanFrameScheduler) CurrentSlot() int {
	return fs.current
}

func (fs *VulkanFrameScheduler) SlotState(i int) FrameState {
	return fs.slots[i].State
}

// Render records and presents one frame. It returns false when the swapchain
// no longer matches the window and the surface has to be rebuilt. Any error
// is unrecoverable.
func (fs *VulkanFrameScheduler) Render(surface *VulkanSurface, record func(cb *VulkanCommandBuffer)) (bool, error) {
	context := fs.context
	fs.current = nextSlot(fs.current)
	slot := &fs.slots[fs.current]

	slot.State = FRAME_STATE_ACQUIRING
	if err := slot.InFlight.Wait(context, math.MaxUint64); err != nil {
		return false, err
	}

	imageIndex, result := surface.Swapchain.AcquireNextImageIndex(context, slot.ImageAvailable)
	proceed, suboptimal, err := acquireOutcome(result)
	if err != nil {
		return false, err
	}
	if !proceed {
		// Nothing was submitted, so the fence stays signaled for the next pass.
		slot.State = FRAME_STATE_STALE
		return false, nil
	}

	slot.State = FRAME_STATE_RECORDING
	cb := slot.CommandBuffer
	if err := cb.Reset(); err != nil {
		return false, err
	}
	if err := cb.Begin(false, false, false); err != nil {
		return false, err
	}
	surface.Renderpass.Begin(cb, surface.Framebuffers[imageIndex].Handle, surface.Extent())
	record(cb)
	surface.Renderpass.End(cb)
	if err := cb.End(); err != nil {
		return false, err
	}

	if err := slot.InFlight.Reset(context); err != nil {
		return false, err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{slot.ImageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{slot.RenderFinished},
	}
	if err := vkCheck("vkQueueSubmit", vk.QueueSubmit(context.Device.Graphics.Handle, 1, []vk.SubmitInfo{submitInfo}, slot.InFlight.Handle)); err != nil {
		return false, err
	}
	cb.UpdateSubmitted()
	slot.State = FRAME_STATE_SUBMITTED

	fresh, err := presentOutcome(surface.Swapchain.Present(context, slot.RenderFinished, imageIndex), suboptimal)
	if err != nil {
		return false, err
	}
	fs.FrameNumber++
	if !fresh {
		slot.State = FRAME_STATE_STALE
		return false, nil
	}
	slot.State = FRAME_STATE_PRESENTED
	return true, nil
}

// acquireOutcome classifies the result of vkAcquireNextImageKHR. proceed is
// false when no image was acquired and the surface must be rebuilt first.
// suboptimal means an image was acquired but the surface should be rebuilt
// once the frame is presented.
func acquireOutcome(result vk.Result) (proceed, suboptimal bool, err error) {
	switch {
	case result == vk.ErrorOutOfDate:
		return false, false, nil
	case result == vk.Suboptimal:
		return true, true, nil
	case result == vk.Success:
		return true, false, nil
	case VulkanResultIsSuccess(result):
		// vk.Timeout or vk.NotReady cannot happen with an unbounded timeout.
		return false, false, errors.Newf("vkAcquireNextImageKHR returned %s", VulkanResultString(result))
	}
	return false, false, vkCheck("vkAcquireNextImageKHR", result)
}

// presentOutcome classifies the result of vkQueuePresentKHR and reports
// whether the surface is still a match for the window.
func presentOutcome(result vk.Result, acquiredSuboptimal bool) (bool, error) {
	if IsOutOfDate(result) {
		return false, nil
	}
	if err := vkCheck("vkQueuePresentKHR", result); err != nil {
		return false, err
	}
	return !acquiredSuboptimal, nil
}

// Destroy releases fences, semaphores and the command pool. The device must
// be idle.
func (fs *VulkanFrameScheduler) Destroy() {
	if fs.context == nil {
		return
	}
	context := fs.context
	device := context.Device.LogicalDevice

	for i := range fs.slots {
		slot := &fs.slots[i]
		if slot.InFlight != nil {
			slot.InFlight.Destroy(context)
			slot.InFlight = nil
		}
		if slot.ImageAvailable != vk.NullSemaphore {
			vk.DestroySemaphore(device, slot.ImageAvailable, context.Allocator)
			slot.ImageAvailable = vk.NullSemaphore
		}
		if slot.RenderFinished != vk.NullSemaphore {
			vk.DestroySemaphore(device, slot.RenderFinished, context.Allocator)
			slot.RenderFinished = vk.NullSemaphore
		}
		if slot.CommandBuffer != nil {
			slot.CommandBuffer.Free(context, fs.commandPool)
			slot.CommandBuffer = nil
		}
		slot.State = FRAME_STATE_IDLE
	}
	if fs.commandPool != nil {
		vk.DestroyCommandPool(device, fs.commandPool, context.Allocator)
		fs.commandPool = nil
	}

	fs.context = nil
	context.Release()
}
