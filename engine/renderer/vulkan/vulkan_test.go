package vulkan

import (
	"encoding/binary"
	"math"
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/voxel/engine/core"
)

func memoryProps(flags ...vk.MemoryPropertyFlagBits) vk.PhysicalDeviceMemoryProperties {
	props := vk.PhysicalDeviceMemoryProperties{MemoryTypeCount: uint32(len(flags))}
	for i, f := range flags {
		props.MemoryTypes[i].PropertyFlags = vk.MemoryPropertyFlags(f)
	}
	return props
}

func TestFindMemoryIndex(t *testing.T) {
	const (
		local    = vk.MemoryPropertyDeviceLocalBit
		visible  = vk.MemoryPropertyHostVisibleBit
		coherent = vk.MemoryPropertyHostCoherentBit
	)
	props := memoryProps(local, visible, visible|coherent, local|visible|coherent)

	tests := []struct {
		name     string
		typeBits uint32
		flags    vk.MemoryPropertyFlags
		want     uint32
		wantErr  bool
	}{
		{"device local", 0xF, vk.MemoryPropertyFlags(local), 0, false},
		{"host visible first match", 0xF, vk.MemoryPropertyFlags(visible), 1, false},
		{"host visible and coherent", 0xF, vk.MemoryPropertyFlags(visible | coherent), 2, false},
		{"type bits exclude earlier types", 0x8, vk.MemoryPropertyFlags(visible | coherent), 3, false},
		{"no flags takes first allowed", 0x4, 0, 2, false},
		{"no allowed type", 0x0, vk.MemoryPropertyFlags(local), 0, true},
		{"flags never satisfied", 0x7, vk.MemoryPropertyFlags(local | coherent), 0, true},
		{"bits beyond type count", 0x30, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindMemoryIndex(props, tt.typeBits, tt.flags)
			if tt.wantErr {
				if !errors.Is(err, core.ErrNoMatchingMemoryType) {
					t.Fatalf("err = %v, want ErrNoMatchingMemoryType", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("FindMemoryIndex = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	unorm := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	rgba := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	if got := ChooseSurfaceFormat([]vk.SurfaceFormat{rgba, unorm, srgb}); got != srgb {
		t.Errorf("preferred format not chosen: %+v", got)
	}
	if got := ChooseSurfaceFormat([]vk.SurfaceFormat{rgba, unorm}); got != rgba {
		t.Errorf("fallback should be the first format, got %+v", got)
	}
}

func TestChoosePresentMode(t *testing.T) {
	tests := []struct {
		name      string
		modes     []vk.PresentMode
		preferred vk.PresentMode
		want      vk.PresentMode
	}{
		{"mailbox available", []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}, vk.PresentModeMailbox, vk.PresentModeMailbox},
		{"mailbox missing", []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo}, vk.PresentModeMailbox, vk.PresentModeFifo},
		{"immediate preferred", []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}, vk.PresentModeImmediate, vk.PresentModeImmediate},
		{"nothing reported", nil, vk.PresentModeMailbox, vk.PresentModeFifo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChoosePresentMode(tt.modes, tt.preferred); got != tt.want {
				t.Fatalf("ChoosePresentMode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChooseExtent(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		MinImageExtent: vk.Extent2D{Width: 100, Height: 50},
		MaxImageExtent: vk.Extent2D{Width: 1920, Height: 1080},
		// Ignored: the requested size is clamped instead.
		CurrentExtent: vk.Extent2D{Width: 640, Height: 480},
	}
	tests := []struct {
		w, h uint32
		want vk.Extent2D
	}{
		{800, 600, vk.Extent2D{Width: 800, Height: 600}},
		{10, 10, vk.Extent2D{Width: 100, Height: 50}},
		{4000, 3000, vk.Extent2D{Width: 1920, Height: 1080}},
		{4000, 20, vk.Extent2D{Width: 1920, Height: 50}},
	}
	for _, tt := range tests {
		if got := ChooseExtent(caps, tt.w, tt.h); got != tt.want {
			t.Errorf("ChooseExtent(%d, %d) = %+v, want %+v", tt.w, tt.h, got, tt.want)
		}
	}
}

func family(flags vk.QueueFlagBits) vk.QueueFamilyProperties {
	return vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(flags), QueueCount: 1}
}

func TestFindQueueFamilies(t *testing.T) {
	tests := []struct {
		name         string
		families     []vk.QueueFamilyProperties
		present      map[uint32]bool
		wantGraphics int32
		wantPresent  int32
	}{
		{
			name:         "shared family",
			families:     []vk.QueueFamilyProperties{family(vk.QueueGraphicsBit | vk.QueueComputeBit)},
			present:      map[uint32]bool{0: true},
			wantGraphics: 0,
			wantPresent:  0,
		},
		{
			name:         "separate families",
			families:     []vk.QueueFamilyProperties{family(vk.QueueGraphicsBit), family(vk.QueueTransferBit)},
			present:      map[uint32]bool{1: true},
			wantGraphics: 0,
			wantPresent:  1,
		},
		{
			name:         "prefers a family doing both",
			families:     []vk.QueueFamilyProperties{family(vk.QueueTransferBit), family(vk.QueueGraphicsBit)},
			present:      map[uint32]bool{0: true, 1: true},
			wantGraphics: 1,
			wantPresent:  1,
		},
		{
			name:         "no present support",
			families:     []vk.QueueFamilyProperties{family(vk.QueueGraphicsBit)},
			present:      map[uint32]bool{},
			wantGraphics: 0,
			wantPresent:  -1,
		},
		{
			name:         "no graphics support",
			families:     []vk.QueueFamilyProperties{family(vk.QueueComputeBit)},
			present:      map[uint32]bool{0: true},
			wantGraphics: -1,
			wantPresent:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, p := findQueueFamilies(tt.families, func(i uint32) bool { return tt.present[i] })
			if g != tt.wantGraphics || p != tt.wantPresent {
				t.Fatalf("findQueueFamilies = (%d, %d), want (%d, %d)", g, p, tt.wantGraphics, tt.wantPresent)
			}
		})
	}
}

func TestPickPhysicalDevice(t *testing.T) {
	integrated := deviceCandidate{Name: "igpu", Type: vk.PhysicalDeviceTypeIntegratedGpu, Graphics: 0, Present: 0, Usable: true}
	discrete := deviceCandidate{Name: "dgpu", Type: vk.PhysicalDeviceTypeDiscreteGpu, Graphics: 0, Present: 1, Usable: true}
	cpu := deviceCandidate{Name: "cpu", Type: vk.PhysicalDeviceTypeCpu, Graphics: 0, Present: 0, Usable: true}
	noPresent := deviceCandidate{Name: "headless", Type: vk.PhysicalDeviceTypeDiscreteGpu, Graphics: 0, Present: -1, Usable: true}
	noSwapchain := deviceCandidate{Name: "old", Type: vk.PhysicalDeviceTypeDiscreteGpu, Graphics: 0, Present: 0, Usable: false}

	tests := []struct {
		name       string
		candidates []deviceCandidate
		want       int
		ok         bool
	}{
		{"discrete beats integrated", []deviceCandidate{integrated, discrete}, 1, true},
		{"integrated beats cpu", []deviceCandidate{cpu, integrated}, 1, true},
		{"ties keep the first", []deviceCandidate{integrated, integrated}, 0, true},
		{"unsuitable devices skipped", []deviceCandidate{noPresent, noSwapchain, cpu}, 2, true},
		{"nothing suitable", []deviceCandidate{noPresent, noSwapchain}, -1, false},
		{"no devices", nil, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickPhysicalDevice(tt.candidates)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("pickPhysicalDevice = (%d, %t), want (%d, %t)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestQueueCreateInfos(t *testing.T) {
	if infos := queueCreateInfos(2, 2); len(infos) != 1 || infos[0].QueueFamilyIndex != 2 {
		t.Errorf("shared family should request one queue, got %+v", infos)
	}
	infos := queueCreateInfos(0, 3)
	if len(infos) != 2 || infos[0].QueueFamilyIndex != 0 || infos[1].QueueFamilyIndex != 3 {
		t.Errorf("separate families should request two queues, got %+v", infos)
	}
	for _, info := range infos {
		if info.QueueCount != 1 || len(info.PQueuePriorities) != 1 {
			t.Errorf("unexpected queue request %+v", info)
		}
	}
}

func TestSharingMode(t *testing.T) {
	mode, families := sharingMode(1, 1)
	if mode != vk.SharingModeExclusive || families != nil {
		t.Errorf("same family: got %d %v", mode, families)
	}
	mode, families = sharingMode(0, 2)
	if mode != vk.SharingModeConcurrent || !reflect.DeepEqual(families, []uint32{0, 2}) {
		t.Errorf("different families: got %d %v", mode, families)
	}
}

func TestContextRelease(t *testing.T) {
	torn := 0
	ctx := &VulkanContext{refs: 1}
	ctx.teardown = func() { torn++ }

	a := ctx.Acquire()
	b := ctx.Acquire()
	if ctx.Refs() != 3 {
		t.Fatalf("Refs = %d, want 3", ctx.Refs())
	}
	a.Release()
	ctx.Release()
	if torn != 0 {
		t.Fatal("context destroyed while still referenced")
	}
	b.Release()
	if torn != 1 {
		t.Fatalf("teardown ran %d times, want 1", torn)
	}
	b.Release()
	if torn != 1 {
		t.Fatal("extra release ran teardown again")
	}
}

func TestContextTeardownOrder(t *testing.T) {
	ctx := &VulkanContext{}
	var names []string
	for _, step := range ctx.teardownSteps() {
		names = append(names, step.name)
	}
	if want := []string{"device", "surface", "debug", "instance"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("teardown order = %v, want %v", names, want)
	}
	// Nothing was created, so destroying must not touch the driver.
	ctx.destroy()
}

func TestRenderpassLayout(t *testing.T) {
	layout := newRenderpassLayout(vk.FormatB8g8r8a8Srgb)
	if len(layout.Attachments) != 2 {
		t.Fatalf("attachments = %d, want 2", len(layout.Attachments))
	}

	color := layout.Attachments[0]
	if color.Format != vk.FormatB8g8r8a8Srgb || color.LoadOp != vk.AttachmentLoadOpClear ||
		color.StoreOp != vk.AttachmentStoreOpStore || color.FinalLayout != vk.ImageLayoutPresentSrc {
		t.Errorf("colour attachment = %+v", color)
	}

	depth := layout.Attachments[1]
	if depth.Format != vk.FormatD32Sfloat || depth.LoadOp != vk.AttachmentLoadOpClear ||
		depth.StoreOp != vk.AttachmentStoreOpDontCare {
		t.Errorf("depth attachment = %+v", depth)
	}
	if layout.ColorRef.Attachment != 0 || layout.DepthRef.Attachment != 1 {
		t.Errorf("attachment references = %+v %+v", layout.ColorRef, layout.DepthRef)
	}

	dep := layout.Dependency
	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) |
		vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
	access := vk.AccessFlags(vk.AccessColorAttachmentWriteBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	if dep.SrcSubpass != vk.SubpassExternal || dep.DstSubpass != 0 {
		t.Errorf("dependency subpasses = %d -> %d", dep.SrcSubpass, dep.DstSubpass)
	}
	if dep.SrcStageMask != stages || dep.DstStageMask != stages || dep.DstAccessMask != access || dep.SrcAccessMask != 0 {
		t.Errorf("dependency masks = %+v", dep)
	}
}

func TestNewVoxelPipelineConfig(t *testing.T) {
	target := RenderTarget{
		Format:     vk.FormatB8g8r8a8Srgb,
		Extent:     vk.Extent2D{Width: 1280, Height: 720},
		Generation: uuid.New(),
	}
	cfg := NewVoxelPipelineConfig(target, nil)

	if cfg.Binding.Stride != 4 || cfg.Binding.InputRate != vk.VertexInputRateInstance {
		t.Errorf("binding = %+v", cfg.Binding)
	}
	if len(cfg.Attributes) != 1 || cfg.Attributes[0].Format != vk.FormatR32Uint || cfg.Attributes[0].Location != 0 {
		t.Errorf("attributes = %+v", cfg.Attributes)
	}
	if cfg.Viewport.Width != 1280 || cfg.Viewport.Height != 720 || cfg.Viewport.MaxDepth != 1 {
		t.Errorf("viewport = %+v", cfg.Viewport)
	}
	if cfg.Scissor.Extent != target.Extent {
		t.Errorf("scissor = %+v", cfg.Scissor)
	}
	if cfg.CullMode != vk.CullModeFlags(vk.CullModeBackBit) || cfg.FrontFace != vk.FrontFaceClockwise {
		t.Errorf("rasterizer = %d %d", cfg.CullMode, cfg.FrontFace)
	}
	if !cfg.DepthTest || !cfg.DepthWrite {
		t.Error("depth test and write must be enabled")
	}
	if len(cfg.PushConstantRanges) != 1 {
		t.Fatalf("push constant ranges = %d", len(cfg.PushConstantRanges))
	}
	pc := cfg.PushConstantRanges[0]
	if pc.Size != 64 || pc.Offset != 0 || pc.StageFlags != vk.ShaderStageFlags(vk.ShaderStageVertexBit) {
		t.Errorf("push constant range = %+v", pc)
	}
}

func TestEncodeTransform(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3)
	buf := EncodeTransform(m)
	for i := 0; i < 16; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		if got != m[i] {
			t.Fatalf("element %d = %v, want %v", i, got, m[i])
		}
	}
	// Column-major: the translation sits in the last column.
	if x := math.Float32frombits(binary.LittleEndian.Uint32(buf[48:])); x != 1 {
		t.Fatalf("translation x = %v, want 1", x)
	}
}

func TestNextSlot(t *testing.T) {
	slot := MaxFramesInFlight - 1
	var seen []int
	for i := 0; i < 5; i++ {
		slot = nextSlot(slot)
		seen = append(seen, slot)
	}
	if want := []int{0, 1, 0, 1, 0}; !reflect.DeepEqual(seen, want) {
		t.Fatalf("slots = %v, want %v", seen, want)
	}
}

func TestAcquireOutcome(t *testing.T) {
	tests := []struct {
		name                string
		result              vk.Result
		proceed, suboptimal bool
		wantErr             bool
	}{
		{"success", vk.Success, true, false, false},
		{"suboptimal still renders", vk.Suboptimal, true, true, false},
		{"out of date skips the frame", vk.ErrorOutOfDate, false, false, false},
		{"timeout", vk.Timeout, false, false, true},
		{"not ready", vk.NotReady, false, false, true},
		{"device lost", vk.ErrorDeviceLost, false, false, true},
		{"surface lost", vk.ErrorSurfaceLost, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proceed, suboptimal, err := acquireOutcome(tt.result)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if proceed != tt.proceed || suboptimal != tt.suboptimal {
				t.Fatalf("proceed, suboptimal = %v, %v, want %v, %v", proceed, suboptimal, tt.proceed, tt.suboptimal)
			}
		})
	}
}

func TestPresentOutcome(t *testing.T) {
	tests := []struct {
		name               string
		result             vk.Result
		acquiredSuboptimal bool
		fresh              bool
		wantErr            bool
	}{
		{"presented", vk.Success, false, true, false},
		{"acquired suboptimal", vk.Success, true, false, false},
		{"present suboptimal", vk.Suboptimal, false, false, false},
		{"present out of date", vk.ErrorOutOfDate, false, false, false},
		{"out of date after suboptimal acquire", vk.ErrorOutOfDate, true, false, false},
		{"device lost", vk.ErrorDeviceLost, false, false, true},
		{"device lost after suboptimal acquire", vk.ErrorDeviceLost, true, false, true},
		{"out of memory", vk.ErrorOutOfDeviceMemory, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fresh, err := presentOutcome(tt.result, tt.acquiredSuboptimal)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if fresh != tt.fresh {
				t.Fatalf("fresh = %v, want %v", fresh, tt.fresh)
			}
		})
	}
}

func TestVulkanResultString(t *testing.T) {
	if got := VulkanResultString(vk.ErrorOutOfDate); got != "VK_ERROR_OUT_OF_DATE_KHR" {
		t.Errorf("got %q", got)
	}
	if got := VulkanResultString(vk.Result(-12345)); got != "VK_RESULT(-12345)" {
		t.Errorf("got %q", got)
	}
	if !VulkanResultIsSuccess(vk.Suboptimal) || VulkanResultIsSuccess(vk.ErrorDeviceLost) {
		t.Error("VulkanResultIsSuccess misclassified")
	}
	if !IsOutOfDate(vk.Suboptimal) || !IsOutOfDate(vk.ErrorOutOfDate) || IsOutOfDate(vk.ErrorDeviceLost) {
		t.Error("IsOutOfDate misclassified")
	}
	if err := vkCheck("vkCreateBuffer", vk.ErrorOutOfDeviceMemory); err == nil ||
		err.Error() != "vkCreateBuffer failed with VK_ERROR_OUT_OF_DEVICE_MEMORY" {
		t.Errorf("vkCheck = %v", err)
	}
	if err := vkCheck("vkCreateBuffer", vk.Success); err != nil {
		t.Errorf("vkCheck(Success) = %v", err)
	}
}

func TestHelpers(t *testing.T) {
	if MathClamp(5, 1, 3) != 3 || MathClamp(0, 1, 3) != 1 || MathClamp(2, 1, 3) != 2 {
		t.Error("MathClamp")
	}
	if VulkanSafeString("main") != "main\x00" || VulkanSafeString("main\x00") != "main\x00" {
		t.Error("VulkanSafeString")
	}
	if cString([]byte{'a', 'b', 0, 'c'}) != "ab" || cString([]byte("abc")) != "abc" {
		t.Error("cString")
	}
	if aspectRatio(vk.Extent2D{Width: 1600, Height: 800}) != 2 || aspectRatio(vk.Extent2D{}) != 1 {
		t.Error("aspectRatio")
	}
}

func TestInstanceExtensions(t *testing.T) {
	got := instanceExtensions([]string{"VK_KHR_surface", "VK_KHR_xcb_surface"}, true, "linux")
	want := []string{"VK_KHR_surface", "VK_KHR_xcb_surface", vk.ExtDebugReportExtensionName}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("linux + validation = %v, want %v", got, want)
	}
	got = instanceExtensions([]string{"VK_EXT_metal_surface"}, false, "darwin")
	want = []string{"VK_KHR_surface", "VK_EXT_metal_surface", "VK_KHR_portability_enumeration", "VK_KHR_get_physical_device_properties2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("darwin = %v, want %v", got, want)
	}
}

func TestCompactViews(t *testing.T) {
	views := []vk.ImageView{vk.NullImageView, vk.NullImageView}
	if got := compactViews(views); len(got) != 0 {
		t.Fatalf("compactViews kept %d views", len(got))
	}
}
