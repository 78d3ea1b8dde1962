package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxel/engine/core"
)

type VulkanQueue struct {
	Handle      vk.Queue
	FamilyIndex uint32
}

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	Graphics VulkanQueue
	Present  VulkanQueue

	Properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties
}

// deviceCandidate is what device selection knows about one physical device.
type deviceCandidate struct {
	Name     string
	Type     vk.PhysicalDeviceType
	Graphics int32
	Present  int32
	// Usable is false when a required extension or surface support is missing.
	Usable bool
}

// devicePreference orders device types: discrete, then integrated, then the rest.
func devicePreference(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 0
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 1
	default:
		return 2
	}
}

// findQueueFamilies returns the first graphics family and the first family
// able to present, or -1 for each that is missing. A family doing both is
// preferred for presentation so the queues can be shared.
func findQueueFamilies(families []vk.QueueFamilyProperties, supportsPresent func(uint32) bool) (graphics, present int32) {
	graphics, present = -1, -1
	for i := range families {
		families[i].Deref()
		index := uint32(i)
		isGraphics := families[i].QueueCount > 0 &&
			vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueGraphicsBit != 0
		canPresent := supportsPresent(index)
		if isGraphics && graphics < 0 {
			graphics = int32(i)
		}
		if canPresent {
			if present < 0 || (isGraphics && present != graphics) {
				present = int32(i)
			}
		}
		if graphics >= 0 && graphics == present {
			break
		}
	}
	return graphics, present
}

// pickPhysicalDevice returns the index of the usable candidate with the
// lowest preference key. Ties keep enumeration order.
func pickPhysicalDevice(candidates []deviceCandidate) (int, bool) {
	best := -1
	for i, c := range candidates {
		if !c.Usable || c.Graphics < 0 || c.Present < 0 {
			continue
		}
		if best < 0 || devicePreference(c.Type) < devicePreference(candidates[best].Type) {
			best = i
		}
	}
	return best, best >= 0
}

// queueCreateInfos requests one queue per distinct family.
func queueCreateInfos(graphics, present uint32) []vk.DeviceQueueCreateInfo {
	families := []uint32{graphics}
	if present != graphics {
		families = append(families, present)
	}
	infos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		infos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}
	return infos
}

func DeviceCreate(context *VulkanContext) (*VulkanDevice, error) {
	physicalDevices, err := enumeratePhysicalDevices(context.Instance)
	if err != nil {
		return nil, err
	}
	if len(physicalDevices) == 0 {
		return nil, errors.Wrap(core.ErrNoSuitableDevice, "no devices which support Vulkan were found")
	}

	candidates := make([]deviceCandidate, len(physicalDevices))
	for i, pd := range physicalDevices {
		candidates[i] = inspectPhysicalDevice(pd, context.Surface)
		core.LogInfo("Device %d: '%s' graphics=%d present=%d usable=%t",
			i, candidates[i].Name, candidates[i].Graphics, candidates[i].Present, candidates[i].Usable)
	}

	selected, ok := pickPhysicalDevice(candidates)
	if !ok {
		return nil, errors.Wrap(core.ErrNoSuitableDevice, "no physical devices were found which meet the requirements")
	}

	device := &VulkanDevice{
		PhysicalDevice: physicalDevices[selected],
		Graphics:       VulkanQueue{FamilyIndex: uint32(candidates[selected].Graphics)},
		Present:        VulkanQueue{FamilyIndex: uint32(candidates[selected].Present)},
	}
	vk.GetPhysicalDeviceProperties(device.PhysicalDevice, &device.Properties)
	device.Properties.Deref()
	vk.GetPhysicalDeviceMemoryProperties(device.PhysicalDevice, &device.Memory)
	device.Memory.Deref()
	for i := uint32(0); i < device.Memory.MemoryTypeCount && i < vk.MaxMemoryTypes; i++ {
		device.Memory.MemoryTypes[i].Deref()
	}
	logDeviceInfo(device)

	core.LogInfo("Creating logical device...")
	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if hasExtension(device.PhysicalDevice, "VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	queueInfos := queueCreateInfos(device.Graphics.FamilyIndex, device.Present.FamilyIndex)
	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}
	var logical vk.Device
	if err := vkCheck("vkCreateDevice", vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logical)); err != nil {
		return nil, err
	}
	device.LogicalDevice = logical
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(device.LogicalDevice, device.Graphics.FamilyIndex, 0, &device.Graphics.Handle)
	vk.GetDeviceQueue(device.LogicalDevice, device.Present.FamilyIndex, 0, &device.Present.Handle)
	core.LogInfo("Queues obtained.")

	return device, nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	device.Graphics.Handle = nil
	device.Present.Handle = nil

	core.LogInfo("Destroying logical device...")
	if device.LogicalDevice != nil {
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}
	// Physical devices are not destroyed.
	device.PhysicalDevice = nil
}

func enumeratePhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var count uint32
	if err := vkCheck("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return nil, err
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := vkCheck("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &count, devices)); err != nil {
		return nil, err
	}
	return devices[:count], nil
}

func inspectPhysicalDevice(pd vk.PhysicalDevice, surface vk.Surface) deviceCandidate {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &properties)
	properties.Deref()

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, families)

	graphics, present := findQueueFamilies(families, func(index uint32) bool {
		var supported vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(pd, index, surface, &supported); res != vk.Success {
			return false
		}
		return supported == vk.True
	})

	return deviceCandidate{
		Name:     cString(properties.DeviceName[:]),
		Type:     properties.DeviceType,
		Graphics: graphics,
		Present:  present,
		Usable:   hasExtension(pd, vk.KhrSwapchainExtensionName) && hasSurfaceSupport(pd, surface),
	}
}

func hasExtension(pd vk.PhysicalDevice, name string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	extensions := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, extensions); res != vk.Success {
		return false
	}
	for i := range extensions {
		extensions[i].Deref()
		if cString(extensions[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}

// hasSurfaceSupport reports whether the surface exposes at least one format
// and one present mode on this device.
func hasSurfaceSupport(pd vk.PhysicalDevice, surface vk.Surface) bool {
	var formatCount, modeCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, nil)
	vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &modeCount, nil)
	return formatCount > 0 && modeCount > 0
}

func logDeviceInfo(device *VulkanDevice) {
	properties := device.Properties
	core.LogInfo("Selected device: '%s'.", cString(properties.DeviceName[:]))
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo("GPU Driver version: %d.%d.%d",
		vk.Version(properties.DriverVersion).Major(),
		vk.Version(properties.DriverVersion).Minor(),
		vk.Version(properties.DriverVersion).Patch())
	core.LogInfo("Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch())
	core.LogDebug("Graphics Family Index: %d", device.Graphics.FamilyIndex)
	core.LogDebug("Present Family Index:  %d", device.Present.FamilyIndex)
}
