package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxel/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// createInstance loads the Vulkan entry points through glfw and creates the
// instance with the window system extensions.
func createInstance(appName string, windowExtensions []string, validation bool) (vk.Instance, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize vk")
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Voxel Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := instanceExtensions(windowExtensions, validation, runtime.GOOS)
	if runtime.GOOS == "darwin" {
		createInfo.Flags |= 1 // VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	}
	core.LogInfo("Required extensions:")
	for i := 0; i < len(requiredExtensions); i++ {
		core.LogInfo(requiredExtensions[i])
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	var layers []string
	if validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		available, err := availableLayers()
		if err != nil {
			return nil, err
		}
		if !containsName(available, validationLayerName) {
			return nil, errors.Newf("required validation layer is missing: %s", validationLayerName)
		}
		core.LogInfo("All required validation layers are present.")
		layers = []string{validationLayerName}
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if err := vkCheck("vkCreateInstance", vk.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, errors.Wrap(err, "failed to initialize instance entry points")
	}

	core.LogInfo("Vulkan Instance created.")
	return instance, nil
}

// instanceExtensions returns the window system extensions plus the generic
// surface, debug and portability extensions, without duplicates.
func instanceExtensions(window []string, validation bool, goos string) []string {
	out := []string{"VK_KHR_surface"}
	add := func(names ...string) {
		for _, name := range names {
			if !containsName(out, name) {
				out = append(out, name)
			}
		}
	}
	add(window...)
	if goos == "darwin" {
		add("VK_KHR_portability_enumeration", "VK_KHR_get_physical_device_properties2")
	}
	if validation {
		add(vk.ExtDebugReportExtensionName)
	}
	return out
}

func availableLayers() ([]string, error) {
	var count uint32
	if err := vkCheck("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.LayerProperties, count)
	if err := vkCheck("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, props)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, cString(props[i].LayerName[:]))
	}
	return names, nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func createDebugCallback(instance vk.Instance, allocator *vk.AllocationCallbacks) (vk.DebugReportCallback, error) {
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := vkCheck("vkCreateDebugReportCallback", vk.CreateDebugReportCallback(instance, &debugCreateInfo, allocator, &dbg)); err != nil {
		return vk.NullDebugReportCallback, err
	}
	return dbg, nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
