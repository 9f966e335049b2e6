package gpu

import (
	vk "github.com/goki/vulkan"
)

// ResultString renders a VkResult the way the teacher's
// engine/renderer/vulkan/utils.go does, trimmed to the codes this driver
// actually surfaces in logs.
func ResultString(result vk.Result) string {
	switch result {
	case vk.Success:
		return "VK_SUCCESS"
	case vk.NotReady:
		return "VK_NOT_READY"
	case vk.Timeout:
		return "VK_TIMEOUT"
	case vk.Suboptimal:
		return "VK_SUBOPTIMAL_KHR"
	case vk.ErrorOutOfHostMemory:
		return "VK_ERROR_OUT_OF_HOST_MEMORY"
	case vk.ErrorOutOfDeviceMemory:
		return "VK_ERROR_OUT_OF_DEVICE_MEMORY"
	case vk.ErrorInitializationFailed:
		return "VK_ERROR_INITIALIZATION_FAILED"
	case vk.ErrorDeviceLost:
		return "VK_ERROR_DEVICE_LOST"
	case vk.ErrorExtensionNotPresent:
		return "VK_ERROR_EXTENSION_NOT_PRESENT"
	case vk.ErrorFeatureNotPresent:
		return "VK_ERROR_FEATURE_NOT_PRESENT"
	case vk.ErrorLayerNotPresent:
		return "VK_ERROR_LAYER_NOT_PRESENT"
	case vk.ErrorSurfaceLost:
		return "VK_ERROR_SURFACE_LOST_KHR"
	case vk.ErrorOutOfDate:
		return "VK_ERROR_OUT_OF_DATE_KHR"
	case vk.ErrorInvalidExternalHandle:
		return "VK_ERROR_INVALID_EXTERNAL_HANDLE"
	default:
		return "VK_ERROR_UNKNOWN"
	}
}

func resultIsSuccess(result vk.Result) bool {
	return result == vk.Success || result == vk.Suboptimal || result == vk.NotReady
}

// safeCString null-terminates an extension/layer name exactly once,
// mirroring the teacher's VulkanSafeString helper used before handing
// string slices to the cgo Vulkan loader.
func safeCString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}

func safeCStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeCString(s)
	}
	return out
}
