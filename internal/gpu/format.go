package gpu

import (
	vk "github.com/goki/vulkan"

	"github.com/cassia-project/compositor/internal/core"
)

// PlatformPixelFormat is the platform allocator's own format enumeration,
// generalizing the teacher's AHardwareBuffer_Format constants so the
// lookup stays swappable with whatever native allocator a deployment
// plugs in via NativeBufferAllocator.
type PlatformPixelFormat uint32

const (
	PlatformFormatR8G8B8A8Unorm PlatformPixelFormat = iota + 1
	PlatformFormatR8G8B8Unorm
	PlatformFormatR5G6B5Unorm
	PlatformFormatR16G16B16A16Float
	PlatformFormatR10G10B10A2Unorm
	PlatformFormatR8Unorm
)

// platformFormatTable is a closed lookup: unsupported formats fail the
// allocation synchronously rather than falling back to a guess. Grounded
// on original_source/app/src/main/cpp/cassiasrv/nekomposite.cpp's
// VkFormatToHardwareBuffer.
var platformFormatTable = map[vk.Format]PlatformPixelFormat{
	vk.FormatR8g8b8a8Unorm:          PlatformFormatR8G8B8A8Unorm,
	vk.FormatR8g8b8a8Srgb:           PlatformFormatR8G8B8A8Unorm,
	vk.FormatB8g8r8a8Unorm:          PlatformFormatR8G8B8A8Unorm,
	vk.FormatB8g8r8a8Srgb:           PlatformFormatR8G8B8A8Unorm,
	vk.FormatR8g8b8Unorm:            PlatformFormatR8G8B8Unorm,
	vk.FormatR5g6b5UnormPack16:      PlatformFormatR5G6B5Unorm,
	vk.FormatR16g16b16a16Sfloat:     PlatformFormatR16G16B16A16Float,
	vk.FormatA2r10g10b10UnormPack32: PlatformFormatR10G10B10A2Unorm,
	vk.FormatR8Unorm:                PlatformFormatR8Unorm,
}

// ToPlatformFormat maps a VkFormat to the native allocator's pixel
// format. It fails closed: any format absent from the table is reported
// as unsupported rather than guessed at.
func ToPlatformFormat(format vk.Format) (PlatformPixelFormat, error) {
	pf, ok := platformFormatTable[format]
	if !ok {
		core.LogWarn("gpu: no platform pixel format mapping for %v", format)
		return 0, core.ErrUnsupportedFormat
	}
	return pf, nil
}
