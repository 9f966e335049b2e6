package gpu

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/cassia-project/compositor/internal/core"
)

// vulkanDriver is the process-wide GPU context. It is created once, by
// main at process start rather than on the first client connection,
// generalizing the teacher's
// engine/renderer/vulkan.VulkanRenderer/VulkanContext split: one instance,
// one physical device, one logical device, one graphics+compute queue.
// queueMu serializes every submit/present against the others.
type vulkanDriver struct {
	instance       vk.Instance
	debugCallback  vk.DebugReportCallback
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	queueFamily    uint32
	queue          vk.Queue
	queueMu        sync.Mutex

	allocator NativeBufferAllocator

	nextHandle atomic.Uint64
	objects    sync.Map // handle -> vulkan object, keyed by the opaque handles above
}

// NewVulkanDriver loads the platform Vulkan loader dynamically, creates
// an instance with the generic surface and debug-report extensions,
// selects the first physical device and the first queue family
// supporting both graphics and compute, and creates a device with
// swapchain, external-memory, and external-semaphore-fd extensions.
func NewVulkanDriver(allocator NativeBufferAllocator) (Driver, error) {
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("gpu: failed to load vulkan loader: %w", err)
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(0, 1, 0)),
		PApplicationName:   safeCString("cassia compositor"),
		PEngineName:        safeCString("cassiad"),
	}

	instanceExtensions := safeCStrings([]string{
		"VK_KHR_surface",
		vk.ExtDebugReportExtensionName,
	})

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(instanceExtensions)),
		PpEnabledExtensionNames: instanceExtensions,
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&instanceInfo, nil, &instance); res != vk.Success {
		return nil, fmt.Errorf("gpu: vkCreateInstance failed: %s", ResultString(res))
	}
	if err := vk.InitInstance(instance); err != nil {
		return nil, fmt.Errorf("gpu: vkInitInstance failed: %w", err)
	}

	drv := &vulkanDriver{instance: instance, allocator: allocator}

	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
		PfnCallback: vulkanDebugCallback,
	}
	var dbg vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(instance, &debugCreateInfo, nil, &dbg); res != vk.Success {
		core.LogWarn("gpu: debug report callback unavailable: %s", ResultString(res))
	} else {
		drv.debugCallback = dbg
	}

	if err := drv.selectPhysicalDevice(); err != nil {
		return nil, err
	}
	if err := drv.createDevice(); err != nil {
		return nil, err
	}

	core.LogInfo("gpu: context ready (queue family %d)", drv.queueFamily)
	return drv, nil
}

func (d *vulkanDriver) selectPhysicalDevice() error {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(d.instance, &count, nil); res != vk.Success || count == 0 {
		return fmt.Errorf("gpu: no vulkan physical devices found")
	}
	devices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(d.instance, &count, devices); res != vk.Success {
		return fmt.Errorf("gpu: vkEnumeratePhysicalDevices failed: %s", ResultString(res))
	}
	// The server runs one queue of work for the whole process; the first
	// device enumerated is used, matching vk_helpers::CreatePhysicalDevice
	// in the original implementation — no multi-GPU selection logic.
	d.physicalDevice = devices[0]

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(d.physicalDevice, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(d.physicalDevice, &familyCount, families)

	for i, fam := range families {
		fam.Deref()
		flags := vk.QueueFlagBits(fam.QueueFlags)
		if flags&vk.QueueGraphicsBit != 0 && flags&vk.QueueComputeBit != 0 {
			d.queueFamily = uint32(i)
			return nil
		}
	}
	return fmt.Errorf("gpu: no queue family supports both graphics and compute")
}

func (d *vulkanDriver) createDevice() error {
	priority := float32(1.0)
	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.queueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{priority},
	}

	extensions := safeCStrings([]string{
		vk.KhrSwapchainExtensionName,
		"VK_KHR_external_memory",
		"VK_KHR_external_memory_fd",
		"VK_KHR_external_semaphore",
		"VK_KHR_external_semaphore_fd",
	})

	deviceInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    1,
		PQueueCreateInfos:       []vk.DeviceQueueCreateInfo{queueInfo},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}

	var device vk.Device
	if res := vk.CreateDevice(d.physicalDevice, &deviceInfo, nil, &device); res != vk.Success {
		return fmt.Errorf("gpu: vkCreateDevice failed: %s", ResultString(res))
	}
	d.device = device

	var queue vk.Queue
	vk.GetDeviceQueue(d.device, d.queueFamily, 0, &queue)
	d.queue = queue
	return nil
}

func (d *vulkanDriver) newHandle() uint64 {
	return d.nextHandle.Add(1)
}

// --- Images & memory -------------------------------------------------

func (d *vulkanDriver) CreateImage(format Format, extent Extent2D, usage UsageFlags) (Image, error) {
	externalInfo := vk.ExternalMemoryImageCreateInfo{
		SType:       vk.StructureTypeExternalMemoryImageCreateInfo,
		HandleTypes: vk.ExternalMemoryHandleTypeFlags(vk.ExternalMemoryHandleTypeOpaqueFdBit),
	}
	createInfo := vk.ImageCreateInfo{
		SType:       vk.StructureTypeImageCreateInfo,
		PNext:       unsafe.Pointer(&externalInfo),
		ImageType:   vk.ImageType2d,
		Format:      format,
		Extent:      vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
		MipLevels:   1,
		ArrayLayers: 1,
		Samples:     vk.SampleCount1Bit,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       usage | vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit),
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Image
	if res := vk.CreateImage(d.device, &createInfo, nil, &handle); res != vk.Success {
		return 0, fmt.Errorf("gpu: vkCreateImage failed: %s", ResultString(res))
	}
	id := Image(d.newHandle())
	d.objects.Store(id, handle)
	return id, nil
}

func (d *vulkanDriver) DestroyImage(img Image) {
	if h, ok := d.loadAndDelete(img); ok {
		vk.DestroyImage(d.device, h.(vk.Image), nil)
	}
}

func (d *vulkanDriver) AllocatePlatformBuffer(format Format, extent Extent2D) (PlatformBuffer, error) {
	return d.allocator.Allocate(format, extent)
}

func (d *vulkanDriver) ReleasePlatformBuffer(buf PlatformBuffer) error {
	return d.allocator.Release(buf)
}

func (d *vulkanDriver) ImportPlatformBufferAsMemory(buf PlatformBuffer) (DeviceMemory, error) {
	// Size comes from the import itself; callers always pair this with
	// BindImageMemory against the image created alongside buf.
	importInfo := vk.ImportMemoryFdInfo{
		SType:      vk.StructureTypeImportMemoryFdInfo,
		HandleType: vk.ExternalMemoryHandleTypeFlagBits(vk.ExternalMemoryHandleTypeOpaqueFdBit),
		Fd:         int32(buf.Fd),
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType: vk.StructureTypeMemoryAllocateInfo,
		PNext: unsafe.Pointer(&importInfo),
	}

	var mem vk.DeviceMemory
	if res := vk.AllocateMemory(d.device, &allocInfo, nil, &mem); res != vk.Success {
		return 0, fmt.Errorf("gpu: vkAllocateMemory (import) failed: %s", ResultString(res))
	}
	id := DeviceMemory(d.newHandle())
	d.objects.Store(id, mem)
	return id, nil
}

func (d *vulkanDriver) BindImageMemory(img Image, mem DeviceMemory) error {
	imgH, ok := d.load(img)
	if !ok {
		return fmt.Errorf("gpu: unknown image handle")
	}
	memH, ok := d.load(mem)
	if !ok {
		return fmt.Errorf("gpu: unknown memory handle")
	}
	if res := vk.BindImageMemory(d.device, imgH.(vk.Image), memH.(vk.DeviceMemory), 0); res != vk.Success {
		return fmt.Errorf("gpu: vkBindImageMemory failed: %s", ResultString(res))
	}
	return nil
}

func (d *vulkanDriver) FreeMemory(mem DeviceMemory) {
	if h, ok := d.loadAndDelete(mem); ok {
		vk.FreeMemory(d.device, h.(vk.DeviceMemory), nil)
	}
}

// --- Synchronization ---------------------------------------------------

func (d *vulkanDriver) CreateSemaphore() (Semaphore, error) {
	var sem vk.Semaphore
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	if res := vk.CreateSemaphore(d.device, &info, nil, &sem); res != vk.Success {
		return 0, fmt.Errorf("gpu: vkCreateSemaphore failed: %s", ResultString(res))
	}
	id := Semaphore(d.newHandle())
	d.objects.Store(id, sem)
	return id, nil
}

func (d *vulkanDriver) DestroySemaphore(sem Semaphore) {
	if h, ok := d.loadAndDelete(sem); ok {
		vk.DestroySemaphore(d.device, h.(vk.Semaphore), nil)
	}
}

func (d *vulkanDriver) ImportSemaphoreFd(sem Semaphore, fd int) error {
	h, ok := d.load(sem)
	if !ok {
		return fmt.Errorf("gpu: unknown semaphore handle")
	}
	info := vk.ImportSemaphoreFdInfo{
		SType:      vk.StructureTypeImportSemaphoreFdInfo,
		Semaphore:  h.(vk.Semaphore),
		Flags:      vk.SemaphoreImportFlags(vk.SemaphoreImportTemporaryBit),
		HandleType: vk.ExternalSemaphoreHandleTypeFlagBits(vk.ExternalSemaphoreHandleTypeSyncFdBit),
		Fd:         int32(fd),
	}
	if res := vk.ImportSemaphoreFdKHR(d.device, &info); res != vk.Success {
		return fmt.Errorf("gpu: vkImportSemaphoreFdKHR failed: %s", ResultString(res))
	}
	return nil
}

func (d *vulkanDriver) ExportSemaphoreFd(sem Semaphore) (int, error) {
	h, ok := d.load(sem)
	if !ok {
		return -1, fmt.Errorf("gpu: unknown semaphore handle")
	}
	info := vk.SemaphoreGetFdInfo{
		SType:      vk.StructureTypeSemaphoreGetFdInfo,
		Semaphore:  h.(vk.Semaphore),
		HandleType: vk.ExternalSemaphoreHandleTypeFlagBits(vk.ExternalSemaphoreHandleTypeSyncFdBit),
	}
	var fd int32
	if res := vk.GetSemaphoreFdKHR(d.device, &info, &fd); res != vk.Success {
		return -1, fmt.Errorf("gpu: vkGetSemaphoreFdKHR failed: %s", ResultString(res))
	}
	return int(fd), nil
}

func (d *vulkanDriver) CreateFence(signaled bool) (Fence, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if res := vk.CreateFence(d.device, &info, nil, &fence); res != vk.Success {
		return 0, fmt.Errorf("gpu: vkCreateFence failed: %s", ResultString(res))
	}
	id := Fence(d.newHandle())
	d.objects.Store(id, fence)
	return id, nil
}

func (d *vulkanDriver) DestroyFence(fence Fence) {
	if h, ok := d.loadAndDelete(fence); ok {
		vk.DestroyFence(d.device, h.(vk.Fence), nil)
	}
}

func (d *vulkanDriver) WaitForFence(fence Fence, timeout time.Duration) error {
	h, ok := d.load(fence)
	if !ok {
		return fmt.Errorf("gpu: unknown fence handle")
	}
	res := vk.WaitForFences(d.device, 1, []vk.Fence{h.(vk.Fence)}, vk.True, uint64(timeout.Nanoseconds()))
	if res == vk.Timeout {
		return fmt.Errorf("gpu: fence wait timed out")
	}
	if res != vk.Success {
		return fmt.Errorf("gpu: vkWaitForFences failed: %s", ResultString(res))
	}
	return nil
}

func (d *vulkanDriver) ResetFence(fence Fence) error {
	h, ok := d.load(fence)
	if !ok {
		return fmt.Errorf("gpu: unknown fence handle")
	}
	if res := vk.ResetFences(d.device, 1, []vk.Fence{h.(vk.Fence)}); res != vk.Success {
		return fmt.Errorf("gpu: vkResetFences failed: %s", ResultString(res))
	}
	return nil
}

// --- Command buffers -----------------------------------------------------

func (d *vulkanDriver) CreateCommandPool() (CommandPool, error) {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.queueFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(d.device, &info, nil, &pool); res != vk.Success {
		return 0, fmt.Errorf("gpu: vkCreateCommandPool failed: %s", ResultString(res))
	}
	id := CommandPool(d.newHandle())
	d.objects.Store(id, pool)
	return id, nil
}

func (d *vulkanDriver) DestroyCommandPool(pool CommandPool) {
	if h, ok := d.loadAndDelete(pool); ok {
		vk.DestroyCommandPool(d.device, h.(vk.CommandPool), nil)
	}
}

func (d *vulkanDriver) AllocateCommandBuffer(pool CommandPool) (CommandBuffer, error) {
	poolH, ok := d.load(pool)
	if !ok {
		return 0, fmt.Errorf("gpu: unknown command pool handle")
	}
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        poolH.(vk.CommandPool),
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(d.device, &info, buffers); res != vk.Success {
		return 0, fmt.Errorf("gpu: vkAllocateCommandBuffers failed: %s", ResultString(res))
	}
	id := CommandBuffer(d.newHandle())
	d.objects.Store(id, buffers[0])
	return id, nil
}

func (d *vulkanDriver) BeginCommandBuffer(cb CommandBuffer) error {
	h, ok := d.load(cb)
	if !ok {
		return fmt.Errorf("gpu: unknown command buffer handle")
	}
	info := vk.CommandBufferBeginInfo{SType: vk.StructureTypeCommandBufferBeginInfo}
	if res := vk.BeginCommandBuffer(h.(vk.CommandBuffer), &info); res != vk.Success {
		return fmt.Errorf("gpu: vkBeginCommandBuffer failed: %s", ResultString(res))
	}
	return nil
}

func (d *vulkanDriver) EndCommandBuffer(cb CommandBuffer) error {
	h, ok := d.load(cb)
	if !ok {
		return fmt.Errorf("gpu: unknown command buffer handle")
	}
	if res := vk.EndCommandBuffer(h.(vk.CommandBuffer)); res != vk.Success {
		return fmt.Errorf("gpu: vkEndCommandBuffer failed: %s", ResultString(res))
	}
	return nil
}

func (d *vulkanDriver) RecordLayoutTransition(cb CommandBuffer, images []Image) {
	h, ok := d.load(cb)
	if !ok {
		return
	}
	cmd := h.(vk.CommandBuffer)
	barriers := make([]vk.ImageMemoryBarrier, 0, len(images))
	for _, img := range images {
		imgH, ok := d.load(img)
		if !ok {
			continue
		}
		barriers = append(barriers, vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			OldLayout:           vk.ImageLayoutUndefined,
			NewLayout:           vk.ImageLayoutPresentSrc,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               imgH.(vk.Image),
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		})
	}
	vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
		0, 0, nil, 0, nil, uint32(len(barriers)), barriers)
}

func (d *vulkanDriver) RecordBlit(cb CommandBuffer, src Image, srcExtent Extent2D, dst Image, dstExtent Extent2D) {
	h, ok := d.load(cb)
	if !ok {
		return
	}
	cmd := h.(vk.CommandBuffer)
	srcH, _ := d.load(src)
	dstH, _ := d.load(dst)

	vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0, 1, []vk.MemoryBarrier{{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccessMask: vk.AccessFlags(vk.AccessTransferReadBit | vk.AccessTransferWriteBit),
		}}, 0, nil, 0, nil)

	blit := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), LayerCount: 1},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), LayerCount: 1},
	}
	blit.SrcOffsets[1] = vk.Offset3D{X: int32(srcExtent.Width), Y: int32(srcExtent.Height), Z: 1}
	blit.DstOffsets[1] = vk.Offset3D{X: int32(dstExtent.Width), Y: int32(dstExtent.Height), Z: 1}

	vk.CmdBlitImage(cmd, srcH.(vk.Image), vk.ImageLayoutGeneral, dstH.(vk.Image), vk.ImageLayoutPresentSrc,
		1, []vk.ImageBlit{blit}, vk.FilterNearest)
}

// --- Queue submission ------------------------------------------------

func (d *vulkanDriver) QueueSubmit(cb CommandBuffer, wait []Semaphore, signal []Semaphore, fence Fence) error {
	cbH, ok := d.load(cb)
	if !ok {
		return fmt.Errorf("gpu: unknown command buffer handle")
	}
	waitSems := make([]vk.Semaphore, len(wait))
	for i, s := range wait {
		h, _ := d.load(s)
		waitSems[i] = h.(vk.Semaphore)
	}
	signalSems := make([]vk.Semaphore, len(signal))
	for i, s := range signal {
		h, _ := d.load(s)
		signalSems[i] = h.(vk.Semaphore)
	}
	stageMask := vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waitSems)),
		PWaitSemaphores:      waitSems,
		PWaitDstStageMask:    []vk.PipelineStageFlags{stageMask},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cbH.(vk.CommandBuffer)},
		SignalSemaphoreCount: uint32(len(signalSems)),
		PSignalSemaphores:    signalSems,
	}

	var fenceH vk.Fence
	if fence != 0 {
		h, ok := d.load(fence)
		if ok {
			fenceH = h.(vk.Fence)
		}
	}

	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	if res := vk.QueueSubmit(d.queue, 1, []vk.SubmitInfo{submit}, fenceH); res != vk.Success {
		return fmt.Errorf("gpu: vkQueueSubmit failed: %s", ResultString(res))
	}
	return nil
}

func (d *vulkanDriver) QueuePresent(sc Swapchain, imageIndex uint32, wait Semaphore) error {
	scH, ok := d.load(sc)
	if !ok {
		return fmt.Errorf("gpu: unknown swapchain handle")
	}
	waitH, _ := d.load(wait)

	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{waitH.(vk.Semaphore)},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{scH.(vk.Swapchain)},
		PImageIndices:      []uint32{imageIndex},
	}

	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	res := vk.QueuePresent(d.queue, &info)
	if !resultIsSuccess(res) {
		return fmt.Errorf("gpu: vkQueuePresentKHR failed: %s", ResultString(res))
	}
	return nil
}

// --- Platform swapchain -------------------------------------------------

func (d *vulkanDriver) CreateSwapchain(surface Surface, imageCount uint32) (Swapchain, []Image, Extent2D, error) {
	extent := surface.CurrentExtent()

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface.Handle(),
		MinImageCount:    imageCount,
		ImageFormat:      vk.FormatR8g8b8a8Unorm,
		ImageColorSpace:  vk.ColorSpaceSrgbNonlinear,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		CompositeAlpha:   vk.CompositeAlphaInheritBit,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
	}

	var sc vk.Swapchain
	if res := vk.CreateSwapchain(d.device, &createInfo, nil, &sc); res != vk.Success {
		return 0, nil, Extent2D{}, fmt.Errorf("gpu: vkCreateSwapchainKHR failed: %s", ResultString(res))
	}

	var count uint32
	vk.GetSwapchainImages(d.device, sc, &count, nil)
	rawImages := make([]vk.Image, count)
	vk.GetSwapchainImages(d.device, sc, &count, rawImages)

	images := make([]Image, count)
	for i, raw := range rawImages {
		id := Image(d.newHandle())
		d.objects.Store(id, raw)
		images[i] = id
	}

	id := Swapchain(d.newHandle())
	d.objects.Store(id, sc)
	return id, images, extent, nil
}

func (d *vulkanDriver) DestroySwapchain(sc Swapchain) {
	if h, ok := d.loadAndDelete(sc); ok {
		vk.DeviceWaitIdle(d.device)
		vk.DestroySwapchain(d.device, h.(vk.Swapchain), nil)
	}
}

func (d *vulkanDriver) AcquireNextImage(sc Swapchain, semaphore Semaphore) (uint32, bool, error) {
	scH, ok := d.load(sc)
	if !ok {
		return 0, false, fmt.Errorf("gpu: unknown swapchain handle")
	}
	semH, _ := d.load(semaphore)

	var index uint32
	res := vk.AcquireNextImage(d.device, scH.(vk.Swapchain), ^uint64(0), semH.(vk.Semaphore), vk.NullFence, &index)
	switch {
	case resultIsSuccess(res):
		return index, false, nil
	case res == vk.ErrorOutOfDate:
		return 0, true, nil
	default:
		return 0, false, fmt.Errorf("gpu: vkAcquireNextImageKHR failed: %s", ResultString(res))
	}
}

func (d *vulkanDriver) Close() error {
	if d.device != nil {
		vk.DeviceWaitIdle(d.device)
		vk.DestroyDevice(d.device, nil)
	}
	if d.instance != nil {
		vk.DestroyInstance(d.instance, nil)
	}
	return nil
}

func (d *vulkanDriver) load(handle any) (any, bool) {
	return d.objects.Load(handle)
}

func (d *vulkanDriver) loadAndDelete(handle any) (any, bool) {
	return d.objects.LoadAndDelete(handle)
}

func vulkanDebugCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64,
	location uint64, messageCode int32, pLayerPrefix, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	core.LogWarn("gpu: validation [%s]: %s", pLayerPrefix, pMessage)
	return vk.Bool32(vk.False)
}
