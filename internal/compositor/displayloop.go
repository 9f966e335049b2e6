package compositor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/cassia-project/compositor/internal/core"
	"github.com/cassia-project/compositor/internal/gpu"
	"github.com/cassia-project/compositor/internal/swapchain"
)

// frameSlot bundles the per-frame-in-flight GPU objects: one command
// pool/buffer pair, the semaphore signaled when the platform image has
// been acquired, the semaphore signaled when this frame's composite work
// is done (exported as clients' new acquire fence), and the fence the
// next use of this slot waits on before reusing it. Grounded on the
// teacher's per-CurrentFrame ImageAvailableSemaphores / QueueCompleteSemaphores /
// InFlightFences arrays in engine/renderer/vulkan/context.go, generalized
// from one array per concern to one struct per slot.
type frameSlot struct {
	pool               gpu.CommandPool
	cmd                gpu.CommandBuffer
	imageAcquired      gpu.Semaphore
	clientPresentDone  gpu.Semaphore
	compositeDoneFence gpu.Fence
}

// DisplayLoop is the single dedicated composition thread (C5). One
// instance is a process-wide singleton, constructed by main at process
// start, before any client connects; construction is not deferred to the
// first client connection.
type DisplayLoop struct {
	driver   gpu.Driver
	surfaceP *SurfaceProvider
	engine   *swapchain.Engine

	framesInFlight int
	frameIndex     uint64

	slots []frameSlot

	platformSwapchain gpu.Swapchain
	platformImages    []gpu.Image
	presentReady      []gpu.Semaphore
	surfaceEpoch      uint64
	extent            gpu.Extent2D
	needsLayoutTxn    bool

	frameClock *core.Clock
	frameTimer *core.FrameTimer

	stop chan struct{}
}

// NewDisplayLoop returns a DisplayLoop ready to Run in its own goroutine.
func NewDisplayLoop(driver gpu.Driver, surfaceP *SurfaceProvider, engine *swapchain.Engine, framesInFlight int) *DisplayLoop {
	return &DisplayLoop{
		driver:         driver,
		surfaceP:       surfaceP,
		engine:         engine,
		framesInFlight: framesInFlight,
		frameClock:     core.NewClock(),
		frameTimer:     core.NewFrameTimer(),
		stop:           make(chan struct{}),
	}
}

// Stop signals Run to exit after finishing its current iteration.
func (d *DisplayLoop) Stop() { close(d.stop) }

// Run executes the composition loop until Stop is called. Each iteration
// follows the teacher's BeginFrame/EndFrame split, generalized to
// composite every active virtual swapchain rather than one scene.
func (d *DisplayLoop) Run() error {
	for {
		select {
		case <-d.stop:
			return nil
		default:
		}

		surf, epoch, ok := d.surfaceP.WaitForSurface()
		if !ok {
			return nil
		}

		if d.platformImages == nil || epoch != d.surfaceEpoch {
			if err := d.recreatePlatformSwapchain(surf, epoch); err != nil {
				core.LogError("compositor: swapchain recreation failed: %v", err)
				time.Sleep(16 * time.Millisecond)
				continue
			}
		}

		d.frameClock.Start()
		if err := d.compositeFrame(); err != nil {
			core.LogWarn("compositor: frame %d failed: %v", d.frameIndex, err)
		}
		d.frameClock.Update()
		d.frameTimer.Record(d.frameClock.Elapsed().Seconds())
		if d.frameIndex%60 == 0 {
			core.LogDebug("compositor: pacing avg=%.2fms fps=%.1f", d.frameTimer.AverageFrameMS(), d.frameTimer.FPS())
		}
		d.frameIndex++
	}
}

func (d *DisplayLoop) slot() *frameSlot {
	return &d.slots[int(d.frameIndex)%d.framesInFlight]
}

// recreatePlatformSwapchain tears down the current platform swapchain
// (if any) and creates a fresh one at surf's current extent, sized
// the configured frames-in-flight count.
func (d *DisplayLoop) recreatePlatformSwapchain(surf gpu.Surface, epoch uint64) error {
	if d.platformSwapchain != 0 {
		d.driver.DestroySwapchain(d.platformSwapchain)
	}

	sc, images, extent, err := d.driver.CreateSwapchain(surf, uint32(d.framesInFlight))
	if err != nil {
		return fmt.Errorf("compositor: create swapchain: %w", err)
	}
	d.platformSwapchain = sc
	d.platformImages = images
	d.extent = extent
	d.surfaceEpoch = epoch
	d.needsLayoutTxn = true

	if err := d.ensureSlots(); err != nil {
		return err
	}
	return d.ensurePresentReadySemaphores(len(images))
}

func (d *DisplayLoop) ensureSlots() error {
	if len(d.slots) == d.framesInFlight {
		return nil
	}
	d.slots = make([]frameSlot, d.framesInFlight)
	for i := range d.slots {
		pool, err := d.driver.CreateCommandPool()
		if err != nil {
			return err
		}
		cmd, err := d.driver.AllocateCommandBuffer(pool)
		if err != nil {
			return err
		}
		imgAcq, err := d.driver.CreateSemaphore()
		if err != nil {
			return err
		}
		presentDone, err := d.driver.CreateSemaphore()
		if err != nil {
			return err
		}
		fence, err := d.driver.CreateFence(true)
		if err != nil {
			return err
		}
		d.slots[i] = frameSlot{
			pool:               pool,
			cmd:                cmd,
			imageAcquired:      imgAcq,
			clientPresentDone:  presentDone,
			compositeDoneFence: fence,
		}
	}
	return nil
}

func (d *DisplayLoop) ensurePresentReadySemaphores(n int) error {
	for len(d.presentReady) < n {
		sem, err := d.driver.CreateSemaphore()
		if err != nil {
			return err
		}
		d.presentReady = append(d.presentReady, sem)
	}
	return nil
}

// compositeFrame runs one acquire/blit/submit/present cycle.
func (d *DisplayLoop) compositeFrame() error {
	slot := d.slot()

	if err := d.driver.WaitForFence(slot.compositeDoneFence, time.Second); err != nil {
		return fmt.Errorf("wait composite fence: %w", err)
	}
	if err := d.driver.ResetFence(slot.compositeDoneFence); err != nil {
		return err
	}

	if err := d.driver.BeginCommandBuffer(slot.cmd); err != nil {
		return err
	}

	imageIndex, outOfDate, err := d.driver.AcquireNextImage(d.platformSwapchain, slot.imageAcquired)
	if err != nil {
		return fmt.Errorf("acquire next image: %w", err)
	}
	if outOfDate {
		d.platformImages = nil // force recreation next iteration
		return nil
	}

	wait := []gpu.Semaphore{slot.imageAcquired}

	if d.needsLayoutTxn {
		d.driver.RecordLayoutTransition(slot.cmd, d.platformImages)
		d.needsLayoutTxn = false
	}

	dstImage := d.platformImages[imageIndex]
	now := time.Now()
	targets := d.engine.BeginFrame(now, func(handle uint32, fps float64) {
		core.LogInfo("swapchain %d: %.1f fps", handle, fps)
	})
	for _, t := range targets {
		d.driver.RecordBlit(slot.cmd, t.Image, t.Extent, dstImage, d.extent)
		if t.WaitSemaphore != 0 {
			wait = append(wait, t.WaitSemaphore)
		}
	}

	if err := d.driver.EndCommandBuffer(slot.cmd); err != nil {
		return err
	}

	signal := []gpu.Semaphore{slot.clientPresentDone, d.presentReady[imageIndex]}
	if err := d.driver.QueueSubmit(slot.cmd, wait, signal, slot.compositeDoneFence); err != nil {
		return fmt.Errorf("queue submit: %w", err)
	}

	if err := d.driver.QueuePresent(d.platformSwapchain, imageIndex, d.presentReady[imageIndex]); err != nil {
		return fmt.Errorf("queue present: %w", err)
	}

	exportedFd, err := d.driver.ExportSemaphoreFd(slot.clientPresentDone)
	if err != nil {
		return fmt.Errorf("export semaphore fd: %w", err)
	}
	exportedFd = normalizeExportedFenceFd(exportedFd)

	handles := make([]uint32, len(targets))
	for i, t := range targets {
		handles[i] = t.Handle
	}
	d.engine.EndFrame(handles, func() (int, error) {
		if exportedFd < 0 {
			return -1, nil
		}
		return unix.Dup(exportedFd)
	})
	if exportedFd >= 0 {
		unix.Close(exportedFd)
	}

	return nil
}
