package server

import (
	"math"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/cassia-project/compositor/internal/core"
	"github.com/cassia-project/compositor/internal/gpu"
	"github.com/cassia-project/compositor/internal/transport"
	"github.com/cassia-project/compositor/internal/wire"
)

// buildDispatcher wires the three compositor commands against the shared
// engine, closing over this connection so allocate_swapchain can push
// platform buffer handles ahead of its response and so every handle it
// allocates is recorded in owned for teardown on disconnect. ownedMu
// guards owned since frames now dispatch concurrently, one goroutine per
// decoded frame, instead of sequentially off a single read loop.
func (s *Server) buildDispatcher(conn *transport.Conn, ownedMu *sync.Mutex, owned *[]uint32) *wire.Dispatcher {
	d := wire.NewDispatcher()
	d.Register(wire.ClassCompositor, wire.TypeAllocateSwapchain, s.handleAllocateSwapchain(conn, ownedMu, owned))
	d.Register(wire.ClassCompositor, wire.TypeDequeue, s.handleDequeue())
	d.Register(wire.ClassCompositor, wire.TypeQueue, s.handleQueue())
	return d
}

// handleFrame decodes the leading header, dispatches, and writes the
// response. A dispatch error (unknown class/type, malformed record) is
// fatal to the connection per the wire contract.
func (s *Server) handleFrame(d *wire.Dispatcher, conn *transport.Conn, body []byte, fds []int) error {
	hdr, err := wire.PeekHeader(body)
	if err != nil {
		return err
	}

	respBody, respFds, err := d.Dispatch(hdr.Class, hdr.Type, body, fds)
	if err != nil {
		return err
	}
	return conn.Send(respBody, respFds)
}

func (s *Server) handleAllocateSwapchain(conn *transport.Conn, ownedMu *sync.Mutex, owned *[]uint32) wire.Handler {
	return func(body []byte, fds []int) ([]byte, []int, error) {
		var req wire.AllocateSwapchainRequest
		if err := wire.Decode(body, &req); err != nil {
			return nil, nil, err
		}

		sendHandle := func(buf gpu.PlatformBuffer) error {
			return conn.SendPlatformHandle(buf.Fd)
		}

		handle, err := s.engine.Allocate(
			gpu.Format(req.Format),
			gpu.Extent2D{Width: req.Width, Height: req.Height},
			gpu.UsageFlags(req.Usage),
			gpu.CompositeAlpha(req.Composite),
			int(req.ImageCount),
			sendHandle,
		)
		if err == nil {
			ownedMu.Lock()
			*owned = append(*owned, handle)
			ownedMu.Unlock()
			core.LogInfo("server: allocate_swapchain: handle %d, %dx%d, %d images", handle, req.Width, req.Height, req.ImageCount)
		}

		resp := wire.AllocateSwapchainResponse{
			Result: int32(core.ResultFromError(err)),
			Handle: handle,
		}
		respBody, encErr := wire.Encode(resp, wire.MaxResponseSize)
		if encErr != nil {
			return nil, nil, encErr
		}
		return respBody, nil, nil
	}
}

func (s *Server) handleDequeue() wire.Handler {
	return func(body []byte, fds []int) ([]byte, []int, error) {
		var req wire.DequeueRequest
		if err := wire.Decode(body, &req); err != nil {
			return nil, nil, err
		}

		timeout := time.Duration(math.MaxInt64)
		if req.TimeoutNs < uint64(math.MaxInt64) {
			timeout = time.Duration(req.TimeoutNs)
		}
		imageIndex, fenceFd, err := s.engine.Dequeue(req.Handle, timeout)

		resp := wire.DequeueResponse{
			Result:     int32(core.ResultFromError(err)),
			ImageIndex: imageIndex,
		}
		respBody, encErr := wire.Encode(resp, wire.MaxResponseSize)
		if encErr != nil {
			return nil, nil, encErr
		}
		if err != nil {
			return respBody, []int{-1}, nil
		}
		return respBody, []int{fenceFd}, nil
	}
}

func (s *Server) handleQueue() wire.Handler {
	return func(body []byte, fds []int) ([]byte, []int, error) {
		var req wire.QueueRequest
		if err := wire.Decode(body, &req); err != nil {
			return nil, nil, err
		}

		// A queue command with no ancillary fd means the client's
		// semaphore is already signaled, the same convention the
		// dequeue response uses for "no fence".
		syncFd := -1
		if len(fds) > 0 {
			syncFd = fds[0]
		}

		err := s.engine.Queue(req.Handle, req.ImageIndex, syncFd)
		if err != nil && syncFd >= 0 {
			// Ownership only transfers to the driver once the import
			// inside Queue succeeds; any earlier validation failure
			// leaves us holding the only reference.
			unix.Close(syncFd)
		}

		resp := wire.QueueResponse{
			Result: int32(core.ResultFromError(err)),
		}
		respBody, encErr := wire.Encode(resp, wire.MaxResponseSize)
		if encErr != nil {
			return nil, nil, encErr
		}
		return respBody, nil, nil
	}
}
