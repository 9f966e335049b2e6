// Package server implements the accept loop and per-connection command
// dispatch: the supervisor described as driving C1's fd-passing transport
// and routing decoded frames into the virtual swapchain engine (C4).
// Generalizes the teacher's engine.go Run loop from a single render scene
// driven by one goroutine to many independently-dispatched connections,
// each with its own lifetime and its own set of owned swapchains.
package server

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cassia-project/compositor/internal/core"
	"github.com/cassia-project/compositor/internal/swapchain"
	"github.com/cassia-project/compositor/internal/transport"
)

// Server accepts connections on a transport.Listener and dispatches their
// command frames against a shared engine. One Server is a process-wide
// singleton constructed once the GPU context is up.
type Server struct {
	engine *swapchain.Engine

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// New returns a Server dispatching commands against engine.
func New(engine *swapchain.Engine) *Server {
	return &Server{engine: engine, stop: make(chan struct{})}
}

// Serve runs the accept loop until Close is called, at which point
// ln.Accept's resulting error is swallowed and Serve returns nil. Any
// other accept failure is returned to the caller.
func (s *Server) Serve(ln *transport.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stop:
				return nil
			default:
			}
			return fmt.Errorf("server: accept: %w", err)
		}

		id := uuid.New()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(id, conn)
		}()
	}
}

// Close signals Serve to stop treating accept errors as fatal and blocks
// until every in-flight connection handler has released its swapchains.
// Callers must also close the underlying Listener so Accept actually
// unblocks with an error.
func (s *Server) Close() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// serveConn owns one client connection end to end: it decodes frames,
// dispatches them against the engine, writes responses, and on any
// terminal condition tears down every virtual swapchain this connection
// allocated — closing fds still held by in-flight state that hadn't
// transferred to the engine, per the transport's disconnect contract.
//
// Frame handling runs off the read loop, one goroutine per decoded frame,
// so a dequeue blocked on Engine.Dequeue's condition variable never stalls
// conn.Recv. Without that split, a client that disconnects mid-dequeue
// would never be noticed: the read loop is the only thing that observes
// the disconnect, and it would be parked waiting on the same frame's
// handler to return. A protocol violation (Dispatch's core.ErrProtocol)
// is reported back over fatalCh so the read loop tears the connection
// down exactly as it did when dispatch ran inline.
func (s *Server) serveConn(id uuid.UUID, conn *transport.Conn) {
	core.LogInfo("server: connection %s opened", id)

	var ownedMu sync.Mutex
	var owned []uint32
	dispatcher := s.buildDispatcher(conn, &ownedMu, &owned)

	fatalCh := make(chan error, 1)
	reportFatal := func(err error) {
		select {
		case fatalCh <- err:
		default:
		}
	}

	var all sync.WaitGroup
	all.Add(1)
	go func() {
		defer all.Done()
		for {
			body, fds, err := conn.Recv()
			if err != nil {
				reportFatal(err)
				return
			}
			if body == nil {
				continue // zero-length keep-alive
			}

			all.Add(1)
			go func(body []byte, fds []int) {
				defer all.Done()
				if err := s.handleFrame(dispatcher, conn, body, fds); err != nil {
					reportFatal(err)
				}
			}(body, fds)
		}
	}()

	core.LogWarn("server: connection %s: %v", id, <-fatalCh)

	// Closing the connection unblocks the reader goroutine above (Recv
	// returns an error) and fails any response write still in flight.
	conn.Close()

	// Destroy marks every owned swapchain closed and wakes its dequeue
	// waiters before the handlers below are joined, so a frame blocked in
	// Engine.Dequeue returns instead of leaving all.Wait blocked forever.
	ownedMu.Lock()
	handles := append([]uint32(nil), owned...)
	ownedMu.Unlock()
	for _, h := range handles {
		s.engine.Destroy(h)
	}

	all.Wait()

	// An allocate that raced the teardown above can have appended its
	// handle after the snapshot; nothing appends once all.Wait returns,
	// so one more sweep is exhaustive.
	ownedMu.Lock()
	stragglers := owned[len(handles):]
	ownedMu.Unlock()
	for _, h := range stragglers {
		s.engine.Destroy(h)
	}

	core.LogInfo("server: connection %s closed, %d swapchain(s) released", id, len(owned))
}
