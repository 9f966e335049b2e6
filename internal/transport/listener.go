// Package transport implements the fd-passing connection layer: an
// abstract-namespace SOCK_SEQPACKET listener and per-connection
// send/recv primitives that carry a command or response record plus its
// ancillary file descriptors as one atomic datagram. Built on
// golang.org/x/sys/unix rather than the stdlib net package because net
// has no way to create a SOCK_SEQPACKET socket, bind it into the abstract
// namespace, or accept connections on one.
package transport

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/cassia-project/compositor/internal/core"
)

// AbstractAddr encodes name as a Linux abstract-namespace socket address:
// a leading NUL followed by the name bytes, no trailing NUL. The kernel
// distinguishes an abstract socket from a filesystem one purely by that
// leading zero byte.
func AbstractAddr(name string) string {
	return "\x00" + name
}

// Listener owns the listening SEQPACKET socket.
type Listener struct {
	fd int
}

// Listen creates, binds, and listens on an abstract-namespace SEQPACKET
// socket named name, with the given backlog.
func Listen(name string, backlog int) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: socket: %w", err)
	}
	sa := &unix.SockaddrUnix{Name: AbstractAddr(name)}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: bind: %w", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: listen: %w", err)
	}
	core.LogInfo("transport: listening on abstract socket %q (backlog %d)", name, backlog)
	return &Listener{fd: fd}, nil
}

// Accept blocks for the next incoming connection.
func (l *Listener) Accept() (*Conn, error) {
	connFd, _, err := unix.Accept(l.fd)
	if err != nil {
		return nil, fmt.Errorf("transport: accept: %w", err)
	}
	return newConn(connFd), nil
}

// Close stops accepting and releases the listening socket.
func (l *Listener) Close() error {
	return unix.Close(l.fd)
}
