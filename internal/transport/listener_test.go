package transport

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestAbstractAddrPrependsNulByte(t *testing.T) {
	addr := AbstractAddr("cassia")
	require.Len(t, addr, len("cassia")+1)
	assert.Equal(t, byte(0), addr[0])
	assert.Equal(t, "cassia", addr[1:])
}

func TestListenAcceptRoundTrip(t *testing.T) {
	name := fmt.Sprintf("cassia-test-%d", unix.Getpid())
	l, err := Listen(name, 4)
	require.NoError(t, err)
	defer l.Close()

	clientFd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET, 0)
	require.NoError(t, err)

	err = unix.Connect(clientFd, &unix.SockaddrUnix{Name: AbstractAddr(name)})
	require.NoError(t, err)

	conn, err := l.Accept()
	require.NoError(t, err)
	defer conn.Close()

	// newConn takes ownership of clientFd (wraps and closes the raw fd
	// once net.FileConn has duped it), so no separate unix.Close here.
	client := newConn(clientFd)
	defer client.Close()
	require.NoError(t, client.Send([]byte("ping"), nil))

	body, fds, err := conn.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), body)
	assert.Empty(t, fds)
}
