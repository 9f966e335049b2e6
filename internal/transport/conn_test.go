package transport

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// connPair returns two Conns over a connected SOCK_SEQPACKET socketpair,
// the same message-boundary-preserving transport Listen/Accept produce,
// without needing an abstract-namespace bind.
func connPair(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET, 0)
	require.NoError(t, err)
	return newConn(fds[0]), newConn(fds[1])
}

func TestSendRecvPlainRecordNoFds(t *testing.T) {
	a, b := connPair(t)
	defer a.Close()
	defer b.Close()

	payload := []byte("hello cassia")
	require.NoError(t, a.Send(payload, nil))

	body, fds, err := b.Recv()
	require.NoError(t, err)
	assert.Equal(t, payload, body)
	assert.Empty(t, fds)
}

func TestSendRecvSentinelFdIsNotTransmittedAsAncillary(t *testing.T) {
	a, b := connPair(t)
	defer a.Close()
	defer b.Close()

	payload := []byte("no fence")
	require.NoError(t, a.Send(payload, []int{-1}))

	body, fds, err := b.Recv()
	require.NoError(t, err)
	assert.Equal(t, payload, body)
	assert.Empty(t, fds)
}

func TestSendRecvCarriesRealFd(t *testing.T) {
	a, b := connPair(t)
	defer a.Close()
	defer b.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()
	defer r.Close()

	// Send takes ownership of every real fd in the list and closes it on
	// success, so hand it a dup and keep r's own fd live for the deferred
	// Close above.
	dup, err := unix.Dup(int(r.Fd()))
	require.NoError(t, err)

	payload := []byte("fence attached")
	require.NoError(t, a.Send(payload, []int{dup}))

	body, fds, err := b.Recv()
	require.NoError(t, err)
	assert.Equal(t, payload, body)
	require.Len(t, fds, 1)
	assert.NotEqual(t, -1, fds[0])
	unix.Close(fds[0])
}

func TestSendRecvCarriesMultipleFds(t *testing.T) {
	a, b := connPair(t)
	defer a.Close()
	defer b.Close()

	r1, w1, err := os.Pipe()
	require.NoError(t, err)
	defer w1.Close()
	defer r1.Close()
	r2, w2, err := os.Pipe()
	require.NoError(t, err)
	defer w2.Close()
	defer r2.Close()

	dup1, err := unix.Dup(int(r1.Fd()))
	require.NoError(t, err)
	dup2, err := unix.Dup(int(r2.Fd()))
	require.NoError(t, err)

	require.NoError(t, a.Send([]byte("two fds"), []int{dup1, dup2}))

	_, fds, err := b.Recv()
	require.NoError(t, err)
	require.Len(t, fds, 2)
	for _, fd := range fds {
		unix.Close(fd)
	}
}

func TestSendPlatformHandleCarriesFdAheadOfResponse(t *testing.T) {
	a, b := connPair(t)
	defer a.Close()
	defer b.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()
	defer r.Close()
	dup, err := unix.Dup(int(r.Fd()))
	require.NoError(t, err)

	require.NoError(t, a.SendPlatformHandle(dup))
	require.NoError(t, a.Send([]byte("response"), nil))

	_, fds, err := b.Recv()
	require.NoError(t, err)
	require.Len(t, fds, 1)
	unix.Close(fds[0])

	body, fds, err := b.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("response"), body)
	assert.Empty(t, fds)
}
