package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	req := AllocateSwapchainRequest{
		Header:       Header{Class: ClassCompositor, Type: TypeAllocateSwapchain},
		WindowHandle: 0xdeadbeef,
		Format:       37,
		Width:        1920,
		Height:       1080,
		Usage:        1,
		Composite:    0,
		ImageCount:   3,
	}
	data, err := Encode(req, MaxCommandSize)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(data), MaxCommandSize)

	var got AllocateSwapchainRequest
	require.NoError(t, Decode(data, &got))
	assert.Equal(t, req, got)
}

func TestEncodeRejectsOversizedRecord(t *testing.T) {
	req := AllocateSwapchainRequest{}
	_, err := Encode(req, 4)
	assert.Error(t, err)
}

func TestPeekHeaderReadsTagWithoutFullDecode(t *testing.T) {
	req := QueueRequest{
		Header:     Header{Class: ClassCompositor, Type: TypeQueue},
		Handle:     7,
		ImageIndex: 2,
	}
	data, err := Encode(req, MaxCommandSize)
	require.NoError(t, err)

	hdr, err := PeekHeader(data)
	require.NoError(t, err)
	assert.Equal(t, ClassCompositor, hdr.Class)
	assert.Equal(t, TypeQueue, hdr.Type)
}

func TestDispatcherRoutesToRegisteredHandler(t *testing.T) {
	d := NewDispatcher()
	called := false
	d.Register(ClassCompositor, TypeDequeue, func(body []byte, fds []int) ([]byte, []int, error) {
		called = true
		return []byte("ok"), nil, nil
	})

	resp, _, err := d.Dispatch(ClassCompositor, TypeDequeue, nil, nil)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, []byte("ok"), resp)
}

func TestDispatcherRejectsUnknownClassOrType(t *testing.T) {
	d := NewDispatcher()
	d.Register(ClassCompositor, TypeQueue, func([]byte, []int) ([]byte, []int, error) {
		return nil, nil, nil
	})

	_, _, err := d.Dispatch(CommandClass(99), TypeQueue, nil, nil)
	assert.Error(t, err)

	_, _, err = d.Dispatch(ClassCompositor, CommandType(99), nil, nil)
	assert.Error(t, err)
}
