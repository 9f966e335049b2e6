package core

import "errors"

var (
	// ErrUnknownHandle is returned when a command references a swapchain
	// handle that was never allocated or has already been torn down.
	ErrUnknownHandle = errors.New("unknown swapchain handle")
	// ErrImageIndexOutOfRange is returned when a command references a
	// buffer index outside a swapchain's image pool.
	ErrImageIndexOutOfRange = errors.New("image index out of range")
	// ErrInvalidBufferState is returned when an operation is attempted on
	// a buffer that is not in the state the operation requires.
	ErrInvalidBufferState = errors.New("buffer is not in the expected state")
	// ErrUnsupportedFormat is returned when allocate_swapchain names a
	// format with no platform pixel format mapping.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrConnectionClosed is returned to in-flight waiters when their
	// owning connection is torn down.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrTransport wraps any I/O failure on the fd-passing socket.
	ErrTransport = errors.New("transport error")
	// ErrProtocol is returned by the wire dispatcher for an unknown
	// command class or type. Other malformed frames (a record that fails
	// to decode or encode) surface as the codec's own errors.
	ErrProtocol = errors.New("protocol error")
	// ErrDeviceLost signals a fatal, unrecoverable GPU context failure.
	// The display loop does not handle it specially: a frame that fails
	// with it is logged and the loop goes on to the next frame, keeping
	// the current platform swapchain.
	ErrDeviceLost = errors.New("gpu device lost")
	// ErrTimeout is returned by a dequeue wait that elapsed its deadline
	// without a buffer becoming free. Not a connection error — it travels
	// in the result field and the connection stays open.
	ErrTimeout = errors.New("dequeue timed out")
)

// ResultCode mirrors the VkResult-flavored status codes carried in the
// wire protocol's result fields.
type ResultCode int32

const (
	ResultSuccess ResultCode = iota
	ResultTimeout
	ResultErrorInvalidHandle
	ResultErrorOutOfRange
	ResultErrorInvalidState
	ResultErrorDeviceLost
	ResultErrorInitializationFailed
	ResultErrorUnknown
)

func (r ResultCode) String() string {
	switch r {
	case ResultSuccess:
		return "SUCCESS"
	case ResultTimeout:
		return "TIMEOUT"
	case ResultErrorInvalidHandle:
		return "ERROR_INVALID_HANDLE"
	case ResultErrorOutOfRange:
		return "ERROR_OUT_OF_RANGE"
	case ResultErrorInvalidState:
		return "ERROR_INVALID_STATE"
	case ResultErrorDeviceLost:
		return "ERROR_DEVICE_LOST"
	case ResultErrorInitializationFailed:
		return "ERROR_INITIALIZATION_FAILED"
	default:
		return "ERROR_UNKNOWN"
	}
}

// ResultFromError maps an engine error to the wire result code a
// connection-recoverable failure is reported with. Unrecognized errors
// map to ResultErrorUnknown; the connection stays open regardless.
func ResultFromError(err error) ResultCode {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, ErrTimeout):
		return ResultTimeout
	case errors.Is(err, ErrUnknownHandle):
		return ResultErrorInvalidHandle
	case errors.Is(err, ErrImageIndexOutOfRange):
		return ResultErrorOutOfRange
	case errors.Is(err, ErrInvalidBufferState):
		return ResultErrorInvalidState
	case errors.Is(err, ErrUnsupportedFormat):
		return ResultErrorInitializationFailed
	case errors.Is(err, ErrDeviceLost):
		return ResultErrorDeviceLost
	default:
		return ResultErrorUnknown
	}
}
