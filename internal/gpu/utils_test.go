package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/goki/vulkan"
)

func TestResultStringKnownCodes(t *testing.T) {
	assert.Equal(t, "VK_SUCCESS", ResultString(vk.Success))
	assert.Equal(t, "VK_ERROR_DEVICE_LOST", ResultString(vk.ErrorDeviceLost))
	assert.Equal(t, "VK_ERROR_OUT_OF_DATE_KHR", ResultString(vk.ErrorOutOfDate))
}

func TestResultStringUnknownCode(t *testing.T) {
	assert.Equal(t, "VK_ERROR_UNKNOWN", ResultString(vk.Result(-1000)))
}

func TestResultIsSuccessTreatsSuboptimalAndNotReadyAsSuccess(t *testing.T) {
	assert.True(t, resultIsSuccess(vk.Success))
	assert.True(t, resultIsSuccess(vk.Suboptimal))
	assert.True(t, resultIsSuccess(vk.NotReady))
	assert.False(t, resultIsSuccess(vk.ErrorDeviceLost))
}

func TestSafeCStringAppendsNulOnce(t *testing.T) {
	s := safeCString("hello")
	assert.Equal(t, "hello\x00", s)
	assert.Equal(t, s, safeCString(s))
}

func TestSafeCStringsMapsEveryElement(t *testing.T) {
	out := safeCStrings([]string{"a", "b\x00"})
	assert.Equal(t, []string{"a\x00", "b\x00"}, out)
}
