package mockdriver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cassia-project/compositor/internal/gpu"
)

func TestSurfaceCurrentExtentReflectsConstructor(t *testing.T) {
	s := NewSurface(1280, 720)
	assert.Equal(t, gpu.Extent2D{Width: 1280, Height: 720}, s.CurrentExtent())
}

func TestSurfaceResizeUpdatesExtent(t *testing.T) {
	s := NewSurface(1280, 720)
	s.Resize(1920, 1080)
	assert.Equal(t, gpu.Extent2D{Width: 1920, Height: 1080}, s.CurrentExtent())
}

func TestSurfaceSatisfiesGpuSurface(t *testing.T) {
	var _ gpu.Surface = NewSurface(640, 480)
}
