package overlay

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBGRToRGBARoundTripsThroughRGBAToBGR(t *testing.T) {
	bgr := []byte{10, 20, 30, 40, 50, 60}
	img := BGRToRGBA(2, 1, bgr)
	back := RGBAToBGR(img)
	assert.Equal(t, bgr, back)
}

func TestBoxDrawsOnBorderOnly(t *testing.T) {
	img := BGRToRGBA(10, 10, make([]byte, 10*10*3))
	Box(img, 2, 2, 4, 4, color.RGBA{255, 0, 0, 255}, 1)

	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(2, 2))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(4, 4))
}

func TestLabelDoesNotPanicNearEdges(t *testing.T) {
	img := BGRToRGBA(20, 20, make([]byte, 20*20*3))
	assert.NotPanics(t, func() {
		Label(img, 0, 0, "hi", color.RGBA{255, 255, 255, 255})
		Label(img, 19, 19, "x", color.RGBA{255, 255, 255, 255})
	})
}
