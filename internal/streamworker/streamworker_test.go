package streamworker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opensentry/internal/capture"
	"opensentry/internal/motion"
)

func solidFrame(w, h int, v byte) *capture.Frame {
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = v
	}
	return &capture.Frame{Width: w, Height: h, Pix: pix, Timestamp: time.Now()}
}

func TestDownscalePreservesAspectAndShrinks(t *testing.T) {
	w, h, pix := downscalePix(640, 480, make([]byte, 640*480*3), 320)
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)
	assert.Len(t, pix, 320*240*3)
}

func TestDownscaleNoopWhenNarrowerThanMax(t *testing.T) {
	src := make([]byte, 100*50*3)
	w, h, pix := downscalePix(100, 50, src, 640)
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
	assert.Same(t, &src[0], &pix[0])
}

func TestRawWorkerHasNoFrameUntilCaptureStarts(t *testing.T) {
	src := capture.New(capture.Config{}, nil)

	b := NewRawWorker("raw-test", src, func() RawParams {
		return RawParams{MaxWidth: 0, Quality: 80, FPS: 30}
	})
	_, ok := b.Latest()
	assert.False(t, ok, "no frame has been captured yet")
}

func TestMotionWorkerDoesNotInvokeOnResultBeforeStart(t *testing.T) {
	var gotCalls int
	var lastMotion bool

	src := capture.New(capture.Config{}, nil)

	mw := NewMotionWorker("motion-test", src, func() MotionParams {
		return MotionParams{
			RawParams: RawParams{Quality: 80, FPS: 30},
			Algorithm: motion.AlgoFrameDiff,
			MinArea:   5,
		}
	}, func(res motion.Result) {
		gotCalls++
		lastMotion = res.Motion
	})
	require.NotNil(t, mw)
	assert.Equal(t, 0, gotCalls)
	assert.False(t, lastMotion)
}
