package motion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opensentry/internal/capture"
)

func solidFrame(w, h int, v byte) *capture.Frame {
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = v
	}
	return &capture.Frame{Width: w, Height: h, Pix: pix, Timestamp: time.Now()}
}

func TestFrameDiffDetectsChange(t *testing.T) {
	a := New(AlgoFrameDiff, Params{MinArea: 5, Pad: 0})

	r1 := a.Analyze(solidFrame(64, 64, 10))
	require.False(t, r1.Motion, "first frame only primes the model")

	bright := solidFrame(64, 64, 10)
	for y := 20; y < 40; y++ {
		for x := 20; x < 40; x++ {
			i := (y*64 + x) * 3
			bright.Pix[i], bright.Pix[i+1], bright.Pix[i+2] = 250, 250, 250
		}
	}
	r2 := a.Analyze(bright)
	assert.True(t, r2.Motion)
	assert.Greater(t, r2.TotalAreaPx, 0)
	require.NotNil(t, r2.BBox)
}

func TestFrameDiffNoChange(t *testing.T) {
	a := New(AlgoFrameDiff, Params{MinArea: 5, Pad: 0})
	a.Analyze(solidFrame(32, 32, 50))
	r := a.Analyze(solidFrame(32, 32, 50))
	assert.False(t, r.Motion)
}

func TestSetParamsResetsModel(t *testing.T) {
	a := New(AlgoMOG2, Params{MinArea: 5, VarThreshold: 16, History: 10})
	a.Analyze(solidFrame(32, 32, 50))
	require.NotNil(t, a.model)

	a.SetParams(Params{MinArea: 5, VarThreshold: 25, History: 10})
	assert.Nil(t, a.model)
	assert.Equal(t, stateUninit, a.state)
}
