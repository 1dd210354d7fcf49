// Package streamworker implements C5: per-stream goroutines that pull the
// latest frame from C1, optionally run C3, encode via C2, and publish into
// a C4 Broadcaster. Adapted from the capture/encode/overlay shape of the
// teacher's internal/stream/mjpeg.go, rewired onto a shared Broadcaster
// instead of per-client channels.
package streamworker

import (
	"image/color"

	"opensentry/internal/broadcast"
	"opensentry/internal/capture"
	"opensentry/internal/jpegenc"
	"opensentry/internal/motion"
	"opensentry/internal/overlay"
)

// RawParams is re-read on every produce tick.
type RawParams struct {
	MaxWidth int
	Quality  int
	FPS      int
}

// NewRawWorker builds a Broadcaster that downscales to MaxWidth (if wider)
// and encodes the latest capture frame, with no motion analysis.
func NewRawWorker(name string, src *capture.Source, getParams func() RawParams) *broadcast.Broadcaster {
	produce := func() []byte {
		frame := src.GetFrame()
		if frame == nil {
			return nil
		}
		p := getParams()
		w, h, pix := downscale(frame, p.MaxWidth)
		return jpegenc.Encode(w, h, pix, orDefault(p.Quality, 80))
	}
	getFPS := func() int { return orDefault(getParams().FPS, 15) }
	return broadcast.New(name, produce, getFPS)
}

// MotionParams is re-read on every produce tick; a change to VarThreshold
// or History is forwarded to the analyzer, which reinitializes per spec
// §4.3.
type MotionParams struct {
	RawParams
	Algorithm    motion.Algorithm
	MinArea      int
	Pad          int
	VarThreshold float64
	History      int
}

// MotionWorker additionally exposes GetLatest(), which returns the most
// recent motion-annotated frame without subscribing to the stream. The
// /api/snapshot route does not call it; it serves the snapshot worker's
// latest frame instead.
type MotionWorker struct {
	*broadcast.Broadcaster
	analyzer *motion.Analyzer
}

func (m *MotionWorker) GetLatest() (broadcast.EncodedFrame, bool) {
	return m.Latest()
}

// NewMotionWorker builds a motion-annotated Broadcaster. onResult, if
// non-nil, is invoked with every analysis result on the producer goroutine
// so callers (the websocket event feed) can derive start/end transitions
// without re-running detection themselves.
func NewMotionWorker(name string, src *capture.Source, getParams func() MotionParams, onResult func(motion.Result)) *MotionWorker {
	initial := getParams()
	analyzer := motion.New(initial.Algorithm, motion.Params{
		MinArea: initial.MinArea, Pad: initial.Pad,
		VarThreshold: initial.VarThreshold, History: initial.History,
	})

	produce := func() []byte {
		frame := src.GetFrame()
		if frame == nil {
			return nil
		}
		p := getParams()
		analyzer.SetParams(motion.Params{
			MinArea: p.MinArea, Pad: p.Pad,
			VarThreshold: p.VarThreshold, History: p.History,
		})
		res := analyzer.Analyze(frame)
		if onResult != nil {
			onResult(res)
		}

		rgba := overlay.BGRToRGBA(frame.Width, frame.Height, frame.Pix)
		status := "No Motion"
		statusColor := color.RGBA{0, 255, 0, 255}
		if res.Motion {
			status = "MOTION DETECTED"
			statusColor = color.RGBA{255, 0, 0, 255}
			if res.BBox != nil {
				overlay.Box(rgba, res.BBox.X, res.BBox.Y, res.BBox.W, res.BBox.H, color.RGBA{0, 255, 0, 255}, 2)
			}
		}
		overlay.Label(rgba, 10, 20, status, statusColor)

		pix := overlay.RGBAToBGR(rgba)
		w, h, scaledPix := downscalePix(frame.Width, frame.Height, pix, p.MaxWidth)
		return jpegenc.Encode(w, h, scaledPix, orDefault(p.Quality, 80))
	}
	getFPS := func() int { return orDefault(getParams().FPS, 15) }

	return &MotionWorker{Broadcaster: broadcast.New(name, produce, getFPS), analyzer: analyzer}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// downscale returns the frame's dims and pixel buffer, shrinking to
// maxWidth (preserving aspect ratio via nearest-neighbor) if the frame is
// wider than maxWidth. maxWidth <= 0 disables scaling.
func downscale(f *capture.Frame, maxWidth int) (int, int, []byte) {
	return downscalePix(f.Width, f.Height, f.Pix, maxWidth)
}

func downscalePix(width, height int, pix []byte, maxWidth int) (int, int, []byte) {
	if maxWidth <= 0 || width <= maxWidth {
		return width, height, pix
	}
	newW := maxWidth
	newH := height * newW / width
	if newH < 1 {
		newH = 1
	}
	out := make([]byte, newW*newH*3)
	for y := 0; y < newH; y++ {
		sy := y * height / newH
		for x := 0; x < newW; x++ {
			sx := x * width / newW
			si := (sy*width + sx) * 3
			di := (y*newW + x) * 3
			out[di], out[di+1], out[di+2] = pix[si], pix[si+1], pix[si+2]
		}
	}
	return newW, newH, out
}
