// Package motion implements C3: background-subtraction and frame-differencing
// motion analysis over raw BGR frames, grounded in
// original_source/helpers/motion.py's half-resolution processing pipeline.
package motion

import (
	"image"
	"sync"

	"opensentry/internal/capture"
)

// Algorithm selects which of the two interchangeable analyzers to run.
type Algorithm int

const (
	AlgoMOG2 Algorithm = iota
	AlgoFrameDiff
)

// Params is an immutable snapshot of analyzer configuration taken per
// iteration; changing VarThreshold or History forces reinitialization.
type Params struct {
	MinArea      int
	Pad          int
	VarThreshold float64
	History      int
}

// Contour is an axis-aligned bounding box of one connected foreground
// component, in the coordinates of the processing resolution (half of the
// source frame).
type Contour struct {
	X, Y, W, H int
	Area       int
}

// Result is the output of one Analyze call.
type Result struct {
	Motion       bool
	TotalAreaPx  int
	Contours     []Contour
	BBox         *Contour // union bbox of surviving contours, full-res, padded
}

type state int

const (
	stateUninit state = iota
	stateReady
)

// Analyzer runs one of the two algorithms against a stream of frames.
type Analyzer struct {
	mu    sync.Mutex
	algo  Algorithm
	state state
	prev  []byte // previous half-res grayscale frame (frame-diff path)
	model *mog2  // background model (MOG2 path)

	params Params
}

func New(algo Algorithm, params Params) *Analyzer {
	return &Analyzer{algo: algo, params: params}
}

// SetParams updates the analyzer parameters; a change to VarThreshold or
// History resets the state machine to UNINIT so the model rebuilds on the
// next Analyze call.
func (a *Analyzer) SetParams(p Params) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p.VarThreshold != a.params.VarThreshold || p.History != a.params.History {
		a.state = stateUninit
		a.model = nil
		a.prev = nil
	}
	a.params = p
}

// Analyze runs the configured algorithm against frame and returns the
// motion result in full-resolution coordinates.
func (a *Analyzer) Analyze(frame *capture.Frame) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	if frame == nil {
		return Result{}
	}

	halfW, halfH := frame.Width/2, frame.Height/2
	if halfW < 1 || halfH < 1 {
		return Result{}
	}
	gray := toGrayHalf(frame, halfW, halfH)

	var mask []byte
	switch a.algo {
	case AlgoMOG2:
		mask = a.analyzeMOG2(gray, halfW, halfH)
	default:
		mask = a.analyzeFrameDiff(gray, halfW, halfH)
	}
	if mask == nil {
		a.state = stateReady
		return Result{}
	}
	a.state = stateReady

	mask = erodeDilate(mask, halfW, halfH)
	contours := findContours(mask, halfW, halfH, a.params.MinArea)

	res := Result{}
	if len(contours) == 0 {
		return res
	}
	res.Motion = true
	union := contours[0]
	total := 0
	for _, c := range contours {
		total += c.Area
		union = unionBox(union, c)
	}
	res.TotalAreaPx = total
	res.Contours = contours

	scale := frame.Width / halfW
	bbox := Contour{
		X: union.X*scale - a.params.Pad,
		Y: union.Y*scale - a.params.Pad,
		W: union.W*scale + 2*a.params.Pad,
		H: union.H*scale + 2*a.params.Pad,
	}
	bbox = clampBox(bbox, frame.Width, frame.Height)
	res.BBox = &bbox
	return res
}

func (a *Analyzer) analyzeFrameDiff(gray []byte, w, h int) []byte {
	blurred := gaussianBlur(gray, w, h)
	if a.prev == nil {
		a.prev = blurred
		return nil
	}
	mask := make([]byte, w*h)
	for i := range mask {
		d := int(blurred[i]) - int(a.prev[i])
		if d < 0 {
			d = -d
		}
		if d > 25 {
			mask[i] = 255
		}
	}
	a.prev = blurred
	return mask
}

func (a *Analyzer) analyzeMOG2(gray []byte, w, h int) []byte {
	if a.model == nil || a.state == stateUninit {
		history := a.params.History
		if history <= 0 {
			history = 500
		}
		thresh := a.params.VarThreshold
		if thresh <= 0 {
			thresh = 16
		}
		a.model = newMOG2(w, h, history, thresh)
	}
	return a.model.apply(gray)
}

// toGrayHalf downsamples the BGR frame to half resolution and converts to
// grayscale with integer luma weights, matching motion.py's PROC_SCALE=0.5.
func toGrayHalf(f *capture.Frame, halfW, halfH int) []byte {
	out := make([]byte, halfW*halfH)
	for y := 0; y < halfH; y++ {
		sy := y * 2
		if sy >= f.Height {
			sy = f.Height - 1
		}
		for x := 0; x < halfW; x++ {
			sx := x * 2
			if sx >= f.Width {
				sx = f.Width - 1
			}
			i := (sy*f.Width + sx) * 3
			b, g, r := int(f.Pix[i]), int(f.Pix[i+1]), int(f.Pix[i+2])
			out[y*halfW+x] = byte((299*r + 587*g + 114*b) / 1000)
		}
	}
	return out
}

func clampBox(b Contour, maxW, maxH int) Contour {
	if b.X < 0 {
		b.W += b.X
		b.X = 0
	}
	if b.Y < 0 {
		b.H += b.Y
		b.Y = 0
	}
	if b.X+b.W > maxW {
		b.W = maxW - b.X
	}
	if b.Y+b.H > maxH {
		b.H = maxH - b.Y
	}
	if b.W < 0 {
		b.W = 0
	}
	if b.H < 0 {
		b.H = 0
	}
	return b
}

func unionBox(a, b Contour) Contour {
	x0 := min(a.X, b.X)
	y0 := min(a.Y, b.Y)
	x1 := max(a.X+a.W, b.X+b.W)
	y1 := max(a.Y+a.H, b.Y+b.H)
	return Contour{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// gaussianBlur applies a small separable blur approximating the source's
// 21x21 Gaussian blur, using a fixed-radius box blur for tractable cost at
// half resolution.
func gaussianBlur(gray []byte, w, h int) []byte {
	const radius = 3
	tmp := make([]int, w*h)
	out := make([]byte, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum, n := 0, 0
			for dx := -radius; dx <= radius; dx++ {
				xx := x + dx
				if xx < 0 || xx >= w {
					continue
				}
				sum += int(gray[y*w+xx])
				n++
			}
			tmp[y*w+x] = sum / n
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum, n := 0, 0
			for dy := -radius; dy <= radius; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				sum += tmp[yy*w+x]
				n++
			}
			out[y*w+x] = byte(sum / n)
		}
	}
	return out
}

// erodeDilate applies one opening (erosion then dilation) with a square 3x3
// kernel as an approximation of an elliptical opening. Both algorithms use
// this same 3x3 kernel; the frame-diff path does not use a 5x5 kernel.
func erodeDilate(mask []byte, w, h int) []byte {
	eroded := morph(mask, w, h, true)
	return morph(eroded, w, h, false)
}

func morph(mask []byte, w, h int, erode bool) []byte {
	out := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if erode {
				v := byte(255)
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						xx, yy := x+dx, y+dy
						if xx < 0 || xx >= w || yy < 0 || yy >= h || mask[yy*w+xx] == 0 {
							v = 0
						}
					}
				}
				out[y*w+x] = v
			} else {
				v := byte(0)
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						xx, yy := x+dx, y+dy
						if xx >= 0 && xx < w && yy >= 0 && yy < h && mask[yy*w+xx] != 0 {
							v = 255
						}
					}
				}
				out[y*w+x] = v
			}
		}
	}
	return out
}

// findContours is a small connected-component extractor used in place of
// OpenCV's findContours, returning bounding boxes of 8-connected foreground
// regions whose area is >= minArea.
func findContours(mask []byte, w, h, minArea int) []Contour {
	visited := make([]bool, w*h)
	var out []Contour

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if visited[idx] || mask[idx] == 0 {
				continue
			}
			minX, minY, maxX, maxY, area := x, y, x, y, 0
			stack := []image.Point{{X: x, Y: y}}
			visited[idx] = true
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				area++
				if p.X < minX {
					minX = p.X
				}
				if p.X > maxX {
					maxX = p.X
				}
				if p.Y < minY {
					minY = p.Y
				}
				if p.Y > maxY {
					maxY = p.Y
				}
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || nx >= w || ny < 0 || ny >= h {
							continue
						}
						ni := ny*w + nx
						if visited[ni] || mask[ni] == 0 {
							continue
						}
						visited[ni] = true
						stack = append(stack, image.Point{X: nx, Y: ny})
					}
				}
			}
			if area >= minArea {
				out = append(out, Contour{X: minX, Y: minY, W: maxX - minX + 1, H: maxY - minY + 1, Area: area})
			}
		}
	}
	return out
}
