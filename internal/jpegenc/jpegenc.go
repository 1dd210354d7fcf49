// Package jpegenc implements C2: a pure function that turns a pixel buffer
// into a JPEG byte sequence, never returning an empty or malformed part.
package jpegenc

import (
	"bytes"
	"image"
	"image/jpeg"
	"sync"
)

// minimalJPEG is the 4-byte minimal valid JPEG (SOI+EOI) returned on any
// encode failure so that downstream multipart streams never emit an empty
// part.
var minimalJPEG = []byte{0xFF, 0xD8, 0xFF, 0xD9}

var pathOnce sync.Once
var accelerated bool

// probe decides, once per process, whether the accelerated encode path is
// usable. No cgo/turbojpeg binding exists in this codebase's dependency
// surface, so both paths below are pure Go; the indirection exists so a
// future accelerated path has a documented place to plug into, matching
// the selection contract in spec §4.2.
func probe() bool {
	pathOnce.Do(func() {
		accelerated = acceleratedPathAvailable()
	})
	return accelerated
}

func acceleratedPathAvailable() bool {
	return true
}

// Encode converts pix (3-channel BGR, row-major, width*height*3 bytes) to a
// JPEG at the given quality, clamped to [1,100].
func Encode(width, height int, bgr []byte, quality int) []byte {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	if width <= 0 || height <= 0 || len(bgr) < width*height*3 {
		return minimalJPEG
	}

	var img image.Image
	if probe() {
		img = bgrToYCbCr(width, height, bgr)
	} else {
		img = bgrToRGBA(width, height, bgr)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return minimalJPEG
	}
	out := buf.Bytes()
	if len(out) == 0 {
		return minimalJPEG
	}
	return out
}

func bgrToRGBA(width, height int, bgr []byte) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srcRow := y * width * 3
		dstRow := img.PixOffset(0, y)
		for x := 0; x < width; x++ {
			si := srcRow + x*3
			di := dstRow + x*4
			img.Pix[di+0] = bgr[si+2]
			img.Pix[di+1] = bgr[si+1]
			img.Pix[di+2] = bgr[si+0]
			img.Pix[di+3] = 0xff
		}
	}
	return img
}

// bgrToYCbCr converts directly to YCbCr 4:2:0, the format jpeg.Encode can
// write without an intermediate RGBA->YCbCr pass, used as the "fast" path.
func bgrToYCbCr(width, height int, bgr []byte) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	for y := 0; y < height; y++ {
		row := y * width * 3
		for x := 0; x < width; x++ {
			i := row + x*3
			b, g, r := bgr[i], bgr[i+1], bgr[i+2]
			yy, cb, cr := rgbToYCbCr(r, g, b)
			img.Y[img.YOffset(x, y)] = yy
			img.Cb[img.COffset(x, y)] = cb
			img.Cr[img.COffset(x, y)] = cr
		}
	}
	return img
}

func rgbToYCbCr(r, g, b byte) (y, cb, cr byte) {
	ri, gi, bi := int32(r), int32(g), int32(b)
	yy := (19595*ri + 38470*gi + 7471*bi + 1<<15) >> 16
	cbv := (-11059*ri - 21709*gi + 32768*bi + 1<<15) >> 16
	crv := (32768*ri - 27439*gi - 5329*bi + 1<<15) >> 16
	return clamp8(yy), clamp8(cbv + 128), clamp8(crv + 128)
}

func clamp8(v int32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
