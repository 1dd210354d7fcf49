// Package overlay draws bounding boxes, labels, and timestamps onto decoded
// frames before re-encoding, adapted from the box/label drawing in the
// teacher's MJPEG stream package.
package overlay

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// BGRToRGBA converts a raw BGR24 pixel buffer to an *image.RGBA so it can
// be drawn on by Box and Label below.
func BGRToRGBA(width, height int, bgr []byte) *image.RGBA {
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

// RGBAToBGR converts back, for handing the annotated frame to the encoder.
func RGBAToBGR(img *image.RGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		srcRow := img.PixOffset(0, y)
		dstRow := y * w * 3
		for x := 0; x < w; x++ {
			si := srcRow + x*4
			di := dstRow + x*3
			out[di+0] = img.Pix[si+2]
			out[di+1] = img.Pix[si+1]
			out[di+2] = img.Pix[si+0]
		}
	}
	return out
}

// Box draws a rectangle outline of the given thickness.
func Box(img *image.RGBA, x, y, w, h int, c color.RGBA, thickness int) {
	bounds := img.Bounds()
	for t := 0; t < thickness; t++ {
		for i := x; i < x+w && i < bounds.Max.X; i++ {
			if y+t >= 0 && y+t < bounds.Max.Y && i >= 0 {
				img.Set(i, y+t, c)
			}
			if y+h-t >= 0 && y+h-t < bounds.Max.Y && i >= 0 {
				img.Set(i, y+h-t, c)
			}
		}
		for j := y; j < y+h && j < bounds.Max.Y; j++ {
			if x+t >= 0 && x+t < bounds.Max.X && j >= 0 {
				img.Set(x+t, j, c)
			}
			if x+w-t >= 0 && x+w-t < bounds.Max.X && j >= 0 {
				img.Set(x+w-t, j, c)
			}
		}
	}
}

// Label draws a filled background rectangle and a text string, used both
// for motion-state status text and the snapshot worker's timestamp stamp.
func Label(img *image.RGBA, x, y int, text string, c color.RGBA) {
	if y < 10 {
		y = 10
	}
	if x < 0 {
		x = 0
	}

	bg := color.RGBA{0, 0, 0, 180}
	textWidth := len(text) * 7
	bounds := img.Bounds()
	for dy := -2; dy < 12; dy++ {
		for dx := -2; dx < textWidth+2; dx++ {
			px, py := x+dx, y+dy
			if px >= 0 && px < bounds.Max.X && py >= 0 && py < bounds.Max.Y {
				img.Set(px, py, bg)
			}
		}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + 10)},
	}
	d.DrawString(text)
}
