package dewarp

import (
	"image"
	"image/draw"
	"math"

	"github.com/golang/geo/r2"

	"github.com/reco-project/video-stitcher-sub001/utils"
)

// Transparent is the value written for every sample that lands outside the
// unit square of the raw frame.
var Transparent = [4]float64{0, 0, 0, 0}

// Warp renders a corrected output frame of the given size by evaluating the
// program at every output pixel and sampling the raw frame bilinearly.
// Out-of-bounds samples come out fully transparent; near a split seam the
// primary and alternate half samples are cross-faded by the program's blend
// weight.
func Warp(program Program, src image.Image, width, height int) *image.NRGBA {
	raw := toNRGBA(src)
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	utils.ParallelForEachPixel(image.Point{width, height}, func(x, y int) {
		u := (float64(x) + 0.5) / float64(width)
		v := (float64(y) + 0.5) / float64(height)
		s := program.Source(u, v)
		if !s.InBounds {
			setPixel(out, x, y, Transparent)
			return
		}
		c := bilinear(raw, s.Source)
		if s.Weight < 1 && s.AltInBounds {
			alt := bilinear(raw, s.Alt)
			for i := range c {
				c[i] = s.Weight*c[i] + (1-s.Weight)*alt[i]
			}
		}
		setPixel(out, x, y, c)
	})
	return out
}

func toNRGBA(src image.Image) *image.NRGBA {
	if converted, ok := src.(*image.NRGBA); ok {
		return converted
	}
	converted := image.NewNRGBA(src.Bounds())
	draw.Draw(converted, converted.Bounds(), src, src.Bounds().Min, draw.Src)
	return converted
}

// bilinear samples the frame at a normalized coordinate, interpolating
// between the four surrounding pixels. Reads past the frame edge clamp to
// the edge; the caller has already rejected samples outside the unit square.
func bilinear(img *image.NRGBA, pt r2.Point) [4]float64 {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	px := pt.X*float64(w) - 0.5
	py := pt.Y*float64(h) - 0.5
	x0 := int(math.Floor(px))
	y0 := int(math.Floor(py))
	fx := px - float64(x0)
	fy := py - float64(y0)

	c00 := pixelAt(img, x0, y0, w, h)
	c10 := pixelAt(img, x0+1, y0, w, h)
	c01 := pixelAt(img, x0, y0+1, w, h)
	c11 := pixelAt(img, x0+1, y0+1, w, h)

	var c [4]float64
	for i := range c {
		top := c00[i]*(1-fx) + c10[i]*fx
		bottom := c01[i]*(1-fx) + c11[i]*fx
		c[i] = top*(1-fy) + bottom*fy
	}
	return c
}

func pixelAt(img *image.NRGBA, x, y, w, h int) [4]float64 {
	if x < 0 {
		x = 0
	} else if x >= w {
		x = w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= h {
		y = h - 1
	}
	i := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
	return [4]float64{
		float64(img.Pix[i]),
		float64(img.Pix[i+1]),
		float64(img.Pix[i+2]),
		float64(img.Pix[i+3]),
	}
}

func setPixel(img *image.NRGBA, x, y int, c [4]float64) {
	i := img.PixOffset(x, y)
	img.Pix[i] = uint8(math.Round(utils.Clamp(c[0], 0, 255)))
	img.Pix[i+1] = uint8(math.Round(utils.Clamp(c[1], 0, 255)))
	img.Pix[i+2] = uint8(math.Round(utils.Clamp(c[2], 0, 255)))
	img.Pix[i+3] = uint8(math.Round(utils.Clamp(c[3], 0, 255)))
}
