package imaging

import (
	"image"
	"image/color"
)

// Raster is an immutable 8-bit BGR image, 3 bytes per pixel, row-major, stride 3*width.
type Raster struct {
	width  int
	height int
	pix    []byte
}

// NewRaster converts img into a BGR raster. Alpha is dropped: the straight
// (non-premultiplied) colour of every pixel is kept whatever its opacity.
func NewRaster(img image.Image) *Raster {
	b := img.Bounds()
	r := &Raster{
		width:  b.Dx(),
		height: b.Dy(),
		pix:    make([]byte, 3*b.Dx()*b.Dy()),
	}

	i := 0
	switch src := img.(type) {
	case *image.NRGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := src.PixOffset(b.Min.X, y)
			for x := 0; x < r.width; x++ {
				p := off + 4*x
				r.pix[i], r.pix[i+1], r.pix[i+2] = src.Pix[p+2], src.Pix[p+1], src.Pix[p]
				i += 3
			}
		}
	case *image.RGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := src.PixOffset(b.Min.X, y)
			for x := 0; x < r.width; x++ {
				p := off + 4*x
				c := color.RGBA{R: src.Pix[p], G: src.Pix[p+1], B: src.Pix[p+2], A: src.Pix[p+3]}
				if c.A != 0xff {
					n := color.NRGBAModel.Convert(c).(color.NRGBA)
					c.R, c.G, c.B = n.R, n.G, n.B
				}
				r.pix[i], r.pix[i+1], r.pix[i+2] = c.B, c.G, c.R
				i += 3
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				r.pix[i], r.pix[i+1], r.pix[i+2] = c.B, c.G, c.R
				i += 3
			}
		}
	}
	return r
}

// Width returns the raster width in pixels.
func (r *Raster) Width() int { return r.width }

// Height returns the raster height in pixels.
func (r *Raster) Height() int { return r.height }

// ColorModel implements image.Image.
func (r *Raster) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (r *Raster) Bounds() image.Rectangle { return image.Rect(0, 0, r.width, r.height) }

// At implements image.Image.
func (r *Raster) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= r.width || y >= r.height {
		return color.RGBA{}
	}
	i := 3 * (y*r.width + x)
	return color.RGBA{R: r.pix[i+2], G: r.pix[i+1], B: r.pix[i], A: 0xff}
}

// Gray reduces the raster to luma with BT.601 weights (0.299R + 0.587G + 0.114B), rounded.
func (r *Raster) Gray() *image.Gray {
	g := image.NewGray(r.Bounds())
	for i, j := 0, 0; i < len(r.pix); i, j = i+3, j+1 {
		b, gr, rd := uint32(r.pix[i]), uint32(r.pix[i+1]), uint32(r.pix[i+2])
		g.Pix[j] = uint8((299*rd + 587*gr + 114*b + 500) / 1000)
	}
	return g
}

// RGBA returns an opaque RGBA copy of the raster.
func (r *Raster) RGBA() *image.RGBA {
	out := image.NewRGBA(r.Bounds())
	for i, j := 0, 0; i < len(r.pix); i, j = i+3, j+4 {
		out.Pix[j] = r.pix[i+2]
		out.Pix[j+1] = r.pix[i+1]
		out.Pix[j+2] = r.pix[i]
		out.Pix[j+3] = 0xff
	}
	return out
}
