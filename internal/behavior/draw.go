package behavior

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// bgrImage adapts a contiguous BGR24 buffer to draw.Image so it can be
// used with the x/image/font drawer and image/draw fillers without a
// copy.
type bgrImage struct {
	pix           []byte
	width, height int
}

func (b *bgrImage) ColorModel() color.Model { return color.RGBAModel }

func (b *bgrImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

func (b *bgrImage) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return color.RGBA{}
	}
	i := (y*b.width + x) * 3
	return color.RGBA{R: b.pix[i+2], G: b.pix[i+1], B: b.pix[i], A: 255}
}

func (b *bgrImage) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return
	}
	r, g, bl, _ := c.RGBA()
	i := (y*b.width + x) * 3
	b.pix[i] = byte(bl >> 8)
	b.pix[i+1] = byte(g >> 8)
	b.pix[i+2] = byte(r >> 8)
}

// drawText renders text at (x, y) baseline in the given color directly
// onto a BGR24 buffer.
func drawText(pix []byte, width, height int, x, y int, text string, c color.Color) {
	img := &bgrImage{pix: pix, width: width, height: height}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// fillRect draws a solid filled rectangle, used as a text background.
func fillRect(pix []byte, width, height int, x0, y0, x1, y1 int, c color.Color) {
	img := &bgrImage{pix: pix, width: width, height: height}
	draw.Draw(img, image.Rect(x0, y0, x1, y1), image.NewUniform(c), image.Point{}, draw.Src)
}
