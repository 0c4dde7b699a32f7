package labels

import (
	"archive/zip"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	canvasWidth  = 300
	canvasHeight = 360
	qrArea       = 260
	qrTop        = 20
	textScale    = 2
	textBaseline = 330
)

var (
	colorInk   = color.Black
	colorPaper = color.White
	colorError = color.RGBA{R: 200, G: 0, B: 0, A: 255}
)

func (r *Renderer) renderZip(ctx context.Context, w io.Writer, codes []string) error {
	zw := zip.NewWriter(w)
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return err
		}
		var img *image.RGBA
		if m, ok := r.matrix(ctx, code); ok {
			img = pngLabel(m, code)
		} else {
			img = pngPlaceholder(code)
		}
		entry, err := zw.Create(code + ".png")
		if err != nil {
			return fmt.Errorf("labels: zip entry %s: %w", code, err)
		}
		if err := png.Encode(entry, img); err != nil {
			return fmt.Errorf("labels: encode png %s: %w", code, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("labels: close zip: %w", err)
	}
	return nil
}

func newCanvas() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorPaper), image.Point{}, draw.Src)
	return img
}

func pngLabel(m [][]bool, code string) *image.RGBA {
	img := newCanvas()
	n := len(m)
	module := qrArea / n
	if module < 1 {
		module = 1
	}
	size := module * n
	left := (canvasWidth - size) / 2
	top := qrTop + (qrArea-size)/2
	ink := image.NewUniform(colorInk)
	for y, row := range m {
		for x, dark := range row {
			if !dark {
				continue
			}
			rect := image.Rect(left+x*module, top+y*module, left+(x+1)*module, top+(y+1)*module)
			draw.Draw(img, rect, ink, image.Point{}, draw.Src)
		}
	}
	drawText(img, code, textBaseline, colorInk)
	return img
}

func pngPlaceholder(code string) *image.RGBA {
	img := newCanvas()
	const (
		margin    = 40
		thickness = 6
	)
	side := qrArea - 2*margin
	x0, y0 := (canvasWidth-side)/2, qrTop+(qrArea-side)/2
	for i := 0; i < side; i++ {
		for t := -thickness / 2; t <= thickness/2; t++ {
			img.Set(x0+i+t, y0+i, colorError)
			img.Set(x0+side-1-i+t, y0+i, colorError)
		}
	}
	drawText(img, "ERROR", textBaseline-30, colorError)
	drawText(img, code, textBaseline, colorError)
	return img
}

// drawText renders s centred horizontally at baseline, scaled up from the 7x13 bitmap face.
func drawText(dst *image.RGBA, s string, baseline int, c color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, s).Ceil()
	height := face.Metrics().Height.Ceil()
	small := image.NewRGBA(image.Rect(0, 0, width, height))
	d := font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)

	scaledW, scaledH := width*textScale, height*textScale
	left := (dst.Bounds().Dx() - scaledW) / 2
	top := baseline - scaledH
	target := image.Rect(left, top, left+scaledW, top+scaledH)
	xdraw.NearestNeighbor.Scale(dst, target, small, small.Bounds(), xdraw.Over, nil)
}
