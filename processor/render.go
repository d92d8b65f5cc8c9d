package processor

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/mazznoer/colorgrad"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Legend layout, in pixels
const (
	legendPadding   = 8
	legendTitleH    = 20
	legendBarW      = 16
	legendLabelW    = 24
	legendMinHeight = 64
	// Number of colors of the lookup table
	colormapSteps = 1024
)

type colormap []color.RGBA

func newColormap(grad colorgrad.Gradient) colormap {
	cm := make(colormap, colormapSteps+1)
	for i := range cm {
		r, g, b := grad.At(float64(i) / colormapSteps).Clamped().RGB255()
		cm[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return cm
}

// color maps v in [-1, 1] to a color
func (cm colormap) color(v float32) color.RGBA {
	t := (float64(v) + 1) / 2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return cm[int(t*colormapSteps+0.5)]
}

// Render draws the index as a heatmap (one pixel per value).
// With legend, the heatmap is surrounded by a title and a colorbar labelled -1, 0 and 1.
func Render(r *IndexResult, title string, legend bool) *image.RGBA {
	cm := newColormap(r.Index.Colormap())
	if !legend {
		img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
		drawHeatmap(img, image.Point{}, r, cm)
		return img
	}

	barH := r.Height
	if barH < legendMinHeight {
		barH = legendMinHeight
	}
	titleW := font.MeasureString(basicfont.Face7x13, title).Ceil()
	width := legendPadding + r.Width + legendPadding + legendBarW + 4 + legendLabelW
	if width < titleW+2*legendPadding {
		width = titleW + 2*legendPadding
	}
	height := legendTitleH + barH + legendPadding
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	drawHeatmap(img, image.Pt(legendPadding, legendTitleH), r, cm)
	drawText(img, legendPadding, legendTitleH-6, title)

	// Colorbar, 1 at the top
	barX := legendPadding + r.Width + legendPadding
	for y := 0; y < barH; y++ {
		v := 1 - 2*float32(y)/float32(barH-1)
		c := cm.color(v)
		for x := 0; x < legendBarW; x++ {
			img.SetRGBA(barX+x, legendTitleH+y, c)
		}
	}
	labelX := barX + legendBarW + 4
	drawText(img, labelX, legendTitleH+10, "1")
	drawText(img, labelX, legendTitleH+barH/2+4, "0")
	drawText(img, labelX, legendTitleH+barH, "-1")
	return img
}

func drawHeatmap(img *image.RGBA, origin image.Point, r *IndexResult, cm colormap) {
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			img.SetRGBA(origin.X+x, origin.Y+y, cm.color(r.Values[y*r.Width+x]))
		}
	}
}

func drawText(img draw.Image, x, y int, s string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// WritePNG encodes the image into the file
func WritePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("WritePNG.Create: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := png.Encode(w, img); err != nil {
		f.Close()
		return fmt.Errorf("WritePNG.Encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("WritePNG.Flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("WritePNG.Close: %w", err)
	}
	return nil
}
