package compare

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var dividerColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// LoadImage decodes a source or compressed file for preview rendering.
func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Composite renders before and after contain-fitted into a w x h canvas.
// The after image covers [0, split%) of the width and a one pixel divider
// marks the split.
func Composite(before, after image.Image, w, h int, split float64) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.New("composite size must be positive")
	}
	if before == nil || after == nil {
		return nil, errors.New("composite needs both images")
	}
	split = clampSplit(split)

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.Transparent, image.Point{}, draw.Src)

	draw.ApproxBiLinear.Scale(canvas, containRect(before.Bounds(), w, h), before, before.Bounds(), draw.Over, nil)

	cut := int(float64(w) * split / 100)
	if cut > 0 {
		layer := image.NewRGBA(canvas.Bounds())
		draw.ApproxBiLinear.Scale(layer, containRect(after.Bounds(), w, h), after, after.Bounds(), draw.Src, nil)
		clip := image.Rect(0, 0, cut, h)
		draw.Draw(canvas, clip, image.Transparent, image.Point{}, draw.Src)
		draw.Draw(canvas, clip, layer, clip.Min, draw.Over)
	}

	x := cut
	if x >= w {
		x = w - 1
	}
	for y := 0; y < h; y++ {
		canvas.SetRGBA(x, y, dividerColor)
	}
	return canvas, nil
}

func containRect(src image.Rectangle, w, h int) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	if sw == 0 || sh == 0 {
		return image.Rectangle{}
	}

	scale := float64(w) / float64(sw)
	if s := float64(h) / float64(sh); s < scale {
		scale = s
	}
	dw := int(float64(sw)*scale + 0.5)
	dh := int(float64(sh)*scale + 0.5)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	x0 := (w - dw) / 2
	y0 := (h - dh) / 2
	return image.Rect(x0, y0, x0+dw, y0+dh)
}

func clampSplit(split float64) float64 {
	switch {
	case split < 0:
		return 0
	case split > 100:
		return 100
	}
	return split
}
