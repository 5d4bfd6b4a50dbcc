// Package render writes scenes to disk: the raster as PNG, an annotated copy
// with star labels, and the ground-truth JSON.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strconv"

	"github.com/starrynight/startracker/internal/scene"
	"github.com/starrynight/startracker/internal/storage"
	"github.com/starrynight/startracker/internal/storage/memory"
	v1 "github.com/starrynight/startracker/internal/storage/memory/export/v1"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LabelColor is the annotation colour.
var LabelColor = color.RGBA{R: 255, A: 255}

// label offset from the star centre, in pixels
const (
	labelDX = 4
	labelDY = -4
)

// Image converts the scene raster to an RGBA image.
func Image(sc *scene.Scene) (*image.RGBA, error) {
	if len(sc.Raster) != sc.Width*sc.Height*scene.Channels {
		return nil, fmt.Errorf("raster has %d bytes, want %dx%dx%d", len(sc.Raster), sc.Width, sc.Height, scene.Channels)
	}
	img := image.NewRGBA(image.Rect(0, 0, sc.Width, sc.Height))
	for y := 0; y < sc.Height; y++ {
		for x := 0; x < sc.Width; x++ {
			src := (y*sc.Width + x) * scene.Channels
			dst := img.PixOffset(x, y)
			img.Pix[dst+0] = sc.Raster[src+0]
			img.Pix[dst+1] = sc.Raster[src+1]
			img.Pix[dst+2] = sc.Raster[src+2]
			img.Pix[dst+3] = 0xff
		}
	}
	return img, nil
}

// Annotate draws "HR <id>" next to every drawn star.
func Annotate(img *image.RGBA, stars []scene.ProjectedStar) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(LabelColor),
		Face: basicfont.Face7x13,
	}
	for _, s := range stars {
		if !s.Drawn {
			continue
		}
		d.Dot = fixed.P(s.U+labelDX, s.V+labelDY)
		d.DrawString("HR " + strconv.Itoa(s.ID))
	}
}

// WritePNG encodes the raster to path.
func WritePNG(path string, sc *scene.Scene) error {
	img, err := Image(sc)
	if err != nil {
		return err
	}
	return writePNG(path, img)
}

// WriteAnnotatedPNG encodes the raster with star labels to path.
func WriteAnnotatedPNG(path string, sc *scene.Scene) error {
	img, err := Image(sc)
	if err != nil {
		return err
	}
	Annotate(img, sc.Stars)
	return writePNG(path, img)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// WriteGroundTruth writes the v1 ground-truth document of rec to path,
// gzip-compressed when compress is set.
func WriteGroundTruth(path string, rec *storage.SceneRecord, compress bool) error {
	if rec == nil || rec.Scene == nil {
		return fmt.Errorf("scene record is empty")
	}
	return memory.WriteJSON(path, v1.SceneFromRecord(rec), compress)
}
