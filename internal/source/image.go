package source

import (
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/draw"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".pdf": true,
}

// Fit scales img to cover width x height and crops the center, so the still
// fills the vertical frame without letterboxing.
func Fit(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	b := img.Bounds()
	sw, sh := float64(b.Dx()), float64(b.Dy())

	scale := float64(height) / sh
	if s := float64(width) / sw; s > scale {
		scale = s
	}
	cw := float64(width) / scale
	ch := float64(height) / scale
	x0 := b.Min.X + int((sw-cw)/2)
	y0 := b.Min.Y + int((sh-ch)/2)
	sr := image.Rect(x0, y0, x0+int(cw+0.5), y0+int(ch+0.5)).Intersect(b)

	draw.CatmullRom.Scale(dst, dst.Bounds(), img, sr, draw.Src, nil)
	return dst
}

// ListImages returns the stills in dir sorted by name. A file path is
// returned as is.
func ListImages(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
