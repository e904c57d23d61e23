package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/gen2brain/go-fitz"
	_ "golang.org/x/image/webp"

	"github.com/ivlev/kenburns/internal/failure"
	"github.com/ivlev/kenburns/internal/system"
)

// pdfDPI is the raster resolution for PDF pages used as stills.
const pdfDPI = 150

// Image is a decoded still already fitted to the output frame. Pix is never
// modified after decoding and may be shared between goroutines.
type Image struct {
	Name string
	Pix  *image.RGBA
}

// Audio is a narration clip on local disk with its probed duration.
type Audio struct {
	Path     string
	Duration float64
}

// DecodeImage decodes JPEG, PNG, GIF, WebP or the first page of a PDF and
// fits the result to width x height.
func DecodeImage(name string, data []byte, width, height int) (*Image, error) {
	var (
		img image.Image
		err error
	)
	if bytes.HasPrefix(data, []byte("%PDF")) {
		img, err = renderPDF(data)
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, failure.New(failure.Decode, "decode image "+name, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, failure.Newf(failure.Decode, "decode image "+name, "empty image %v", b)
	}
	return &Image{Name: name, Pix: Fit(img, width, height)}, nil
}

// DecodeImageFile reads and decodes a local image file.
func DecodeImageFile(path string, width, height int) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.New(failure.Decode, "read image "+path, err)
	}
	return DecodeImage(path, data, width, height)
}

func renderPDF(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	return doc.ImageDPI(0, pdfDPI)
}

// DecodeAudio probes a local audio file for its duration.
func DecodeAudio(ctx context.Context, path string) (*Audio, error) {
	dur, err := system.GetAudioDuration(ctx, path)
	if err != nil {
		return nil, failure.New(failure.Decode, "probe audio "+path, err)
	}
	if dur <= 0 {
		return nil, failure.Newf(failure.Decode, "probe audio "+path, "non-positive duration %.3f", dur)
	}
	return &Audio{Path: path, Duration: dur}, nil
}
