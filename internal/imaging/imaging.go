// Package imaging turns uploaded photos into small inline JPEG data URLs.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Limits for staged images. Images are kept inline in item records, so they
// are scaled down harder than a file store would need.
const (
	MaxDimension  = 800
	JPEGQuality   = 80
	MaxInputBytes = 8 << 20
)

// ErrTooLarge is returned for uploads over MaxInputBytes.
var ErrTooLarge = errors.New("image too large")

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ProcessResult contains the processed image data.
type ProcessResult struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Process reads image data, validates the format by sniffing bytes,
// downscales if larger than MaxDimension, and re-encodes as JPEG.
func Process(r io.Reader) (*ProcessResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxInputBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxInputBytes {
		return nil, ErrTooLarge
	}

	// Client-supplied content types are ignored.
	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("unsupported image format: %s (JPEG, PNG, or WebP required)", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := img.Bounds()
	return &ProcessResult{
		Data:   buf.Bytes(),
		MIME:   "image/jpeg",
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// DataURL returns the processed image as a self-contained data URL.
func (r *ProcessResult) DataURL() string {
	return "data:" + r.MIME + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// EncodeDataURL processes an image and returns it inline as a data URL.
func EncodeDataURL(r io.Reader) (string, error) {
	result, err := Process(r)
	if err != nil {
		return "", err
	}
	return result.DataURL(), nil
}

// Result is the outcome of an asynchronous encoding.
type Result struct {
	DataURL string
	Err     error
}

// EncodeAsync encodes data on its own goroutine. The returned channel
// receives exactly one Result and is then closed. If ctx is done first, the
// Result carries ctx's error.
func EncodeAsync(ctx context.Context, data []byte) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		if err := ctx.Err(); err != nil {
			out <- Result{Err: err}
			return
		}
		url, err := EncodeDataURL(bytes.NewReader(data))
		if err == nil {
			err = ctx.Err()
		}
		out <- Result{DataURL: url, Err: err}
	}()
	return out
}

// downscale fits img inside a maxDim square, keeping the aspect ratio.
// Images already within bounds are returned as is.
func downscale(img image.Image, maxDim int) image.Image {
	src := img.Bounds()
	w, h := src.Dx(), src.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(max(w, h))
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	return dst
}
