// Package media validates uploaded images, shrinks oversized ones and hands
// the bytes to a media host that returns a durable URL.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"

	"github.com/mutena/fotomutena/metrics"
	"github.com/mutena/fotomutena/utils"
)

var (
	ErrEmptyFile       = errors.New("media: empty file")
	ErrTooLarge        = errors.New("media: file too large")
	ErrUnsupportedType = errors.New("media: unsupported image type")
)

// DefaultMaxBytes is the upload size limit when none is configured.
const DefaultMaxBytes = 50 * 1024 * 1024

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Upload is a raw binary received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Asset describes a stored image.
type Asset struct {
	URL         string  `json:"url"`
	ContentType string  `json:"contentType"`
	Size        int     `json:"size"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspectRatio"`
	Compressed  bool    `json:"compressed"`
}

// Ingestor runs the validate, compress and host pipeline.
type Ingestor struct {
	Host     Host
	MaxBytes int64
	Compress CompressOptions
}

// NewIngestor returns an Ingestor with default compression settings.
func NewIngestor(host Host, maxBytes int64) *Ingestor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Ingestor{Host: host, MaxBytes: maxBytes, Compress: DefaultCompressOptions()}
}

// Ingest stores up and returns where it ended up.
func (in *Ingestor) Ingest(ctx context.Context, up Upload) (Asset, error) {
	if len(up.Data) == 0 {
		return Asset{}, ErrEmptyFile
	}
	if int64(len(up.Data)) > in.MaxBytes {
		return Asset{}, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(up.Data), in.MaxBytes)
	}

	contentType := mimetype.Detect(up.Data).String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := allowedTypes[contentType]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(up.Data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return Asset{}, fmt.Errorf("%w: cannot read image header", ErrUnsupportedType)
	}

	data := up.Data
	width, height := cfg.Width, cfg.Height
	compressed := false
	if len(data) > in.Compress.Threshold {
		out, w, h, err := Shrink(data, in.Compress)
		if err != nil {
			utils.Sugar.Warnw("image re-encode failed, keeping original", "file", up.Filename, "error", err)
		} else {
			data, width, height, compressed = out, w, h, true
			contentType, ext = "image/jpeg", ".jpg"
		}
	}

	url, err := in.Host.Put(ctx, objectName(up.Filename, ext), contentType, data)
	metrics.ObserveUpload(in.Host.Name(), err)
	if err != nil {
		return Asset{}, err
	}
	return Asset{
		URL:         url,
		ContentType: contentType,
		Size:        len(data),
		Width:       width,
		Height:      height,
		AspectRatio: AspectRatio(width, height),
		Compressed:  compressed,
	}, nil
}

// AspectRatio returns width/height rounded to four decimals, or 0 for degenerate sizes.
func AspectRatio(width, height int) float64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	return math.Round(float64(width)/float64(height)*10000) / 10000
}

// objectName keeps a cleaned base name for hosts that use it as a hint.
func objectName(filename, ext string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	return base + ext
}
