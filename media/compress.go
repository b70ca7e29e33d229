package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

// CompressOptions controls how oversized uploads are re-encoded.
type CompressOptions struct {
	// Threshold is the size above which an upload is re-encoded.
	Threshold int
	// TargetBytes is the size the re-encode loop tries to get under.
	TargetBytes   int
	MaxDimension  int
	StartQuality  int
	QualityStep   int
	MinQuality    int
	MaxIterations int
}

func DefaultCompressOptions() CompressOptions {
	return CompressOptions{
		Threshold:     9_900_000,
		TargetBytes:   9_500_000,
		MaxDimension:  4096,
		StartQuality:  85,
		QualityStep:   5,
		MinQuality:    10,
		MaxIterations: 15,
	}
}

// Shrink decodes data, fits it into MaxDimension and re-encodes it as JPEG with
// decreasing quality until it fits TargetBytes. When the iteration cap is hit
// the smallest encoding produced so far is returned.
func Shrink(data []byte, opts CompressOptions) ([]byte, int, int, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode: %w", err)
	}
	if opts.MaxDimension > 0 {
		b := src.Bounds()
		if b.Dx() > opts.MaxDimension || b.Dy() > opts.MaxDimension {
			src = imaging.Fit(src, opts.MaxDimension, opts.MaxDimension, imaging.Lanczos)
		}
	}

	var best []byte
	quality := opts.StartQuality
	for i := 0; i < opts.MaxIterations; i++ {
		out, err := encodeJPEG(src, quality)
		if err != nil {
			return nil, 0, 0, err
		}
		if best == nil || len(out) < len(best) {
			best = out
		}
		if len(out) <= opts.TargetBytes {
			break
		}
		quality -= opts.QualityStep
		if quality < opts.MinQuality {
			quality = opts.MinQuality
		}
	}
	if best == nil {
		return nil, 0, 0, fmt.Errorf("no encoding produced")
	}
	b := src.Bounds()
	return best, b.Dx(), b.Dy(), nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
