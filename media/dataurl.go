package media

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrMalformedDataURL is returned for data URLs that are not base64 encoded images.
var ErrMalformedDataURL = errors.New("malformed data url")

// ParseDataURL turns a base64 "data:image/..." URL into an Upload so it goes
// through the same checks as a file upload.
func ParseDataURL(raw string) (Upload, error) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return Upload{}, ErrMalformedDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Upload{}, ErrMalformedDataURL
	}
	contentType, params, _ := strings.Cut(meta, ";")
	if !strings.HasPrefix(contentType, "image/") || !strings.Contains(";"+params+";", ";base64;") {
		return Upload{}, ErrMalformedDataURL
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return Upload{}, ErrMalformedDataURL
	}
	return Upload{Filename: "inline" + extensionFor(contentType), ContentType: contentType, Data: data}, nil
}

func extensionFor(contentType string) string {
	if ext, ok := allowedTypes[contentType]; ok {
		return ext
	}
	return ""
}
