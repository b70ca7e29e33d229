package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Host stores image bytes and returns a URL clients can fetch them from.
// name is a hint; hosts may ignore it apart from its extension.
type Host interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	Name() string
}

// HostError is a rejection reported by a remote media host.
type HostError struct {
	Host    string
	Status  int
	Message string
}

func (e *HostError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s upload failed with status %d", e.Host, e.Status)
	}
	return fmt.Sprintf("%s upload failed: %s", e.Host, e.Message)
}

// InlineHost embeds the image into the record itself as a data URL.
type InlineHost struct{}

func (InlineHost) Name() string { return "inline" }

func (InlineHost) Put(_ context.Context, _, contentType string, data []byte) (string, error) {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// LocalHost writes uploads under a directory served by the API itself.
type LocalHost struct {
	Dir       string
	URLPrefix string
}

// NewLocalHost creates dir when missing.
func NewLocalHost(dir, urlPrefix string) (*LocalHost, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &LocalHost{Dir: dir, URLPrefix: urlPrefix}, nil
}

func (h *LocalHost) Name() string { return "local" }

func (h *LocalHost) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	file := uuid.NewString() + filepath.Ext(name)
	tmp, err := os.CreateTemp(h.Dir, ".upload-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, filepath.Join(h.Dir, file)); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	return h.URLPrefix + file, nil
}
