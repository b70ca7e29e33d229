package media

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// CloudinaryHost performs unsigned uploads with an upload preset.
type CloudinaryHost struct {
	UploadPreset string

	cld *cloudinary.Cloudinary
}

// NewCloudinaryHost builds an unsigned uploader for cloudName. uploadPrefix
// replaces the API root when non-empty.
func NewCloudinaryHost(cloudName, preset, uploadPrefix string) (*CloudinaryHost, error) {
	conf, err := config.NewFromParams(cloudName, "", "")
	if err != nil {
		return nil, err
	}
	if uploadPrefix != "" {
		conf.API.UploadPrefix = strings.TrimRight(uploadPrefix, "/")
	}
	cld, err := cloudinary.NewFromConfiguration(*conf)
	if err != nil {
		return nil, err
	}
	return &CloudinaryHost{UploadPreset: preset, cld: cld}, nil
}

func (h *CloudinaryHost) Name() string { return "cloudinary" }

func (h *CloudinaryHost) Put(ctx context.Context, name, _ string, data []byte) (string, error) {
	res, err := h.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:     strings.TrimSuffix(name, path.Ext(name)),
		UploadPreset: h.UploadPreset,
		Unsigned:     api.Bool(true),
		ResourceType: "image",
	})
	if err != nil {
		return "", &HostError{Host: h.Name(), Message: err.Error()}
	}
	if res.Error.Message != "" {
		return "", &HostError{Host: h.Name(), Message: res.Error.Message}
	}
	if res.SecureURL == "" {
		return "", &HostError{Host: h.Name(), Message: "response carried no secure_url"}
	}
	return res.SecureURL, nil
}
