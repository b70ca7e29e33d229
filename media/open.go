package media

import (
	"context"
	"fmt"

	"github.com/mutena/fotomutena/config"
)

// OpenHost builds the media host named by configuration. uploadsPrefix is the
// public path local uploads are served under.
func OpenHost(ctx context.Context, cfg config.AppConfig, uploadsPrefix string) (Host, error) {
	switch cfg.MediaHost {
	case config.HostInline:
		return InlineHost{}, nil
	case config.HostLocal, "":
		h, err := NewLocalHost(cfg.UploadsDir, uploadsPrefix)
		if err != nil {
			return nil, err
		}
		return h, nil
	case config.HostCloudinary:
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryUploadPreset == "" {
			return nil, fmt.Errorf("cloudinary host needs CLOUDINARY_CLOUD_NAME and CLOUDINARY_UPLOAD_PRESET")
		}
		h, err := NewCloudinaryHost(cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset, "")
		if err != nil {
			return nil, err
		}
		return h, nil
	case config.HostMinio:
		if cfg.MinioEndpoint == "" {
			return nil, fmt.Errorf("minio host needs MINIO_ENDPOINT")
		}
		h, err := NewMinioHost(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
			cfg.MinioBucket, cfg.MinioPublicURL, cfg.MinioUseSSL)
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("unknown media host %q", cfg.MediaHost)
	}
}
