package media

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioHost stores uploads in an S3-compatible bucket.
type MinioHost struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinioHost connects and creates the bucket when it does not exist yet.
// publicURL is the base clients reach the bucket under; it defaults to the endpoint.
func NewMinioHost(ctx context.Context, endpoint, accessKey, secretKey, bucket, publicURL string, useSSL bool) (*MinioHost, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + endpoint
	}
	return &MinioHost{client: client, bucket: bucket, baseURL: strings.TrimRight(publicURL, "/")}, nil
}

func (h *MinioHost) Name() string { return "minio" }

func (h *MinioHost) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	object := path.Join("gallery", uuid.NewString()+path.Ext(name))
	_, err := h.client.PutObject(ctx, h.bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		return "", &HostError{Host: h.Name(), Status: resp.StatusCode, Message: resp.Message}
	}
	return fmt.Sprintf("%s/%s/%s", h.baseURL, h.bucket, object), nil
}
