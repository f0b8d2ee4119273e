// Package objectstore turns stored media references into browser URLs.
package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config points at an S3-compatible bucket holding case media.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	URLExpiry time.Duration
}

// MinioResolver presigns GET URLs for object keys. Absolute URLs pass through.
type MinioResolver struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

func NewMinioResolver(cfg Config) (*MinioResolver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		// a fixed region avoids a bucket location lookup per presign
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &MinioResolver{client: client, bucket: cfg.Bucket, expiry: expiry}, nil
}

func (r *MinioResolver) Resolve(ctx context.Context, ref string) (string, error) {
	if ref == "" || isAbsolute(ref) {
		return ref, nil
	}
	u, err := r.client.PresignedGetObject(ctx, r.bucket, strings.TrimPrefix(ref, "/"), r.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", ref, err)
	}
	return u.String(), nil
}

// PublicResolver joins object keys onto a public base URL; with no base the
// reference is returned unchanged.
type PublicResolver struct {
	base string
}

func NewPublicResolver(base string) *PublicResolver {
	return &PublicResolver{base: strings.TrimSuffix(base, "/")}
}

func (r *PublicResolver) Resolve(_ context.Context, ref string) (string, error) {
	if ref == "" || isAbsolute(ref) || r.base == "" {
		return ref, nil
	}
	return r.base + "/" + strings.TrimPrefix(ref, "/"), nil
}

func isAbsolute(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
