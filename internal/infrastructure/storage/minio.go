package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultObjectStoreTimeout = 5 * time.Second

// Config identifies one asset-store backend. It must stay comparable: the
// process-wide instance cache uses it as a map key.
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PublicBaseURL string
}

// AssetStore serves the platform's static assets from a MinIO/S3 bucket.
// Instances are shared across requests and must be treated as read-mostly.
type AssetStore struct {
	client *minio.Client
	cfg    Config
}

// New builds an AssetStore from the given configuration. Prefer Get, which
// memoizes instances per configuration.
func New(cfg Config) (*AssetStore, error) {
	endpoint := cfg.Endpoint
	if !strings.Contains(endpoint, ":") {
		// default to the MinIO API port when not supplied explicitly
		endpoint = fmt.Sprintf("%s:9000", endpoint)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	return &AssetStore{client: client, cfg: cfg}, nil
}

// EnsureBucket creates the configured bucket when it does not exist yet.
func (s *AssetStore) EnsureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultObjectStoreTimeout)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return fmt.Errorf("create bucket %q: %w", s.cfg.Bucket, err)
	}
	return nil
}

// Save uploads one asset under name and returns its public URL.
func (s *AssetStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("store asset %q: %w", name, err)
	}
	return s.URL(name), nil
}

// Open returns a reader over the named asset. The caller closes it.
func (s *AssetStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("open asset %q: %w", name, err)
	}
	return obj, nil
}

// Exists reports whether the named asset is present in the bucket.
func (s *AssetStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.cfg.Bucket, name, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("stat asset %q: %w", name, err)
	}
	return true, nil
}

// URL renders the public URL of the named asset. PublicBaseURL takes
// precedence when configured (CDN in front of the bucket).
func (s *AssetStore) URL(name string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + escapePath(name)
	}
	scheme := "http"
	if s.cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, s.cfg.Bucket, escapePath(name))
}

// escapePath escapes each path segment while keeping the separators, so
// nested asset names render as browsable URLs.
func escapePath(name string) string {
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// Ping verifies the backend is reachable, for readiness probes.
func (s *AssetStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultObjectStoreTimeout)
	defer cancel()

	if _, err := s.client.BucketExists(ctx, s.cfg.Bucket); err != nil {
		return fmt.Errorf("object store ping: %w", err)
	}
	return nil
}
