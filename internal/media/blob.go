package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// BlobStore persists an uploaded file and returns the URL it is served from
type BlobStore interface {
	Put(ctx context.Context, category, name, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, category, name string) error
}

// DiskStore writes files under root/<category>/ and serves them below publicPrefix
type DiskStore struct {
	root         string
	publicPrefix string
}

func NewDiskStore(root, publicPrefix string) *DiskStore {
	return &DiskStore{root: root, publicPrefix: strings.TrimSuffix(publicPrefix, "/")}
}

// Root is the directory uploads are written below
func (s *DiskStore) Root() string {
	return s.root
}

func (s *DiskStore) Put(_ context.Context, category, name, _ string, r io.Reader) (string, error) {
	dir := filepath.Join(s.root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	dst := filepath.Join(dir, name)
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close %s: %w", dst, err)
	}

	return s.publicPrefix + "/" + path.Join(category, name), nil
}

func (s *DiskStore) Delete(_ context.Context, category, name string) error {
	dst := filepath.Join(s.root, category, name)
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", dst, err)
	}
	return nil
}

// GCSStore writes objects to a Cloud Storage bucket
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a bucket-backed store. An empty credentials path
// uses application default credentials.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", credentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Put(ctx context.Context, category, name, contentType string, r io.Reader) (string, error) {
	objectPath := path.Join(category, name)

	writer := s.client.Bucket(s.bucket).Object(objectPath).NewWriter(ctx)
	writer.ContentType = contentType
	writer.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(writer, r); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to copy upload to GCS object %s: %w", objectPath, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer for %s: %w", objectPath, err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, objectPath), nil
}

func (s *GCSStore) Delete(ctx context.Context, category, name string) error {
	objectPath := path.Join(category, name)
	err := s.client.Bucket(s.bucket).Object(objectPath).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %s: %w", objectPath, err)
	}
	return nil
}

// Close releases the storage client
func (s *GCSStore) Close() error {
	return s.client.Close()
}
