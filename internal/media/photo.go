// Package media accepts uploaded alert photos, names them, and hands them
// to a BlobStore.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wildwatch/wildwatch-server/internal/metrics"
	"github.com/wildwatch/wildwatch-server/internal/validation"
)

// CategoryAlerts is the directory alert photos are stored under
const CategoryAlerts = "alerts"

// DefaultMaxBytes is the upload size limit
const DefaultMaxBytes int64 = 5 << 20

// Rejection messages
const (
	MsgNotImage = "Only image uploads are allowed"
	MsgTooLarge = "Photo exceeds the maximum upload size"
)

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// Stored describes a persisted photo
type Stored struct {
	Filename    string
	URL         string
	ContentType string
	Size        int64
}

// Ingestor validates and stores photos
type Ingestor struct {
	blobs    BlobStore
	maxBytes int64
	now      func() time.Time
	suffix   func() string
}

// NewIngestor creates an ingestor; maxBytes <= 0 uses DefaultMaxBytes
func NewIngestor(blobs BlobStore, maxBytes int64) *Ingestor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Ingestor{
		blobs:    blobs,
		maxBytes: maxBytes,
		now:      time.Now,
		suffix:   func() string { return strings.SplitN(uuid.NewString(), "-", 2)[0] },
	}
}

// MaxBytes is the largest accepted file
func (in *Ingestor) MaxBytes() int64 {
	return in.maxBytes
}

// Filename returns "<unix-nanos>-<random><ext>". The original extension is
// kept when it looks like one, otherwise ".jpg" is used.
func (in *Ingestor) Filename(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if !extPattern.MatchString(ext) {
		ext = ".jpg"
	}
	return fmt.Sprintf("%d-%s%s", in.now().UnixNano(), in.suffix(), ext)
}

// Accept checks a multipart file and stores it under the alerts category.
// Non-image and oversized files fail with a validation error before anything is written.
func (in *Ingestor) Accept(ctx context.Context, fh *multipart.FileHeader) (*Stored, error) {
	if fh == nil {
		return nil, validation.New("photo", "required", validation.MsgPhotoRequired)
	}
	if fh.Size > in.maxBytes {
		metrics.RecordUpload("rejected", 0)
		return nil, validation.New("photo", "max", MsgTooLarge)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	return in.Store(ctx, fh.Filename, fh.Header.Get("Content-Type"), f)
}

// Store validates r and writes it to the blob store. The body is buffered
// so that nothing is written for a rejected upload.
func (in *Ingestor) Store(ctx context.Context, original, contentType string, r io.Reader) (*Stored, error) {
	data, err := io.ReadAll(io.LimitReader(r, in.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > in.maxBytes {
		metrics.RecordUpload("rejected", 0)
		return nil, validation.New("photo", "max", MsgTooLarge)
	}

	contentType = imageContentType(contentType, data)
	if contentType == "" {
		metrics.RecordUpload("rejected", 0)
		return nil, validation.New("photo", "image", MsgNotImage)
	}

	name := in.Filename(original)
	url, err := in.blobs.Put(ctx, CategoryAlerts, name, contentType, bytes.NewReader(data))
	if err != nil {
		metrics.RecordUpload("failed", 0)
		return nil, fmt.Errorf("store photo: %w", err)
	}

	size := int64(len(data))
	metrics.RecordUpload("stored", size)
	return &Stored{Filename: name, URL: url, ContentType: contentType, Size: size}, nil
}

// Discard removes a stored photo that could not be linked to its alert
func (in *Ingestor) Discard(ctx context.Context, stored *Stored) error {
	if err := in.blobs.Delete(ctx, CategoryAlerts, stored.Filename); err != nil {
		return err
	}
	metrics.RecordUpload("discarded", 0)
	return nil
}

// imageContentType returns the declared type when it is an image type,
// otherwise the sniffed type when that is an image. Empty means rejected.
func imageContentType(declared string, head []byte) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	if declared != "" && declared != "application/octet-stream" {
		return ""
	}
	if sniffed := http.DetectContentType(head); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return ""
}
