package media

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildwatch/wildwatch-server/internal/validation"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestIngestor(t *testing.T, max int64) (*Ingestor, string) {
	t.Helper()
	root := t.TempDir()
	in := NewIngestor(NewDiskStore(root, "/uploads/"), max)
	in.now = func() time.Time { return time.Unix(1705327200, 123) }
	in.suffix = func() string { return "abcd1234" }
	return in, root
}

func TestFilename(t *testing.T) {
	in, _ := newTestIngestor(t, 0)

	tests := map[string]string{
		"ranger.PNG":      "1705327200000000123-abcd1234.png",
		"photo.jpeg":      "1705327200000000123-abcd1234.jpeg",
		"noext":           "1705327200000000123-abcd1234.jpg",
		"weird.p n g":     "1705327200000000123-abcd1234.jpg",
		"../../etc/x.gif": "1705327200000000123-abcd1234.gif",
	}
	for original, want := range tests {
		assert.Equal(t, want, in.Filename(original), original)
	}
}

func TestStore_WritesToDisk(t *testing.T) {
	in, root := newTestIngestor(t, 0)

	stored, err := in.Store(context.Background(), "cam.png", "image/png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.Equal(t, "/uploads/alerts/"+stored.Filename, stored.URL)
	assert.Equal(t, int64(len(pngHeader)), stored.Size)

	data, err := os.ReadFile(filepath.Join(root, CategoryAlerts, stored.Filename))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestStore_SniffsOctetStream(t *testing.T) {
	in, _ := newTestIngestor(t, 0)

	stored, err := in.Store(context.Background(), "cam", "application/octet-stream", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", stored.ContentType)
}

func TestStore_RejectsBeforeWriting(t *testing.T) {
	in, root := newTestIngestor(t, 16)

	_, err := in.Store(context.Background(), "notes.txt", "text/plain", strings.NewReader("hello"))
	require.Error(t, err)
	assert.True(t, validation.IsValidationError(err))
	assert.Equal(t, MsgNotImage, err.Error())

	_, err = in.Store(context.Background(), "big.png", "image/png", bytes.NewReader(make([]byte, 17)))
	require.Error(t, err)
	assert.Equal(t, MsgTooLarge, err.Error())

	_, statErr := os.Stat(filepath.Join(root, CategoryAlerts))
	assert.True(t, os.IsNotExist(statErr))
}

func TestAccept_NilFile(t *testing.T) {
	in, _ := newTestIngestor(t, 0)
	_, err := in.Accept(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, validation.MsgPhotoRequired, err.Error())
}

func TestDiscard_RemovesStoredPhoto(t *testing.T) {
	in, root := newTestIngestor(t, 0)

	stored, err := in.Store(context.Background(), "cam.png", "image/png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	path := filepath.Join(root, CategoryAlerts, stored.Filename)
	require.FileExists(t, path)

	require.NoError(t, in.Discard(context.Background(), stored))
	assert.NoFileExists(t, path)

	// already gone is not an error
	assert.NoError(t, in.Discard(context.Background(), stored))
}
