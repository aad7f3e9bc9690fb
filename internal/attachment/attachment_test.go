package attachment

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberbuddy/internal/history"
)

// pngHeader is enough of a PNG for magic-number detection
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoad_Image(t *testing.T) {
	path := writeFile(t, "shot.png", pngHeader)

	att, err := Load(path, 0)
	require.NoError(t, err)
	assert.Equal(t, history.AttachmentImage, att.Kind)
	assert.Equal(t, "shot.png", att.Name)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngHeader), att.Content)
}

func TestLoad_Text(t *testing.T) {
	path := writeFile(t, "headers.txt", []byte("Received: from mail.example.com\nSubject: Urgent"))

	att, err := Load(path, 0)
	require.NoError(t, err)
	assert.Equal(t, history.AttachmentText, att.Kind)
	assert.Equal(t, "Received: from mail.example.com\nSubject: Urgent", att.Content)
}

func TestLoad_Binary(t *testing.T) {
	path := writeFile(t, "blob.bin", []byte{0xff, 0xfe, 0x00, 0x81, 0x82})

	_, err := Load(path, 0)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLoad_KnownNonImageFormat(t *testing.T) {
	// zip local file header
	path := writeFile(t, "archive.zip", []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00, 0x00, 0x00})

	_, err := Load(path, 0)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLoad_TooLarge(t *testing.T) {
	path := writeFile(t, "big.txt", make([]byte, 11))

	_, err := Load(path, 10)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"), 0)
	assert.Error(t, err)
}

func TestLoad_Directory(t *testing.T) {
	_, err := Load(t.TempDir(), 0)
	assert.Error(t, err)
}

func TestLoadImage(t *testing.T) {
	path := writeFile(t, "me.png", pngHeader)

	img, err := LoadImage(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "me.png", img.Name)
	assert.Equal(t, "image/png", img.MIME)
	assert.Equal(t, pngHeader, img.Data)
}

func TestLoadImage_RejectsNonImage(t *testing.T) {
	path := writeFile(t, "me.txt", []byte("not a picture"))

	_, err := LoadImage(path, 0)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestLoadImage_TooLarge(t *testing.T) {
	path := writeFile(t, "big.png", pngHeader)

	_, err := LoadImage(path, 8)
	assert.ErrorIs(t, err, ErrTooLarge)
}
