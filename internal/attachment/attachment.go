// Package attachment loads files to send along with a chat message.
package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/h2non/filetype"

	"cyberbuddy/internal/history"
)

// DefaultMaxSize is the largest file accepted by default
const DefaultMaxSize = 2 * 1024 * 1024

var (
	ErrTooLarge    = errors.New("file is too large")
	ErrUnsupported = errors.New("only images and text files can be attached")
	ErrNotImage    = errors.New("only image files are allowed")
)

// Image is a raw image file, as uploaded to the profile endpoint
type Image struct {
	Name string
	MIME string
	Data []byte
}

// Load reads a file and classifies it as an image or a text attachment
func Load(path string, maxSize int64) (*history.Attachment, error) {
	data, err := readFile(path, maxSize)
	if err != nil {
		return nil, err
	}
	return FromBytes(filepath.Base(path), data)
}

// LoadImage reads a file that must be an image
func LoadImage(path string, maxSize int64) (*Image, error) {
	data, err := readFile(path, maxSize)
	if err != nil {
		return nil, err
	}
	if !filetype.IsImage(data) {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, filepath.Base(path))
	}

	kind, _ := filetype.Match(data)
	return &Image{Name: filepath.Base(path), MIME: kind.MIME.Value, Data: data}, nil
}

func readFile(path string, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat attachment: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, info.Size(), maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, maxSize)
	}
	return data, nil
}

// FromBytes classifies raw file content
func FromBytes(name string, data []byte) (*history.Attachment, error) {
	if filetype.IsImage(data) {
		return &history.Attachment{
			Kind:    history.AttachmentImage,
			Content: base64.StdEncoding.EncodeToString(data),
			Name:    name,
		}, nil
	}

	// Known binary formats are never text, even when they happen to be valid UTF-8
	if kind, _ := filetype.Match(data); kind != filetype.Unknown {
		return nil, fmt.Errorf("%w: %s is %s", ErrUnsupported, name, kind.MIME.Value)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}

	return &history.Attachment{
		Kind:    history.AttachmentText,
		Content: string(data),
		Name:    name,
	}, nil
}
