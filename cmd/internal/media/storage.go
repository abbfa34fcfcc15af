// Package media stores user-uploaded images on local disk or in S3.
package media

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	ErrInvalidName     = errors.New("invalid file name")
	ErrEmptyFile       = errors.New("empty file")
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Storage persists image objects by name.
type Storage interface {
	// Put writes size bytes from r under name and returns the public URL.
	Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error)
	// Delete removes name. Missing objects are not an error.
	Delete(ctx context.Context, name string) error
}

// allowedTypes maps accepted content types to the stored extension.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ExtensionFor returns the stored extension for an accepted content type.
func ExtensionFor(contentType string) (string, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	ext, ok := allowedTypes[ct]
	return ext, ok
}

// ValidName reports whether name is a single safe path segment.
func ValidName(name string) bool {
	if name == "" || len(name) > 255 || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}
