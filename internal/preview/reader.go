// Package preview turns selected image files into displayable previews.
package preview

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"token-deploy-wizard/internal/domain"
)

// ErrNoData is returned when a file carries no bytes to preview.
var ErrNoData = errors.New("image has no data")

// FileReader is the file-reader collaborator.
// It yields a displayable preview representation of a selected file.
type FileReader interface {
	Read(ctx context.Context, file *domain.ImageFile) (string, error)
}

// ReaderFunc adapts a function to FileReader.
type ReaderFunc func(ctx context.Context, file *domain.ImageFile) (string, error)

// Read calls f.
func (f ReaderFunc) Read(ctx context.Context, file *domain.ImageFile) (string, error) {
	return f(ctx, file)
}

// DataURIReader renders files as RFC 2397 data URIs.
type DataURIReader struct{}

// Read returns "data:<mime>;base64,<payload>".
func (DataURIReader) Read(ctx context.Context, file *domain.ImageFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if file == nil || len(file.Data) == 0 {
		return "", ErrNoData
	}

	mime := file.MimeType
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}

	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mime) + base64.StdEncoding.EncodedLen(len(file.Data)))
	b.WriteString("data:")
	b.WriteString(strings.TrimSpace(mime))
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(file.Data))
	return b.String(), nil
}
