package preview

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"token-deploy-wizard/internal/domain"
)

// SniffType guesses the MIME type of a file. The extension wins when it is
// known, since SVG is plain text to the content sniffer.
func SniffType(name string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

// LoadFile reads an image from disk into a file handle. Files larger than
// limit keep their size but are not read.
func LoadFile(path string, limit int64) (*domain.ImageFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("stat image: %s is a directory", path)
	}

	file := &domain.ImageFile{
		Name: filepath.Base(path),
		Size: info.Size(),
	}
	if info.Size() > limit {
		file.MimeType = SniffType(file.Name, nil)
		return file, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	file.Data = data
	file.Size = int64(len(data))
	file.MimeType = SniffType(file.Name, data)
	return file, nil
}
