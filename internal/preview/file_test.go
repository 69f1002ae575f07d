package preview

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSniffType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"logo.png", nil, "image/png"},
		{"logo.SVG", []byte("<svg/>"), "image/svg+xml"},
		{"photo.jpg", nil, "image/jpeg"},
		{"noext", []byte("\x89PNG\r\n\x1a\n0000"), "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffType(tt.name, tt.data); got != tt.want {
				t.Errorf("SniffType(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logo.png")
	data := []byte("\x89PNG\r\n\x1a\n0000")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	file, err := LoadFile(path, 1024)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if file.Name != "logo.png" || file.MimeType != "image/png" || file.Size != int64(len(data)) {
		t.Errorf("unexpected file: %+v", file)
	}
	if string(file.Data) != string(data) {
		t.Error("data not loaded")
	}

	// Over the limit: size only.
	big, err := LoadFile(path, 4)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if big.Data != nil || big.Size != int64(len(data)) {
		t.Errorf("oversized file should carry size only: %+v", big)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.png"), 1024); err == nil || !strings.Contains(err.Error(), "stat image") {
		t.Errorf("expected stat error, got %v", err)
	}
	if _, err := LoadFile(dir, 1024); err == nil {
		t.Error("expected error for directory")
	}
}
