package validation

import (
	"strings"

	"token-deploy-wizard/internal/domain"
)

// MaxImageBytes is the image size ceiling (5 MiB).
const MaxImageBytes = 5 * 1024 * 1024

// AllowedImageTypes is the MIME allow-list for token images.
var AllowedImageTypes = []string{
	"image/png",
	"image/jpeg",
	"image/jpg",
	"image/svg+xml",
}

// Image validates an optional image file. A nil file is valid: the image is
// optional. The type is checked before the size.
func Image(file *domain.ImageFile) Result {
	if file == nil {
		return OK()
	}
	if !isAllowedImageType(file.MimeType) {
		return Fail(domain.FieldImage, MsgImageInvalidType)
	}
	if file.Size <= 0 {
		return Fail(domain.FieldImage, MsgImageEmpty)
	}
	if file.Size > MaxImageBytes {
		return Fail(domain.FieldImage, MsgImageTooLarge)
	}
	return OK()
}

func isAllowedImageType(mimeType string) bool {
	// Drop parameters such as "; charset=utf-8" from sniffed types.
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, allowed := range AllowedImageTypes {
		if mimeType == allowed {
			return true
		}
	}
	return false
}
