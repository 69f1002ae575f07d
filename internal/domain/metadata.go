package domain

// Metadata is the optional presentation data attached to a token.
// It is always replaced wholesale, never merged field by field.
type Metadata struct {
	Image       *ImageFile `json:"image"`       // nil means no image
	Description string     `json:"description"` // empty means no description
}

// HasContent reports whether m carries an image or a non-empty description.
// A nil Metadata has no content.
func (m *Metadata) HasContent() bool {
	if m == nil {
		return false
	}
	return m.Image != nil || m.Description != ""
}

// DescriptionOrEmpty returns the description, tolerating a nil receiver.
func (m *Metadata) DescriptionOrEmpty() string {
	if m == nil {
		return ""
	}
	return m.Description
}

// ImageOrNil returns the image handle, tolerating a nil receiver.
func (m *Metadata) ImageOrNil() *ImageFile {
	if m == nil {
		return nil
	}
	return m.Image
}

// ImageFile is a selected binary image. Handles are compared by identity
// to decide which selection is current.
type ImageFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Data     []byte `json:"-"`
}
