// internal/models/document.go
package models

// File is an uploaded file as reported by the client. Ref points at the stored
// binary (storage key, presigned object path, ...).
type File struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
	Ref         string `json:"ref,omitempty"`
}

// Attachment is one uploaded file bound to a document slot.
type Attachment struct {
	ID   string `json:"id"`
	File File   `json:"file"`
}

// Documents maps a document slot name to its attachments. A slot without
// attachments is absent from the map.
type Documents map[string][]Attachment

// Count returns the number of attachments in slot.
func (d Documents) Count(slot string) int {
	return len(d[slot])
}

// Clone deep-copies the map and its slices.
func (d Documents) Clone() Documents {
	if d == nil {
		return nil
	}
	out := make(Documents, len(d))
	for slot, atts := range d {
		out[slot] = append([]Attachment(nil), atts...)
	}
	return out
}

// DocumentSlot is a named bucket of expected supporting files. Required is
// computed from the record every time requirements are resolved.
type DocumentSlot struct {
	Name          string   `json:"name"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	AcceptedTypes []string `json:"acceptedTypes"`
	AllowMultiple bool     `json:"allowMultiple"`
	Required      bool     `json:"required"`
}
