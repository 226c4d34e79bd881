// internal/wizard/attachments/store.go
package attachments

import (
	"errors"
	"fmt"
	"strings"

	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/models"
)

var (
	ErrNilDocuments       = errors.New("DOCUMENTS_NOT_INITIALIZED")
	ErrSlotNameRequired   = errors.New("SLOT_NAME_REQUIRED")
	ErrAttachmentNotFound = errors.New("ATTACHMENT_NOT_FOUND")
)

// Rejection reasons reported for files dropped by Upload.
const (
	ReasonEmptyFile   = "EMPTY_FILE"
	ReasonMissingName = "MISSING_NAME"
	ReasonTooLarge    = "FILE_TOO_LARGE"
)

type Rejection struct {
	File   models.File `json:"file"`
	Reason string      `json:"reason"`
}

type UploadResult struct {
	Accepted []models.Attachment `json:"accepted"`
	Rejected []Rejection         `json:"rejected,omitempty"`
}

// Store manages the attachment lists of a record's Documents map. It holds no
// attachment state of its own; the map passed in is mutated in place.
type Store struct {
	ids     IDGenerator
	maxSize int64
	logger  logger.Logger
}

// NewStore builds a store. maxSize <= 0 disables the size limit.
func NewStore(ids IDGenerator, maxSize int64, log logger.Logger) *Store {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Store{
		ids:     ids,
		maxSize: maxSize,
		logger:  log.WithFields(map[string]interface{}{"component": "attachments"}),
	}
}

// Upload filters files and binds the survivors to slot. Single-file slots keep
// only the last survivor; multi-file slots append. When nothing survives the
// slot is left untouched.
func (s *Store) Upload(docs models.Documents, slot models.DocumentSlot, files []models.File) (UploadResult, error) {
	if docs == nil {
		return UploadResult{}, ErrNilDocuments
	}
	if strings.TrimSpace(slot.Name) == "" {
		return UploadResult{}, ErrSlotNameRequired
	}

	var result UploadResult
	for _, f := range files {
		if reason := s.reject(f); reason != "" {
			result.Rejected = append(result.Rejected, Rejection{File: f, Reason: reason})
			continue
		}
		result.Accepted = append(result.Accepted, models.Attachment{ID: s.ids.NewID(), File: f})
	}

	if len(result.Rejected) > 0 {
		s.logger.Warn("dropped invalid files", map[string]interface{}{
			"slot":     slot.Name,
			"rejected": len(result.Rejected),
		})
	}
	if len(result.Accepted) == 0 {
		return result, nil
	}

	if slot.AllowMultiple {
		docs[slot.Name] = append(docs[slot.Name], result.Accepted...)
	} else {
		last := result.Accepted[len(result.Accepted)-1]
		result.Accepted = []models.Attachment{last}
		docs[slot.Name] = []models.Attachment{last}
	}

	s.logger.Info("attachments uploaded", map[string]interface{}{
		"slot":     slot.Name,
		"accepted": len(result.Accepted),
		"total":    len(docs[slot.Name]),
	})
	return result, nil
}

// Remove deletes the attachment with id from slot. A slot left with no
// attachments is removed from the map.
func (s *Store) Remove(docs models.Documents, slot, id string) (models.Attachment, error) {
	atts := docs[slot]
	for i, att := range atts {
		if att.ID != id {
			continue
		}
		rest := append(atts[:i:i], atts[i+1:]...)
		if len(rest) == 0 {
			delete(docs, slot)
		} else {
			docs[slot] = rest
		}
		s.logger.Info("attachment removed", map[string]interface{}{
			"slot":         slot,
			"attachmentId": id,
			"remaining":    len(rest),
		})
		return att, nil
	}
	return models.Attachment{}, fmt.Errorf("%w: %s in slot %s", ErrAttachmentNotFound, id, slot)
}

func (s *Store) reject(f models.File) string {
	switch {
	case strings.TrimSpace(f.Name) == "":
		return ReasonMissingName
	case f.Size <= 0:
		return ReasonEmptyFile
	case s.maxSize > 0 && f.Size > s.maxSize:
		return ReasonTooLarge
	}
	return ""
}
