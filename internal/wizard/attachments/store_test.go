// internal/wizard/attachments/store_test.go
package attachments

import (
	"testing"

	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestStore(t *testing.T, maxSize int64) *Store {
	return NewStore(NewCounterGenerator("att"), maxSize, logger.NewTestLogger(t))
}

func singleSlot() models.DocumentSlot {
	return models.DocumentSlot{Name: "passport", AllowMultiple: false}
}

func multiSlot() models.DocumentSlot {
	return models.DocumentSlot{Name: "highSchoolTranscripts", AllowMultiple: true}
}

func pdf(name string, size int64) models.File {
	return models.File{Name: name, Size: size, ContentType: "application/pdf"}
}

// ==========================
// Upload
// ==========================

func TestUpload_FiltersInvalidFiles(t *testing.T) {
	tests := []struct {
		name   string
		file   models.File
		reason string
	}{
		{name: "zero byte", file: pdf("a.pdf", 0), reason: ReasonEmptyFile},
		{name: "negative size", file: pdf("a.pdf", -1), reason: ReasonEmptyFile},
		{name: "no name", file: pdf("  ", 10), reason: ReasonMissingName},
		{name: "too large", file: pdf("big.pdf", 2048), reason: ReasonTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, 1024)
			docs := models.Documents{}

			result, err := store.Upload(docs, multiSlot(), []models.File{tt.file})

			require.NoError(t, err)
			assert.Empty(t, result.Accepted)
			require.Len(t, result.Rejected, 1)
			assert.Equal(t, tt.reason, result.Rejected[0].Reason)
			assert.Equal(t, 0, docs.Count("highSchoolTranscripts"))
			_, present := docs["highSchoolTranscripts"]
			assert.False(t, present)
		})
	}
}

func TestUpload_ZeroByteFileLeavesExistingAttachments(t *testing.T) {
	store := newTestStore(t, 0)
	docs := models.Documents{}

	_, err := store.Upload(docs, singleSlot(), []models.File{pdf("passport.pdf", 100)})
	require.NoError(t, err)
	before := docs["passport"][0]

	_, err = store.Upload(docs, singleSlot(), []models.File{pdf("empty.pdf", 0)})
	require.NoError(t, err)

	assert.Equal(t, 1, docs.Count("passport"))
	assert.Equal(t, before, docs["passport"][0])
}

func TestUpload_SingleSlotReplaces(t *testing.T) {
	store := newTestStore(t, 0)
	docs := models.Documents{}

	_, err := store.Upload(docs, singleSlot(), []models.File{pdf("old.pdf", 10)})
	require.NoError(t, err)
	result, err := store.Upload(docs, singleSlot(), []models.File{pdf("new1.pdf", 10), pdf("new2.pdf", 10)})
	require.NoError(t, err)

	require.Len(t, docs["passport"], 1)
	assert.Equal(t, "new2.pdf", docs["passport"][0].File.Name)
	require.Len(t, result.Accepted, 1)
	assert.Equal(t, docs["passport"][0].ID, result.Accepted[0].ID)
}

func TestUpload_MultiSlotAppends(t *testing.T) {
	store := newTestStore(t, 0)
	docs := models.Documents{}

	_, err := store.Upload(docs, multiSlot(), []models.File{pdf("a.pdf", 10)})
	require.NoError(t, err)
	_, err = store.Upload(docs, multiSlot(), []models.File{pdf("b.pdf", 10), pdf("c.pdf", 0), pdf("d.pdf", 10)})
	require.NoError(t, err)

	names := []string{}
	for _, att := range docs["highSchoolTranscripts"] {
		names = append(names, att.File.Name)
	}
	assert.Equal(t, []string{"a.pdf", "b.pdf", "d.pdf"}, names)
}

func TestUpload_IDsAreUnique(t *testing.T) {
	store := newTestStore(t, 0)
	docs := models.Documents{}

	_, err := store.Upload(docs, multiSlot(), []models.File{pdf("a.pdf", 1), pdf("b.pdf", 1)})
	require.NoError(t, err)
	removed := docs["highSchoolTranscripts"][0].ID
	_, err = store.Remove(docs, "highSchoolTranscripts", removed)
	require.NoError(t, err)
	_, err = store.Upload(docs, multiSlot(), []models.File{pdf("c.pdf", 1)})
	require.NoError(t, err)

	seen := map[string]bool{removed: true}
	for _, att := range docs["highSchoolTranscripts"] {
		assert.False(t, seen[att.ID], "id %s reused", att.ID)
		seen[att.ID] = true
	}
}

func TestUpload_Errors(t *testing.T) {
	store := newTestStore(t, 0)

	_, err := store.Upload(nil, singleSlot(), []models.File{pdf("a.pdf", 1)})
	assert.ErrorIs(t, err, ErrNilDocuments)

	_, err = store.Upload(models.Documents{}, models.DocumentSlot{}, []models.File{pdf("a.pdf", 1)})
	assert.ErrorIs(t, err, ErrSlotNameRequired)
}

// ==========================
// Remove
// ==========================

func TestRemove_LastAttachmentDeletesSlot(t *testing.T) {
	store := newTestStore(t, 0)
	docs := models.Documents{}
	_, err := store.Upload(docs, singleSlot(), []models.File{pdf("p.pdf", 10)})
	require.NoError(t, err)

	removed, err := store.Remove(docs, "passport", docs["passport"][0].ID)

	require.NoError(t, err)
	assert.Equal(t, "p.pdf", removed.File.Name)
	_, present := docs["passport"]
	assert.False(t, present)
}

func TestRemove_KeepsOtherAttachments(t *testing.T) {
	store := newTestStore(t, 0)
	docs := models.Documents{}
	_, err := store.Upload(docs, multiSlot(), []models.File{pdf("a.pdf", 1), pdf("b.pdf", 1), pdf("c.pdf", 1)})
	require.NoError(t, err)
	snapshot := docs.Clone()

	_, err = store.Remove(docs, "highSchoolTranscripts", docs["highSchoolTranscripts"][1].ID)

	require.NoError(t, err)
	require.Len(t, docs["highSchoolTranscripts"], 2)
	assert.Equal(t, "a.pdf", docs["highSchoolTranscripts"][0].File.Name)
	assert.Equal(t, "c.pdf", docs["highSchoolTranscripts"][1].File.Name)
	assert.Len(t, snapshot["highSchoolTranscripts"], 3)
}

func TestRemove_UnknownID(t *testing.T) {
	store := newTestStore(t, 0)
	docs := models.Documents{}

	_, err := store.Remove(docs, "passport", "att-404")

	assert.ErrorIs(t, err, ErrAttachmentNotFound)
}

// ==========================
// ID generators
// ==========================

func TestCounterGenerator(t *testing.T) {
	gen := NewCounterGenerator("doc")
	assert.Equal(t, "doc-1", gen.NewID())
	assert.Equal(t, "doc-2", gen.NewID())

	assert.Equal(t, "att-1", NewCounterGenerator("").NewID())
}

func TestUUIDGenerator(t *testing.T) {
	gen := UUIDGenerator{}
	a, b := gen.NewID(), gen.NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
