// Package catalog looks up the programs applicants apply to.
package catalog

import (
	"context"
	"errors"
	"strings"

	"admissions-wizard/internal/models"
)

var (
	ErrProgramNotFound  = errors.New("PROGRAM_NOT_FOUND")
	ErrInvalidProgramID = errors.New("INVALID_PROGRAM_ID")
)

// Fetcher looks a program up by id. It satisfies the wizard controller's
// ProgramFetcher.
type Fetcher interface {
	FetchProgramByID(ctx context.Context, id string) (*models.Program, error)
}

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidProgramID
	}
	return id, nil
}

func ensureMaps(p *models.Program) {
	if p.Attributes == nil {
		p.Attributes = map[string][]string{}
	}
	if p.MetaData == nil {
		p.MetaData = map[string]string{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
}
