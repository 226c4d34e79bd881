// internal/catalog/postgres.go
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/models"

	"github.com/lib/pq"
)

const selectProgram = `
	SELECT id, name, images, attributes, meta_data
	FROM programs
	WHERE id = $1 AND deleted_at IS NULL`

// PostgresRepository reads programs from the programs table. images is a
// text[] column; attributes and meta_data are JSONB.
type PostgresRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresRepository(db *sql.DB, log logger.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "catalog.postgres"}),
	}
}

func (r *PostgresRepository) FetchProgramByID(ctx context.Context, id string) (*models.Program, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}

	var (
		p          models.Program
		images     []string
		attributes []byte
		metaData   []byte
	)
	err = r.db.QueryRowContext(ctx, selectProgram, id).
		Scan(&p.ID, &p.Name, pq.Array(&images), &attributes, &metaData)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProgramNotFound, id)
	}
	if err != nil {
		r.logger.Error("program query failed", map[string]interface{}{
			"programId": id,
			"error":     err,
		})
		return nil, apperrors.NewProgramFetchFailedError(id, err)
	}

	p.Images = images
	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &p.Attributes); err != nil {
			return nil, apperrors.NewProgramFetchFailedError(id, fmt.Errorf("decode attributes: %w", err))
		}
	}
	if len(metaData) > 0 {
		if err := json.Unmarshal(metaData, &p.MetaData); err != nil {
			return nil, apperrors.NewProgramFetchFailedError(id, fmt.Errorf("decode meta_data: %w", err))
		}
	}
	ensureMaps(&p)
	return &p, nil
}
