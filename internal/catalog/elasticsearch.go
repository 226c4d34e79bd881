// internal/catalog/elasticsearch.go
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchRepository reads programs by document id from a search index
// whose _source is the program JSON.
type ElasticsearchRepository struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticsearchRepository(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchRepository {
	return &ElasticsearchRepository{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "catalog.elasticsearch", "index": index}),
	}
}

type getResponse struct {
	ID     string         `json:"_id"`
	Found  bool           `json:"found"`
	Source models.Program `json:"_source"`
}

func (r *ElasticsearchRepository) FetchProgramByID(ctx context.Context, id string) (*models.Program, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}

	res, err := r.client.Get(r.index, id, r.client.Get.WithContext(ctx))
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(r.index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrProgramNotFound, id)
	}
	if res.IsError() {
		r.logger.Error("program lookup failed", map[string]interface{}{
			"programId": id,
			"status":    res.Status(),
		})
		return nil, apperrors.NewSearchQueryFailedError(r.index, fmt.Errorf("status %s", res.Status()))
	}

	var doc getResponse
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(r.index, fmt.Errorf("decode response: %w", err))
	}
	if !doc.Found {
		return nil, fmt.Errorf("%w: %s", ErrProgramNotFound, id)
	}

	p := doc.Source
	if p.ID == "" {
		p.ID = doc.ID
	}
	ensureMaps(&p)
	return &p, nil
}
