// internal/shop/index.go
package shop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"review-funnel/internal/common/database"
	"review-funnel/internal/common/errors"
	"review-funnel/internal/common/logger"
)

// Index mirrors shop records into Elasticsearch for the admin dashboard's
// free-text search. It is best-effort: the Postgres store stays
// authoritative and indexing failures never fail account creation.
type Index struct {
	es        *database.ElasticsearchClient
	indexName string
	logger    logger.Logger
}

func NewIndex(es *database.ElasticsearchClient, indexName string, log logger.Logger) *Index {
	return &Index{es: es, indexName: indexName, logger: log}
}

// IndexRecord upserts a shop document keyed by user name.
func (i *Index) IndexRecord(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	client := i.es.GetClient()
	res, err := client.Index(
		i.indexName,
		bytes.NewReader(body),
		client.Index.WithDocumentID(rec.UserName),
		client.Index.WithContext(ctx),
		client.Index.WithRefresh("false"),
	)
	if err != nil {
		return errors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewSearchQueryFailedError(fmt.Errorf("index request returned %s", res.Status()))
	}
	return nil
}

// Search runs a free-text query across shop name, user name and place ID.
func (i *Index) Search(ctx context.Context, query string, size int) ([]Record, error) {
	if size <= 0 {
		size = 20
	}

	searchBody := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"shop_name^2", "user_name", "place_id"},
				"type":   "best_fields",
			},
		},
	}
	body, err := json.Marshal(searchBody)
	if err != nil {
		return nil, err
	}

	client := i.es.GetClient()
	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(i.indexName),
		client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, errors.NewSearchQueryFailedError(fmt.Errorf("search returned %s: %s", res.Status(), raw))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source Record `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}

	records := make([]Record, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		records = append(records, hit.Source)
	}
	return records, nil
}
