// Package search keeps an Elasticsearch read-model of matches for ranked
// shortlist queries.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/models"
)

const (
	DefaultIndex = "matches"
	MaxPageSize  = 100

	versionType = "external_gte"
)

var indexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id":                map[string]interface{}{"type": "keyword"},
			"candidateId":       map[string]interface{}{"type": "keyword"},
			"jobId":             map[string]interface{}{"type": "keyword"},
			"score":             map[string]interface{}{"type": "integer"},
			"decision":          map[string]interface{}{"type": "keyword"},
			"candidateMatrixId": map[string]interface{}{"type": "keyword"},
			"jobMatrixId":       map[string]interface{}{"type": "keyword"},
			"evidence":          map[string]interface{}{"type": "object", "enabled": false},
			"generatedAt":       map[string]interface{}{"type": "date"},
			"createdAt":         map[string]interface{}{"type": "date"},
			"updatedAt":         map[string]interface{}{"type": "date"},
			"version":           map[string]interface{}{"type": "long"},
		},
	},
}

// MatchIndex writes and queries match documents. A MatchIndex without a
// client is disabled: writes are skipped and queries return nothing.
type MatchIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewMatchIndex(client *elasticsearch.Client, index string) *MatchIndex {
	if index == "" {
		index = DefaultIndex
	}
	return &MatchIndex{client: client, index: index}
}

func (m *MatchIndex) Enabled() bool {
	return m != nil && m.client != nil
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (m *MatchIndex) EnsureIndex(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}

	res, err := esapi.IndicesExistsRequest{Index: []string{m.index}}.Do(ctx, m.client)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(m.index, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	body, _ := json.Marshal(indexMapping)
	res, err = esapi.IndicesCreateRequest{Index: m.index, Body: bytes.NewReader(body)}.Do(ctx, m.client)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(m.index, err)
	}
	defer res.Body.Close()
	if res.IsError() && !strings.Contains(readBody(res.Body), "resource_already_exists_exception") {
		return apperrors.NewSearchQueryFailedError(m.index, fmt.Errorf("create index: %s", res.Status()))
	}
	return nil
}

// IndexMatch stores the match under its id using the row version as an
// external version, so a snapshot older than the indexed one is ignored
// whatever order the writes arrive in.
func (m *MatchIndex) IndexMatch(ctx context.Context, match *models.Match) error {
	if !m.Enabled() {
		return nil
	}

	body, err := json.Marshal(match)
	if err != nil {
		return apperrors.NewInvalidInputError("encode match document: " + err.Error())
	}

	version := int(match.Version)
	req := esapi.IndexRequest{
		Index:       m.index,
		DocumentID:  match.ID,
		Body:        bytes.NewReader(body),
		Version:     &version,
		VersionType: versionType,
	}
	res, err := req.Do(ctx, m.client)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(m.index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusConflict {
		// a newer version is already indexed
		return nil
	}
	if res.IsError() {
		return apperrors.NewSearchQueryFailedError(m.index, fmt.Errorf("index match %s: %s", match.ID, readBody(res.Body)))
	}
	return nil
}

// TopQuery selects matches for one job. An empty Decision matches all.
type TopQuery struct {
	JobID    string
	MinScore int
	Decision models.Decision
	Limit    int
}

// TopMatches returns the best matches for a job, highest score first.
func (m *MatchIndex) TopMatches(ctx context.Context, q TopQuery) ([]models.Match, error) {
	if !m.Enabled() {
		return nil, nil
	}

	size := q.Limit
	if size < 1 {
		size = 20
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	body, _ := json.Marshal(buildTopQuery(q))
	req := esapi.SearchRequest{
		Index: []string{m.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, m.client)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(m.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(m.index, fmt.Errorf("search: %s", readBody(res.Body)))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source models.Match `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(m.index, err)
	}

	out := make([]models.Match, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

func buildTopQuery(q TopQuery) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"jobId": q.JobID}},
		map[string]interface{}{"range": map[string]interface{}{"score": map[string]interface{}{"gte": q.MinScore}}},
	}
	if q.Decision != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"decision": string(q.Decision)}})
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"sort": []interface{}{
			map[string]interface{}{"score": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"updatedAt": map[string]interface{}{"order": "desc"}},
		},
	}
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	return string(b)
}
