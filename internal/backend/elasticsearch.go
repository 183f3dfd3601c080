package backend

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

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
)

// Elasticsearch keeps one index per category.
type Elasticsearch struct {
	client *elasticsearch.Client
	prefix string
}

// ElasticsearchConfig holds the connection settings.
type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
}

// NewElasticsearch creates an Elasticsearch-backed search backend.
func NewElasticsearch(cfg ElasticsearchConfig, prefix string) (*Elasticsearch, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return NewElasticsearchWithClient(client, prefix), nil
}

func NewElasticsearchWithClient(client *elasticsearch.Client, prefix string) *Elasticsearch {
	return &Elasticsearch{client: client, prefix: prefix}
}

func (e *Elasticsearch) Name() string {
	return "elasticsearch"
}

func (e *Elasticsearch) index(cat domain.Category) string {
	return IndexName(e.prefix, cat)
}

// EnsureIndex creates the category index with its mapping when absent.
func (e *Elasticsearch) EnsureIndex(ctx context.Context, cat domain.Category) error {
	name := e.index(cat)

	res, err := e.client.Indices.Exists([]string{name}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: check index %s: %v", ErrIndexNotReady, name, err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("%w: check index %s: status %d", ErrIndexNotReady, name, res.StatusCode)
	}

	data, err := json.Marshal(esMapping(cat))
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = e.client.Indices.Create(
		name,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return fmt.Errorf("%w: create index %s: %v", ErrIndexNotReady, name, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		// Lost a creation race with another instance.
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("%w: create index %s: %s", ErrIndexNotReady, name, body)
	}
	return nil
}

// esMapping maps text fields as analyzed text, filter fields as keywords
// and created_at as a date.
func esMapping(cat domain.Category) map[string]interface{} {
	props := map[string]interface{}{
		domain.FieldCreatedAt: map[string]interface{}{"type": "date"},
	}
	for _, f := range cat.TextFields() {
		props[f] = map[string]interface{}{"type": "text"}
	}
	for _, f := range cat.FilterFields() {
		props[f] = map[string]interface{}{"type": "keyword"}
	}

	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"dynamic":    false,
			"properties": props,
		},
	}
}

// Upsert indexes doc and waits for the refresh that makes it searchable.
func (e *Elasticsearch) Upsert(ctx context.Context, doc domain.IndexDocument) error {
	data, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := e.client.Index(
		e.index(doc.Category),
		bytes.NewReader(data),
		e.client.Index.WithContext(ctx),
		e.client.Index.WithDocumentID(doc.ID),
		e.client.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// UpsertMany indexes docs in one bulk request.
func (e *Elasticsearch) UpsertMany(ctx context.Context, docs []domain.IndexDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		action := map[string]interface{}{
			"index": map[string]interface{}{"_index": e.index(doc.Category), "_id": doc.ID},
		}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("failed to encode bulk action: %w", err)
		}
		if err := enc.Encode(doc.Fields); err != nil {
			return fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
		}
	}

	res, err := e.client.Bulk(
		&buf,
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if result.Errors {
		var failed []string
		for _, item := range result.Items {
			for _, r := range item {
				if r.Status >= 300 {
					failed = append(failed, r.ID)
				}
			}
		}
		return fmt.Errorf("bulk index failed for %d documents: %s", len(failed), strings.Join(failed, ","))
	}
	return nil
}

// Remove deletes a document. A missing document is not an error.
func (e *Elasticsearch) Remove(ctx context.Context, cat domain.Category, id string) error {
	res, err := e.client.Delete(
		e.index(cat),
		id,
		e.client.Delete.WithContext(ctx),
		e.client.Delete.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// Query runs a fuzzy multi_match across the category's text fields, or
// match_all for empty text, with filters as term clauses.
func (e *Elasticsearch) Query(ctx context.Context, q BackendQuery) (*HitPage, error) {
	data, err := json.Marshal(esQueryBody(q))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index(q.Category)),
		e.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", q.Category, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, esError(res)
	}

	var result esResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	page := &HitPage{
		Hits:  make([]Hit, 0, len(result.Hits.Hits)),
		Total: result.Hits.Total.Value,
	}
	for _, h := range result.Hits.Hits {
		hit := Hit{ID: h.ID}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		if len(h.Source) > 0 {
			_ = json.Unmarshal(h.Source, &hit.Fields)
		}
		page.Hits = append(page.Hits, hit)
	}
	return page, nil
}

func esQueryBody(q BackendQuery) map[string]interface{} {
	var must interface{}
	text := strings.TrimSpace(q.Text)
	if text == "" {
		must = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		must = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     text,
				"fields":    q.Category.TextFields(),
				"fuzziness": "AUTO",
			},
		}
	}

	filters := make([]interface{}, 0, len(q.Filters))
	for _, f := range q.Category.FilterFields() {
		if v, ok := q.Filters[f]; ok && v != "" {
			filters = append(filters, map[string]interface{}{
				"term": map[string]interface{}{f: v},
			})
		}
	}

	body := map[string]interface{}{
		"from":             q.Offset,
		"size":             q.Limit,
		"track_total_hits": true,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filters,
			},
		},
	}
	if text == "" {
		order := "desc"
		if !sortDescending(q.Sort) {
			order = "asc"
		}
		body["sort"] = []interface{}{
			map[string]interface{}{domain.FieldCreatedAt: map[string]interface{}{"order": order}},
		}
	}
	return body
}

// IsAvailable pings the cluster.
func (e *Elasticsearch) IsAvailable(ctx context.Context) bool {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

func (e *Elasticsearch) Close() error {
	return nil
}

func esError(res *esapi.Response) error {
	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrIndexNotReady, res.String())
	}
	if rejected(res.StatusCode) {
		return fmt.Errorf("%w: %s", ErrRejected, res.String())
	}
	return fmt.Errorf("elasticsearch error: %s", res.String())
}

// esResponse is the subset of the search response the adapter reads.
type esResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Score  *float64        `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}
