package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
)

const meiliTaskInterval = 50 * time.Millisecond

// Meilisearch keeps one index per category. Typo tolerance gives the
// length-scaled fuzziness; every write waits for its task so the change
// is visible on return.
type Meilisearch struct {
	client meili.ServiceManager
	prefix string
}

// NewMeilisearch creates a Meilisearch-backed search backend.
func NewMeilisearch(url, apiKey, prefix string) *Meilisearch {
	return NewMeilisearchWithClient(meili.New(url, meili.WithAPIKey(apiKey)), prefix)
}

func NewMeilisearchWithClient(client meili.ServiceManager, prefix string) *Meilisearch {
	return &Meilisearch{client: client, prefix: prefix}
}

func (m *Meilisearch) Name() string {
	return "meilisearch"
}

func (m *Meilisearch) index(cat domain.Category) string {
	return IndexName(m.prefix, cat)
}

// EnsureIndex creates the category index and its attribute settings when
// the index does not exist yet.
func (m *Meilisearch) EnsureIndex(ctx context.Context, cat domain.Category) error {
	uid := m.index(cat)

	_, err := m.client.GetIndexWithContext(ctx, uid)
	if err == nil {
		return nil
	}
	if !isMeiliStatus(err, http.StatusNotFound) {
		return fmt.Errorf("%w: get index %s: %v", ErrIndexNotReady, uid, err)
	}

	task, err := m.client.CreateIndexWithContext(ctx, &meili.IndexConfig{
		Uid:        uid,
		PrimaryKey: "id",
	})
	if err != nil {
		return fmt.Errorf("%w: create index %s: %v", ErrIndexNotReady, uid, err)
	}
	if err := m.wait(ctx, task); err != nil && !strings.Contains(err.Error(), "index_already_exists") {
		return fmt.Errorf("%w: create index %s: %v", ErrIndexNotReady, uid, err)
	}

	idx := m.client.Index(uid)

	searchable := cat.TextFields()
	if task, err = idx.UpdateSearchableAttributesWithContext(ctx, &searchable); err != nil {
		return fmt.Errorf("%w: searchable attributes %s: %v", ErrIndexNotReady, uid, err)
	}
	if err := m.wait(ctx, task); err != nil {
		return fmt.Errorf("%w: searchable attributes %s: %v", ErrIndexNotReady, uid, err)
	}

	filterable := make([]interface{}, 0, len(cat.FilterFields()))
	for _, f := range cat.FilterFields() {
		filterable = append(filterable, f)
	}
	if task, err = idx.UpdateFilterableAttributesWithContext(ctx, &filterable); err != nil {
		return fmt.Errorf("%w: filterable attributes %s: %v", ErrIndexNotReady, uid, err)
	}
	if err := m.wait(ctx, task); err != nil {
		return fmt.Errorf("%w: filterable attributes %s: %v", ErrIndexNotReady, uid, err)
	}

	sortable := []string{domain.FieldCreatedAt}
	if task, err = idx.UpdateSortableAttributesWithContext(ctx, &sortable); err != nil {
		return fmt.Errorf("%w: sortable attributes %s: %v", ErrIndexNotReady, uid, err)
	}
	return m.wait(ctx, task)
}

// wait blocks until the task finishes and turns a failed task into an
// error.
func (m *Meilisearch) wait(ctx context.Context, info *meili.TaskInfo) error {
	if info == nil {
		return nil
	}
	task, err := m.client.WaitForTaskWithContext(ctx, info.TaskUID, meiliTaskInterval)
	if err != nil {
		return err
	}
	if task.Status == meili.TaskStatusFailed {
		return fmt.Errorf("task %d failed: %s: %s", task.UID, task.Error.Code, task.Error.Message)
	}
	return nil
}

// meiliDocument flattens doc for Meilisearch: the primary key joins the
// fields and created_at becomes a sortable unix timestamp.
func meiliDocument(doc domain.IndexDocument) map[string]interface{} {
	out := make(map[string]interface{}, len(doc.Fields)+1)
	for k, v := range doc.Fields {
		out[k] = v
	}
	out["id"] = doc.ID
	out[domain.FieldCreatedAt] = doc.CreatedAt().Unix()
	return out
}

func (m *Meilisearch) Upsert(ctx context.Context, doc domain.IndexDocument) error {
	return m.UpsertMany(ctx, []domain.IndexDocument{doc})
}

// UpsertMany adds documents per category index and waits for each task.
func (m *Meilisearch) UpsertMany(ctx context.Context, docs []domain.IndexDocument) error {
	byCategory := make(map[domain.Category][]map[string]interface{})
	for _, doc := range docs {
		byCategory[doc.Category] = append(byCategory[doc.Category], meiliDocument(doc))
	}

	for cat, batch := range byCategory {
		task, err := m.client.Index(m.index(cat)).AddDocumentsWithContext(ctx, batch, nil)
		if err != nil {
			return fmt.Errorf("failed to add documents to %s: %w", cat, err)
		}
		if err := m.wait(ctx, task); err != nil {
			return fmt.Errorf("failed to add documents to %s: %w", cat, err)
		}
	}
	return nil
}

// Remove deletes a document. Meilisearch treats an absent id as a
// successful no-op.
func (m *Meilisearch) Remove(ctx context.Context, cat domain.Category, id string) error {
	task, err := m.client.Index(m.index(cat)).DeleteDocumentWithContext(ctx, id, nil)
	if err != nil {
		if isMeiliStatus(err, http.StatusNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if err := m.wait(ctx, task); err != nil {
		if strings.Contains(err.Error(), "index_not_found") {
			return nil
		}
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

func (m *Meilisearch) Query(ctx context.Context, q BackendQuery) (*HitPage, error) {
	req := &meili.SearchRequest{ShowRankingScore: true}
	paged := q.Limit > 0 && q.Offset%q.Limit == 0
	if paged {
		// page mode makes meilisearch count every match instead of
		// estimating up to maxTotalHits
		req.Page = int64(q.Offset/q.Limit) + 1
		req.HitsPerPage = int64(q.Limit)
	} else {
		req.Offset = int64(q.Offset)
		req.Limit = int64(q.Limit)
	}
	if filter := meiliFilter(q.Category, q.Filters); filter != "" {
		req.Filter = filter
	}
	text := strings.TrimSpace(q.Text)
	if text == "" {
		order := "desc"
		if !sortDescending(q.Sort) {
			order = "asc"
		}
		req.Sort = []string{domain.FieldCreatedAt + ":" + order}
	}

	res, err := m.client.Index(m.index(q.Category)).SearchWithContext(ctx, text, req)
	if err != nil {
		if isMeiliStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %s: %v", ErrIndexNotReady, q.Category, err)
		}
		var merr *meili.Error
		if errors.As(err, &merr) && rejected(merr.StatusCode) {
			return nil, fmt.Errorf("%w: %s: %v", ErrRejected, q.Category, err)
		}
		return nil, fmt.Errorf("failed to search %s: %w", q.Category, err)
	}

	total := res.EstimatedTotalHits
	if paged {
		total = res.TotalHits
	}
	page := &HitPage{
		Hits:  make([]Hit, 0, len(res.Hits)),
		Total: int(total),
	}
	for _, h := range res.Hits {
		page.Hits = append(page.Hits, meiliHit(h))
	}
	return page, nil
}

// meiliFilter ANDs one equality expression per declared filter field.
func meiliFilter(cat domain.Category, filters map[string]string) string {
	var parts []string
	for _, f := range cat.FilterFields() {
		if v, ok := filters[f]; ok && v != "" {
			parts = append(parts, fmt.Sprintf("%s = %q", f, v))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, " AND ")
}

func meiliHit(h meili.Hit) Hit {
	hit := Hit{Fields: make(map[string]any, len(h))}
	for k, raw := range h {
		switch k {
		case "id":
			_ = json.Unmarshal(raw, &hit.ID)
		case "_rankingScore":
			_ = json.Unmarshal(raw, &hit.Score)
		default:
			var v any
			if err := json.Unmarshal(raw, &v); err == nil {
				hit.Fields[k] = v
			}
		}
	}
	return hit
}

func (m *Meilisearch) IsAvailable(ctx context.Context) bool {
	_, err := m.client.HealthWithContext(ctx)
	return err == nil
}

func (m *Meilisearch) Close() error {
	return nil
}

func isMeiliStatus(err error, status int) bool {
	var merr *meili.Error
	return errors.As(err, &merr) && merr.StatusCode == status
}
