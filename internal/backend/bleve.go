package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
)

// Bleve is an embedded backend with one index per category, held in
// memory or under a directory on disk.
type Bleve struct {
	path   string
	prefix string

	mu      sync.RWMutex
	indexes map[domain.Category]bleve.Index
	closed  bool
}

// NewBleve creates an embedded backend. An empty path keeps the indexes
// in memory.
func NewBleve(path, prefix string) *Bleve {
	return &Bleve{
		path:    path,
		prefix:  prefix,
		indexes: make(map[domain.Category]bleve.Index),
	}
}

func (b *Bleve) Name() string {
	return "bleve"
}

// EnsureIndex opens or creates the category index.
func (b *Bleve) EnsureIndex(ctx context.Context, cat domain.Category) error {
	if !cat.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownCategory, cat)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrUnavailable
	}
	if _, ok := b.indexes[cat]; ok {
		return nil
	}

	idx, err := b.open(cat)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIndexNotReady, cat, err)
	}
	b.indexes[cat] = idx
	return nil
}

func (b *Bleve) open(cat domain.Category) (bleve.Index, error) {
	if b.path == "" {
		return bleve.NewMemOnly(bleveMapping(cat))
	}

	dir := filepath.Join(b.path, IndexName(b.prefix, cat)+".bleve")
	idx, err := bleve.Open(dir)
	if err == nil {
		return idx, nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, err
	}
	if err := os.MkdirAll(b.path, 0o755); err != nil {
		return nil, err
	}
	return bleve.New(dir, bleveMapping(cat))
}

// bleveMapping analyzes text fields with the standard analyzer and keeps
// filter fields whole.
func bleveMapping(cat domain.Category) mapping.IndexMapping {
	doc := bleve.NewDocumentStaticMapping()

	for _, f := range cat.TextFields() {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		fm.Store = true
		doc.AddFieldMappingsAt(f, fm)
	}
	for _, f := range cat.FilterFields() {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		fm.IncludeInAll = false
		doc.AddFieldMappingsAt(f, fm)
	}
	created := bleve.NewDateTimeFieldMapping()
	created.Store = true
	doc.AddFieldMappingsAt(domain.FieldCreatedAt, created)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = standard.Name
	return im
}

func (b *Bleve) get(cat domain.Category) (bleve.Index, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrUnavailable
	}
	idx, ok := b.indexes[cat]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotReady, cat)
	}
	return idx, nil
}

// Upsert indexes doc. Bleve writes are searchable once Index returns.
func (b *Bleve) Upsert(ctx context.Context, doc domain.IndexDocument) error {
	idx, err := b.get(doc.Category)
	if err != nil {
		return err
	}
	if err := idx.Index(doc.ID, doc.Fields); err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}
	return nil
}

// UpsertMany indexes docs with one batch per category.
func (b *Bleve) UpsertMany(ctx context.Context, docs []domain.IndexDocument) error {
	batches := make(map[domain.Category]*bleve.Batch)
	for _, doc := range docs {
		batch, ok := batches[doc.Category]
		if !ok {
			idx, err := b.get(doc.Category)
			if err != nil {
				return err
			}
			batch = idx.NewBatch()
			batches[doc.Category] = batch
		}
		if err := batch.Index(doc.ID, doc.Fields); err != nil {
			return fmt.Errorf("failed to batch document %s: %w", doc.ID, err)
		}
	}

	for cat, batch := range batches {
		idx, err := b.get(cat)
		if err != nil {
			return err
		}
		if err := idx.Batch(batch); err != nil {
			return fmt.Errorf("failed to apply batch for %s: %w", cat, err)
		}
	}
	return nil
}

func (b *Bleve) Remove(ctx context.Context, cat domain.Category, id string) error {
	idx, err := b.get(cat)
	if err != nil {
		return err
	}
	if err := idx.Delete(id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

// Query ORs a fuzzy match per term and text field, then ANDs the filters
// as exact terms.
func (b *Bleve) Query(ctx context.Context, q BackendQuery) (*HitPage, error) {
	idx, err := b.get(q.Category)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(bleveQuery(q), q.Limit, q.Offset, false)
	req.Fields = []string{"*"}
	if strings.TrimSpace(q.Text) == "" {
		if sortDescending(q.Sort) {
			req.SortBy([]string{"-" + domain.FieldCreatedAt, "_id"})
		} else {
			req.SortBy([]string{domain.FieldCreatedAt, "_id"})
		}
	}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", q.Category, err)
	}

	page := &HitPage{
		Hits:  make([]Hit, 0, len(res.Hits)),
		Total: int(res.Total),
	}
	for _, h := range res.Hits {
		page.Hits = append(page.Hits, Hit{ID: h.ID, Score: h.Score, Fields: h.Fields})
	}
	return page, nil
}

func bleveQuery(q BackendQuery) query.Query {
	var text query.Query
	terms := strings.Fields(strings.ToLower(q.Text))
	if len(terms) == 0 {
		text = bleve.NewMatchAllQuery()
	} else {
		var should []query.Query
		for _, term := range terms {
			for _, f := range q.Category.TextFields() {
				mq := bleve.NewMatchQuery(term)
				mq.SetField(f)
				mq.SetFuzziness(AutoFuzziness(term))
				should = append(should, mq)
			}
		}
		text = bleve.NewDisjunctionQuery(should...)
	}

	must := []query.Query{text}
	for _, f := range q.Category.FilterFields() {
		if v, ok := q.Filters[f]; ok && v != "" {
			tq := bleve.NewTermQuery(v)
			tq.SetField(f)
			must = append(must, tq)
		}
	}
	if len(must) == 1 {
		return text
	}
	return bleve.NewConjunctionQuery(must...)
}

// IsAvailable reports false once the backend is closed.
func (b *Bleve) IsAvailable(ctx context.Context) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.closed
}

func (b *Bleve) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for cat, idx := range b.indexes {
		if err := idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", cat, err))
		}
	}
	b.indexes = make(map[domain.Category]bleve.Index)
	return errors.Join(errs...)
}
