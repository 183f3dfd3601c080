// Package mirror keeps the search index in step with primary-entity
// mutations. Index failures are reported as an Outcome and never fail
// the mutation that triggered them.
package mirror

import (
	"context"
	"time"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/backend"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/log"
)

// Outcome is the result of one mirror write.
type Outcome int

const (
	// Applied means the index now reflects the mutation.
	Applied Outcome = iota
	// Skipped means no backend is configured.
	Skipped
	// Failed means the index write failed and was logged.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Invalidator retires cached results for a category.
type Invalidator interface {
	Bump(ctx context.Context, cat domain.Category) error
}

// Writer projects entities into index documents and writes them through
// the backend.
type Writer struct {
	backend     backend.Backend
	invalidator Invalidator
	timeout     time.Duration
}

// NewWriter creates a mirror writer. Either collaborator may be nil.
func NewWriter(b backend.Backend, inv Invalidator, timeout time.Duration) *Writer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Writer{backend: b, invalidator: inv, timeout: timeout}
}

func (w *Writer) OnCreate(ctx context.Context, e domain.Entity) Outcome {
	return w.upsert(ctx, e)
}

func (w *Writer) OnUpdate(ctx context.Context, e domain.Entity) Outcome {
	return w.upsert(ctx, e)
}

// OnDelete removes the entity's document. Deleting twice is Applied both
// times.
func (w *Writer) OnDelete(ctx context.Context, cat domain.Category, id string) Outcome {
	ctx, cancel := w.detach(ctx)
	defer cancel()
	defer w.invalidate(ctx, cat)

	if w.backend == nil {
		return Skipped
	}

	if err := w.backend.Remove(ctx, cat, id); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).
			Str(log.FieldBackend, w.backend.Name()).
			Str(log.FieldCategory, string(cat)).
			Str(log.FieldEntityID, id).
			Msg("index delete failed")
		return Failed
	}
	return Applied
}

func (w *Writer) upsert(ctx context.Context, e domain.Entity) Outcome {
	ctx, cancel := w.detach(ctx)
	defer cancel()
	defer w.invalidate(ctx, e.EntityCategory())

	if w.backend == nil {
		return Skipped
	}

	if err := w.backend.Upsert(ctx, domain.Project(e)); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).
			Str(log.FieldBackend, w.backend.Name()).
			Str(log.FieldCategory, string(e.EntityCategory())).
			Str(log.FieldEntityID, e.EntityID()).
			Msg("index write failed")
		return Failed
	}
	return Applied
}

// Reindex upserts entities in bulk. It runs under the caller's context so
// a long rebuild can be cancelled.
func (w *Writer) Reindex(ctx context.Context, entities []domain.Entity) Outcome {
	if len(entities) == 0 {
		return Applied
	}

	touched := make(map[domain.Category]struct{})
	docs := make([]domain.IndexDocument, len(entities))
	for i, e := range entities {
		docs[i] = domain.Project(e)
		touched[e.EntityCategory()] = struct{}{}
	}
	defer func() {
		for cat := range touched {
			w.invalidate(ctx, cat)
		}
	}()

	if w.backend == nil {
		return Skipped
	}

	if err := w.backend.UpsertMany(ctx, docs); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).
			Str(log.FieldBackend, w.backend.Name()).
			Int("documents", len(docs)).
			Msg("bulk index write failed")
		return Failed
	}
	return Applied
}

// detach keeps the caller's values but not its cancellation, so a
// finished request cannot abort the index write.
func (w *Writer) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
}

// invalidate bumps the category generation. The primary data changed
// whatever happened to the index, so it runs on every outcome.
func (w *Writer) invalidate(ctx context.Context, cat domain.Category) {
	if w.invalidator == nil {
		return
	}
	if err := w.invalidator.Bump(ctx, cat); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldCategory, string(cat)).Msg("cache invalidation failed")
	}
}
