package reconciler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/config"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/mirror"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/log"
)

var (
	ErrBackendDown = errors.New("search backend is not in use")
	ErrRunning     = errors.New("reindex already running")
)

// Source pages through live entities of a category.
type Source interface {
	ListBatch(ctx context.Context, cat domain.Category, offset, limit int) ([]domain.Entity, error)
}

// Reindexer bulk-writes entities into the search index.
type Reindexer interface {
	Reindex(ctx context.Context, entities []domain.Entity) mirror.Outcome
}

// ModeReader reports the current routing mode.
type ModeReader interface {
	Mode() domain.Mode
}

// Report summarises one reindex pass.
type Report struct {
	Indexed       map[domain.Category]int `json:"indexed"`
	FailedBatches int                     `json:"failed_batches"`
	Duration      time.Duration           `json:"-"`
}

// Reconciler periodically re-mirrors the primary store into the search
// index, repairing documents whose change events were lost.
type Reconciler struct {
	source  Source
	indexer Reindexer
	modes   ModeReader
	cfg     config.ReconcilerConfig

	running sync.Mutex
	quit    chan struct{}
	doneCh  chan struct{}
}

// New creates a new Reconciler.
func New(source Source, indexer Reindexer, modes ModeReader, cfg config.ReconcilerConfig) *Reconciler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Reconciler{
		source:  source,
		indexer: indexer,
		modes:   modes,
		cfg:     cfg,
		quit:    make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the reconciler in a background goroutine. A zero
// interval disables the periodic pass; RunOnce still works.
func (r *Reconciler) Start(ctx context.Context) {
	if r.cfg.Interval <= 0 {
		close(r.doneCh)
		return
	}
	go r.run(ctx)
}

// Stop signals the reconciler to stop and returns immediately.
// Call Done() to wait for it to exit.
func (r *Reconciler) Stop() {
	close(r.quit)
}

// Done returns a channel that is closed when the reconciler has fully stopped.
func (r *Reconciler) Done() <-chan struct{} {
	return r.doneCh
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l := log.L()
			if _, err := r.RunOnce(ctx); err != nil {
				l.Info().Err(err).Msg("reconciler: pass skipped")
			}
		}
	}
}

// RunOnce mirrors every live entity into the index in batches. It refuses
// to run while searches are answered from the fallback engine or while
// another pass is in progress.
func (r *Reconciler) RunOnce(ctx context.Context) (*Report, error) {
	if r.modes != nil && r.modes.Mode() != domain.ModeBackend {
		return nil, ErrBackendDown
	}
	if !r.running.TryLock() {
		return nil, ErrRunning
	}
	defer r.running.Unlock()

	l := log.L()
	l.Info().Msg("reconciler: starting reindex")

	start := time.Now()
	report := &Report{Indexed: make(map[domain.Category]int)}

	for _, cat := range domain.Categories {
		for offset := 0; ; offset += r.cfg.BatchSize {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			batch, err := r.source.ListBatch(ctx, cat, offset, r.cfg.BatchSize)
			if err != nil {
				l.Error().Err(err).Str(log.FieldCategory, string(cat)).Msg("reconciler: failed to list entities")
				report.FailedBatches++
				break
			}
			if len(batch) == 0 {
				break
			}

			if r.indexer.Reindex(ctx, batch) == mirror.Applied {
				report.Indexed[cat] += len(batch)
			} else {
				report.FailedBatches++
			}

			if len(batch) < r.cfg.BatchSize {
				break
			}
		}
	}

	report.Duration = time.Since(start)
	l.Info().
		Interface("indexed", report.Indexed).
		Int("failed_batches", report.FailedBatches).
		Dur("duration", report.Duration).
		Msg("reconciler: reindex complete")
	return report, nil
}
