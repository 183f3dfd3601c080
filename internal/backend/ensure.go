package backend

import (
	"context"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/log"
)

// EnsureAll ensures every category index. Failures are logged and the
// category is reported as not ready; they never propagate.
func EnsureAll(ctx context.Context, b Backend) map[domain.Category]bool {
	l := log.Ctx(ctx)
	ready := make(map[domain.Category]bool, len(domain.Categories))

	for _, cat := range domain.Categories {
		if err := b.EnsureIndex(ctx, cat); err != nil {
			l.Warn().Err(err).
				Str(log.FieldBackend, b.Name()).
				Str(log.FieldCategory, string(cat)).
				Msg("index not ready")
			ready[cat] = false
			continue
		}
		ready[cat] = true
	}
	return ready
}

// AllReady reports whether every category in ready is true.
func AllReady(ready map[domain.Category]bool) bool {
	for _, cat := range domain.Categories {
		if !ready[cat] {
			return false
		}
	}
	return true
}
