package service

import (
	"context"
	"sync"
	"time"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/backend"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/log"
)

// Prober periodically checks the backend and moves the mode cell between
// backend and fallback. Promotion needs promoteAfter consecutive
// successful probes plus ready indexes; one failed probe demotes.
type Prober struct {
	backend      backend.Backend
	mode         *ModeCell
	interval     time.Duration
	promoteAfter int
	timeout      time.Duration

	mu        sync.Mutex
	streak    int
	onPromote func(ctx context.Context)

	quit   chan struct{}
	doneCh chan struct{}
}

func NewProber(b backend.Backend, mode *ModeCell, interval time.Duration, promoteAfter int, timeout time.Duration) *Prober {
	if promoteAfter < 1 {
		promoteAfter = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Prober{
		backend:      b,
		mode:         mode,
		interval:     interval,
		promoteAfter: promoteAfter,
		timeout:      timeout,
		quit:         make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start launches the probe loop. It is a no-op without a backend or with
// a non-positive interval; Done is closed immediately in that case.
func (p *Prober) Start(ctx context.Context) {
	if p.backend == nil || p.interval <= 0 {
		close(p.doneCh)
		return
	}
	go p.run(ctx)
}

// OnPromote registers fn to run after every switch from fallback to
// backend, before the next probe. Writes that failed while the backend
// was down are only repaired by a pass like this.
func (p *Prober) OnPromote(fn func(ctx context.Context)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onPromote = fn
}

func (p *Prober) Stop() {
	close(p.quit)
}

func (p *Prober) Done() <-chan struct{} {
	return p.doneCh
}

func (p *Prober) run(ctx context.Context) {
	defer close(p.doneCh)

	l := log.Component("prober")
	l.Info().
		Str(log.FieldBackend, p.backend.Name()).
		Dur("interval", p.interval).
		Int("promote_after", p.promoteAfter).
		Msg("prober: started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.quit:
			l.Info().Msg("prober: stopped")
			return
		case <-ctx.Done():
			l.Info().Msg("prober: context cancelled")
			return
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}

// Probe runs one probe and returns the resulting mode. A promotion runs
// the OnPromote hook before Probe returns.
func (p *Prober) Probe(ctx context.Context) domain.Mode {
	mode, promoted, hook := p.probe(ctx)
	if promoted && hook != nil {
		hook(ctx)
	}
	return mode
}

func (p *Prober) probe(ctx context.Context) (domain.Mode, bool, func(context.Context)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	l := log.Component("prober")

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	available := p.backend.IsAvailable(probeCtx)
	cancel()

	if p.mode.Load() == domain.ModeBackend {
		p.streak = 0
		if !available {
			if p.mode.Swap(domain.ModeFallback) {
				l.Warn().Str(log.FieldBackend, p.backend.Name()).Msg("prober: backend unavailable, switching to fallback")
			}
		}
		return p.mode.Load(), false, nil
	}

	if !available {
		p.streak = 0
		return domain.ModeFallback, false, nil
	}

	p.streak++
	if p.streak < p.promoteAfter {
		return domain.ModeFallback, false, nil
	}

	if !backend.AllReady(backend.EnsureAll(ctx, p.backend)) {
		p.streak = 0
		l.Warn().Str(log.FieldBackend, p.backend.Name()).Msg("prober: backend reachable but indexes not ready")
		return domain.ModeFallback, false, nil
	}

	p.streak = 0
	if !p.mode.Swap(domain.ModeBackend) {
		return domain.ModeBackend, false, nil
	}
	l.Info().Str(log.FieldBackend, p.backend.Name()).Msg("prober: backend recovered, switching to backend")
	return domain.ModeBackend, true, p.onPromote
}
