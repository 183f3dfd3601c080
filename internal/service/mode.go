package service

import (
	"sync/atomic"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
)

// ModeCell holds the process-wide routing mode. Reads and writes are
// atomic; a call that races a flip sees either mode.
type ModeCell struct {
	fallback atomic.Bool
}

func NewModeCell(m domain.Mode) *ModeCell {
	c := &ModeCell{}
	c.Store(m)
	return c
}

func (c *ModeCell) Load() domain.Mode {
	if c.fallback.Load() {
		return domain.ModeFallback
	}
	return domain.ModeBackend
}

func (c *ModeCell) Store(m domain.Mode) {
	c.fallback.Store(m != domain.ModeBackend)
}

// Swap stores m and reports whether the mode changed.
func (c *ModeCell) Swap(m domain.Mode) bool {
	next := m != domain.ModeBackend
	return c.fallback.Swap(next) != next
}
