package service

import (
	"sync/atomic"
	"time"

	"jats/internal/models"
)

// State: то, что раннер публикует для health-эндпоинтов.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	snapshot atomic.Pointer[models.Snapshot]
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) Publish(snap models.Snapshot) { s.snapshot.Store(&snap) }

func (s *State) Snapshot() (models.Snapshot, bool) {
	p := s.snapshot.Load()
	if p == nil {
		return models.Snapshot{}, false
	}
	return *p, true
}

func (s *State) LastTick() time.Time {
	snap, ok := s.Snapshot()
	if !ok {
		return time.Time{}
	}
	return snap.UpdatedAt
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
