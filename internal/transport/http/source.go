package http

import (
	"sync"

	"weeklypanel/internal/pipeline"
)

// ResultSource exposes the last completed pipeline run
type ResultSource interface {
	Latest() (*pipeline.Result, bool)
}

// Snapshot is a ResultSource holding one result, replaced atomically
type Snapshot struct {
	mu  sync.RWMutex
	res *pipeline.Result
}

// NewSnapshot returns an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// Store replaces the held result
func (s *Snapshot) Store(res *pipeline.Result) {
	s.mu.Lock()
	s.res = res
	s.mu.Unlock()
}

// Latest returns the held result, if any
func (s *Snapshot) Latest() (*pipeline.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.res, s.res != nil
}
