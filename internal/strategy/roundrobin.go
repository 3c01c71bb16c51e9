package strategy

import (
	"sync"

	"github.com/ljluestc/balancer/internal/domain"
)

// RoundRobin cycles through the candidate list with a single cursor shared
// across all clients. The cursor is taken modulo the current list length, so
// a list that shrinks between calls wraps deterministically instead of
// erroring.
type RoundRobin struct {
	mu     sync.Mutex
	cursor uint64
}

// NewRoundRobin creates a new round-robin strategy
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Select returns the next server in rotation
func (s *RoundRobin) Select(servers []*domain.Server, _ string) *domain.Server {
	if len(servers) == 0 {
		return nil
	}

	s.mu.Lock()
	idx := s.cursor % uint64(len(servers))
	s.cursor++
	s.mu.Unlock()

	return servers[idx]
}

// Name returns the algorithm name
func (s *RoundRobin) Name() string {
	return string(domain.AlgorithmRoundRobin)
}
