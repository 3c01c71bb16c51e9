package strategy

import (
	"math/rand"

	"github.com/ljluestc/balancer/internal/domain"
)

// Random picks uniformly over the candidate list
type Random struct{}

// NewRandom creates a new random strategy
func NewRandom() *Random {
	return &Random{}
}

// Select returns a uniformly random server
func (s *Random) Select(servers []*domain.Server, _ string) *domain.Server {
	if len(servers) == 0 {
		return nil
	}
	return servers[rand.Intn(len(servers))]
}

// Name returns the algorithm name
func (s *Random) Name() string {
	return string(domain.AlgorithmRandom)
}
