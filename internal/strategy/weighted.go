package strategy

import (
	"math/rand"

	"github.com/ljluestc/balancer/internal/domain"
)

// WeightedRandom draws a uniform value in [0, totalWeight) and walks the
// candidate list subtracting each server's weight until the remainder goes
// negative. Over many trials the selection frequency converges to
// weight/totalWeight per server.
type WeightedRandom struct{}

// NewWeightedRandom creates a new weighted selection strategy
func NewWeightedRandom() *WeightedRandom {
	return &WeightedRandom{}
}

// Select returns a server drawn proportionally to its weight
func (s *WeightedRandom) Select(servers []*domain.Server, _ string) *domain.Server {
	if len(servers) == 0 {
		return nil
	}

	total := 0
	for _, srv := range servers {
		if srv.Weight > 0 {
			total += srv.Weight
		}
	}
	if total <= 0 {
		// Misconfigured weights, fall back to a uniform pick
		return servers[rand.Intn(len(servers))]
	}

	r := rand.Intn(total)
	for _, srv := range servers {
		if srv.Weight <= 0 {
			continue
		}
		r -= srv.Weight
		if r < 0 {
			return srv
		}
	}
	return servers[len(servers)-1]
}

// Name returns the algorithm name
func (s *WeightedRandom) Name() string {
	return string(domain.AlgorithmWeightedRoundRobin)
}
