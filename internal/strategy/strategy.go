// Package strategy implements the selection algorithms. Every strategy
// operates on an eligible candidate list that the dispatcher has already
// filtered for health, open circuit breakers, and capacity; strategies stay
// pure over that list.
package strategy

import (
	"fmt"

	"github.com/ljluestc/balancer/internal/domain"
)

// Strategy selects one server from the eligible candidate list. A nil return
// means the list was empty; callers map that to a no-healthy-servers failure.
type Strategy interface {
	Select(servers []*domain.Server, clientKey string) *domain.Server
	Name() string
}

// New creates the strategy for the given algorithm name
func New(algorithm domain.Algorithm) (Strategy, error) {
	switch algorithm {
	case domain.AlgorithmRoundRobin:
		return NewRoundRobin(), nil
	case domain.AlgorithmLeastConnections:
		return NewLeastConnections(), nil
	case domain.AlgorithmWeightedRoundRobin:
		return NewWeightedRandom(), nil
	case domain.AlgorithmKeyHash:
		return NewKeyHash(), nil
	case domain.AlgorithmRandom:
		return NewRandom(), nil
	default:
		return nil, fmt.Errorf("unsupported selection algorithm: %s", algorithm)
	}
}
