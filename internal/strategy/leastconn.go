package strategy

import (
	"github.com/ljluestc/balancer/internal/domain"
)

// LeastConnections picks the server with the fewest in-flight requests.
// Ties go to the first occurrence in list order, so the scan must not
// reorder the candidate list.
type LeastConnections struct{}

// NewLeastConnections creates a new least-connections strategy
func NewLeastConnections() *LeastConnections {
	return &LeastConnections{}
}

// Select returns the server with the smallest active connection count
func (s *LeastConnections) Select(servers []*domain.Server, _ string) *domain.Server {
	if len(servers) == 0 {
		return nil
	}

	selected := servers[0]
	min := selected.ActiveConnections()
	for _, srv := range servers[1:] {
		if conns := srv.ActiveConnections(); conns < min {
			min = conns
			selected = srv
		}
	}
	return selected
}

// Name returns the algorithm name
func (s *LeastConnections) Name() string {
	return string(domain.AlgorithmLeastConnections)
}
