package strategy

import (
	"github.com/ljluestc/balancer/internal/domain"
)

// KeyHash maps a client key deterministically onto a candidate-list position
// with a polynomial hash taken modulo the list length. The same key always
// hits the same position, but membership or order changes remap keys; this is
// plain modulo hashing, not a consistent-hash ring, and the remapping under
// topology churn is an accepted property.
type KeyHash struct{}

// NewKeyHash creates a new key-hash strategy
func NewKeyHash() *KeyHash {
	return &KeyHash{}
}

// Select returns the server the client key hashes to
func (s *KeyHash) Select(servers []*domain.Server, clientKey string) *domain.Server {
	if len(servers) == 0 {
		return nil
	}
	if clientKey == "" {
		return servers[0]
	}

	return servers[hashKey(clientKey)%uint32(len(servers))]
}

// Name returns the algorithm name
func (s *KeyHash) Name() string {
	return string(domain.AlgorithmKeyHash)
}

// hashKey is an order-sensitive polynomial accumulation over the key's bytes
func hashKey(key string) uint32 {
	var h uint32
	for i := 0; i < len(key); i++ {
		h = h*31 + uint32(key[i])
	}
	return h
}
