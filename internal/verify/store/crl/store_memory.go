// Package crl provides revocation list store implementations: an in-memory
// store for tests and single-node deployments, and a redis read-through cache
// for production.
package crl

import (
	"context"
	"sync"

	"pa-gateway/internal/verify/models"
)

// Error Contract:
// FindByIssuer returns nil, nil when no list is stored for the issuer; the
// revocation checker maps that onto its fail-open branch. A non-nil error
// always means the store itself failed and wraps sentinel.ErrUnavailable.

// InMemoryStore keeps revocation lists keyed by issuer DN and country code.
// Safe for concurrent use.
type InMemoryStore struct {
	mu    sync.RWMutex
	lists map[memoryKey]*models.RevocationList
}

type memoryKey struct {
	issuerDN    string
	countryCode string
}

// NewMemory constructs an empty in-memory CRL store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{lists: make(map[memoryKey]*models.RevocationList)}
}

// Save stores a revocation list, replacing any previous list for the same
// issuer.
func (s *InMemoryStore) Save(_ context.Context, list *models.RevocationList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[memoryKey{list.IssuerDN, list.CountryCode}] = list
	return nil
}

// FindByIssuer returns the list for the issuer, or nil when absent.
func (s *InMemoryStore) FindByIssuer(_ context.Context, issuerDN, countryCode string) (*models.RevocationList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lists[memoryKey{issuerDN, countryCode}], nil
}
