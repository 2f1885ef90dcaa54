// Package certificate provides the certificate trust store implementations.
// The in-memory store backs tests and single-node deployments; the postgres
// store is the production backend.
package certificate

import (
	"context"
	"sync"

	"pa-gateway/internal/verify/models"
)

// Error Contract:
// Lookup methods return nil (or an empty slice) with a nil error when nothing
// matches; a non-nil error always means the store itself failed and wraps
// sentinel.ErrUnavailable. Absence is a verification outcome, not an
// infrastructure fault.

// InMemoryStore keeps certificates indexed by subject DN. Safe for concurrent
// use.
type InMemoryStore struct {
	mu        sync.RWMutex
	bySubject map[string][]*models.Certificate
	seenByID  map[string]struct{}
}

// NewMemory constructs an empty in-memory certificate store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{
		bySubject: make(map[string][]*models.Certificate),
		seenByID:  make(map[string]struct{}),
	}
}

// Save adds a certificate to the store. Saving the same certificate twice is
// a no-op; distinct certificates sharing a subject DN accumulate.
func (s *InMemoryStore) Save(_ context.Context, cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seenByID[cert.ID()]; dup {
		return nil
	}
	s.seenByID[cert.ID()] = struct{}{}
	s.bySubject[cert.Subject.DistinguishedName] = append(s.bySubject[cert.Subject.DistinguishedName], cert)
	return nil
}

// FindBySubjectDN returns every certificate with the given subject DN.
func (s *InMemoryStore) FindBySubjectDN(_ context.Context, subjectDN string) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.bySubject[subjectDN]
	out := make([]*models.Certificate, len(stored))
	copy(out, stored)
	return out, nil
}

// FindBySubjectDNAndSerial returns the single certificate matching subject DN
// and normalized serial, or nil when absent.
func (s *InMemoryStore) FindBySubjectDNAndSerial(_ context.Context, subjectDN, serial string) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cert := range s.bySubject[subjectDN] {
		if cert.X509.SerialNumber == serial {
			return cert, nil
		}
	}
	return nil, nil
}
