// Package ports defines the read-only collaborator interfaces the
// verification core consumes. Implementations live under store/; the core
// never depends on a concrete backend.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks CertificateStore,CrlStore

import (
	"context"

	"pa-gateway/internal/verify/models"
)

// CertificateStore resolves certificates during signer lookup and trust chain
// building. Implementations must be safe for concurrent use; lookups are
// read-only.
type CertificateStore interface {
	// FindBySubjectDN returns every certificate whose subject DN matches.
	// Multiple matches are possible; the chain builder applies its own
	// tie-break. An empty slice with nil error means "none stored".
	FindBySubjectDN(ctx context.Context, subjectDN string) ([]*models.Certificate, error)

	// FindBySubjectDNAndSerial returns the certificate with the given subject
	// DN and normalized serial number, or nil, nil when absent (not an
	// error). A non-nil error means the store itself failed.
	FindBySubjectDNAndSerial(ctx context.Context, subjectDN, serial string) (*models.Certificate, error)
}

// CrlStore resolves the CRL issued by a CSCA. Any failure to produce a list
// (absent, timeout, transport error) is reported as nil, err or nil, nil;
// the revocation checker treats both as the fail-open case.
type CrlStore interface {
	FindByIssuer(ctx context.Context, issuerDN, countryCode string) (*models.RevocationList, error)
}
