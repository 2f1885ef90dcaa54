package models

import "time"

// RevocationList is a snapshot of a CSCA's certificate revocation list as
// supplied by the CrlStore. Read-only to the verification core.
type RevocationList struct {
	IssuerDN    string
	CountryCode string
	ThisUpdate  time.Time
	NextUpdate  time.Time

	// RevokedSerials holds normalized serial numbers (see NormalizeSerial).
	RevokedSerials map[string]struct{}
}

// IsRevoked reports whether the normalized serial appears in the revoked set.
func (l *RevocationList) IsRevoked(serial string) bool {
	_, ok := l.RevokedSerials[serial]
	return ok
}

// IsCurrent reports whether the list is fresh at the given instant. A stale
// list is treated the same as an unavailable one (fail-open).
func (l *RevocationList) IsCurrent(at time.Time) bool {
	if at.Before(l.ThisUpdate) {
		return false
	}
	if !l.NextUpdate.IsZero() && at.After(l.NextUpdate) {
		return false
	}
	return true
}
