// Package revocation consults the issuing CSCA's certificate revocation list
// for the signer certificate's serial number.
//
// The check fails open: an unavailable or stale CRL never blocks a
// verification, but the degradation is recorded in the result so operators
// can audit how often revocation data was actually consulted.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pa-gateway/internal/verify/models"
	"pa-gateway/internal/verify/ports"
	"pa-gateway/pkg/platform/sentinel"
	"pa-gateway/pkg/requestcontext"
)

// DefaultTimeout bounds the CRL lookup, the only blocking I/O in a
// verification run.
const DefaultTimeout = 30 * time.Second

// Outcome is the result of a revocation check. Degraded means no usable CRL
// was available and the check fell open; Reason explains why.
type Outcome struct {
	Revoked  bool
	Degraded bool
	Reason   string
}

// Checker queries a CrlStore with a bounded timeout.
type Checker struct {
	store   ports.CrlStore
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithTimeout overrides the CRL lookup timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// New constructs a Checker over the given CRL store.
func New(store ports.CrlStore, opts ...Option) (*Checker, error) {
	if store == nil {
		return nil, fmt.Errorf("crl store is required")
	}
	c := &Checker{store: store, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Check looks up the CRL for issuingCSCA and tests the signer's serial
// number against its revoked set. A lookup failure, a missing list, or a
// stale list all resolve to the fail-open branch; the call never blocks
// longer than the configured timeout and never returns an error.
func (c *Checker) Check(ctx context.Context, signer, issuingCSCA *models.Certificate) Outcome {
	lookupCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	crl, err := c.store.FindByIssuer(lookupCtx, issuingCSCA.Subject.DistinguishedName, issuingCSCA.Subject.CountryCode)
	if err != nil {
		c.logDegraded(ctx, issuingCSCA, err)
		if errors.Is(err, sentinel.ErrUnavailable) {
			// Driver detail stays in the log line; the result carries a
			// stable reason.
			return Outcome{Degraded: true, Reason: "crl store unavailable"}
		}
		return Outcome{Degraded: true, Reason: fmt.Sprintf("crl lookup failed: %v", err)}
	}
	if crl == nil {
		return Outcome{Degraded: true, Reason: "no crl available for issuer"}
	}
	if !crl.IsCurrent(requestcontext.Now(ctx)) {
		return Outcome{Degraded: true, Reason: "crl outside its thisUpdate/nextUpdate window"}
	}

	if crl.IsRevoked(signer.X509.SerialNumber) {
		return Outcome{Revoked: true, Reason: fmt.Sprintf("serial %s listed in crl", signer.X509.SerialNumber)}
	}
	return Outcome{}
}

func (c *Checker) logDegraded(ctx context.Context, issuer *models.Certificate, err error) {
	if c.logger == nil {
		return
	}
	c.logger.WarnContext(ctx, "revocation check degraded",
		"issuer_dn", issuer.Subject.DistinguishedName,
		"country", issuer.Subject.CountryCode,
		"error", err,
	)
}
