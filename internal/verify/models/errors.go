package models

import (
	"fmt"
	"time"
)

// The verification core resolves every expected failure mode to a typed
// error. Nothing here terminates the process; the orchestrator translates
// these into a terminal Result status.

// ParsingError reports a malformed envelope, signed-data structure, or
// security object. Always fatal for the run.
type ParsingError struct {
	Reason string
	Cause  error
}

func (e *ParsingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sod parsing: %s: %v", e.Reason, e.Cause)
	}
	return "sod parsing: " + e.Reason
}

func (e *ParsingError) Unwrap() error { return e.Cause }

// NewParsingError constructs a ParsingError without a cause.
func NewParsingError(reason string) *ParsingError {
	return &ParsingError{Reason: reason}
}

// WrapParsingError constructs a ParsingError with a cause.
func WrapParsingError(reason string, cause error) *ParsingError {
	return &ParsingError{Reason: reason, Cause: cause}
}

// CertificateNotFoundError reports a signer or issuer certificate missing
// from the certificate store.
type CertificateNotFoundError struct {
	SubjectDN    string
	SerialNumber string
}

func (e *CertificateNotFoundError) Error() string {
	if e.SerialNumber != "" {
		return fmt.Sprintf("certificate not found: subject=%q serial=%s", e.SubjectDN, e.SerialNumber)
	}
	return fmt.Sprintf("certificate not found: subject=%q", e.SubjectDN)
}

// Chain-break reasons. The builder always fails with one of these.
const (
	ChainReasonCircular       = "circular reference"
	ChainReasonMaxDepth       = "max depth exceeded"
	ChainReasonIssuerNotFound = "issuer not found"
)

// TrustChainBrokenError reports that no path from the signer certificate to a
// self-signed root could be established.
type TrustChainBrokenError struct {
	Reason string
	// SubjectDN is the certificate at which resolution stopped.
	SubjectDN string
}

func (e *TrustChainBrokenError) Error() string {
	return fmt.Sprintf("trust chain broken: %s at %q", e.Reason, e.SubjectDN)
}

// CertificateExpiredError reports a chain certificate outside its validity
// window at verification time. Non-fatal to chain construction, fatal to the
// overall verdict.
type CertificateExpiredError struct {
	Fingerprint string
	NotBefore   time.Time
	NotAfter    time.Time
	At          time.Time
}

func (e *CertificateExpiredError) Error() string {
	return fmt.Sprintf("certificate %s not valid at %s (window %s to %s)",
		e.Fingerprint, e.At.Format(time.RFC3339),
		e.NotBefore.Format(time.RFC3339), e.NotAfter.Format(time.RFC3339))
}

// SignatureInvalidError reports a failed SOD signature check with the
// specific reason (unsupported algorithm, malformed bytes, or mismatch).
type SignatureInvalidError struct {
	Reason string
	Cause  error
}

func (e *SignatureInvalidError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sod signature invalid: %s: %v", e.Reason, e.Cause)
	}
	return "sod signature invalid: " + e.Reason
}

func (e *SignatureInvalidError) Unwrap() error { return e.Cause }
