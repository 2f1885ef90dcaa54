package models

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"math/big"
	"strings"
	"time"
)

// CertificateType is the role a certificate plays in the ICAO PKD. Roles
// differ in where they are stored and which policy applies to them, not in
// how they are verified.
type CertificateType string

const (
	TypeCSCA  CertificateType = "CSCA"
	TypeDSC   CertificateType = "DSC"
	TypeDSCNC CertificateType = "DSC_NC"
	TypeDS    CertificateType = "DS"
)

// SubjectInfo carries the subject attributes used for store lookups and
// diagnostics.
type SubjectInfo struct {
	DistinguishedName string
	CountryCode       string
	Organization      string
	CommonName        string
}

// IssuerInfo carries the issuer linkage used by the trust chain builder.
type IssuerInfo struct {
	DistinguishedName string
	IsSelfSigned      bool
}

// ValidityPeriod is the certificate validity window.
type ValidityPeriod struct {
	NotBefore time.Time
	NotAfter  time.Time
}

// Contains reports whether t falls inside the validity window.
func (v ValidityPeriod) Contains(t time.Time) bool {
	return !t.Before(v.NotBefore) && !t.After(v.NotAfter)
}

// RemainingAt returns how much validity is left at t; negative when expired.
func (v ValidityPeriod) RemainingAt(t time.Time) time.Duration {
	return v.NotAfter.Sub(t)
}

// X509Data holds the raw certificate material needed for cryptographic checks.
type X509Data struct {
	DERBytes          []byte
	SerialNumber      string
	SHA256Fingerprint string
	PublicKey         crypto.PublicKey
	Parsed            *x509.Certificate
}

// Certificate is an immutable snapshot of a stored certificate. Instances are
// created during ingestion (outside this core) or by FromX509 and are never
// mutated by verification.
type Certificate struct {
	Subject  SubjectInfo
	Issuer   IssuerInfo
	Validity ValidityPeriod
	X509     X509Data
	Type     CertificateType
}

// ID is the stable identity of the certificate: its SHA-256 fingerprint.
// The chain builder's visited set is keyed on it.
func (c *Certificate) ID() string {
	return c.X509.SHA256Fingerprint
}

// FromX509 derives the store model from a parsed x509 certificate. DN strings
// use RFC 2253 serialization; the self-signed flag compares the DER encodings
// of subject and issuer byte for byte.
func FromX509(cert *x509.Certificate, typ CertificateType) *Certificate {
	sum := sha256.Sum256(cert.Raw)
	return &Certificate{
		Subject: SubjectInfo{
			DistinguishedName: cert.Subject.String(),
			CountryCode:       firstOrEmpty(cert.Subject.Country),
			Organization:      firstOrEmpty(cert.Subject.Organization),
			CommonName:        cert.Subject.CommonName,
		},
		Issuer: IssuerInfo{
			DistinguishedName: cert.Issuer.String(),
			IsSelfSigned:      bytes.Equal(cert.RawSubject, cert.RawIssuer),
		},
		Validity: ValidityPeriod{
			NotBefore: cert.NotBefore,
			NotAfter:  cert.NotAfter,
		},
		X509: X509Data{
			DERBytes:          cert.Raw,
			SerialNumber:      NormalizeSerial(cert.SerialNumber),
			SHA256Fingerprint: hex.EncodeToString(sum[:]),
			PublicKey:         cert.PublicKey,
			Parsed:            cert,
		},
		Type: typ,
	}
}

// NormalizeSerial renders a serial number as upper-case hex without leading
// zeros, the canonical form shared by store keys and CRL revoked sets.
func NormalizeSerial(serial *big.Int) string {
	if serial == nil {
		return ""
	}
	return strings.ToUpper(serial.Text(16))
}

// TrustPath is an ordered certificate chain, root first. The first element is
// self-signed and each element's subject DN equals the next element's issuer
// DN.
type TrustPath struct {
	Certificates []*Certificate
}

// Root returns the self-signed anchor, or nil for an empty path.
func (p *TrustPath) Root() *Certificate {
	if len(p.Certificates) == 0 {
		return nil
	}
	return p.Certificates[0]
}

// Leaf returns the end-entity certificate, or nil for an empty path.
func (p *TrustPath) Leaf() *Certificate {
	if len(p.Certificates) == 0 {
		return nil
	}
	return p.Certificates[len(p.Certificates)-1]
}

// Len returns the number of certificates in the path.
func (p *TrustPath) Len() int {
	return len(p.Certificates)
}

// Fingerprints lists the path's certificate IDs root-first for diagnostics.
func (p *TrustPath) Fingerprints() []string {
	out := make([]string, len(p.Certificates))
	for i, c := range p.Certificates {
		out[i] = c.ID()
	}
	return out
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
