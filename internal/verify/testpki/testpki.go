// Package testpki builds throwaway PKI material for tests: a country CSCA, a
// document signer issued under it, and fully encoded SOD files carrying an
// LDS security object. Nothing here is safe for production use.
package testpki

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"pa-gateway/internal/verify/models"
)

const keyBits = 2048

// CertOption adjusts a certificate template before signing.
type CertOption func(*x509.Certificate)

// WithValidity overrides the template validity window.
func WithValidity(notBefore, notAfter time.Time) CertOption {
	return func(tmpl *x509.Certificate) {
		tmpl.NotBefore = notBefore
		tmpl.NotAfter = notAfter
	}
}

// WithSerial overrides the template serial number.
func WithSerial(serial *big.Int) CertOption {
	return func(tmpl *x509.Certificate) {
		tmpl.SerialNumber = serial
	}
}

// Authority is one issuing country in miniature: a self-signed CSCA and a
// document signer certificate issued under it.
type Authority struct {
	Country string

	CSCA    *models.Certificate
	CSCAKey *rsa.PrivateKey
	DSC     *models.Certificate
	DSCKey  *rsa.PrivateKey
}

// NewAuthority generates a CSCA and a DSC for the given country code.
func NewAuthority(t *testing.T, country string) *Authority {
	t.Helper()

	csca, cscaKey := NewSelfSigned(t, "CSCA "+country, country)
	dsc, dscKey := NewChild(t, csca, cscaKey, "DS "+country, models.TypeDSC)

	return &Authority{
		Country: country,
		CSCA:    csca,
		CSCAKey: cscaKey,
		DSC:     dsc,
		DSCKey:  dscKey,
	}
}

// NewSelfSigned generates a self-signed CA certificate.
func NewSelfSigned(t *testing.T, commonName, country string, opts ...CertOption) (*models.Certificate, *rsa.PrivateKey) {
	t.Helper()

	key := newKey(t)
	tmpl := baseTemplate(commonName, country)
	tmpl.IsCA = true
	tmpl.BasicConstraintsValid = true
	tmpl.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	for _, opt := range opts {
		opt(tmpl)
	}

	cert := signCertificate(t, tmpl, tmpl, &key.PublicKey, key)
	return models.FromX509(cert, models.TypeCSCA), key
}

// NewChild generates a certificate issued by parent.
func NewChild(t *testing.T, parent *models.Certificate, parentKey *rsa.PrivateKey, commonName string, typ models.CertificateType, opts ...CertOption) (*models.Certificate, *rsa.PrivateKey) {
	t.Helper()

	key := newKey(t)
	tmpl := baseTemplate(commonName, parent.Subject.CountryCode)
	tmpl.KeyUsage = x509.KeyUsageDigitalSignature
	if typ == models.TypeCSCA {
		tmpl.IsCA = true
		tmpl.BasicConstraintsValid = true
		tmpl.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	}
	for _, opt := range opts {
		opt(tmpl)
	}

	cert := signCertificate(t, tmpl, parent.X509.Parsed, &key.PublicKey, parentKey)
	return models.FromX509(cert, typ), key
}

func baseTemplate(commonName, country string) *x509.Certificate {
	return &x509.Certificate{
		SerialNumber: randomSerial(),
		Subject: pkix.Name{
			CommonName:   commonName,
			Country:      []string{country},
			Organization: []string{"Test PKD"},
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().Add(24 * time.Hour),
	}
}

func signCertificate(t *testing.T, tmpl, issuer *x509.Certificate, pub *rsa.PublicKey, signerKey *rsa.PrivateKey) *x509.Certificate {
	t.Helper()

	der, err := x509.CreateCertificate(rand.Reader, tmpl, issuer, pub, signerKey)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse created certificate: %v", err)
	}
	return cert
}

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return key
}

func randomSerial() *big.Int {
	limit := new(big.Int).Lsh(big.NewInt(1), 64)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		panic(err)
	}
	// Zero would normalize to an empty serial string.
	return serial.Add(serial, big.NewInt(1))
}
