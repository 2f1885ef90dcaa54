package models

import (
	"crypto"
	_ "crypto/sha256" // link SHA-256 for DigestAlgorithm.New
	_ "crypto/sha512" // link SHA-384/512 for DigestAlgorithm.New
	"encoding/asn1"
	"hash"
)

// DigestAlgorithm is one of the hash algorithms a security object may declare.
type DigestAlgorithm string

const (
	SHA256 DigestAlgorithm = "SHA-256"
	SHA384 DigestAlgorithm = "SHA-384"
	SHA512 DigestAlgorithm = "SHA-512"
)

// cryptoHash maps the enum onto crypto.Hash; the SHA-2 family is always
// linked in via crypto/sha256 and crypto/sha512 imports in the sod package.
func (d DigestAlgorithm) cryptoHash() crypto.Hash {
	switch d {
	case SHA256:
		return crypto.SHA256
	case SHA384:
		return crypto.SHA384
	case SHA512:
		return crypto.SHA512
	default:
		return 0
	}
}

// Valid reports whether d is a supported algorithm.
func (d DigestAlgorithm) Valid() bool {
	return d.cryptoHash() != 0
}

// New returns a fresh hash instance. Callers must check Valid first.
func (d DigestAlgorithm) New() hash.Hash {
	return d.cryptoHash().New()
}

// Size returns the digest length in bytes, 0 for unsupported algorithms.
func (d DigestAlgorithm) Size() int {
	h := d.cryptoHash()
	if h == 0 {
		return 0
	}
	return h.Size()
}

// SignerReference identifies the SOD signer certificate within the signed-data
// certificate set, either by issuer+serial or by subject key identifier.
type SignerReference struct {
	IssuerDN     string
	SerialNumber string
	SubjectKeyID []byte
}

// SignerInfo carries the parts of the signed-data signer entry needed to
// verify the signature independently of decoding.
type SignerInfo struct {
	DigestAlgorithm    DigestAlgorithm
	SignatureAlgorithm asn1.ObjectIdentifier
	Signature          []byte

	// SignedAttributes is the DER of the signed attributes in SET form (the
	// form the signature covers), empty when the signer signed the content
	// directly.
	SignedAttributes []byte

	// MessageDigest is the digest declared inside the signed attributes.
	MessageDigest []byte

	// ContentTypeAttribute is the content-type signed attribute; the
	// signature verifier checks it against the encapsulated content type.
	ContentTypeAttribute asn1.ObjectIdentifier
}

// SecurityObject is the decoded SOD: the digest algorithm, the declared
// per-data-group hashes, and the material needed to check the embedded
// signature. Built once per verification and discarded after use.
type SecurityObject struct {
	LDSVersion      int
	DigestAlgorithm DigestAlgorithm

	// DataGroupHashes maps data-group number to the declared hash.
	// DataGroupOrder preserves the declaration order for diagnostics.
	DataGroupHashes map[int][]byte
	DataGroupOrder  []int

	Signer            SignerReference
	SignerCertificate *Certificate
	SignerInfo        SignerInfo

	// EContentType is the declared type OID of the encapsulated content.
	EContentType asn1.ObjectIdentifier

	// SignedContent is the DER of the encapsulated LDSSecurityObject, the
	// bytes the content digest is computed over.
	SignedContent []byte
}

// DeclaredHash returns the declared hash for a data-group number.
func (s *SecurityObject) DeclaredHash(dg int) ([]byte, bool) {
	h, ok := s.DataGroupHashes[dg]
	return h, ok
}
