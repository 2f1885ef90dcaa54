package sod

import (
	"crypto/x509/pkix"
	"encoding/asn1"
)

// Wire-format types for the CMS SignedData container (RFC 5652) and the
// LDSSecurityObject it encapsulates (ICAO Doc 9303 Part 10).

// contentInfo is the top-level CMS wrapper associating a content type OID
// with the content itself.
type contentInfo struct {
	ContentType asn1.ObjectIdentifier
	// Content holds the DER encoding of the content, wrapped in an explicit
	// [0] tag. Go's asn1 does not strip the wrapper for RawValue fields;
	// Content.Bytes holds the full SignedData SEQUENCE TLV.
	Content asn1.RawValue `asn1:"explicit,tag:0"`
}

// signedData is the CMS SignedData content type, RFC 5652 section 5.1.
type signedData struct {
	Version          int
	DigestAlgorithms []pkix.AlgorithmIdentifier `asn1:"set"`
	EncapContentInfo encapsulatedContentInfo
	Certificates     []asn1.RawValue `asn1:"optional,tag:0"`
	CRLs             []asn1.RawValue `asn1:"optional,tag:1"`
	SignerInfos      []signerInfo    `asn1:"set"`
}

// encapsulatedContentInfo holds the signed content and its type OID. For a
// SOD the content is always attached (eContent present).
type encapsulatedContentInfo struct {
	EContentType asn1.ObjectIdentifier
	// EContent is an OCTET STRING wrapped in an explicit [0] tag; absence
	// would indicate a detached signature, which a SOD never uses.
	EContent asn1.RawValue `asn1:"optional,explicit,tag:0"`
}

// signerInfo is the per-signer signature structure, RFC 5652 section 5.3.
type signerInfo struct {
	Version int
	// SID is a CHOICE between IssuerAndSerialNumber (SEQUENCE, version 1)
	// and SubjectKeyIdentifier ([0] IMPLICIT OCTET STRING, version 3); kept
	// raw for tag inspection.
	SID             asn1.RawValue
	DigestAlgorithm pkix.AlgorithmIdentifier
	// SignedAttrs uses IMPLICIT [0] on the wire; the digest is computed over
	// a re-encoding with the SET tag (0x31), per RFC 5652 section 5.4.
	SignedAttrs        asn1.RawValue `asn1:"optional,tag:0"`
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Signature          []byte
	UnsignedAttrs      asn1.RawValue `asn1:"optional,tag:1"`
}

// issuerAndSerialNumber identifies a certificate by issuer name and serial.
type issuerAndSerialNumber struct {
	Issuer       asn1.RawValue
	SerialNumber asn1.RawValue
}

// attribute is a single CMS attribute: an OID with a SET of values.
type attribute struct {
	Type   asn1.ObjectIdentifier
	Values asn1.RawValue `asn1:"set"`
}

// ldsSecurityObject is the encapsulated content of a SOD: the hash algorithm
// and the declared per-data-group hashes.
type ldsSecurityObject struct {
	Version             int
	HashAlgorithm       pkix.AlgorithmIdentifier
	DataGroupHashValues []dataGroupHash
}

// dataGroupHash pairs a data-group number with its declared hash value.
type dataGroupHash struct {
	DataGroupNumber int
	HashValue       []byte
}

// Content type OIDs.
var (
	oidSignedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}

	// oidLDSSecurityObject is id-icao-mrtd-security-ldsSecurityObject.
	oidLDSSecurityObject = asn1.ObjectIdentifier{2, 23, 136, 1, 1, 1}
)

// Signed attribute OIDs (PKCS #9).
var (
	oidAttributeContentType   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	oidAttributeMessageDigest = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
)

// Digest algorithm OIDs (FIPS 180-4).
var (
	oidSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	oidSHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	oidSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
)

// setTagByte is the ASN.1 SET tag used when re-encoding signedAttrs for
// digest computation; the wire form uses IMPLICIT [0] (0xA0).
const setTagByte = byte(0x31)
