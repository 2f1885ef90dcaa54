package testpki

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509/pkix"
	"encoding/asn1"
	"sort"
	"testing"
)

// OIDs mirrored from the wire format; SOD construction is SHA-256 with RSA
// PKCS #1 v1.5 throughout.
var (
	oidSignedData             = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
	oidLDSSecurityObject      = asn1.ObjectIdentifier{2, 23, 136, 1, 1, 1}
	oidAttributeContentType   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	oidAttributeMessageDigest = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
	oidSHA256                 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	oidSHA256WithRSA          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
)

// Marshal-side CMS shapes. Pre-tagged RawValues carry the explicit and
// implicit wrappers, so these stay tag-free.

type sodContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue
}

type sodSignedData struct {
	Version          int
	DigestAlgorithms []pkix.AlgorithmIdentifier `asn1:"set"`
	EncapContentInfo sodEncapContent
	Certificates     asn1.RawValue
	SignerInfos      asn1.RawValue
}

type sodEncapContent struct {
	EContentType asn1.ObjectIdentifier
	EContent     asn1.RawValue
}

type sodSignerInfo struct {
	Version            int
	SID                asn1.RawValue
	DigestAlgorithm    pkix.AlgorithmIdentifier
	SignedAttrs        asn1.RawValue
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Signature          []byte
}

type sodSignerInfoDirect struct {
	Version            int
	SID                asn1.RawValue
	DigestAlgorithm    pkix.AlgorithmIdentifier
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Signature          []byte
}

type sodAttribute struct {
	Type   asn1.ObjectIdentifier
	Values asn1.RawValue
}

type sodLDSSecurityObject struct {
	Version             int
	HashAlgorithm       pkix.AlgorithmIdentifier
	DataGroupHashValues []sodDataGroupHash
}

type sodDataGroupHash struct {
	DataGroupNumber int
	HashValue       []byte
}

type sodBuilder struct {
	signerKey       *rsa.PrivateKey
	omitSignedAttrs bool
	messageDigest   []byte
	contentType     asn1.ObjectIdentifier
}

// SODOption adjusts SOD construction, mostly to produce deliberately broken
// files.
type SODOption func(*sodBuilder)

// WithSignerKey signs with a different key than the DSC's, yielding a SOD
// whose signature does not verify against the stored certificate.
func WithSignerKey(key *rsa.PrivateKey) SODOption {
	return func(b *sodBuilder) {
		b.signerKey = key
	}
}

// WithoutSignedAttrs signs the content digest directly instead of using
// signed attributes.
func WithoutSignedAttrs() SODOption {
	return func(b *sodBuilder) {
		b.omitSignedAttrs = true
	}
}

// WithMessageDigest forces the message-digest attribute value, so the
// attribute no longer matches the content.
func WithMessageDigest(digest []byte) SODOption {
	return func(b *sodBuilder) {
		b.messageDigest = digest
	}
}

// WithContentTypeOID forces the encapsulated content type OID.
func WithContentTypeOID(oid asn1.ObjectIdentifier) SODOption {
	return func(b *sodBuilder) {
		b.contentType = oid
	}
}

// DGHashes hashes each supplied data group with SHA-256, producing the
// declared hash set for a matching SOD.
func DGHashes(dataGroups map[int][]byte) map[int][]byte {
	hashes := make(map[int][]byte, len(dataGroups))
	for dg, raw := range dataGroups {
		sum := sha256.Sum256(raw)
		hashes[dg] = sum[:]
	}
	return hashes
}

// BuildSOD encodes a complete SOD file: the LDS application envelope around a
// CMS SignedData whose encapsulated content declares the given hashes and
// whose signer is the authority's DSC.
func (a *Authority) BuildSOD(t *testing.T, declaredHashes map[int][]byte, opts ...SODOption) []byte {
	t.Helper()

	b := &sodBuilder{
		signerKey:   a.DSCKey,
		contentType: oidLDSSecurityObject,
	}
	for _, opt := range opts {
		opt(b)
	}

	ldsDER := marshalLDS(t, declaredHashes)
	contentDigest := sha256.Sum256(ldsDER)

	var siDER []byte
	if b.omitSignedAttrs {
		sig := signDigest(t, b.signerKey, contentDigest[:])
		siDER = mustMarshal(t, sodSignerInfoDirect{
			Version:            1,
			SID:                a.signerSID(t),
			DigestAlgorithm:    algID(oidSHA256),
			SignatureAlgorithm: algID(oidSHA256WithRSA),
			Signature:          sig,
		})
	} else {
		declaredDigest := contentDigest[:]
		if b.messageDigest != nil {
			declaredDigest = b.messageDigest
		}
		setDER := marshalSignedAttrs(t, b.contentType, declaredDigest)

		attrsDigest := sha256.Sum256(setDER)
		sig := signDigest(t, b.signerKey, attrsDigest[:])

		// The wire form replaces the SET tag with IMPLICIT [0].
		wireAttrs := bytes.Clone(setDER)
		wireAttrs[0] = 0xA0

		siDER = mustMarshal(t, sodSignerInfo{
			Version:            1,
			SID:                a.signerSID(t),
			DigestAlgorithm:    algID(oidSHA256),
			SignedAttrs:        asn1.RawValue{FullBytes: wireAttrs},
			SignatureAlgorithm: algID(oidSHA256WithRSA),
			Signature:          sig,
		})
	}

	eContentOctets := mustMarshal(t, ldsDER)
	sd := sodSignedData{
		Version:          3,
		DigestAlgorithms: []pkix.AlgorithmIdentifier{algID(oidSHA256)},
		EncapContentInfo: sodEncapContent{
			EContentType: b.contentType,
			EContent:     contextWrapper(0, eContentOctets),
		},
		Certificates: contextWrapper(0, a.DSC.X509.DERBytes),
		SignerInfos:  setWrapper(siDER),
	}
	sdDER := mustMarshal(t, sd)

	ciDER := mustMarshal(t, sodContentInfo{
		ContentType: oidSignedData,
		Content:     contextWrapper(0, sdDER),
	})

	envelope := mustMarshal(t, asn1.RawValue{
		Class:      asn1.ClassApplication,
		Tag:        23,
		IsCompound: true,
		Bytes:      ciDER,
	})
	return envelope
}

// signerSID builds the version-1 IssuerAndSerialNumber identifier for the DSC.
func (a *Authority) signerSID(t *testing.T) asn1.RawValue {
	t.Helper()

	serialDER := mustMarshal(t, a.DSC.X509.Parsed.SerialNumber)
	inner := append(bytes.Clone(a.DSC.X509.Parsed.RawIssuer), serialDER...)
	return asn1.RawValue{
		Class:      asn1.ClassUniversal,
		Tag:        asn1.TagSequence,
		IsCompound: true,
		Bytes:      inner,
	}
}

func marshalLDS(t *testing.T, declaredHashes map[int][]byte) []byte {
	t.Helper()

	dgs := make([]int, 0, len(declaredHashes))
	for dg := range declaredHashes {
		dgs = append(dgs, dg)
	}
	sort.Ints(dgs)

	lds := sodLDSSecurityObject{
		Version:       0,
		HashAlgorithm: algID(oidSHA256),
	}
	for _, dg := range dgs {
		lds.DataGroupHashValues = append(lds.DataGroupHashValues, sodDataGroupHash{
			DataGroupNumber: dg,
			HashValue:       declaredHashes[dg],
		})
	}
	return mustMarshal(t, lds)
}

func marshalSignedAttrs(t *testing.T, contentType asn1.ObjectIdentifier, digest []byte) []byte {
	t.Helper()

	attrs := []sodAttribute{
		{Type: oidAttributeContentType, Values: setWrapper(mustMarshal(t, contentType))},
		{Type: oidAttributeMessageDigest, Values: setWrapper(mustMarshal(t, digest))},
	}
	setDER, err := asn1.MarshalWithParams(attrs, "set")
	if err != nil {
		t.Fatalf("marshal signed attributes: %v", err)
	}
	return setDER
}

func signDigest(t *testing.T, key *rsa.PrivateKey, digest []byte) []byte {
	t.Helper()

	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest)
	if err != nil {
		t.Fatalf("sign digest: %v", err)
	}
	return sig
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()

	der, err := asn1.Marshal(v)
	if err != nil {
		t.Fatalf("asn1 marshal %T: %v", v, err)
	}
	return der
}

func algID(oid asn1.ObjectIdentifier) pkix.AlgorithmIdentifier {
	return pkix.AlgorithmIdentifier{Algorithm: oid, Parameters: asn1.NullRawValue}
}

func contextWrapper(tag int, inner []byte) asn1.RawValue {
	return asn1.RawValue{
		Class:      asn1.ClassContextSpecific,
		Tag:        tag,
		IsCompound: true,
		Bytes:      inner,
	}
}

func setWrapper(inner []byte) asn1.RawValue {
	return asn1.RawValue{
		Class:      asn1.ClassUniversal,
		Tag:        asn1.TagSet,
		IsCompound: true,
		Bytes:      inner,
	}
}
