// Package sod decodes the chip's security object: the LDS application
// envelope, the CMS SignedData container inside it, and the encapsulated
// LDSSecurityObject listing the declared data-group hashes.
//
// Decoding is pure: no I/O, no side effects. Every malformation resolves to
// a models.ParsingError.
package sod

import (
	"bytes"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"pa-gateway/internal/verify/models"
)

// ldsApplicationTag is the outer envelope tag of a SOD file: APPLICATION 23,
// constructed (0x77).
var ldsApplicationTag = cbasn1.Tag(23).Constructed() | 0x40

// maxDataGroup bounds the data-group numbers a SOD may declare (DG1–DG16).
const maxDataGroup = 16

// Decode unwraps rawFile and produces the decoded security object. The
// returned warnings record non-fatal anomalies (e.g. an ambiguous signer
// certificate match); errors are always *models.ParsingError.
func Decode(rawFile []byte) (*models.SecurityObject, []string, error) {
	var warnings []string

	signedDataDER, err := unwrapApplicationTag(rawFile)
	if err != nil {
		return nil, nil, err
	}

	sd, err := parseSignedData(signedDataDER)
	if err != nil {
		return nil, nil, err
	}

	ldsDER, eContentType, err := extractContent(sd)
	if err != nil {
		return nil, nil, err
	}

	so := &models.SecurityObject{
		EContentType:    eContentType,
		SignedContent:   ldsDER,
		DataGroupHashes: make(map[int][]byte),
	}

	if !eContentType.Equal(oidLDSSecurityObject) {
		// Some legacy issuers encapsulate the LDS object under id-data;
		// decode proceeds, but the anomaly is surfaced.
		warnings = append(warnings, fmt.Sprintf("encapsulated content type %s is not ldsSecurityObject", eContentType))
	}

	if err := decodeSecurityObjectContent(ldsDER, so); err != nil {
		return nil, nil, err
	}
	warnings = append(warnings, checkDeclaredHashLengths(so)...)

	if len(sd.SignerInfos) == 0 {
		return nil, nil, models.NewParsingError("signed-data contains no signer")
	}
	if len(sd.SignerInfos) > 1 {
		warnings = append(warnings, fmt.Sprintf("signed-data declares %d signers, using the first", len(sd.SignerInfos)))
	}
	si := sd.SignerInfos[0]

	if err := decodeSignerInfo(si, so); err != nil {
		return nil, nil, err
	}

	certs := parseCertificates(sd.Certificates)
	signerCert, ambiguous, err := resolveSignerCertificate(si, certs, so)
	if err != nil {
		return nil, nil, err
	}
	if ambiguous {
		warnings = append(warnings, "multiple embedded certificates match the signer reference, using the first")
	}
	so.SignerCertificate = models.FromX509(signerCert, models.TypeDSC)

	return so, warnings, nil
}

// unwrapApplicationTag strips the APPLICATION 23 envelope and returns the
// ContentInfo DER inside it.
func unwrapApplicationTag(rawFile []byte) ([]byte, error) {
	input := cryptobyte.String(rawFile)
	var inner cryptobyte.String
	if !input.ReadASN1(&inner, ldsApplicationTag) {
		return nil, models.NewParsingError("not LDS-tagged")
	}
	if !input.Empty() {
		return nil, models.NewParsingError("trailing data after LDS envelope")
	}
	return inner, nil
}

// parseSignedData parses the ContentInfo wrapper and the SignedData SEQUENCE
// inside its explicit [0] tag.
func parseSignedData(der []byte) (*signedData, error) {
	var ci contentInfo
	rest, err := asn1.Unmarshal(der, &ci)
	if err != nil {
		return nil, models.WrapParsingError("malformed signed-data", err)
	}
	if len(rest) > 0 {
		return nil, models.NewParsingError("trailing data after ContentInfo")
	}
	if !ci.ContentType.Equal(oidSignedData) {
		return nil, models.NewParsingError("malformed signed-data: content type is not SignedData")
	}

	var sd signedData
	if _, err := asn1.Unmarshal(ci.Content.Bytes, &sd); err != nil {
		return nil, models.WrapParsingError("malformed signed-data", err)
	}
	return &sd, nil
}

// extractContent pulls the encapsulated LDSSecurityObject DER out of the
// OCTET STRING inside the explicit [0] eContent tag.
func extractContent(sd *signedData) ([]byte, asn1.ObjectIdentifier, error) {
	if len(sd.EncapContentInfo.EContent.FullBytes) == 0 {
		return nil, nil, models.NewParsingError("signed-data has no encapsulated content")
	}
	var octets []byte
	if _, err := asn1.Unmarshal(sd.EncapContentInfo.EContent.Bytes, &octets); err != nil {
		return nil, nil, models.WrapParsingError("malformed encapsulated content", err)
	}
	return octets, sd.EncapContentInfo.EContentType, nil
}

// decodeSecurityObjectContent parses the LDSSecurityObject and fills the
// digest algorithm and declared hash set.
func decodeSecurityObjectContent(ldsDER []byte, so *models.SecurityObject) error {
	var lds ldsSecurityObject
	rest, err := asn1.Unmarshal(ldsDER, &lds)
	if err != nil {
		return models.WrapParsingError("malformed security object", err)
	}
	if len(rest) > 0 {
		return models.NewParsingError("trailing data after security object")
	}

	alg, ok := digestAlgorithmFromOID(lds.HashAlgorithm.Algorithm)
	if !ok {
		return models.NewParsingError("unsupported digest algorithm")
	}

	so.LDSVersion = lds.Version
	so.DigestAlgorithm = alg

	if len(lds.DataGroupHashValues) == 0 {
		return models.NewParsingError("security object declares no data groups")
	}
	for _, dgh := range lds.DataGroupHashValues {
		if dgh.DataGroupNumber < 1 || dgh.DataGroupNumber > maxDataGroup {
			return models.NewParsingError(fmt.Sprintf("invalid data group number %d", dgh.DataGroupNumber))
		}
		if len(dgh.HashValue) == 0 {
			return models.NewParsingError(fmt.Sprintf("empty hash for data group %d", dgh.DataGroupNumber))
		}
		if _, dup := so.DataGroupHashes[dgh.DataGroupNumber]; dup {
			return models.NewParsingError(fmt.Sprintf("duplicate entry for data group %d", dgh.DataGroupNumber))
		}
		so.DataGroupHashes[dgh.DataGroupNumber] = dgh.HashValue
		so.DataGroupOrder = append(so.DataGroupOrder, dgh.DataGroupNumber)
	}
	return nil
}

// checkDeclaredHashLengths flags declared hashes whose length does not match
// the declared digest algorithm. Such a hash can never match a supplied data
// group, so the anomaly is worth surfacing before the hash check runs.
func checkDeclaredHashLengths(so *models.SecurityObject) []string {
	want := so.DigestAlgorithm.Size()
	var warnings []string
	for _, dg := range so.DataGroupOrder {
		if got := len(so.DataGroupHashes[dg]); got != want {
			warnings = append(warnings, fmt.Sprintf(
				"declared hash for data group %d is %d bytes, %s produces %d", dg, got, so.DigestAlgorithm, want))
		}
	}
	return warnings
}

// decodeSignerInfo extracts the signature material and signed attributes from
// the first SignerInfo.
func decodeSignerInfo(si signerInfo, so *models.SecurityObject) error {
	alg, ok := digestAlgorithmFromOID(si.DigestAlgorithm.Algorithm)
	if !ok {
		return models.NewParsingError("unsupported digest algorithm")
	}

	info := models.SignerInfo{
		DigestAlgorithm:    alg,
		SignatureAlgorithm: si.SignatureAlgorithm.Algorithm,
		Signature:          si.Signature,
	}

	if len(si.SignedAttrs.FullBytes) > 0 {
		// The signature covers the SET-tagged re-encoding, not the IMPLICIT
		// [0] wire form.
		setBytes := bytes.Clone(si.SignedAttrs.FullBytes)
		setBytes[0] = setTagByte

		var attrs []attribute
		if _, err := asn1.UnmarshalWithParams(setBytes, &attrs, "set"); err != nil {
			return models.WrapParsingError("malformed signed attributes", err)
		}
		for _, attr := range attrs {
			switch {
			case attr.Type.Equal(oidAttributeMessageDigest):
				var digest []byte
				if _, err := asn1.Unmarshal(attr.Values.Bytes, &digest); err != nil {
					return models.WrapParsingError("malformed message-digest attribute", err)
				}
				info.MessageDigest = digest
			case attr.Type.Equal(oidAttributeContentType):
				var oid asn1.ObjectIdentifier
				if _, err := asn1.Unmarshal(attr.Values.Bytes, &oid); err != nil {
					return models.WrapParsingError("malformed content-type attribute", err)
				}
				info.ContentTypeAttribute = oid
			}
		}
		if info.MessageDigest == nil {
			return models.NewParsingError("signed attributes lack a message digest")
		}
		info.SignedAttributes = setBytes
	}

	so.SignerInfo = info
	return nil
}

// parseCertificates decodes the embedded certificate set, silently skipping
// entries that are not plain certificates.
func parseCertificates(rawCerts []asn1.RawValue) []*x509.Certificate {
	var certs []*x509.Certificate
	for _, raw := range rawCerts {
		cert, err := x509.ParseCertificate(raw.FullBytes)
		if err != nil {
			continue
		}
		certs = append(certs, cert)
	}
	return certs
}

// resolveSignerCertificate matches the SignerInfo's SID against the embedded
// certificates and records the signer reference. Exactly one match is
// expected; more than one is tolerated with the first used.
func resolveSignerCertificate(si signerInfo, certs []*x509.Certificate, so *models.SecurityObject) (*x509.Certificate, bool, error) {
	var matches []*x509.Certificate

	switch si.Version {
	case 1:
		var isn issuerAndSerialNumber
		if _, err := asn1.Unmarshal(si.SID.FullBytes, &isn); err != nil {
			return nil, false, models.WrapParsingError("malformed signer identifier", err)
		}
		serial := new(big.Int).SetBytes(isn.SerialNumber.Bytes)
		so.Signer = models.SignerReference{
			IssuerDN:     issuerDNString(isn.Issuer.FullBytes),
			SerialNumber: models.NormalizeSerial(serial),
		}
		for _, cert := range certs {
			if cert.SerialNumber.Cmp(serial) == 0 && bytes.Equal(cert.RawIssuer, isn.Issuer.FullBytes) {
				matches = append(matches, cert)
			}
		}
	case 3:
		// [0] IMPLICIT OCTET STRING holding the subject key identifier.
		ski := si.SID.Bytes
		so.Signer = models.SignerReference{SubjectKeyID: ski}
		for _, cert := range certs {
			if bytes.Equal(cert.SubjectKeyId, ski) {
				matches = append(matches, cert)
			}
		}
	default:
		return nil, false, models.NewParsingError(fmt.Sprintf("unsupported signer info version %d", si.Version))
	}

	if len(matches) == 0 {
		return nil, false, models.NewParsingError("signer certificate not embedded in signed-data")
	}
	return matches[0], len(matches) > 1, nil
}

// issuerDNString renders a raw DER Name in the RFC 2253 form used as store
// keys. Failure to parse is tolerated; the DN is informational here and the
// certificate match below uses the raw bytes.
func issuerDNString(rawName []byte) string {
	var rdn pkix.RDNSequence
	if _, err := asn1.Unmarshal(rawName, &rdn); err != nil {
		return ""
	}
	var name pkix.Name
	name.FillFromRDNSequence(&rdn)
	return name.String()
}

// digestAlgorithmFromOID maps a digest algorithm identifier onto the
// supported SHA-2 family.
func digestAlgorithmFromOID(oid asn1.ObjectIdentifier) (models.DigestAlgorithm, bool) {
	switch {
	case oid.Equal(oidSHA256):
		return models.SHA256, true
	case oid.Equal(oidSHA384):
		return models.SHA384, true
	case oid.Equal(oidSHA512):
		return models.SHA512, true
	default:
		return "", false
	}
}
