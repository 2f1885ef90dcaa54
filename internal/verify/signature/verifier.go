// Package signature validates the SOD's embedded digital signature against
// the signer certificate's public key. The check is independent of the
// per-data-group hash comparison: a correctly signed SOD can still describe
// data groups that do not match what the chip handed over.
package signature

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/asn1"

	"pa-gateway/internal/verify/models"
)

// Signature algorithm OIDs accepted for SOD signers.
var (
	oidRSAEncryption         = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	oidSHA256WithRSA         = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	oidSHA384WithRSA         = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	oidSHA512WithRSA         = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}
	oidECDSAWithSHA256       = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	oidECDSAWithSHA384       = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	oidECDSAWithSHA512       = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}
	oidECPublicKey           = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	rsaSignatureAlgorithms   = []asn1.ObjectIdentifier{oidRSAEncryption, oidSHA256WithRSA, oidSHA384WithRSA, oidSHA512WithRSA}
	ecdsaSignatureAlgorithms = []asn1.ObjectIdentifier{oidECPublicKey, oidECDSAWithSHA256, oidECDSAWithSHA384, oidECDSAWithSHA512}
)

// Outcome is the result of a signature check. Reason is set when Valid is
// false and names the specific failure.
type Outcome struct {
	Valid  bool
	Reason string
}

// Verify checks the SOD signature using signer's public key. The flow
// follows RFC 5652 section 5.6: recompute the content digest, check it
// against the message-digest signed attribute, then verify the signature
// over the SET-encoded signed attributes. Signers without signed attributes
// sign the content digest directly.
func Verify(so *models.SecurityObject, signer *models.Certificate) Outcome {
	if signer == nil || signer.X509.PublicKey == nil {
		return invalid("signer certificate has no public key")
	}
	si := so.SignerInfo
	if !si.DigestAlgorithm.Valid() {
		return invalid("unsupported digest algorithm")
	}
	if len(si.Signature) == 0 {
		return invalid("empty signature")
	}

	h := si.DigestAlgorithm.New()
	h.Write(so.SignedContent)
	contentDigest := h.Sum(nil)

	signedBytes := so.SignedContent
	if len(si.SignedAttributes) > 0 {
		if !bytes.Equal(si.MessageDigest, contentDigest) {
			return invalid("message-digest attribute does not match content")
		}
		if len(si.ContentTypeAttribute) > 0 && !si.ContentTypeAttribute.Equal(so.EContentType) {
			return invalid("content-type attribute does not match encapsulated content")
		}
		signedBytes = si.SignedAttributes
	}

	h = si.DigestAlgorithm.New()
	h.Write(signedBytes)
	digest := h.Sum(nil)

	return verifyWithKey(signer.X509.PublicKey, si, digest)
}

func verifyWithKey(pub crypto.PublicKey, si models.SignerInfo, digest []byte) Outcome {
	switch key := pub.(type) {
	case *rsa.PublicKey:
		if !oidIn(si.SignatureAlgorithm, rsaSignatureAlgorithms) {
			return invalid("signature algorithm does not match RSA key")
		}
		hash, ok := cryptoHashFor(si.DigestAlgorithm)
		if !ok {
			return invalid("unsupported digest algorithm")
		}
		if err := rsa.VerifyPKCS1v15(key, hash, digest, si.Signature); err != nil {
			return invalid("signature mismatch")
		}
		return Outcome{Valid: true}
	case *ecdsa.PublicKey:
		if !oidIn(si.SignatureAlgorithm, ecdsaSignatureAlgorithms) {
			return invalid("signature algorithm does not match EC key")
		}
		if !ecdsa.VerifyASN1(key, digest, si.Signature) {
			return invalid("signature mismatch")
		}
		return Outcome{Valid: true}
	default:
		return invalid("unsupported public key type")
	}
}

func cryptoHashFor(alg models.DigestAlgorithm) (crypto.Hash, bool) {
	switch alg {
	case models.SHA256:
		return crypto.SHA256, true
	case models.SHA384:
		return crypto.SHA384, true
	case models.SHA512:
		return crypto.SHA512, true
	default:
		return 0, false
	}
}

func oidIn(oid asn1.ObjectIdentifier, set []asn1.ObjectIdentifier) bool {
	for _, candidate := range set {
		if oid.Equal(candidate) {
			return true
		}
	}
	return false
}

func invalid(reason string) Outcome {
	return Outcome{Valid: false, Reason: reason}
}
