package models

// AuditMetadata is passed through untouched for audit logging; the
// verification core never interprets it.
type AuditMetadata struct {
	ClientIP  string
	UserAgent string
	Requester string
}

// Request is one passive authentication request as handed to the
// orchestrator, transport-independent.
type Request struct {
	IssuingCountry string
	DocumentNumber string

	// SOD is the raw security object as read from the chip, including the
	// LDS application envelope.
	SOD []byte

	// SignerSubjectDN and SignerSerial optionally pre-identify the DSC. When
	// empty the orchestrator uses the signer reference extracted from the
	// SOD itself.
	SignerSubjectDN string
	SignerSerial    string

	// DataGroups maps data-group number to the raw bytes read from the chip.
	DataGroups map[int][]byte

	Audit AuditMetadata
}
