package audit

import "time"

// Event records one completed verification for the audit trail. Keep it
// transport-agnostic so publishers can fan out without reshaping.
type Event struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	VerificationID string    `json:"verification_id"`

	IssuingCountry string `json:"issuing_country"`
	DocumentNumber string `json:"document_number"`

	Status               string `json:"status"`
	TrustChainValid      bool   `json:"trust_chain_valid"`
	SODSignatureValid    bool   `json:"sod_signature_valid"`
	DataGroupHashesValid bool   `json:"data_group_hashes_valid"`
	RevocationChecked    bool   `json:"revocation_checked"`
	RevocationDegraded   bool   `json:"revocation_degraded"`

	DurationMs int64 `json:"duration_ms"`

	// Caller metadata, passed through untouched from the request.
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Requester string `json:"requester,omitempty"`
}
