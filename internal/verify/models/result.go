package models

import "time"

// Status is the terminal verdict of a verification run. The orchestrator
// reports the first non-success status in check order even when later checks
// also failed.
type Status string

const (
	StatusSuccess               Status = "SUCCESS"
	StatusParsingError          Status = "PARSING_ERROR"
	StatusDSCNotFound           Status = "DSC_NOT_FOUND"
	StatusTrustChainBroken      Status = "TRUST_CHAIN_BROKEN"
	StatusCertificateExpired    Status = "CERTIFICATE_EXPIRED"
	StatusSignatureInvalid      Status = "SIGNATURE_INVALID"
	StatusDataGroupHashMismatch Status = "DATA_GROUP_HASH_MISMATCH"
	StatusCertificateRevoked    Status = "CERTIFICATE_REVOKED"
)

// DataGroupStatus classifies a single data-group hash comparison.
type DataGroupStatus string

const (
	DataGroupMatch               DataGroupStatus = "MATCH"
	DataGroupMismatch            DataGroupStatus = "MISMATCH"
	DataGroupDeclaredNotSupplied DataGroupStatus = "DECLARED_BUT_NOT_SUPPLIED"
	DataGroupSuppliedNotDeclared DataGroupStatus = "SUPPLIED_BUT_NOT_DECLARED"
)

// DataGroupOutcome is the comparison result for one data-group number.
type DataGroupOutcome struct {
	DataGroup int             `json:"data_group"`
	Status    DataGroupStatus `json:"status"`
}

// Result is the complete outcome of one passive authentication run. It is
// immutable after construction and safe to serialize for transport and audit.
type Result struct {
	VerificationID string `json:"verification_id"`
	Status         Status `json:"status"`

	TrustChainValid      bool `json:"trust_chain_valid"`
	SODSignatureValid    bool `json:"sod_signature_valid"`
	DataGroupHashesValid bool `json:"data_group_hashes_valid"`
	RevocationChecked    bool `json:"revocation_checked"`
	RevocationDegraded   bool `json:"revocation_degraded"`

	DataGroups []DataGroupOutcome `json:"data_groups"`
	Errors     []string           `json:"errors"`

	// TrustPath lists certificate fingerprints root-first when chain building
	// completed, including runs that failed on a later check.
	TrustPath []string `json:"trust_path,omitempty"`

	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration_ns"`
}
