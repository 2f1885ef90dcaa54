package handler

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"pa-gateway/internal/verify/models"
	dErrors "pa-gateway/pkg/domain-errors"
	"pa-gateway/pkg/requestcontext"
)

// VerifyRequest is the JSON body of POST /v1/verify. Binary fields are
// base64-encoded; data group keys are the group numbers as strings.
type VerifyRequest struct {
	IssuingCountry  string            `json:"issuing_country"`
	DocumentNumber  string            `json:"document_number"`
	SOD             string            `json:"sod"`
	SignerSubjectDN string            `json:"signer_subject_dn,omitempty"`
	SignerSerial    string            `json:"signer_serial,omitempty"`
	DataGroups      map[string]string `json:"data_groups,omitempty"`
}

const maxDataGroup = 16

// toModel validates the request and converts it into the orchestrator's
// transport-independent form, pulling audit metadata from the context.
func (r VerifyRequest) toModel(ctx context.Context) (models.Request, error) {
	if r.IssuingCountry == "" {
		return models.Request{}, dErrors.New(dErrors.CodeBadRequest, "issuing_country is required")
	}
	if r.SOD == "" {
		return models.Request{}, dErrors.New(dErrors.CodeBadRequest, "sod is required")
	}

	sod, err := base64.StdEncoding.DecodeString(r.SOD)
	if err != nil {
		return models.Request{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "sod is not valid base64")
	}

	groups := make(map[int][]byte, len(r.DataGroups))
	for key, value := range r.DataGroups {
		dg, err := strconv.Atoi(key)
		if err != nil || dg < 1 || dg > maxDataGroup {
			return models.Request{}, dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("invalid data group number %q", key))
		}
		raw, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return models.Request{}, dErrors.Wrap(err, dErrors.CodeBadRequest,
				fmt.Sprintf("data group %d is not valid base64", dg))
		}
		groups[dg] = raw
	}

	return models.Request{
		IssuingCountry:  r.IssuingCountry,
		DocumentNumber:  r.DocumentNumber,
		SOD:             sod,
		SignerSubjectDN: r.SignerSubjectDN,
		SignerSerial:    r.SignerSerial,
		DataGroups:      groups,
		Audit: models.AuditMetadata{
			ClientIP:  requestcontext.ClientIP(ctx),
			UserAgent: requestcontext.UserAgent(ctx),
			Requester: requestcontext.Requester(ctx),
		},
	}, nil
}
