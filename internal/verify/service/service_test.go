package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pa-gateway/internal/audit"
	"pa-gateway/internal/verify/models"
	certstore "pa-gateway/internal/verify/store/certificate"
	crlstore "pa-gateway/internal/verify/store/crl"
	"pa-gateway/internal/verify/testpki"
	"pa-gateway/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	authority *testpki.Authority
	rawSOD    []byte
	groups    map[int][]byte

	certs     *certstore.InMemoryStore
	crls      *crlstore.InMemoryStore
	publisher *audit.MemoryPublisher
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupSuite() {
	s.authority = testpki.NewAuthority(s.T(), "UT")
	s.groups = map[int][]byte{
		1: []byte("mrz data"),
		2: []byte("face image"),
	}
	s.rawSOD = s.authority.BuildSOD(s.T(), testpki.DGHashes(s.groups))
}

func (s *ServiceSuite) SetupTest() {
	s.certs = certstore.NewMemory()
	s.crls = crlstore.NewMemory()
	s.publisher = audit.NewMemoryPublisher()

	s.seedAuthority(s.authority)
	s.seedCRL()

	svc, err := New(s.certs, s.crls,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.publisher),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) seedAuthority(a *testpki.Authority) {
	ctx := context.Background()
	s.Require().NoError(s.certs.Save(ctx, a.CSCA))
	s.Require().NoError(s.certs.Save(ctx, a.DSC))
}

func (s *ServiceSuite) seedCRL(revoked ...string) {
	serials := make(map[string]struct{}, len(revoked))
	for _, serial := range revoked {
		serials[serial] = struct{}{}
	}
	s.Require().NoError(s.crls.Save(context.Background(), &models.RevocationList{
		IssuerDN:       s.authority.CSCA.Subject.DistinguishedName,
		CountryCode:    "UT",
		ThisUpdate:     time.Now().Add(-time.Hour),
		NextUpdate:     time.Now().Add(24 * time.Hour),
		RevokedSerials: serials,
	}))
}

func (s *ServiceSuite) request() models.Request {
	return models.Request{
		IssuingCountry: "UT",
		DocumentNumber: "X1234567",
		SOD:            s.rawSOD,
		DataGroups:     s.groups,
	}
}

func (s *ServiceSuite) TestNew() {
	s.Run("nil certificate store returns error", func() {
		_, err := New(nil, s.crls)
		s.Error(err)
		s.Contains(err.Error(), "certificate store is required")
	})

	s.Run("nil crl store returns error", func() {
		_, err := New(s.certs, nil)
		s.Error(err)
		s.Contains(err.Error(), "crl store is required")
	})
}

func (s *ServiceSuite) TestVerify_Success() {
	result := s.service.Verify(context.Background(), s.request())

	s.Equal(models.StatusSuccess, result.Status)
	s.True(result.TrustChainValid)
	s.True(result.SODSignatureValid)
	s.True(result.DataGroupHashesValid)
	s.True(result.RevocationChecked)
	s.False(result.RevocationDegraded)
	s.Empty(result.Errors)
	s.NotEmpty(result.VerificationID)

	s.Require().Len(result.TrustPath, 2)
	s.Equal(s.authority.CSCA.ID(), result.TrustPath[0])
	s.Equal(s.authority.DSC.ID(), result.TrustPath[1])

	s.Require().Len(result.DataGroups, 2)
	for _, dg := range result.DataGroups {
		s.Equal(models.DataGroupMatch, dg.Status)
	}
}

func (s *ServiceSuite) TestVerify_UnparseableSODStopsEarly() {
	req := s.request()
	req.SOD = []byte("garbage")

	result := s.service.Verify(context.Background(), req)

	s.Equal(models.StatusParsingError, result.Status)
	s.False(result.TrustChainValid)
	s.False(result.SODSignatureValid)
	s.False(result.DataGroupHashesValid)
	s.False(result.RevocationChecked)
	s.Empty(result.TrustPath)
	s.NotEmpty(result.Errors)
}

func (s *ServiceSuite) TestVerify_UnknownSignerStopsEarly() {
	s.certs = certstore.NewMemory() // empty store
	svc, err := New(s.certs, s.crls)
	s.Require().NoError(err)

	result := svc.Verify(context.Background(), s.request())

	s.Equal(models.StatusDSCNotFound, result.Status)
	s.False(result.TrustChainValid)
	s.False(result.SODSignatureValid)
	s.False(result.RevocationChecked)
	s.NotEmpty(result.Errors)
}

func (s *ServiceSuite) TestVerify_BrokenChainStillRunsRemainingChecks() {
	s.certs = certstore.NewMemory()
	s.Require().NoError(s.certs.Save(context.Background(), s.authority.DSC))
	svc, err := New(s.certs, s.crls)
	s.Require().NoError(err)

	result := svc.Verify(context.Background(), s.request())

	s.Equal(models.StatusTrustChainBroken, result.Status)
	s.False(result.TrustChainValid)
	s.Empty(result.TrustPath)
	// Diagnostics continue past the chain failure.
	s.True(result.SODSignatureValid)
	s.True(result.DataGroupHashesValid)
	// The CRL lookup falls back to the signer's issuer DN, which matches the
	// seeded CSCA list here.
	s.True(result.RevocationChecked)
}

func (s *ServiceSuite) TestVerify_ExpiredDSC() {
	csca, cscaKey := testpki.NewSelfSigned(s.T(), "CSCA EX", "EX")
	dsc, dscKey := testpki.NewChild(s.T(), csca, cscaKey, "DS EX", models.TypeDSC,
		testpki.WithValidity(time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour)))
	expired := &testpki.Authority{Country: "EX", CSCA: csca, CSCAKey: cscaKey, DSC: dsc, DSCKey: dscKey}

	s.seedAuthority(expired)
	raw := expired.BuildSOD(s.T(), testpki.DGHashes(s.groups))

	req := s.request()
	req.IssuingCountry = "EX"
	req.SOD = raw

	result := s.service.Verify(context.Background(), req)

	s.Equal(models.StatusCertificateExpired, result.Status)
	s.True(result.TrustChainValid, "linkage holds even when a link is expired")
	s.True(result.SODSignatureValid)
	s.True(result.DataGroupHashesValid)
}

func (s *ServiceSuite) TestVerify_WrongSignerKey() {
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	s.Require().NoError(err)
	req := s.request()
	req.SOD = s.authority.BuildSOD(s.T(), testpki.DGHashes(s.groups), testpki.WithSignerKey(otherKey))

	result := s.service.Verify(context.Background(), req)

	s.Equal(models.StatusSignatureInvalid, result.Status)
	s.True(result.TrustChainValid)
	s.False(result.SODSignatureValid)
	s.True(result.DataGroupHashesValid)
	s.True(result.RevocationChecked)
}

func (s *ServiceSuite) TestVerify_TamperedDataGroup() {
	req := s.request()
	req.DataGroups = map[int][]byte{
		1: []byte("mrz data"),
		2: []byte("swapped face image"),
	}

	result := s.service.Verify(context.Background(), req)

	s.Equal(models.StatusDataGroupHashMismatch, result.Status)
	s.True(result.SODSignatureValid, "signature covers the SOD, not the data groups")
	s.False(result.DataGroupHashesValid)

	byGroup := make(map[int]models.DataGroupStatus, len(result.DataGroups))
	for _, dg := range result.DataGroups {
		byGroup[dg.DataGroup] = dg.Status
	}
	s.Equal(models.DataGroupMatch, byGroup[1])
	s.Equal(models.DataGroupMismatch, byGroup[2])
}

func (s *ServiceSuite) TestVerify_RevokedSigner() {
	s.seedCRL(s.authority.DSC.X509.SerialNumber)

	result := s.service.Verify(context.Background(), s.request())

	s.Equal(models.StatusCertificateRevoked, result.Status)
	s.True(result.TrustChainValid)
	s.True(result.SODSignatureValid)
	s.True(result.DataGroupHashesValid)
	s.True(result.RevocationChecked)
}

func (s *ServiceSuite) TestVerify_StatusPrecedence() {
	// Both the signature check and the revocation check fail; the earlier
	// check wins the terminal status, the later one stays in the diagnostics.
	s.seedCRL(s.authority.DSC.X509.SerialNumber)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	s.Require().NoError(err)
	req := s.request()
	req.SOD = s.authority.BuildSOD(s.T(), testpki.DGHashes(s.groups), testpki.WithSignerKey(otherKey))

	result := s.service.Verify(context.Background(), req)

	s.Equal(models.StatusSignatureInvalid, result.Status)
	s.True(result.RevocationChecked)

	var sawRevoked bool
	for _, msg := range result.Errors {
		if msg == "signer certificate revoked: serial "+s.authority.DSC.X509.SerialNumber+" listed in crl" {
			sawRevoked = true
		}
	}
	s.True(sawRevoked, "revocation diagnostic retained: %v", result.Errors)
}

func (s *ServiceSuite) TestVerify_MissingCRLFailsOpen() {
	s.crls = crlstore.NewMemory() // no list stored
	svc, err := New(s.certs, s.crls)
	s.Require().NoError(err)

	result := svc.Verify(context.Background(), s.request())

	s.Equal(models.StatusSuccess, result.Status)
	s.False(result.RevocationChecked)
	s.True(result.RevocationDegraded)
	s.NotEmpty(result.Errors)
}

func (s *ServiceSuite) TestVerify_PartialReadPolicy() {
	partial := s.request()
	partial.DataGroups = map[int][]byte{1: []byte("mrz data")}

	s.Run("subset passes by default", func() {
		result := s.service.Verify(context.Background(), partial)
		s.Equal(models.StatusSuccess, result.Status)
		s.True(result.DataGroupHashesValid)
	})

	s.Run("subset fails with full coverage required", func() {
		svc, err := New(s.certs, s.crls, WithRequireFullCoverage(true))
		s.Require().NoError(err)
		result := svc.Verify(context.Background(), partial)
		s.Equal(models.StatusDataGroupHashMismatch, result.Status)
		s.False(result.DataGroupHashesValid)
	})
}

func (s *ServiceSuite) TestVerify_SignerOverride() {
	req := s.request()
	req.SignerSubjectDN = "CN=Somebody Else"
	req.SignerSerial = "FFFF"

	result := s.service.Verify(context.Background(), req)
	s.Equal(models.StatusDSCNotFound, result.Status)
}

func (s *ServiceSuite) TestVerify_UsesRequestIDWhenPresent() {
	ctx := requestcontext.WithRequestID(context.Background(), "req-42")
	result := s.service.Verify(ctx, s.request())
	s.Equal("req-42", result.VerificationID)
}

func (s *ServiceSuite) TestVerify_PublishesAuditEvent() {
	ctx := context.Background()
	req := s.request()
	req.Audit = models.AuditMetadata{ClientIP: "203.0.113.9", UserAgent: "pa-client/1.0", Requester: "inspector-1"}

	result := s.service.Verify(ctx, req)

	events := s.publisher.Events()
	s.Require().Len(events, 1)
	event := events[0]
	s.Equal(result.VerificationID, event.VerificationID)
	s.Equal(string(models.StatusSuccess), event.Status)
	s.Equal("UT", event.IssuingCountry)
	s.Equal("X1234567", event.DocumentNumber)
	s.Equal("203.0.113.9", event.ClientIP)
	s.Equal("inspector-1", event.Requester)
	s.NotEmpty(event.ID)
}
