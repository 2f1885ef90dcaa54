package revocation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pa-gateway/internal/verify/models"
	"pa-gateway/internal/verify/ports/mocks"
	"pa-gateway/pkg/platform/sentinel"
	"pa-gateway/pkg/requestcontext"
)

type CheckerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockCrlStore
	checker *Checker

	signer *models.Certificate
	csca   *models.Certificate
	now    time.Time
}

func TestCheckerSuite(t *testing.T) {
	suite.Run(t, new(CheckerSuite))
}

func (s *CheckerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockCrlStore(s.ctrl)

	checker, err := New(s.store)
	s.Require().NoError(err)
	s.checker = checker

	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.signer = &models.Certificate{
		Subject: models.SubjectInfo{DistinguishedName: "CN=DS UT", CountryCode: "UT"},
		X509:    models.X509Data{SerialNumber: "1A2B"},
	}
	s.csca = &models.Certificate{
		Subject: models.SubjectInfo{DistinguishedName: "CN=CSCA UT", CountryCode: "UT"},
	}
}

func (s *CheckerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CheckerSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *CheckerSuite) currentCRL(revoked ...string) *models.RevocationList {
	serials := make(map[string]struct{}, len(revoked))
	for _, serial := range revoked {
		serials[serial] = struct{}{}
	}
	return &models.RevocationList{
		IssuerDN:       s.csca.Subject.DistinguishedName,
		CountryCode:    "UT",
		ThisUpdate:     s.now.Add(-24 * time.Hour),
		NextUpdate:     s.now.Add(24 * time.Hour),
		RevokedSerials: serials,
	}
}

func (s *CheckerSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil)
		s.Error(err)
	})

	s.Run("non-positive timeout keeps default", func() {
		c, err := New(s.store, WithTimeout(0))
		s.NoError(err)
		s.Equal(DefaultTimeout, c.timeout)
	})
}

func (s *CheckerSuite) TestCheck_NotRevoked() {
	s.store.EXPECT().
		FindByIssuer(gomock.Any(), "CN=CSCA UT", "UT").
		Return(s.currentCRL("FFFF"), nil)

	outcome := s.checker.Check(s.ctx(), s.signer, s.csca)
	s.False(outcome.Revoked)
	s.False(outcome.Degraded)
}

func (s *CheckerSuite) TestCheck_Revoked() {
	s.store.EXPECT().
		FindByIssuer(gomock.Any(), "CN=CSCA UT", "UT").
		Return(s.currentCRL("1A2B"), nil)

	outcome := s.checker.Check(s.ctx(), s.signer, s.csca)
	s.True(outcome.Revoked)
	s.False(outcome.Degraded)
	s.Contains(outcome.Reason, "1A2B")
}

func (s *CheckerSuite) TestCheck_StoreErrorDegrades() {
	s.store.EXPECT().
		FindByIssuer(gomock.Any(), "CN=CSCA UT", "UT").
		Return(nil, errors.New("connection refused"))

	outcome := s.checker.Check(s.ctx(), s.signer, s.csca)
	s.False(outcome.Revoked)
	s.True(outcome.Degraded)
	s.Contains(outcome.Reason, "crl lookup failed")
}

func (s *CheckerSuite) TestCheck_UnavailableStoreDegradesWithStableReason() {
	s.store.EXPECT().
		FindByIssuer(gomock.Any(), "CN=CSCA UT", "UT").
		Return(nil, fmt.Errorf("crl source lookup: %w: %w", sentinel.ErrUnavailable, errors.New("dial tcp: connection refused")))

	outcome := s.checker.Check(s.ctx(), s.signer, s.csca)
	s.False(outcome.Revoked)
	s.True(outcome.Degraded)
	s.Equal("crl store unavailable", outcome.Reason)
}

func (s *CheckerSuite) TestCheck_MissingCRLDegrades() {
	s.store.EXPECT().
		FindByIssuer(gomock.Any(), "CN=CSCA UT", "UT").
		Return(nil, nil)

	outcome := s.checker.Check(s.ctx(), s.signer, s.csca)
	s.False(outcome.Revoked)
	s.True(outcome.Degraded)
	s.Equal("no crl available for issuer", outcome.Reason)
}

func (s *CheckerSuite) TestCheck_StaleCRLDegrades() {
	crl := s.currentCRL("1A2B")
	crl.NextUpdate = s.now.Add(-time.Hour)
	s.store.EXPECT().
		FindByIssuer(gomock.Any(), "CN=CSCA UT", "UT").
		Return(crl, nil)

	outcome := s.checker.Check(s.ctx(), s.signer, s.csca)
	// A revoked serial on a stale list still falls open; staleness is checked
	// before membership.
	s.False(outcome.Revoked)
	s.True(outcome.Degraded)
	s.Contains(outcome.Reason, "thisUpdate/nextUpdate")
}

func (s *CheckerSuite) TestCheck_TimeoutDegrades() {
	checker, err := New(s.store, WithTimeout(20*time.Millisecond))
	s.Require().NoError(err)

	s.store.EXPECT().
		FindByIssuer(gomock.Any(), "CN=CSCA UT", "UT").
		DoAndReturn(func(ctx context.Context, _, _ string) (*models.RevocationList, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	outcome := checker.Check(s.ctx(), s.signer, s.csca)
	s.False(outcome.Revoked)
	s.True(outcome.Degraded)
	s.Contains(outcome.Reason, "crl lookup failed")
}
