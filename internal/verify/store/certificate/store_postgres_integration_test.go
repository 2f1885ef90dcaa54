//go:build integration

package certificate_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"pa-gateway/internal/verify/models"
	"pa-gateway/internal/verify/store/certificate"
	"pa-gateway/internal/verify/testpki"
	"pa-gateway/pkg/platform/sentinel"
	"pa-gateway/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	store     *certificate.PostgresStore
	authority *testpki.Authority
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = certificate.NewPostgres(s.postgres.Pool)
	s.Require().NoError(s.store.Migrate(context.Background()))
	s.authority = testpki.NewAuthority(s.T(), "UT")
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "certificates"))
}

func (s *PostgresStoreSuite) TestSaveAndFindBySubjectDN() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.authority.CSCA))
	s.Require().NoError(s.store.Save(ctx, s.authority.DSC))

	certs, err := s.store.FindBySubjectDN(ctx, s.authority.CSCA.Subject.DistinguishedName)
	s.Require().NoError(err)
	s.Require().Len(certs, 1)

	// Every derived field survives the round trip through DER.
	got := certs[0]
	s.Equal(s.authority.CSCA.ID(), got.ID())
	s.Equal(s.authority.CSCA.Subject, got.Subject)
	s.Equal(s.authority.CSCA.X509.SerialNumber, got.X509.SerialNumber)
	s.True(got.Issuer.IsSelfSigned)
	s.Equal(models.TypeCSCA, got.Type)
	s.NotNil(got.X509.PublicKey)
}

func (s *PostgresStoreSuite) TestFindBySubjectDN_OrdersByExpiry() {
	ctx := context.Background()

	older, _ := testpki.NewSelfSigned(s.T(), "CSCA Reissued", "UT")
	newer, _ := testpki.NewSelfSigned(s.T(), "CSCA Reissued", "UT",
		testpki.WithValidity(older.Validity.NotBefore, older.Validity.NotAfter.Add(48*time.Hour)))

	s.Require().NoError(s.store.Save(ctx, older))
	s.Require().NoError(s.store.Save(ctx, newer))

	certs, err := s.store.FindBySubjectDN(ctx, older.Subject.DistinguishedName)
	s.Require().NoError(err)
	s.Require().Len(certs, 2)
	s.Equal(newer.ID(), certs[0].ID())
}

func (s *PostgresStoreSuite) TestFindBySubjectDNAndSerial() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.authority.DSC))

	found, err := s.store.FindBySubjectDNAndSerial(ctx,
		s.authority.DSC.Subject.DistinguishedName, s.authority.DSC.X509.SerialNumber)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(s.authority.DSC.ID(), found.ID())

	missing, err := s.store.FindBySubjectDNAndSerial(ctx, "CN=Unknown", "FF")
	s.Require().NoError(err)
	s.Nil(missing, "absence is not an error")
}

func (s *PostgresStoreSuite) TestSaveIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.authority.DSC))
	s.Require().NoError(s.store.Save(ctx, s.authority.DSC))

	certs, err := s.store.FindBySubjectDN(ctx, s.authority.DSC.Subject.DistinguishedName)
	s.Require().NoError(err)
	s.Len(certs, 1)
}

func (s *PostgresStoreSuite) TestUnreachableDatabaseWrapsUnavailable() {
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, s.postgres.URL)
	s.Require().NoError(err)
	pool.Close()
	store := certificate.NewPostgres(pool)

	_, err = store.FindBySubjectDN(ctx, s.authority.DSC.Subject.DistinguishedName)
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrUnavailable)

	_, err = store.FindBySubjectDNAndSerial(ctx,
		s.authority.DSC.Subject.DistinguishedName, s.authority.DSC.X509.SerialNumber)
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrUnavailable)

	err = store.Save(ctx, s.authority.DSC)
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrUnavailable)
}
