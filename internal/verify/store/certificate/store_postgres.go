package certificate

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pa-gateway/internal/verify/models"
	"pa-gateway/pkg/platform/sentinel"
)

// PostgresStore persists certificates in PostgreSQL. Only the DER bytes and
// the assigned role are stored; every derived field is rebuilt on read so the
// database never holds a stale projection of the certificate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed certificate store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the certificates table when absent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS certificates (
			fingerprint   TEXT PRIMARY KEY,
			subject_dn    TEXT NOT NULL,
			serial_number TEXT NOT NULL,
			cert_type     TEXT NOT NULL,
			not_after     TIMESTAMPTZ NOT NULL,
			der           BYTEA NOT NULL
		);
		CREATE INDEX IF NOT EXISTS certificates_subject_dn_idx ON certificates (subject_dn);
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("migrate certificates table: %w", err)
	}
	return nil
}

// Save upserts a certificate keyed by fingerprint.
func (s *PostgresStore) Save(ctx context.Context, cert *models.Certificate) error {
	if cert == nil {
		return fmt.Errorf("certificate is required")
	}
	query := `
		INSERT INTO certificates (fingerprint, subject_dn, serial_number, cert_type, not_after, der)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fingerprint) DO UPDATE SET
			cert_type = EXCLUDED.cert_type
	`
	_, err := s.pool.Exec(ctx, query,
		cert.ID(),
		cert.Subject.DistinguishedName,
		cert.X509.SerialNumber,
		string(cert.Type),
		cert.Validity.NotAfter,
		cert.X509.DERBytes,
	)
	if err != nil {
		return fmt.Errorf("save certificate: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

// FindBySubjectDN returns every certificate with the given subject DN, newest
// expiry first.
func (s *PostgresStore) FindBySubjectDN(ctx context.Context, subjectDN string) ([]*models.Certificate, error) {
	query := `
		SELECT der, cert_type FROM certificates
		WHERE subject_dn = $1
		ORDER BY not_after DESC
	`
	rows, err := s.pool.Query(ctx, query, subjectDN)
	if err != nil {
		return nil, fmt.Errorf("find certificates by subject: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var certs []*models.Certificate
	for rows.Next() {
		var der []byte
		var certType string
		if err := rows.Scan(&der, &certType); err != nil {
			return nil, fmt.Errorf("scan certificate row: %w", err)
		}
		cert, err := rebuild(der, certType)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificate rows: %w: %w", sentinel.ErrUnavailable, err)
	}
	return certs, nil
}

// FindBySubjectDNAndSerial returns the certificate matching subject DN and
// normalized serial, or nil when absent.
func (s *PostgresStore) FindBySubjectDNAndSerial(ctx context.Context, subjectDN, serial string) (*models.Certificate, error) {
	query := `
		SELECT der, cert_type FROM certificates
		WHERE subject_dn = $1 AND serial_number = $2
	`
	var der []byte
	var certType string
	err := s.pool.QueryRow(ctx, query, subjectDN, serial).Scan(&der, &certType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find certificate by subject and serial: %w: %w", sentinel.ErrUnavailable, err)
	}
	return rebuild(der, certType)
}

func rebuild(der []byte, certType string) (*models.Certificate, error) {
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse stored certificate: %w", err)
	}
	return models.FromX509(parsed, models.CertificateType(certType)), nil
}
