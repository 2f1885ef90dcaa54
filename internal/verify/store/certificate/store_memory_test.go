package certificate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pa-gateway/internal/verify/models"
)

func memCert(subjectDN, serial, fingerprint string) *models.Certificate {
	return &models.Certificate{
		Subject: models.SubjectInfo{DistinguishedName: subjectDN},
		X509: models.X509Data{
			SerialNumber:      serial,
			SHA256Fingerprint: fingerprint,
		},
	}
}

func TestInMemoryStore_FindBySubjectDN(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	a := memCert("CN=CSCA", "01", "fp-a")
	b := memCert("CN=CSCA", "02", "fp-b")
	require.NoError(t, store.Save(ctx, a))
	require.NoError(t, store.Save(ctx, b))
	require.NoError(t, store.Save(ctx, a), "resaving is a no-op")

	certs, err := store.FindBySubjectDN(ctx, "CN=CSCA")
	require.NoError(t, err)
	assert.Len(t, certs, 2)

	none, err := store.FindBySubjectDN(ctx, "CN=Unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryStore_FindBySubjectDNAndSerial(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	cert := memCert("CN=DS", "1A2B", "fp-ds")
	require.NoError(t, store.Save(ctx, cert))

	found, err := store.FindBySubjectDNAndSerial(ctx, "CN=DS", "1A2B")
	require.NoError(t, err)
	assert.Equal(t, cert, found)

	missing, err := store.FindBySubjectDNAndSerial(ctx, "CN=DS", "FFFF")
	require.NoError(t, err)
	assert.Nil(t, missing, "absence is not an error")
}
