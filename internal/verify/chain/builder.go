// Package chain builds the trust path from a document signer certificate up
// to its self-signed CSCA root using the certificate store.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"pa-gateway/internal/verify/models"
	"pa-gateway/internal/verify/ports"
	"pa-gateway/pkg/requestcontext"
)

// MaxDepth bounds issuer resolution. ICAO chains are DSC→CSCA (optionally
// via link certificates); anything deeper than five links is pathological.
const MaxDepth = 5

// Builder resolves issuer certificates step by step. It only establishes
// linkage; validity-window and signature checks on each link belong to the
// orchestrator.
type Builder struct {
	store  ports.CertificateStore
	logger *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// New constructs a Builder over the given certificate store.
func New(store ports.CertificateStore, opts ...Option) (*Builder, error) {
	if store == nil {
		return nil, fmt.Errorf("certificate store is required")
	}
	b := &Builder{store: store}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// BuildPath walks issuer links from start until a self-signed root, failing
// with *models.TrustChainBrokenError on a cycle, on exceeding MaxDepth, or
// when an issuer is absent from the store. The walk is an explicit loop, so
// a hostile chain cannot grow the stack. The returned path reads root-first.
func (b *Builder) BuildPath(ctx context.Context, start *models.Certificate) (*models.TrustPath, error) {
	path := make([]*models.Certificate, 0, MaxDepth+1)
	visited := make(map[string]struct{}, MaxDepth+1)

	current := start
	for depth := 0; ; depth++ {
		if _, seen := visited[current.ID()]; seen {
			return nil, &models.TrustChainBrokenError{
				Reason:    models.ChainReasonCircular,
				SubjectDN: current.Subject.DistinguishedName,
			}
		}
		visited[current.ID()] = struct{}{}
		path = append(path, current)

		if current.Issuer.IsSelfSigned {
			reverse(path)
			return &models.TrustPath{Certificates: path}, nil
		}

		if depth >= MaxDepth {
			return nil, &models.TrustChainBrokenError{
				Reason:    models.ChainReasonMaxDepth,
				SubjectDN: current.Subject.DistinguishedName,
			}
		}

		parent, err := b.resolveIssuer(ctx, current)
		if err != nil {
			return nil, err
		}
		current = parent
	}
}

// resolveIssuer looks up the parent by subject DN. Several stored
// certificates may share a DN (re-issued CSCAs); the one with the longest
// remaining validity wins, ties broken by the most recent notBefore.
func (b *Builder) resolveIssuer(ctx context.Context, cert *models.Certificate) (*models.Certificate, error) {
	issuerDN := cert.Issuer.DistinguishedName

	candidates, err := b.store.FindBySubjectDN(ctx, issuerDN)
	if err != nil {
		return nil, fmt.Errorf("resolve issuer %q: %w", issuerDN, err)
	}
	if len(candidates) == 0 {
		return nil, &models.TrustChainBrokenError{
			Reason:    models.ChainReasonIssuerNotFound,
			SubjectDN: cert.Subject.DistinguishedName,
		}
	}
	if len(candidates) > 1 {
		if b.logger != nil {
			b.logger.DebugContext(ctx, "multiple certificates share subject DN",
				"subject_dn", issuerDN,
				"count", len(candidates),
			)
		}
		sortByRemainingValidity(requestcontext.Now(ctx), candidates)
	}
	return candidates[0], nil
}

// sortByRemainingValidity orders certificates so the issuer with the most
// remaining validity at the request time comes first; ties fall to the most
// recently issued certificate.
func sortByRemainingValidity(at time.Time, certs []*models.Certificate) {
	sort.SliceStable(certs, func(i, j int) bool {
		ri, rj := certs[i].Validity.RemainingAt(at), certs[j].Validity.RemainingAt(at)
		if ri != rj {
			return ri > rj
		}
		return certs[i].Validity.NotBefore.After(certs[j].Validity.NotBefore)
	})
}

func reverse(certs []*models.Certificate) {
	for i, j := 0, len(certs)-1; i < j; i, j = i+1, j-1 {
		certs[i], certs[j] = certs[j], certs[i]
	}
}
