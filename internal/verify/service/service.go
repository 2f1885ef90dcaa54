// Package service orchestrates passive authentication: SOD decoding, signer
// resolution, trust chain construction, validity and signature checks,
// data-group hash comparison, and the fail-open revocation check, folded into
// a single terminal Result.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"pa-gateway/internal/audit"
	"pa-gateway/internal/verify/chain"
	"pa-gateway/internal/verify/dghash"
	"pa-gateway/internal/verify/metrics"
	"pa-gateway/internal/verify/models"
	"pa-gateway/internal/verify/ports"
	"pa-gateway/internal/verify/revocation"
	"pa-gateway/internal/verify/signature"
	"pa-gateway/internal/verify/sod"
	pstrings "pa-gateway/pkg/platform/strings"
	"pa-gateway/pkg/requestcontext"
)

// Service runs complete verifications. It is safe for concurrent use; all
// per-run state lives in the Result under construction.
type Service struct {
	certs   ports.CertificateStore
	chain   *chain.Builder
	revoker *revocation.Checker

	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   audit.Publisher
	tracer  trace.Tracer

	requireFullCoverage bool
	crlTimeout          time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches verification metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditPublisher attaches the audit event sink.
func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) {
		s.audit = p
	}
}

// WithTracer overrides the default tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithRequireFullCoverage makes declared-but-not-supplied data groups fail
// the hash check instead of being reported only.
func WithRequireFullCoverage(require bool) Option {
	return func(s *Service) {
		s.requireFullCoverage = require
	}
}

// WithCRLTimeout bounds the revocation store lookup.
func WithCRLTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.crlTimeout = timeout
	}
}

// crlTimeout is applied when constructing the revocation checker; zero means
// the checker default.
func (s *Service) applyRevocationOptions() []revocation.Option {
	opts := []revocation.Option{revocation.WithLogger(s.logger)}
	if s.crlTimeout > 0 {
		opts = append(opts, revocation.WithTimeout(s.crlTimeout))
	}
	return opts
}

// New constructs a Service over the certificate and CRL stores.
func New(certs ports.CertificateStore, crls ports.CrlStore, opts ...Option) (*Service, error) {
	if certs == nil {
		return nil, fmt.Errorf("certificate store is required")
	}
	if crls == nil {
		return nil, fmt.Errorf("crl store is required")
	}

	s := &Service{
		certs:  certs,
		logger: slog.Default(),
		tracer: otel.Tracer("pa-gateway/verify"),
	}
	for _, opt := range opts {
		opt(s)
	}

	builder, err := chain.New(certs, chain.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.chain = builder

	revoker, err := revocation.New(crls, s.applyRevocationOptions()...)
	if err != nil {
		return nil, err
	}
	s.revoker = revoker

	return s, nil
}

// run accumulates the intermediate state of one verification.
type run struct {
	result   *models.Result
	errs     []string
	failures []models.Status
}

func (r *run) fail(status models.Status, msg string) {
	r.failures = append(r.failures, status)
	if msg != "" {
		r.errs = append(r.errs, msg)
	}
}

// statusOrder is the precedence used to pick the terminal status when several
// checks failed: structural failures first, then chain, validity, signature,
// hash, and finally revocation.
var statusOrder = []models.Status{
	models.StatusParsingError,
	models.StatusDSCNotFound,
	models.StatusTrustChainBroken,
	models.StatusCertificateExpired,
	models.StatusSignatureInvalid,
	models.StatusDataGroupHashMismatch,
	models.StatusCertificateRevoked,
}

func (r *run) terminalStatus() models.Status {
	for _, status := range statusOrder {
		for _, failed := range r.failures {
			if failed == status {
				return status
			}
		}
	}
	return models.StatusSuccess
}

// Verify executes passive authentication on one request. It never returns an
// error; every failure mode is folded into the Result. Structural failures
// (unparseable SOD, unknown signer) end the run early, all other checks run
// to completion so the result carries full diagnostics.
func (s *Service) Verify(ctx context.Context, req models.Request) *models.Result {
	ctx, span := s.tracer.Start(ctx, "verify.passive_authentication",
		trace.WithAttributes(attribute.String("issuing_country", req.IssuingCountry)))
	defer span.End()

	startedAt := requestcontext.Now(ctx)
	wallStart := time.Now()

	r := &run{result: &models.Result{
		VerificationID: s.verificationID(ctx),
		StartedAt:      startedAt,
	}}

	s.execute(ctx, req, r)

	r.result.Status = r.terminalStatus()
	r.result.Errors = pstrings.DedupeAndTrim(r.errs)
	r.result.CompletedAt = requestcontext.Now(ctx)
	r.result.Duration = time.Since(wallStart)

	span.SetAttributes(attribute.String("verify.status", string(r.result.Status)))
	s.metrics.ObserveVerification(string(r.result.Status))
	s.logger.InfoContext(ctx, "verification completed",
		"verification_id", r.result.VerificationID,
		"status", r.result.Status,
		"issuing_country", req.IssuingCountry,
		"duration", r.result.Duration,
	)

	s.publishAudit(ctx, req, r.result)
	return r.result
}

func (s *Service) execute(ctx context.Context, req models.Request, r *run) {
	so := s.decode(ctx, req, r)
	if so == nil {
		return
	}

	dsc := s.resolveSigner(ctx, req, so, r)
	if dsc == nil {
		return
	}

	path := s.buildChain(ctx, dsc, r)
	s.checkValidity(ctx, dsc, path, r)

	// Signature and hash comparison are independent of each other and of the
	// chain outcome; run them concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.checkSignature(gctx, so, dsc, r)
		return nil
	})
	outcomes := make([]models.DataGroupOutcome, 0)
	g.Go(func() error {
		outcomes = s.checkDataGroups(gctx, so, req.DataGroups)
		return nil
	})
	_ = g.Wait()

	r.result.DataGroups = outcomes
	r.result.DataGroupHashesValid = dghash.Valid(outcomes, s.requireFullCoverage)
	if !r.result.DataGroupHashesValid {
		r.fail(models.StatusDataGroupHashMismatch, "data group hashes do not match the security object")
	}

	s.checkRevocation(ctx, req, dsc, path, r)
}

func (s *Service) decode(ctx context.Context, req models.Request, r *run) *models.SecurityObject {
	start := time.Now()
	so, warnings, err := sod.Decode(req.SOD)
	s.metrics.ObserveCheck("decode", time.Since(start))

	r.errs = append(r.errs, warnings...)
	if err != nil {
		r.fail(models.StatusParsingError, err.Error())
		s.logger.WarnContext(ctx, "sod decoding failed", "error", err)
		return nil
	}
	return so
}

// resolveSigner locates the DSC in the trust store. The embedded certificate
// identifies the signer but the store copy supplies the key used for
// verification; a SOD carrying a certificate the store has never seen is not
// trusted.
func (s *Service) resolveSigner(ctx context.Context, req models.Request, so *models.SecurityObject, r *run) *models.Certificate {
	subjectDN := so.SignerCertificate.Subject.DistinguishedName
	serial := so.SignerCertificate.X509.SerialNumber
	if req.SignerSubjectDN != "" {
		subjectDN = req.SignerSubjectDN
		serial = req.SignerSerial
	}

	dsc, err := s.certs.FindBySubjectDNAndSerial(ctx, subjectDN, serial)
	if err != nil {
		r.fail(models.StatusDSCNotFound, fmt.Sprintf("dsc lookup failed: %v", err))
		return nil
	}
	if dsc == nil {
		notFound := &models.CertificateNotFoundError{SubjectDN: subjectDN, SerialNumber: serial}
		r.fail(models.StatusDSCNotFound, notFound.Error())
		return nil
	}
	return dsc
}

func (s *Service) buildChain(ctx context.Context, dsc *models.Certificate, r *run) *models.TrustPath {
	start := time.Now()
	path, err := s.chain.BuildPath(ctx, dsc)
	s.metrics.ObserveCheck("chain", time.Since(start))

	if err != nil {
		r.fail(models.StatusTrustChainBroken, err.Error())
		return nil
	}
	r.result.TrustChainValid = true
	r.result.TrustPath = path.Fingerprints()
	return path
}

// checkValidity tests every chain certificate against the request time. When
// the chain could not be built only the signer certificate is checked, so an
// expired DSC is still surfaced alongside the chain failure.
func (s *Service) checkValidity(ctx context.Context, dsc *models.Certificate, path *models.TrustPath, r *run) {
	now := requestcontext.Now(ctx)

	certs := []*models.Certificate{dsc}
	if path != nil {
		certs = path.Certificates
	}
	for _, cert := range certs {
		if cert.Validity.Contains(now) {
			continue
		}
		expired := &models.CertificateExpiredError{
			Fingerprint: cert.ID(),
			NotBefore:   cert.Validity.NotBefore,
			NotAfter:    cert.Validity.NotAfter,
			At:          now,
		}
		r.fail(models.StatusCertificateExpired, expired.Error())
	}
}

func (s *Service) checkSignature(ctx context.Context, so *models.SecurityObject, dsc *models.Certificate, r *run) {
	start := time.Now()
	outcome := signature.Verify(so, dsc)
	s.metrics.ObserveCheck("signature", time.Since(start))

	if outcome.Valid {
		r.result.SODSignatureValid = true
		return
	}
	invalid := &models.SignatureInvalidError{Reason: outcome.Reason}
	r.fail(models.StatusSignatureInvalid, invalid.Error())
	s.logger.WarnContext(ctx, "sod signature check failed", "reason", outcome.Reason)
}

func (s *Service) checkDataGroups(_ context.Context, so *models.SecurityObject, supplied map[int][]byte) []models.DataGroupOutcome {
	start := time.Now()
	outcomes := dghash.Verify(so, supplied)
	s.metrics.ObserveCheck("dghash", time.Since(start))
	return outcomes
}

// checkRevocation is fail-open: a degraded lookup is recorded but does not
// change the verdict. The CRL issuer is the chain root when available;
// otherwise the lookup falls back to the signer's issuer DN and the declared
// issuing country, so a broken chain still gets a best-effort check.
func (s *Service) checkRevocation(ctx context.Context, req models.Request, dsc *models.Certificate, path *models.TrustPath, r *run) {
	issuer := s.revocationIssuer(req, dsc, path)

	start := time.Now()
	outcome := s.revoker.Check(ctx, dsc, issuer)
	s.metrics.ObserveCheck("revocation", time.Since(start))

	if outcome.Degraded {
		r.result.RevocationDegraded = true
		r.errs = append(r.errs, "revocation check degraded: "+outcome.Reason)
		s.metrics.IncRevocationDegraded()
		return
	}
	r.result.RevocationChecked = true
	if outcome.Revoked {
		r.fail(models.StatusCertificateRevoked, "signer certificate revoked: "+outcome.Reason)
	}
}

func (s *Service) revocationIssuer(req models.Request, dsc *models.Certificate, path *models.TrustPath) *models.Certificate {
	if path != nil && path.Root() != nil {
		return path.Root()
	}
	return &models.Certificate{
		Subject: models.SubjectInfo{
			DistinguishedName: dsc.Issuer.DistinguishedName,
			CountryCode:       req.IssuingCountry,
		},
		Type: models.TypeCSCA,
	}
}

func (s *Service) verificationID(ctx context.Context) string {
	if id := requestcontext.RequestID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// publishAudit emits the audit event for a completed run. Publishing is
// best-effort; failures are logged and the result stands.
func (s *Service) publishAudit(ctx context.Context, req models.Request, result *models.Result) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp:            result.CompletedAt,
		VerificationID:       result.VerificationID,
		IssuingCountry:       req.IssuingCountry,
		DocumentNumber:       req.DocumentNumber,
		Status:               string(result.Status),
		TrustChainValid:      result.TrustChainValid,
		SODSignatureValid:    result.SODSignatureValid,
		DataGroupHashesValid: result.DataGroupHashesValid,
		RevocationChecked:    result.RevocationChecked,
		RevocationDegraded:   result.RevocationDegraded,
		DurationMs:           result.Duration.Milliseconds(),
		ClientIP:             req.Audit.ClientIP,
		UserAgent:            req.Audit.UserAgent,
		Requester:            req.Audit.Requester,
	}
	if err := s.audit.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit publish failed",
			"verification_id", result.VerificationID,
			"error", err,
		)
	}
}
