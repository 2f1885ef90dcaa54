// Package handler exposes the verification endpoint over HTTP. It stays
// thin: request decoding and validation here, every verification decision in
// the service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pa-gateway/internal/verify/models"
	"pa-gateway/pkg/platform/httputil"
	"pa-gateway/pkg/requestcontext"
)

// Service runs a complete passive authentication on one request.
type Service interface {
	Verify(ctx context.Context, req models.Request) *models.Result
}

// Handler handles verification endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a verification Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the verification routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/verify", h.handleVerify)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, ok := httputil.DecodeJSON[VerifyRequest](w, r)
	if !ok {
		return
	}

	req, err := body.toModel(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid verification request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	// Verify never fails the HTTP call; failed verifications are a 200 with a
	// non-success status in the body.
	result := h.service.Verify(ctx, req)
	httputil.WriteJSON(w, http.StatusOK, result)
}
