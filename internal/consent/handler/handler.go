package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"consents/internal/consent/models"
	"consents/internal/platform/middleware"
	"consents/pkg/platform/httputil"
)

// Service defines the consent operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, req *models.CreateRequest) (*models.Result, error)
	Retrieve(ctx context.Context, id int64) (*models.Result, error)
	Update(ctx context.Context, id int64, req *models.UpdateRequest) (*models.Result, error)
	Revoke(ctx context.Context, id int64) error
}

// Handler handles the /consents endpoints.
type Handler struct {
	logger  *slog.Logger
	consent Service
}

func New(consent Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		consent: consent,
	}
}

// Register mounts the consent routes on r. Callers wrap r with admission
// control before registering.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consents", h.handleCreate)
	r.Get("/consents/{consentId}", h.handleRetrieve)
	r.Put("/consents/{consentId}", h.handleUpdate)
	r.Delete("/consents/{consentId}", h.handleRevoke)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	res, err := h.consent.Create(ctx, req)
	if err != nil {
		h.fail(ctx, w, "failed to create consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(res))
}

func (h *Handler) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.consentID(w, r)
	if !ok {
		return
	}

	res, err := h.consent.Retrieve(ctx, id)
	if err != nil {
		h.fail(ctx, w, "failed to retrieve consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(res))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.consentID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.UpdateRequest](w, r, h.logger, middleware.GetRequestID(ctx))
	if !ok {
		return
	}

	res, err := h.consent.Update(ctx, id, req)
	if err != nil {
		h.fail(ctx, w, "failed to update consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(res))
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.consentID(w, r)
	if !ok {
		return
	}

	if err := h.consent.Revoke(ctx, id); err != nil {
		h.fail(ctx, w, "failed to revoke consent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) consentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := models.ParseConsentID(chi.URLParam(r, "consentId"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "invalid consent id",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, err)
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
