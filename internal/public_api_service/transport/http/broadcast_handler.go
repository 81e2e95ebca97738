package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/mtechsms/golang_services/internal/broadcast_service/app"
	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
	"github.com/mtechsms/golang_services/internal/public_api_service/middleware"
)

const maxRequestBodyBytes = 1 << 20

// BroadcastService is what the handler needs from the broadcast application layer.
type BroadcastService interface {
	ValidateRecipients(ctx context.Context, raw domain.RawInput) (domain.ValidationResult, app.RecipientSummary)
	PreviewForm(ctx context.Context, form domain.RecipientForm) (domain.ValidationResult, app.RecipientSummary)
	CheckTemplate(ctx context.Context, template, rawValues string) (domain.PlaceholderCheck, error)
	Dispatch(ctx context.Context, req app.DispatchRequest) (*app.DispatchResult, error)
	ResendFailed(ctx context.Context, broadcastID string) (*app.DispatchResult, error)
}

type BroadcastHandler struct {
	service  BroadcastService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewBroadcastHandler(service BroadcastService, validate *validator.Validate, logger *slog.Logger) *BroadcastHandler {
	return &BroadcastHandler{
		service:  service,
		validate: validate,
		logger:   logger.With("handler", "broadcast"),
	}
}

// RegisterRoutes registers broadcast routes with the given router.
func (h *BroadcastHandler) RegisterRoutes(r chi.Router) {
	r.Post("/recipients/validate", h.handleValidateRecipients)
	r.Post("/templates/check", h.handleCheckTemplate)
	r.Post("/broadcasts/dispatch", h.handleDispatch)
	r.Post("/broadcasts/{broadcastID}/resend-failed", h.handleResendFailed)
}

func (h *BroadcastHandler) requestLogger(r *http.Request) *slog.Logger {
	logger := h.logger.With("request_id", chi_middleware.GetReqID(r.Context()))
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		logger = logger.With("auth_user_id", user.ID)
	}
	return logger
}

func (h *BroadcastHandler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (h *BroadcastHandler) handleValidateRecipients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	var req ValidateRecipientsRequest
	if err := h.decode(w, r, &req); err != nil {
		logger.WarnContext(ctx, "Failed to decode validate request", "error", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error(), "invalid_payload")
		return
	}
	raw, err := decodeRawInput(req.Recipients)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "invalid_recipients")
		return
	}

	var result domain.ValidationResult
	var summary app.RecipientSummary
	switch {
	case req.Form != nil && raw == nil:
		result, summary = h.service.PreviewForm(ctx, *req.Form)
	case req.Form != nil:
		result, summary = h.service.ValidateRecipients(ctx, domain.Sequence{app.CollectRecipientSources(*req.Form), raw})
		summary.Banner, summary.BannerColor = app.Banner(result, req.Form.Mode())
	default:
		result, summary = h.service.ValidateRecipients(ctx, raw)
	}

	respondWithJSON(w, http.StatusOK, ValidateRecipientsResponse{Validation: result, Summary: summary})
}

func (h *BroadcastHandler) handleCheckTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	var req TemplateCheckRequest
	if err := h.decode(w, r, &req); err != nil {
		logger.WarnContext(ctx, "Failed to decode template check request", "error", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error(), "invalid_payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error(), "invalid_payload")
		return
	}

	check, err := h.service.CheckTemplate(ctx, req.Template, req.TemplateValues)
	if err != nil {
		h.respondWithDomainError(ctx, w, logger, err, nil)
		return
	}
	respondWithJSON(w, http.StatusOK, TemplateCheckResponse{
		Placeholders:        check.Placeholders,
		MissingPlaceholders: check.MissingKeys,
	})
}

func (h *BroadcastHandler) handleDispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	if _, ok := middleware.UserFromContext(ctx); !ok {
		logger.WarnContext(ctx, "User not authenticated for dispatch")
		respondWithError(w, http.StatusUnauthorized, "User not authenticated", "unauthenticated")
		return
	}

	var req DispatchBroadcastRequest
	if err := h.decode(w, r, &req); err != nil {
		logger.WarnContext(ctx, "Failed to decode dispatch request", "error", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error(), "invalid_payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error(), "invalid_payload")
		return
	}
	explicit, err := decodeRawInput(req.RecipientNumbers)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "invalid_recipients")
		return
	}

	result, err := h.service.Dispatch(ctx, app.DispatchRequest{
		BroadcastID:      req.BroadcastID,
		Message:          req.Message,
		Template:         req.Template,
		TemplateValues:   req.TemplateValues,
		MessageType:      req.MessageType,
		DLRURL:           req.DLRURL,
		MessageID:        req.MessageID,
		Form:             req.Form,
		RecipientNumbers: explicit,
	})
	if err != nil {
		var validation *domain.ValidationResult
		if result != nil {
			validation = &result.Validation
		}
		h.respondWithDomainError(ctx, w, logger, err, validation)
		return
	}

	respondWithJSON(w, http.StatusAccepted, newDispatchResponse(result))
}

func (h *BroadcastHandler) handleResendFailed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	if _, ok := middleware.UserFromContext(ctx); !ok {
		logger.WarnContext(ctx, "User not authenticated for resend")
		respondWithError(w, http.StatusUnauthorized, "User not authenticated", "unauthenticated")
		return
	}

	broadcastID := strings.TrimSpace(chi.URLParam(r, "broadcastID"))
	if broadcastID == "" {
		respondWithError(w, http.StatusBadRequest, "Broadcast ID is required", "invalid_payload")
		return
	}

	result, err := h.service.ResendFailed(ctx, broadcastID)
	if err != nil {
		var validation *domain.ValidationResult
		if result != nil {
			validation = &result.Validation
		}
		h.respondWithDomainError(ctx, w, logger, err, validation)
		return
	}
	respondWithJSON(w, http.StatusAccepted, newDispatchResponse(result))
}

func newDispatchResponse(result *app.DispatchResult) DispatchBroadcastResponse {
	return DispatchBroadcastResponse{
		JobID:       result.Job.JobID,
		BroadcastID: result.Job.BroadcastID,
		MessageID:   result.Job.MessageID,
		Recipients:  result.Job.MSISDNs,
		Validation:  result.Validation,
		Summary:     result.Summary,
	}
}

func (h *BroadcastHandler) respondWithDomainError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error, validation *domain.ValidationResult) {
	var missing *domain.MissingPlaceholdersError
	var cfgErr *domain.TemplateValuesError

	switch {
	case errors.As(err, &cfgErr):
		respondWithJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "template_values_invalid"})
	case errors.As(err, &missing):
		respondWithJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "missing_placeholders", Missing: missing.Keys})
	case errors.Is(err, domain.ErrEmptyMessage):
		respondWithError(w, http.StatusBadRequest, err.Error(), "empty_message")
	case errors.Is(err, domain.ErrBroadcastNotFound):
		respondWithError(w, http.StatusNotFound, err.Error(), "broadcast_not_found")
	case errors.Is(err, domain.ErrNoFailedRecipients):
		respondWithError(w, http.StatusConflict, err.Error(), "no_failed_recipients")
	case errors.Is(err, domain.ErrNoRecipients):
		respondWithError(w, http.StatusBadRequest, err.Error(), "no_recipients")
	case errors.Is(err, domain.ErrNoValidRecipients):
		respondWithJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "no_valid_recipients", Validation: validation})
	default:
		logger.ErrorContext(ctx, "Broadcast request failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error", "internal")
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Default().Error("Failed to write JSON response", "error", err)
		}
	}
}

func respondWithError(w http.ResponseWriter, code int, message, errCode string) {
	respondWithJSON(w, code, ErrorResponse{Error: message, Code: errCode})
}
