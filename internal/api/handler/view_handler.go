package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/abhi22github/ledger-console/internal/api/handler/dto"
	"github.com/abhi22github/ledger-console/internal/cache"
	"github.com/abhi22github/ledger-console/internal/console"
	"github.com/abhi22github/ledger-console/internal/pkg/apperrors"
)

// ViewHandler exposes the controller's read model and action surface to
// the presentation layer.
type ViewHandler struct {
	controller *console.Controller
	logger     *slog.Logger
}

func NewViewHandler(c *console.Controller, l *slog.Logger) *ViewHandler {
	return &ViewHandler{
		controller: c,
		logger:     l.With("component", "ViewHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message, field := http.StatusInternalServerError, "An unexpected error occurred.", ""
	var validationError *apperrors.ValidationError
	var svcErr *apperrors.ServiceError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found."
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.As(err, &validationError):
		status, message, field = http.StatusBadRequest, validationError.Message, validationError.Field
	case errors.As(err, &svcErr):
		status, message = http.StatusBadGateway, svcErr.Message
	case errors.Is(err, apperrors.ErrTransport), errors.Is(err, apperrors.ErrDecode):
		status, message = http.StatusBadGateway, err.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Message: message,
			Field:   field,
		},
	}
	respondJSON(w, status, resp)
}

func getLoanIDFromURL(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "loanID")
	if idStr == "" {
		return 0, fmt.Errorf("loanID not found in URL path")
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// GetReadModel returns the current view: loading flag, list-level
// error, and the ordered loans with their pending inputs and messages.
func (h *ViewHandler) GetReadModel(w http.ResponseWriter, r *http.Request) {
	model := h.controller.ReadModel()
	respondJSON(w, http.StatusOK, dto.NewReadModelResponse(model))
}

// CreateLoan validates a draft and delegates creation to the ledger;
// the list is reloaded before this returns.
func (h *ViewHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	draft, err := req.ToDraft()
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	created, err := h.controller.CreateLoan(r.Context(), draft)
	if err != nil {
		respondError(w, err)
		return
	}

	entry, ok := h.controller.Entry(created.ID)
	if !ok {
		// Reload raced or failed; render the created record directly.
		entry = cache.Entry{Loan: *created}
	}
	respondJSON(w, http.StatusCreated, dto.NewLoanView(entry))
}

// SetPendingInput patches one loan's transient payment input.
func (h *ViewHandler) SetPendingInput(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var req dto.PendingInputRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	patch, err := req.ToPatch()
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if err := h.controller.SetPendingInput(loanID, patch); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordPayment runs the payment protocol for one loan. The outcome is
// always rendered as a terminal state plus a user-visible message; the
// protocol itself never surfaces as a handler failure.
func (h *ViewHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	result := h.controller.Pay(r.Context(), loanID)
	respondJSON(w, http.StatusOK, dto.NewPaymentResultResponse(result))
}

// Reload refetches the whole list from the ledger.
func (h *ViewHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Load(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewReadModelResponse(h.controller.ReadModel()))
}
