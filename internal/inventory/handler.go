package inventory

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
	"github.com/odyssey-erp/odyssey-wms/internal/tracking"
)

// IdempotencyHeader carries the client submission key.
const IdempotencyHeader = "Idempotency-Key"

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the ledger write routes under the API router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/inventory/locations", h.handleLocations)
	r.Put("/inventory/{id}/quantity", h.handleAdjustQuantity)
	r.Post("/inbound/submit", h.handleInbound)
	r.Get("/outbound/locations", h.handleLocations)
	r.Post("/outbound/validate-scan", h.handleValidateScan)
	r.Post("/outbound/extract-tracking", h.handleExtractTracking)
	r.Post("/outbound/confirm-session", h.handleConfirmSession)
	r.Post("/sto/submit", h.handleSTO)
	r.Delete("/movements/{txnNum}", h.handleDeleteMovement)
}

type submitResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	TransactionNum string `json:"transactionNum,omitempty"`
}

type scanRequest struct {
	SKU      string `json:"sku" validate:"required"`
	Location string `json:"location" validate:"required"`
}

type scanResponse struct {
	Success     bool        `json:"success"`
	ProductName ProductName `json:"product_name"`
}

type trackingRequest struct {
	Text string `json:"text"`
}

type trackingResponse struct {
	TrackingNumbers []string `json:"trackingNumbers"`
}

func (h *Handler) handleInbound(w http.ResponseWriter, r *http.Request) {
	var input InboundInput
	if err := httpx.DecodeValid(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	receipt, err := h.service.SubmitInbound(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, submitResponse{
		Success:        true,
		Message:        fmt.Sprintf("Inbound successful. Txn: %s", receipt.TransactionNum),
		TransactionNum: receipt.TransactionNum,
	})
}

func (h *Handler) handleConfirmSession(w http.ResponseWriter, r *http.Request) {
	var input OutboundInput
	if err := httpx.DecodeValid(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	receipt, err := h.service.SubmitOutboundSession(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, submitResponse{
		Success:        true,
		Message:        fmt.Sprintf("Confirmed session: %d item(s) applied. Txn: %s", receipt.Qty, receipt.TransactionNum),
		TransactionNum: receipt.TransactionNum,
	})
}

func (h *Handler) handleSTO(w http.ResponseWriter, r *http.Request) {
	var input STOInput
	if err := httpx.DecodeValid(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	receipt, err := h.service.SubmitSTO(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, submitResponse{
		Success:        true,
		Message:        fmt.Sprintf("STO Transaction Completed Successfully! Txn: %s", receipt.TransactionNum),
		TransactionNum: receipt.TransactionNum,
	})
}

func (h *Handler) handleAdjustQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: inventory id must be numeric", httpx.ErrValidation))
		return
	}
	var input AdjustInput
	if err := httpx.DecodeValid(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.ID = id
	receipt, err := h.service.AdjustQuantity(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	msg := "Quantity unchanged"
	if receipt.TransactionNum != "" {
		msg = fmt.Sprintf("Reduced by %d. Txn: %s", receipt.Qty, receipt.TransactionNum)
	}
	httpx.JSON(w, http.StatusOK, submitResponse{Success: true, Message: msg, TransactionNum: receipt.TransactionNum})
}

func (h *Handler) handleDeleteMovement(w http.ResponseWriter, r *http.Request) {
	txnNum := chi.URLParam(r, "txnNum")
	mv, err := h.service.DeleteMovement(r.Context(), txnNum)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, submitResponse{
		Success: true,
		Message: fmt.Sprintf("Movement %s deleted successfully.", mv.TransactionNum),
	})
}

func (h *Handler) handleValidateScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	name, err := h.service.ValidateScan(r.Context(), req.SKU, req.Location)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, scanResponse{Success: true, ProductName: name})
}

func (h *Handler) handleExtractTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	numbers := tracking.Extract(req.Text)
	if len(numbers) == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "No USPS tracking numbers found")
		return
	}
	httpx.JSON(w, http.StatusOK, trackingResponse{TrackingNumbers: numbers})
}

func (h *Handler) handleLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.service.StockLocations(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if locations == nil {
		locations = []string{}
	}
	httpx.JSON(w, http.StatusOK, locations)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	httpx.RespondError(w, classify(err))
	if RejectionReason(err) == "internal" {
		h.logger.Error("inventory request failed", slog.Any("error", err))
	}
}

// classify tags domain errors with the HTTP class they surface as.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrMovementNotFound), errors.Is(err, ErrInventoryNotFound):
		return httpx.Classified(httpx.ErrNotFound, err)
	case errors.Is(err, ErrIncreaseNotAllowed):
		return httpx.Classified(httpx.ErrUnprocessable, err)
	case errors.Is(err, ErrAllocationConflict), errors.Is(err, ErrConcurrentUpdate), errors.Is(err, shared.ErrIdempotencyConflict):
		return httpx.Classified(httpx.ErrConflict, err)
	case errors.Is(err, ErrUnknownSKU), errors.Is(err, ErrDeactivatedSKU), errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrOutOfStock), errors.Is(err, ErrSameLocation), errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrEmptySubmission), errors.Is(err, ErrLocationRequired):
		return httpx.Classified(httpx.ErrValidation, err)
	}
	return err
}
