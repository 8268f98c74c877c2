package reporting

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
)

const dateLayout = "2006-01-02"

// Handler wires HTTP endpoints for ledger reports.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs reporting handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes under the API router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/inventory", h.handleSnapshot)
	r.Get("/movements", h.handleMovements)
	r.Get("/transactions", h.handleHistory)
	r.Get("/transactions/charges", h.handleCharges)
	r.Get("/transactions/extract-shipments", h.handleStoredShipments)
	r.Post("/transactions/extract-shipments", h.handleExtractShipments)
}

type chargesResponse struct {
	FulfillmentQty    int64  `json:"fulfillment_qty"`
	FBAQty            int64  `json:"fba_qty"`
	FulfillmentRate   string `json:"fulfillment_rate"`
	FBARate           string `json:"fba_rate"`
	FulfillmentCharge string `json:"fulfillment_charge"`
	FBACharge         string `json:"fba_charge"`
	Total             string `json:"total"`
}

type shipmentsRequest struct {
	Transactions []inventory.TransactionRecord `json:"transactions"`
}

type shipmentsResponse struct {
	Success   bool       `json:"success"`
	Shipments []Shipment `json:"shipments"`
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.respondError(w, "inventory snapshot", err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.service.Movements(r.Context())
	if err != nil {
		h.respondError(w, "list movements", err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.respondError(w, "parse history filter", err)
		return
	}
	page, err := h.service.History(r.Context(), filter)
	if err != nil {
		h.respondError(w, "transaction history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleCharges(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.respondError(w, "parse charges filter", err)
		return
	}
	c, err := h.service.Charges(r.Context(), filter)
	if err != nil {
		h.respondError(w, "transaction charges", err)
		return
	}
	rates := h.service.Rates()
	httpx.JSON(w, http.StatusOK, chargesResponse{
		FulfillmentQty:    c.FulfillmentQty,
		FBAQty:            c.FBAQty,
		FulfillmentRate:   rates.Fulfillment.StringFixed(2),
		FBARate:           rates.FBA.StringFixed(2),
		FulfillmentCharge: c.FulfillmentCharge.StringFixed(2),
		FBACharge:         c.FBACharge.StringFixed(2),
		Total:             c.Total.StringFixed(2),
	})
}

func (h *Handler) handleStoredShipments(w http.ResponseWriter, r *http.Request) {
	shipments, err := h.service.StoredShipments(r.Context())
	if err != nil {
		h.respondError(w, "extract stored shipments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shipmentsResponse{Success: true, Shipments: shipments})
}

func (h *Handler) handleExtractShipments(w http.ResponseWriter, r *http.Request) {
	var req shipmentsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.Classified(httpx.ErrValidation, err))
		return
	}
	httpx.JSON(w, http.StatusOK, shipmentsResponse{Success: true, Shipments: ExtractShipments(req.Transactions)})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrInvalidFilter) {
		httpx.RespondError(w, httpx.Classified(httpx.ErrValidation, err))
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		SKUs:        listParam(q["sku"], strings.ToUpper),
		Locations:   listParam(q["location"], strings.ToUpper),
		ProductName: strings.TrimSpace(q.Get("product")),
		Shipment:    strings.TrimSpace(q.Get("shipment")),
		FBAOnly:     strings.EqualFold(q.Get("fba"), "true"),
	}
	for _, t := range listParam(q["type"], strings.ToLower) {
		f.Types = append(f.Types, inventory.MovementType(t))
	}
	var err error
	if f.StartDate, err = parseDate(q.Get("start")); err != nil {
		return Filter{}, fmt.Errorf("%w: start: %v", ErrInvalidFilter, err)
	}
	if f.EndDate, err = parseDate(q.Get("end")); err != nil {
		return Filter{}, fmt.Errorf("%w: end: %v", ErrInvalidFilter, err)
	}
	if f.Page, err = intParam(q.Get("page")); err != nil {
		return Filter{}, fmt.Errorf("%w: page: %v", ErrInvalidFilter, err)
	}
	if f.PerPage, err = intParam(q.Get("per_page")); err != nil {
		return Filter{}, fmt.Errorf("%w: per_page: %v", ErrInvalidFilter, err)
	}
	return f, nil
}

// listParam accepts repeated and comma separated values.
func listParam(values []string, norm func(string) string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			out = append(out, norm(p))
		}
	}
	return out
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, value)
}

func intParam(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
