package reporting

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
)

func newTestHandler(store *memoryStore) http.Handler {
	r := chi.NewRouter()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	NewHandler(logger, NewService(store, active("X", "Y"), DefaultRates(), logger)).MountRoutes(r)
	return r
}

func get(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerHistoryQueryParams(t *testing.T) {
	store := &memoryStore{transactions: []inventory.TransactionRecord{
		{Timestamp: day(2), SKU: "X", Location: "A1", Type: inventory.MovementInbound, InboundQty: 1},
		{Timestamp: day(2), SKU: "Y", Location: "B1", Type: inventory.MovementOutbound, OutboundQty: 1},
		{Timestamp: day(9), SKU: "Y", Location: "AMAZON", Type: inventory.MovementSTO, Qty: 1},
	}}
	h := newTestHandler(store)

	rec := get(h, http.MethodGet, "/transactions?sku=x,y&type=INBOUND&type=outbound&start=2024-03-01&end=2024-03-02&page=1&per_page=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page HistoryPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Transactions, 1)
	require.Equal(t, 2, page.Pagination.Total)
	require.Equal(t, 2, page.Pagination.TotalPages)

	q := store.queries[0]
	require.Equal(t, []string{"X", "Y"}, q.SKUs)
	require.Equal(t, []inventory.MovementType{inventory.MovementInbound, inventory.MovementOutbound}, q.Types)

	rec = get(h, http.MethodGet, "/transactions?fba=true", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Transactions, 1)
	require.Equal(t, "AMAZON", page.Transactions[0].Location)
}

func TestHandlerRejectsBadFilters(t *testing.T) {
	h := newTestHandler(&memoryStore{})
	for _, path := range []string{
		"/transactions?start=03/01/2024",
		"/transactions?page=two",
		"/transactions/charges?start=2024-03-05&end=2024-03-01",
	} {
		rec := get(h, http.MethodGet, path, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestHandlerCharges(t *testing.T) {
	store := &memoryStore{transactions: []inventory.TransactionRecord{
		{Timestamp: day(1), SKU: "X", Type: inventory.MovementOutbound, Location: "A1", OutboundQty: 3},
		{Timestamp: day(1), SKU: "X", Type: inventory.MovementSTO, Location: "AMAZON", Qty: 1, Reason: inventory.ReasonTransferIn, LocationFrom: "A1", LocationTo: "AMAZON"},
	}}
	rec := get(newTestHandler(store), http.MethodGet, "/transactions/charges", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chargesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, chargesResponse{
		FulfillmentQty:    3,
		FBAQty:            1,
		FulfillmentRate:   "2.00",
		FBARate:           "0.50",
		FulfillmentCharge: "6.00",
		FBACharge:         "0.50",
		Total:             "6.50",
	}, resp)
}

func TestHandlerSnapshotAndShipments(t *testing.T) {
	store := &memoryStore{
		inventory: []inventory.InventoryRecord{{ID: 1, SKU: "X", Location: "A1", Quantity: 2}},
		transactions: []inventory.TransactionRecord{
			{Timestamp: day(1), Type: inventory.MovementOutbound, ShipmentID: "9400111899223197428490"},
		},
	}
	h := newTestHandler(store)

	rec := get(h, http.MethodGet, "/inventory", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"sku":"X"`)

	rec = get(h, http.MethodGet, "/movements", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = get(h, http.MethodGet, "/transactions/extract-shipments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "9400111899223197428490")

	body := `{"transactions":[{"type":"outbound","reason":"label 9205590164917312751089","timestamp":"2024-03-01T00:00:00Z"}]}`
	rec = get(h, http.MethodPost, "/transactions/extract-shipments", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp shipmentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "9205590164917312751089", resp.Shipments[0].Tracking)

	rec = get(h, http.MethodPost, "/transactions/extract-shipments", `{`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
