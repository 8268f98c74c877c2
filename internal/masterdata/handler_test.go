package masterdata

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo *memoryRepo) http.Handler {
	r := chi.NewRouter()
	NewHandler(slog.Default(), NewService(repo, nil, nil)).MountRoutes(r)
	return r
}

func TestHandlerSaveAndListMaterials(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/materials", strings.NewReader(`{"sku":"ab-1","product_name":"widget","active":true}`))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Saved material: AB-1")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/materials", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Material
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, "WIDGET", list[0].ProductName)
}

func TestHandlerUpdateMaterials(t *testing.T) {
	repo := newMemoryRepo()
	repo.materials["AB-1"] = Material{SKU: "AB-1", ProductName: "WIDGET", Active: true}
	router := newTestRouter(repo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/materials", strings.NewReader(`{"changes":[{"sku":"AB-1","active":false},{"sku":"ZZ","active":true}]}`))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Updated 2 materials")
	require.False(t, repo.materials["AB-1"].Active)
}

func TestHandlerRejectsInvalidBody(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/materials", strings.NewReader(`{"sku":""}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/locations", strings.NewReader(`{"location":"   "}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerLocations(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/locations", strings.NewReader(`{"location":"bin-a","active":true}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Saved location: BIN-A")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/locations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"location":"BIN-A"`)
}
