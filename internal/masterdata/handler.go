package masterdata

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the master data module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs master data handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/materials", h.listMaterials)
	r.Post("/materials", h.saveMaterial)
	r.Put("/materials", h.updateMaterials)
	r.Get("/locations", h.listLocations)
	r.Post("/locations", h.saveLocation)
	r.Put("/locations", h.updateLocations)
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type materialChanges struct {
	Changes []MaterialChange `json:"changes" validate:"dive"`
}

type locationChanges struct {
	Changes []LocationChange `json:"changes" validate:"dive"`
}

func (h *Handler) listMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.service.ListMaterials(r.Context())
	if err != nil {
		h.fail(w, "list materials", err)
		return
	}
	if materials == nil {
		materials = []Material{}
	}
	httpx.JSON(w, http.StatusOK, materials)
}

func (h *Handler) saveMaterial(w http.ResponseWriter, r *http.Request) {
	var input MaterialInput
	if err := httpx.DecodeValid(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	m, err := h.service.SaveMaterial(r.Context(), input)
	if err != nil {
		h.fail(w, "save material", err)
		return
	}
	httpx.JSON(w, http.StatusOK, messageResponse{Success: true, Message: fmt.Sprintf("Saved material: %s", m.SKU)})
}

func (h *Handler) updateMaterials(w http.ResponseWriter, r *http.Request) {
	var body materialChanges
	if err := httpx.DecodeValid(r, &body); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := h.service.UpdateMaterials(r.Context(), body.Changes); err != nil {
		h.fail(w, "update materials", err)
		return
	}
	httpx.JSON(w, http.StatusOK, messageResponse{Success: true, Message: fmt.Sprintf("Updated %d materials", len(body.Changes))})
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.service.ListLocations(r.Context())
	if err != nil {
		h.fail(w, "list locations", err)
		return
	}
	if locations == nil {
		locations = []Location{}
	}
	httpx.JSON(w, http.StatusOK, locations)
}

func (h *Handler) saveLocation(w http.ResponseWriter, r *http.Request) {
	var input LocationInput
	if err := httpx.DecodeValid(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	l, err := h.service.SaveLocation(r.Context(), input)
	if err != nil {
		h.fail(w, "save location", err)
		return
	}
	httpx.JSON(w, http.StatusOK, messageResponse{Success: true, Message: fmt.Sprintf("Saved location: %s", l.Location)})
}

func (h *Handler) updateLocations(w http.ResponseWriter, r *http.Request) {
	var body locationChanges
	if err := httpx.DecodeValid(r, &body); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := h.service.UpdateLocations(r.Context(), body.Changes); err != nil {
		h.fail(w, "update locations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, messageResponse{Success: true, Message: fmt.Sprintf("Updated %d locations", len(body.Changes))})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		httpx.RespondError(w, httpx.Classified(httpx.ErrValidation, err))
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.Classified(httpx.ErrNotFound, err))
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
