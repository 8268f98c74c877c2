package masterdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// Service exposes the material and location masters. Material lookups go
// through the cache; a Redis outage degrades to direct repository reads.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new master data service. cache and logger may be nil.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// ListMaterials returns every material, active ones first.
func (s *Service) ListMaterials(ctx context.Context) ([]Material, error) {
	return s.repo.ListMaterials(ctx)
}

// Material looks up one SKU. Missing SKUs return ErrNotFound.
func (s *Service) Material(ctx context.Context, sku string) (Material, error) {
	sku = shared.NormalizeCode(sku)
	if sku == "" {
		return Material{}, ErrNotFound
	}
	var loadErr error
	loader := func(ctx context.Context) (any, error) {
		m, err := s.repo.GetMaterial(ctx, sku)
		if errors.Is(err, ErrNotFound) {
			// Cache the miss too; a zero SKU marks it.
			return Material{}, nil
		}
		loadErr = err
		return m, err
	}
	var m Material
	if err := s.cache.FetchJSON(ctx, &m, loader, "material", sku); err != nil {
		if loadErr != nil {
			return Material{}, loadErr
		}
		s.logger.Warn("material cache unavailable", slog.String("sku", sku), slog.Any("error", err))
		m, err = s.repo.GetMaterial(ctx, sku)
		if err != nil {
			return Material{}, err
		}
	}
	if m.SKU == "" {
		return Material{}, ErrNotFound
	}
	return m, nil
}

// ActiveSKUs returns the set of SKUs not explicitly deactivated.
func (s *Service) ActiveSKUs(ctx context.Context) (map[string]struct{}, error) {
	var skus []string
	var loadErr error
	loader := func(ctx context.Context) (any, error) {
		materials, err := s.repo.ListMaterials(ctx)
		if err != nil {
			loadErr = err
			return nil, err
		}
		out := make([]string, 0, len(materials))
		for _, m := range materials {
			if m.Active {
				out = append(out, shared.NormalizeCode(m.SKU))
			}
		}
		return out, nil
	}
	if err := s.cache.FetchJSON(ctx, &skus, loader, "active_skus"); err != nil {
		if loadErr != nil {
			return nil, loadErr
		}
		s.logger.Warn("active sku cache unavailable", slog.Any("error", err))
		if err := load(ctx, &skus, loader); err != nil {
			return nil, err
		}
	}
	set := make(map[string]struct{}, len(skus))
	for _, sku := range skus {
		set[sku] = struct{}{}
	}
	return set, nil
}

// SaveMaterial creates or replaces a material keyed by its normalised SKU.
func (s *Service) SaveMaterial(ctx context.Context, input MaterialInput) (Material, error) {
	m := Material{
		SKU:         shared.NormalizeCode(input.SKU),
		ProductName: shared.NormalizeCode(input.ProductName),
		Active:      input.Active,
		UpdatedAt:   s.now(),
	}
	if m.SKU == "" || m.ProductName == "" {
		return Material{}, fmt.Errorf("%w: sku and product name required", ErrInvalidInput)
	}
	if err := s.repo.UpsertMaterial(ctx, m); err != nil {
		return Material{}, err
	}
	s.invalidate(ctx)
	return m, nil
}

// UpdateMaterials applies active toggles and returns how many SKUs matched.
func (s *Service) UpdateMaterials(ctx context.Context, changes []MaterialChange) (int, error) {
	at := s.now()
	updated := 0
	for _, change := range changes {
		ok, err := s.repo.SetMaterialActive(ctx, shared.NormalizeCode(change.SKU), change.Active, at)
		if err != nil {
			return updated, err
		}
		if ok {
			updated++
		}
	}
	s.invalidate(ctx)
	return updated, nil
}

// ListLocations returns every location, active ones first.
func (s *Service) ListLocations(ctx context.Context) ([]Location, error) {
	return s.repo.ListLocations(ctx)
}

// SaveLocation creates or replaces a location.
func (s *Service) SaveLocation(ctx context.Context, input LocationInput) (Location, error) {
	l := Location{Location: shared.NormalizeCode(input.Location), Active: input.Active, UpdatedAt: s.now()}
	if l.Location == "" {
		return Location{}, fmt.Errorf("%w: location required", ErrInvalidInput)
	}
	if err := s.repo.UpsertLocation(ctx, l); err != nil {
		return Location{}, err
	}
	return l, nil
}

// UpdateLocations applies active toggles and returns how many locations matched.
func (s *Service) UpdateLocations(ctx context.Context, changes []LocationChange) (int, error) {
	at := s.now()
	updated := 0
	for _, change := range changes {
		ok, err := s.repo.SetLocationActive(ctx, shared.NormalizeCode(change.Location), change.Active, at)
		if err != nil {
			return updated, err
		}
		if ok {
			updated++
		}
	}
	return updated, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump material cache", slog.Any("error", err))
	}
}
