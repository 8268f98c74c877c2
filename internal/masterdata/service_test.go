package masterdata

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	materials map[string]Material
	locations map[string]Location
	gets      int
	fail      error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{materials: make(map[string]Material), locations: make(map[string]Location)}
}

func (r *memoryRepo) ListMaterials(ctx context.Context) ([]Material, error) {
	if r.fail != nil {
		return nil, r.fail
	}
	out := make([]Material, 0, len(r.materials))
	for _, m := range r.materials {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Active != out[j].Active {
			return out[i].Active
		}
		return out[i].SKU < out[j].SKU
	})
	return out, nil
}

func (r *memoryRepo) GetMaterial(ctx context.Context, sku string) (Material, error) {
	r.gets++
	if r.fail != nil {
		return Material{}, r.fail
	}
	m, ok := r.materials[sku]
	if !ok {
		return Material{}, ErrNotFound
	}
	return m, nil
}

func (r *memoryRepo) UpsertMaterial(ctx context.Context, m Material) error {
	if existing, ok := r.materials[m.SKU]; ok {
		m.CreatedAt = existing.CreatedAt
	} else {
		m.CreatedAt = m.UpdatedAt
	}
	r.materials[m.SKU] = m
	return nil
}

func (r *memoryRepo) SetMaterialActive(ctx context.Context, sku string, active bool, at time.Time) (bool, error) {
	m, ok := r.materials[sku]
	if !ok {
		return false, nil
	}
	m.Active = active
	m.UpdatedAt = at
	r.materials[sku] = m
	return true, nil
}

func (r *memoryRepo) ListLocations(ctx context.Context) ([]Location, error) {
	out := make([]Location, 0, len(r.locations))
	for _, l := range r.locations {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Active != out[j].Active {
			return out[i].Active
		}
		return out[i].Location < out[j].Location
	})
	return out, nil
}

func (r *memoryRepo) UpsertLocation(ctx context.Context, l Location) error {
	r.locations[l.Location] = l
	return nil
}

func (r *memoryRepo) SetLocationActive(ctx context.Context, location string, active bool, at time.Time) (bool, error) {
	l, ok := r.locations[location]
	if !ok {
		return false, nil
	}
	l.Active = active
	l.UpdatedAt = at
	r.locations[location] = l
	return true, nil
}

func newCachedService(t *testing.T) (*Service, *memoryRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := newMemoryRepo()
	return NewService(repo, NewCache(client, time.Minute), nil), repo, mr
}

func TestSaveMaterialNormalises(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	m, err := svc.SaveMaterial(ctx, MaterialInput{SKU: "  ab-1 ", ProductName: " widget ", Active: true})
	require.NoError(t, err)
	require.Equal(t, "AB-1", m.SKU)
	require.Equal(t, "WIDGET", m.ProductName)
	require.Contains(t, repo.materials, "AB-1")

	_, err = svc.SaveMaterial(ctx, MaterialInput{SKU: "   ", ProductName: "x"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestMaterialLookup(t *testing.T) {
	svc, repo, _ := newCachedService(t)
	ctx := context.Background()

	_, err := svc.SaveMaterial(ctx, MaterialInput{SKU: "AB-1", ProductName: "Widget", Active: true})
	require.NoError(t, err)

	m, err := svc.Material(ctx, "ab-1")
	require.NoError(t, err)
	require.Equal(t, "WIDGET", m.ProductName)

	_, err = svc.Material(ctx, "AB-1")
	require.NoError(t, err)
	require.Equal(t, 1, repo.gets, "second lookup served from cache")

	_, err = svc.Material(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Material(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 2, repo.gets, "misses are cached")
}

func TestWritesInvalidateCache(t *testing.T) {
	svc, _, _ := newCachedService(t)
	ctx := context.Background()

	_, err := svc.SaveMaterial(ctx, MaterialInput{SKU: "AB-1", ProductName: "Widget", Active: true})
	require.NoError(t, err)
	m, err := svc.Material(ctx, "AB-1")
	require.NoError(t, err)
	require.True(t, m.Active)

	n, err := svc.UpdateMaterials(ctx, []MaterialChange{{SKU: "ab-1", Active: false}, {SKU: "nope"}})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	m, err = svc.Material(ctx, "AB-1")
	require.NoError(t, err)
	require.False(t, m.Active)

	active, err := svc.ActiveSKUs(ctx)
	require.NoError(t, err)
	require.NotContains(t, active, "AB-1")
}

func TestActiveSKUs(t *testing.T) {
	svc, _, _ := newCachedService(t)
	ctx := context.Background()

	for _, in := range []MaterialInput{
		{SKU: "a", ProductName: "one", Active: true},
		{SKU: "b", ProductName: "two", Active: false},
		{SKU: "c", ProductName: "three", Active: true},
	} {
		_, err := svc.SaveMaterial(ctx, in)
		require.NoError(t, err)
	}

	active, err := svc.ActiveSKUs(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Contains(t, active, "A")
	require.Contains(t, active, "C")
}

func TestRedisOutageFallsBackToRepository(t *testing.T) {
	svc, repo, mr := newCachedService(t)
	ctx := context.Background()

	_, err := svc.SaveMaterial(ctx, MaterialInput{SKU: "AB-1", ProductName: "Widget", Active: true})
	require.NoError(t, err)
	mr.Close()

	m, err := svc.Material(ctx, "AB-1")
	require.NoError(t, err)
	require.Equal(t, "WIDGET", m.ProductName)

	active, err := svc.ActiveSKUs(ctx)
	require.NoError(t, err)
	require.Contains(t, active, "AB-1")

	repo.fail = errors.New("db down")
	_, err = svc.Material(ctx, "AB-1")
	require.ErrorIs(t, err, repo.fail)
}

func TestRepositoryErrorIsNotMasked(t *testing.T) {
	svc, repo, _ := newCachedService(t)
	repo.fail = errors.New("db down")

	_, err := svc.Material(context.Background(), "AB-1")
	require.ErrorIs(t, err, repo.fail)
	require.Equal(t, 1, repo.gets)

	_, err = svc.ActiveSKUs(context.Background())
	require.ErrorIs(t, err, repo.fail)
}

func TestLocations(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()

	l, err := svc.SaveLocation(ctx, LocationInput{Location: " bin-a ", Active: true})
	require.NoError(t, err)
	require.Equal(t, "BIN-A", l.Location)
	_, err = svc.SaveLocation(ctx, LocationInput{Location: "bin-b", Active: true})
	require.NoError(t, err)

	n, err := svc.UpdateLocations(ctx, []LocationChange{{Location: "BIN-A", Active: false}})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	list, err := svc.ListLocations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "BIN-B", list[0].Location)
	require.False(t, list[1].Active)

	_, err = svc.SaveLocation(ctx, LocationInput{Location: " "})
	require.ErrorIs(t, err, ErrInvalidInput)
}
