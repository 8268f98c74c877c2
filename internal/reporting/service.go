package reporting

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// ErrInvalidFilter is returned for malformed report filters.
var ErrInvalidFilter = errors.New("reporting: invalid filter")

// Store is the read side of the inventory ledger.
type Store interface {
	ListInventory(ctx context.Context) ([]inventory.InventoryRecord, error)
	ListTransactions(ctx context.Context, q inventory.TransactionQuery) ([]inventory.TransactionRecord, error)
	ListMovements(ctx context.Context) ([]inventory.MovementRecord, error)
	ShipmentCandidates(ctx context.Context) ([]inventory.TransactionRecord, error)
}

// Catalog exposes the set of active SKUs.
type Catalog interface {
	ActiveSKUs(ctx context.Context) (map[string]struct{}, error)
}

// Filter narrows the transaction history. Dates apply only when both ends
// are set and cover whole days.
type Filter struct {
	SKUs        []string
	Locations   []string
	Types       []inventory.MovementType
	ProductName string
	Shipment    string
	StartDate   time.Time
	EndDate     time.Time
	FBAOnly     bool
	Page        int
	PerPage     int
}

// HistoryPage is one page of filtered ledger lines.
type HistoryPage struct {
	Transactions []inventory.TransactionRecord `json:"transactions"`
	Pagination   shared.Pagination             `json:"pagination"`
}

// Service builds read-only reports over the ledger.
type Service struct {
	store   Store
	catalog Catalog
	rates   Rates
	logger  *slog.Logger
	group   singleflight.Group
}

// NewService constructs a reporting service.
func NewService(store Store, catalog Catalog, rates Rates, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if rates.FBALocation == "" {
		rates.FBALocation = DefaultRates().FBALocation
	}
	return &Service{store: store, catalog: catalog, rates: rates, logger: logger}
}

// Rates returns the configured billing rates.
func (s *Service) Rates() Rates { return s.rates }

// snapshotTimeout bounds a shared snapshot load.
const snapshotTimeout = 30 * time.Second

type snapshot struct {
	records []inventory.InventoryRecord
	active  map[string]struct{}
}

// Snapshot returns inventory with positive quantity for active SKUs.
// Concurrent callers share one load.
func (s *Service) Snapshot(ctx context.Context) ([]inventory.InventoryRecord, error) {
	ch := s.group.DoChan("snapshot", func() (any, error) {
		// The load is shared, so it outlives the caller that started it.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
		defer cancel()
		var snap snapshot
		g, gctx := errgroup.WithContext(loadCtx)
		g.Go(func() error {
			records, err := s.store.ListInventory(gctx)
			snap.records = records
			return err
		})
		g.Go(func() error {
			active, err := s.catalog.ActiveSKUs(gctx)
			snap.active = active
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		out := make([]inventory.InventoryRecord, 0, len(snap.records))
		for _, rec := range snap.records {
			if rec.Quantity <= 0 {
				continue
			}
			if _, ok := snap.active[rec.SKU]; !ok {
				continue
			}
			out = append(out, rec)
		}
		return out, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]inventory.InventoryRecord)), nil
	}
}

// Movements returns movements that have no details or touch at least one
// active SKU.
func (s *Service) Movements(ctx context.Context) ([]inventory.MovementRecord, error) {
	var movements []inventory.MovementRecord
	var active map[string]struct{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		movements, err = s.store.ListMovements(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		active, err = s.catalog.ActiveSKUs(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]inventory.MovementRecord, 0, len(movements))
	for _, mv := range movements {
		if len(mv.Details) == 0 || touchesActive(mv.Details, active) {
			out = append(out, mv)
		}
	}
	return out, nil
}

func touchesActive(details []inventory.TransactionRecord, active map[string]struct{}) bool {
	for _, d := range details {
		if _, ok := active[shared.NormalizeCode(d.SKU)]; ok {
			return true
		}
	}
	return false
}

// Transactions returns the ledger lines of active SKUs matching f, newest
// first.
func (s *Service) Transactions(ctx context.Context, f Filter) ([]inventory.TransactionRecord, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	var lines []inventory.TransactionRecord
	var active map[string]struct{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lines, err = s.store.ListTransactions(gctx, f.query())
		return err
	})
	g.Go(func() error {
		var err error
		active, err = s.catalog.ActiveSKUs(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]inventory.TransactionRecord, 0, len(lines))
	for _, t := range lines {
		if _, ok := active[shared.NormalizeCode(t.SKU)]; !ok {
			continue
		}
		if f.matches(t, s.rates.FBALocation) {
			out = append(out, t)
		}
	}
	return out, nil
}

// History returns one page of Transactions.
func (s *Service) History(ctx context.Context, f Filter) (HistoryPage, error) {
	lines, err := s.Transactions(ctx, f)
	if err != nil {
		return HistoryPage{}, err
	}
	p := shared.NewPagination(f.Page, f.PerPage, len(lines))
	start, end := p.Bounds()
	return HistoryPage{Transactions: lines[start:end], Pagination: p}, nil
}

// Charges bills the ledger lines matching f.
func (s *Service) Charges(ctx context.Context, f Filter) (Charges, error) {
	lines, err := s.Transactions(ctx, f)
	if err != nil {
		return Charges{}, err
	}
	return ComputeCharges(lines, s.rates), nil
}

// StoredShipments extracts tracking numbers from stored outbound lines.
func (s *Service) StoredShipments(ctx context.Context) ([]Shipment, error) {
	lines, err := s.store.ShipmentCandidates(ctx)
	if err != nil {
		return nil, err
	}
	return ExtractShipments(lines), nil
}

func (f Filter) validate() error {
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.EndDate.Before(f.StartDate) {
		return ErrInvalidFilter
	}
	return nil
}

func (f Filter) hasDates() bool {
	return !f.StartDate.IsZero() && !f.EndDate.IsZero()
}

// query pushes the exact-match parts of f down to the store.
func (f Filter) query() inventory.TransactionQuery {
	q := inventory.TransactionQuery{SKUs: f.SKUs, Locations: f.Locations, Types: f.Types}
	if f.hasDates() {
		q.From = f.StartDate
		q.To = f.EndDate.Add(24*time.Hour - time.Millisecond)
	}
	return q
}

func (f Filter) matches(t inventory.TransactionRecord, fbaLocation string) bool {
	if !f.query().Matches(t) {
		return false
	}
	if f.ProductName != "" && !strings.Contains(strings.ToUpper(t.ProductName.String()), strings.ToUpper(f.ProductName)) {
		return false
	}
	if f.Shipment != "" && !strings.Contains(strings.ToUpper(t.ShipmentID), strings.ToUpper(f.Shipment)) {
		return false
	}
	if f.FBAOnly && !touchesLocation(t, fbaLocation) {
		return false
	}
	return true
}
