package inventory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-wms/internal/masterdata"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInventory(ctx context.Context, sku, location string) (InventoryRecord, error)
	GetInventoryByID(ctx context.Context, id int64) (InventoryRecord, error)
	ListInventory(ctx context.Context) ([]InventoryRecord, error)
	StockLocations(ctx context.Context) ([]string, error)
	LedgerBalances(ctx context.Context) ([]LedgerBalance, error)
}

// Catalog resolves SKUs against the material master.
type Catalog interface {
	Material(ctx context.Context, sku string) (masterdata.Material, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort claims submission keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// ServiceConfig groups optional collaborators.
type ServiceConfig struct {
	Audit       AuditPort
	Idempotency IdempotencyPort
	Events      EventHandler
	Logger      *slog.Logger
}

// Service coordinates inventory operations.
type Service struct {
	repo        RepositoryPort
	catalog     Catalog
	seq         *Sequencer
	audit       AuditPort
	idempotency IdempotencyPort
	events      EventHandler
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, catalog Catalog, seq *Sequencer, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		catalog:     catalog,
		seq:         seq,
		audit:       cfg.Audit,
		idempotency: cfg.Idempotency,
		events:      cfg.Events,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SubmitInbound receives every item into one location under a single
// inbound transaction number.
func (s *Service) SubmitInbound(ctx context.Context, input InboundInput) (Receipt, error) {
	location := shared.NormalizeCode(input.Location)
	if len(input.Items) == 0 {
		return Receipt{}, s.reject(ctx, MovementInbound, ErrEmptySubmission)
	}
	if location == "" {
		return Receipt{}, s.reject(ctx, MovementInbound, ErrLocationRequired)
	}
	names := make(map[string]ProductName, len(input.Items))
	for _, item := range input.Items {
		sku := shared.NormalizeCode(item.SKU)
		if item.Qty <= 0 {
			return Receipt{}, s.reject(ctx, MovementInbound, lineError(sku, location, ErrInvalidQuantity))
		}
		if _, ok := names[sku]; ok {
			continue
		}
		name, err := s.material(ctx, sku)
		if err != nil {
			return Receipt{}, s.reject(ctx, MovementInbound, err)
		}
		names[sku] = name
	}

	return s.record(ctx, FamilyInbound, input.IdempotencyKey, func(txnNum string, at time.Time) (MovementRecord, *Plan) {
		plan := NewPlan()
		mv := MovementRecord{MovementType: MovementInbound, TransactionNum: txnNum, Location: location, Timestamp: at}
		for _, item := range input.Items {
			sku := shared.NormalizeCode(item.SKU)
			plan.Credit(sku, location, item.Qty, names[sku])
			mv.Qty += item.Qty
			mv.Details = append(mv.Details, TransactionRecord{
				Timestamp:              at,
				SKU:                    sku,
				ProductName:            names[sku],
				Location:               location,
				Type:                   MovementInbound,
				InboundQty:             item.Qty,
				MovementTransactionNum: txnNum,
			})
		}
		return mv, plan
	})
}

// SubmitOutboundSession ships every pending line under a single outbound
// transaction number. Either all lines are debited or none.
func (s *Service) SubmitOutboundSession(ctx context.Context, input OutboundInput) (Receipt, error) {
	if len(input.Pending) == 0 {
		return Receipt{}, s.reject(ctx, MovementOutbound, ErrEmptySubmission)
	}
	lines := make([]OutboundLine, len(input.Pending))
	names := make(map[string]ProductName)
	for i, p := range input.Pending {
		p.SKU = shared.NormalizeCode(p.SKU)
		p.Location = shared.NormalizeCode(p.Location)
		if p.OutboundQty == 0 {
			p.OutboundQty = 1
		}
		if p.Location == "" {
			return Receipt{}, s.reject(ctx, MovementOutbound, lineError(p.SKU, "", ErrLocationRequired))
		}
		if p.OutboundQty < 0 {
			return Receipt{}, s.reject(ctx, MovementOutbound, lineError(p.SKU, p.Location, ErrInvalidQuantity))
		}
		if _, ok := names[p.SKU]; !ok {
			name, err := s.material(ctx, p.SKU)
			if err != nil {
				return Receipt{}, s.reject(ctx, MovementOutbound, err)
			}
			names[p.SKU] = name
		}
		lines[i] = p
	}

	return s.record(ctx, FamilyOutbound, input.IdempotencyKey, func(txnNum string, at time.Time) (MovementRecord, *Plan) {
		plan := NewPlan()
		mv := MovementRecord{MovementType: MovementOutbound, TransactionNum: txnNum, Location: lines[0].Location, Timestamp: at}
		for _, p := range lines {
			name := SnapshotName(p.ProductName)
			if name == "" {
				name = names[p.SKU]
			}
			ts := p.Timestamp
			if ts.IsZero() {
				ts = at
			}
			plan.Debit(p.SKU, p.Location, p.OutboundQty)
			mv.Qty += p.OutboundQty
			mv.Details = append(mv.Details, TransactionRecord{
				Timestamp:              ts.UTC(),
				SKU:                    p.SKU,
				ProductName:            name,
				Location:               p.Location,
				Type:                   MovementOutbound,
				OutboundQty:            p.OutboundQty,
				ShipmentID:             p.ShipmentID,
				Reason:                 p.Reason,
				LocationTo:             outboundDestination(p.LocationTo),
				MovementTransactionNum: txnNum,
			})
		}
		return mv, plan
	})
}

// SubmitSTO moves qty of one SKU between two locations. The movement holds
// the outbound and the inbound ledger line.
func (s *Service) SubmitSTO(ctx context.Context, input STOInput) (Receipt, error) {
	sku := shared.NormalizeCode(input.SKU)
	from := shared.NormalizeCode(input.FromLocation)
	to := shared.NormalizeCode(input.ToLocation)
	if from == "" || to == "" {
		return Receipt{}, s.reject(ctx, MovementSTO, lineError(sku, "", ErrLocationRequired))
	}
	if input.Qty <= 0 {
		return Receipt{}, s.reject(ctx, MovementSTO, lineError(sku, from, ErrInvalidQuantity))
	}
	if from == to {
		return Receipt{}, s.reject(ctx, MovementSTO, lineError(sku, from, ErrSameLocation))
	}
	name, err := s.material(ctx, sku)
	if err != nil {
		return Receipt{}, s.reject(ctx, MovementSTO, err)
	}

	return s.record(ctx, FamilySTO, input.IdempotencyKey, func(txnNum string, at time.Time) (MovementRecord, *Plan) {
		plan := NewPlan()
		plan.Debit(sku, from, input.Qty)
		plan.Credit(sku, to, input.Qty, name)
		base := TransactionRecord{
			Timestamp:              at,
			SKU:                    sku,
			ProductName:            name,
			STO:                    true,
			LocationFrom:           from,
			LocationTo:             to,
			MovementTransactionNum: txnNum,
		}
		out := base
		out.Location = from
		out.Type = MovementOutbound
		out.OutboundQty = input.Qty
		out.Reason = ReasonTransferOut
		in := base
		in.Location = to
		in.Type = MovementInbound
		in.InboundQty = input.Qty
		in.Reason = ReasonTransferIn
		return MovementRecord{
			MovementType:   MovementSTO,
			TransactionNum: txnNum,
			Qty:            input.Qty,
			Location:       from,
			DeliveryFrom:   from,
			DeliveryTo:     to,
			Timestamp:      at,
			Details:        []TransactionRecord{out, in},
		}, plan
	})
}

// AdjustQuantity lowers the quantity of an inventory record and books the
// difference as a void movement. Increases are rejected.
//
// The VOID number is allocated before the row lock is taken so the counter
// never needs a second connection while the transaction holds one. A
// quantity that changes between the pre-check and the lock burns the number.
func (s *Service) AdjustQuantity(ctx context.Context, input AdjustInput) (Receipt, error) {
	if input.NewQuantity < 0 {
		return Receipt{}, s.reject(ctx, MovementVoid, ErrInvalidQuantity)
	}
	current, err := s.repo.GetInventoryByID(ctx, input.ID)
	if err != nil {
		return Receipt{}, s.reject(ctx, MovementVoid, err)
	}
	if err := checkReduction(current, input.NewQuantity); err != nil {
		return Receipt{}, s.reject(ctx, MovementVoid, err)
	}
	if input.NewQuantity == current.Quantity {
		return Receipt{}, nil
	}
	txnNum, err := s.seq.Next(ctx, FamilyVoid)
	if err != nil {
		return Receipt{}, s.reject(ctx, MovementVoid, err)
	}

	var receipt Receipt
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetInventoryForUpdate(ctx, input.ID)
		if err != nil {
			return err
		}
		if err := checkReduction(rec, input.NewQuantity); err != nil {
			return err
		}
		if input.NewQuantity == rec.Quantity {
			return nil
		}
		reduced := rec.Quantity - input.NewQuantity
		if err := tx.SetQuantity(ctx, rec.ID, input.NewQuantity); err != nil {
			return err
		}
		at := s.now()
		mv := MovementRecord{
			ID:             uuid.New(),
			MovementType:   MovementVoid,
			TransactionNum: txnNum,
			Qty:            reduced,
			Location:       rec.Location,
			Timestamp:      at,
			Details: []TransactionRecord{{
				Timestamp:              at,
				SKU:                    rec.SKU,
				ProductName:            rec.ProductName,
				Location:               rec.Location,
				Type:                   MovementVoid,
				VoidQty:                reduced,
				Reason:                 ReasonVoid,
				MovementTransactionNum: txnNum,
			}},
		}
		if err := s.write(ctx, tx, mv); err != nil {
			return err
		}
		receipt = Receipt{TransactionNum: txnNum, Qty: reduced, Movement: mv}
		return nil
	})
	if err != nil {
		return Receipt{}, s.reject(ctx, MovementVoid, err)
	}
	if receipt.TransactionNum != "" {
		s.posted(ctx, receipt.Movement)
	}
	return receipt, nil
}

func checkReduction(rec InventoryRecord, newQuantity int64) error {
	if newQuantity > rec.Quantity {
		return lineError(rec.SKU, rec.Location, ErrIncreaseNotAllowed)
	}
	return nil
}

// DeleteMovement reverses the inventory effect of a movement and removes it
// with its transactions. The transaction number is never reissued.
func (s *Service) DeleteMovement(ctx context.Context, txnNum string) (MovementRecord, error) {
	txnNum = shared.NormalizeCode(txnNum)
	var mv MovementRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		mv, err = tx.GetMovementForUpdate(ctx, txnNum)
		if err != nil {
			return err
		}
		if err := ReversalPlan(mv).Apply(ctx, tx); err != nil {
			return err
		}
		return tx.DeleteMovement(ctx, txnNum)
	})
	if err != nil {
		return MovementRecord{}, s.reject(ctx, mv.MovementType, err)
	}
	s.logger.Info("movement reversed",
		slog.String("transaction_num", mv.TransactionNum),
		slog.String("movement_type", string(mv.MovementType)),
		slog.Int64("qty", mv.Qty))
	s.emit(ctx, MovementEvent{Action: EventReversed, MovementType: mv.MovementType, TransactionNum: mv.TransactionNum, Qty: mv.Qty, At: s.now()})
	s.recordAudit(ctx, "inventory:reverse", mv)
	return mv, nil
}

// ValidateScan checks that sku is active and in stock at location, returning
// the product name to show for the scanned line.
func (s *Service) ValidateScan(ctx context.Context, sku, location string) (ProductName, error) {
	sku = shared.NormalizeCode(sku)
	location = shared.NormalizeCode(location)
	name, err := s.material(ctx, sku)
	if err != nil {
		return "", err
	}
	rec, err := s.repo.GetInventory(ctx, sku, location)
	if errors.Is(err, ErrInventoryNotFound) || (err == nil && rec.Quantity <= 0) {
		return "", lineError(sku, location, ErrOutOfStock)
	}
	if err != nil {
		return "", err
	}
	if rec.ProductName != "" {
		return rec.ProductName, nil
	}
	return name, nil
}

// StockLocations lists the distinct locations present in inventory.
func (s *Service) StockLocations(ctx context.Context) ([]string, error) {
	return s.repo.StockLocations(ctx)
}

// Reconcile compares stored quantities against the ledger balance
// (inbound - outbound - void) and returns every disagreeing pair.
func (s *Service) Reconcile(ctx context.Context) ([]Drift, error) {
	records, err := s.repo.ListInventory(ctx)
	if err != nil {
		return nil, err
	}
	balances, err := s.repo.LedgerBalances(ctx)
	if err != nil {
		return nil, err
	}
	drift := make(map[planKey]*Drift, len(records))
	for _, rec := range records {
		drift[planKey{rec.SKU, rec.Location}] = &Drift{SKU: rec.SKU, Location: rec.Location, Inventory: rec.Quantity}
	}
	for _, b := range balances {
		k := planKey{b.SKU, b.Location}
		d, ok := drift[k]
		if !ok {
			d = &Drift{SKU: b.SKU, Location: b.Location}
			drift[k] = d
		}
		d.Ledger += b.Balance
	}
	var out []Drift
	for _, d := range drift {
		if d.Inventory != d.Ledger {
			out = append(out, *d)
		}
	}
	slices.SortFunc(out, func(a, b Drift) int {
		if c := cmp.Compare(a.SKU, b.SKU); c != 0 {
			return c
		}
		return cmp.Compare(a.Location, b.Location)
	})
	return out, nil
}

// record allocates a number for family, builds the movement and applies it
// in one transaction.
func (s *Service) record(ctx context.Context, family Family, key string, build func(txnNum string, at time.Time) (MovementRecord, *Plan)) (Receipt, error) {
	movementType := MovementType(family)
	claimed := ""
	if key != "" && s.idempotency != nil {
		claimed = fmt.Sprintf("%s:%s", family, key)
		if err := s.idempotency.CheckAndInsert(ctx, claimed, "inventory"); err != nil {
			return Receipt{}, s.reject(ctx, movementType, err)
		}
	}
	txnNum, err := s.seq.Next(ctx, family)
	if err != nil {
		s.release(ctx, claimed)
		return Receipt{}, s.reject(ctx, movementType, err)
	}
	mv, plan := build(txnNum, s.now())
	mv.ID = uuid.New()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := plan.Apply(ctx, tx); err != nil {
			return err
		}
		return s.write(ctx, tx, mv)
	})
	if err != nil {
		s.release(ctx, claimed)
		return Receipt{}, s.reject(ctx, movementType, err)
	}
	s.posted(ctx, mv)
	return Receipt{TransactionNum: txnNum, Qty: mv.Qty, Movement: mv}, nil
}

func (s *Service) write(ctx context.Context, tx TxRepository, mv MovementRecord) error {
	if err := tx.InsertMovement(ctx, mv); err != nil {
		return err
	}
	return tx.InsertTransactions(ctx, mv.Details)
}

func (s *Service) material(ctx context.Context, sku string) (ProductName, error) {
	if sku == "" {
		return "", lineError(sku, "", ErrUnknownSKU)
	}
	m, err := s.catalog.Material(ctx, sku)
	if errors.Is(err, masterdata.ErrNotFound) {
		return "", lineError(sku, "", ErrUnknownSKU)
	}
	if err != nil {
		return "", err
	}
	if !m.Active {
		return "", lineError(sku, "", ErrDeactivatedSKU)
	}
	return SnapshotName(m.ProductName), nil
}

func (s *Service) posted(ctx context.Context, mv MovementRecord) {
	s.logger.Info("movement recorded",
		slog.String("transaction_num", mv.TransactionNum),
		slog.String("movement_type", string(mv.MovementType)),
		slog.String("location", mv.Location),
		slog.Int64("qty", mv.Qty),
		slog.Int("lines", len(mv.Details)))
	s.emit(ctx, MovementEvent{Action: EventPosted, MovementType: mv.MovementType, TransactionNum: mv.TransactionNum, Qty: mv.Qty, At: mv.Timestamp})
	s.recordAudit(ctx, "inventory:"+string(mv.MovementType), mv)
}

func (s *Service) reject(ctx context.Context, movementType MovementType, err error) error {
	reason := RejectionReason(err)
	if reason == "internal" {
		s.logger.Error("inventory operation failed", slog.String("movement_type", string(movementType)), slog.Any("error", err))
	}
	s.emit(ctx, MovementEvent{Action: EventRejected, MovementType: movementType, Reason: reason, At: s.now()})
	return err
}

func (s *Service) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Delete(ctx, key); err != nil {
		s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", err))
	}
}

func (s *Service) emit(ctx context.Context, evt MovementEvent) {
	if s.events != nil {
		s.events.HandleMovementEvent(ctx, evt)
	}
}

func (s *Service) recordAudit(ctx context.Context, action string, mv MovementRecord) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "movement",
		EntityID: mv.TransactionNum,
		Meta: map[string]any{
			"movement_type": mv.MovementType,
			"location":      mv.Location,
			"qty":           mv.Qty,
			"lines":         len(mv.Details),
		},
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("transaction_num", mv.TransactionNum), slog.Any("error", err))
	}
}
