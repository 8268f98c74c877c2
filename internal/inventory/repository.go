package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/db"
)

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	Mutator
	InsertMovement(ctx context.Context, mv MovementRecord) error
	InsertTransactions(ctx context.Context, lines []TransactionRecord) error
	GetMovementForUpdate(ctx context.Context, txnNum string) (MovementRecord, error)
	DeleteMovement(ctx context.Context, txnNum string) error
	GetInventoryForUpdate(ctx context.Context, id int64) (InventoryRecord, error)
	SetQuantity(ctx context.Context, id, qty int64) error
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	SendBatch(context.Context, *pgx.Batch) pgx.BatchResults
}

// Repository persists inventory, ledger and counters in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	db dbtx
}

// WithTx executes the callback inside a read-committed transaction. Row
// locks from conditional updates serialise writers on the same record.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{db: tx})
	})
	return mapError(err)
}

// mapError translates storage failures into domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch db.Code(err) {
	case db.CodeUniqueViolation:
		return ErrAllocationConflict
	case db.CodeSerializationFailure, db.CodeDeadlockDetected:
		return ErrConcurrentUpdate
	case db.CodeCheckViolation:
		return ErrInsufficientStock
	}
	return err
}

const inventoryColumns = `id, sku, location, product_name, quantity`

func scanInventory(row pgx.Row) (InventoryRecord, error) {
	var rec InventoryRecord
	var name string
	if err := row.Scan(&rec.ID, &rec.SKU, &rec.Location, &name, &rec.Quantity); err != nil {
		return InventoryRecord{}, err
	}
	rec.ProductName = ProductName(name)
	return rec, nil
}

// GetInventory loads one (sku, location) record.
func (r *Repository) GetInventory(ctx context.Context, sku, location string) (InventoryRecord, error) {
	rec, err := scanInventory(r.pool.QueryRow(ctx, `SELECT `+inventoryColumns+` FROM inventory WHERE sku = $1 AND location = $2`, sku, location))
	if errors.Is(err, pgx.ErrNoRows) {
		return InventoryRecord{}, ErrInventoryNotFound
	}
	return rec, err
}

// GetInventoryByID loads one record by id without locking it.
func (r *Repository) GetInventoryByID(ctx context.Context, id int64) (InventoryRecord, error) {
	rec, err := scanInventory(r.pool.QueryRow(ctx, `SELECT `+inventoryColumns+` FROM inventory WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return InventoryRecord{}, ErrInventoryNotFound
	}
	return rec, err
}

// ListInventory returns every inventory record.
func (r *Repository) ListInventory(ctx context.Context) ([]InventoryRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+inventoryColumns+` FROM inventory ORDER BY sku, location`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []InventoryRecord
	for rows.Next() {
		rec, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// StockLocations lists distinct inventory locations.
func (r *Repository) StockLocations(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT location FROM inventory ORDER BY location`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// LedgerBalances sums the ledger per (sku, location).
func (r *Repository) LedgerBalances(ctx context.Context) ([]LedgerBalance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sku, location, SUM(inbound_qty - outbound_qty - void_qty)
		FROM transactions
		GROUP BY sku, location`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerBalance
	for rows.Next() {
		var b LedgerBalance
		if err := rows.Scan(&b.SKU, &b.Location, &b.Balance); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const transactionColumns = `occurred_at, sku, product_name, location, type, inbound_qty, outbound_qty, void_qty, qty,
	shipment_id, reason, sto, location_from, location_to, movement_transaction_num`

func scanTransactions(rows pgx.Rows) ([]TransactionRecord, error) {
	defer rows.Close()
	var out []TransactionRecord
	for rows.Next() {
		var t TransactionRecord
		var name, kind string
		if err := rows.Scan(&t.Timestamp, &t.SKU, &name, &t.Location, &kind, &t.InboundQty, &t.OutboundQty, &t.VoidQty, &t.Qty,
			&t.ShipmentID, &t.Reason, &t.STO, &t.LocationFrom, &t.LocationTo, &t.MovementTransactionNum); err != nil {
			return nil, err
		}
		t.ProductName = ProductName(name)
		t.Type = MovementType(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTransactions returns ledger lines matching q, newest first.
func (r *Repository) ListTransactions(ctx context.Context, q TransactionQuery) ([]TransactionRecord, error) {
	where, args := q.where()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM transactions %s ORDER BY occurred_at DESC, id DESC`, transactionColumns, where), args...)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

// ShipmentCandidates returns outbound lines that may carry a tracking number.
func (r *Repository) ShipmentCandidates(ctx context.Context) ([]TransactionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE type = 'outbound' AND (shipment_id <> '' OR reason ~ '9[2-5][0-9]{20}')
		ORDER BY occurred_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const movementColumns = `id, movement_type, transaction_num, qty, location, delivery_from, delivery_to, occurred_at, details`

func scanMovement(row pgx.Row) (MovementRecord, error) {
	var mv MovementRecord
	var kind string
	var details []byte
	if err := row.Scan(&mv.ID, &kind, &mv.TransactionNum, &mv.Qty, &mv.Location, &mv.DeliveryFrom, &mv.DeliveryTo, &mv.Timestamp, &details); err != nil {
		return MovementRecord{}, err
	}
	mv.MovementType = MovementType(kind)
	if len(details) > 0 {
		if err := json.Unmarshal(details, &mv.Details); err != nil {
			return MovementRecord{}, fmt.Errorf("inventory: decode details of %s: %w", mv.TransactionNum, err)
		}
	}
	return mv, nil
}

// ListMovements returns every movement, newest first.
func (r *Repository) ListMovements(ctx context.Context) ([]MovementRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+movementColumns+` FROM movements ORDER BY occurred_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MovementRecord
	for rows.Next() {
		mv, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}

func (r *txRepo) Debit(ctx context.Context, sku, location string, qty int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE inventory SET quantity = quantity - $3, updated_at = NOW()
		WHERE sku = $1 AND location = $2 AND quantity >= $3`, sku, location, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *txRepo) Credit(ctx context.Context, sku, location string, qty int64, name ProductName) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO inventory (sku, location, product_name, quantity, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (sku, location) DO UPDATE
		SET quantity = inventory.quantity + EXCLUDED.quantity,
		    product_name = COALESCE(NULLIF(EXCLUDED.product_name, ''), inventory.product_name),
		    updated_at = NOW()`, sku, location, string(name), qty)
	return err
}

func (r *txRepo) InsertMovement(ctx context.Context, mv MovementRecord) error {
	if mv.ID == uuid.Nil {
		mv.ID = uuid.New()
	}
	details, err := json.Marshal(mv.Details)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO movements (id, movement_type, transaction_num, qty, location, delivery_from, delivery_to, occurred_at, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		mv.ID, string(mv.MovementType), mv.TransactionNum, mv.Qty, mv.Location, mv.DeliveryFrom, mv.DeliveryTo, mv.Timestamp, details)
	return err
}

func (r *txRepo) InsertTransactions(ctx context.Context, lines []TransactionRecord) error {
	if len(lines) == 0 {
		return nil
	}
	const query = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	batch := &pgx.Batch{}
	for _, t := range lines {
		batch.Queue(query, t.Timestamp, t.SKU, string(t.ProductName), t.Location, string(t.Type), t.InboundQty, t.OutboundQty, t.VoidQty, t.Qty,
			t.ShipmentID, t.Reason, t.STO, t.LocationFrom, t.LocationTo, t.MovementTransactionNum)
	}
	results := r.db.SendBatch(ctx, batch)
	for range lines {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}

func (r *txRepo) GetMovementForUpdate(ctx context.Context, txnNum string) (MovementRecord, error) {
	mv, err := scanMovement(r.db.QueryRow(ctx, `SELECT `+movementColumns+` FROM movements WHERE transaction_num = $1 FOR UPDATE`, txnNum))
	if errors.Is(err, pgx.ErrNoRows) {
		return MovementRecord{}, lineError(txnNum, "", ErrMovementNotFound)
	}
	return mv, err
}

func (r *txRepo) DeleteMovement(ctx context.Context, txnNum string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE movement_transaction_num = $1`, txnNum); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM movements WHERE transaction_num = $1`, txnNum)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return lineError(txnNum, "", ErrMovementNotFound)
	}
	return nil
}

func (r *txRepo) GetInventoryForUpdate(ctx context.Context, id int64) (InventoryRecord, error) {
	rec, err := scanInventory(r.db.QueryRow(ctx, `SELECT `+inventoryColumns+` FROM inventory WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return InventoryRecord{}, ErrInventoryNotFound
	}
	return rec, err
}

func (r *txRepo) SetQuantity(ctx context.Context, id, qty int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE inventory SET quantity = $2, updated_at = NOW() WHERE id = $1`, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInventoryNotFound
	}
	return nil
}

// IncrementCounter implements CounterStore on the pool so the increment
// commits independently of any operation transaction.
func (r *Repository) IncrementCounter(ctx context.Context, family Family, seed int64) (int64, error) {
	var seq int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO counters (family, seq, updated_at) VALUES ($1, $2 + 1, NOW())
		ON CONFLICT (family) DO UPDATE SET seq = counters.seq + 1, updated_at = NOW()
		RETURNING seq`, string(family), seed).Scan(&seq)
	return seq, err
}

// RaiseCounter implements CounterStore.
func (r *Repository) RaiseCounter(ctx context.Context, family Family, floor int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO counters (family, seq, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (family) DO UPDATE SET seq = GREATEST(counters.seq, EXCLUDED.seq), updated_at = NOW()`,
		string(family), floor)
	return err
}

// MaxIssued implements CounterStore by scanning stored movement numbers.
func (r *Repository) MaxIssued(ctx context.Context, family Family) (int64, error) {
	bounds, err := family.rangeOf()
	if err != nil {
		return 0, err
	}
	pattern := "^" + regexp.QuoteMeta(bounds.prefix) + "[0-9]{1,18}$"
	var issued int64
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(n), 0) FROM (
			SELECT CASE WHEN transaction_num ~ $2 THEN substr(transaction_num, $3)::bigint END AS n
			FROM movements WHERE movement_type = $1
		) issued
		WHERE n BETWEEN $4 AND $5`,
		string(family), pattern, len(bounds.prefix)+1, bounds.min, bounds.max).Scan(&issued)
	return issued, err
}

var (
	_ CounterStore   = (*Repository)(nil)
	_ RepositoryPort = (*Repository)(nil)
)
