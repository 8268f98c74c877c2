package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// MovementType enumerates movement families and ledger line types.
type MovementType string

const (
	// MovementInbound records received stock.
	MovementInbound MovementType = "inbound"
	// MovementOutbound records shipped stock.
	MovementOutbound MovementType = "outbound"
	// MovementSTO records a transfer between two locations.
	MovementSTO MovementType = "sto"
	// MovementVoid records an administrative downward correction.
	MovementVoid MovementType = "void"
)

// Reason tags written on STO ledger lines.
const (
	ReasonTransferOut = "STO transfer out"
	ReasonTransferIn  = "STO transfer in"
	ReasonVoid        = "Inventory Editor quantity reduction"
)

// ProductName is the product name captured when a record was written. It is
// a snapshot and is never refreshed from master data afterwards.
type ProductName string

// SnapshotName normalises a master data name into a snapshot.
func SnapshotName(name string) ProductName {
	return ProductName(shared.NormalizeCode(name))
}

func (p ProductName) String() string { return string(p) }

// InventoryRecord is the on-hand quantity for one (sku, location) pair.
type InventoryRecord struct {
	ID          int64       `json:"id"`
	SKU         string      `json:"sku"`
	Location    string      `json:"location"`
	ProductName ProductName `json:"product_name"`
	Quantity    int64       `json:"quantity"`
}

// TransactionRecord is one immutable ledger line. The quantity is carried in
// the field named by Type.
type TransactionRecord struct {
	Timestamp              time.Time    `json:"timestamp"`
	SKU                    string       `json:"sku"`
	ProductName            ProductName  `json:"product_name"`
	Location               string       `json:"location,omitempty"`
	Type                   MovementType `json:"type"`
	InboundQty             int64        `json:"inbound_qty,omitempty"`
	OutboundQty            int64        `json:"outbound_qty,omitempty"`
	VoidQty                int64        `json:"void_qty,omitempty"`
	Qty                    int64        `json:"qty,omitempty"`
	ShipmentID             string       `json:"shipment_id,omitempty"`
	Reason                 string       `json:"reason,omitempty"`
	STO                    bool         `json:"sto,omitempty"`
	LocationFrom           string       `json:"location_from,omitempty"`
	LocationTo             string       `json:"location_to,omitempty"`
	MovementTransactionNum string       `json:"movement_transaction_num"`
}

// Quantity returns the line quantity from the field matching its type.
func (t TransactionRecord) Quantity() int64 {
	switch t.Type {
	case MovementInbound:
		return t.InboundQty
	case MovementOutbound:
		return t.OutboundQty
	case MovementVoid:
		return t.VoidQty
	default:
		return t.Qty
	}
}

// MovementRecord groups the ledger lines written by one operation. Details
// hold enough to reverse the operation without reading transactions.
type MovementRecord struct {
	ID             uuid.UUID           `json:"id"`
	MovementType   MovementType        `json:"movement_type"`
	TransactionNum string              `json:"transaction_num"`
	Qty            int64               `json:"qty"`
	Location       string              `json:"location"`
	DeliveryFrom   string              `json:"delivery_from,omitempty"`
	DeliveryTo     string              `json:"delivery_to,omitempty"`
	Timestamp      time.Time           `json:"timestamp"`
	Details        []TransactionRecord `json:"details"`
}

// InboundItem is one received SKU.
type InboundItem struct {
	SKU string `json:"sku" validate:"required"`
	Qty int64  `json:"qty" validate:"gt=0"`
}

// InboundInput receives one or more SKUs into a location.
type InboundInput struct {
	Items          []InboundItem `json:"items" validate:"required,min=1,dive"`
	Location       string        `json:"location" validate:"required"`
	IdempotencyKey string        `json:"-"`
}

// OutboundLine is one scanned item of a pending outbound session. A zero
// OutboundQty ships one unit.
type OutboundLine struct {
	Timestamp   time.Time `json:"timestamp"`
	SKU         string    `json:"sku" validate:"required"`
	Location    string    `json:"location" validate:"required"`
	ProductName string    `json:"product_name"`
	OutboundQty int64     `json:"outbound_qty" validate:"gte=0"`
	ShipmentID  string    `json:"shipment_id"`
	Reason      string    `json:"reason"`
	LocationTo  string    `json:"location_to"`
}

// OutboundInput confirms a scan session.
type OutboundInput struct {
	Pending        []OutboundLine `json:"pending" validate:"dive"`
	IdempotencyKey string         `json:"-"`
}

// STOInput transfers stock of one SKU between two locations.
type STOInput struct {
	SKU            string `json:"sku" validate:"required"`
	FromLocation   string `json:"fromLocation" validate:"required"`
	ToLocation     string `json:"toLocation" validate:"required"`
	Qty            int64  `json:"qty" validate:"gt=0"`
	IdempotencyKey string `json:"-"`
}

// AdjustInput sets the quantity of one inventory record.
type AdjustInput struct {
	ID          int64 `json:"-"`
	NewQuantity int64 `json:"newQuantity" validate:"gte=0"`
}

// Receipt reports the outcome of a ledger write.
type Receipt struct {
	TransactionNum string         `json:"transactionNum"`
	Qty            int64          `json:"qty"`
	Movement       MovementRecord `json:"movement"`
}

// Drift is a (sku, location) whose stored quantity disagrees with the ledger.
type Drift struct {
	SKU       string `json:"sku"`
	Location  string `json:"location"`
	Inventory int64  `json:"inventory"`
	Ledger    int64  `json:"ledger"`
}

// LedgerBalance is inbound minus outbound minus void for one (sku, location).
type LedgerBalance struct {
	SKU      string
	Location string
	Balance  int64
}

var (
	ErrUnknownSKU         = errors.New("inventory: sku not found in master data")
	ErrDeactivatedSKU     = errors.New("inventory: sku is deactivated")
	ErrInsufficientStock  = errors.New("inventory: insufficient stock")
	ErrOutOfStock         = errors.New("inventory: out of stock")
	ErrMovementNotFound   = errors.New("inventory: movement not found")
	ErrInventoryNotFound  = errors.New("inventory: inventory record not found")
	ErrIncreaseNotAllowed = errors.New("inventory: quantity increase not allowed")
	ErrAllocationConflict = errors.New("inventory: transaction number already allocated")
	ErrConcurrentUpdate   = errors.New("inventory: concurrent update, retry")
	ErrSameLocation       = errors.New("inventory: source and destination location must differ")
	ErrInvalidQuantity    = errors.New("inventory: quantity must be positive")
	ErrEmptySubmission    = errors.New("inventory: no items to submit")
	ErrLocationRequired   = errors.New("inventory: location required")
)

// LineError attaches the offending SKU and location to a domain error.
type LineError struct {
	SKU      string
	Location string
	Err      error
}

func (e *LineError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.SKU)
	}
	return fmt.Sprintf("%v: %s at %s", e.Err, e.SKU, e.Location)
}

func (e *LineError) Unwrap() error { return e.Err }

func lineError(sku, location string, err error) error {
	return &LineError{SKU: sku, Location: location, Err: err}
}

// outboundDestination normalises an outbound line's location_to. Session
// clients send "None" for a shipment leaving the warehouse; it is stored as
// no destination so billing treats the line as fulfilment.
func outboundDestination(raw string) string {
	code := shared.NormalizeCode(raw)
	if code == "NONE" {
		return ""
	}
	return code
}
