package reporting

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
)

// Rates prices the billable ledger activity.
type Rates struct {
	Fulfillment decimal.Decimal
	FBA         decimal.Decimal
	FBALocation string
}

// DefaultRates returns 2.00 per fulfilled unit and 0.50 per FBA transfer unit.
func DefaultRates() Rates {
	return Rates{
		Fulfillment: decimal.RequireFromString("2.00"),
		FBA:         decimal.RequireFromString("0.50"),
		FBALocation: "AMAZON",
	}
}

// Charges is the billing summary over a set of ledger lines.
type Charges struct {
	FulfillmentQty    int64           `json:"fulfillment_qty"`
	FBAQty            int64           `json:"fba_qty"`
	FulfillmentCharge decimal.Decimal `json:"fulfillment_charge"`
	FBACharge         decimal.Decimal `json:"fba_charge"`
	Total             decimal.Decimal `json:"total"`
}

// ComputeCharges applies the billing predicate to lines.
//
// A line's quantity is the first non-zero of qty, inbound_qty and
// outbound_qty, taken absolute. Outbound lines without a destination (empty
// or "None") are fulfilment. Lines touching the FBA location count as FBA
// when they are a transfer in from elsewhere or a transfer out of the FBA
// location.
func ComputeCharges(lines []inventory.TransactionRecord, rates Rates) Charges {
	var c Charges
	for _, t := range lines {
		qty := billableQty(t)
		if isFulfillment(t) {
			c.FulfillmentQty += qty
		}
		if isFBA(t, rates.FBALocation) {
			c.FBAQty += qty
		}
	}
	c.FulfillmentCharge = rates.Fulfillment.Mul(decimal.NewFromInt(c.FulfillmentQty))
	c.FBACharge = rates.FBA.Mul(decimal.NewFromInt(c.FBAQty))
	c.Total = c.FulfillmentCharge.Add(c.FBACharge)
	return c
}

// isFulfillment reports an outbound line with no destination. "None" is
// matched without regard to case because stored codes are upper-cased.
func isFulfillment(t inventory.TransactionRecord) bool {
	return t.Type == inventory.MovementOutbound && (t.LocationTo == "" || strings.EqualFold(t.LocationTo, "None"))
}

func billableQty(t inventory.TransactionRecord) int64 {
	qty := t.Qty
	if qty == 0 {
		qty = t.InboundQty
	}
	if qty == 0 {
		qty = t.OutboundQty
	}
	if qty < 0 {
		return -qty
	}
	return qty
}

func touchesLocation(t inventory.TransactionRecord, location string) bool {
	return t.Location == location || t.LocationFrom == location || t.LocationTo == location
}

func isFBA(t inventory.TransactionRecord, location string) bool {
	if !touchesLocation(t, location) {
		return false
	}
	reason := strings.ToUpper(t.Reason)
	fromFBA := t.LocationFrom == location
	return (reason == "STO TRANSFER IN" && !fromFBA) || (reason == "STO TRANSFER OUT" && fromFBA)
}
