package inventory

import "github.com/odyssey-erp/odyssey-wms/internal/shared"

// ReversalPlan derives the inverse deltas of a stored movement from its
// details. STO lines written as an outbound/inbound pair are reversed by
// line type; single "sto" lines carrying qty with location_from and
// location_to are also understood.
func ReversalPlan(mv MovementRecord) *Plan {
	plan := NewPlan()
	for _, d := range mv.Details {
		sku := shared.NormalizeCode(d.SKU)
		location := shared.NormalizeCode(d.Location)
		switch mv.MovementType {
		case MovementInbound:
			if d.InboundQty > 0 {
				plan.Debit(sku, location, d.InboundQty)
			}
		case MovementOutbound:
			if d.OutboundQty > 0 {
				plan.Credit(sku, location, d.OutboundQty, d.ProductName)
			}
		case MovementVoid:
			if d.VoidQty > 0 {
				plan.Credit(sku, location, d.VoidQty, d.ProductName)
			}
		case MovementSTO:
			reverseTransfer(plan, sku, location, d)
		}
	}
	return plan
}

func reverseTransfer(plan *Plan, sku, location string, d TransactionRecord) {
	switch d.Type {
	case MovementOutbound:
		if d.OutboundQty > 0 {
			plan.Credit(sku, location, d.OutboundQty, d.ProductName)
		}
	case MovementInbound:
		if d.InboundQty > 0 {
			plan.Debit(sku, location, d.InboundQty)
		}
	default:
		from := shared.NormalizeCode(d.LocationFrom)
		to := shared.NormalizeCode(d.LocationTo)
		if d.Qty > 0 && from != "" && to != "" {
			plan.Debit(sku, to, d.Qty)
			plan.Credit(sku, from, d.Qty, d.ProductName)
		}
	}
}
