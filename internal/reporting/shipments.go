package reporting

import (
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/tracking"
)

// Shipment is one tracking number with the time of the ledger line it came from.
type Shipment struct {
	Tracking  string    `json:"tracking"`
	Timestamp time.Time `json:"timestamp"`
}

// ExtractShipments collects tracking numbers from the shipment id and then
// the reason of every outbound line, keeping the first occurrence of each.
func ExtractShipments(lines []inventory.TransactionRecord) []Shipment {
	seen := make(map[string]struct{})
	out := []Shipment{}
	add := func(text string, at time.Time) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		for number := range tracking.All(text) {
			if _, dup := seen[number]; dup {
				continue
			}
			seen[number] = struct{}{}
			out = append(out, Shipment{Tracking: number, Timestamp: at})
		}
	}
	for _, t := range lines {
		if t.Type != inventory.MovementOutbound {
			continue
		}
		add(t.ShipmentID, t.Timestamp)
		add(t.Reason, t.Timestamp)
	}
	return out
}
