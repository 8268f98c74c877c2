package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
)

// InventoryMetrics menghitung pergerakan stok dari event ledger.
type InventoryMetrics struct {
	movements  *prometheus.CounterVec
	quantity   *prometheus.CounterVec
	rejections *prometheus.CounterVec
}

// NewInventoryMetrics mendaftarkan metrik inventori ke registerer.
func NewInventoryMetrics(registerer prometheus.Registerer) *InventoryMetrics {
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wms_inventory_movements_total",
		Help: "Jumlah movement berdasarkan tipe dan aksi.",
	}, []string{"movement_type", "action"})
	quantity := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wms_inventory_quantity_total",
		Help: "Total kuantitas yang diposting atau dibalik per tipe movement.",
	}, []string{"movement_type", "action"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wms_inventory_rejections_total",
		Help: "Jumlah operasi inventori yang ditolak berdasarkan alasan.",
	}, []string{"movement_type", "reason"})
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	registerer.MustRegister(movements, quantity, rejections)
	return &InventoryMetrics{movements: movements, quantity: quantity, rejections: rejections}
}

// HandleMovementEvent mencatat event ke counter yang sesuai.
func (m *InventoryMetrics) HandleMovementEvent(_ context.Context, evt inventory.MovementEvent) {
	if m == nil {
		return
	}
	kind := string(evt.MovementType)
	if evt.Action == inventory.EventRejected {
		m.rejections.WithLabelValues(kind, evt.Reason).Inc()
		return
	}
	m.movements.WithLabelValues(kind, string(evt.Action)).Inc()
	if evt.Qty > 0 {
		m.quantity.WithLabelValues(kind, string(evt.Action)).Add(float64(evt.Qty))
	}
}

var _ inventory.EventHandler = (*InventoryMetrics)(nil)
