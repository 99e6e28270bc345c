package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/obra-stock/internal/domain/entity"
)

// ReorderStatus resultado de comparar stock contra el punto de reorden.
type ReorderStatus struct {
	ItemID       string
	LocationID   string // vacío = agregado de todas las ubicaciones
	NeedsReorder bool
	Shortage     decimal.Decimal
	CurrentQty   decimal.Decimal
	Threshold    *decimal.Decimal // nil = sin umbral configurado
}

// CheckReorderPoint agrega la cantidad del ítem (en locationID, o en todas si es vacío)
// y la compara con el umbral efectivo: override de la posición o umbral del ítem.
func CheckReorderPoint(item *entity.Item, positions []*StockPosition, locationID string) ReorderStatus {
	status := ReorderStatus{
		ItemID:     item.ID,
		LocationID: locationID,
		Shortage:   decimal.Zero,
		CurrentQty: decimal.Zero,
		Threshold:  item.LowStockThreshold,
	}
	for _, p := range positions {
		if p.ItemID() != item.ID {
			continue
		}
		if locationID != "" && p.LocationID() != locationID {
			continue
		}
		status.CurrentQty = status.CurrentQty.Add(p.Quantity())
		if locationID != "" && p.ThresholdOverride() != nil {
			status.Threshold = p.ThresholdOverride()
		}
	}
	if status.Threshold == nil {
		return status
	}
	threshold := *status.Threshold
	if status.CurrentQty.LessThan(threshold) {
		status.NeedsReorder = true
		status.Shortage = threshold.Sub(status.CurrentQty)
	}
	return status
}
