package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/obra-stock/internal/domain"
	"github.com/jhoicas/obra-stock/internal/domain/entity"
	"github.com/jhoicas/obra-stock/internal/domain/inventory"
	"github.com/jhoicas/obra-stock/internal/domain/repository"
)

// ReorderMonitor detecta faltantes comparando posiciones de stock contra umbrales.
// Solo lectura: nunca escribe en el ledger.
type ReorderMonitor struct {
	items     repository.ItemRepository
	positions repository.StockPositionRepository
}

// NewReorderMonitor construye el monitor de reorden.
func NewReorderMonitor(items repository.ItemRepository, positions repository.StockPositionRepository) *ReorderMonitor {
	return &ReorderMonitor{items: items, positions: positions}
}

// Shortages recorre todas las posiciones y devuelve las que están bajo su umbral efectivo
// (override de la posición o umbral del ítem), mayor faltante primero.
func (m *ReorderMonitor) Shortages(ctx context.Context) ([]inventory.ReorderStatus, error) {
	positions, err := m.positions.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	itemByID := make(map[string]*entity.Item)
	shortages := make([]inventory.ReorderStatus, 0)
	for _, p := range positions {
		item, ok := itemByID[p.ItemID()]
		if !ok {
			item, err = m.items.GetByID(ctx, p.ItemID())
			if err != nil {
				return nil, err
			}
			itemByID[p.ItemID()] = item
		}
		if item == nil {
			continue
		}
		status := inventory.CheckReorderPoint(item, []*inventory.StockPosition{p}, p.LocationID())
		if status.NeedsReorder {
			shortages = append(shortages, status)
		}
	}

	// Mayor faltante primero; desempate estable por ítem y ubicación.
	sort.SliceStable(shortages, func(i, j int) bool {
		a, b := shortages[i], shortages[j]
		if !a.Shortage.Equal(b.Shortage) {
			return a.Shortage.GreaterThan(b.Shortage)
		}
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		return a.LocationID < b.LocationID
	})
	return shortages, nil
}

// ItemStatus evalúa el punto de reorden de un ítem en una ubicación o, con locationID vacío,
// sobre el agregado de todas sus ubicaciones.
func (m *ReorderMonitor) ItemStatus(ctx context.Context, itemID, locationID string) (inventory.ReorderStatus, error) {
	item, err := m.items.GetByID(ctx, itemID)
	if err != nil {
		return inventory.ReorderStatus{}, err
	}
	if item == nil {
		return inventory.ReorderStatus{}, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, itemID)
	}
	positions, err := m.positions.ListByItem(ctx, itemID)
	if err != nil {
		return inventory.ReorderStatus{}, err
	}
	return inventory.CheckReorderPoint(item, positions, locationID), nil
}
