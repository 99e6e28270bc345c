package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/obra-stock/internal/domain"
	"github.com/jhoicas/obra-stock/internal/domain/entity"
	"github.com/jhoicas/obra-stock/internal/domain/inventory"
	"github.com/jhoicas/obra-stock/internal/domain/repository"
)

// StockQueries consultas de solo lectura para tableros y reportes.
type StockQueries struct {
	items     repository.ItemRepository
	positions repository.StockPositionRepository
	movements repository.MovementRepository
}

// NewStockQueries construye las consultas de stock.
func NewStockQueries(
	items repository.ItemRepository,
	positions repository.StockPositionRepository,
	movements repository.MovementRepository,
) *StockQueries {
	return &StockQueries{items: items, positions: positions, movements: movements}
}

// PositionQuantity cantidad de un ítem en una ubicación.
type PositionQuantity struct {
	LocationID        string
	Quantity          decimal.Decimal
	ThresholdOverride *decimal.Decimal
}

// ValuationSummary valuación del stock actual de un ítem bajo su política.
type ValuationSummary struct {
	Item          *entity.Item
	TotalQuantity decimal.Decimal
	Valuation     inventory.CostResult
	Positions     []PositionQuantity
	Lots          []inventory.Lot
}

// CurrentStock devuelve la cantidad del ítem en locationID, o la suma de todas si es vacío.
// Una posición inexistente cuenta como cero.
func (q *StockQueries) CurrentStock(ctx context.Context, itemID, locationID string) (decimal.Decimal, error) {
	item, err := q.items.GetByID(ctx, itemID)
	if err != nil {
		return decimal.Zero, err
	}
	if item == nil {
		return decimal.Zero, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, itemID)
	}
	if locationID != "" {
		p, err := q.positions.Get(ctx, itemID, locationID)
		if err != nil {
			return decimal.Zero, err
		}
		if p == nil {
			return decimal.Zero, nil
		}
		return p.Quantity(), nil
	}
	positions, err := q.positions.ListByItem(ctx, itemID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.Quantity())
	}
	return total, nil
}

// ValuationSummary valúa el stock total del ítem según su política y lista lotes vigentes.
func (q *StockQueries) ValuationSummary(ctx context.Context, itemID string) (*ValuationSummary, error) {
	item, err := q.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, itemID)
	}
	positions, err := q.positions.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	summary := &ValuationSummary{Item: item, TotalQuantity: decimal.Zero}
	for _, p := range positions {
		summary.TotalQuantity = summary.TotalQuantity.Add(p.Quantity())
		summary.Positions = append(summary.Positions, PositionQuantity{
			LocationID:        p.LocationID(),
			Quantity:          p.Quantity(),
			ThresholdOverride: p.ThresholdOverride(),
		})
	}
	sort.Slice(summary.Positions, func(i, j int) bool {
		return summary.Positions[i].LocationID < summary.Positions[j].LocationID
	})

	var history []*entity.Movement
	if item.ValuationMethod.UsesLots() {
		history, err = q.movements.ListAppliedByItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		summary.Lots = inventory.BuildLots(item.ValuationMethod, history)
	}
	summary.Valuation, err = inventory.CostForQuantity(item, history, summary.TotalQuantity)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// CostForQuantity costea una cantidad hipotética del ítem bajo su política (sin mutar estado).
func (q *StockQueries) CostForQuantity(ctx context.Context, itemID string, qty decimal.Decimal) (inventory.CostResult, error) {
	item, err := q.items.GetByID(ctx, itemID)
	if err != nil {
		return inventory.CostResult{}, err
	}
	if item == nil {
		return inventory.CostResult{}, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, itemID)
	}
	var history []*entity.Movement
	if item.ValuationMethod.UsesLots() {
		history, err = q.movements.ListAppliedByItem(ctx, itemID)
		if err != nil {
			return inventory.CostResult{}, err
		}
	}
	return inventory.CostForQuantity(item, history, qty)
}
