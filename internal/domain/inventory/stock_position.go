package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/obra-stock/internal/domain"
)

// StockPosition es la cantidad actual de un ítem en una ubicación.
// La cantidad solo se modifica mediante Post; no hay setter público.
type StockPosition struct {
	itemID            string
	locationID        string
	quantity          decimal.Decimal
	thresholdOverride *decimal.Decimal
	updatedAt         time.Time
}

// NewStockPosition crea una posición vacía.
func NewStockPosition(itemID, locationID string) *StockPosition {
	return &StockPosition{itemID: itemID, locationID: locationID, quantity: decimal.Zero}
}

// RestoreStockPosition rehidrata una posición leída del almacenamiento.
func RestoreStockPosition(itemID, locationID string, quantity decimal.Decimal, thresholdOverride *decimal.Decimal, updatedAt time.Time) *StockPosition {
	return &StockPosition{
		itemID:            itemID,
		locationID:        locationID,
		quantity:          quantity,
		thresholdOverride: thresholdOverride,
		updatedAt:         updatedAt,
	}
}

func (p *StockPosition) ItemID() string                      { return p.itemID }
func (p *StockPosition) LocationID() string                  { return p.locationID }
func (p *StockPosition) Quantity() decimal.Decimal           { return p.quantity }
func (p *StockPosition) ThresholdOverride() *decimal.Decimal { return p.thresholdOverride }
func (p *StockPosition) UpdatedAt() time.Time                { return p.updatedAt }

// Key devuelve la clave (ítem, ubicación).
func (p *StockPosition) Key() PositionKey {
	return PositionKey{ItemID: p.itemID, LocationID: p.locationID}
}

// Clone copia la posición; usado por los almacenes para no compartir punteros.
func (p *StockPosition) Clone() *StockPosition {
	c := *p
	if p.thresholdOverride != nil {
		t := *p.thresholdOverride
		c.thresholdOverride = &t
	}
	return &c
}

func (p *StockPosition) increase(qty decimal.Decimal, now time.Time) {
	p.quantity = p.quantity.Add(qty)
	p.updatedAt = now
}

func (p *StockPosition) decrease(qty decimal.Decimal, now time.Time) error {
	if p.quantity.LessThan(qty) {
		return &domain.InsufficientStockError{
			ItemID:     p.itemID,
			LocationID: p.locationID,
			Requested:  qty,
			Available:  p.quantity,
		}
	}
	p.quantity = p.quantity.Sub(qty)
	p.updatedAt = now
	return nil
}

// PositionKey identifica una posición de stock.
type PositionKey struct {
	ItemID     string
	LocationID string
}

// Less ordena claves por (ítem, ubicación); es el orden de bloqueo.
func (k PositionKey) Less(o PositionKey) bool {
	if k.ItemID != o.ItemID {
		return k.ItemID < o.ItemID
	}
	return k.LocationID < o.LocationID
}
