package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/obra-stock/internal/domain/inventory"
)

// StockPositionRepository define el puerto para consultar/actualizar stock por ítem+ubicación.
// Las escrituras de cantidad solo ocurren desde el ledger, dentro de una transacción.
type StockPositionRepository interface {
	// Get devuelve (nil, nil) si la posición no existe.
	Get(ctx context.Context, itemID, locationID string) (*inventory.StockPosition, error)
	// GetForUpdate bloquea la fila; si no existe la crea en cero dentro de la transacción.
	GetForUpdate(ctx context.Context, itemID, locationID string) (*inventory.StockPosition, error)
	// ListForUpdateByItem bloquea todas las posiciones del ítem en orden de ubicación.
	ListForUpdateByItem(ctx context.Context, itemID string) ([]*inventory.StockPosition, error)
	Save(ctx context.Context, position *inventory.StockPosition) error
	ListByItem(ctx context.Context, itemID string) ([]*inventory.StockPosition, error)
	ListAll(ctx context.Context) ([]*inventory.StockPosition, error)
	// SetThresholdOverride fija (o quita con nil) el umbral de reorden de la posición.
	SetThresholdOverride(ctx context.Context, itemID, locationID string, threshold *decimal.Decimal) error
}
