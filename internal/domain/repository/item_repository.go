package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/obra-stock/internal/domain/entity"
)

// ItemRepository define el puerto de persistencia para Item (DIP).
// GetByID devuelve (nil, nil) si no existe.
type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) error
	GetByID(ctx context.Context, id string) (*entity.Item, error)
	// GetForUpdate bloquea la fila del ítem (SELECT FOR UPDATE) dentro de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Item, error)
	// Update actualiza solo metadatos; nunca el costo promedio.
	Update(ctx context.Context, item *entity.Item) error
	UpdateAverageCost(ctx context.Context, id string, cost decimal.Decimal) error
	List(ctx context.Context, limit, offset int) ([]*entity.Item, error)
}
