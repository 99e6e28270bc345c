package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/obra-stock/internal/domain/entity"
)

// MovementFilter filtros de listado del ledger.
type MovementFilter struct {
	ItemID     string
	LocationID string // coincide con origen o destino
	From, To   *time.Time
	Limit      int
	Offset     int
}

// MovementRepository define el puerto de persistencia del ledger append-only.
// No existe Update: la única transición es MarkApplied.
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	// GetForUpdate bloquea el asiento para serializar aplicaciones concurrentes del mismo movimiento.
	GetForUpdate(ctx context.Context, id string) (*entity.Movement, error)
	// MarkApplied pasa applied de false a true, asigna Seq y registra la valuación.
	MarkApplied(ctx context.Context, movement *entity.Movement, appliedAt time.Time, totalCost decimal.Decimal) error
	// DeleteUnapplied descarta un asiento no aplicado; false si no existía o ya estaba aplicado.
	DeleteUnapplied(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter MovementFilter) ([]*entity.Movement, error)
	// ListAppliedByItem devuelve el historial aplicado del ítem en orden de aplicación.
	ListAppliedByItem(ctx context.Context, itemID string) ([]*entity.Movement, error)
}
