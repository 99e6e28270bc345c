package inventory

import (
	"context"

	"github.com/jhoicas/obra-stock/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad del ledger: o se confirman todos los pasos de apply o ninguno.
// Si un bloqueo no se obtiene dentro del tiempo configurado, Run devuelve domain.ErrBusy.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		stockRepo repository.StockPositionRepository,
		itemRepo repository.ItemRepository,
	) error) error
}
