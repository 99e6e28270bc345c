package inventory

import (
	"context"

	"github.com/jhoicas/obra-stock/internal/application/dto"
	"github.com/jhoicas/obra-stock/internal/domain"
	"github.com/jhoicas/obra-stock/internal/domain/entity"
)

// InputFromRequest adapta el request HTTP a MovementInput; userID queda como created_by.
func InputFromRequest(userID string, in dto.RegisterMovementRequest) MovementInput {
	return MovementInput{
		ItemID:         in.ItemID,
		Type:           in.Type,
		Quantity:       in.Quantity,
		Delta:          in.Delta,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		UnitCost:       in.UnitCost,
		Reason:         in.Reason,
		CreatedBy:      userID,
		ExpenseRef:     in.ExpenseRef,
	}
}

// RegisterMovementFromRequest registra y aplica un movimiento desde un request HTTP.
// La aplicación se reintenta mientras devuelva ErrBusy. Si falla por otra causa el asiento
// se descarta; si se agotan los reintentos se devuelve el asiento pendiente junto con el error.
func (l *Ledger) RegisterMovementFromRequest(ctx context.Context, userID string, in dto.RegisterMovementRequest, policy RetryPolicy) (*entity.Movement, error) {
	m, err := l.Record(ctx, InputFromRequest(userID, in))
	if err != nil {
		return nil, err
	}
	applied, err := l.ApplyWithRetry(ctx, m.ID, policy)
	if err == nil {
		return applied, nil
	}
	if domain.IsRetryable(err) {
		return m, err
	}
	if derr := l.Discard(context.WithoutCancel(ctx), m.ID); derr != nil {
		l.log.Warn().Str("movement_id", m.ID).Err(derr).Msg("no se pudo descartar el asiento rechazado")
	}
	return nil, err
}

// ApplyWithRetry aplica un asiento reintentando ante ErrBusy.
func (l *Ledger) ApplyWithRetry(ctx context.Context, movementID string, policy RetryPolicy) (*entity.Movement, error) {
	var applied *entity.Movement
	attempt := 0
	err := RetryBusy(ctx, policy, func() error {
		attempt++
		if attempt > 1 {
			l.log.Warn().Str("movement_id", movementID).Int("attempt", attempt).Msg("reintentando aplicación")
		}
		var err error
		applied, err = l.Apply(ctx, movementID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}
