package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/obra-stock/internal/domain"
	"github.com/jhoicas/obra-stock/internal/domain/entity"
	"github.com/jhoicas/obra-stock/internal/domain/inventory"
	"github.com/jhoicas/obra-stock/internal/domain/repository"
	"github.com/jhoicas/obra-stock/pkg/logger"
)

// Ledger registra y aplica movimientos de inventario de forma transaccional
// (RECEIVE, ISSUE, TRANSFER, ADJUST) con bloqueo de filas y Commit/Rollback.
// Es el único escritor de las posiciones de stock y del costo promedio.
type Ledger struct {
	txRunner  TxRunner
	items     repository.ItemRepository
	locations repository.LocationRepository
	movements repository.MovementRepository
	log       *logger.Logger
	now       func() time.Time
}

// NewLedger construye el ledger.
func NewLedger(
	txRunner TxRunner,
	items repository.ItemRepository,
	locations repository.LocationRepository,
	movements repository.MovementRepository,
	log *logger.Logger,
) *Ledger {
	if log == nil {
		log = logger.Nop()
	}
	return &Ledger{
		txRunner:  txRunner,
		items:     items,
		locations: locations,
		movements: movements,
		log:       log,
		now:       time.Now,
	}
}

// MovementInput entrada para registrar un movimiento.
// RECEIVE: ToLocationID; ISSUE: FromLocationID; TRANSFER: ambas; ADJUST: una sola y Delta con signo.
type MovementInput struct {
	ItemID         string
	Type           string
	Quantity       decimal.Decimal
	Delta          decimal.Decimal
	FromLocationID string
	ToLocationID   string
	UnitCost       *decimal.Decimal
	Reason         string
	CreatedBy      string
	ExpenseRef     string
}

// Record valida y persiste un movimiento sin aplicar.
func (l *Ledger) Record(ctx context.Context, in MovementInput) (*entity.Movement, error) {
	m := &entity.Movement{
		ID:             uuid.New().String(),
		ItemID:         strings.TrimSpace(in.ItemID),
		FromLocationID: strings.TrimSpace(in.FromLocationID),
		ToLocationID:   strings.TrimSpace(in.ToLocationID),
		Type:           entity.MovementType(strings.ToUpper(strings.TrimSpace(in.Type))),
		Quantity:       in.Quantity,
		Delta:          in.Delta,
		UnitCost:       in.UnitCost,
		TotalCost:      decimal.Zero,
		Reason:         in.Reason,
		CreatedBy:      in.CreatedBy,
		CreatedAt:      l.now(),
		ExpenseRef:     in.ExpenseRef,
	}
	// En ADJUST la magnitud se deriva del delta.
	if m.Type == entity.MovementAdjust && in.Quantity.IsZero() {
		m.Quantity = in.Delta.Abs()
	}
	if err := inventory.ValidateMovement(m); err != nil {
		return nil, err
	}
	if m.CreatedBy == "" {
		return nil, domain.NewInvalidMovement("created_by es requerido")
	}

	item, err := l.items.GetByID(ctx, m.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, m.ItemID)
	}
	for _, locID := range []string{m.FromLocationID, m.ToLocationID} {
		if locID == "" {
			continue
		}
		loc, err := l.locations.GetByID(ctx, locID)
		if err != nil {
			return nil, err
		}
		if loc == nil {
			return nil, fmt.Errorf("%w: ubicación %s", domain.ErrNotFound, locID)
		}
	}

	if err := l.movements.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Apply aplica un movimiento registrado en una única transacción:
// bloquea el asiento y las posiciones, valida stock, muta posiciones, actualiza el costo
// promedio en recepciones con costo y marca el asiento como aplicado.
// Aplicar un asiento ya aplicado no vuelve a mutar nada y devuelve el asiento confirmado.
// Si falla, el asiento queda sin aplicar.
func (l *Ledger) Apply(ctx context.Context, movementID string) (*entity.Movement, error) {
	var result *entity.Movement
	err := l.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		stockRepo repository.StockPositionRepository,
		itemRepo repository.ItemRepository,
	) error {
		m, err := movRepo.GetForUpdate(ctx, movementID)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("%w: movimiento %s", domain.ErrNotFound, movementID)
		}
		if m.Applied {
			result = m
			return nil
		}
		if err := inventory.ValidateMovement(m); err != nil {
			return err
		}
		applied, err := l.applyInTx(ctx, movRepo, stockRepo, itemRepo, m)
		if err != nil {
			return err
		}
		result = applied
		return nil
	})
	if err != nil {
		l.logApplyFailure(movementID, err)
		return nil, err
	}
	l.log.Debug().
		Str("movement_id", result.ID).
		Str("type", string(result.Type)).
		Str("item_id", result.ItemID).
		Str("quantity", result.Quantity.String()).
		Int64("seq", result.Seq).
		Msg("movimiento aplicado")
	return result, nil
}

func (l *Ledger) applyInTx(
	ctx context.Context,
	movRepo repository.MovementRepository,
	stockRepo repository.StockPositionRepository,
	itemRepo repository.ItemRepository,
	m *entity.Movement,
) (*entity.Movement, error) {
	receiptWithCost := m.Type == entity.MovementReceive && m.UnitCost != nil

	// Orden de bloqueo: ítem y luego posiciones por (ítem, ubicación). El ítem se bloquea
	// en recepciones con costo y en salidas de ítems FIFO/LIFO: los lotes son estado del ítem.
	item, err := itemRepo.GetByID(ctx, m.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, m.ItemID)
	}
	if receiptWithCost || (item.ValuationMethod.UsesLots() && m.Type != entity.MovementReceive) {
		item, err = itemRepo.GetForUpdate(ctx, m.ItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, m.ItemID)
		}
	}

	totalQty := decimal.Zero
	if receiptWithCost {
		all, err := stockRepo.ListForUpdateByItem(ctx, m.ItemID)
		if err != nil {
			return nil, err
		}
		for _, p := range all {
			totalQty = totalQty.Add(p.Quantity())
		}
	}

	keys := inventory.TouchedKeys(m)
	positions := make(map[inventory.PositionKey]*inventory.StockPosition, len(keys))
	for _, k := range keys {
		p, err := stockRepo.GetForUpdate(ctx, k.ItemID, k.LocationID)
		if err != nil {
			return nil, err
		}
		positions[k] = p
	}

	now := l.now()
	if err := inventory.Post(m, positions, now); err != nil {
		return nil, err
	}

	totalCost, err := l.valuate(ctx, movRepo, item, m)
	if err != nil {
		return nil, err
	}

	for _, k := range keys {
		if err := stockRepo.Save(ctx, positions[k]); err != nil {
			return nil, err
		}
	}

	if receiptWithCost {
		newAvg := inventory.UpdateAverageCost(item.AverageCost, totalQty, *m.UnitCost, m.Quantity)
		if err := itemRepo.UpdateAverageCost(ctx, item.ID, newAvg); err != nil {
			return nil, err
		}
	}

	if err := movRepo.MarkApplied(ctx, m, now, totalCost); err != nil {
		return nil, err
	}
	return m, nil
}

// valuate calcula el costo registrado en el asiento.
// RECEIVE: cantidad * costo informado; ADJUST positivo: al promedio; salidas y traslados: según la política.
func (l *Ledger) valuate(ctx context.Context, movRepo repository.MovementRepository, item *entity.Item, m *entity.Movement) (decimal.Decimal, error) {
	switch {
	case m.Type == entity.MovementReceive:
		if m.UnitCost == nil {
			return decimal.Zero, nil
		}
		return inventory.Round(m.Quantity.Mul(*m.UnitCost)), nil
	case m.Type == entity.MovementAdjust && m.Delta.IsPositive():
		return inventory.Round(m.Quantity.Mul(item.AverageCost)), nil
	}

	var history []*entity.Movement
	if item.ValuationMethod.UsesLots() {
		var err error
		history, err = movRepo.ListAppliedByItem(ctx, item.ID)
		if err != nil {
			return decimal.Zero, err
		}
	}
	res, err := inventory.CostForQuantity(item, history, m.Quantity)
	if err != nil {
		return decimal.Zero, err
	}
	if res.Degraded {
		l.log.Warn().
			Str("movement_id", m.ID).
			Str("item_id", item.ID).
			Str("method", string(res.Method)).
			Str("shortfall", res.Shortfall.String()).
			Msg("valuación degradada: lotes insuficientes, se usa costo promedio")
	}
	return inventory.Round(res.TotalCost), nil
}

func (l *Ledger) logApplyFailure(movementID string, err error) {
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		l.log.Info().
			Str("movement_id", movementID).
			Str("requested", insufficient.Requested.String()).
			Str("available", insufficient.Available.String()).
			Msg("movimiento rechazado por stock insuficiente")
	case errors.Is(err, domain.ErrBusy):
		l.log.Warn().Str("movement_id", movementID).Err(err).Msg("posiciones ocupadas")
	case errors.Is(err, domain.ErrInvalidMovement), errors.Is(err, domain.ErrNotFound):
		l.log.Info().Str("movement_id", movementID).Err(err).Msg("movimiento rechazado")
	default:
		l.log.Error().Str("movement_id", movementID).Err(err).Msg("error aplicando movimiento")
	}
}

// CreateAndApplyMovement registra y aplica un movimiento.
// Si la aplicación falla, devuelve el asiento sin aplicar junto con el error para que
// el llamador lo reintente (Apply) o lo descarte (Discard).
func (l *Ledger) CreateAndApplyMovement(ctx context.Context, in MovementInput) (*entity.Movement, error) {
	m, err := l.Record(ctx, in)
	if err != nil {
		return nil, err
	}
	applied, err := l.Apply(ctx, m.ID)
	if err != nil {
		return m, err
	}
	return applied, nil
}

// Discard elimina un asiento que nunca fue aplicado. Los aplicados son inmutables.
func (l *Ledger) Discard(ctx context.Context, movementID string) error {
	m, err := l.movements.GetByID(ctx, movementID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%w: movimiento %s", domain.ErrNotFound, movementID)
	}
	if m.Applied {
		return fmt.Errorf("%w: el movimiento ya fue aplicado", domain.ErrConflict)
	}
	deleted, err := l.movements.DeleteUnapplied(ctx, movementID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: el movimiento cambió de estado", domain.ErrConflict)
	}
	return nil
}

// GetMovement obtiene un asiento del ledger.
func (l *Ledger) GetMovement(ctx context.Context, movementID string) (*entity.Movement, error) {
	m, err := l.movements.GetByID(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: movimiento %s", domain.ErrNotFound, movementID)
	}
	return m, nil
}

// ListMovements lista asientos del ledger (auditoría), más recientes primero.
func (l *Ledger) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]*entity.Movement, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return l.movements.List(ctx, filter)
}
