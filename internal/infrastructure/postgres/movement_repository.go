package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/obra-stock/internal/domain"
	"github.com/jhoicas/obra-stock/internal/domain/entity"
	"github.com/jhoicas/obra-stock/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación del ledger sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, item_id, from_location_id, to_location_id, type, quantity, delta, unit_cost,
	total_cost, reason, created_by, created_at, applied, applied_at, seq, expense_ref`

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var (
		m          entity.Movement
		movType    string
		from, to   *string
		reason     *string
		expenseRef *string
		seq        *int64
	)
	if err := row.Scan(&m.ID, &m.ItemID, &from, &to, &movType, &m.Quantity, &m.Delta, &m.UnitCost,
		&m.TotalCost, &reason, &m.CreatedBy, &m.CreatedAt, &m.Applied, &m.AppliedAt, &seq, &expenseRef); err != nil {
		return nil, err
	}
	m.Type = entity.MovementType(movType)
	m.FromLocationID = fromNullString(from)
	m.ToLocationID = fromNullString(to)
	m.Reason = fromNullString(reason)
	m.ExpenseRef = fromNullString(expenseRef)
	if seq != nil {
		m.Seq = *seq
	}
	return &m, nil
}

func collectMovements(rows pgx.Rows) ([]*entity.Movement, error) {
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Create persiste un asiento sin aplicar.
func (r *MovementRepo) Create(ctx context.Context, movement *entity.Movement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	query := `
		INSERT INTO movements (id, item_id, from_location_id, to_location_id, type, quantity, delta, unit_cost,
			total_cost, reason, created_by, created_at, applied, expense_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, false, $13)`
	_, err := r.q.Exec(ctx, query,
		movement.ID, movement.ItemID, nullString(movement.FromLocationID), nullString(movement.ToLocationID),
		string(movement.Type), movement.Quantity, movement.Delta, movement.UnitCost,
		movement.TotalCost, nullString(movement.Reason), movement.CreatedBy, movement.CreatedAt,
		nullString(movement.ExpenseRef),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create movement: %w", err)
	}
	return nil
}

// GetByID obtiene un asiento por ID.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM movements WHERE id = $1`, id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// GetForUpdate obtiene el asiento y bloquea la fila.
func (r *MovementRepo) GetForUpdate(ctx context.Context, id string) (*entity.Movement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM movements WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, wrapErr("get movement for update", err)
	}
	return m, nil
}

// MarkApplied marca el asiento como aplicado y le asigna el siguiente número de secuencia.
func (r *MovementRepo) MarkApplied(ctx context.Context, movement *entity.Movement, appliedAt time.Time, totalCost decimal.Decimal) error {
	query := `
		UPDATE movements
		SET applied = true, applied_at = $2, total_cost = $3, seq = nextval('movement_apply_seq')
		WHERE id = $1 AND applied = false
		RETURNING seq`
	var seq int64
	err := r.q.QueryRow(ctx, query, movement.ID, appliedAt, totalCost).Scan(&seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: movimiento %s ya aplicado o inexistente", domain.ErrConflict, movement.ID)
		}
		return wrapErr("mark movement applied", err)
	}
	at := appliedAt
	movement.Applied = true
	movement.AppliedAt = &at
	movement.TotalCost = totalCost
	movement.Seq = seq
	return nil
}

// DeleteUnapplied elimina el asiento solo si nunca fue aplicado.
func (r *MovementRepo) DeleteUnapplied(ctx context.Context, id string) (bool, error) {
	cmd, err := r.q.Exec(ctx, `DELETE FROM movements WHERE id = $1 AND applied = false`, id)
	if err != nil {
		return false, wrapErr("delete movement", err)
	}
	return cmd.RowsAffected() > 0, nil
}

// List lista asientos con filtros opcionales, más recientes primero.
func (r *MovementRepo) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE true`
	var args []any
	pos := 1
	if filter.ItemID != "" {
		query += fmt.Sprintf(" AND item_id = $%d", pos)
		args = append(args, filter.ItemID)
		pos++
	}
	if filter.LocationID != "" {
		query += fmt.Sprintf(" AND (from_location_id = $%d OR to_location_id = $%d)", pos, pos)
		args = append(args, filter.LocationID)
		pos++
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *filter.From)
		pos++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *filter.To)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return collectMovements(rows)
}

// ListAppliedByItem historial aplicado de un ítem en orden de aplicación (seq).
func (r *MovementRepo) ListAppliedByItem(ctx context.Context, itemID string) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE item_id = $1 AND applied ORDER BY seq`,
		itemID,
	)
	if err != nil {
		return nil, wrapErr("list applied movements", err)
	}
	return collectMovements(rows)
}
