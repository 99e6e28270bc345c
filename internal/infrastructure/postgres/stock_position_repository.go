package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/obra-stock/internal/domain/inventory"
	"github.com/jhoicas/obra-stock/internal/domain/repository"
)

var _ repository.StockPositionRepository = (*StockPositionRepo)(nil)

// StockPositionRepo implementación de StockPositionRepository sobre PostgreSQL (usable con pool o tx).
type StockPositionRepo struct {
	q Querier
}

// NewStockPositionRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockPositionRepository(q Querier) *StockPositionRepo {
	return &StockPositionRepo{q: q}
}

const positionColumns = `item_id, location_id, quantity, threshold_override, updated_at`

func scanPosition(row pgx.Row) (*inventory.StockPosition, error) {
	var (
		itemID, locationID string
		qty                decimal.Decimal
		override           *decimal.Decimal
		updatedAt          time.Time
	)
	if err := row.Scan(&itemID, &locationID, &qty, &override, &updatedAt); err != nil {
		return nil, err
	}
	return inventory.RestoreStockPosition(itemID, locationID, qty, override, updatedAt), nil
}

func collectPositions(rows pgx.Rows) ([]*inventory.StockPosition, error) {
	defer rows.Close()
	var list []*inventory.StockPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, wrapErr("scan stock position", err)
		}
		list = append(list, p)
	}
	return list, wrapErr("read stock positions", rows.Err())
}

// Get obtiene la posición de un ítem en una ubicación; nil si no existe.
func (r *StockPositionRepo) Get(ctx context.Context, itemID, locationID string) (*inventory.StockPosition, error) {
	p, err := scanPosition(r.q.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM stock_positions WHERE item_id = $1 AND location_id = $2`,
		itemID, locationID,
	))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock position: %w", err)
	}
	return p, nil
}

// GetForUpdate asegura que la fila exista (en cero) y la bloquea (SELECT FOR UPDATE).
func (r *StockPositionRepo) GetForUpdate(ctx context.Context, itemID, locationID string) (*inventory.StockPosition, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_positions (item_id, location_id, quantity, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (item_id, location_id) DO NOTHING`,
		itemID, locationID,
	)
	if err != nil {
		return nil, wrapErr("ensure stock position", err)
	}
	p, err := scanPosition(r.q.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM stock_positions WHERE item_id = $1 AND location_id = $2 FOR UPDATE`,
		itemID, locationID,
	))
	if err != nil {
		return nil, wrapErr("get stock position for update", err)
	}
	return p, nil
}

// ListForUpdateByItem bloquea todas las posiciones del ítem en orden de ubicación.
func (r *StockPositionRepo) ListForUpdateByItem(ctx context.Context, itemID string) ([]*inventory.StockPosition, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+positionColumns+` FROM stock_positions WHERE item_id = $1 ORDER BY location_id FOR UPDATE`,
		itemID,
	)
	if err != nil {
		return nil, wrapErr("lock stock positions", err)
	}
	return collectPositions(rows)
}

// Save escribe la cantidad de la posición. El umbral se gestiona aparte.
func (r *StockPositionRepo) Save(ctx context.Context, position *inventory.StockPosition) error {
	query := `
		INSERT INTO stock_positions (item_id, location_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (item_id, location_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		position.ItemID(), position.LocationID(), position.Quantity(), position.UpdatedAt(),
	)
	if err != nil {
		return wrapErr("save stock position", err)
	}
	return nil
}

// ListByItem posiciones de un ítem ordenadas por ubicación.
func (r *StockPositionRepo) ListByItem(ctx context.Context, itemID string) ([]*inventory.StockPosition, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+positionColumns+` FROM stock_positions WHERE item_id = $1 ORDER BY location_id`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("list stock positions by item: %w", err)
	}
	return collectPositions(rows)
}

func (r *StockPositionRepo) ListAll(ctx context.Context) ([]*inventory.StockPosition, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+positionColumns+` FROM stock_positions ORDER BY item_id, location_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list stock positions: %w", err)
	}
	return collectPositions(rows)
}

// SetThresholdOverride fija o quita el umbral de la posición, creándola en cero si no existe.
func (r *StockPositionRepo) SetThresholdOverride(ctx context.Context, itemID, locationID string, threshold *decimal.Decimal) error {
	query := `
		INSERT INTO stock_positions (item_id, location_id, quantity, threshold_override, updated_at)
		VALUES ($1, $2, 0, $3, now())
		ON CONFLICT (item_id, location_id)
		DO UPDATE SET threshold_override = EXCLUDED.threshold_override, updated_at = now()`
	if _, err := r.q.Exec(ctx, query, itemID, locationID, threshold); err != nil {
		return wrapErr("set threshold override", err)
	}
	return nil
}
