package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/obra-stock/internal/domain"
	"github.com/jhoicas/obra-stock/internal/domain/entity"
)

// ValidateMovement verifica ubicaciones, cantidades y costo según el tipo de movimiento.
// Se ejecuta antes de cualquier mutación.
func ValidateMovement(m *entity.Movement) error {
	if m == nil {
		return domain.NewInvalidMovement("movimiento vacío")
	}
	if m.ItemID == "" {
		return domain.NewInvalidMovement("item_id es requerido")
	}
	if !m.Type.Valid() {
		return domain.NewInvalidMovement("tipo de movimiento desconocido %q", m.Type)
	}
	if m.UnitCost != nil {
		if m.Type != entity.MovementReceive {
			return domain.NewInvalidMovement("unit_cost solo se admite en RECEIVE")
		}
		if m.UnitCost.IsNegative() {
			return domain.NewInvalidMovement("unit_cost no puede ser negativo")
		}
	}
	if ExceedsScale(m.Quantity) || ExceedsScale(m.Delta) || (m.UnitCost != nil && ExceedsScale(*m.UnitCost)) {
		return domain.NewInvalidMovement("quantity, delta y unit_cost admiten a lo sumo %d decimales", Scale)
	}
	if m.Type != entity.MovementAdjust && !m.Delta.IsZero() {
		return domain.NewInvalidMovement("delta solo se admite en ADJUST")
	}

	switch m.Type {
	case entity.MovementReceive:
		if m.ToLocationID == "" || m.FromLocationID != "" {
			return domain.NewInvalidMovement("RECEIVE requiere solo ubicación destino")
		}
	case entity.MovementIssue:
		if m.FromLocationID == "" || m.ToLocationID != "" {
			return domain.NewInvalidMovement("ISSUE requiere solo ubicación origen")
		}
	case entity.MovementTransfer:
		if m.FromLocationID == "" || m.ToLocationID == "" {
			return domain.NewInvalidMovement("TRANSFER requiere ubicación origen y destino")
		}
		if m.FromLocationID == m.ToLocationID {
			return domain.NewInvalidMovement("TRANSFER con origen y destino iguales")
		}
	case entity.MovementAdjust:
		if (m.FromLocationID == "") == (m.ToLocationID == "") {
			return domain.NewInvalidMovement("ADJUST requiere exactamente una ubicación")
		}
		if m.Delta.IsZero() {
			return domain.NewInvalidMovement("ADJUST requiere un delta distinto de cero")
		}
		if !m.Quantity.Equal(m.Delta.Abs()) {
			return domain.NewInvalidMovement("ADJUST: quantity debe ser |delta|")
		}
		return nil
	}

	if !m.Quantity.GreaterThan(decimal.Zero) {
		return domain.NewInvalidMovement("quantity debe ser mayor que cero")
	}
	return nil
}

// TouchedKeys devuelve las posiciones que el movimiento leerá y escribirá, en orden de bloqueo.
func TouchedKeys(m *entity.Movement) []PositionKey {
	var keys []PositionKey
	switch m.Type {
	case entity.MovementReceive:
		keys = append(keys, PositionKey{m.ItemID, m.ToLocationID})
	case entity.MovementIssue:
		keys = append(keys, PositionKey{m.ItemID, m.FromLocationID})
	case entity.MovementTransfer:
		keys = append(keys, PositionKey{m.ItemID, m.FromLocationID}, PositionKey{m.ItemID, m.ToLocationID})
	case entity.MovementAdjust:
		keys = append(keys, PositionKey{m.ItemID, m.LocationID()})
	}
	if len(keys) == 2 && keys[1].Less(keys[0]) {
		keys[0], keys[1] = keys[1], keys[0]
	}
	return keys
}

// Post aplica el efecto de un movimiento validado sobre las posiciones bloqueadas.
// positions debe contener todas las claves de TouchedKeys. Si devuelve error no hubo mutación.
func Post(m *entity.Movement, positions map[PositionKey]*StockPosition, now time.Time) error {
	get := func(locationID string) (*StockPosition, error) {
		p, ok := positions[PositionKey{m.ItemID, locationID}]
		if !ok || p == nil {
			return nil, fmt.Errorf("posición %s/%s no bloqueada", m.ItemID, locationID)
		}
		return p, nil
	}

	switch m.Type {
	case entity.MovementReceive:
		to, err := get(m.ToLocationID)
		if err != nil {
			return err
		}
		to.increase(m.Quantity, now)
		return nil

	case entity.MovementIssue:
		from, err := get(m.FromLocationID)
		if err != nil {
			return err
		}
		return from.decrease(m.Quantity, now)

	case entity.MovementTransfer:
		from, err := get(m.FromLocationID)
		if err != nil {
			return err
		}
		to, err := get(m.ToLocationID)
		if err != nil {
			return err
		}
		if err := from.decrease(m.Quantity, now); err != nil {
			return err
		}
		to.increase(m.Quantity, now)
		return nil

	case entity.MovementAdjust:
		pos, err := get(m.LocationID())
		if err != nil {
			return err
		}
		if m.Delta.IsPositive() {
			pos.increase(m.Delta, now)
			return nil
		}
		return pos.decrease(m.Delta.Abs(), now)
	}
	return domain.NewInvalidMovement("tipo de movimiento desconocido %q", m.Type)
}
