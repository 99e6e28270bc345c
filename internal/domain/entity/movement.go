package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipo de movimiento del ledger.
type MovementType string

const (
	MovementReceive  MovementType = "RECEIVE"  // entrada a una ubicación
	MovementIssue    MovementType = "ISSUE"    // consumo/salida desde una ubicación
	MovementTransfer MovementType = "TRANSFER" // traslado entre ubicaciones
	MovementAdjust   MovementType = "ADJUST"   // corrección por conteo físico
)

// Valid indica si el tipo es uno de los conocidos.
func (t MovementType) Valid() bool {
	switch t {
	case MovementReceive, MovementIssue, MovementTransfer, MovementAdjust:
		return true
	}
	return false
}

// Movement es un asiento append-only del ledger de inventario.
// Se crea sin aplicar; la única mutación permitida es Applied false -> true.
type Movement struct {
	ID             string
	ItemID         string
	FromLocationID string // vacío si no aplica
	ToLocationID   string // vacío si no aplica
	Type           MovementType
	Quantity       decimal.Decimal  // magnitud, nunca negativa
	Delta          decimal.Decimal  // solo ADJUST: cambio con signo
	UnitCost       *decimal.Decimal // costo unitario informado (RECEIVE)
	TotalCost      decimal.Decimal  // valuación registrada al aplicar
	Reason         string
	CreatedBy      string
	CreatedAt      time.Time
	Applied        bool
	AppliedAt      *time.Time
	Seq            int64  // orden de aplicación; 0 mientras no se aplique
	ExpenseRef     string // referencia opcional a gasto/recibo externo
}

// LocationID devuelve la ubicación única de un ADJUST.
func (m *Movement) LocationID() string {
	if m.ToLocationID != "" {
		return m.ToLocationID
	}
	return m.FromLocationID
}

// IsOutbound indica si el movimiento saca unidades del inventario (consume lotes).
func (m *Movement) IsOutbound() bool {
	switch m.Type {
	case MovementIssue:
		return true
	case MovementAdjust:
		return m.Delta.IsNegative()
	}
	return false
}
