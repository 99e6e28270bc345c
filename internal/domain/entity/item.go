package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValuationMethod política de costeo del ítem.
type ValuationMethod string

const (
	ValuationAVG  ValuationMethod = "AVG"  // promedio ponderado
	ValuationFIFO ValuationMethod = "FIFO" // primero en entrar, primero en salir
	ValuationLIFO ValuationMethod = "LIFO" // último en entrar, primero en salir
)

// ValuationMethods devuelve todas las políticas soportadas.
func ValuationMethods() []ValuationMethod {
	return []ValuationMethod{ValuationAVG, ValuationFIFO, ValuationLIFO}
}

// ParseValuationMethod normaliza y valida una política; vacío equivale a AVG.
func ParseValuationMethod(s string) (ValuationMethod, error) {
	switch m := ValuationMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case "":
		return ValuationAVG, nil
	case ValuationAVG, ValuationFIFO, ValuationLIFO:
		return m, nil
	default:
		return "", fmt.Errorf("método de valuación desconocido: %q", s)
	}
}

// UsesLots indica si la política consume lotes de recepción.
func (m ValuationMethod) UsesLots() bool {
	return m == ValuationFIFO || m == ValuationLIFO
}

// Item representa un artículo inventariable (herramienta, pintura, consumible).
// AverageCost solo cambia en una recepción con costo, dentro de la transacción del ledger.
type Item struct {
	ID                string
	Name              string
	Category          string
	Unit              string // unidad de medida: und, gal, m, kg...
	ValuationMethod   ValuationMethod
	AverageCost       decimal.Decimal  // costo promedio ponderado (inicia en 0)
	LowStockThreshold *decimal.Decimal // nil = sin alerta de reorden
	IsEquipment       bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
