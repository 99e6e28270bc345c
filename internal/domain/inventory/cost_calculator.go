package inventory

import "github.com/shopspring/decimal"

// Scale decimales con que se guardan cantidades y costos (NUMERIC(20, 6)).
const Scale int32 = 6

// Round lleva un valor calculado a Scale decimales antes de persistirlo.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(Scale)
}

// ExceedsScale indica si un valor de entrada trae más decimales de los que se guardan.
func ExceedsScale(v decimal.Decimal) bool {
	return !v.Equal(Round(v))
}

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
func CostCalculator(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := stockActual.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum)
}

// UpdateAverageCost recalcula el promedio del ítem con la cantidad total previa (todas las ubicaciones).
// Un stock previo negativo no debería existir; se trata como cero para no contaminar el promedio.
func UpdateAverageCost(oldAvg, oldTotalQty, unitCost, qty decimal.Decimal) decimal.Decimal {
	if oldTotalQty.IsNegative() {
		oldTotalQty = decimal.Zero
	}
	return Round(CostCalculator(oldTotalQty, oldAvg, qty, unitCost))
}
