package inventory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/obra-stock/internal/domain"
	"github.com/jhoicas/obra-stock/internal/domain/entity"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

// historial construye movimientos aplicados con Seq consecutivo.
func historial(movs ...*entity.Movement) []*entity.Movement {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, m := range movs {
		m.Applied = true
		m.Seq = int64(i + 1)
		m.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		at := m.CreatedAt
		m.AppliedAt = &at
	}
	return movs
}

func recepcion(id, qty, cost string) *entity.Movement {
	return &entity.Movement{ID: id, ItemID: "it-1", Type: entity.MovementReceive, ToLocationID: "bodega", Quantity: d(qty), UnitCost: dp(cost)}
}

func consumo(id, qty string) *entity.Movement {
	return &entity.Movement{ID: id, ItemID: "it-1", Type: entity.MovementIssue, FromLocationID: "bodega", Quantity: d(qty)}
}

func TestCostCalculator_PromedioPonderado(t *testing.T) {
	// 10 @ 20 + 5 @ 30 = 350 / 15
	got := CostCalculator(d("10"), d("20"), d("5"), d("30"))
	assert.Equal(t, "23.33", got.StringFixed(2))

	assert.True(t, CostCalculator(decimal.Zero, decimal.Zero, decimal.Zero, d("9")).IsZero(),
		"sin cantidad total el costo debe ser cero")
}

func TestUpdateAverageCost_StockNegativoSeTrataComoCero(t *testing.T) {
	got := UpdateAverageCost(d("100"), d("-3"), d("12"), d("4"))
	assert.True(t, d("12").Equal(got), "got %s", got)
}

func TestUpdateAverageCost_RedondeaALaEscalaGuardada(t *testing.T) {
	got := UpdateAverageCost(d("20"), d("10"), d("30"), d("5"))
	assert.True(t, d("23.333333").Equal(got), "got %s", got)
	assert.False(t, ExceedsScale(got))
	assert.True(t, ExceedsScale(d("0.1234567")))
}

func TestPolicyFor_CubreTodosLosMetodos(t *testing.T) {
	for _, m := range entity.ValuationMethods() {
		p, err := policyFor(m)
		require.NoError(t, err, "método %s sin política", m)
		assert.Equal(t, m, p.method())
	}
	_, err := policyFor("PEPS")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFIFOCost_ConsumeLotesAntiguosPrimero(t *testing.T) {
	item := &entity.Item{ID: "it-1", ValuationMethod: entity.ValuationFIFO, AverageCost: d("6")}
	lots := BuildLots(entity.ValuationFIFO, historial(recepcion("r1", "10", "5"), recepcion("r2", "10", "7")))
	require.Len(t, lots, 2)

	res := FIFOCost(item, lots, d("15"))
	assert.True(t, d("85").Equal(res.TotalCost), "10*5 + 5*7 = 85, got %s", res.TotalCost)
	assert.False(t, res.Degraded)
	require.Len(t, res.Lots, 2)
	assert.Equal(t, "r2", res.Lots[1].MovementID)
	assert.True(t, d("5").Equal(res.Lots[1].Remaining), "deben quedar 5 en el lote más reciente")
}

func TestLIFOCost_ConsumeLotesRecientesPrimero(t *testing.T) {
	item := &entity.Item{ID: "it-1", ValuationMethod: entity.ValuationLIFO, AverageCost: d("6")}
	lots := BuildLots(entity.ValuationLIFO, historial(recepcion("r1", "10", "5"), recepcion("r2", "10", "7")))

	res := LIFOCost(item, lots, d("15"))
	assert.True(t, d("95").Equal(res.TotalCost), "10*7 + 5*5 = 95, got %s", res.TotalCost)
	assert.Equal(t, "r2", res.Lots[0].MovementID)
}

func TestBuildLots_ReproduceSalidas(t *testing.T) {
	h := historial(
		recepcion("r1", "10", "5"),
		recepcion("r2", "10", "7"),
		consumo("c1", "12"),
		&entity.Movement{ID: "t1", ItemID: "it-1", Type: entity.MovementTransfer, FromLocationID: "bodega", ToLocationID: "obra", Quantity: d("3")},
	)

	fifo := BuildLots(entity.ValuationFIFO, h)
	require.Len(t, fifo, 1, "el lote r1 queda agotado")
	assert.Equal(t, "r2", fifo[0].MovementID)
	assert.True(t, d("8").Equal(fifo[0].Remaining), "los traslados no consumen lotes")

	lifo := BuildLots(entity.ValuationLIFO, h)
	require.Len(t, lifo, 1)
	assert.Equal(t, "r1", lifo[0].MovementID)
	assert.True(t, d("8").Equal(lifo[0].Remaining))
}

func TestBuildLots_IgnoraNoAplicadosYRecepcionesSinCosto(t *testing.T) {
	sinCosto := &entity.Movement{ID: "r0", ItemID: "it-1", Type: entity.MovementReceive, ToLocationID: "bodega", Quantity: d("4")}
	h := historial(sinCosto, recepcion("r1", "2", "3"))
	pendiente := recepcion("r2", "9", "9")

	lots := BuildLots(entity.ValuationFIFO, append(h, pendiente))
	require.Len(t, lots, 1)
	assert.Equal(t, "r1", lots[0].MovementID)
}

func TestCostForQuantity_FaltanteSeCosteaAlPromedio(t *testing.T) {
	item := &entity.Item{ID: "it-1", ValuationMethod: entity.ValuationFIFO, AverageCost: d("4")}
	res, err := CostForQuantity(item, historial(recepcion("r1", "2", "10")), d("5"))
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.True(t, d("3").Equal(res.Shortfall))
	assert.True(t, d("32").Equal(res.TotalCost), "2*10 + 3*4 = 32, got %s", res.TotalCost)
}

func TestCostForQuantity_Promedio(t *testing.T) {
	item := &entity.Item{ID: "it-1", ValuationMethod: entity.ValuationAVG, AverageCost: d("23.5")}
	res, err := CostForQuantity(item, nil, d("2"))
	require.NoError(t, err)
	assert.True(t, d("47").Equal(res.TotalCost))
	assert.False(t, res.Degraded)
}

func TestCostForQuantity_SinLotes(t *testing.T) {
	item := &entity.Item{ID: "it-1", ValuationMethod: entity.ValuationLIFO, AverageCost: decimal.Zero}
	res, err := CostForQuantity(item, nil, d("3"))
	require.NoError(t, err)
	assert.True(t, res.TotalCost.IsZero())
	assert.True(t, res.Degraded, "sin lotes todo es faltante")
}

func TestCostForQuantity_CasosBorde(t *testing.T) {
	item := &entity.Item{ID: "it-1", ValuationMethod: entity.ValuationFIFO}

	res, err := CostForQuantity(item, nil, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, res.TotalCost.IsZero(), "cantidad cero es una consulta válida")

	_, err = CostForQuantity(item, nil, d("-1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = CostForQuantity(nil, nil, d("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
