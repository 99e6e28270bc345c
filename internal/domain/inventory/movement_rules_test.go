package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/obra-stock/internal/domain"
	"github.com/jhoicas/obra-stock/internal/domain/entity"
)

func TestValidateMovement(t *testing.T) {
	cases := []struct {
		name string
		m    entity.Movement
		ok   bool
	}{
		{"recepción válida", entity.Movement{ItemID: "i", Type: entity.MovementReceive, ToLocationID: "a", Quantity: d("1"), UnitCost: dp("3")}, true},
		{"recepción sin destino", entity.Movement{ItemID: "i", Type: entity.MovementReceive, Quantity: d("1")}, false},
		{"recepción con origen", entity.Movement{ItemID: "i", Type: entity.MovementReceive, FromLocationID: "b", ToLocationID: "a", Quantity: d("1")}, false},
		{"costo negativo", entity.Movement{ItemID: "i", Type: entity.MovementReceive, ToLocationID: "a", Quantity: d("1"), UnitCost: dp("-1")}, false},
		{"consumo con costo", entity.Movement{ItemID: "i", Type: entity.MovementIssue, FromLocationID: "a", Quantity: d("1"), UnitCost: dp("1")}, false},
		{"consumo cantidad cero", entity.Movement{ItemID: "i", Type: entity.MovementIssue, FromLocationID: "a", Quantity: d("0")}, false},
		{"consumo cantidad negativa", entity.Movement{ItemID: "i", Type: entity.MovementIssue, FromLocationID: "a", Quantity: d("-2")}, false},
		{"traslado a sí mismo", entity.Movement{ItemID: "i", Type: entity.MovementTransfer, FromLocationID: "a", ToLocationID: "a", Quantity: d("1")}, false},
		{"traslado válido", entity.Movement{ItemID: "i", Type: entity.MovementTransfer, FromLocationID: "a", ToLocationID: "b", Quantity: d("1")}, true},
		{"ajuste negativo", entity.Movement{ItemID: "i", Type: entity.MovementAdjust, FromLocationID: "a", Delta: d("-1"), Quantity: d("1")}, true},
		{"ajuste en cero", entity.Movement{ItemID: "i", Type: entity.MovementAdjust, ToLocationID: "a"}, false},
		{"ajuste con dos ubicaciones", entity.Movement{ItemID: "i", Type: entity.MovementAdjust, FromLocationID: "a", ToLocationID: "b", Delta: d("1"), Quantity: d("1")}, false},
		{"ajuste cantidad distinta", entity.Movement{ItemID: "i", Type: entity.MovementAdjust, ToLocationID: "a", Delta: d("2"), Quantity: d("1")}, false},
		{"delta fuera de ajuste", entity.Movement{ItemID: "i", Type: entity.MovementReceive, ToLocationID: "a", Quantity: d("1"), Delta: d("1")}, false},
		{"tipo desconocido", entity.Movement{ItemID: "i", Type: "LOAN", ToLocationID: "a", Quantity: d("1")}, false},
		{"sin ítem", entity.Movement{Type: entity.MovementReceive, ToLocationID: "a", Quantity: d("1")}, false},
		{"cantidad con siete decimales", entity.Movement{ItemID: "i", Type: entity.MovementIssue, FromLocationID: "a", Quantity: d("0.0000001")}, false},
		{"costo con siete decimales", entity.Movement{ItemID: "i", Type: entity.MovementReceive, ToLocationID: "a", Quantity: d("1"), UnitCost: dp("1.1234567")}, false},
		{"ceros de sobra", entity.Movement{ItemID: "i", Type: entity.MovementReceive, ToLocationID: "a", Quantity: d("1.500000000")}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMovement(&tc.m)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvalidMovement)
		})
	}
}

func TestTouchedKeys_OrdenDeBloqueo(t *testing.T) {
	m := &entity.Movement{ItemID: "i", Type: entity.MovementTransfer, FromLocationID: "z", ToLocationID: "a"}
	keys := TouchedKeys(m)
	require.Len(t, keys, 2)
	assert.Equal(t, "a", keys[0].LocationID, "las claves se devuelven ordenadas")
	assert.Equal(t, "z", keys[1].LocationID)
}

func posiciones(ps ...*StockPosition) map[PositionKey]*StockPosition {
	out := make(map[PositionKey]*StockPosition, len(ps))
	for _, p := range ps {
		out[p.Key()] = p
	}
	return out
}

func TestPost_ConsumoExacto(t *testing.T) {
	now := time.Now()
	pos := RestoreStockPosition("i", "a", d("10"), nil, now)
	m := &entity.Movement{ItemID: "i", Type: entity.MovementIssue, FromLocationID: "a", Quantity: d("10.01")}

	err := Post(m, posiciones(pos), now)
	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.True(t, d("10").Equal(ise.Available))
	assert.True(t, d("10").Equal(pos.Quantity()), "un consumo rechazado no muta la posición")

	m.Quantity = d("10")
	require.NoError(t, Post(m, posiciones(pos), now))
	assert.True(t, pos.Quantity().IsZero())
}

func TestPost_TrasladoConservaCantidad(t *testing.T) {
	now := time.Now()
	from := RestoreStockPosition("i", "a", d("8"), nil, now)
	to := NewStockPosition("i", "b")
	m := &entity.Movement{ItemID: "i", Type: entity.MovementTransfer, FromLocationID: "a", ToLocationID: "b", Quantity: d("3")}

	require.NoError(t, Post(m, posiciones(from, to), now))
	assert.True(t, d("5").Equal(from.Quantity()))
	assert.True(t, d("3").Equal(to.Quantity()))

	m.Quantity = d("6")
	require.ErrorIs(t, Post(m, posiciones(from, to), now), domain.ErrInsufficientStock)
	assert.True(t, d("5").Equal(from.Quantity()), "traslado fallido: ni origen")
	assert.True(t, d("3").Equal(to.Quantity()), "ni destino cambian")
}

func TestPost_Ajustes(t *testing.T) {
	now := time.Now()
	pos := RestoreStockPosition("i", "a", d("2"), nil, now)

	sube := &entity.Movement{ItemID: "i", Type: entity.MovementAdjust, ToLocationID: "a", Delta: d("1.5"), Quantity: d("1.5")}
	require.NoError(t, Post(sube, posiciones(pos), now))
	assert.True(t, d("3.5").Equal(pos.Quantity()))

	baja := &entity.Movement{ItemID: "i", Type: entity.MovementAdjust, FromLocationID: "a", Delta: d("-4"), Quantity: d("4")}
	assert.ErrorIs(t, Post(baja, posiciones(pos), now), domain.ErrInsufficientStock)
}

func TestPost_PosicionNoBloqueada(t *testing.T) {
	m := &entity.Movement{ItemID: "i", Type: entity.MovementReceive, ToLocationID: "a", Quantity: d("1")}
	assert.Error(t, Post(m, map[PositionKey]*StockPosition{}, time.Now()))
}
