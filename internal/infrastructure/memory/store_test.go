package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/obra-stock/internal/domain"
	"github.com/jhoicas/obra-stock/internal/domain/entity"
	"github.com/jhoicas/obra-stock/internal/domain/inventory"
	"github.com/jhoicas/obra-stock/internal/domain/repository"
)

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTxRunner_RollbackDescartaEscrituras(t *testing.T) {
	s := NewStore(50 * time.Millisecond)
	ctx := context.Background()
	boom := errors.New("falla")

	err := s.TxRunner().Run(ctx, func(_ repository.MovementRepository, stock repository.StockPositionRepository, _ repository.ItemRepository) error {
		p := inventory.RestoreStockPosition("i", "a", qty("7"), nil, time.Now())
		require.NoError(t, stock.Save(ctx, p))
		got, err := stock.Get(ctx, "i", "a")
		require.NoError(t, err)
		assert.True(t, qty("7").Equal(got.Quantity()), "la transacción ve sus propias escrituras")
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Positions().Get(ctx, "i", "a")
	require.NoError(t, err)
	assert.Nil(t, got, "nada se confirma si fn falla")
}

func TestTxRunner_BloqueoConTimeout(t *testing.T) {
	s := NewStore(30 * time.Millisecond)
	ctx := context.Background()

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.TxRunner().Run(ctx, func(_ repository.MovementRepository, stock repository.StockPositionRepository, _ repository.ItemRepository) error {
			_, err := stock.GetForUpdate(ctx, "i", "a")
			close(held)
			<-release
			return err
		})
	}()
	<-held

	err := s.TxRunner().Run(ctx, func(_ repository.MovementRepository, stock repository.StockPositionRepository, _ repository.ItemRepository) error {
		_, err := stock.GetForUpdate(ctx, "i", "a")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrBusy)

	// otra posición no está bloqueada
	err = s.TxRunner().Run(ctx, func(_ repository.MovementRepository, stock repository.StockPositionRepository, _ repository.ItemRepository) error {
		_, err := stock.GetForUpdate(ctx, "i", "b")
		return err
	})
	assert.NoError(t, err)
	close(release)
}

func TestTxRunner_BloqueoReentrante(t *testing.T) {
	s := NewStore(30 * time.Millisecond)
	ctx := context.Background()
	err := s.TxRunner().Run(ctx, func(_ repository.MovementRepository, stock repository.StockPositionRepository, _ repository.ItemRepository) error {
		if _, err := stock.GetForUpdate(ctx, "i", "a"); err != nil {
			return err
		}
		if _, err := stock.ListForUpdateByItem(ctx, "i"); err != nil {
			return err
		}
		_, err := stock.GetForUpdate(ctx, "i", "a")
		return err
	})
	assert.NoError(t, err)
}

func TestLockTable_LiberaClavesOciosas(t *testing.T) {
	s := NewStore(30 * time.Millisecond)
	ctx := context.Background()
	for _, loc := range []string{"a", "b", "c"} {
		err := s.TxRunner().Run(ctx, func(_ repository.MovementRepository, stock repository.StockPositionRepository, _ repository.ItemRepository) error {
			_, err := stock.GetForUpdate(ctx, "i", loc)
			return err
		})
		require.NoError(t, err)
	}

	// una espera vencida tampoco deja la clave viva
	require.NoError(t, s.locks.acquire(ctx, "k", time.Second))
	assert.ErrorIs(t, s.locks.acquire(ctx, "k", 10*time.Millisecond), domain.ErrBusy)
	s.locks.release("k")

	s.locks.mu.Lock()
	defer s.locks.mu.Unlock()
	assert.Empty(t, s.locks.slots)
}

func TestMovementRepo_CommitNoResucitaDescartados(t *testing.T) {
	s := NewStore(30 * time.Millisecond)
	ctx := context.Background()
	m := &entity.Movement{ID: "m1", ItemID: "i", Type: entity.MovementReceive, ToLocationID: "a", Quantity: qty("1"), CreatedAt: time.Now()}
	require.NoError(t, s.Movements().Create(ctx, m))

	err := s.TxRunner().Run(ctx, func(movs repository.MovementRepository, _ repository.StockPositionRepository, _ repository.ItemRepository) error {
		cur, err := movs.GetByID(ctx, "m1")
		if err != nil {
			return err
		}
		if err := movs.MarkApplied(ctx, cur, time.Now(), decimal.Zero); err != nil {
			return err
		}
		// fuera de la transacción, el asiento desaparece antes del commit
		s.mu.Lock()
		delete(s.movements, "m1")
		s.mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	got, err := s.Movements().GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestItemRepo_UpdateDuranteRecepcionNoSePierde(t *testing.T) {
	s := NewStore(500 * time.Millisecond)
	ctx := context.Background()
	require.NoError(t, s.Items().Create(ctx, &entity.Item{ID: "i", Name: "viejo", Unit: "gal", ValuationMethod: entity.ValuationAVG}))

	updated := make(chan error, 1)
	err := s.TxRunner().Run(ctx, func(_ repository.MovementRepository, _ repository.StockPositionRepository, items repository.ItemRepository) error {
		if _, err := items.GetForUpdate(ctx, "i"); err != nil {
			return err
		}
		if err := items.UpdateAverageCost(ctx, "i", qty("5")); err != nil {
			return err
		}
		go func() {
			updated <- s.Items().Update(ctx, &entity.Item{ID: "i", Name: "nuevo", Unit: "gal", ValuationMethod: entity.ValuationAVG})
		}()
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, <-updated, "la edición espera a que termine la recepción")

	it, err := s.Items().GetByID(ctx, "i")
	require.NoError(t, err)
	assert.Equal(t, "nuevo", it.Name)
	assert.True(t, qty("5").Equal(it.AverageCost))
}

func TestTxRunner_CommitSoloAplicaCostoDelItem(t *testing.T) {
	s := NewStore(30 * time.Millisecond)
	ctx := context.Background()
	require.NoError(t, s.Items().Create(ctx, &entity.Item{ID: "i", Name: "viejo", Category: "pinturas"}))

	err := s.TxRunner().Run(ctx, func(_ repository.MovementRepository, _ repository.StockPositionRepository, items repository.ItemRepository) error {
		if err := items.UpdateAverageCost(ctx, "i", qty("7.5")); err != nil {
			return err
		}
		it, err := items.GetByID(ctx, "i")
		if err != nil {
			return err
		}
		assert.True(t, qty("7.5").Equal(it.AverageCost), "la transacción ve su propio costo")

		// escritura concurrente sobre el mismo ítem antes del commit
		s.mu.Lock()
		s.items["i"].Category = "herramientas"
		s.mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	it, err := s.Items().GetByID(ctx, "i")
	require.NoError(t, err)
	assert.Equal(t, "herramientas", it.Category)
	assert.True(t, qty("7.5").Equal(it.AverageCost))
}

func TestMovementRepo_MarkAppliedYDelete(t *testing.T) {
	s := NewStore(30 * time.Millisecond)
	ctx := context.Background()
	repo := s.Movements()
	m := &entity.Movement{ID: "m1", ItemID: "i", Type: entity.MovementReceive, ToLocationID: "a", Quantity: qty("1"), CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, m))
	assert.ErrorIs(t, repo.Create(ctx, m), domain.ErrDuplicate)

	require.NoError(t, repo.MarkApplied(ctx, m, time.Now(), qty("3")))
	assert.Equal(t, int64(1), m.Seq)
	assert.ErrorIs(t, repo.MarkApplied(ctx, m, time.Now(), qty("3")), domain.ErrConflict)

	deleted, err := repo.DeleteUnapplied(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, deleted, "un asiento aplicado no se borra")

	applied, err := repo.ListAppliedByItem(ctx, "i")
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.True(t, qty("3").Equal(applied[0].TotalCost))
}

func TestMovementRepo_ListFiltraYPagina(t *testing.T) {
	s := NewStore(30 * time.Millisecond)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, loc := range []string{"a", "b", "a", "a"} {
		require.NoError(t, s.Movements().Create(ctx, &entity.Movement{
			ID: string(rune('1' + i)), ItemID: "i", Type: entity.MovementReceive, ToLocationID: loc,
			Quantity: qty("1"), CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	list, err := s.Movements().List(ctx, repository.MovementFilter{LocationID: "a", Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "4", list[0].ID, "más recientes primero")
	assert.Equal(t, "3", list[1].ID)

	from := base.Add(90 * time.Minute)
	list, err = s.Movements().List(ctx, repository.MovementFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = s.Movements().List(ctx, repository.MovementFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStockPositionRepo_SetThresholdOverrideConservaCantidad(t *testing.T) {
	s := NewStore(30 * time.Millisecond)
	ctx := context.Background()
	repo := s.Positions()
	require.NoError(t, repo.Save(ctx, inventory.RestoreStockPosition("i", "a", qty("4"), nil, time.Now())))

	th := qty("10")
	require.NoError(t, repo.SetThresholdOverride(ctx, "i", "a", &th))
	p, err := repo.Get(ctx, "i", "a")
	require.NoError(t, err)
	assert.True(t, qty("4").Equal(p.Quantity()))
	require.NotNil(t, p.ThresholdOverride())
	assert.True(t, th.Equal(*p.ThresholdOverride()))

	require.NoError(t, repo.SetThresholdOverride(ctx, "i", "nueva", &th))
	p, err = repo.Get(ctx, "i", "nueva")
	require.NoError(t, err)
	assert.True(t, p.Quantity().IsZero(), "la posición se crea en cero")
}

func TestItemRepo_UpdateConservaCostoPromedio(t *testing.T) {
	s := NewStore(30 * time.Millisecond)
	ctx := context.Background()
	repo := s.Items()
	require.NoError(t, repo.Create(ctx, &entity.Item{ID: "i", Name: "Cinta", ValuationMethod: entity.ValuationAVG}))
	require.NoError(t, repo.UpdateAverageCost(ctx, "i", qty("12.5")))

	require.NoError(t, repo.Update(ctx, &entity.Item{ID: "i", Name: "Cinta métrica", AverageCost: qty("999")}))
	it, err := repo.GetByID(ctx, "i")
	require.NoError(t, err)
	assert.Equal(t, "Cinta métrica", it.Name)
	assert.True(t, qty("12.5").Equal(it.AverageCost))

	assert.ErrorIs(t, repo.Update(ctx, &entity.Item{ID: "x"}), domain.ErrNotFound)
}
