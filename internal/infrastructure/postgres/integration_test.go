//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/obra-stock/internal/application/dto"
	"github.com/jhoicas/obra-stock/internal/application/inventory"
	"github.com/jhoicas/obra-stock/internal/domain"
	"github.com/jhoicas/obra-stock/internal/domain/entity"
	"github.com/jhoicas/obra-stock/internal/domain/repository"
	"github.com/jhoicas/obra-stock/internal/infrastructure/postgres"
	"github.com/jhoicas/obra-stock/pkg/logger"
)

// Ejecutar con: go test -tags integration ./internal/infrastructure/postgres/...

type pgFixture struct {
	pool    *pgxpool.Pool
	ledger  *inventory.Ledger
	queries *inventory.StockQueries
	items   *postgres.ItemRepo
	locs    *postgres.LocationRepo
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("obra_stock_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "no se pudo iniciar PostgreSQL")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(dsn, logger.Nop()))

	pool, err := postgres.NewPoolFromURL(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	items := postgres.NewItemRepository(pool)
	locs := postgres.NewLocationRepository(pool)
	positions := postgres.NewStockPositionRepository(pool)
	movements := postgres.NewMovementRepository(pool)
	return &pgFixture{
		pool:    pool,
		ledger:  inventory.NewLedger(postgres.NewTxRunner(pool, 200*time.Millisecond), items, locs, movements, nil),
		queries: inventory.NewStockQueries(items, positions, movements),
		items:   items,
		locs:    locs,
	}
}

func (f *pgFixture) seed(t *testing.T, method entity.ValuationMethod) (itemID, bodega, obra string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	itemID = uuid.NewString()
	require.NoError(t, f.items.Create(ctx, &entity.Item{ID: itemID, Name: "Pintura", Unit: "gal", ValuationMethod: method, CreatedAt: now, UpdatedAt: now}))
	bodega, obra = uuid.NewString(), uuid.NewString()
	require.NoError(t, f.locs.Create(ctx, &entity.Location{ID: bodega, Name: "Bodega", IsStorage: true, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, f.locs.Create(ctx, &entity.Location{ID: obra, Name: "Obra", ProjectID: "p-1", CreatedAt: now, UpdatedAt: now}))
	return itemID, bodega, obra
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPostgresLedger_FlujoCompleto(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	itemID, bodega, obra := f.seed(t, entity.ValuationFIFO)

	for _, cost := range []string{"5", "7"} {
		c := dec(cost)
		_, err := f.ledger.CreateAndApplyMovement(ctx, inventory.MovementInput{
			ItemID: itemID, Type: "RECEIVE", Quantity: dec("10"), UnitCost: &c, ToLocationID: bodega, CreatedBy: "u-1",
		})
		require.NoError(t, err)
	}

	m, err := f.ledger.CreateAndApplyMovement(ctx, inventory.MovementInput{
		ItemID: itemID, Type: "TRANSFER", Quantity: dec("4"), FromLocationID: bodega, ToLocationID: obra, CreatedBy: "u-1",
	})
	require.NoError(t, err)
	assert.Positive(t, m.Seq)

	m, err = f.ledger.CreateAndApplyMovement(ctx, inventory.MovementInput{
		ItemID: itemID, Type: "ISSUE", Quantity: dec("15"), FromLocationID: obra, CreatedBy: "u-1",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock, "en la obra solo hay 4")
	require.NotNil(t, m)
	require.NoError(t, f.ledger.Discard(ctx, m.ID))

	total, err := f.queries.CurrentStock(ctx, itemID, "")
	require.NoError(t, err)
	assert.True(t, dec("20").Equal(total), "el traslado conserva el total")

	quote, err := f.queries.CostForQuantity(ctx, itemID, dec("15"))
	require.NoError(t, err)
	assert.True(t, dec("85").Equal(quote.TotalCost), "got %s", quote.TotalCost)
}

func TestPostgresLedger_AsientoAplicadoEsInmutable(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	itemID, bodega, _ := f.seed(t, entity.ValuationAVG)

	m, err := f.ledger.CreateAndApplyMovement(ctx, inventory.MovementInput{
		ItemID: itemID, Type: "RECEIVE", Quantity: dec("1"), ToLocationID: bodega, CreatedBy: "u-1",
	})
	require.NoError(t, err)

	_, err = f.pool.Exec(ctx, `UPDATE movements SET quantity = 99 WHERE id = $1`, m.ID)
	assert.Error(t, err, "el trigger impide modificar asientos aplicados")
	_, err = f.pool.Exec(ctx, `DELETE FROM movements WHERE id = $1`, m.ID)
	assert.Error(t, err, "el trigger impide borrar asientos aplicados")
	assert.ErrorIs(t, f.ledger.Discard(ctx, m.ID), domain.ErrConflict)
}

func TestPostgresLedger_ConsumosConcurrentesNoSobregiran(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	itemID, bodega, _ := f.seed(t, entity.ValuationAVG)

	c := dec("10")
	_, err := f.ledger.CreateAndApplyMovement(ctx, inventory.MovementInput{
		ItemID: itemID, Type: "RECEIVE", Quantity: dec("10"), UnitCost: &c, ToLocationID: bodega, CreatedBy: "u-1",
	})
	require.NoError(t, err)

	policy := inventory.RetryPolicy{MaxRetries: 10, InitialInterval: 10 * time.Millisecond, MaxInterval: 100 * time.Millisecond}
	const n = 15
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.RegisterMovementFromRequest(ctx, "u-1", dto.RegisterMovementRequest{
				ItemID: itemID, Type: "ISSUE", Quantity: dec("1"), FromLocationID: bodega,
			}, policy)
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok, "solo 10 consumos de 1 caben en 10 unidades")
	qty, err := f.queries.CurrentStock(ctx, itemID, bodega)
	require.NoError(t, err)
	assert.True(t, qty.IsZero())

	applied, err := f.ledger.ListMovements(ctx, repository.MovementFilter{ItemID: itemID, Limit: 100})
	require.NoError(t, err)
	assert.Len(t, applied, 11, "recepción + 10 consumos; los rechazados se descartan")
}
