package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/obra-stock/internal/application/inventory"
	"github.com/jhoicas/obra-stock/internal/application/usecase"
	"github.com/jhoicas/obra-stock/internal/domain/repository"
	"github.com/jhoicas/obra-stock/internal/infrastructure/memory"
	"github.com/jhoicas/obra-stock/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/obra-stock/internal/interfaces/http"
	"github.com/jhoicas/obra-stock/pkg/config"
	"github.com/jhoicas/obra-stock/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

// storage puertos del ledger según LEDGER_STORAGE.
type storage struct {
	items     repository.ItemRepository
	locations repository.LocationRepository
	positions repository.StockPositionRepository
	movements repository.MovementRepository
	txRunner  inventory.TxRunner
	close     func()
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.Ledger.Storage == config.StorageMemory {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		store := memory.NewStore(cfg.Ledger.LockTimeout)
		return &storage{
			items:     store.Items(),
			locations: store.Locations(),
			positions: store.Positions(),
			movements: store.Movements(),
			txRunner:  store.TxRunner(),
			close:     func() {},
		}, nil
	}

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), log); err != nil {
			return nil, err
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	return &storage{
		items:     postgres.NewItemRepository(pool),
		locations: postgres.NewLocationRepository(pool),
		positions: postgres.NewStockPositionRepository(pool),
		movements: postgres.NewMovementRepository(pool),
		txRunner:  postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
		close:     pool.Close,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Ledger.Storage).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es requerido")
	}

	ctx := context.Background()
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer st.close()

	ledger := inventory.NewLedger(st.txRunner, st.items, st.locations, st.movements, log.Component("ledger"))
	queries := inventory.NewStockQueries(st.items, st.positions, st.movements)
	monitor := inventory.NewReorderMonitor(st.items, st.positions)
	itemUC := usecase.NewItemUseCase(st.items, st.locations, st.positions)
	locationUC := usecase.NewLocationUseCase(st.locations)

	retry := inventory.DefaultRetryPolicy()
	retry.MaxRetries = uint64(cfg.Ledger.BusyRetries)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs (requiere `swag init`)
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Obra Stock API",
		}))
	} else {
		log.Info().Str("file", swaggerFile).Msg("swagger deshabilitado: documento no generado")
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		ItemUC:     itemUC,
		LocationUC: locationUC,
		Ledger:     ledger,
		Queries:    queries,
		Monitor:    monitor,
		Retry:      retry,
		JWT:        cfg.JWT,
		DevTokens:  cfg.App.Env == "development",
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
