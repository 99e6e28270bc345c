package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/obra-stock/internal/application/inventory"
	"github.com/jhoicas/obra-stock/internal/application/usecase"
	"github.com/jhoicas/obra-stock/pkg/config"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ItemUC     *usecase.ItemUseCase
	LocationUC *usecase.LocationUseCase
	Ledger     *inventory.Ledger
	Queries    *inventory.StockQueries
	Monitor    *inventory.ReorderMonitor
	Retry      inventory.RetryPolicy
	JWT        config.JWTConfig
	// DevTokens expone POST /api/auth/token (solo desarrollo).
	DevTokens bool
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	if deps.DevTokens {
		authHandler := NewAuthHandler(deps.JWT)
		api.Post("/auth/token", authHandler.IssueToken)
	}

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWT.Secret))

	items := protected.Group("/items")
	itemHandler := NewItemHandler(deps.ItemUC)
	items.Post("/", itemHandler.Create)
	items.Get("/", itemHandler.List)
	items.Get("/:id", itemHandler.GetByID)
	items.Put("/:id", itemHandler.Update)

	locations := protected.Group("/locations")
	locationHandler := NewLocationHandler(deps.LocationUC)
	locations.Post("/", locationHandler.Create)
	locations.Get("/", locationHandler.List)
	locations.Get("/:id", locationHandler.GetByID)

	invGroup := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.Queries, deps.Monitor, deps.ItemUC, deps.Retry)
	invGroup.Post("/movements", inventoryHandler.RegisterMovement)
	invGroup.Post("/movements/draft", inventoryHandler.RecordMovement)
	invGroup.Get("/movements", inventoryHandler.ListMovements)
	invGroup.Get("/movements/:id", inventoryHandler.GetMovement)
	invGroup.Post("/movements/:id/apply", inventoryHandler.ApplyMovement)
	invGroup.Delete("/movements/:id", inventoryHandler.DiscardMovement)
	invGroup.Get("/stock", inventoryHandler.GetStock)
	invGroup.Put("/stock/threshold", inventoryHandler.SetThreshold)
	invGroup.Get("/items/:id/valuation", inventoryHandler.GetValuation)
	invGroup.Get("/items/:id/cost", inventoryHandler.QuoteCost)
	invGroup.Get("/items/:id/reorder", inventoryHandler.GetReorderStatus)
	invGroup.Get("/reorder-shortages", inventoryHandler.ListShortages)
}
