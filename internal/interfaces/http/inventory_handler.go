package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/obra-stock/internal/application/dto"
	"github.com/jhoicas/obra-stock/internal/application/inventory"
	"github.com/jhoicas/obra-stock/internal/application/usecase"
	"github.com/jhoicas/obra-stock/internal/domain"
	"github.com/jhoicas/obra-stock/internal/domain/entity"
	domaininv "github.com/jhoicas/obra-stock/internal/domain/inventory"
	"github.com/jhoicas/obra-stock/internal/domain/repository"
)

// InventoryHandler maneja las peticiones HTTP del ledger, stock, valuación y reorden (protegido).
type InventoryHandler struct {
	ledger  *inventory.Ledger
	queries *inventory.StockQueries
	monitor *inventory.ReorderMonitor
	items   *usecase.ItemUseCase
	retry   inventory.RetryPolicy
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	ledger *inventory.Ledger,
	queries *inventory.StockQueries,
	monitor *inventory.ReorderMonitor,
	items *usecase.ItemUseCase,
	retry inventory.RetryPolicy,
) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, queries: queries, monitor: monitor, items: items, retry: retry}
}

func (h *InventoryHandler) parseMovement(c *fiber.Ctx) (dto.RegisterMovementRequest, string, *dto.ErrorResponse) {
	var in dto.RegisterMovementRequest
	userID := GetUserID(c)
	if userID == "" {
		return in, "", &dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"}
	}
	if err := c.BodyParser(&in); err != nil {
		return in, "", &dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"}
	}
	if verr := validateBody(in); verr != nil {
		return in, "", verr
	}
	return in, userID, nil
}

func parseStatus(e *dto.ErrorResponse) int {
	if e.Code == "UNAUTHORIZED" {
		return fiber.StatusUnauthorized
	}
	return fiber.StatusBadRequest
}

// RegisterMovement godoc
// @Summary      Registrar y aplicar movimiento de inventario
// @Description  Registra el asiento y lo aplica en una sola transacción. Si la aplicación falla
//
//	por validación o stock insuficiente el asiento se descarta. Si las posiciones están ocupadas
//	responde 503 con movement_id para reintentar con /apply.
//
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "item_id, type, quantity/delta, from/to_location_id, unit_cost (RECEIVE)"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.PendingMovementResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	in, userID, perr := h.parseMovement(c)
	if perr != nil {
		return c.Status(parseStatus(perr)).JSON(perr)
	}
	m, err := h.ledger.RegisterMovementFromRequest(c.Context(), userID, in, h.retry)
	if err != nil {
		if m != nil && domain.IsRetryable(err) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.PendingMovementResponse{
				Code:       "BUSY",
				Message:    "posiciones ocupadas; el movimiento quedó registrado sin aplicar",
				MovementID: m.ID,
			})
		}
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(m))
}

// RecordMovement godoc
// @Summary      Registrar movimiento sin aplicar
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "Movimiento"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/draft [post]
func (h *InventoryHandler) RecordMovement(c *fiber.Ctx) error {
	in, userID, perr := h.parseMovement(c)
	if perr != nil {
		return c.Status(parseStatus(perr)).JSON(perr)
	}
	m, err := h.ledger.Record(c.Context(), inventory.InputFromRequest(userID, in))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(m))
}

// ApplyMovement godoc
// @Summary      Aplicar un movimiento registrado
// @Description  Idempotente: aplicar un asiento ya aplicado devuelve el asiento sin volver a mutar stock.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id}/apply [post]
func (h *InventoryHandler) ApplyMovement(c *fiber.Ctx) error {
	m, err := h.ledger.ApplyWithRetry(c.Context(), c.Params("id"), h.retry)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toMovementResponse(m))
}

// DiscardMovement godoc
// @Summary      Descartar un movimiento no aplicado
// @Tags         inventory
// @Security     Bearer
// @Param        id   path  string  true  "ID del movimiento"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id} [delete]
func (h *InventoryHandler) DiscardMovement(c *fiber.Ctx) error {
	if err := h.ledger.Discard(c.Context(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetMovement godoc
// @Summary      Obtener movimiento
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id} [get]
func (h *InventoryHandler) GetMovement(c *fiber.Ctx) error {
	m, err := h.ledger.GetMovement(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toMovementResponse(m))
}

// ListMovements godoc
// @Summary      Listar movimientos del ledger
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id      query  string  false  "Filtrar por ítem"
// @Param        location_id  query  string  false  "Filtrar por ubicación (origen o destino)"
// @Param        from         query  string  false  "Desde (RFC3339)"
// @Param        to           query  string  false  "Hasta (RFC3339)"
// @Param        limit        query  int     false  "Límite"  default(20)
// @Param        offset       query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	page, verr := pageParams(c)
	if verr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(verr)
	}
	filter := repository.MovementFilter{
		ItemID:     c.Query("item_id"),
		LocationID: c.Query("location_id"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := c.Query(p.key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: p.key + " debe ser RFC3339"})
		}
		*p.dst = &t
	}
	list, err := h.ledger.ListMovements(c.Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.MovementListResponse{
		Items: make([]dto.MovementResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, m := range list {
		out.Items = append(out.Items, toMovementResponse(m))
	}
	return c.JSON(out)
}

// GetStock godoc
// @Summary      Stock actual de un ítem
// @Description  Con location_id devuelve la cantidad en esa ubicación; sin él, el total de todas.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id      query  string  true   "ID del ítem"
// @Param        location_id  query  string  false  "ID de la ubicación"
// @Success      200  {object}  dto.StockResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	itemID := c.Query("item_id")
	if itemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "item_id es requerido"})
	}
	locationID := c.Query("location_id")
	qty, err := h.queries.CurrentStock(c.Context(), itemID, locationID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockResponse{ItemID: itemID, LocationID: locationID, Quantity: qty})
}

// SetThreshold godoc
// @Summary      Fijar umbral de reorden de una posición
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Param        body  body  dto.SetThresholdRequest  true  "threshold null quita el override"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/threshold [put]
func (h *InventoryHandler) SetThreshold(c *fiber.Ctx) error {
	var in dto.SetThresholdRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if verr := validateBody(in); verr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(verr)
	}
	if err := h.items.SetLocationThreshold(c.Context(), in); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetValuation godoc
// @Summary      Valuación del stock de un ítem
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del ítem"
// @Success      200  {object}  dto.ValuationSummaryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/items/{id}/valuation [get]
func (h *InventoryHandler) GetValuation(c *fiber.Ctx) error {
	summary, err := h.queries.ValuationSummary(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toValuationResponse(summary))
}

// QuoteCost godoc
// @Summary      Costear una cantidad del ítem
// @Description  Calcula el costo de sacar quantity unidades bajo la política del ítem, sin mutar stock.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id        path   string  true  "ID del ítem"
// @Param        quantity  query  string  true  "Cantidad (decimal)"
// @Success      200  {object}  dto.CostQuoteResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/items/{id}/cost [get]
func (h *InventoryHandler) QuoteCost(c *fiber.Ctx) error {
	qty, err := decimal.NewFromString(c.Query("quantity"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "quantity debe ser un decimal"})
	}
	itemID := c.Params("id")
	res, err := h.queries.CostForQuantity(c.Context(), itemID, qty)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.CostQuoteResponse{
		ItemID:    itemID,
		Method:    string(res.Method),
		Quantity:  res.Quantity,
		TotalCost: res.TotalCost,
		UnitCost:  res.UnitCost,
		Degraded:  res.Degraded,
		Shortfall: res.Shortfall,
	})
}

// GetReorderStatus godoc
// @Summary      Punto de reorden de un ítem
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id           path   string  true   "ID del ítem"
// @Param        location_id  query  string  false  "Ubicación; vacío = agregado de todas"
// @Success      200  {object}  dto.ReorderStatusDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/items/{id}/reorder [get]
func (h *InventoryHandler) GetReorderStatus(c *fiber.Ctx) error {
	status, err := h.monitor.ItemStatus(c.Context(), c.Params("id"), c.Query("location_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toReorderDTO(status))
}

// ListShortages godoc
// @Summary      Posiciones bajo su umbral de reorden
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.ReorderStatusDTO
// @Router       /api/inventory/reorder-shortages [get]
func (h *InventoryHandler) ListShortages(c *fiber.Ctx) error {
	list, err := h.monitor.Shortages(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.ReorderStatusDTO, 0, len(list))
	for _, s := range list {
		out = append(out, toReorderDTO(s))
	}
	return c.JSON(fiber.Map{
		"total":     len(out),
		"shortages": out,
	})
}

func toMovementResponse(m *entity.Movement) dto.MovementResponse {
	out := dto.MovementResponse{
		ID:             m.ID,
		ItemID:         m.ItemID,
		Type:           string(m.Type),
		FromLocationID: m.FromLocationID,
		ToLocationID:   m.ToLocationID,
		Quantity:       m.Quantity,
		UnitCost:       m.UnitCost,
		TotalCost:      m.TotalCost,
		Reason:         m.Reason,
		CreatedBy:      m.CreatedBy,
		CreatedAt:      m.CreatedAt,
		Applied:        m.Applied,
		AppliedAt:      m.AppliedAt,
		Seq:            m.Seq,
		ExpenseRef:     m.ExpenseRef,
	}
	if m.Type == entity.MovementAdjust {
		d := m.Delta
		out.Delta = &d
	}
	return out
}

func toValuationResponse(s *inventory.ValuationSummary) dto.ValuationSummaryResponse {
	out := dto.ValuationSummaryResponse{
		ItemID:          s.Item.ID,
		ValuationMethod: string(s.Item.ValuationMethod),
		AverageCost:     s.Item.AverageCost,
		TotalQuantity:   s.TotalQuantity,
		TotalValue:      s.Valuation.TotalCost,
		UnitCost:        s.Valuation.UnitCost,
		Degraded:        s.Valuation.Degraded,
		Shortfall:       s.Valuation.Shortfall,
		Positions:       make([]dto.PositionDTO, 0, len(s.Positions)),
	}
	for _, p := range s.Positions {
		out.Positions = append(out.Positions, dto.PositionDTO{
			LocationID:        p.LocationID,
			Quantity:          p.Quantity,
			ThresholdOverride: p.ThresholdOverride,
		})
	}
	for _, l := range s.Lots {
		out.Lots = append(out.Lots, dto.LotDTO{
			MovementID: l.MovementID,
			Quantity:   l.Quantity,
			Remaining:  l.Remaining,
			UnitCost:   l.UnitCost,
			ReceivedAt: l.ReceivedAt,
		})
	}
	return out
}

func toReorderDTO(s domaininv.ReorderStatus) dto.ReorderStatusDTO {
	return dto.ReorderStatusDTO{
		ItemID:       s.ItemID,
		LocationID:   s.LocationID,
		NeedsReorder: s.NeedsReorder,
		Shortage:     s.Shortage,
		CurrentQty:   s.CurrentQty,
		Threshold:    s.Threshold,
	}
}
