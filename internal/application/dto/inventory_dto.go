package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterMovementRequest body para POST /api/inventory/movements.
// RECEIVE usa to_location_id; ISSUE from_location_id; TRANSFER ambos; ADJUST uno solo y delta con signo.
type RegisterMovementRequest struct {
	ItemID         string           `json:"item_id" validate:"required"`
	Type           string           `json:"type" validate:"required,oneof=RECEIVE ISSUE TRANSFER ADJUST receive issue transfer adjust"`
	Quantity       decimal.Decimal  `json:"quantity"`
	Delta          decimal.Decimal  `json:"delta"`
	FromLocationID string           `json:"from_location_id,omitempty"`
	ToLocationID   string           `json:"to_location_id,omitempty"`
	UnitCost       *decimal.Decimal `json:"unit_cost,omitempty"`
	Reason         string           `json:"reason" validate:"max=500"`
	ExpenseRef     string           `json:"expense_ref,omitempty" validate:"max=100"`
}

// MovementResponse salida de un asiento del ledger.
type MovementResponse struct {
	ID             string           `json:"id"`
	ItemID         string           `json:"item_id"`
	Type           string           `json:"type"`
	FromLocationID string           `json:"from_location_id,omitempty"`
	ToLocationID   string           `json:"to_location_id,omitempty"`
	Quantity       decimal.Decimal  `json:"quantity"`
	Delta          *decimal.Decimal `json:"delta,omitempty"`
	UnitCost       *decimal.Decimal `json:"unit_cost,omitempty"`
	TotalCost      decimal.Decimal  `json:"total_cost"`
	Reason         string           `json:"reason"`
	CreatedBy      string           `json:"created_by"`
	CreatedAt      time.Time        `json:"created_at"`
	Applied        bool             `json:"applied"`
	AppliedAt      *time.Time       `json:"applied_at,omitempty"`
	Seq            int64            `json:"seq,omitempty"`
	ExpenseRef     string           `json:"expense_ref,omitempty"`
}

// MovementListResponse lista paginada de asientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// StockResponse cantidad actual de un ítem (en una ubicación o total).
type StockResponse struct {
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// SetThresholdRequest body para PUT /api/inventory/stock/threshold. Threshold nil quita el override.
type SetThresholdRequest struct {
	ItemID     string           `json:"item_id" validate:"required"`
	LocationID string           `json:"location_id" validate:"required"`
	Threshold  *decimal.Decimal `json:"threshold"`
}

// LotDTO lote de costo vigente.
type LotDTO struct {
	MovementID string          `json:"movement_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Remaining  decimal.Decimal `json:"remaining"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	ReceivedAt time.Time       `json:"received_at"`
}

// PositionDTO cantidad por ubicación.
type PositionDTO struct {
	LocationID        string           `json:"location_id"`
	Quantity          decimal.Decimal  `json:"quantity"`
	ThresholdOverride *decimal.Decimal `json:"threshold_override,omitempty"`
}

// ValuationSummaryResponse valuación del stock de un ítem.
type ValuationSummaryResponse struct {
	ItemID          string          `json:"item_id"`
	ValuationMethod string          `json:"valuation_method"`
	AverageCost     decimal.Decimal `json:"average_cost"`
	TotalQuantity   decimal.Decimal `json:"total_quantity"`
	TotalValue      decimal.Decimal `json:"total_value"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	Degraded        bool            `json:"degraded"`  // parte costeada al promedio por falta de lotes
	Shortfall       decimal.Decimal `json:"shortfall"` // cantidad sin lote
	Positions       []PositionDTO   `json:"positions"`
	Lots            []LotDTO        `json:"lots,omitempty"`
}

// ReorderStatusDTO resultado de punto de reorden.
type ReorderStatusDTO struct {
	ItemID       string           `json:"item_id"`
	LocationID   string           `json:"location_id,omitempty"`
	NeedsReorder bool             `json:"needs_reorder"`
	Shortage     decimal.Decimal  `json:"shortage"`
	CurrentQty   decimal.Decimal  `json:"current_qty"`
	Threshold    *decimal.Decimal `json:"threshold,omitempty"`
}

// PendingMovementResponse respuesta 503 cuando el asiento quedó registrado pero sin aplicar.
// El cliente puede reintentar con POST /api/inventory/movements/{movement_id}/apply.
type PendingMovementResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	MovementID string `json:"movement_id"`
}

// CostQuoteResponse costo de una cantidad bajo la política del ítem.
type CostQuoteResponse struct {
	ItemID    string          `json:"item_id"`
	Method    string          `json:"method"`
	Quantity  decimal.Decimal `json:"quantity"`
	TotalCost decimal.Decimal `json:"total_cost"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	Degraded  bool            `json:"degraded"`
	Shortfall decimal.Decimal `json:"shortfall"`
}
