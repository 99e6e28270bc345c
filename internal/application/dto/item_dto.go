package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateItemRequest entrada para crear un ítem. El costo promedio inicia en 0.
type CreateItemRequest struct {
	Name              string           `json:"name" validate:"required,min=1,max=200"`
	Category          string           `json:"category" validate:"max=100"`
	Unit              string           `json:"unit" validate:"max=20"`
	ValuationMethod   string           `json:"valuation_method" validate:"omitempty,oneof=AVG FIFO LIFO avg fifo lifo"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold"`
	IsEquipment       bool             `json:"is_equipment"`
}

// UpdateItemRequest entrada para actualizar metadatos de un ítem (nunca el costo).
type UpdateItemRequest struct {
	Name              *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Category          *string          `json:"category" validate:"omitempty,max=100"`
	Unit              *string          `json:"unit" validate:"omitempty,max=20"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold"`
	ClearThreshold    bool             `json:"clear_threshold"`
	IsEquipment       *bool            `json:"is_equipment"`
}

// ItemResponse salida de un ítem.
type ItemResponse struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Category          string           `json:"category"`
	Unit              string           `json:"unit"`
	ValuationMethod   string           `json:"valuation_method"`
	AverageCost       decimal.Decimal  `json:"average_cost"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold,omitempty"`
	IsEquipment       bool             `json:"is_equipment"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// ItemListResponse lista paginada de ítems.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}
