package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/obra-stock/internal/application/dto"
	"github.com/jhoicas/obra-stock/internal/domain"
	"github.com/jhoicas/obra-stock/internal/domain/entity"
	"github.com/jhoicas/obra-stock/internal/domain/inventory"
	"github.com/jhoicas/obra-stock/internal/domain/repository"
)

// ItemUseCase casos de uso del catálogo de ítems. Costo y stock se manejan vía movimientos.
type ItemUseCase struct {
	repo      repository.ItemRepository
	locations repository.LocationRepository
	positions repository.StockPositionRepository
}

// NewItemUseCase construye el caso de uso.
func NewItemUseCase(
	repo repository.ItemRepository,
	locations repository.LocationRepository,
	positions repository.StockPositionRepository,
) *ItemUseCase {
	return &ItemUseCase{repo: repo, locations: locations, positions: positions}
}

// Create crea un nuevo ítem. AverageCost inicia en 0.
func (uc *ItemUseCase) Create(ctx context.Context, in dto.CreateItemRequest) (*dto.ItemResponse, error) {
	method, err := entity.ParseValuationMethod(in.ValuationMethod)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	if !validThreshold(in.LowStockThreshold) {
		return nil, domain.ErrInvalidInput
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = "und"
	}
	now := time.Now()
	item := &entity.Item{
		ID:                uuid.New().String(),
		Name:              in.Name,
		Category:          in.Category,
		Unit:              unit,
		ValuationMethod:   method,
		AverageCost:       decimal.Zero,
		LowStockThreshold: in.LowStockThreshold,
		IsEquipment:       in.IsEquipment,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return toItemResponse(item), nil
}

// GetByID obtiene un ítem por ID.
func (uc *ItemUseCase) GetByID(ctx context.Context, id string) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	return toItemResponse(item), nil
}

// Update actualiza metadatos de un ítem. No permite modificar el costo promedio ni la política.
func (uc *ItemUseCase) Update(ctx context.Context, id string, in dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	if in.Name != nil {
		item.Name = *in.Name
	}
	if in.Category != nil {
		item.Category = *in.Category
	}
	if in.Unit != nil {
		item.Unit = *in.Unit
	}
	if in.LowStockThreshold != nil {
		if !validThreshold(in.LowStockThreshold) {
			return nil, domain.ErrInvalidInput
		}
		item.LowStockThreshold = in.LowStockThreshold
	}
	if in.ClearThreshold {
		item.LowStockThreshold = nil
	}
	if in.IsEquipment != nil {
		item.IsEquipment = *in.IsEquipment
	}
	item.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	return toItemResponse(item), nil
}

// List lista ítems con paginación.
func (uc *ItemUseCase) List(ctx context.Context, limit, offset int) (*dto.ItemListResponse, error) {
	list, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ItemResponse, 0, len(list))
	for _, it := range list {
		items = append(items, *toItemResponse(it))
	}
	return &dto.ItemListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// SetLocationThreshold fija el umbral de reorden propio de una posición (nil lo quita).
func (uc *ItemUseCase) SetLocationThreshold(ctx context.Context, in dto.SetThresholdRequest) error {
	if !validThreshold(in.Threshold) {
		return domain.ErrInvalidInput
	}
	item, err := uc.repo.GetByID(ctx, in.ItemID)
	if err != nil {
		return err
	}
	loc, err := uc.locations.GetByID(ctx, in.LocationID)
	if err != nil {
		return err
	}
	if item == nil || loc == nil {
		return domain.ErrNotFound
	}
	return uc.positions.SetThresholdOverride(ctx, in.ItemID, in.LocationID, in.Threshold)
}

// validThreshold: ausente, o no negativo y dentro de la escala guardada.
func validThreshold(v *decimal.Decimal) bool {
	return v == nil || (!v.IsNegative() && !inventory.ExceedsScale(*v))
}

func toItemResponse(it *entity.Item) *dto.ItemResponse {
	if it == nil {
		return nil
	}
	return &dto.ItemResponse{
		ID:                it.ID,
		Name:              it.Name,
		Category:          it.Category,
		Unit:              it.Unit,
		ValuationMethod:   string(it.ValuationMethod),
		AverageCost:       it.AverageCost,
		LowStockThreshold: it.LowStockThreshold,
		IsEquipment:       it.IsEquipment,
		CreatedAt:         it.CreatedAt,
		UpdatedAt:         it.UpdatedAt,
	}
}
