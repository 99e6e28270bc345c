package dto

import "time"

// CreateLocationRequest entrada para crear una ubicación. project_id vacío = bodega compartida.
type CreateLocationRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=200"`
	ProjectID string `json:"project_id" validate:"max=100"`
	IsStorage *bool  `json:"is_storage"`
}

// LocationResponse salida de una ubicación.
type LocationResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ProjectID   string    `json:"project_id,omitempty"`
	IsStorage   bool      `json:"is_storage"`
	IsWarehouse bool      `json:"is_warehouse"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LocationListResponse lista paginada de ubicaciones.
type LocationListResponse struct {
	Items []LocationResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
