package entity

import "time"

// Location representa un lugar de almacenamiento: la bodega compartida o una obra.
type Location struct {
	ID        string
	Name      string
	ProjectID string // vacío = bodega compartida
	IsStorage bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsWarehouse indica si la ubicación no pertenece a ningún proyecto.
func (l *Location) IsWarehouse() bool {
	return l.ProjectID == ""
}
