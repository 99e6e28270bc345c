package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas salvo decimal).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInvalidMovement   = errors.New("movimiento inválido")
	ErrInsufficientStock = errors.New("stock insuficiente")
	// ErrBusy indica que no se obtuvo el bloqueo de las posiciones a tiempo; reintentable.
	ErrBusy = errors.New("posición de stock ocupada, reintente")
)

// InvalidMovementError describe por qué un movimiento fue rechazado antes de mutar estado.
type InvalidMovementError struct {
	Reason string
}

func (e *InvalidMovementError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidMovement.Error(), e.Reason)
}

func (e *InvalidMovementError) Unwrap() error { return ErrInvalidMovement }

// NewInvalidMovement construye un InvalidMovementError.
func NewInvalidMovement(format string, args ...any) error {
	return &InvalidMovementError{Reason: fmt.Sprintf(format, args...)}
}

// InsufficientStockError reporta la cantidad pedida frente a la disponible en el origen.
type InsufficientStockError struct {
	ItemID     string
	LocationID string
	Requested  decimal.Decimal
	Available  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: ítem %s en ubicación %s, solicitado %s, disponible %s",
		ErrInsufficientStock.Error(), e.ItemID, e.LocationID, e.Requested.String(), e.Available.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// IsRetryable indica si el error puede reintentarse (solo contención de bloqueos).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy)
}
