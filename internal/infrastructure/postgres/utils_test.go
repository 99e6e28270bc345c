package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/obra-stock/internal/domain"
)

func TestWrapErr_ContencionEsBusy(t *testing.T) {
	for _, code := range []string{codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure} {
		err := wrapErr("lock position", fmt.Errorf("query: %w", &pgconn.PgError{Code: code}))
		assert.ErrorIs(t, err, domain.ErrBusy, "SQLSTATE %s debe ser reintentable", code)
		assert.True(t, domain.IsRetryable(err))
	}
}

func TestWrapErr_OtrosErrores(t *testing.T) {
	assert.NoError(t, wrapErr("op", nil))

	base := errors.New("conexión cerrada")
	err := wrapErr("get item", base)
	assert.ErrorIs(t, err, base)
	assert.False(t, domain.IsRetryable(err))
	assert.Contains(t, err.Error(), "get item")

	err = wrapErr("check", &pgconn.PgError{Code: "23514"})
	assert.False(t, errors.Is(err, domain.ErrBusy), "una violación de CHECK no es contención")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: codeUniqueViolation}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: codeLockNotAvailable}))
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/d?sslmode=disable", migrateURL("postgres://u:p@h:5432/d?sslmode=disable"))
	assert.Equal(t, "pgx5://u@h/d", migrateURL("postgresql://u@h/d"))
	assert.Equal(t, "pgx5://h/d", migrateURL("pgx5://h/d"))
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	assert.Equal(t, "x", fromNullString(nullString("x")))
	assert.Equal(t, "", fromNullString(nil))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(fmt.Errorf("scan: %w", pgx.ErrNoRows)))
	assert.True(t, isNotFound(&pgconn.PgError{Code: codeInvalidText}), "un ID que no es UUID equivale a inexistente")
	assert.False(t, isNotFound(errors.New("timeout")))
}
