package dto

// TokenRequest entrada para emitir un token de desarrollo.
type TokenRequest struct {
	UserID string `json:"user_id" validate:"required,max=100"`
	Name   string `json:"name" validate:"max=200"`
}

// TokenResponse token firmado.
type TokenResponse struct {
	Token            string `json:"token"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}
