package dto

// PageRequest limit/offset de los listados (ítems, ubicaciones, movimientos), leídos de la query.
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// DefaultPageLimit límite cuando la query no trae limit.
const DefaultPageLimit = 20

// DefaultPage completa limit ausente o no positivo y lleva offset negativo a cero.
// Un limit por encima del máximo lo rechaza la validación.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total,omitempty"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
