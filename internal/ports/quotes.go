package ports

import (
	"context"
	"errors"
)

// ErrUnavailable indica que el quoting service no pudo dar precio para el
// token tras agotar los reintentos. No es fatal: el item se salta.
var ErrUnavailable = errors.New("quote unavailable")

// QuoteProvider obtiene el precio actual de un token desde el quoting service.
type QuoteProvider interface {
	// Midpoint devuelve el midpoint (o last price) del token dado.
	// Puede devolver NaN si upstream respondió con un valor no parseable —
	// el caller decide cómo normalizarlo. ErrUnavailable tras agotar
	// endpoints y reintentos.
	Midpoint(ctx context.Context, tokenID string) (float64, error)
}
