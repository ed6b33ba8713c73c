package ports

import (
	"context"

	"github.com/alejandrodnm/edgemachine/internal/domain"
)

// EventStore persiste los eventos descubiertos y sus resoluciones.
// Todas las escrituras son sesiones cortas — ninguna transacción abierta
// debe cruzar una llamada de red.
type EventStore interface {
	// UpsertEvent inserta o actualiza por natural key. En update solo se
	// tocan título/source id/volumen, y los tokens de forma aditiva:
	// un token ya hidratado nunca vuelve a null.
	UpsertEvent(ctx context.Context, e domain.Event) (inserted bool, err error)

	// CreateEvent inserta un evento manual con solo título (seed admin).
	CreateEvent(ctx context.Context, title string) (domain.Event, error)

	// ListEvents devuelve los eventos más recientes primero.
	ListEvents(ctx context.Context, limit int) ([]domain.Event, error)

	// ListMissingTokens devuelve eventos sin yes token, ordenados por
	// volumen descendente (los más relevantes primero).
	ListMissingTokens(ctx context.Context, limit int) ([]domain.Event, error)

	// CountMissingTokens cuenta los eventos aún sin token priceable.
	CountMissingTokens(ctx context.Context) (int, error)

	// ListQuotable devuelve eventos con yes token resuelto.
	ListQuotable(ctx context.Context, limit int) ([]domain.Event, error)

	// ListForecastable devuelve eventos con crowd price snapshoteado.
	ListForecastable(ctx context.Context, limit int) ([]domain.Event, error)

	// ListScorable devuelve eventos con ambas probabilidades y sin
	// resolución registrada todavía.
	ListScorable(ctx context.Context, limit int) ([]domain.Event, error)

	// SetTokens actualiza los token ids de forma aditiva.
	SetTokens(ctx context.Context, eventID string, tp domain.TokenPair) error

	// SetCrowdP escribe el último snapshot del crowd price.
	SetCrowdP(ctx context.Context, eventID string, p float64) error

	// SetAdjustedP escribe la última salida del estimador.
	SetAdjustedP(ctx context.Context, eventID string, p float64) error

	// InsertResolution registra el outcome y los scores (insert-or-replace
	// por evento; en operación normal se escribe una sola vez).
	InsertResolution(ctx context.Context, r domain.Resolution) error

	// Scoreboard devuelve el agregado de accuracy sobre las resoluciones.
	Scoreboard(ctx context.Context) (domain.Scoreboard, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
