package storage

// sqlite.go — event store idempotente.
//
// Estrategia:
//   - `events`: UNA fila por mercado, UPSERT por natural_key (slug, o
//     source id como fallback). Re-descubrir un mercado actualiza título/
//     source id/volumen; los token ids son aditivos — un token hidratado
//     nunca vuelve a NULL.
//   - `resolutions`: write-once por evento (INSERT OR REPLACE permite
//     corregir scoring bugs). Probabilidades congeladas en el momento del
//     scoring, independientes de mutaciones posteriores del evento.
//   - Sesiones cortas: cada operación es un statement o una tx acotada;
//     ninguna tx abierta cruza una llamada de red.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/edgemachine/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
-- Un mercado binario descubierto; natural_key lo deduplica entre runs
CREATE TABLE IF NOT EXISTS events (
    id           TEXT PRIMARY KEY,
    natural_key  TEXT NOT NULL UNIQUE,
    title        TEXT NOT NULL,
    slug         TEXT,
    source_id    TEXT,
    yes_token_id TEXT,
    no_token_id  TEXT,
    positional   INTEGER NOT NULL DEFAULT 0,
    volume_24h   REAL    NOT NULL DEFAULT 0,
    crowd_p      REAL,
    adjusted_p   REAL,
    created_at   TEXT    NOT NULL
);

-- Outcome real y accuracy, congelados al momento del scoring
CREATE TABLE IF NOT EXISTS resolutions (
    event_id       TEXT PRIMARY KEY REFERENCES events(id),
    outcome        INTEGER NOT NULL,
    crowd_p        REAL    NOT NULL,
    adjusted_p     REAL    NOT NULL,
    crowd_brier    REAL    NOT NULL,
    adjusted_brier REAL    NOT NULL,
    resolved_at    TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_volume  ON events(volume_24h DESC);
`

// SQLiteStore implementa ports.EventStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica
// el schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertEvent inserta o actualiza por natural key.
// En update: título, source id y volumen se refrescan; los tokens solo se
// escriben si la fila aún no los tenía.
func (s *SQLiteStore) UpsertEvent(ctx context.Context, e domain.Event) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, fmt.Errorf("storage.UpsertEvent: invalid event: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("storage.UpsertEvent: begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM events WHERE natural_key = ?`, e.NaturalKey(),
	).Scan(&existing)

	switch {
	case err == sql.ErrNoRows:
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO events
				(id, natural_key, title, slug, source_id, yes_token_id,
				 no_token_id, positional, volume_24h, crowd_p, adjusted_p, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?)`,
			id, e.NaturalKey(), e.Title, nullable(e.Slug), nullable(e.SourceID),
			nullable(e.YesTokenID), nullable(e.NoTokenID), boolToInt(e.Positional),
			e.Volume24h, formatTime(e.CreatedAt),
		)
		if err != nil {
			return false, fmt.Errorf("storage.UpsertEvent: insert %s: %w", e.NaturalKey(), err)
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("storage.UpsertEvent: commit: %w", err)
		}
		return true, nil

	case err != nil:
		return false, fmt.Errorf("storage.UpsertEvent: lookup %s: %w", e.NaturalKey(), err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE events SET
			title        = ?,
			source_id    = COALESCE(?, source_id),
			volume_24h   = ?,
			yes_token_id = COALESCE(yes_token_id, ?),
			no_token_id  = COALESCE(no_token_id, ?),
			positional   = CASE WHEN yes_token_id IS NULL AND ? IS NOT NULL
			                    THEN ? ELSE positional END
		WHERE id = ?`,
		e.Title, nullable(e.SourceID), e.Volume24h,
		nullable(e.YesTokenID), nullable(e.NoTokenID),
		nullable(e.YesTokenID), boolToInt(e.Positional),
		existing,
	)
	if err != nil {
		return false, fmt.Errorf("storage.UpsertEvent: update %s: %w", e.NaturalKey(), err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("storage.UpsertEvent: commit: %w", err)
	}
	return false, nil
}

// CreateEvent inserta un evento manual con solo título. La natural key es
// el propio id — un seed manual no tiene slug hasta que se hidrata.
func (s *SQLiteStore) CreateEvent(ctx context.Context, title string) (domain.Event, error) {
	e := domain.Event{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events
			(id, natural_key, title, slug, source_id, yes_token_id,
			 no_token_id, positional, volume_24h, crowd_p, adjusted_p, created_at)
		VALUES (?, ?, ?, NULL, NULL, NULL, NULL, 0, 0, NULL, NULL, ?)`,
		e.ID, e.ID, e.Title, formatTime(e.CreatedAt),
	)
	if err != nil {
		return domain.Event{}, fmt.Errorf("storage.CreateEvent: %w", err)
	}
	return e, nil
}

const eventCols = `id, title, slug, source_id, yes_token_id, no_token_id,
	positional, volume_24h, crowd_p, adjusted_p, created_at`

// ListEvents devuelve los eventos más recientes primero.
func (s *SQLiteStore) ListEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.queryEvents(ctx,
		`SELECT `+eventCols+` FROM events ORDER BY created_at DESC LIMIT ?`, limit)
}

// ListMissingTokens devuelve eventos sin yes token, mayor volumen primero.
func (s *SQLiteStore) ListMissingTokens(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventCols+` FROM events
		WHERE yes_token_id IS NULL
		ORDER BY volume_24h DESC, created_at DESC LIMIT ?`, limit)
}

// CountMissingTokens cuenta los eventos aún sin token priceable.
func (s *SQLiteStore) CountMissingTokens(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE yes_token_id IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage.CountMissingTokens: %w", err)
	}
	return n, nil
}

// ListQuotable devuelve eventos con yes token resuelto.
func (s *SQLiteStore) ListQuotable(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventCols+` FROM events
		WHERE yes_token_id IS NOT NULL
		ORDER BY volume_24h DESC, created_at DESC LIMIT ?`, limit)
}

// ListForecastable devuelve eventos con crowd price snapshoteado.
func (s *SQLiteStore) ListForecastable(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventCols+` FROM events
		WHERE crowd_p IS NOT NULL
		ORDER BY volume_24h DESC, created_at DESC LIMIT ?`, limit)
}

// ListScorable devuelve eventos con ambas probabilidades y sin resolución.
func (s *SQLiteStore) ListScorable(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventCols+` FROM events
		WHERE crowd_p IS NOT NULL
		  AND adjusted_p IS NOT NULL
		  AND id NOT IN (SELECT event_id FROM resolutions)
		ORDER BY volume_24h DESC, created_at DESC LIMIT ?`, limit)
}

// SetTokens actualiza los token ids de forma aditiva: un token existente
// nunca se sobreescribe ni se borra.
func (s *SQLiteStore) SetTokens(ctx context.Context, eventID string, tp domain.TokenPair) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE events SET
			yes_token_id = COALESCE(yes_token_id, ?),
			no_token_id  = COALESCE(no_token_id, ?),
			positional   = CASE WHEN yes_token_id IS NULL AND ? IS NOT NULL
			                    THEN ? ELSE positional END
		WHERE id = ?`,
		nullable(tp.Yes), nullable(tp.No),
		nullable(tp.Yes), boolToInt(tp.Positional),
		eventID,
	)
	if err != nil {
		return fmt.Errorf("storage.SetTokens %s: %w", eventID, err)
	}
	return nil
}

// SetCrowdP escribe el último snapshot del crowd price.
func (s *SQLiteStore) SetCrowdP(ctx context.Context, eventID string, p float64) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE events SET crowd_p = ? WHERE id = ?`, p, eventID); err != nil {
		return fmt.Errorf("storage.SetCrowdP %s: %w", eventID, err)
	}
	return nil
}

// SetAdjustedP escribe la última salida del estimador.
func (s *SQLiteStore) SetAdjustedP(ctx context.Context, eventID string, p float64) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE events SET adjusted_p = ? WHERE id = ?`, p, eventID); err != nil {
		return fmt.Errorf("storage.SetAdjustedP %s: %w", eventID, err)
	}
	return nil
}

// InsertResolution registra el outcome y los scores del evento.
// INSERT OR REPLACE por event_id: permite corregir un scoring bug, pero en
// operación normal se escribe una sola vez.
func (s *SQLiteStore) InsertResolution(ctx context.Context, r domain.Resolution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO resolutions
			(event_id, outcome, crowd_p, adjusted_p, crowd_brier, adjusted_brier, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.EventID, boolToInt(r.Outcome), r.CrowdP, r.AdjustedP,
		r.CrowdBrier, r.AdjustedBrier, formatTime(r.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.InsertResolution %s: %w", r.EventID, err)
	}
	return nil
}

// Scoreboard devuelve el agregado de accuracy sobre todas las resoluciones.
// Sin resoluciones devuelve el empty state explícito.
func (s *SQLiteStore) Scoreboard(ctx context.Context) (domain.Scoreboard, error) {
	var count int
	var crowdMean, adjustedMean sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(crowd_brier), AVG(adjusted_brier) FROM resolutions`,
	).Scan(&count, &crowdMean, &adjustedMean)
	if err != nil {
		return domain.Scoreboard{}, fmt.Errorf("storage.Scoreboard: %w", err)
	}
	return domain.NewScoreboard(count, crowdMean.Float64, adjustedMean.Float64), nil
}

// --- helpers internos ---

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.queryEvents: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("storage.queryEvents: scan row: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(scan func(...any) error) (domain.Event, error) {
	var e domain.Event
	var slug, sourceID, yesToken, noToken sql.NullString
	var crowdP, adjustedP sql.NullFloat64
	var positional int
	var createdAt string

	err := scan(
		&e.ID, &e.Title, &slug, &sourceID, &yesToken, &noToken,
		&positional, &e.Volume24h, &crowdP, &adjustedP, &createdAt,
	)
	if err != nil {
		return domain.Event{}, err
	}

	e.Slug = slug.String
	e.SourceID = sourceID.String
	e.YesTokenID = yesToken.String
	e.NoTokenID = noToken.String
	e.Positional = positional == 1
	if crowdP.Valid {
		v := crowdP.Float64
		e.CrowdP = &v
	}
	if adjustedP.Valid {
		v := adjustedP.Float64
		e.AdjustedP = &v
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return e, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
