package domain

import (
	"errors"
	"math"
	"time"
)

// Event representa un mercado de predicción binario descubierto en el catálogo.
// La natural key (slug, o source id como fallback) lo deduplica entre runs.
type Event struct {
	ID         string    // asignado en el primer descubrimiento, inmutable
	Title      string
	Slug       string    // slug humano de Gamma, preferido como natural key
	SourceID   string    // id del mercado en el catálogo upstream
	YesTokenID string    // "" = sin resolver; nunca se regresa a vacío
	NoTokenID  string
	Positional bool      // tokens resueltos por la heurística posicional [yes, no]
	Volume24h  float64   // señal de liquidez; 0 si upstream no la reporta
	CrowdP     *float64  // última probabilidad implícita del mercado, [0,1]
	AdjustedP  *float64  // última salida del estimador, [0,1]
	CreatedAt  time.Time // inmutable
}

// NaturalKey devuelve el identificador externo estable del evento.
func (e Event) NaturalKey() string {
	if e.Slug != "" {
		return e.Slug
	}
	return e.SourceID
}

// Validate comprueba las restricciones mínimas para persistir el evento.
func (e Event) Validate() error {
	if e.Title == "" {
		return errors.New("event title must not be empty")
	}
	if e.NaturalKey() == "" {
		return errors.New("event natural key must not be empty")
	}
	if e.CrowdP != nil && (*e.CrowdP < 0 || *e.CrowdP > 1) {
		return errors.New("crowd probability must be between 0.0 and 1.0")
	}
	if e.AdjustedP != nil && (*e.AdjustedP < 0 || *e.AdjustedP > 1) {
		return errors.New("adjusted probability must be between 0.0 and 1.0")
	}
	if e.Volume24h < 0 {
		return errors.New("volume 24h must not be negative")
	}
	return nil
}

// Scorable indica si el evento tiene ambas probabilidades y puede puntuarse.
func (e Event) Scorable() bool {
	return e.CrowdP != nil && e.AdjustedP != nil
}

// Resolution es el outcome real y el registro de accuracy de un evento.
// Las probabilidades son copias congeladas en el momento del scoring —
// mutaciones posteriores del evento no reescriben el histórico.
type Resolution struct {
	EventID       string
	Outcome       bool // true = ocurrió "yes"
	CrowdP        float64
	AdjustedP     float64
	CrowdBrier    float64
	AdjustedBrier float64
	ResolvedAt    time.Time
}

// ClampProbability normaliza un precio crudo del quoting service a [0,1].
// Valores no parseables (NaN) caen al prior neutro 0.5 — downstream siempre
// necesita un input definido, nunca se rechaza.
func ClampProbability(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Brier devuelve el error cuadrático de una probabilidad contra el outcome.
func Brier(p float64, outcome bool) float64 {
	o := 0.0
	if outcome {
		o = 1.0
	}
	d := p - o
	return d * d
}

// NewResolution congela las probabilidades actuales del evento y calcula
// ambos Brier scores.
func NewResolution(e Event, outcome bool, at time.Time) Resolution {
	return Resolution{
		EventID:       e.ID,
		Outcome:       outcome,
		CrowdP:        *e.CrowdP,
		AdjustedP:     *e.AdjustedP,
		CrowdBrier:    Brier(*e.CrowdP, outcome),
		AdjustedBrier: Brier(*e.AdjustedP, outcome),
		ResolvedAt:    at,
	}
}

// Scoreboard es el agregado read-only sobre todas las resoluciones.
type Scoreboard struct {
	Count             int     `json:"count"`
	CrowdBrierMean    float64 `json:"crowd_brier_mean"`
	AdjustedBrierMean float64 `json:"adjusted_brier_mean"`
	ImprovementPct    float64 `json:"improvement_pct"`
}

// NewScoreboard calcula el agregado. Con cero resoluciones devuelve el
// empty state explícito en lugar de dividir por cero.
func NewScoreboard(count int, crowdMean, adjustedMean float64) Scoreboard {
	if count == 0 {
		return Scoreboard{}
	}
	sb := Scoreboard{
		Count:             count,
		CrowdBrierMean:    crowdMean,
		AdjustedBrierMean: adjustedMean,
	}
	if crowdMean > 0 {
		sb.ImprovementPct = (crowdMean - adjustedMean) / crowdMean * 100
	}
	return sb
}
