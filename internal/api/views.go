package api

import (
	"time"

	"github.com/alejandrodnm/edgemachine/internal/domain"
)

// eventView es la representación JSON pública de un evento.
// Las probabilidades son punteros: null distingue "sin snapshot todavía"
// de un 0.0 real.
type eventView struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Slug       string   `json:"slug,omitempty"`
	SourceID   string   `json:"source_id,omitempty"`
	YesTokenID string   `json:"yes_token_id,omitempty"`
	NoTokenID  string   `json:"no_token_id,omitempty"`
	Positional bool     `json:"positional,omitempty"`
	Volume24h  float64  `json:"volume_24h"`
	CrowdP     *float64 `json:"crowd_p"`
	AdjustedP  *float64 `json:"adjusted_p"`
	CreatedAt  string   `json:"created_at"`
}

func newEventView(e domain.Event) eventView {
	return eventView{
		ID:         e.ID,
		Title:      e.Title,
		Slug:       e.Slug,
		SourceID:   e.SourceID,
		YesTokenID: e.YesTokenID,
		NoTokenID:  e.NoTokenID,
		Positional: e.Positional,
		Volume24h:  e.Volume24h,
		CrowdP:     e.CrowdP,
		AdjustedP:  e.AdjustedP,
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
