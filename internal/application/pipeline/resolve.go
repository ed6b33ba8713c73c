package pipeline

// resolve.go — job resolve_markets.
//
// Consulta el catálogo por cada evento scorable: si el mercado cerró con un
// outcome Yes/No reconocible, congela las probabilidades actuales y registra
// la resolución con ambos Brier scores. Mercados abiertos se saltan sin
// penalidad; outcomes irreconocibles quedan para un run futuro.

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/edgemachine/config"
	"github.com/alejandrodnm/edgemachine/internal/domain"
	"github.com/alejandrodnm/edgemachine/internal/ports"
)

// Resolver ejecuta el job de resolución y scoring.
type Resolver struct {
	catalog ports.CatalogProvider
	store   ports.EventStore
	cfg     config.ResolveConfig
}

// NewResolver crea el job de resolución.
func NewResolver(catalog ports.CatalogProvider, store ports.EventStore, cfg config.ResolveConfig) *Resolver {
	return &Resolver{catalog: catalog, store: store, cfg: cfg}
}

// ResolveSummary es el resultado estructurado de un run de resolución.
type ResolveSummary struct {
	Scanned             int     `json:"scanned"`
	Resolved            int     `json:"resolved"`
	SkippedOpen         int     `json:"skipped_open"`
	SkippedUnresolvable int     `json:"skipped_unresolvable"`
	ElapsedSeconds      float64 `json:"elapsed_seconds"`
}

// Run intenta resolver hasta Limit eventos scorables.
func (r *Resolver) Run(ctx context.Context) (ResolveSummary, error) {
	start := time.Now()
	deadline := start.Add(r.cfg.TimeBudget())
	var sum ResolveSummary

	events, err := r.store.ListScorable(ctx, r.cfg.Limit)
	if err != nil {
		return sum, err
	}

	for _, e := range events {
		if overBudget(ctx, deadline) {
			slog.Warn("resolve: time budget exhausted", "scanned", sum.Scanned)
			break
		}
		sum.Scanned++

		if e.SourceID == "" {
			sum.SkippedUnresolvable++
			continue
		}

		doc, err := r.catalog.GetMarketDetail(ctx, e.SourceID)
		if err != nil {
			slog.Debug("resolve: detail fetch failed", "source_id", e.SourceID, "err", err)
			sum.SkippedUnresolvable++
			continue
		}
		if doc == nil {
			sum.SkippedUnresolvable++
			continue
		}
		if !doc.Closed() {
			sum.SkippedOpen++
			continue
		}

		outcome, ok := parseOutcome(doc.Outcome())
		if !ok {
			sum.SkippedUnresolvable++
			continue
		}

		res := domain.NewResolution(e, outcome, time.Now().UTC())
		if err := r.store.InsertResolution(ctx, res); err != nil {
			slog.Warn("resolve: persist failed", "event_id", e.ID, "err", err)
			continue
		}
		sum.Resolved++
		slog.Info("event resolved", "event_id", e.ID, "outcome", outcome,
			"crowd_brier", res.CrowdBrier, "adjusted_brier", res.AdjustedBrier)
	}

	sum.ElapsedSeconds = time.Since(start).Seconds()
	slog.Info("resolve run finished",
		"scanned", sum.Scanned, "resolved", sum.Resolved,
		"skipped_open", sum.SkippedOpen,
		"skipped_unresolvable", sum.SkippedUnresolvable,
		"elapsed_seconds", sum.ElapsedSeconds)
	return sum, nil
}

// parseOutcome mapea el outcome declarado a booleano, cualquier casing.
func parseOutcome(label string) (outcome, ok bool) {
	switch {
	case domain.IsYesOutcome(label):
		return true, true
	case domain.IsNoOutcome(label):
		return false, true
	}
	return false, false
}
