package pipeline

// hydrate.go — job hydrate_tokens.
//
// Segunda oportunidad para eventos que quedaron sin token ids en el
// descubrimiento: pide el documento de detalle y reintenta la resolución.
// La escritura es aditiva — nunca pisa un token ya hidratado.

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/edgemachine/config"
	"github.com/alejandrodnm/edgemachine/internal/domain"
	"github.com/alejandrodnm/edgemachine/internal/ports"
)

// Hydrator ejecuta el job de hidratación de tokens.
type Hydrator struct {
	catalog ports.CatalogProvider
	store   ports.EventStore
	cfg     config.HydrateConfig
}

// NewHydrator crea el job de hidratación.
func NewHydrator(catalog ports.CatalogProvider, store ports.EventStore, cfg config.HydrateConfig) *Hydrator {
	return &Hydrator{catalog: catalog, store: store, cfg: cfg}
}

// HydrateSummary es el resultado estructurado de un run de hidratación.
type HydrateSummary struct {
	Attempted      int     `json:"attempted"`
	Hydrated       int     `json:"hydrated"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Run hidrata hasta Limit eventos sin token, mayor volumen primero.
func (h *Hydrator) Run(ctx context.Context) (HydrateSummary, error) {
	start := time.Now()
	deadline := start.Add(h.cfg.TimeBudget())
	var sum HydrateSummary

	events, err := h.store.ListMissingTokens(ctx, h.cfg.Limit)
	if err != nil {
		return sum, err
	}

	for _, e := range events {
		if overBudget(ctx, deadline) {
			slog.Warn("hydrate: time budget exhausted", "attempted", sum.Attempted)
			break
		}
		if e.SourceID == "" {
			// seed manual sin referencia al catálogo, nada que pedir
			continue
		}
		sum.Attempted++

		doc, err := h.catalog.GetMarketDetail(ctx, e.SourceID)
		if err != nil {
			slog.Debug("hydrate: detail fetch failed", "source_id", e.SourceID, "err", err)
			continue
		}
		if doc == nil {
			continue
		}

		tp := domain.ResolveTokens(doc)
		if !tp.Resolved() {
			continue
		}
		if err := h.store.SetTokens(ctx, e.ID, tp); err != nil {
			slog.Warn("hydrate: set tokens failed", "event_id", e.ID, "err", err)
			continue
		}
		sum.Hydrated++
	}

	sum.ElapsedSeconds = time.Since(start).Seconds()
	slog.Info("hydrate run finished",
		"attempted", sum.Attempted, "hydrated", sum.Hydrated,
		"elapsed_seconds", sum.ElapsedSeconds)
	return sum, nil
}
