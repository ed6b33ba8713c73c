package pipeline

// snapshot.go — job update_prices.
//
// Pide el midpoint del yes token de cada evento quotable y lo persiste como
// crowd probability. Un quote no disponible salta el evento sin tumbar el
// run; un valor no parseable cae al prior neutro 0.5 vía ClampProbability.

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alejandrodnm/edgemachine/config"
	"github.com/alejandrodnm/edgemachine/internal/domain"
	"github.com/alejandrodnm/edgemachine/internal/ports"
)

// Snapshotter ejecuta el job de snapshot de precios.
type Snapshotter struct {
	quotes ports.QuoteProvider
	store  ports.EventStore
	cfg    config.SnapshotConfig
}

// NewSnapshotter crea el job de snapshot.
func NewSnapshotter(quotes ports.QuoteProvider, store ports.EventStore, cfg config.SnapshotConfig) *Snapshotter {
	return &Snapshotter{quotes: quotes, store: store, cfg: cfg}
}

// SnapshotSummary es el resultado estructurado de un run de snapshot.
type SnapshotSummary struct {
	Updated            int     `json:"updated"`
	SkippedNoToken     int     `json:"skipped_no_token"`
	SkippedUnavailable int     `json:"skipped_unavailable"`
	ElapsedSeconds     float64 `json:"elapsed_seconds"`
}

// Run snapshotea hasta Limit precios, mayor volumen primero.
func (s *Snapshotter) Run(ctx context.Context) (SnapshotSummary, error) {
	start := time.Now()
	deadline := start.Add(s.cfg.TimeBudget())
	var sum SnapshotSummary

	missing, err := s.store.CountMissingTokens(ctx)
	if err != nil {
		return sum, err
	}
	sum.SkippedNoToken = missing

	events, err := s.store.ListQuotable(ctx, s.cfg.Limit)
	if err != nil {
		return sum, err
	}

	for _, e := range events {
		if overBudget(ctx, deadline) {
			slog.Warn("snapshot: time budget exhausted", "updated", sum.Updated)
			break
		}

		p, err := s.quotes.Midpoint(ctx, e.YesTokenID)
		if errors.Is(err, ports.ErrUnavailable) {
			sum.SkippedUnavailable++
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Warn("snapshot: quote failed", "event_id", e.ID, "err", err)
			sum.SkippedUnavailable++
			continue
		}

		p = domain.ClampProbability(p)
		if err := s.store.SetCrowdP(ctx, e.ID, p); err != nil {
			slog.Warn("snapshot: persist failed", "event_id", e.ID, "err", err)
			continue
		}
		sum.Updated++
	}

	sum.ElapsedSeconds = time.Since(start).Seconds()
	slog.Info("snapshot run finished",
		"updated", sum.Updated, "skipped_no_token", sum.SkippedNoToken,
		"skipped_unavailable", sum.SkippedUnavailable,
		"elapsed_seconds", sum.ElapsedSeconds)
	return sum, nil
}
