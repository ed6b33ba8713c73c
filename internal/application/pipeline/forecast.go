package pipeline

// forecast.go — job forecast_machine.
//
// Recalcula la probabilidad ajustada de cada evento con crowd price usando
// el estimador del domain. Puro CPU + storage, sin llamadas de red.

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/edgemachine/config"
	"github.com/alejandrodnm/edgemachine/internal/domain"
	"github.com/alejandrodnm/edgemachine/internal/ports"
)

// Forecaster ejecuta el job del estimador.
type Forecaster struct {
	store ports.EventStore
	cfg   config.ForecastConfig
}

// NewForecaster crea el job del estimador.
func NewForecaster(store ports.EventStore, cfg config.ForecastConfig) *Forecaster {
	return &Forecaster{store: store, cfg: cfg}
}

// ForecastSummary es el resultado estructurado de un run del estimador.
type ForecastSummary struct {
	Updated        int     `json:"updated"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Run recalcula hasta Limit probabilidades ajustadas.
func (f *Forecaster) Run(ctx context.Context) (ForecastSummary, error) {
	start := time.Now()
	deadline := start.Add(f.cfg.TimeBudget())
	var sum ForecastSummary

	events, err := f.store.ListForecastable(ctx, f.cfg.Limit)
	if err != nil {
		return sum, err
	}

	params := domain.AdjustParams{
		VolAnchorUSD:     f.cfg.VolAnchorUSD,
		RegressionFactor: f.cfg.RegressionFactor,
	}

	for _, e := range events {
		if overBudget(ctx, deadline) {
			slog.Warn("forecast: time budget exhausted", "updated", sum.Updated)
			break
		}

		p := params.Adjust(*e.CrowdP, e.Volume24h)
		if err := f.store.SetAdjustedP(ctx, e.ID, p); err != nil {
			slog.Warn("forecast: persist failed", "event_id", e.ID, "err", err)
			continue
		}
		sum.Updated++
	}

	sum.ElapsedSeconds = time.Since(start).Seconds()
	slog.Info("forecast run finished",
		"updated", sum.Updated, "elapsed_seconds", sum.ElapsedSeconds)
	return sum, nil
}
