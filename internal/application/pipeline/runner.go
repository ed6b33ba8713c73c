package pipeline

// runner.go — registro y despacho de jobs por nombre.
//
// Un nombre desconocido se rechaza antes de tocar red o storage. Cada run
// es one-shot: recibe un ctx, respeta su presupuesto de reloj y devuelve
// un summary estructurado.

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/edgemachine/config"
	"github.com/alejandrodnm/edgemachine/internal/ports"
)

// Nombres públicos de los jobs del pipeline.
const (
	JobDiscover = "discover_markets"
	JobHydrate  = "hydrate_tokens"
	JobSnapshot = "update_prices"
	JobForecast = "forecast_machine"
	JobResolve  = "resolve_markets"
)

// ErrUnknownJob se devuelve cuando el nombre no está en el registro.
var ErrUnknownJob = fmt.Errorf("unknown job name")

// Runner conoce todos los jobs del pipeline y los despacha por nombre.
type Runner struct {
	jobs map[string]func(context.Context) (any, error)
}

// NewRunner construye el registro completo de jobs sobre los providers dados.
func NewRunner(catalog ports.CatalogProvider, quotes ports.QuoteProvider, store ports.EventStore, cfg *config.Config) *Runner {
	discover := NewDiscoverer(catalog, store, cfg.Jobs.Discover)
	hydrate := NewHydrator(catalog, store, cfg.Jobs.Hydrate)
	snapshot := NewSnapshotter(quotes, store, cfg.Jobs.Snapshot)
	forecast := NewForecaster(store, cfg.Forecast)
	resolve := NewResolver(catalog, store, cfg.Jobs.Resolve)

	return &Runner{jobs: map[string]func(context.Context) (any, error){
		JobDiscover: func(ctx context.Context) (any, error) { return discover.Run(ctx) },
		JobHydrate:  func(ctx context.Context) (any, error) { return hydrate.Run(ctx) },
		JobSnapshot: func(ctx context.Context) (any, error) { return snapshot.Run(ctx) },
		JobForecast: func(ctx context.Context) (any, error) { return forecast.Run(ctx) },
		JobResolve:  func(ctx context.Context) (any, error) { return resolve.Run(ctx) },
	}}
}

// JobNames devuelve los nombres registrados, para mensajes de error y CLI.
func (r *Runner) JobNames() []string {
	return []string{JobDiscover, JobHydrate, JobSnapshot, JobForecast, JobResolve}
}

// Run ejecuta el job con el nombre dado y devuelve su summary.
// Devuelve ErrUnknownJob sin efectos secundarios si el nombre no existe.
func (r *Runner) Run(ctx context.Context, name string) (any, error) {
	job, ok := r.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return job(ctx)
}
