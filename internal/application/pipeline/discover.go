package pipeline

// discover.go — job discover_markets.
//
// Pagina el catálogo, filtra candidatos (título + natural key, vigencia,
// keywords), los rankea por volumen + 0.1·liquidez y persiste los Top-N.
// Una página vacía o un fallo de fetch se tratan como fin de input, nunca
// como error del run. Las llamadas a detail por tokens tienen su propio
// presupuesto y un cache por source id dentro del run.

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/edgemachine/config"
	"github.com/alejandrodnm/edgemachine/internal/domain"
	"github.com/alejandrodnm/edgemachine/internal/ports"
)

const liquidityWeight = 0.1

// Discoverer ejecuta el job de descubrimiento de mercados.
type Discoverer struct {
	catalog ports.CatalogProvider
	store   ports.EventStore
	cfg     config.DiscoverConfig
}

// NewDiscoverer crea el job de descubrimiento.
func NewDiscoverer(catalog ports.CatalogProvider, store ports.EventStore, cfg config.DiscoverConfig) *Discoverer {
	return &Discoverer{catalog: catalog, store: store, cfg: cfg}
}

// DiscoverSummary es el resultado estructurado de un run de descubrimiento.
type DiscoverSummary struct {
	Pages          int     `json:"pages"`
	Scanned        int     `json:"scanned"`
	Candidates     int     `json:"candidates"`
	Discovered     int     `json:"discovered"`
	Inserted       int     `json:"inserted"`
	Tokened        int     `json:"tokened"`
	DetailCalls    int     `json:"detail_calls"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

type candidate struct {
	doc   domain.MarketDoc
	score float64
}

// Run ejecuta un ciclo completo de descubrimiento.
func (d *Discoverer) Run(ctx context.Context) (DiscoverSummary, error) {
	start := time.Now()
	deadline := start.Add(d.cfg.TimeBudget())
	var sum DiscoverSummary

	candidates := d.collect(ctx, deadline, &sum)
	sum.Candidates = len(candidates)

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > d.cfg.Limit {
		candidates = candidates[:d.cfg.Limit]
	}
	sum.Discovered = len(candidates)

	detailCache := make(map[string]domain.MarketDoc)
	for _, c := range candidates {
		if overBudget(ctx, deadline) {
			slog.Warn("discover: time budget exhausted", "persisted", sum.Inserted)
			break
		}
		d.persist(ctx, c.doc, detailCache, &sum)
	}

	sum.ElapsedSeconds = time.Since(start).Seconds()
	slog.Info("discover run finished",
		"pages", sum.Pages, "scanned", sum.Scanned, "candidates", sum.Candidates,
		"discovered", sum.Discovered, "inserted", sum.Inserted,
		"tokened", sum.Tokened, "detail_calls", sum.DetailCalls,
		"elapsed_seconds", sum.ElapsedSeconds)
	return sum, nil
}

// collect pagina el catálogo acumulando candidatos filtrados.
func (d *Discoverer) collect(ctx context.Context, deadline time.Time, sum *DiscoverSummary) []candidate {
	now := time.Now().UTC()
	var out []candidate

	for page := 0; page < d.cfg.Pages; page++ {
		if overBudget(ctx, deadline) {
			slog.Warn("discover: time budget exhausted during paging", "pages", sum.Pages)
			break
		}

		docs, err := d.catalog.ListMarkets(ctx, d.cfg.PageSize, page*d.cfg.PageSize)
		if err != nil {
			// fin de input, no error del run
			slog.Warn("discover: page fetch failed, stopping pagination",
				"page", page, "err", err)
			break
		}
		if len(docs) == 0 {
			break
		}
		sum.Pages++
		sum.Scanned += len(docs)

		for _, doc := range docs {
			if !d.eligible(doc, now) {
				continue
			}
			score := doc.Volume24h() + liquidityWeight*doc.Liquidity()
			out = append(out, candidate{doc: doc, score: score})
		}
	}
	return out
}

// eligible aplica los filtros de candidato sobre el documento de listado.
func (d *Discoverer) eligible(doc domain.MarketDoc, now time.Time) bool {
	if doc.Title() == "" {
		return false
	}
	if doc.Slug() == "" && doc.SourceID() == "" {
		return false
	}
	if d.cfg.RequireCurrent && !doc.Current(now) {
		return false
	}
	return d.matchesKeywords(doc.Title())
}

// matchesKeywords acepta el título si contiene alguno de los keywords
// configurados. Lista vacía = sin filtro.
func (d *Discoverer) matchesKeywords(title string) bool {
	if len(d.cfg.Keywords) == 0 {
		return true
	}
	lower := strings.ToLower(title)
	for _, kw := range d.cfg.Keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// persist resuelve los tokens del candidato (detalle bajo presupuesto si el
// listado no basta) y hace el upsert.
func (d *Discoverer) persist(ctx context.Context, doc domain.MarketDoc, cache map[string]domain.MarketDoc, sum *DiscoverSummary) {
	tp := domain.ResolveTokens(doc)

	if !tp.Resolved() && doc.SourceID() != "" && sum.DetailCalls < d.cfg.DetailBudget {
		detail, ok := cache[doc.SourceID()]
		if !ok {
			var err error
			detail, err = d.catalog.GetMarketDetail(ctx, doc.SourceID())
			sum.DetailCalls++
			if err != nil {
				slog.Debug("discover: detail fetch failed",
					"source_id", doc.SourceID(), "err", err)
			}
			cache[doc.SourceID()] = detail
		}
		if detail != nil {
			tp = domain.ResolveTokens(detail)
		}
	}

	e := domain.Event{
		Title:      doc.Title(),
		Slug:       doc.Slug(),
		SourceID:   doc.SourceID(),
		YesTokenID: tp.Yes,
		NoTokenID:  tp.No,
		Positional: tp.Positional,
		Volume24h:  doc.Volume24h(),
		CreatedAt:  time.Now().UTC(),
	}

	inserted, err := d.store.UpsertEvent(ctx, e)
	if err != nil {
		slog.Warn("discover: upsert failed", "natural_key", e.NaturalKey(), "err", err)
		return
	}
	if inserted {
		sum.Inserted++
	}
	if tp.Resolved() {
		sum.Tokened++
	}
}

// overBudget comprueba cooperativamente el presupuesto de reloj y el ctx.
func overBudget(ctx context.Context, deadline time.Time) bool {
	return ctx.Err() != nil || time.Now().After(deadline)
}
