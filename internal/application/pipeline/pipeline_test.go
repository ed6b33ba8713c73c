package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/edgemachine/config"
	"github.com/alejandrodnm/edgemachine/internal/adapters/storage"
	"github.com/alejandrodnm/edgemachine/internal/domain"
	"github.com/alejandrodnm/edgemachine/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog sirve páginas fijas y detalles por source id.
type fakeCatalog struct {
	pages       [][]domain.MarketDoc
	details     map[string]domain.MarketDoc
	listErr     error
	listCalls   int
	detailCalls int
}

func (f *fakeCatalog) ListMarkets(ctx context.Context, limit, offset int) ([]domain.MarketDoc, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	page := offset / limit
	if page >= len(f.pages) {
		return nil, nil
	}
	return f.pages[page], nil
}

func (f *fakeCatalog) GetMarketDetail(ctx context.Context, marketID string) (domain.MarketDoc, error) {
	f.detailCalls++
	return f.details[marketID], nil
}

// fakeQuotes responde midpoints por token id.
type fakeQuotes struct {
	prices map[string]float64
}

func (f *fakeQuotes) Midpoint(ctx context.Context, tokenID string) (float64, error) {
	p, ok := f.prices[tokenID]
	if !ok {
		return 0, ports.ErrUnavailable
	}
	return p, nil
}

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	s, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func discoverCfg() config.DiscoverConfig {
	return config.DiscoverConfig{
		Pages: 3, PageSize: 2, Limit: 10,
		DetailBudget: 5, TimeBudgetSeconds: 30,
	}
}

func marketDoc(slug string, volume float64) domain.MarketDoc {
	return domain.MarketDoc{
		"question":   "Will " + slug + "?",
		"slug":       slug,
		"id":         "id-" + slug,
		"volume24hr": volume,
	}
}

func TestDiscover_PersistsTopCandidates(t *testing.T) {
	store := newTestStore(t)
	cat := &fakeCatalog{pages: [][]domain.MarketDoc{
		{marketDoc("a", 100), marketDoc("b", 9000)},
		{marketDoc("c", 500), {"slug": "sin-titulo"}},
	}}

	cfg := discoverCfg()
	cfg.Limit = 2
	sum, err := NewDiscoverer(cat, store, cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Pages)
	assert.Equal(t, 4, sum.Scanned)
	assert.Equal(t, 3, sum.Candidates) // el doc sin título no es candidato
	assert.Equal(t, 2, sum.Discovered)
	assert.Equal(t, 2, sum.Inserted)

	// sobreviven los dos de mayor score
	events, err := store.ListEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	slugs := []string{events[0].Slug, events[1].Slug}
	assert.Contains(t, slugs, "b")
	assert.Contains(t, slugs, "c")
}

func TestDiscover_SecondRunIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	cat := &fakeCatalog{pages: [][]domain.MarketDoc{{marketDoc("a", 100)}}}
	d := NewDiscoverer(cat, store, discoverCfg())

	sum, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Inserted)

	sum, err = d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Discovered)
	assert.Equal(t, 0, sum.Inserted)
}

func TestDiscover_PageErrorEndsInputWithoutFailing(t *testing.T) {
	store := newTestStore(t)
	cat := &fakeCatalog{listErr: errors.New("gamma down")}

	sum, err := NewDiscoverer(cat, store, discoverCfg()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Pages)
	assert.Equal(t, 1, cat.listCalls, "stops after first failed page")
}

func TestDiscover_KeywordFilter(t *testing.T) {
	store := newTestStore(t)
	cat := &fakeCatalog{pages: [][]domain.MarketDoc{
		{marketDoc("bitcoin-100k", 100), marketDoc("rain-tomorrow", 200)},
	}}

	cfg := discoverCfg()
	cfg.Keywords = []string{"Bitcoin"}
	sum, err := NewDiscoverer(cat, store, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Candidates)

	events, err := store.ListEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "bitcoin-100k", events[0].Slug)
}

func TestDiscover_RequireCurrentSkipsClosed(t *testing.T) {
	store := newTestStore(t)
	closed := marketDoc("done", 100)
	closed["closed"] = true
	cat := &fakeCatalog{pages: [][]domain.MarketDoc{{closed, marketDoc("open", 50)}}}

	cfg := discoverCfg()
	cfg.RequireCurrent = true
	sum, err := NewDiscoverer(cat, store, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Candidates)
}

func TestDiscover_DetailFallbackForTokens(t *testing.T) {
	store := newTestStore(t)
	doc := marketDoc("a", 100) // el listado no trae tokens
	cat := &fakeCatalog{
		pages: [][]domain.MarketDoc{{doc}},
		details: map[string]domain.MarketDoc{
			"id-a": {
				"question":   "Will a?",
				"slug":       "a",
				"id":         "id-a",
				"yesTokenId": "Y1",
				"noTokenId":  "N1",
			},
		},
	}

	sum, err := NewDiscoverer(cat, store, discoverCfg()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.DetailCalls)
	assert.Equal(t, 1, sum.Tokened)

	events, err := store.ListEvents(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Y1", events[0].YesTokenID)
}

func TestDiscover_DetailBudgetRespected(t *testing.T) {
	store := newTestStore(t)
	cat := &fakeCatalog{pages: [][]domain.MarketDoc{
		{marketDoc("a", 1), marketDoc("b", 2)},
	}}

	cfg := discoverCfg()
	cfg.DetailBudget = 1
	sum, err := NewDiscoverer(cat, store, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.DetailCalls)
	assert.Equal(t, 1, cat.detailCalls)
}

func TestHydrate_FillsTokensAdditively(t *testing.T) {
	store := newTestStore(t)
	_, err := store.UpsertEvent(context.Background(), domain.Event{
		Title: "Q", Slug: "q", SourceID: "id-q", CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	cat := &fakeCatalog{details: map[string]domain.MarketDoc{
		"id-q": {"tokens": []any{
			map[string]any{"outcome": "Yes", "token_id": "Y9"},
			map[string]any{"outcome": "No", "token_id": "N9"},
		}},
	}}

	cfg := config.HydrateConfig{Limit: 10, TimeBudgetSeconds: 30}
	sum, err := NewHydrator(cat, store, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Attempted)
	assert.Equal(t, 1, sum.Hydrated)

	events, err := store.ListEvents(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Y9", events[0].YesTokenID)
	assert.Equal(t, "N9", events[0].NoTokenID)
}

func TestHydrate_ManualSeedWithoutSourceIsSkipped(t *testing.T) {
	store := newTestStore(t)
	_, err := store.CreateEvent(context.Background(), "Manual question?")
	require.NoError(t, err)

	cat := &fakeCatalog{}
	cfg := config.HydrateConfig{Limit: 10, TimeBudgetSeconds: 30}
	sum, err := NewHydrator(cat, store, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Attempted)
	assert.Equal(t, 0, cat.detailCalls)
}

func snapshotFixture(t *testing.T, store *storage.SQLiteStore, slug, token string) string {
	t.Helper()
	_, err := store.UpsertEvent(context.Background(), domain.Event{
		Title: "Q " + slug, Slug: slug, YesTokenID: token,
		Volume24h: 100, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	events, err := store.ListEvents(context.Background(), 50)
	require.NoError(t, err)
	for _, e := range events {
		if e.Slug == slug {
			return e.ID
		}
	}
	t.Fatalf("event %s not found", slug)
	return ""
}

func TestSnapshot_UpdatesAndSkips(t *testing.T) {
	store := newTestStore(t)
	okID := snapshotFixture(t, store, "ok", "T-OK")
	snapshotFixture(t, store, "down", "T-DOWN")
	_, err := store.UpsertEvent(context.Background(), domain.Event{
		Title: "sin token", Slug: "bare", CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	quotes := &fakeQuotes{prices: map[string]float64{"T-OK": 0.73}}
	cfg := config.SnapshotConfig{Limit: 10, TimeBudgetSeconds: 30}
	sum, err := NewSnapshotter(quotes, store, cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Updated)
	assert.Equal(t, 1, sum.SkippedNoToken)
	assert.Equal(t, 1, sum.SkippedUnavailable)

	events, err := store.ListForecastable(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, okID, events[0].ID)
	assert.InDelta(t, 0.73, *events[0].CrowdP, 0.0001)
}

func TestSnapshot_UnparseableQuoteFallsToNeutral(t *testing.T) {
	store := newTestStore(t)
	snapshotFixture(t, store, "nan", "T-NAN")

	quotes := &fakeQuotes{prices: map[string]float64{"T-NAN": math.NaN()}}
	cfg := config.SnapshotConfig{Limit: 10, TimeBudgetSeconds: 30}
	sum, err := NewSnapshotter(quotes, store, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Updated)

	events, err := store.ListForecastable(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.InDelta(t, 0.5, *events[0].CrowdP, 0.0001)
}

func TestForecast_WritesAdjustedProbability(t *testing.T) {
	store := newTestStore(t)
	_, err := store.UpsertEvent(context.Background(), domain.Event{
		Title: "Q", Slug: "q", YesTokenID: "Y",
		Volume24h: 500_000, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	events, err := store.ListEvents(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, store.SetCrowdP(context.Background(), events[0].ID, 0.8))

	cfg := config.ForecastConfig{
		Limit: 10, TimeBudgetSeconds: 30,
		VolAnchorUSD: 500_000, RegressionFactor: 0.20,
	}
	sum, err := NewForecaster(store, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Updated)

	// con volumen en el anchor el crowd se respeta entero
	events, err = store.ListEvents(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, events[0].AdjustedP)
	assert.InDelta(t, 0.8, *events[0].AdjustedP, 0.0001)
}

func scorableFixture(t *testing.T, store *storage.SQLiteStore, slug string) domain.Event {
	t.Helper()
	ctx := context.Background()
	_, err := store.UpsertEvent(ctx, domain.Event{
		Title: "Q " + slug, Slug: slug, SourceID: "id-" + slug,
		YesTokenID: "Y", Volume24h: 100, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	events, err := store.ListEvents(ctx, 50)
	require.NoError(t, err)
	for _, e := range events {
		if e.Slug == slug {
			require.NoError(t, store.SetCrowdP(ctx, e.ID, 0.8))
			require.NoError(t, store.SetAdjustedP(ctx, e.ID, 0.7))
			return e
		}
	}
	t.Fatalf("event %s not found", slug)
	return domain.Event{}
}

func TestResolve_ScoresClosedMarkets(t *testing.T) {
	store := newTestStore(t)
	scorableFixture(t, store, "closed-yes")
	scorableFixture(t, store, "still-open")
	scorableFixture(t, store, "weird")

	cat := &fakeCatalog{details: map[string]domain.MarketDoc{
		"id-closed-yes": {"closed": true, "outcome": "YES"},
		"id-still-open": {"closed": false},
		"id-weird":      {"closed": true, "outcome": "Invalid"},
	}}

	cfg := config.ResolveConfig{Limit: 10, TimeBudgetSeconds: 30}
	sum, err := NewResolver(cat, store, cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Scanned)
	assert.Equal(t, 1, sum.Resolved)
	assert.Equal(t, 1, sum.SkippedOpen)
	assert.Equal(t, 1, sum.SkippedUnresolvable)

	// el resuelto sale del pool; los otros dos quedan para el próximo run
	scorable, err := store.ListScorable(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, scorable, 2)

	sb, err := store.Scoreboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sb.Count)
	// outcome yes: crowd 0.8 → 0.04, adjusted 0.7 → 0.09
	assert.InDelta(t, 0.04, sb.CrowdBrierMean, 0.0001)
	assert.InDelta(t, 0.09, sb.AdjustedBrierMean, 0.0001)
}

// TestFullLifecycle recorre el ciclo completo de un evento: descubrimiento
// con tokens en el listado, snapshot del midpoint, estimador y resolución.
func TestFullLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	listing := domain.MarketDoc{
		"question":   "Will X happen?",
		"slug":       "x-happen",
		"id":         "m-1",
		"volume24hr": 1_000_000.0,
		"tokens": []any{
			map[string]any{"outcome": "Yes", "tokenId": "T1"},
			map[string]any{"outcome": "No", "tokenId": "T2"},
		},
	}
	cat := &fakeCatalog{
		pages: [][]domain.MarketDoc{{listing}},
		details: map[string]domain.MarketDoc{
			"m-1": {"closed": true, "outcome": "Yes"},
		},
	}
	quotes := &fakeQuotes{prices: map[string]float64{"T1": 0.8}}

	cfg := &config.Config{}
	cfg.Jobs.Discover = discoverCfg()
	cfg.Jobs.Hydrate = config.HydrateConfig{Limit: 10, TimeBudgetSeconds: 30}
	cfg.Jobs.Snapshot = config.SnapshotConfig{Limit: 10, TimeBudgetSeconds: 30}
	cfg.Jobs.Resolve = config.ResolveConfig{Limit: 10, TimeBudgetSeconds: 30}
	cfg.Forecast = config.ForecastConfig{
		Limit: 10, TimeBudgetSeconds: 30,
		VolAnchorUSD: 500_000, RegressionFactor: 0.20,
	}
	r := NewRunner(cat, quotes, store, cfg)

	for _, name := range []string{JobDiscover, JobSnapshot, JobForecast, JobResolve} {
		_, err := r.Run(ctx, name)
		require.NoError(t, err, name)
	}

	// sin cap ni regresión a volumen 1M: adjusted == crowd == 0.8
	events, err := store.ListEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "T1", events[0].YesTokenID)
	require.NotNil(t, events[0].CrowdP)
	assert.InDelta(t, 0.8, *events[0].CrowdP, 0.0001)
	require.NotNil(t, events[0].AdjustedP)
	assert.InDelta(t, 0.8, *events[0].AdjustedP, 0.0001)

	sb, err := store.Scoreboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sb.Count)
	assert.InDelta(t, 0.04, sb.CrowdBrierMean, 0.0001)
	assert.InDelta(t, 0.04, sb.AdjustedBrierMean, 0.0001)
}

func TestRunner_DispatchesByName(t *testing.T) {
	store := newTestStore(t)
	cat := &fakeCatalog{}
	quotes := &fakeQuotes{}
	cfg := &config.Config{}
	cfg.Jobs.Discover = discoverCfg()
	cfg.Jobs.Hydrate = config.HydrateConfig{Limit: 10, TimeBudgetSeconds: 30}
	cfg.Jobs.Snapshot = config.SnapshotConfig{Limit: 10, TimeBudgetSeconds: 30}
	cfg.Jobs.Resolve = config.ResolveConfig{Limit: 10, TimeBudgetSeconds: 30}
	cfg.Forecast = config.ForecastConfig{Limit: 10, TimeBudgetSeconds: 30}

	r := NewRunner(cat, quotes, store, cfg)

	for _, name := range r.JobNames() {
		sum, err := r.Run(context.Background(), name)
		require.NoError(t, err, name)
		assert.NotNil(t, sum, name)
	}
}

func TestRunner_RejectsUnknownJob(t *testing.T) {
	store := newTestStore(t)
	r := NewRunner(&fakeCatalog{}, &fakeQuotes{}, store, &config.Config{})

	_, err := r.Run(context.Background(), "drop_database")
	assert.ErrorIs(t, err, ErrUnknownJob)
}
