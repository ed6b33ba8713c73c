package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del servicio.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Forecast ForecastConfig `yaml:"forecast"`
	Log      LogConfig      `yaml:"log"`
}

// APIConfig contiene los base URLs de las APIs upstream.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// ServerConfig controla el servidor HTTP de administración.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	AdminToken string `yaml:"admin_token"` // sobreescribible con ADMIN_TOKEN
	Mode       string `yaml:"mode"`        // gin: debug | release | test
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// JobsConfig agrupa los presupuestos por job. Cada stage recibe su bloque
// como value object explícito — ningún stage lee estado global.
type JobsConfig struct {
	Discover DiscoverConfig `yaml:"discover"`
	Hydrate  HydrateConfig  `yaml:"hydrate"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Resolve  ResolveConfig  `yaml:"resolve"`
}

// DiscoverConfig controla el job discover_markets.
type DiscoverConfig struct {
	Pages             int      `yaml:"pages"`
	PageSize          int      `yaml:"page_size"`
	Limit             int      `yaml:"limit"`         // máx mercados nuevos persistidos por run
	DetailBudget      int      `yaml:"detail_budget"` // máx llamadas a detail por run
	Keywords          []string `yaml:"keywords"`      // substrings en minúsculas; vacío = sin filtro
	RequireCurrent    bool     `yaml:"require_current"`
	TimeBudgetSeconds int      `yaml:"time_budget_seconds"`
}

// HydrateConfig controla el job hydrate_tokens.
type HydrateConfig struct {
	Limit             int `yaml:"limit"`
	TimeBudgetSeconds int `yaml:"time_budget_seconds"`
}

// SnapshotConfig controla el job update_prices.
type SnapshotConfig struct {
	Limit             int `yaml:"limit"`
	TimeBudgetSeconds int `yaml:"time_budget_seconds"`
}

// ResolveConfig controla el job resolve_markets.
type ResolveConfig struct {
	Limit             int `yaml:"limit"`
	TimeBudgetSeconds int `yaml:"time_budget_seconds"`
}

// ForecastConfig controla el job forecast_machine y las constantes del estimador.
type ForecastConfig struct {
	Limit             int     `yaml:"limit"`
	TimeBudgetSeconds int     `yaml:"time_budget_seconds"`
	VolAnchorUSD      float64 `yaml:"vol_anchor_usd"`    // por encima, se confía más en el crowd
	RegressionFactor  float64 `yaml:"regression_factor"` // pull extra hacia 0.5 en extremos
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// TimeBudget devuelve el presupuesto de reloj del job como time.Duration.
func (c DiscoverConfig) TimeBudget() time.Duration {
	return time.Duration(c.TimeBudgetSeconds) * time.Second
}

func (c HydrateConfig) TimeBudget() time.Duration {
	return time.Duration(c.TimeBudgetSeconds) * time.Second
}

func (c SnapshotConfig) TimeBudget() time.Duration {
	return time.Duration(c.TimeBudgetSeconds) * time.Second
}

func (c ResolveConfig) TimeBudget() time.Duration {
	return time.Duration(c.TimeBudgetSeconds) * time.Second
}

func (c ForecastConfig) TimeBudget() time.Duration {
	return time.Duration(c.TimeBudgetSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("PM_GAMMA_BASE"); v != "" {
		cfg.API.GammaBase = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("PM_CLOB_BASE"); v != "" {
		cfg.API.CLOBBase = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "edgemachine.db"
	}

	d := &cfg.Jobs.Discover
	if d.Pages <= 0 {
		d.Pages = 5
	}
	if d.PageSize <= 0 {
		d.PageSize = 100
	}
	if d.Limit <= 0 {
		d.Limit = 50
	}
	if d.DetailBudget <= 0 {
		d.DetailBudget = 20
	}
	if d.TimeBudgetSeconds <= 0 {
		d.TimeBudgetSeconds = 60
	}

	if cfg.Jobs.Hydrate.Limit <= 0 {
		cfg.Jobs.Hydrate.Limit = 25
	}
	if cfg.Jobs.Hydrate.TimeBudgetSeconds <= 0 {
		cfg.Jobs.Hydrate.TimeBudgetSeconds = 30
	}

	if cfg.Jobs.Snapshot.Limit <= 0 {
		cfg.Jobs.Snapshot.Limit = 200
	}
	if cfg.Jobs.Snapshot.TimeBudgetSeconds <= 0 {
		cfg.Jobs.Snapshot.TimeBudgetSeconds = 60
	}

	if cfg.Jobs.Resolve.Limit <= 0 {
		cfg.Jobs.Resolve.Limit = 50
	}
	if cfg.Jobs.Resolve.TimeBudgetSeconds <= 0 {
		cfg.Jobs.Resolve.TimeBudgetSeconds = 60
	}

	if cfg.Forecast.Limit <= 0 {
		cfg.Forecast.Limit = 500
	}
	if cfg.Forecast.TimeBudgetSeconds <= 0 {
		cfg.Forecast.TimeBudgetSeconds = 30
	}
	if cfg.Forecast.VolAnchorUSD <= 0 {
		cfg.Forecast.VolAnchorUSD = 500_000
	}
	if cfg.Forecast.RegressionFactor <= 0 {
		cfg.Forecast.RegressionFactor = 0.20
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
