package domain

// doc.go — acceso defensivo a los documentos loosely-typed del catálogo.
// Los nombres de campo varían entre deployments de Gamma (camelCase,
// snake_case, listas embebidas como strings JSON). Un campo ausente nunca
// es un error: se devuelve el zero value y el caller decide.

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// MarketDoc es un documento crudo del catálogo upstream.
type MarketDoc map[string]any

// Str devuelve el primer valor string no vacío entre las keys dadas.
// Números se formatean a string (Gamma devuelve ids numéricos a veces).
func (d MarketDoc) Str(keys ...string) string {
	for _, k := range keys {
		switch v := d[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// Num devuelve el primer valor numérico entre las keys dadas, aceptando
// float64, json.Number y strings numéricas. 0 si ninguna parsea.
func (d MarketDoc) Num(keys ...string) float64 {
	for _, k := range keys {
		switch v := d[k].(type) {
		case float64:
			return v
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// Bool devuelve el valor booleano de la key, aceptando también los
// strings "true"/"false" que Gamma emite en algunos deployments.
func (d MarketDoc) Bool(key string) (value, ok bool) {
	switch v := d[key].(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// List devuelve la lista bajo la key. Si el valor es un string JSON
// ("[\"Yes\", \"No\"]", el encoding histórico de Gamma) lo decodifica.
func (d MarketDoc) List(key string) []any {
	switch v := d[key].(type) {
	case []any:
		return v
	case string:
		s := strings.TrimSpace(v)
		if !strings.HasPrefix(s, "[") {
			return nil
		}
		var out []any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil
		}
		return out
	}
	return nil
}

// Title devuelve la pregunta del mercado.
func (d MarketDoc) Title() string {
	return d.Str("question", "title")
}

// Slug devuelve el slug humano, si existe.
func (d MarketDoc) Slug() string {
	return d.Str("slug")
}

// SourceID devuelve el id del mercado en el catálogo.
func (d MarketDoc) SourceID() string {
	return d.Str("id", "marketId", "market_id")
}

// Volume24h devuelve el volumen reportado, probando los aliases históricos.
func (d MarketDoc) Volume24h() float64 {
	return d.Num("volume24hr", "volume_24hr", "volume24h", "volume")
}

// Liquidity devuelve la liquidez reportada.
func (d MarketDoc) Liquidity() float64 {
	return d.Num("liquidity", "liquidityNum")
}

// Closed indica si el catálogo reporta el mercado como cerrado o resuelto.
func (d MarketDoc) Closed() bool {
	if v, ok := d.Bool("closed"); ok && v {
		return true
	}
	if v, ok := d.Bool("resolved"); ok && v {
		return true
	}
	if v, ok := d.Bool("active"); ok && !v {
		return true
	}
	return false
}

// EndDate parsea la fecha de cierre. Gamma usa varios layouts; zero value
// si no hay fecha o ninguno parsea.
func (d MarketDoc) EndDate() time.Time {
	raw := d.Str("endDate", "endDateIso", "end_date_iso")
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Current indica si el mercado sigue operable: no cerrado/resuelto y sin
// fecha de cierre pasada.
func (d MarketDoc) Current(now time.Time) bool {
	if d.Closed() {
		return false
	}
	if end := d.EndDate(); !end.IsZero() && end.Before(now) {
		return false
	}
	return true
}

// Outcome devuelve el outcome declarado del mercado ("Yes"/"No" en
// cualquier casing), o "" si el catálogo no lo reporta todavía.
// Busca primero campos directos y después el token marcado como winner.
func (d MarketDoc) Outcome() string {
	if s := d.Str("outcome", "resolvedOutcome", "resolved_outcome"); s != "" {
		return s
	}
	for _, raw := range d.List("tokens") {
		t, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		td := MarketDoc(t)
		if won, ok := td.Bool("winner"); ok && won {
			if label := td.Str("outcome", "label", "name"); label != "" {
				return label
			}
		}
	}
	return ""
}
