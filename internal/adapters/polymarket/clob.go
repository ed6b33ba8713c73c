package polymarket

// clob.go — quoting service (CLOB API).
//
// El midpoint tiene dos envelopes históricos: plano {midpoint|price} o
// anidado {data: {midpoint|price}}. Se prueban /midpoint y /price con
// reintentos acotados y backoff lineal — es la única llamada con retry.

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/edgemachine/internal/ports"
)

var quotePaths = []string{"/midpoint", "/price"}

// Midpoint devuelve el precio midpoint/last del token dado.
// Devuelve NaN (sin error) si upstream respondió con un valor no parseable,
// y ports.ErrUnavailable tras agotar endpoints y reintentos.
func (c *Client) Midpoint(ctx context.Context, tokenID string) (float64, error) {
	for _, path := range quotePaths {
		u := c.clobBase + path + "?token_id=" + url.QueryEscape(tokenID)

		for attempt := 0; attempt < maxQuoteRetries; attempt++ {
			raw, err := c.getJSON(ctx, c.clobLimiter, u)
			if err != nil {
				if ctx.Err() != nil {
					return 0, ctx.Err()
				}
				c.sleep(ctx, attempt)
				continue
			}

			value, found := extractQuote(raw)
			if !found {
				// Payload válido pero sin midpoint/price → probar el
				// siguiente endpoint, no reintentar este
				break
			}
			return value, nil
		}
	}

	slog.Debug("quote unavailable", "token_id", tokenID)
	return 0, ports.ErrUnavailable
}

// extractQuote busca midpoint|price en el envelope plano o anidado en data.
// found=false si ningún campo existe. Un valor presente pero no parseable
// devuelve (NaN, true) — la normalización es decisión del caller.
func extractQuote(raw any) (value float64, found bool) {
	doc, ok := raw.(map[string]any)
	if !ok {
		return 0, false
	}

	for _, key := range []string{"midpoint", "price"} {
		if v, ok := doc[key]; ok {
			return parseQuote(v), true
		}
	}
	if data, ok := doc["data"].(map[string]any); ok {
		for _, key := range []string{"midpoint", "price"} {
			if v, ok := data[key]; ok {
				return parseQuote(v), true
			}
		}
	}
	return 0, false
}

func parseQuote(v any) float64 {
	switch n := v.(type) {
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	case float64:
		return n
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return math.NaN()
}
