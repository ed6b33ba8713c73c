package polymarket

// gamma.go — catálogo de mercados (Gamma API).
//
// El shape de la respuesta varía entre deployments: array top-level,
// {markets: [...]} o {data: [...]}. Se normaliza todo a []domain.MarketDoc
// y la extracción de campos queda en el domain — este adapter no interpreta
// los documentos.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/alejandrodnm/edgemachine/internal/domain"
)

const gammaMarketsPath = "/markets"

// ListMarkets devuelve una página de mercados activos del catálogo.
// Sin reintentos: un fallo de página se trata upstream como fin de input.
func (c *Client) ListMarkets(ctx context.Context, limit, offset int) ([]domain.MarketDoc, error) {
	u := fmt.Sprintf("%s%s?limit=%d&offset=%d&active=true",
		c.gammaBase, gammaMarketsPath, limit, offset)

	raw, err := c.getJSON(ctx, c.gammaLimiter, u)
	if err != nil {
		return nil, fmt.Errorf("polymarket.ListMarkets: %w", err)
	}

	docs := normalizeMarketList(raw)
	slog.Debug("gamma markets page fetched", "offset", offset, "count", len(docs))
	return docs, nil
}

// GetMarketDetail devuelve el documento completo de un mercado.
// Devuelve (nil, nil) si Gamma no conoce el id.
func (c *Client) GetMarketDetail(ctx context.Context, marketID string) (domain.MarketDoc, error) {
	u := fmt.Sprintf("%s%s/%s", c.gammaBase, gammaMarketsPath, url.PathEscape(marketID))

	raw, err := c.getJSON(ctx, c.gammaLimiter, u)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("polymarket.GetMarketDetail %s: %w", marketID, err)
	}

	// Algunos deployments devuelven el detalle envuelto en un array de uno
	if docs := normalizeMarketList(raw); len(docs) == 1 {
		return docs[0], nil
	}
	if doc, ok := raw.(map[string]any); ok {
		return domain.MarketDoc(doc), nil
	}
	return nil, nil
}

// normalizeMarketList acepta los tres shapes históricos de la respuesta.
func normalizeMarketList(raw any) []domain.MarketDoc {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		for _, key := range []string{"markets", "data"} {
			if list, ok := v[key].([]any); ok {
				items = list
				break
			}
		}
	}

	docs := make([]domain.MarketDoc, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			docs = append(docs, domain.MarketDoc(m))
		}
	}
	return docs
}
