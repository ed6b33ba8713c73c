package ports

import (
	"context"

	"github.com/alejandrodnm/edgemachine/internal/domain"
)

// CatalogProvider lista mercados del catálogo upstream y obtiene su detalle.
// Los documentos son loosely-typed: campos ausentes no son errores.
type CatalogProvider interface {
	// ListMarkets devuelve una página de mercados activos del catálogo.
	ListMarkets(ctx context.Context, limit, offset int) ([]domain.MarketDoc, error)

	// GetMarketDetail devuelve el documento completo de un mercado.
	// Devuelve (nil, nil) si el catálogo no conoce el id.
	GetMarketDetail(ctx context.Context, marketID string) (domain.MarketDoc, error)
}
