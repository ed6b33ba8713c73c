package domain

// adjust.go — lógica determinista de forecast (fase 1).
// Objetivo: corregir el presente (sesgo del crowd), no predecir el futuro.
// Es el único punto de verdad de la "machine probability" — no duplicar
// la fórmula ni sus constantes en ningún otro sitio.

import "math"

const (
	// VolAnchorUSD es el volumen 24h a partir del cual se confía
	// plenamente en el precio del crowd.
	VolAnchorUSD = 500_000.0

	// RegressionFactor es el pull extra hacia 0.5 cuando el precio
	// original está fuera de [0.10, 0.90].
	RegressionFactor = 0.20

	// Cap de sobreconfianza: precios extremos del crowd no se toman
	// al pie de la letra.
	overconfidentHigh = 0.94
	ceilingHigh       = 0.91
	overconfidentLow  = 0.06
	floorLow          = 0.09
)

// AdjustParams son las constantes tunables del estimador. Los valores cero
// se sustituyen por las constantes de referencia.
type AdjustParams struct {
	VolAnchorUSD     float64
	RegressionFactor float64
}

// DefaultAdjustParams devuelve las constantes de referencia del contrato.
func DefaultAdjustParams() AdjustParams {
	return AdjustParams{VolAnchorUSD: VolAnchorUSD, RegressionFactor: RegressionFactor}
}

// Adjust transforma el precio del crowd en la probabilidad ajustada.
// Determinista y sin side effects. Resultado siempre en [0.01, 0.99].
//
// Pasos:
//  1. clamp de inputs: crowdP a [0.001, 0.999], volumen a >= 0
//  2. blend anclado por volumen hacia el prior neutro 0.5:
//     w = min(vol/anchor, 1);  p = w*crowdP + (1-w)*0.5
//  3. cap de sobreconfianza sobre el crowdP ORIGINAL (>= 0.94 → techo 0.91,
//     <= 0.06 → suelo 0.09)
//  4. regresión extra a la media si |crowdP - 0.5| > 0.40
//  5. clamp final a [0.01, 0.99]
func (ap AdjustParams) Adjust(crowdP, volume24h float64) float64 {
	anchor := ap.VolAnchorUSD
	if anchor <= 0 {
		anchor = VolAnchorUSD
	}
	regression := ap.RegressionFactor
	if regression <= 0 {
		regression = RegressionFactor
	}

	crowdP = math.Min(math.Max(crowdP, 0.001), 0.999)
	if volume24h < 0 {
		volume24h = 0
	}

	w := math.Min(volume24h/anchor, 1.0)
	p := w*crowdP + (1.0-w)*0.5

	if crowdP >= overconfidentHigh {
		p = math.Min(p, ceilingHigh)
	}
	if crowdP <= overconfidentLow {
		p = math.Max(p, floorLow)
	}

	if math.Abs(crowdP-0.5) > 0.40 {
		p += regression * (0.5 - p)
	}

	return math.Min(math.Max(p, 0.01), 0.99)
}

// Adjust aplica el estimador con las constantes de referencia.
func Adjust(crowdP, volume24h float64) float64 {
	return DefaultAdjustParams().Adjust(crowdP, volume24h)
}
