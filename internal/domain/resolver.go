package domain

// resolver.go — extracción de token ids desde los documentos del catálogo.
// Cada variante histórica del schema es una estrategia pura independiente;
// se prueban en orden fijo de prioridad y gana la primera que resuelve.

import "strings"

// TokenPair son los identificadores para cotizar cada lado del mercado.
// Cualquiera de los dos puede quedar vacío — eso es un resultado válido.
type TokenPair struct {
	Yes string
	No  string
	// Positional marca que los ids salieron de la heurística [yes, no]
	// sin labels que lo confirmen. Upstream no garantiza ese orden.
	Positional bool
}

// Resolved indica si al menos el lado YES quedó resuelto.
func (tp TokenPair) Resolved() bool {
	return tp.Yes != ""
}

var tokenIDKeys = []string{"token_id", "tokenId", "tokenID", "id", "clobTokenId"}

type resolveStrategy func(MarketDoc) (TokenPair, bool)

var resolveStrategies = []resolveStrategy{
	resolveDirectFields,
	resolveOutcomeDocs,
	resolveParallelLists,
	resolvePositional,
}

// ResolveTokens extrae los token ids de yes/no del documento dado.
// Función pura: sin I/O ni side effects. Un lado cuyo label no se pudo
// identificar con confianza queda vacío, nunca se adivina (salvo el
// fallback posicional, que se marca como tal).
func ResolveTokens(doc MarketDoc) TokenPair {
	for _, strategy := range resolveStrategies {
		if tp, ok := strategy(doc); ok {
			return tp
		}
	}
	return TokenPair{}
}

// resolveDirectFields prueba los campos directos en la raíz del documento.
func resolveDirectFields(doc MarketDoc) (TokenPair, bool) {
	tp := TokenPair{
		Yes: doc.Str("yesTokenId", "yes_token_id"),
		No:  doc.Str("noTokenId", "no_token_id"),
	}
	return tp, tp.Resolved()
}

// resolveOutcomeDocs busca una lista de sub-documentos outcome/token con
// label e id, matcheando el label case-insensitively.
func resolveOutcomeDocs(doc MarketDoc) (TokenPair, bool) {
	var tp TokenPair
	for _, key := range []string{"tokens", "outcomes"} {
		for _, raw := range doc.List(key) {
			sub, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			sd := MarketDoc(sub)
			id := sd.Str(tokenIDKeys...)
			if id == "" {
				continue
			}
			switch normalizeOutcome(sd.Str("outcome", "label", "name")) {
			case "yes":
				if tp.Yes == "" {
					tp.Yes = id
				}
			case "no":
				if tp.No == "" {
					tp.No = id
				}
			}
		}
		if tp.Resolved() {
			return tp, true
		}
	}
	return TokenPair{}, false
}

// resolveParallelLists empareja la lista de labels con la lista paralela de
// ids por índice. Solo es válida cuando ambas existen con la misma longitud.
func resolveParallelLists(doc MarketDoc) (TokenPair, bool) {
	labels := stringList(doc.List("outcomes"))
	ids := stringList(doc.List("clobTokenIds"))
	if ids == nil {
		ids = stringList(doc.List("clob_token_ids"))
	}
	if len(labels) == 0 || len(ids) == 0 || len(labels) != len(ids) {
		return TokenPair{}, false
	}

	var tp TokenPair
	for i, label := range labels {
		switch normalizeOutcome(label) {
		case "yes":
			if tp.Yes == "" {
				tp.Yes = ids[i]
			}
		case "no":
			if tp.No == "" {
				tp.No = ids[i]
			}
		}
	}
	return tp, tp.Resolved()
}

// resolvePositional es el último recurso: una lista de exactamente dos ids
// sin labels usables se asume [yes, no]. Es una heurística, no una garantía
// del upstream — el par se marca Positional.
func resolvePositional(doc MarketDoc) (TokenPair, bool) {
	ids := stringList(doc.List("clobTokenIds"))
	if ids == nil {
		ids = stringList(doc.List("clob_token_ids"))
	}
	if len(ids) != 2 {
		return TokenPair{}, false
	}
	return TokenPair{Yes: ids[0], No: ids[1], Positional: true}, true
}

// normalizeOutcome mapea el label de un outcome a "yes"/"no".
// "true"/"false" son el alias binario histórico. "" = no identificado.
func normalizeOutcome(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "yes", "true":
		return "yes"
	case "no", "false":
		return "no"
	}
	return ""
}

// IsYesOutcome y IsNoOutcome matchean el outcome declarado por el catálogo.
// Case-insensitive: upstream no garantiza el casing exacto de "Yes"/"No".
func IsYesOutcome(s string) bool { return normalizeOutcome(s) == "yes" }

func IsNoOutcome(s string) bool { return normalizeOutcome(s) == "no" }

func stringList(raw []any) []string {
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil
		}
		out = append(out, s)
	}
	return out
}
