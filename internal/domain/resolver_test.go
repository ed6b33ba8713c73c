package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTokens_DirectFields(t *testing.T) {
	doc := MarketDoc{"yesTokenId": "T1", "noTokenId": "T2"}
	tp := ResolveTokens(doc)
	assert.Equal(t, "T1", tp.Yes)
	assert.Equal(t, "T2", tp.No)
	assert.False(t, tp.Positional)
}

func TestResolveTokens_DirectFields_SnakeCase(t *testing.T) {
	doc := MarketDoc{"yes_token_id": "T1"}
	tp := ResolveTokens(doc)
	assert.Equal(t, "T1", tp.Yes)
	assert.Empty(t, tp.No)
}

func TestResolveTokens_OutcomeDocs(t *testing.T) {
	doc := MarketDoc{
		"tokens": []any{
			map[string]any{"outcome": "Yes", "token_id": "T1"},
			map[string]any{"outcome": "No", "token_id": "T2"},
		},
	}
	tp := ResolveTokens(doc)
	assert.Equal(t, "T1", tp.Yes)
	assert.Equal(t, "T2", tp.No)
	assert.False(t, tp.Positional)
}

func TestResolveTokens_OutcomeDocs_CaseInsensitive(t *testing.T) {
	doc := MarketDoc{
		"outcomes": []any{
			map[string]any{"label": "YES", "tokenId": "T1"},
			map[string]any{"label": "no", "id": "T2"},
		},
	}
	tp := ResolveTokens(doc)
	assert.Equal(t, "T1", tp.Yes)
	assert.Equal(t, "T2", tp.No)
}

func TestResolveTokens_OutcomeDocs_TrueFalseAlias(t *testing.T) {
	doc := MarketDoc{
		"tokens": []any{
			map[string]any{"outcome": "True", "clobTokenId": "T1"},
			map[string]any{"outcome": "False", "clobTokenId": "T2"},
		},
	}
	tp := ResolveTokens(doc)
	assert.Equal(t, "T1", tp.Yes)
	assert.Equal(t, "T2", tp.No)
}

func TestResolveTokens_OutcomeDocs_UnknownLabelsSkipped(t *testing.T) {
	// Mercado multi-outcome: ningún label matchea yes/no → sin resolver
	doc := MarketDoc{
		"tokens": []any{
			map[string]any{"outcome": "Candidate A", "token_id": "T1"},
			map[string]any{"outcome": "Candidate B", "token_id": "T2"},
		},
	}
	assert.False(t, ResolveTokens(doc).Resolved())
}

func TestResolveTokens_ParallelLists(t *testing.T) {
	doc := MarketDoc{
		"outcomes":     []any{"Yes", "No"},
		"clobTokenIds": []any{"T1", "T2"},
	}
	tp := ResolveTokens(doc)
	assert.Equal(t, "T1", tp.Yes)
	assert.Equal(t, "T2", tp.No)
	assert.False(t, tp.Positional)
}

func TestResolveTokens_ParallelLists_JSONStrings(t *testing.T) {
	// Encoding histórico de Gamma: listas embebidas como strings JSON
	doc := MarketDoc{
		"outcomes":     `["No", "Yes"]`,
		"clobTokenIds": `["T2", "T1"]`,
	}
	tp := ResolveTokens(doc)
	assert.Equal(t, "T1", tp.Yes)
	assert.Equal(t, "T2", tp.No)
}

func TestResolveTokens_ParallelLists_LengthMismatch(t *testing.T) {
	doc := MarketDoc{
		"outcomes":     []any{"Yes", "No", "Maybe"},
		"clobTokenIds": []any{"T1", "T2"},
	}
	// Longitudes distintas → inválido; cae al fallback posicional (2 ids)
	tp := ResolveTokens(doc)
	assert.True(t, tp.Positional)
	assert.Equal(t, "T1", tp.Yes)
}

func TestResolveTokens_PositionalFallback(t *testing.T) {
	doc := MarketDoc{"clobTokenIds": []any{"T1", "T2"}}
	tp := ResolveTokens(doc)
	require.True(t, tp.Resolved())
	assert.Equal(t, "T1", tp.Yes)
	assert.Equal(t, "T2", tp.No)
	assert.True(t, tp.Positional, "positional heuristic must be flagged")
}

func TestResolveTokens_PositionalRequiresExactlyTwo(t *testing.T) {
	doc := MarketDoc{"clobTokenIds": []any{"T1", "T2", "T3"}}
	assert.False(t, ResolveTokens(doc).Resolved())
}

func TestResolveTokens_EmptyDoc(t *testing.T) {
	assert.False(t, ResolveTokens(MarketDoc{}).Resolved())
}

func TestResolveTokens_PriorityOrder(t *testing.T) {
	// Los campos directos ganan sobre las listas
	doc := MarketDoc{
		"yesTokenId":   "DIRECT",
		"clobTokenIds": []any{"T1", "T2"},
	}
	tp := ResolveTokens(doc)
	assert.Equal(t, "DIRECT", tp.Yes)
	assert.False(t, tp.Positional)
}

func TestIsYesOutcome(t *testing.T) {
	assert.True(t, IsYesOutcome("Yes"))
	assert.True(t, IsYesOutcome("YES"))
	assert.True(t, IsYesOutcome(" yes "))
	assert.False(t, IsYesOutcome("No"))
	assert.False(t, IsYesOutcome(""))
	assert.False(t, IsYesOutcome("Invalid"))
}

func TestIsNoOutcome(t *testing.T) {
	assert.True(t, IsNoOutcome("No"))
	assert.True(t, IsNoOutcome("false"))
	assert.False(t, IsNoOutcome("Yes"))
}
