package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/hanpama/fieldgraph/internal/language"
)

func fieldDirectives(t *testing.T, q string) language.DirectiveList {
	t.Helper()
	doc := mustParseQuery(t, q)
	return doc.Operations[0].SelectionSet[0].(*language.Field).Directives
}

func TestShouldIncludeNode(t *testing.T) {
	tests := []struct {
		name  string
		query string
		vars  map[string]any
		want  bool
	}{
		{"no directives", `{ a }`, nil, true},
		{"skip true", `{ a @skip(if: true) }`, nil, false},
		{"skip false", `{ a @skip(if: false) }`, nil, true},
		{"include false", `{ a @include(if: false) }`, nil, false},
		{"include true", `{ a @include(if: true) }`, nil, true},
		{"skip wins over include", `{ a @skip(if: true) @include(if: true) }`, nil, false},
		{"include false with skip false", `{ a @skip(if: false) @include(if: false) }`, nil, false},
		{"variable skip", `query ($s: Boolean) { a @skip(if: $s) }`, map[string]any{"s": true}, false},
		{"variable include", `query ($i: Boolean) { a @include(if: $i) }`, map[string]any{"i": false}, false},
		{"undefined variable", `query ($s: Boolean) { a @skip(if: $s) @include(if: $s) }`, map[string]any{}, true},
		{"non-boolean argument", `{ a @skip(if: "yes") }`, nil, true},
		{"first occurrence only", `{ a @skip(if: false) @skip(if: true) }`, nil, true},
		{"unrelated directive", `{ a @deprecated }`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, shouldIncludeNode(fieldDirectives(t, tt.query), tt.vars))
		})
	}
}
