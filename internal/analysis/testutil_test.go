package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/hanpama/fieldgraph/internal/language"
	schema "github.com/hanpama/fieldgraph/internal/schema"
)

const petsSDL = `
type Query {
	dog: Dog
	cat: Cat
	animals: [Animal]
	pets: [CatOrDog]
}

union CatOrDog = Cat | Dog

interface Animal {
	name: String
}

type Dog implements Animal {
	name: String
	id: ID
}

type Cat implements Animal {
	name: String
}
`

func petsSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(petsSDL)
	require.NoError(t, err)
	return s
}

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func mustAnalyze(t *testing.T, sch *schema.Schema, q string, vars map[string]any) *FieldVertex {
	t.Helper()
	root, err := Analyze(sch, mustParseQuery(t, q), vars)
	require.NoError(t, err)
	require.NotNil(t, root)
	return root
}

func edgeStrings(root *FieldVertex) []string {
	var out []string
	for _, e := range Edges(root) {
		out = append(out, e.String())
	}
	return out
}

// mergedKey is a comparable projection of a MergedField.
type mergedKey struct {
	Key   string
	Type  string
	Nodes int
}

func project(fields []*MergedField) []mergedKey {
	out := make([]mergedKey, 0, len(fields))
	for _, f := range fields {
		out = append(out, mergedKey{Key: f.ResponseKey, Type: f.ObjectType.Name, Nodes: len(f.Fields)})
	}
	return out
}
