package analysis

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	schema "github.com/hanpama/fieldgraph/internal/schema"
)

func TestAnalyze_Edges(t *testing.T) {
	sch := petsSchema(t)

	tests := []struct {
		name  string
		query string
		vars  map[string]any
		want  []string
	}{
		{
			name:  "object field",
			query: `{ dog { name } }`,
			want: []string{
				"Query.dog: Dog -> ROOT",
				"Dog.name: String -> Query.dog: Dog",
			},
		},
		{
			name: "inline fragments on interface",
			query: `{
				animals {
					name
					... on Dog { name }
					... on Cat { name }
				}
			}`,
			want: []string{
				"Query.animals: [Animal] -> ROOT",
				"Cat.name: String -> Query.animals: [Animal]",
				"Dog.name: String -> Query.animals: [Animal]",
			},
		},
		{
			name: "named fragment on interface member",
			query: `{ animals { ...OnCat } }
			fragment OnCat on Cat { name }`,
			want: []string{
				"Query.animals: [Animal] -> ROOT",
				"Cat.name: String -> Query.animals: [Animal]",
			},
		},
		{
			name:  "interface field fans out to implementations",
			query: `{ animals { name } }`,
			want: []string{
				"Query.animals: [Animal] -> ROOT",
				"Cat.name: String -> Query.animals: [Animal]",
				"Dog.name: String -> Query.animals: [Animal]",
			},
		},
		{
			name:  "typename is not a vertex",
			query: `{ animals { __typename } pets { __typename } }`,
			want: []string{
				"Query.animals: [Animal] -> ROOT",
				"Query.pets: [CatOrDog] -> ROOT",
			},
		},
		{
			name:  "aliases become response keys",
			query: `{ a: dog { n: name } b: dog { name } }`,
			want: []string{
				"Query.a: Dog -> ROOT",
				"Dog.n: String -> Query.a: Dog",
				"Query.b: Dog -> ROOT",
				"Dog.name: String -> Query.b: Dog",
			},
		},
		{
			name:  "same key merges subselections",
			query: `{ dog { name } dog { id } }`,
			want: []string{
				"Query.dog: Dog -> ROOT",
				"Dog.name: String -> Query.dog: Dog",
				"Dog.id: ID -> Query.dog: Dog",
			},
		},
		{
			name:  "union members in discovery order",
			query: `{ pets { ... on Dog { name id } ... on Cat { name } } }`,
			want: []string{
				"Query.pets: [CatOrDog] -> ROOT",
				"Dog.name: String -> Query.pets: [CatOrDog]",
				"Cat.name: String -> Query.pets: [CatOrDog]",
				"Dog.id: ID -> Query.pets: [CatOrDog]",
			},
		},
		{
			name:  "interface condition inside union",
			query: `{ pets { ... on Animal { name } } }`,
			want: []string{
				"Query.pets: [CatOrDog] -> ROOT",
				"Cat.name: String -> Query.pets: [CatOrDog]",
				"Dog.name: String -> Query.pets: [CatOrDog]",
			},
		},
		{
			name:  "incompatible condition yields no vertices",
			query: `{ dog { ... on Cat { name } } }`,
			want:  []string{"Query.dog: Dog -> ROOT"},
		},
		{
			name:  "narrowing is intersective",
			query: `{ animals { ... on Dog { ... on Cat { ... on Dog { name } } } } }`,
			want:  []string{"Query.animals: [Animal] -> ROOT"},
		},
		{
			name:  "skip excludes a single node",
			query: `{ dog { id @skip(if: true) name } }`,
			want: []string{
				"Query.dog: Dog -> ROOT",
				"Dog.name: String -> Query.dog: Dog",
			},
		},
		{
			name:  "skip on inline fragment",
			query: `{ dog { ... @skip(if: true) { id } name } }`,
			want: []string{
				"Query.dog: Dog -> ROOT",
				"Dog.name: String -> Query.dog: Dog",
			},
		},
		{
			name:  "include through variable",
			query: `query ($withId: Boolean!) { dog { id @include(if: $withId) name } }`,
			vars:  map[string]any{"withId": false},
			want: []string{
				"Query.dog: Dog -> ROOT",
				"Dog.name: String -> Query.dog: Dog",
			},
		},
		{
			name:  "unset variable leaves directive without effect",
			query: `query ($hide: Boolean) { dog { id @skip(if: $hide) } }`,
			want: []string{
				"Query.dog: Dog -> ROOT",
				"Dog.id: ID -> Query.dog: Dog",
			},
		},
		{
			name:  "variable default applies",
			query: `query ($hide: Boolean = true) { dog { id @skip(if: $hide) name } }`,
			want: []string{
				"Query.dog: Dog -> ROOT",
				"Dog.name: String -> Query.dog: Dog",
			},
		},
		{
			name: "fragment cycle terminates",
			query: `{ dog { ...A } }
			fragment A on Dog { name ...B }
			fragment B on Dog { id ...A }`,
			want: []string{
				"Query.dog: Dog -> ROOT",
				"Dog.name: String -> Query.dog: Dog",
				"Dog.id: ID -> Query.dog: Dog",
			},
		},
		{
			name: "fragment reused in separate positions",
			query: `{ dog { ...N } other: dog { ...N } }
			fragment N on Dog { name }`,
			want: []string{
				"Query.dog: Dog -> ROOT",
				"Dog.name: String -> Query.dog: Dog",
				"Query.other: Dog -> ROOT",
				"Dog.name: String -> Query.other: Dog",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := mustAnalyze(t, sch, tt.query, tt.vars)
			if diff := cmp.Diff(tt.want, edgeStrings(root)); diff != "" {
				t.Fatalf("edges mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnalyze_Errors(t *testing.T) {
	sch := petsSchema(t)

	tests := []struct {
		name  string
		query string
		vars  map[string]any
		kind  error
	}{
		{"unknown field", `{ dog { bark } }`, nil, ErrUnknownField},
		{"unknown field on interface", `{ animals { id } }`, nil, ErrUnknownField},
		{"multiple operations", `query A { dog { name } } query B { cat { name } }`, nil, ErrMultipleOperations},
		{"no operation", `fragment F on Dog { name }`, nil, ErrNoOperation},
		{"unknown fragment", `{ dog { ...Missing } }`, nil, ErrUnknownFragment},
		{"unknown type condition", `{ dog { ... on Bird { name } } }`, nil, ErrUnknownType},
		{"scalar type condition", `{ dog { ... on String { name } } }`, nil, ErrInvalidType},
		{"missing root type", `mutation { dog { name } }`, nil, ErrUnknownType},
		{"missing required variable", `query ($n: Int!) { dog { name } }`, nil, ErrVariable},
		{"variable of wrong type", `query ($b: Boolean) { dog { name } }`, map[string]any{"b": "yes"}, ErrVariable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Analyze(sch, mustParseQuery(t, tt.query), tt.vars)
			require.Error(t, err)
			require.Nil(t, root)
			require.True(t, errors.Is(err, tt.kind), "got %v", err)

			var aerr *Error
			require.True(t, errors.As(err, &aerr))
			require.Equal(t, errorCodes[tt.kind], aerr.Code())
		})
	}
}

func TestAnalyze_UnknownFieldUnderEmptyTypeSetIsIgnored(t *testing.T) {
	root := mustAnalyze(t, petsSchema(t), `{ dog { ... on Cat { bark } } }`, nil)
	require.Len(t, Vertices(root), 1)
}

func TestAnalyze_GraphShape(t *testing.T) {
	sch := petsSchema(t)
	root := mustAnalyze(t, sch, `{ dog { name } cat { name } }`, nil)

	require.True(t, root.IsRoot())
	require.Equal(t, 0, root.ID)
	require.Nil(t, root.Parent)
	require.Equal(t, RootLabel, root.String())

	var order []int
	var labels []string
	Traverse(root, func(v *FieldVertex) {
		order = append(order, v.ID)
		labels = append(labels, v.String())
	})
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
	require.Equal(t, []string{
		"ROOT",
		"Query.dog: Dog",
		"Dog.name: String",
		"Query.cat: Cat",
		"Cat.name: String",
	}, labels)

	for _, v := range Vertices(root) {
		require.NotNil(t, v.Parent)
		require.Contains(t, v.Parent.Children, v)
		if named := sch.Type(v.Field.Definition.Type.GetNamedType()); named.IsLeaf() {
			require.Empty(t, v.Children, "leaf %s has children", v)
		}
	}
}

func TestAnalyze_MergedNodes(t *testing.T) {
	root := mustAnalyze(t, petsSchema(t), `{
		animals {
			name
			... on Dog { name }
			... on Cat { name }
		}
	}`, nil)

	animals := root.Children[0]
	got := make([]mergedKey, 0, len(animals.Children))
	for _, c := range animals.Children {
		got = append(got, mergedKey{Key: c.Field.ResponseKey, Type: c.Field.ObjectType.Name, Nodes: len(c.Field.Fields)})
	}
	want := []mergedKey{
		{Key: "name", Type: "Cat", Nodes: 2},
		{Key: "name", Type: "Dog", Nodes: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merged fields mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyze_NonNullAndListSignatures(t *testing.T) {
	sch, err := schema.BuildFromSDL(`
		type Query { zoo: Zoo! }
		type Zoo { keepers: [Keeper!]! }
		type Keeper { id: ID! }
	`)
	require.NoError(t, err)

	root := mustAnalyze(t, sch, `{ zoo { keepers { id } } }`, nil)
	require.Equal(t, []string{
		"Query.zoo: Zoo! -> ROOT",
		"Zoo.keepers: [Keeper!]! -> Query.zoo: Zoo!",
		"Keeper.id: ID! -> Zoo.keepers: [Keeper!]!",
	}, edgeStrings(root))
}

func TestAnalyze_MutationRoot(t *testing.T) {
	sch, err := schema.BuildFromSDL(`
		type Query { ok: Boolean }
		type Mutation { rename(name: String!): Result }
		type Result { ok: Boolean }
	`)
	require.NoError(t, err)

	root := mustAnalyze(t, sch, `mutation { rename(name: "x") { ok } }`, nil)
	require.Equal(t, []string{
		"Mutation.rename: Result -> ROOT",
		"Result.ok: Boolean -> Mutation.rename: Result",
	}, edgeStrings(root))
}

func TestAnalyzeOperation_ByName(t *testing.T) {
	sch := petsSchema(t)
	doc := mustParseQuery(t, `query A { dog { name } } query B { cat { name } }`)

	root, err := AnalyzeOperation(sch, doc, "B", nil)
	require.NoError(t, err)
	require.Equal(t, []string{
		"Query.cat: Cat -> ROOT",
		"Cat.name: String -> Query.cat: Cat",
	}, edgeStrings(root))

	_, err = AnalyzeOperation(sch, doc, "C", nil)
	require.ErrorIs(t, err, ErrNoOperation)
}

func TestAnalyze_Concurrent(t *testing.T) {
	sch := petsSchema(t)
	doc := mustParseQuery(t, `{ animals { name ... on Dog { id } } pets { ... on Cat { name } } }`)
	want := edgeStrings(mustAnalyze(t, sch, `{ animals { name ... on Dog { id } } pets { ... on Cat { name } } }`, nil))

	var wg sync.WaitGroup
	results := make([][]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			root, err := Analyze(sch, doc, nil)
			if err != nil {
				return
			}
			results[i] = edgeStrings(root)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("goroutine %d edges mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestAnalyze_UnknownFieldNamesConcreteType(t *testing.T) {
	_, err := Analyze(petsSchema(t), mustParseQuery(t, `{ animals { id } }`), nil)
	require.ErrorIs(t, err, ErrUnknownField)
	require.EqualError(t, err, `cannot query field "id" on type "Cat" (selected on "Animal")`)
}

func TestAnalyze_FragmentVisitedAcrossTypeBranches(t *testing.T) {
	root := mustAnalyze(t, petsSchema(t), `
		{ animals { ... on Dog { ...N } ... on Animal { ...N } } }
		fragment N on Animal { name }
	`, nil)
	require.Equal(t, []string{
		"Query.animals: [Animal] -> ROOT",
		"Dog.name: String -> Query.animals: [Animal]",
	}, edgeStrings(root))
}
