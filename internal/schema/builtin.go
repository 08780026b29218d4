package schema

import "strings"

var stringType = &Type{
	Name:        "String",
	Kind:        TypeKindScalar,
	Description: "The `String` scalar type represents textual data, represented as UTF-8 character sequences.",
}

var intType = &Type{
	Name:        "Int",
	Kind:        TypeKindScalar,
	Description: "The `Int` scalar type represents non-fractional signed whole numeric values.",
}

var floatType = &Type{
	Name:        "Float",
	Kind:        TypeKindScalar,
	Description: "The `Float` scalar type represents signed double-precision fractional values.",
}

var booleanType = &Type{
	Name:        "Boolean",
	Kind:        TypeKindScalar,
	Description: "The `Boolean` scalar type represents `true` or `false`.",
}

var idType = &Type{
	Name:        "ID",
	Kind:        TypeKindScalar,
	Description: "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching.",
}

var builtinScalars = map[string]*Type{
	stringType.Name:  stringType,
	intType.Name:     intType,
	floatType.Name:   floatType,
	booleanType.Name: booleanType,
	idType.Name:      idType,
}

var includeDirective = &Directive{
	Name:        "include",
	Description: "Directs the executor to include this field or fragment only when the `if` argument is true.",
	Arguments: []*InputValue{
		{
			Name:        "if",
			Description: "Included when true.",
			Type:        NonNullType(NamedType("Boolean")),
		},
	},
	Locations: []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
}

var skipDirective = &Directive{
	Name:        "skip",
	Description: "Directs the executor to skip this field or fragment when the `if` argument is true.",
	Arguments: []*InputValue{
		{
			Name:        "if",
			Description: "Skipped when true.",
			Type:        NonNullType(NamedType("Boolean")),
		},
	},
	Locations: []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
}

// prelude directives are defined by the GraphQL specification and are not
// rendered back into SDL.
var preludeDirectives = map[string]bool{
	"include":     true,
	"skip":        true,
	"deprecated":  true,
	"specifiedBy": true,
	"oneOf":       true,
	"defer":       true,
}

// IsMetaName reports whether name is reserved for introspection (__typename,
// __Schema, ...).
func IsMetaName(name string) bool { return strings.HasPrefix(name, "__") }

func isPreludeType(name string) bool {
	_, ok := builtinScalars[name]
	return ok || IsMetaName(name)
}
