package schema

import (
	"fmt"
	"strings"
)

// Schema is a read-only directory of named types. It is safe for concurrent
// readers once built; nothing in this module mutates a schema after loading.
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type // All named types keyed by name
	Directives       map[string]*Directive
	Description      string
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.Types[s.QueryType] }

// GetMutationType returns the root mutation type (may be nil if absent)
func (s *Schema) GetMutationType() *Type { return s.Types[s.MutationType] }

// GetSubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

// Type returns the named type, or nil.
func (s *Schema) Type(name string) *Type {
	if s == nil || name == "" {
		return nil
	}
	return s.Types[name]
}

// PossibleTypes returns the concrete object types t can resolve to at runtime.
// Objects resolve to themselves; interfaces and unions to their registered
// implementations and members, in registration order.
func (s *Schema) PossibleTypes(t *Type) ([]*Type, error) {
	switch t.Kind {
	case TypeKindObject:
		return []*Type{t}, nil
	case TypeKindInterface, TypeKindUnion:
		out := make([]*Type, 0, len(t.PossibleTypes))
		for _, name := range t.PossibleTypes {
			pt := s.Types[name]
			if pt == nil {
				return nil, fmt.Errorf("possible type %q of %s is not defined", name, t.Name)
			}
			if pt.Kind != TypeKindObject {
				return nil, fmt.Errorf("possible type %q of %s is %s, not OBJECT", name, t.Name, pt.Kind)
			}
			out = append(out, pt)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("type %s of kind %s has no possible types", t.Name, t.Kind)
	}
}

// Type is a named GraphQL type (object, interface, union, scalar, enum, input)
type Type struct {
	Name           string
	Kind           TypeKind
	Description    string
	Fields         []*Field      // For OBJECT and INTERFACE
	Interfaces     []string      // For OBJECT and INTERFACE (implemented/extended)
	PossibleTypes  []string      // For INTERFACE and UNION
	EnumValues     []*EnumValue  // For ENUM
	InputFields    []*InputValue // For INPUT_OBJECT
	SpecifiedByURL *string
	OneOf          bool
}

// FieldByName returns the declared field, or nil. Meta fields such as
// __typename are never declared.
func (t *Type) FieldByName(name string) *Field {
	for _, field := range t.Fields {
		if field.Name == name {
			return field
		}
	}
	return nil
}

// InputFieldByName returns the declared input field, or nil.
func (t *Type) InputFieldByName(name string) *InputValue {
	for _, f := range t.InputFields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// IsComposite reports whether selections can be made on t.
func (t *Type) IsComposite() bool {
	return t.Kind == TypeKindObject || t.Kind == TypeKindInterface || t.Kind == TypeKindUnion
}

// IsLeaf reports whether t is a scalar or enum.
func (t *Type) IsLeaf() bool {
	return t.Kind == TypeKindScalar || t.Kind == TypeKindEnum
}

// Field represents a field on an object or interface
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue
	IsDeprecated      bool
	DeprecationReason string
}

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

func (t *TypeRef) IsList() bool {
	if t.Kind == TypeRefKindList {
		return true
	}
	if t.Kind == TypeRefKindNonNull && t.OfType != nil {
		return t.OfType.Kind == TypeRefKindList
	}
	return false
}

func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}

// String renders the reference in GraphQL notation, e.g. [Animal!]!.
func (t *TypeRef) String() string {
	var b strings.Builder
	t.writeTo(&b)
	return b.String()
}

func (t *TypeRef) writeTo(b *strings.Builder) {
	if t == nil {
		return
	}
	switch t.Kind {
	case TypeRefKindNonNull:
		t.OfType.writeTo(b)
		b.WriteByte('!')
	case TypeRefKindList:
		b.WriteByte('[')
		t.OfType.writeTo(b)
		b.WriteByte(']')
	default:
		b.WriteString(t.Named)
	}
}

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any
	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
	BuiltIn      bool // defined by the GraphQL prelude
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// IsNonNull reports whether the type is wrapped with Non-Null.
func IsNonNull(t *TypeRef) bool { return t != nil && t.IsNonNull() }

// IsList reports whether the type is (or is wrapped by) a list type.
func IsList(t *TypeRef) bool { return t != nil && t.IsList() }

// Unwrap removes one layer of Non-Null or List wrapping and returns the inner type.
func Unwrap(t *TypeRef) *TypeRef { return t.Unwrap() }

// GetNamedType returns the innermost named type for the given reference.
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }
