package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

// Render produces SDL from the Schema using gqlparser's formatter.
// Deterministic ordering: type/directive names sorted lexicographically.
// Builtin scalars, introspection types and prelude directives are omitted.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	formatter.NewFormatter(&b).FormatSchemaDocument(ToDocument(s))
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// ToDocument converts the schema back into a gqlparser schema document.
func ToDocument(s *Schema) *ast.SchemaDocument {
	doc := &ast.SchemaDocument{}
	if def := schemaDefinition(s); def != nil {
		doc.Schema = append(doc.Schema, def)
	}

	typeNames := make([]string, 0, len(s.Types))
	for name := range s.Types {
		if isPreludeType(name) {
			continue
		}
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)
	for _, name := range typeNames {
		doc.Definitions = append(doc.Definitions, s.definition(s.Types[name]))
	}

	directiveNames := make([]string, 0, len(s.Directives))
	for name, d := range s.Directives {
		if d.BuiltIn || preludeDirectives[name] {
			continue
		}
		directiveNames = append(directiveNames, name)
	}
	sort.Strings(directiveNames)
	for _, name := range directiveNames {
		doc.Directives = append(doc.Directives, s.directiveDefinition(s.Directives[name]))
	}
	return doc
}

// schemaDefinition is only emitted when root names differ from the defaults.
func schemaDefinition(s *Schema) *ast.SchemaDefinition {
	roots := []struct {
		op      ast.Operation
		name    string
		defName string
	}{
		{ast.Query, s.QueryType, "Query"},
		{ast.Mutation, s.MutationType, "Mutation"},
		{ast.Subscription, s.SubscriptionType, "Subscription"},
	}
	custom := false
	def := &ast.SchemaDefinition{}
	for _, r := range roots {
		if r.name == "" {
			continue
		}
		if r.name != r.defName {
			custom = true
		}
		def.OperationTypes = append(def.OperationTypes, &ast.OperationTypeDefinition{Operation: r.op, Type: r.name})
	}
	if !custom {
		return nil
	}
	return def
}

func (s *Schema) definition(t *Type) *ast.Definition {
	def := &ast.Definition{Name: t.Name, Description: t.Description}
	switch t.Kind {
	case TypeKindObject, TypeKindInterface:
		def.Kind = ast.Object
		if t.Kind == TypeKindInterface {
			def.Kind = ast.Interface
		}
		def.Interfaces = append(def.Interfaces, t.Interfaces...)
		for _, f := range t.Fields {
			def.Fields = append(def.Fields, s.fieldDefinition(f))
		}
	case TypeKindUnion:
		def.Kind = ast.Union
		def.Types = append(def.Types, t.PossibleTypes...)
	case TypeKindEnum:
		def.Kind = ast.Enum
		for _, v := range t.EnumValues {
			def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{
				Name:        v.Name,
				Description: v.Description,
				Directives:  deprecatedDirective(v.IsDeprecated, v.DeprecationReason),
			})
		}
	case TypeKindInputObject:
		def.Kind = ast.InputObject
		if t.OneOf {
			def.Directives = append(def.Directives, &ast.Directive{Name: "oneOf"})
		}
		for _, in := range t.InputFields {
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name:         in.Name,
				Description:  in.Description,
				Type:         in.Type.toAST(),
				DefaultValue: s.valueToAST(in.DefaultValue, in.Type),
				Directives:   deprecatedDirective(in.IsDeprecated, in.DeprecationReason),
			})
		}
	case TypeKindScalar:
		def.Kind = ast.Scalar
		if t.SpecifiedByURL != nil {
			def.Directives = append(def.Directives, &ast.Directive{
				Name:      "specifiedBy",
				Arguments: ast.ArgumentList{{Name: "url", Value: &ast.Value{Kind: ast.StringValue, Raw: *t.SpecifiedByURL}}},
			})
		}
	}
	return def
}

func (s *Schema) fieldDefinition(f *Field) *ast.FieldDefinition {
	return &ast.FieldDefinition{
		Name:        f.Name,
		Description: f.Description,
		Arguments:   s.argumentDefinitions(f.Arguments),
		Type:        f.Type.toAST(),
		Directives:  deprecatedDirective(f.IsDeprecated, f.DeprecationReason),
	}
}

func (s *Schema) argumentDefinitions(args []*InputValue) ast.ArgumentDefinitionList {
	var out ast.ArgumentDefinitionList
	for _, a := range args {
		out = append(out, &ast.ArgumentDefinition{
			Name:         a.Name,
			Description:  a.Description,
			Type:         a.Type.toAST(),
			DefaultValue: s.valueToAST(a.DefaultValue, a.Type),
			Directives:   deprecatedDirective(a.IsDeprecated, a.DeprecationReason),
		})
	}
	return out
}

// directiveDefinition needs a position: the formatter reads Src.BuiltIn on
// every directive definition.
func (s *Schema) directiveDefinition(d *Directive) *ast.DirectiveDefinition {
	def := &ast.DirectiveDefinition{
		Name:         d.Name,
		Description:  d.Description,
		Arguments:    s.argumentDefinitions(d.Arguments),
		IsRepeatable: d.IsRepeatable,
		Position:     &ast.Position{Src: &ast.Source{Name: "render"}},
	}
	for _, loc := range d.Locations {
		def.Locations = append(def.Locations, ast.DirectiveLocation(loc))
	}
	return def
}

func deprecatedDirective(deprecated bool, reason string) ast.DirectiveList {
	if !deprecated {
		return nil
	}
	d := &ast.Directive{Name: "deprecated"}
	if reason != "" {
		d.Arguments = ast.ArgumentList{{Name: "reason", Value: &ast.Value{Kind: ast.StringValue, Raw: reason}}}
	}
	return ast.DirectiveList{d}
}

func (t *TypeRef) toAST() *ast.Type {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case TypeRefKindNonNull:
		inner := t.OfType.toAST()
		inner.NonNull = true
		return inner
	case TypeRefKindList:
		return &ast.Type{Elem: t.OfType.toAST()}
	default:
		return &ast.Type{NamedType: t.Named}
	}
}

// valueToAST renders a default value back into a literal. The declared type is
// needed to tell enum values apart from strings.
func (s *Schema) valueToAST(v any, typ *TypeRef) *ast.Value {
	if v == nil {
		return nil
	}
	if typ != nil && typ.Kind == TypeRefKindNonNull {
		typ = typ.OfType
	}
	switch val := v.(type) {
	case []any:
		var elem *TypeRef
		if typ != nil && typ.Kind == TypeRefKindList {
			elem = typ.OfType
		}
		out := &ast.Value{Kind: ast.ListValue}
		for _, item := range val {
			out.Children = append(out.Children, &ast.ChildValue{Value: s.literal(item, elem)})
		}
		return out
	case map[string]any:
		var input *Type
		if typ != nil {
			input = s.Type(typ.GetNamedType())
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := &ast.Value{Kind: ast.ObjectValue}
		for _, k := range keys {
			var ft *TypeRef
			if input != nil {
				if f := input.InputFieldByName(k); f != nil {
					ft = f.Type
				}
			}
			out.Children = append(out.Children, &ast.ChildValue{Name: k, Value: s.literal(val[k], ft)})
		}
		return out
	case bool:
		return &ast.Value{Kind: ast.BooleanValue, Raw: strconv.FormatBool(val)}
	case int:
		return &ast.Value{Kind: ast.IntValue, Raw: strconv.Itoa(val)}
	case float64:
		return &ast.Value{Kind: ast.FloatValue, Raw: strconv.FormatFloat(val, 'f', -1, 64)}
	case string:
		if typ != nil {
			if named := s.Type(typ.GetNamedType()); named != nil && named.Kind == TypeKindEnum {
				return &ast.Value{Kind: ast.EnumValue, Raw: val}
			}
		}
		return &ast.Value{Kind: ast.StringValue, Raw: val}
	default:
		return &ast.Value{Kind: ast.StringValue, Raw: fmt.Sprint(val)}
	}
}

func (s *Schema) literal(v any, typ *TypeRef) *ast.Value {
	if v == nil {
		return &ast.Value{Kind: ast.NullValue, Raw: "null"}
	}
	return s.valueToAST(v, typ)
}
