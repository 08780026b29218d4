package schema

import (
	"fmt"
	"os"
	"sort"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	language "github.com/hanpama/fieldgraph/internal/language"
)

// BuildFromSDL parses and validates a single SDL string.
func BuildFromSDL(sdl string) (*Schema, error) {
	return Load(&ast.Source{Name: "schema.graphql", Input: sdl})
}

// LoadFiles reads SDL files from disk and merges them into one schema.
func LoadFiles(paths ...string) (*Schema, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no schema files given")
	}
	sources := make([]*ast.Source, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		sources = append(sources, &ast.Source{Name: p, Input: string(b)})
	}
	return Load(sources...)
}

// Load validates the sources with gqlparser (prelude included) and converts
// the result.
func Load(sources ...*ast.Source) (*Schema, error) {
	parsed, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, language.AsError(err)
	}
	return BuildFromAST(parsed), nil
}

// BuildFromAST converts a validated gqlparser schema. Fields, arguments and
// enum values keep declaration order; interface and union possible types are
// sorted by name.
func BuildFromAST(src *ast.Schema) *Schema {
	s := NewSchema(src.Description)
	if src.Query != nil {
		s.SetQueryType(src.Query.Name)
	}
	if src.Mutation != nil {
		s.SetMutationType(src.Mutation.Name)
	}
	if src.Subscription != nil {
		s.SetSubscriptionType(src.Subscription.Name)
	}

	names := make([]string, 0, len(src.Types))
	for name := range src.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	implementations := map[string][]string{}
	for _, name := range names {
		def := src.Types[name]
		if def.Kind != ast.Object {
			continue
		}
		for _, iface := range def.Interfaces {
			implementations[iface] = append(implementations[iface], def.Name)
		}
	}

	for _, name := range names {
		def := src.Types[name]
		if builtin, ok := builtinScalars[name]; ok && def.Kind == ast.Scalar {
			s.AddType(builtin)
			continue
		}
		switch def.Kind {
		case ast.Object, ast.Interface:
			s.AddType(buildComposite(def, implementations[def.Name]))
		case ast.Union:
			s.AddType(buildUnion(def))
		case ast.Enum:
			s.AddType(buildEnum(def))
		case ast.InputObject:
			s.AddType(buildInput(def))
		case ast.Scalar:
			s.AddType(buildScalar(def))
		}
	}

	for _, dir := range src.Directives {
		if _, ok := s.Directives[dir.Name]; ok {
			continue
		}
		s.AddDirective(buildDirective(dir))
	}
	return s
}

func buildComposite(def *ast.Definition, implementations []string) *Type {
	kind := TypeKindObject
	if def.Kind == ast.Interface {
		kind = TypeKindInterface
	}
	t := NewType(def.Name, kind, def.Description)

	interfaces := append([]string(nil), def.Interfaces...)
	sort.Strings(interfaces)
	for _, name := range interfaces {
		t.AddInterface(name)
	}
	for _, fd := range def.Fields {
		if IsMetaName(fd.Name) {
			continue
		}
		t.AddField(buildField(fd))
	}
	if kind == TypeKindInterface {
		for _, name := range implementations {
			t.AddPossibleType(name)
		}
	}
	return t
}

func buildField(def *ast.FieldDefinition) *Field {
	f := NewField(def.Name, def.Description, TypeRefFromAST(def.Type))
	if reason, ok := deprecation(def.Directives); ok {
		f.Deprecate(reason)
	}
	for _, arg := range def.Arguments {
		f.AddArgument(buildArgument(arg))
	}
	return f
}

func buildArgument(def *ast.ArgumentDefinition) *InputValue {
	in := NewInputValue(def.Name, def.Description, TypeRefFromAST(def.Type))
	if def.DefaultValue != nil {
		in.SetDefault(language.ValueToGo(def.DefaultValue, nil))
	}
	if reason, ok := deprecation(def.Directives); ok {
		in.Deprecate(reason)
	}
	return in
}

func buildUnion(def *ast.Definition) *Type {
	t := NewType(def.Name, TypeKindUnion, def.Description)
	members := append([]string(nil), def.Types...)
	sort.Strings(members)
	for _, name := range members {
		t.AddPossibleType(name)
	}
	return t
}

func buildEnum(def *ast.Definition) *Type {
	t := NewType(def.Name, TypeKindEnum, def.Description)
	for _, v := range def.EnumValues {
		e := NewEnumValue(v.Name, v.Description)
		if reason, ok := deprecation(v.Directives); ok {
			e.Deprecate(reason)
		}
		t.AddEnumValue(e)
	}
	return t
}

func buildInput(def *ast.Definition) *Type {
	t := NewType(def.Name, TypeKindInputObject, def.Description).
		SetOneOf(def.Directives.ForName("oneOf") != nil)
	for _, fd := range def.Fields {
		in := NewInputValue(fd.Name, fd.Description, TypeRefFromAST(fd.Type))
		if fd.DefaultValue != nil {
			in.SetDefault(language.ValueToGo(fd.DefaultValue, nil))
		}
		if reason, ok := deprecation(fd.Directives); ok {
			in.Deprecate(reason)
		}
		t.AddInputField(in)
	}
	return t
}

func buildScalar(def *ast.Definition) *Type {
	t := NewType(def.Name, TypeKindScalar, def.Description)
	if d := def.Directives.ForName("specifiedBy"); d != nil {
		if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
			t.SetSpecifiedBy(arg.Value.Raw)
		}
	}
	return t
}

func buildDirective(def *ast.DirectiveDefinition) *Directive {
	d := NewDirective(def.Name, def.Description).SetRepeatable(def.IsRepeatable)
	d.BuiltIn = def.Position != nil && def.Position.Src != nil && def.Position.Src.BuiltIn
	for _, loc := range def.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, arg := range def.Arguments {
		d.AddArgument(buildArgument(arg))
	}
	return d
}

func deprecation(directives ast.DirectiveList) (string, bool) {
	d := directives.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return "", true
}

// TypeRefFromAST converts a gqlparser type reference.
func TypeRefFromAST(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var inner *TypeRef
	if t.NamedType != "" {
		inner = NamedType(t.NamedType)
	} else {
		inner = ListType(TypeRefFromAST(t.Elem))
	}
	if t.NonNull {
		return NonNullType(inner)
	}
	return inner
}
