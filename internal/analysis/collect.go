package analysis

import (
	"fmt"

	language "github.com/hanpama/fieldgraph/internal/language"
	schema "github.com/hanpama/fieldgraph/internal/schema"
)

// MergedField is one field selection resolved against one concrete object
// type. Fields holds every contributing AST node in source order; they all
// share ResponseKey and ObjectType.
type MergedField struct {
	ResponseKey string
	Fields      []*language.Field
	ObjectType  *schema.Type
	Definition  *schema.Field
}

// Name returns the underlying schema field name.
func (f *MergedField) Name() string { return f.Definition.Name }

func (f *MergedField) String() string {
	return f.ObjectType.Name + "." + f.ResponseKey
}

type collector struct {
	schema         *schema.Schema
	fragments      map[string]*language.FragmentDefinition
	variableValues map[string]any
	operationName  string
}

func newCollector(sch *schema.Schema, document *language.QueryDocument, variableValues map[string]any) *collector {
	fragments := make(map[string]*language.FragmentDefinition, len(document.Fragments))
	for _, def := range document.Fragments {
		if _, dup := fragments[def.Name]; !dup {
			fragments[def.Name] = def
		}
	}
	if variableValues == nil {
		variableValues = map[string]any{}
	}
	return &collector{schema: sch, fragments: fragments, variableValues: variableValues}
}

// collectRootFields collects the selection set of the selected operation
// against rootType.
func (c *collector) collectRootFields(document *language.QueryDocument, rootType *schema.Type) ([]*MergedField, error) {
	operation, err := getOperation(document, c.operationName)
	if err != nil {
		return nil, err
	}
	return c.collectFields([]language.SelectionSet{operation.SelectionSet}, typeSet{rootType}, rootType)
}

// collectFields merges the given selection sets into one accumulator. Each
// selection set gets its own visited-fragment set.
func (c *collector) collectFields(selectionSets []language.SelectionSet, possible typeSet, parentType *schema.Type) ([]*MergedField, error) {
	fields := newFieldMap()
	for _, selectionSet := range selectionSets {
		visitedFragments := make(map[string]bool)
		if err := c.collectFieldsImpl(selectionSet, possible, parentType, fields, visitedFragments); err != nil {
			return nil, err
		}
	}
	return fields.list(), nil
}

func (c *collector) collectFieldsImpl(
	selectionSet language.SelectionSet,
	possible typeSet,
	parentType *schema.Type,
	fields *fieldMap,
	visitedFragments map[string]bool,
) error {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !shouldIncludeNode(sel.Directives, c.variableValues) {
				continue
			}
			if err := c.collectField(sel, possible, parentType, fields); err != nil {
				return err
			}

		case *language.InlineFragment:
			if !shouldIncludeNode(sel.Directives, c.variableValues) {
				continue
			}
			narrowed, fragmentType := possible, parentType
			if sel.TypeCondition != "" {
				condition, err := c.conditionType(sel.TypeCondition, sel.Position)
				if err != nil {
					return err
				}
				if narrowed, err = c.narrow(possible, condition, sel.Position); err != nil {
					return err
				}
				fragmentType = condition
			}
			if err := c.collectFieldsImpl(sel.SelectionSet, narrowed, fragmentType, fields, visitedFragments); err != nil {
				return err
			}

		case *language.FragmentSpread:
			if !shouldIncludeNode(sel.Directives, c.variableValues) {
				continue
			}
			if visitedFragments[sel.Name] {
				continue
			}
			visitedFragments[sel.Name] = true

			def := c.fragments[sel.Name]
			if def == nil {
				return newError(ErrUnknownFragment, sel.Position, "unknown fragment %q", sel.Name)
			}
			condition, err := c.conditionType(def.TypeCondition, def.Position)
			if err != nil {
				return err
			}
			narrowed, err := c.narrow(possible, condition, def.Position)
			if err != nil {
				return err
			}
			if err := c.collectFieldsImpl(def.SelectionSet, narrowed, condition, fields, visitedFragments); err != nil {
				return err
			}

		default:
			panic(fmt.Sprintf("analysis: unexpected selection %T", selection))
		}
	}
	return nil
}

func (c *collector) collectField(node *language.Field, possible typeSet, parentType *schema.Type, fields *fieldMap) error {
	key := responseKey(node)
	for _, objectType := range possible {
		def := objectType.FieldByName(node.Name)
		if def == nil {
			if schema.IsMetaName(node.Name) {
				return nil
			}
			if objectType.Name == parentType.Name {
				return newError(ErrUnknownField, node.Position, "cannot query field %q on type %q", node.Name, objectType.Name)
			}
			return newError(ErrUnknownField, node.Position, "cannot query field %q on type %q (selected on %q)", node.Name, objectType.Name, parentType.Name)
		}
		fields.add(key, objectType, def, node)
	}
	return nil
}

// childFields collects the selections under every node of field against the
// possible types of its return type. Leaf fields have no children.
func (c *collector) childFields(field *MergedField) ([]*MergedField, error) {
	pos := field.Fields[0].Position
	named := field.Definition.Type.GetNamedType()
	returnType := c.schema.Type(named)
	if returnType == nil {
		return nil, newError(ErrUnknownType, pos, "unknown type %q returned by %s", named, field)
	}
	if returnType.IsLeaf() {
		return nil, nil
	}
	possible, err := c.possibleTypes(returnType, pos)
	if err != nil {
		return nil, err
	}
	selectionSets := make([]language.SelectionSet, 0, len(field.Fields))
	for _, node := range field.Fields {
		selectionSets = append(selectionSets, node.SelectionSet)
	}
	return c.collectFields(selectionSets, possible, returnType)
}

func responseKey(field *language.Field) string {
	if field.Alias != "" {
		return field.Alias
	}
	return field.Name
}

// getOperation selects the operation to analyze. An empty name requires the
// document to hold exactly one operation.
func getOperation(document *language.QueryDocument, operationName string) (*language.OperationDefinition, error) {
	if operationName != "" {
		for _, op := range document.Operations {
			if op.Name == operationName {
				return op, nil
			}
		}
		return nil, newError(ErrNoOperation, nil, "unknown operation named %q", operationName)
	}
	switch len(document.Operations) {
	case 0:
		return nil, newError(ErrNoOperation, nil, "document does not contain an operation")
	case 1:
		return document.Operations[0], nil
	default:
		return nil, newError(ErrMultipleOperations, document.Operations[1].Position,
			"document contains %d operations; exactly one is required", len(document.Operations))
	}
}

func rootType(sch *schema.Schema, operation *language.OperationDefinition) (*schema.Type, error) {
	var t *schema.Type
	switch operation.Operation {
	case language.Query, "":
		t = sch.GetQueryType()
	case language.Mutation:
		t = sch.GetMutationType()
	case language.Subscription:
		t = sch.GetSubscriptionType()
	default:
		return nil, newError(ErrUnknownType, operation.Position, "unsupported operation type %q", operation.Operation)
	}
	if t == nil {
		return nil, newError(ErrUnknownType, operation.Position, "schema does not define a %s root type", operationType(operation))
	}
	return t, nil
}

func operationType(operation *language.OperationDefinition) string {
	if operation.Operation == "" {
		return string(language.Query)
	}
	return string(operation.Operation)
}
