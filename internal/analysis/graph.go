package analysis

import (
	"fmt"

	language "github.com/hanpama/fieldgraph/internal/language"
	schema "github.com/hanpama/fieldgraph/internal/schema"
)

// RootLabel is how the root sentinel renders.
const RootLabel = "ROOT"

// FieldVertex is a node of the dependency graph. The root sentinel has ID 0
// and no Field; every other vertex has exactly one Parent.
type FieldVertex struct {
	ID       int
	Field    *MergedField
	Parent   *FieldVertex
	Children []*FieldVertex
}

// IsRoot reports whether v is the root sentinel.
func (v *FieldVertex) IsRoot() bool { return v.Field == nil }

// String renders the vertex as "Object.responseKey: ReturnType".
func (v *FieldVertex) String() string {
	if v.Field == nil {
		return RootLabel
	}
	return fmt.Sprintf("%s.%s: %s", v.Field.ObjectType.Name, v.Field.ResponseKey, v.Field.Definition.Type)
}

// Edge states that From resolves after its parent To.
type Edge struct {
	From *FieldVertex
	To   *FieldVertex
}

func (e Edge) String() string { return e.From.String() + " -> " + e.To.String() }

type frame struct {
	field  *MergedField
	parent *FieldVertex
}

// Analyze builds the field dependency graph of the document's only operation.
func Analyze(sch *schema.Schema, document *language.QueryDocument, variables map[string]any) (*FieldVertex, error) {
	return AnalyzeOperation(sch, document, "", variables)
}

// AnalyzeOperation is Analyze with an explicit operation name. An empty name
// behaves like Analyze.
func AnalyzeOperation(sch *schema.Schema, document *language.QueryDocument, operationName string, variables map[string]any) (*FieldVertex, error) {
	operation, err := getOperation(document, operationName)
	if err != nil {
		return nil, err
	}
	coerced, err := coerceVariableValues(sch, operation, variables)
	if err != nil {
		return nil, err
	}
	root, err := rootType(sch, operation)
	if err != nil {
		return nil, err
	}

	c := newCollector(sch, document, coerced)
	c.operationName = operationName
	rootFields, err := c.collectRootFields(document, root)
	if err != nil {
		return nil, err
	}

	sentinel := &FieldVertex{ID: 0}
	nextID := 1
	stack := make([]frame, 0, len(rootFields))
	for i := len(rootFields) - 1; i >= 0; i-- {
		stack = append(stack, frame{field: rootFields[i], parent: sentinel})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		vertex := &FieldVertex{ID: nextID, Field: top.field, Parent: top.parent}
		nextID++
		top.parent.Children = append(top.parent.Children, vertex)

		children, err := c.childFields(top.field)
		if err != nil {
			return nil, err
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{field: children[i], parent: vertex})
		}
	}
	return sentinel, nil
}

// Traverse visits root and its descendants depth-first in pre-order, children
// in child-list order.
func Traverse(root *FieldVertex, visit func(*FieldVertex)) {
	if root == nil {
		return
	}
	stack := []*FieldVertex{root}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(v)
		for i := len(v.Children) - 1; i >= 0; i-- {
			stack = append(stack, v.Children[i])
		}
	}
}

// Vertices lists the non-root vertices in Traverse order.
func Vertices(root *FieldVertex) []*FieldVertex {
	var out []*FieldVertex
	Traverse(root, func(v *FieldVertex) {
		if v.Parent != nil {
			out = append(out, v)
		}
	})
	return out
}

// Edges lists one child-to-parent edge per non-root vertex, in Traverse order.
func Edges(root *FieldVertex) []Edge {
	var out []Edge
	Traverse(root, func(v *FieldVertex) {
		if v.Parent != nil {
			out = append(out, Edge{From: v, To: v.Parent})
		}
	})
	return out
}
