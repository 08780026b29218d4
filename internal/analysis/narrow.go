package analysis

import (
	language "github.com/hanpama/fieldgraph/internal/language"
	schema "github.com/hanpama/fieldgraph/internal/schema"
)

// typeSet is an ordered set of concrete object types. A nil set is
// unrestricted; an empty non-nil set admits nothing.
type typeSet []*schema.Type

func (s typeSet) contains(t *schema.Type) bool {
	for _, m := range s {
		if m == t || m.Name == t.Name {
			return true
		}
	}
	return false
}

func (s typeSet) names() []string {
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = t.Name
	}
	return out
}

// possibleTypes resolves t to the object types it can take at runtime.
func (c *collector) possibleTypes(t *schema.Type, pos *language.Position) (typeSet, error) {
	if !t.IsComposite() {
		return nil, newError(ErrInvalidType, pos, "type %q of kind %s has no possible types", t.Name, t.Kind)
	}
	types, err := c.schema.PossibleTypes(t)
	if err != nil {
		return nil, newError(ErrUnknownType, pos, "%s", err.Error())
	}
	return typeSet(types), nil
}

// narrow restricts current to the object types also admitted by condition,
// keeping the order of current.
func (c *collector) narrow(current typeSet, condition *schema.Type, pos *language.Position) (typeSet, error) {
	admitted, err := c.possibleTypes(condition, pos)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return admitted, nil
	}
	out := make(typeSet, 0, len(current))
	for _, t := range current {
		if admitted.contains(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// conditionType looks up a fragment type condition.
func (c *collector) conditionType(name string, pos *language.Position) (*schema.Type, error) {
	t := c.schema.Type(name)
	if t == nil {
		return nil, newError(ErrUnknownType, pos, "unknown type %q", name)
	}
	return t, nil
}
