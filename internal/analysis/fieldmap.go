package analysis

import (
	language "github.com/hanpama/fieldgraph/internal/language"
	schema "github.com/hanpama/fieldgraph/internal/schema"
)

// fieldMap groups field nodes by response key, then by concrete object type.
// Both levels iterate in first-insertion order.
type fieldMap struct {
	keys  []string
	byKey map[string]*typedFields
}

type typedFields struct {
	types  []string
	byType map[string]*MergedField
}

func newFieldMap() *fieldMap {
	return &fieldMap{byKey: make(map[string]*typedFields)}
}

func (m *fieldMap) add(responseKey string, objectType *schema.Type, def *schema.Field, node *language.Field) {
	group, ok := m.byKey[responseKey]
	if !ok {
		group = &typedFields{byType: make(map[string]*MergedField)}
		m.byKey[responseKey] = group
		m.keys = append(m.keys, responseKey)
	}
	merged, ok := group.byType[objectType.Name]
	if !ok {
		merged = &MergedField{ResponseKey: responseKey, ObjectType: objectType, Definition: def}
		group.byType[objectType.Name] = merged
		group.types = append(group.types, objectType.Name)
	}
	merged.Fields = append(merged.Fields, node)
}

// list flattens the map by response key, then by object type.
func (m *fieldMap) list() []*MergedField {
	var out []*MergedField
	for _, key := range m.keys {
		group := m.byKey[key]
		for _, name := range group.types {
			out = append(out, group.byType[name])
		}
	}
	return out
}
