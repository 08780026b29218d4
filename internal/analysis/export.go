package analysis

// GraphDocument is the serializable form of a dependency graph.
type GraphDocument struct {
	Vertices []VertexDocument `json:"vertices"`
	Edges    []EdgeDocument   `json:"edges"`
}

type VertexDocument struct {
	ID         int                `json:"id"`
	Type       string             `json:"type"`
	Field      string             `json:"field"`
	Name       string             `json:"name"`
	ReturnType string             `json:"returnType"`
	Parent     int                `json:"parent"`
	Locations  []LocationDocument `json:"locations,omitempty"`
}

type EdgeDocument struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type LocationDocument struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Export flattens the graph under root. Vertices and edges keep Traverse
// order; the root sentinel is referenced by id 0 but not listed.
func Export(root *FieldVertex) *GraphDocument {
	doc := &GraphDocument{Vertices: []VertexDocument{}, Edges: []EdgeDocument{}}
	for _, v := range Vertices(root) {
		vd := VertexDocument{
			ID:         v.ID,
			Type:       v.Field.ObjectType.Name,
			Field:      v.Field.ResponseKey,
			Name:       v.Field.Name(),
			ReturnType: v.Field.Definition.Type.String(),
			Parent:     v.Parent.ID,
		}
		for _, node := range v.Field.Fields {
			if node.Position != nil {
				vd.Locations = append(vd.Locations, LocationDocument{Line: node.Position.Line, Column: node.Position.Column})
			}
		}
		doc.Vertices = append(doc.Vertices, vd)
		doc.Edges = append(doc.Edges, EdgeDocument{From: v.ID, To: v.Parent.ID})
	}
	return doc
}
