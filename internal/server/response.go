package server

import (
	"encoding/binary"
	"errors"
	"net/http"

	"github.com/cespare/xxhash/v2"

	analysis "github.com/hanpama/fieldgraph/internal/analysis"
	language "github.com/hanpama/fieldgraph/internal/language"
)

// ------------------ Response formatting ------------------

type specLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type specError struct {
	Message    string         `json:"message"`
	Locations  []specLocation `json:"locations,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type specResult struct {
	Data   any         `json:"data,omitempty"`
	Errors []specError `json:"errors,omitempty"`
}

func errorResult(err *language.Error) specResult {
	se := specError{Message: err.Message, Extensions: err.Extensions}
	for _, loc := range err.Locations {
		se.Locations = append(se.Locations, specLocation{Line: loc.Line, Column: loc.Column})
	}
	return specResult{Errors: []specError{se}}
}

func requestError(message string) specResult {
	return errorResult(&language.Error{Message: message, Extensions: map[string]any{"code": "BAD_REQUEST"}})
}

func graphQLError(err error) *language.Error {
	var aerr *analysis.Error
	if errors.As(err, &aerr) {
		return aerr.GraphQLError()
	}
	return &language.Error{Message: err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

// cacheKey fingerprints a request for one schema generation. The canonical
// form is kept alongside the hash to rule out collisions.
func cacheKey(generation uint64, req GraphQLRequest) (uint64, string) {
	vars, err := json.Marshal(req.Variables)
	if err != nil || len(req.Variables) == 0 {
		vars = []byte("{}")
	}
	canonical := make([]byte, 0, len(req.Query)+len(req.OperationName)+len(vars)+2)
	canonical = append(canonical, req.Query...)
	canonical = append(canonical, 0)
	canonical = append(canonical, req.OperationName...)
	canonical = append(canonical, 0)
	canonical = append(canonical, vars...)

	d := xxhash.New()
	var gen [8]byte
	binary.LittleEndian.PutUint64(gen[:], generation)
	_, _ = d.Write(gen[:])
	_, _ = d.Write(canonical)
	return d.Sum64(), string(canonical)
}
