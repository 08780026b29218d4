package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	analysis "github.com/hanpama/fieldgraph/internal/analysis"
	eventbus "github.com/hanpama/fieldgraph/internal/eventbus"
	events "github.com/hanpama/fieldgraph/internal/events"
	schema "github.com/hanpama/fieldgraph/internal/schema"
)

const testSDL = `
type Query { dog: Dog animals: [Animal] }
interface Animal { name: String }
type Dog implements Animal { name: String id: ID }
type Cat implements Animal { name: String }
`

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	sch, err := schema.BuildFromSDL(testSDL)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	h, err := New(Static(sch), opts...)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return h
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/graphql/analyze", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type graphResponse struct {
	Data   *analysis.GraphDocument `json:"data"`
	Errors []specError             `json:"errors"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) graphResponse {
	t.Helper()
	var res graphResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return res
}

func TestAnalyze(t *testing.T) {
	h := newTestHandler(t)
	w := post(t, h, `{"query":"{ animals { name } }"}`)
	require.Equal(t, http.StatusOK, w.Code)

	res := decode(t, w)
	require.Empty(t, res.Errors)
	require.Equal(t, []analysis.EdgeDocument{{From: 1, To: 0}, {From: 2, To: 1}, {From: 3, To: 1}}, res.Data.Edges)

	var labels []string
	for _, v := range res.Data.Vertices {
		labels = append(labels, v.Type+"."+v.Field+": "+v.ReturnType)
	}
	require.Equal(t, []string{"Query.animals: [Animal]", "Cat.name: String", "Dog.name: String"}, labels)
}

func TestAnalyze_Errors(t *testing.T) {
	h := newTestHandler(t)

	tests := map[string]struct {
		body string
		code string
	}{
		"unknown field":       {`{"query":"{ dog { bark } }"}`, "UNKNOWN_FIELD"},
		"syntax error":        {`{"query":"{ dog { "}`, "GRAPHQL_PARSE_FAILED"},
		"multiple operations": {`{"query":"query A { dog { id } } query B { dog { name } }"}`, "MULTIPLE_OPERATIONS"},
		"bad variable":        {`{"query":"query ($id: ID!) { dog { id } }"}`, "INVALID_VARIABLE"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := post(t, h, tt.body)
			require.Equal(t, http.StatusOK, w.Code)
			res := decode(t, w)
			require.Nil(t, res.Data)
			require.Len(t, res.Errors, 1)
			require.Equal(t, tt.code, res.Errors[0].Extensions["code"])
		})
	}
}

func TestAnalyze_ErrorLocation(t *testing.T) {
	w := post(t, newTestHandler(t), `{"query":"{\n  dog { bark }\n}"}`)
	res := decode(t, w)
	require.Len(t, res.Errors, 1)
	require.Equal(t, []specLocation{{Line: 2, Column: 9}}, res.Errors[0].Locations)
}

func TestOperationNameAndVariables(t *testing.T) {
	h := newTestHandler(t)
	w := post(t, h, `{
		"query": "query A { dog { id } } query B($all: Boolean!) { dog { id @include(if: $all) name } }",
		"operationName": "B",
		"variables": {"all": false}
	}`)
	res := decode(t, w)
	require.Empty(t, res.Errors)
	require.Len(t, res.Data.Vertices, 2)
	require.Equal(t, "name", res.Data.Vertices[1].Field)
}

func TestGetRequest(t *testing.T) {
	h := newTestHandler(t)
	q := url.Values{"query": {"{ dog { id } }"}}
	req := httptest.NewRequest("GET", "/graphql/analyze?"+q.Encode(), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode(t, w).Data.Vertices, 2)
}

func TestBatch(t *testing.T) {
	h := newTestHandler(t)
	w := post(t, h, `[{"query":"{ dog { id } }"},{"query":"{ dog { bark } }"}]`)
	require.Equal(t, http.StatusOK, w.Code)

	var res []graphResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res, 2)
	require.Len(t, res[0].Data.Vertices, 2)
	require.Len(t, res[1].Errors, 1)
}

func TestBadRequests(t *testing.T) {
	h := newTestHandler(t)

	require.Equal(t, http.StatusBadRequest, post(t, h, `{"query":""}`).Code)
	require.Equal(t, http.StatusBadRequest, post(t, h, `{not json`).Code)
	require.Equal(t, http.StatusBadRequest, post(t, h, `[]`).Code)

	req := httptest.NewRequest("PUT", "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, WithCORS("*"))

	// simple request
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ dog { id } }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}

	// preflight
	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	if pw.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", pw.Code)
	}
	if pw.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight missing CORS header")
	}
	if pw.Header().Get("Access-Control-Allow-Headers") != "X-Test" {
		t.Fatalf("preflight missing allow headers")
	}
}

func TestCORSSpecificOrigin(t *testing.T) {
	h := newTestHandler(t, WithCORS("http://a.example"))

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ dog { id } }"}`))
	req.Header.Set("Origin", "http://b.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ dog { id } }"}`))
	req.Header.Set("Origin", "http://a.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, "http://a.example", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, WithMaxBodyBytes(10))

	w := post(t, h, `{"query":"1234567890"}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	bus := eventbus.New()
	var started []string
	eventbus.Subscribe(bus, func(ctx context.Context, e events.HTTPStart) {
		started = append(started, e.Request.Header.Get("Content-Type"))
	})
	h := newTestHandler(t, WithEventBus(bus))

	w := post(t, h, `{"query":"{ dog { id } }"}`)
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	require.NoError(t, err)
	require.Len(t, started, 1)

	incoming := uuid.NewString()
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ dog { id } }"}`))
	req.Header.Set(RequestIDHeader, incoming)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, incoming, w.Header().Get(RequestIDHeader))
}

func TestCache(t *testing.T) {
	bus := eventbus.New()
	var finished []events.AnalysisFinish
	eventbus.Subscribe(bus, func(_ context.Context, e events.AnalysisFinish) { finished = append(finished, e) })
	h := newTestHandler(t, WithEventBus(bus), WithCacheSize(8))

	first := post(t, h, `{"query":"{ animals { name } }"}`)
	second := post(t, h, `{"query":"{ animals { name } }"}`)
	other := post(t, h, `{"query":"{ animals { name } }","variables":{"x":1}}`)

	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, first.Body.String(), other.Body.String())
	require.Len(t, finished, 3)
	require.False(t, finished[0].Cached)
	require.True(t, finished[1].Cached)
	require.False(t, finished[2].Cached)
	require.Equal(t, 3, finished[1].Vertices)
	require.Equal(t, "query", finished[1].OperationType)
}

type swappableSource struct {
	s   *schema.Schema
	gen uint64
}

func (s *swappableSource) Schema() *schema.Schema            { return s.s }
func (s *swappableSource) Current() (*schema.Schema, uint64) { return s.s, s.gen }

func TestCache_SchemaGeneration(t *testing.T) {
	before, err := schema.BuildFromSDL(`type Query { a: String }`)
	require.NoError(t, err)
	after, err := schema.BuildFromSDL(`type Query { a: Int }`)
	require.NoError(t, err)

	src := &swappableSource{s: before, gen: 1}
	h, err := New(src, WithCacheSize(8))
	require.NoError(t, err)

	res := decode(t, post(t, h, `{"query":"{ a }"}`))
	require.Equal(t, "String", res.Data.Vertices[0].ReturnType)

	src.s, src.gen = after, 2
	res = decode(t, post(t, h, `{"query":"{ a }"}`))
	require.Equal(t, "Int", res.Data.Vertices[0].ReturnType)
}

func TestCacheKey(t *testing.T) {
	a, ca := cacheKey(1, GraphQLRequest{Query: "{ a }", Variables: map[string]any{"x": 1, "y": 2}})
	b, cb := cacheKey(1, GraphQLRequest{Query: "{ a }", Variables: map[string]any{"y": 2, "x": 1}})
	c, _ := cacheKey(2, GraphQLRequest{Query: "{ a }", Variables: map[string]any{"x": 1, "y": 2}})
	d, _ := cacheKey(1, GraphQLRequest{Query: "{ a }", OperationName: "A"})
	require.Equal(t, a, b)
	require.Equal(t, ca, cb)
	require.NotEqual(t, a, c)
	require.NotEqual(t, a, d)
}
