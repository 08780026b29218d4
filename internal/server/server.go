package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	analysis "github.com/hanpama/fieldgraph/internal/analysis"
	eventbus "github.com/hanpama/fieldgraph/internal/eventbus"
	events "github.com/hanpama/fieldgraph/internal/events"
	language "github.com/hanpama/fieldgraph/internal/language"
	reqid "github.com/hanpama/fieldgraph/internal/reqid"
	schema "github.com/hanpama/fieldgraph/internal/schema"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// SchemaSource supplies the schema requests are analyzed against.
type SchemaSource interface {
	Schema() *schema.Schema
}

// versionedSource is implemented by sources whose schema changes over time.
type versionedSource interface {
	Current() (*schema.Schema, uint64)
}

type staticSource struct{ s *schema.Schema }

func (s staticSource) Schema() *schema.Schema { return s.s }

// Static serves a schema that never changes.
func Static(s *schema.Schema) SchemaSource { return staticSource{s: s} }

// Handler is an http.Handler that analyzes GraphQL documents and answers
// with their field dependency graph.
type Handler struct {
	source SchemaSource
	opt    Options
	logger *zap.Logger
	cache  *lru.Cache // nil when caching is disabled
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// CacheSize is the number of analysis results kept. 0 disables caching.
	CacheSize int

	Logger *zap.Logger
	Bus    *eventbus.Bus
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithCacheSize(n int) Option          { return func(o *Options) { o.CacheSize = n } }
func WithLogger(l *zap.Logger) Option     { return func(o *Options) { o.Logger = l } }
func WithEventBus(b *eventbus.Bus) Option { return func(o *Options) { o.Bus = b } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates the analysis handler for the schemas supplied by source.
func New(source SchemaSource, opts ...Option) (*Handler, error) {
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	h := &Handler{source: source, opt: op, logger: op.Logger}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if op.CacheSize > 0 {
		c, err := lru.New(op.CacheSize)
		if err != nil {
			return nil, err
		}
		h.cache = c
	}
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.FromIncoming(ctx, r.Header.Get(RequestIDHeader))
	r = r.WithContext(ctx)
	w.Header().Set(RequestIDHeader, rid)

	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, h.opt.Bus, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, h.opt.Bus, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, requestError("method not allowed"), h.opt.Pretty)
		return
	}

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = http.StatusBadRequest
		if berr.Message == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		h.logger.Info("rejected request", zap.String("request_id", rid), zap.Int("status", status), zap.String("reason", berr.Message))
		writeJSON(w, status, requestError(berr.Message), h.opt.Pretty)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if batch != nil {
		out := make([]specResult, len(batch))
		for i := range batch {
			out[i] = h.analyzeOne(ctx, batch[i])
		}
		writeJSON(w, status, out, h.opt.Pretty)
		return
	}

	writeJSON(w, status, h.analyzeOne(ctx, req), h.opt.Pretty)
}

// cacheEntry is immutable once stored.
type cacheEntry struct {
	schema   *schema.Schema
	request  string
	opType   string
	vertices int
	err      error
	resp     specResult
}

func (h *Handler) currentSchema() (*schema.Schema, uint64) {
	if v, ok := h.source.(versionedSource); ok {
		return v.Current()
	}
	return h.source.Schema(), 0
}

func (h *Handler) analyzeOne(ctx context.Context, req GraphQLRequest) specResult {
	rid, _ := reqid.FromContext(ctx)
	if err := ctx.Err(); err != nil {
		return errorResult(&language.Error{Message: "request timed out", Extensions: map[string]any{"code": "TIMEOUT"}})
	}

	sch, generation := h.currentSchema()
	key, canonical := cacheKey(generation, req)
	start := time.Now()

	if h.cache != nil {
		if v, ok := h.cache.Get(key); ok {
			if entry := v.(*cacheEntry); entry.schema == sch && entry.request == canonical {
				eventbus.Publish(ctx, h.opt.Bus, events.AnalysisStart{Query: req.Query, OperationName: req.OperationName, OperationType: entry.opType})
				h.finish(ctx, rid, req, entry, time.Since(start), true)
				return entry.resp
			}
		}
	}

	entry := &cacheEntry{schema: sch, request: canonical}
	doc, err := language.ParseQuery(req.Query)
	if err == nil {
		entry.opType = operationType(doc, req.OperationName)
	}
	eventbus.Publish(ctx, h.opt.Bus, events.AnalysisStart{Query: req.Query, OperationName: req.OperationName, OperationType: entry.opType})

	if err != nil {
		ge := language.AsError(err)
		if ge.Extensions == nil {
			ge.Extensions = map[string]any{"code": "GRAPHQL_PARSE_FAILED"}
		}
		entry.err = err
		entry.resp = errorResult(ge)
	} else if root, err := analysis.AnalyzeOperation(sch, doc, req.OperationName, req.Variables); err != nil {
		entry.err = err
		entry.resp = errorResult(graphQLError(err))
	} else {
		graph := analysis.Export(root)
		entry.vertices = len(graph.Vertices)
		entry.resp = specResult{Data: graph}
	}

	if h.cache != nil {
		h.cache.Add(key, entry)
	}
	h.finish(ctx, rid, req, entry, time.Since(start), false)
	return entry.resp
}

func (h *Handler) finish(ctx context.Context, rid string, req GraphQLRequest, entry *cacheEntry, d time.Duration, cached bool) {
	eventbus.Publish(ctx, h.opt.Bus, events.AnalysisFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: entry.opType,
		Vertices:      entry.vertices,
		Err:           entry.err,
		Duration:      d,
		Cached:        cached,
	})
	if entry.err != nil {
		h.logger.Info("analysis failed",
			zap.String("request_id", rid),
			zap.String("operation", req.OperationName),
			zap.Bool("cached", cached),
			zap.Error(entry.err))
		return
	}
	h.logger.Debug("analyzed document",
		zap.String("request_id", rid),
		zap.String("operation", req.OperationName),
		zap.Int("vertices", entry.vertices),
		zap.Duration("duration", d),
		zap.Bool("cached", cached))
}

// operationType names the type of the operation AnalyzeOperation would pick,
// or "" when there is none.
func operationType(doc *language.QueryDocument, name string) string {
	op := doc.Operations.ForName(name)
	if op == nil && name == "" && len(doc.Operations) == 1 {
		op = doc.Operations[0]
	}
	if op == nil {
		return ""
	}
	if op.Operation == "" {
		return string(language.Query)
	}
	return string(op.Operation)
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, *language.Error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return GraphQLRequest{}, nil, &language.Error{Message: "missing 'query'"}
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return GraphQLRequest{}, nil, &language.Error{Message: "invalid 'variables' JSON"}
			}
		}
		op := r.URL.Query().Get("operationName")
		return GraphQLRequest{Query: q, Variables: vars, OperationName: op}, nil, nil
	}

	// POST
	ct := r.Header.Get("Content-Type")
	if ct == "" || ct == "application/json" || strings.HasPrefix(ct, "application/json;") {
		reader := io.Reader(r.Body)
		if maxBody > 0 {
			reader = io.LimitReader(r.Body, maxBody+1)
		}
		body, err := io.ReadAll(reader)
		if err != nil {
			return GraphQLRequest{}, nil, &language.Error{Message: "failed to read body"}
		}
		defer r.Body.Close()
		if maxBody > 0 && int64(len(body)) > maxBody {
			return GraphQLRequest{}, nil, &language.Error{Message: errBodyTooLargeMessage}
		}

		// Try array (batch)
		if len(body) > 0 && body[0] == '[' {
			var arr []GraphQLRequest
			if err := json.Unmarshal(body, &arr); err != nil {
				return GraphQLRequest{}, nil, &language.Error{Message: "invalid JSON"}
			}
			if len(arr) == 0 {
				return GraphQLRequest{}, nil, &language.Error{Message: "empty batch"}
			}
			for i := range arr {
				if arr[i].Query == "" {
					return GraphQLRequest{}, nil, &language.Error{Message: "missing 'query'"}
				}
			}
			return GraphQLRequest{}, arr, nil
		}
		// Single
		var req GraphQLRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return GraphQLRequest{}, nil, &language.Error{Message: "invalid JSON"}
		}
		if req.Query == "" {
			return GraphQLRequest{}, nil, &language.Error{Message: "missing 'query'"}
		}
		if req.Variables == nil {
			req.Variables = map[string]any{}
		}
		return req, nil, nil
	}

	return GraphQLRequest{}, nil, &language.Error{Message: "unsupported Content-Type"}
}

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
