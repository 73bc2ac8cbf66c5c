// Package httpapi implements GET /search and GET /metrics on a single
// fasthttp server.
package httpapi

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/subsetgrep/subsetgrep/keyconfig"
	"github.com/subsetgrep/subsetgrep/metrics"
	"github.com/subsetgrep/subsetgrep/search"
	"github.com/subsetgrep/subsetgrep/telemetry"

	"k8s.io/klog/v2"
)

const (
	defaultStyle = keyconfig.StyleFuzzy
	defaultLimit = 100

	// gzipThreshold is the response size above which /search gzips its
	// body. /metrics is left uncompressed; scrape bodies are small and
	// Prometheus already negotiates its own encoding.
	gzipThreshold = 4 << 10
)

type searchResponse struct {
	Query     string   `json:"query"`
	Results   []string `json:"results"`
	Timestamp string   `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server bundles the search engine with the HTTP handlers that front
// it.
type Server struct {
	engine *search.Engine
}

// New creates a Server wrapping engine.
func New(engine *search.Engine) *Server {
	return &Server{engine: engine}
}

// Handler returns the fasthttp.RequestHandler that routes /search and
// /metrics, wrapped in tracing middleware.
func (s *Server) Handler() fasthttp.RequestHandler {
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())

	router := func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/search":
			s.handleSearch(ctx)
		case "/metrics":
			metricsHandler(ctx)
		default:
			replyJSON(ctx, http.StatusNotFound, errorResponse{Error: "not found"})
		}
	}

	return telemetry.TracingHandler(router)
}

func (s *Server) handleSearch(ctx *fasthttp.RequestCtx) {
	startedAt := time.Now()

	reqCtx, ok := telemetry.SpanContext(ctx)
	if !ok {
		reqCtx = ctx
	}

	query := string(ctx.QueryArgs().Peek("query"))
	style := keyconfig.SearchStyle(ctx.QueryArgs().Peek("style"))
	if style == "" {
		style = defaultStyle
	}
	offset := queryInt(ctx, "offset", 0)
	limit := queryInt(ctx, "limit", defaultLimit)

	metrics.QueriesTotal.WithLabelValues(string(style)).Inc()

	if !keyconfig.ValidStyle(style) {
		replyJSON(ctx, http.StatusUnprocessableEntity, errorResponse{Error: "unknown style: " + string(style)})
		return
	}

	lines, cacheHit, err := s.engine.FindLines(reqCtx, query, style)
	metrics.ScanDurationSeconds.Observe(time.Since(startedAt).Seconds())
	if cacheHit {
		metrics.CacheResult.WithLabelValues("hit").Inc()
	} else {
		metrics.CacheResult.WithLabelValues("miss").Inc()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			replyJSON(ctx, http.StatusRequestTimeout, errorResponse{Error: "search timed out"})
			return
		}
		klog.Errorf("httpapi: FindLines failed for query %q: %v", query, err)
		replyJSON(ctx, http.StatusNotFound, errorResponse{Error: "no matches"})
		return
	}

	if len(lines) == 0 {
		replyJSON(ctx, http.StatusNotFound, errorResponse{Error: "no matches"})
		return
	}

	page, err := s.engine.Page(lines, offset, limit)
	if err != nil {
		replyJSON(ctx, http.StatusNotFound, errorResponse{Error: "offset past end of results"})
		return
	}

	replyJSON(ctx, http.StatusOK, searchResponse{
		Query:     query,
		Results:   page,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func queryInt(ctx *fasthttp.RequestCtx, key string, fallback int) int {
	raw := ctx.QueryArgs().Peek(key)
	if len(raw) == 0 {
		return fallback
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return fallback
	}
	return n
}

func replyJSON(ctx *fasthttp.RequestCtx, code int, v interface{}) {
	body, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		klog.Errorf("httpapi: failed to marshal response: %v", err)
		ctx.SetStatusCode(http.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(code)

	if len(body) >= gzipThreshold && strings.Contains(string(ctx.Request.Header.Peek("Accept-Encoding")), "gzip") {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(body); err == nil && gw.Close() == nil {
			ctx.Response.Header.Set("Content-Encoding", "gzip")
			ctx.SetBody(buf.Bytes())
			return
		}
	}

	ctx.SetBody(body)
}
