package httpapi

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/valyala/fasthttp"

	"github.com/subsetgrep/subsetgrep/metrics"
	"github.com/subsetgrep/subsetgrep/search"
)

func writeShard(t *testing.T, dir, key string, lines []string) {
	t.Helper()
	path := filepath.Join(dir, "subset_"+key+".csv")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	writeShard(t, dir, "pas", []string{"password", "passenger", "other_line"})
	engine := search.New(dir)
	t.Cleanup(func() { _ = engine.Close() })
	return New(engine)
}

func doRequest(h fasthttp.RequestHandler, path string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI(path)
	h(ctx)
	return ctx
}

func TestHandleSearch_StrictMatch(t *testing.T) {
	s := newTestServer(t)
	ctx := doRequest(s.Handler(), "/search?query=password&style=strict")

	if got := ctx.Response.StatusCode(); got != 200 {
		t.Fatalf("status = %d, body = %s", got, ctx.Response.Body())
	}
	var resp searchResponse
	if err := json.Unmarshal(ctx.Response.Body(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0] != "password" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
}

func TestHandleSearch_UnknownStyleIs422(t *testing.T) {
	s := newTestServer(t)
	ctx := doRequest(s.Handler(), "/search?query=password123&style=bogus")

	if got := ctx.Response.StatusCode(); got != 422 {
		t.Fatalf("status = %d, want 422", got)
	}
}

func TestHandleSearch_NoMatchesIs404(t *testing.T) {
	s := newTestServer(t)
	ctx := doRequest(s.Handler(), "/search?query=zzzznotfound&style=strict")

	if got := ctx.Response.StatusCode(); got != 404 {
		t.Fatalf("status = %d, want 404", got)
	}
}

func TestHandleSearch_DefaultStyleIsFuzzy(t *testing.T) {
	s := newTestServer(t)
	ctx := doRequest(s.Handler(), "/search?query=password")

	if got := ctx.Response.StatusCode(); got != 200 {
		t.Fatalf("status = %d, want 200, body = %s", got, ctx.Response.Body())
	}
}

func TestHandleSearch_OffsetPastEndIs404(t *testing.T) {
	s := newTestServer(t)
	ctx := doRequest(s.Handler(), "/search?query=password&style=strict&offset=50")

	if got := ctx.Response.StatusCode(); got != 404 {
		t.Fatalf("status = %d, want 404", got)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	s := newTestServer(t)
	ctx := doRequest(s.Handler(), "/nope")

	if got := ctx.Response.StatusCode(); got != 404 {
		t.Fatalf("status = %d, want 404", got)
	}
}

func TestHandleSearch_CacheResultReflectsActualCacheState(t *testing.T) {
	s := newTestServer(t)
	missBefore := testutil.ToFloat64(metrics.CacheResult.WithLabelValues("miss"))
	hitBefore := testutil.ToFloat64(metrics.CacheResult.WithLabelValues("hit"))

	// First lookup scans the shard: a cache miss, even though it finds
	// results.
	doRequest(s.Handler(), "/search?query=password&style=strict")
	if got := testutil.ToFloat64(metrics.CacheResult.WithLabelValues("miss")); got != missBefore+1 {
		t.Fatalf("miss counter = %v, want %v", got, missBefore+1)
	}
	if got := testutil.ToFloat64(metrics.CacheResult.WithLabelValues("hit")); got != hitBefore {
		t.Fatalf("hit counter = %v, want unchanged at %v", got, hitBefore)
	}

	// Second identical lookup is served from the result cache: a hit.
	doRequest(s.Handler(), "/search?query=password&style=strict")
	if got := testutil.ToFloat64(metrics.CacheResult.WithLabelValues("hit")); got != hitBefore+1 {
		t.Fatalf("hit counter = %v, want %v", got, hitBefore+1)
	}
	if got := testutil.ToFloat64(metrics.CacheResult.WithLabelValues("miss")); got != missBefore+1 {
		t.Fatalf("miss counter = %v, want unchanged at %v", got, missBefore+1)
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	s := newTestServer(t)
	ctx := doRequest(s.Handler(), "/metrics")

	if got := ctx.Response.StatusCode(); got != 200 {
		t.Fatalf("status = %d, want 200", got)
	}
	if !strings.Contains(string(ctx.Response.Body()), "# HELP") {
		t.Fatalf("expected prometheus exposition format, got: %s", ctx.Response.Body())
	}
}
