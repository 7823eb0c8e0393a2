package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_tweet_agent/agent"
	"auto_tweet_agent/failure"
	"auto_tweet_agent/generator"
	"auto_tweet_agent/logging"
	"auto_tweet_agent/publisher"
	"auto_tweet_agent/status"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGenerator struct {
	err    error
	topics []string
}

func (g *stubGenerator) Generate(_ context.Context, topic string) (generator.Draft, error) {
	g.topics = append(g.topics, topic)
	if g.err != nil {
		return generator.Draft{}, g.err
	}
	return generator.Draft{Tweet: "Hello world", Metadata: map[string]any{"topic": topic}}, nil
}

type stubPublisher struct {
	mu       sync.Mutex
	err      error
	requests []publisher.Request
}

func (p *stubPublisher) Publish(_ context.Context, req publisher.Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return p.err
}

type fixture struct {
	handler http.Handler
	gen     *stubGenerator
	pub     *stubPublisher
	store   *status.MemoryStore
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{gen: &stubGenerator{}, pub: &stubPublisher{}, store: status.NewMemoryStore()}
	orch, err := agent.New(f.gen, f.pub, f.store, logging.NewDiscardLogger(), agent.Options{})
	require.NoError(t, err)
	srv, err := New(orch, opts)
	require.NoError(t, err)
	f.handler = srv.Routes()
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, header ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestNewRequiresOrchestrator(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}

func TestPreviewRoute(t *testing.T) {
	f := newFixture(t, Options{})

	w, body := f.do(t, http.MethodPost, "/api/preview", `{"topic":"golang"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello world", body["tweet"])
	assert.Equal(t, map[string]any{"topic": "golang"}, body["metadata"])

	w, _ = f.do(t, http.MethodPost, "/api/preview", `{not json`)
	assert.Equal(t, http.StatusOK, w.Code, "malformed body means no topic")
	assert.Equal(t, []string{"golang", ""}, f.gen.topics)
	assert.Empty(t, f.pub.requests)
}

func TestPreviewRouteGenerationFailure(t *testing.T) {
	f := newFixture(t, Options{})
	f.gen.err = errors.New("llm unreachable")

	w, body := f.do(t, http.MethodPost, "/api/preview", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "llm unreachable", body["error"])

	_, statusBody := f.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, map[string]any{"ok": true}, statusBody, "preview failures are not recorded")
}

func TestAgentRouteConfigurationFailure(t *testing.T) {
	f := newFixture(t, Options{})
	f.pub.err = failure.Configuration("missing credentials")

	w, body := f.do(t, http.MethodGet, "/api/agent?topic=rust", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"ok": false, "error": "missing credentials"}, body)
	assert.NotEmpty(t, w.Header().Get("X-Run-ID"))
	assert.Equal(t, []string{"rust"}, f.gen.topics)

	w, statusBody := f.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, statusBody["ok"])
	assert.Equal(t, "missing credentials", statusBody["lastError"])
	assert.Equal(t, "configuration", statusBody["errorKind"])
	assert.Equal(t, "cron", statusBody["trigger"])
	assert.NotContains(t, statusBody, "lastRun")
}

func TestAgentRouteSuccessTagsCron(t *testing.T) {
	f := newFixture(t, Options{})

	w, body := f.do(t, http.MethodGet, "/api/agent", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"ok": true}, body)
	require.Len(t, f.pub.requests, 1)
	assert.Equal(t, "cron", f.pub.requests[0].Metadata["trigger"])

	_, statusBody := f.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, true, statusBody["ok"])
	assert.Contains(t, statusBody, "lastRun")
	assert.NotContains(t, statusBody, "lastError")
}

func TestAgentRouteCronSecret(t *testing.T) {
	f := newFixture(t, Options{CronSecret: "s3cret"})

	w, _ := f.do(t, http.MethodGet, "/api/agent", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = f.do(t, http.MethodGet, "/api/agent", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, f.pub.requests)

	w, _ = f.do(t, http.MethodGet, "/api/agent", "", "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, f.pub.requests, 1)
}

func TestTweetRouteExplicitText(t *testing.T) {
	f := newFixture(t, Options{})

	w, body := f.do(t, http.MethodPost, "/api/tweet", `{"tweet":"Launch day!"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"ok": true}, body)
	require.Len(t, f.pub.requests, 1)
	assert.Equal(t, publisher.Request{Text: "Launch day!", Metadata: map[string]any{"trigger": "manual"}}, f.pub.requests[0])
	assert.Empty(t, f.gen.topics)
}

func TestTweetRouteKeepsCallerTrigger(t *testing.T) {
	f := newFixture(t, Options{})

	w, _ := f.do(t, http.MethodPost, "/api/tweet", `{"tweet":"Launch day!","metadata":{"trigger":"cron","length":11}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.pub.requests, 1)
	assert.Equal(t, "cron", f.pub.requests[0].Metadata["trigger"])
	assert.Equal(t, float64(11), f.pub.requests[0].Metadata["length"])
}

func TestTweetRouteGeneratesWithoutText(t *testing.T) {
	f := newFixture(t, Options{})

	w, _ := f.do(t, http.MethodPost, "/api/tweet", `{"topic":"startups"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"startups"}, f.gen.topics)
	require.Len(t, f.pub.requests, 1)
	assert.Equal(t, "manual", f.pub.requests[0].Metadata["trigger"])
}

func TestTweetRouteFailureWithoutMessage(t *testing.T) {
	f := newFixture(t, Options{})
	f.pub.err = errors.New("")

	w, body := f.do(t, http.MethodPost, "/api/tweet", `{"tweet":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, failure.UnknownMessage, body["error"])

	_, statusBody := f.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, failure.UnknownMessage, statusBody["lastError"])
}

type brokenStore struct {
	*status.MemoryStore
}

func (brokenStore) Write(context.Context, status.Record) error { return errors.New("disk full") }

func TestTweetRouteMarksDeliveredWhenStatusWriteFails(t *testing.T) {
	pub := &stubPublisher{}
	orch, err := agent.New(&stubGenerator{}, pub, brokenStore{status.NewMemoryStore()}, logging.NewDiscardLogger(), agent.Options{})
	require.NoError(t, err)
	srv, err := New(orch, Options{})
	require.NoError(t, err)
	f := &fixture{handler: srv.Routes(), pub: pub}

	w, body := f.do(t, http.MethodPost, "/api/tweet", `{"tweet":"Launch day!"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, true, body["delivered"])
	assert.Contains(t, body["error"], "do not retry")
	assert.Len(t, pub.requests, 1)
}

func TestStatusRouteDefault(t *testing.T) {
	f := newFixture(t, Options{})

	w, body := f.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"ok": true}, body)
}

func TestHealthMetricsAndRequestID(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, Options{Registry: reg})

	w, body := f.do(t, http.MethodGet, "/health", "", "X-Request-ID", "req-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

	w, _ = f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{endpoint="/health",method="GET",status="200"} 1`)
}

func TestMetricsRouteDisabledWithoutRegistry(t *testing.T) {
	f := newFixture(t, Options{})
	w, _ := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
