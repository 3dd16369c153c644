package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/ocean-news/internal/news"
	"github.com/JakeFAU/ocean-news/internal/orchestrator"
)

type fakeNews struct {
	result    news.Result
	status    orchestrator.Status
	statusErr error
	panicMsg  string
}

func (f *fakeNews) Get(context.Context) news.Result {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.result
}

func (f *fakeNews) Status(context.Context) (orchestrator.Status, error) {
	return f.status, f.statusErr
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

type newsBody struct {
	Success bool        `json:"success"`
	Data    []news.Item `json:"data"`
	Count   int         `json:"count"`
	Source  string      `json:"source"`
	Cached  bool        `json:"cached"`
	Note    string      `json:"note"`
}

func decodeNews(t *testing.T, rec *httptest.ResponseRecorder) newsBody {
	t.Helper()
	var body newsBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetNewsServesResult(t *testing.T) {
	t.Parallel()

	svc := &fakeNews{result: news.Result{Articles: news.FallbackN(9)[:9], Source: news.SourcePrimary, Cached: true}}
	s := NewServer(svc, nil, Options{}, zap.NewNop())

	rec := serve(t, s, "/api/news")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	body := decodeNews(t, rec)
	require.True(t, body.Success)
	require.Equal(t, 9, body.Count)
	require.Len(t, body.Data, 9)
	require.Equal(t, "primary", body.Source)
	require.True(t, body.Cached)
	require.Empty(t, body.Note)
}

func TestGetNewsFallbackNote(t *testing.T) {
	t.Parallel()

	svc := &fakeNews{result: news.Result{
		Articles: news.FallbackN(9),
		Source:   news.SourceFallback,
		Note:     orchestrator.NoteQuotaExhausted,
	}}
	s := NewServer(svc, nil, Options{}, zap.NewNop())

	rec := serve(t, s, "/api/news")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeNews(t, rec)
	require.Equal(t, orchestrator.NoteQuotaExhausted, body.Note)
	require.Equal(t, "fallback", body.Source)
}

func TestGetNewsPanicStillReturns200(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeNews{panicMsg: "boom"}, nil, Options{ArticleCount: 9}, zap.NewNop())

	rec := serve(t, s, "/api/news")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeNews(t, rec)
	require.True(t, body.Success)
	require.Equal(t, 9, body.Count)
	require.Equal(t, news.FallbackN(9)[0].Title, body.Data[0].Title)
	require.NotEmpty(t, body.Note)
}

type slowNews struct {
	fakeNews
	delay time.Duration
}

// Get ignores ctx the way a shared refresh does.
func (s *slowNews) Get(context.Context) news.Result {
	time.Sleep(s.delay)
	return news.Result{Articles: news.FallbackN(9), Source: news.SourcePrimary}
}

func TestGetNewsTimeoutStillReturns200(t *testing.T) {
	t.Parallel()

	svc := &slowNews{delay: 300 * time.Millisecond}
	s := NewServer(svc, nil, Options{RequestTimeout: 50 * time.Millisecond, ArticleCount: 9}, zap.NewNop())

	rec := serve(t, s, "/api/news")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeNews(t, rec)
	require.True(t, body.Success)
	require.Equal(t, 9, body.Count)
	require.Equal(t, "fallback", body.Source)
	require.Equal(t, noteTimedOut, body.Note)
}

func TestGetNewsTrailingSlash(t *testing.T) {
	t.Parallel()

	svc := &fakeNews{result: news.Result{Articles: news.FallbackN(9), Source: news.SourcePrimary}}
	rec := serve(t, NewServer(svc, nil, Options{}, zap.NewNop()), "/api/news/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 9, decodeNews(t, rec).Count)
}

func TestRequestIDPropagates(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeNews{}, nil, Options{}, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestGetStatus(t *testing.T) {
	t.Parallel()

	fetched := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	svc := &fakeNews{status: orchestrator.Status{
		Date:              "2025-03-14",
		SuccessfulFetches: 2,
		MaxFetches:        5,
		Remaining:         3,
		Snapshot:          orchestrator.SnapshotStatus{Present: true, FetchedAt: &fetched, Source: news.SourcePrimary, ArticleCount: 9},
	}}
	s := NewServer(svc, nil, Options{}, zap.NewNop())

	rec := serve(t, s, "/api/news/status")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{
		"date":"2025-03-14","successfulFetches":2,"maxFetches":5,"remaining":3,
		"snapshot":{"present":true,"fetchedAt":"2025-03-14T09:30:00Z","source":"primary","articleCount":9}
	}`, rec.Body.String())
}

func TestGetStatusError(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeNews{statusErr: errors.New("store broken")}, nil, Options{}, zap.NewNop())
	rec := serve(t, s, "/api/news/status")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProbes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		store  Pinger
		path   string
		status string
	}{
		{name: "healthz", path: "/healthz", status: "ok"},
		{name: "ready without shared store", path: "/readyz", status: "ready"},
		{name: "ready with shared store", store: fakePinger{}, path: "/readyz", status: "ready"},
		{name: "degraded store", store: fakePinger{err: errors.New("down")}, path: "/readyz", status: "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewServer(&fakeNews{}, tt.store, Options{}, zap.NewNop())
			rec := serve(t, s, tt.path)
			require.Equal(t, http.StatusOK, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tt.status, body["status"])
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeNews{}, nil, Options{}, zap.NewNop())
	serve(t, s, "/api/news")
	rec := serve(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}
