package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/JakeFAU/ocean-news/internal/news"
	"github.com/JakeFAU/ocean-news/internal/relevance"
)

func TestParseVerdicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "bare array", input: `[{"index":1,"relevant":true,"score":9}]`, want: 1},
		{name: "fenced", input: "```json\n[{\"index\":1,\"relevant\":true,\"score\":9},{\"index\":2,\"relevant\":false,\"score\":2}]\n```", want: 2},
		{name: "wrapped results", input: `{"results":[{"index":1,"relevant":false,"score":1}]}`, want: 1},
		{name: "wrapped verdicts", input: `{"verdicts":[{"index":1,"relevant":true,"score":8,"reason":"coral"}]}`, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseVerdicts(tt.input)
			require.NoError(t, err)
			require.Len(t, got, tt.want)
			require.Equal(t, 1, got[0].Index)
		})
	}
}

func TestParseVerdictsRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := ParseVerdicts("")
	require.Error(t, err)
	_, err = ParseVerdicts("I think these are all relevant")
	require.Error(t, err)
}

func TestBuildPromptNumbersItems(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt([]news.Item{
		{Title: "Kelp forests\nexpand", Description: "Marine survey"},
		{Title: "Argo float milestone", Description: "Ocean data"},
	})
	require.Contains(t, prompt, "1. Title: Kelp forests expand")
	require.Contains(t, prompt, "2. Title: Argo float milestone")
	require.Contains(t, prompt, "Description: Ocean data")
}

func TestMapErrorRateLimits(t *testing.T) {
	t.Parallel()

	err := mapError(genai.APIError{Code: http.StatusTooManyRequests, Message: "quota"})
	require.ErrorIs(t, err, relevance.ErrRateLimited)

	err = mapError(genai.APIError{Code: http.StatusBadRequest, Status: "RESOURCE_EXHAUSTED"})
	require.ErrorIs(t, err, relevance.ErrRateLimited)

	err = mapError(genai.APIError{Code: http.StatusInternalServerError, Message: "boom"})
	require.False(t, errors.Is(err, relevance.ErrRateLimited))

	err = mapError(errors.New("dial tcp: refused"))
	require.False(t, errors.Is(err, relevance.ErrRateLimited))
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{}, nil)
	require.Error(t, err)
}

func TestClassifyAgainstServer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"[{\"index\":1,\"relevant\":true,\"score\":9,\"reason\":\"reef\"}]"}]}}]}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{APIKey: "test", BaseURL: srv.URL + "/"}, nil)
	require.NoError(t, err)

	verdicts, err := c.Classify(context.Background(), []news.Item{{Title: "Coral reef recovery", Description: "Marine"}})
	require.NoError(t, err)
	require.Equal(t, []relevance.Verdict{{Index: 1, Relevant: true, Score: 9, Reason: "reef"}}, verdicts)
}

func TestClassifyTimesOutAsOrdinaryFailure(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := New(context.Background(), Config{APIKey: "test", BaseURL: srv.URL + "/", Timeout: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Classify(context.Background(), []news.Item{{Title: "Coral reef recovery", Description: "Marine"}})
	require.Error(t, err)
	require.NotErrorIs(t, err, relevance.ErrRateLimited)
	require.Less(t, time.Since(start), 5*time.Second)
}
