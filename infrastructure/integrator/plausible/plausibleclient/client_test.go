package plausibleclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vfg2006/plausible-stats-aggregator/internal/config"
	"github.com/vfg2006/plausible-stats-aggregator/internal/domain"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/apiErrors"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/ratelimit"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/retry"
)

func newTestClient(baseURL string) *PlausibleClient {
	cfg := &config.Config{
		Plausible: config.Plausible{
			BaseURL:       baseURL,
			SitesAPIKey:   "sites-key",
			StatsAPIKey:   "stats-key",
			SitesURL:      baseURL + "/api/v1",
			StatsURL:      baseURL + "/api/v2",
			SitesPageSize: 2,
		},
	}

	return &PlausibleClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		policy: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Millisecond,
		},
		governor: ratelimit.NewGovernorWithInterval(0),
	}
}

func TestListSites_SinglePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sites", r.URL.Path)
		assert.Equal(t, "Bearer sites-key", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		w.Write([]byte(`{
			"sites": [
				{"domain": "a.com", "timezone": "America/Sao_Paulo"},
				{"domain": "b.com", "timezone": ""}
			],
			"meta": {}
		}`))
	}))
	defer server.Close()

	sites, err := newTestClient(server.URL).ListSites(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.Site{
		{Domain: "a.com", Timezone: "America/Sao_Paulo"},
		{Domain: "b.com", Timezone: "UTC"},
	}, sites)
}

func TestListSites_Pagination(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		switch r.URL.Query().Get("after") {
		case "":
			w.Write([]byte(`{
				"sites": [{"domain": "a.com", "timezone": "UTC"}, {"domain": "b.com", "timezone": "UTC"}],
				"meta": {"after": "cursor-1"}
			}`))
		case "cursor-1":
			w.Write([]byte(`{
				"sites": [{"domain": "c.com", "timezone": "UTC"}],
				"meta": {}
			}`))
		default:
			t.Errorf("cursor inesperado: %s", r.URL.Query().Get("after"))
		}
	}))
	defer server.Close()

	sites, err := newTestClient(server.URL).ListSites(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, requests)
	require.Len(t, sites, 3)
	assert.Equal(t, "a.com", sites[0].Domain)
	assert.Equal(t, "c.com", sites[2].Domain)
}

func TestListSites_EmptyAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sites": [], "meta": {}}`))
	}))
	defer server.Close()

	sites, err := newTestClient(server.URL).ListSites(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestListSites_MissingDomainIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sites": [{"domain": "", "timezone": "UTC"}], "meta": {}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListSites(context.Background())
	require.Error(t, err)
	assert.True(t, apiErrors.IsValidationError(err))
}

func TestListSites_InvalidKeyIsNotRetried(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListSites(context.Background())
	require.Error(t, err)
	assert.True(t, apiErrors.IsAuthError(err))
	assert.Equal(t, 1, requests)
}

func TestQueryStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v2/query", r.URL.Path)
		assert.Equal(t, "Bearer stats-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"site_id": "a.com",
			"metrics": ["visitors", "visits", "pageviews", "bounce_rate", "visit_duration", "views_per_visit"],
			"date_range": "month"
		}`, string(body))

		w.Write([]byte(`{
			"results": [{"metrics": [100, 120, 300, 42.5, 90.1, 2.5]}],
			"query": {"date_range": ["2024-06-01", "2024-06-15"]}
		}`))
	}))
	defer server.Close()

	stats, err := newTestClient(server.URL).QueryStats(context.Background(), "a.com", domain.PeriodMonth)
	require.NoError(t, err)

	assert.Equal(t, "a.com", stats.SiteDomain)
	assert.Equal(t, domain.PeriodMonth, stats.Period)
	assert.Equal(t, "2024-06-01 - 2024-06-15", stats.DateRange)
	assert.Equal(t, 100, stats.Visitors)
	assert.Equal(t, 120, stats.Visits)
	assert.Equal(t, 300, stats.Pageviews)
	assert.InDelta(t, 42.5, stats.BounceRate, 0.0001)
	assert.InDelta(t, 90.1, stats.VisitDuration, 0.0001)
	assert.InDelta(t, 2.5, stats.ViewsPerVisit, 0.0001)
	assert.False(t, stats.Partial)
	assert.False(t, stats.RetrievedAt.IsZero())
}

func TestQueryStats_RecoversAfterRateLimit(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{
			"results": [{"metrics": [10, 12, 30, 50, 60, 2.5]}],
			"query": {"date_range": "month"}
		}`))
	}))
	defer server.Close()

	stats, err := newTestClient(server.URL).QueryStats(context.Background(), "a.com", domain.PeriodMonth)
	require.NoError(t, err)

	assert.Equal(t, 3, requests, "dois 429 seguidos de um 200")
	assert.Equal(t, 10, stats.Visitors)
	assert.Equal(t, "month", stats.DateRange)
}

func TestQueryStats_ExhaustsRetriesOnPersistentFailure(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).QueryStats(context.Background(), "a.com", domain.PeriodMonth)
	require.Error(t, err)

	assert.Equal(t, 3, requests)
	assert.Equal(t, apiErrors.ErrRetriesExhausted, apiErrors.CodeOf(err))
}

func TestQueryStats_PartialMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"results": [{"metrics": [100, null, 300]}],
			"query": {"date_range": "month"}
		}`))
	}))
	defer server.Close()

	stats, err := newTestClient(server.URL).QueryStats(context.Background(), "a.com", domain.PeriodMonth)
	require.NoError(t, err)

	assert.True(t, stats.Partial)
	assert.Equal(t, 100, stats.Visitors)
	assert.Equal(t, 0, stats.Visits)
	assert.Equal(t, 300, stats.Pageviews)
	assert.Zero(t, stats.BounceRate)
}

func TestQueryStats_TooManyMetricsIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"results": [{"metrics": [1, 2, 3, 4, 5, 6, 7]}],
			"query": {"date_range": "month"}
		}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).QueryStats(context.Background(), "a.com", domain.PeriodMonth)
	require.Error(t, err)
	assert.True(t, apiErrors.IsValidationError(err))
}

func TestQueryStats_NoResultsIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [], "query": {"date_range": "month"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).QueryStats(context.Background(), "a.com", domain.PeriodMonth)
	require.Error(t, err)
	assert.True(t, apiErrors.IsValidationError(err))
}

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		retryAfter   string
		expectedCode string
		expectedHint time.Duration
	}{
		{name: "200 passa", statusCode: http.StatusOK},
		{name: "429 com Retry-After", statusCode: http.StatusTooManyRequests, retryAfter: "30", expectedCode: apiErrors.ErrRateLimited, expectedHint: 30 * time.Second},
		{name: "429 sem Retry-After", statusCode: http.StatusTooManyRequests, expectedCode: apiErrors.ErrRateLimited},
		{name: "429 com Retry-After inválido", statusCode: http.StatusTooManyRequests, retryAfter: "soon", expectedCode: apiErrors.ErrRateLimited},
		{name: "401 vira erro de chave", statusCode: http.StatusUnauthorized, expectedCode: apiErrors.ErrInvalidAPIKey},
		{name: "403 vira erro de permissão", statusCode: http.StatusForbidden, expectedCode: apiErrors.ErrForbidden},
		{name: "404 vira recurso inexistente", statusCode: http.StatusNotFound, expectedCode: apiErrors.ErrResourceNotFound},
		{name: "500 vira erro do servidor", statusCode: http.StatusInternalServerError, expectedCode: apiErrors.ErrUpstreamFailure},
		{name: "302 vira resposta inesperada", statusCode: http.StatusFound, expectedCode: apiErrors.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{
				StatusCode: tt.statusCode,
				Status:     http.StatusText(tt.statusCode),
				Header:     http.Header{},
			}
			if tt.retryAfter != "" {
				resp.Header.Set("Retry-After", tt.retryAfter)
			}

			err := classifyResponse(resp, nil)

			if tt.expectedCode == "" {
				assert.NoError(t, err)
				return
			}

			assert.Equal(t, tt.expectedCode, apiErrors.CodeOf(err))
			assert.Equal(t, tt.expectedHint, apiErrors.RetryAfterHint(err))
		})
	}
}
