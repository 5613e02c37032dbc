package plausibleclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/vfg2006/plausible-stats-aggregator/internal/config"
	"github.com/vfg2006/plausible-stats-aggregator/internal/domain"
	"github.com/vfg2006/plausible-stats-aggregator/internal/metrics"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/apiErrors"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/ratelimit"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/retry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const userAgent = "plausible-stats-aggregator/1.0"

type Client interface {
	ListSites(ctx context.Context) ([]domain.Site, error)
	QueryStats(ctx context.Context, siteDomain string, period domain.Period) (*domain.SiteStats, error)
}

type PlausibleClient struct {
	cfg        *config.Config
	httpClient *http.Client
	policy     retry.Policy
	governor   *ratelimit.Governor
}

func NewClient(cfg *config.Config, governor *ratelimit.Governor) Client {
	policy := retry.DefaultPolicy()
	if cfg.Plausible.MaxRetries > 0 {
		policy.MaxAttempts = cfg.Plausible.MaxRetries
	}
	if cfg.Plausible.RetryDelaySeconds > 0 {
		policy.BaseDelay = cfg.RetryDelay()
	}

	return &PlausibleClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
		policy:   policy,
		governor: governor,
	}
}

// doRequest executa uma requisição autenticada aplicando a política de retry.
// Cada chave de API cobre um escopo distinto (sites ou estatísticas), por isso
// a chave é informada pelo chamador.
func (c *PlausibleClient) doRequest(ctx context.Context, method, url, apiKey, endpoint string, body []byte) ([]byte, error) {
	var respBody []byte
	attempt := 0

	err := retry.Do(ctx, c.policy, func() error {
		if attempt > 0 {
			metrics.APIRetries.Inc()
			logrus.WithFields(logrus.Fields{
				"endpoint": endpoint,
				"attempt":  attempt + 1,
			}).Warn("plausible: retrying request")
		}
		attempt++

		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return apiErrors.Wrap(err, apiErrors.ErrInvalidRequest, "erro ao criar a requisição")
		}

		req.Header.Set("Authorization", "Bearer "+apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.APIRequests.WithLabelValues(endpoint, metrics.OutcomeError).Inc()
			return apiErrors.Wrap(err, apiErrors.ErrNetworkFailure, "erro ao executar a requisição")
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			metrics.APIRequests.WithLabelValues(endpoint, metrics.OutcomeError).Inc()
			return apiErrors.Wrap(err, apiErrors.ErrNetworkFailure, "erro ao ler o corpo da resposta")
		}

		if classified := classifyResponse(resp, data); classified != nil {
			outcome := metrics.OutcomeError
			if apiErrors.CodeOf(classified) == apiErrors.ErrRateLimited {
				outcome = metrics.OutcomeRateLimit
			}
			metrics.APIRequests.WithLabelValues(endpoint, outcome).Inc()
			return classified
		}

		metrics.APIRequests.WithLabelValues(endpoint, metrics.OutcomeSuccess).Inc()
		respBody = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	return respBody, nil
}

// classifyResponse converte o status HTTP no erro padronizado correspondente.
// Retorna nil para respostas de sucesso.
func classifyResponse(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil

	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr := apiErrors.New(apiErrors.ErrRateLimited, "cota de requisições excedida")
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		return apiErr

	case resp.StatusCode == http.StatusUnauthorized:
		return apiErrors.New(apiErrors.ErrInvalidAPIKey, "chave de API rejeitada pelo Plausible")

	case resp.StatusCode == http.StatusForbidden:
		return apiErrors.New(apiErrors.ErrForbidden, "chave de API sem permissão para o recurso")

	case resp.StatusCode == http.StatusNotFound:
		return apiErrors.New(apiErrors.ErrResourceNotFound, "recurso não encontrado no Plausible")

	case resp.StatusCode >= 500:
		return apiErrors.New(apiErrors.ErrUpstreamFailure, "erro do servidor do Plausible: "+resp.Status)

	default:
		return apiErrors.New(apiErrors.ErrInvalidRequest, "resposta inesperada do Plausible: "+resp.Status+" "+truncate(body, 200))
	}
}

// parseRetryAfter interpreta o header Retry-After em segundos
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}

func truncate(body []byte, max int) string {
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}
