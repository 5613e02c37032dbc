package plausibleclient

import (
	"context"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/vfg2006/plausible-stats-aggregator/internal/domain"
	"github.com/vfg2006/plausible-stats-aggregator/internal/metrics"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/apiErrors"
)

// Conjunto fixo de métricas solicitadas, na ordem em que a API as devolve
var queryMetrics = []string{
	"visitors",
	"visits",
	"pageviews",
	"bounce_rate",
	"visit_duration",
	"views_per_visit",
}

type statsQuery struct {
	SiteID    string   `json:"site_id"`
	Metrics   []string `json:"metrics"`
	DateRange string   `json:"date_range"`
}

type queryResult struct {
	// Ponteiros para distinguir zero de métrica ausente (null)
	Metrics []*float64 `json:"metrics"`
}

type queryEcho struct {
	DateRange jsoniter.RawMessage `json:"date_range"`
}

type queryResponse struct {
	Results []queryResult `json:"results"`
	Query   queryEcho     `json:"query"`
}

// QueryStats busca as métricas agregadas de um site para um período.
// Antes de cada chamada o governador de cota impõe o espaçamento mínimo
// global entre requisições.
func (c *PlausibleClient) QueryStats(ctx context.Context, siteDomain string, period domain.Period) (*domain.SiteStats, error) {
	waited, err := c.governor.Wait(ctx)
	if err != nil {
		return nil, apiErrors.Wrap(err, apiErrors.ErrNetworkFailure, "espera do governador de cota interrompida")
	}
	metrics.GovernorWaitSeconds.Add(waited.Seconds())

	query := statsQuery{
		SiteID:    siteDomain,
		Metrics:   queryMetrics,
		DateRange: string(period),
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, apiErrors.Wrap(err, apiErrors.ErrInvalidRequest, "erro ao serializar a consulta de estatísticas")
	}

	logrus.WithFields(logrus.Fields{
		"site":   siteDomain,
		"period": period,
	}).Debug("plausible: fetching site stats")

	respBody, err := c.doRequest(ctx, http.MethodPost, c.cfg.Plausible.StatsURL+"/query", c.cfg.Plausible.StatsAPIKey, "query", body)
	if err != nil {
		return nil, err
	}

	var response queryResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, apiErrors.Wrap(err, apiErrors.ErrMalformedPayload, "erro ao decodificar as estatísticas do site")
	}

	if len(response.Results) == 0 {
		return nil, apiErrors.New(apiErrors.ErrMalformedPayload, "resposta sem resultados para "+siteDomain)
	}

	result := response.Results[0]
	if len(result.Metrics) > len(queryMetrics) {
		return nil, apiErrors.New(apiErrors.ErrMalformedPayload, "quantidade de métricas maior que a solicitada")
	}

	// Métricas ausentes ou nulas viram zero e marcam o registro como parcial
	values := make([]float64, len(queryMetrics))
	partial := false
	for i := range queryMetrics {
		if i >= len(result.Metrics) || result.Metrics[i] == nil {
			partial = true
			continue
		}
		values[i] = *result.Metrics[i]
	}

	if partial {
		logrus.WithFields(logrus.Fields{
			"site":     siteDomain,
			"period":   period,
			"received": len(result.Metrics),
			"expected": len(queryMetrics),
		}).Warn("plausible: incomplete metric set, record flagged as partial")
	}

	stats := &domain.SiteStats{
		SiteDomain:    siteDomain,
		Period:        period,
		DateRange:     parseDateRange(response.Query.DateRange, string(period)),
		Visitors:      int(values[0]),
		Visits:        int(values[1]),
		Pageviews:     int(values[2]),
		BounceRate:    values[3],
		VisitDuration: values[4],
		ViewsPerVisit: values[5],
		RetrievedAt:   time.Now(),
		Partial:       partial,
	}

	return stats, nil
}

// parseDateRange extrai a janela efetiva ecoada pela API. O formato pode ser
// um par de datas ou o próprio rótulo simbólico enviado na consulta.
func parseDateRange(raw jsoniter.RawMessage, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}

	var pair []string
	if err := json.Unmarshal(raw, &pair); err == nil && len(pair) == 2 {
		return pair[0] + " - " + pair[1]
	}

	var label string
	if err := json.Unmarshal(raw, &label); err == nil && label != "" {
		return label
	}

	return fallback
}
