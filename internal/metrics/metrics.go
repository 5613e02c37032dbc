package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resultados possíveis de uma chamada à API, usados como label
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeRateLimit = "rate_limited"
)

var (
	// APIRequests conta as chamadas à API do Plausible por endpoint e resultado
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plausible_api_requests_total",
		Help: "Total de requisições feitas à API do Plausible",
	}, []string{"endpoint", "outcome"})

	// APIRetries conta as novas tentativas disparadas pela política de retry
	APIRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plausible_api_retries_total",
		Help: "Total de novas tentativas de requisição à API do Plausible",
	})

	// GovernorWaitSeconds acumula o tempo gasto aguardando o governador de cota
	GovernorWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plausible_rate_governor_wait_seconds_total",
		Help: "Tempo total aguardando o espaçamento mínimo entre requisições",
	})

	// Runs conta as execuções do pipeline por resultado
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "export_runs_total",
		Help: "Total de execuções do pipeline de exportação",
	}, []string{"outcome"})

	// SitesSkipped conta as combinações (site, período) descartadas
	SitesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "export_sites_skipped_total",
		Help: "Total de combinações site/período descartadas por falha",
	})

	// LastRunDuration registra a duração da última execução completa
	LastRunDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "export_last_run_duration_seconds",
		Help: "Duração da última execução do pipeline de exportação",
	})
)

// Handler expõe as métricas no formato do Prometheus
func Handler() http.Handler {
	return promhttp.Handler()
}
