package reporting

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vfg2006/plausible-stats-aggregator/infrastructure/integrator/plausible"
	"github.com/vfg2006/plausible-stats-aggregator/internal/config"
	"github.com/vfg2006/plausible-stats-aggregator/internal/domain"
	"github.com/vfg2006/plausible-stats-aggregator/internal/metrics"
	"github.com/vfg2006/plausible-stats-aggregator/internal/usecases/aggregating"
	"github.com/vfg2006/plausible-stats-aggregator/internal/usecases/exporting"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/apiErrors"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/utils"
)

// Service orquestra o pipeline completo: listar sites, buscar estatísticas
// por site e período, agregar e exportar. Falhas de (site, período) são
// registradas e puladas; só configuração, autenticação e escrita dos
// relatórios são fatais.
type Service struct {
	cfg        *config.Config
	integrator plausible.Integrator
	aggregator *aggregating.Service
	exporter   *exporting.Service

	mu         sync.Mutex
	state      domain.RunState
	lastReport *domain.RunReport
	lastError  string
}

func NewService(
	cfg *config.Config,
	integrator plausible.Integrator,
	aggregator *aggregating.Service,
	exporter *exporting.Service,
) *Service {
	return &Service{
		cfg:        cfg,
		integrator: integrator,
		aggregator: aggregator,
		exporter:   exporter,
		state:      domain.StateIdle,
	}
}

func (s *Service) setState(state domain.RunState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run executa o pipeline uma vez e retorna o relatório da execução.
// O relatório só é retornado quando os dois CSVs e o resumo foram gravados.
func (s *Service) Run(ctx context.Context) (*domain.RunReport, error) {
	runID, err := utils.GenerateRunID()
	if err != nil {
		runID = "unknown"
	}

	report := &domain.RunReport{
		RunID:     runID,
		StartedAt: time.Now(),
		Skipped:   make([]domain.SkippedStat, 0),
		Files:     make([]string, 0),
		Totals:    make(map[domain.Period]domain.SiteStats),
	}

	logger := logrus.WithField("run_id", runID)
	logger.Info("reporting: iniciando execução do pipeline de exportação")

	// Etapa 1: listar os sites da conta
	s.setState(domain.StateListingSites)

	sites, err := s.integrator.ListSites(ctx)
	if err != nil {
		return nil, s.fail(report, err, "reporting: falha ao listar os sites da conta")
	}

	report.SitesFound = len(sites)
	if len(sites) == 0 {
		// Conta sem sites ainda gera os dois relatórios, só com a linha TOTAL
		logger.Warn("reporting: nenhum site encontrado na conta")
	}

	// Etapa 2: buscar estatísticas por site e período
	s.setState(domain.StateFetchingStats)

	statsByPeriod := make(map[domain.Period][]domain.SiteStats)
	for _, site := range sites {
		for _, period := range domain.Periods() {
			stats, err := s.integrator.GetSiteStats(ctx, site, period)
			if err != nil {
				// Chave de estatísticas rejeitada invalida todas as buscas
				if apiErrors.IsAuthError(err) {
					return nil, s.fail(report, err, "reporting: chave de estatísticas rejeitada")
				}

				metrics.SitesSkipped.Inc()
				report.Skipped = append(report.Skipped, domain.SkippedStat{
					SiteDomain: site.Domain,
					Period:     period,
					Reason:     err.Error(),
				})

				logger.WithFields(logrus.Fields{
					"site":   site.Domain,
					"period": period,
					"error":  err.Error(),
				}).Warn("reporting: site pulado nesta execução")
				continue
			}

			statsByPeriod[period] = append(statsByPeriod[period], *stats)
		}
	}

	// Etapa 3: validar e agregar por período
	s.setState(domain.StateAggregating)

	retrievedAt := time.Now()
	cleanedByPeriod := make(map[domain.Period][]domain.SiteStats)
	for _, period := range domain.Periods() {
		cleaned, excluded := s.aggregator.Clean(statsByPeriod[period])
		for range excluded {
			metrics.SitesSkipped.Inc()
		}
		report.Skipped = append(report.Skipped, excluded...)
		report.StatsCollected += len(cleaned)

		cleanedByPeriod[period] = cleaned
		report.Totals[period] = s.aggregator.Totals(period, cleaned, retrievedAt)
	}

	// Etapa 4: exportar CSVs e resumo
	s.setState(domain.StateExporting)

	exportedAt := time.Now()
	for _, period := range domain.Periods() {
		file, err := s.exporter.ExportPeriod(period, cleanedByPeriod[period], report.Totals[period], exportedAt)
		if err != nil {
			return nil, s.fail(report, err, "reporting: falha ao gravar o relatório CSV")
		}
		report.Files = append(report.Files, file)
	}

	report.FinishedAt = time.Now()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)

	summary, err := s.exporter.WriteSummary(report, exportedAt)
	if err != nil {
		return nil, s.fail(report, err, "reporting: falha ao gravar o resumo da execução")
	}
	report.Files = append(report.Files, summary)

	s.mu.Lock()
	s.state = domain.StateDone
	s.lastReport = report
	s.lastError = ""
	s.mu.Unlock()

	metrics.Runs.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.LastRunDuration.Set(report.Duration.Seconds())

	logger.WithFields(logrus.Fields{
		"sites_found":     report.SitesFound,
		"stats_collected": report.StatsCollected,
		"stats_skipped":   report.StatsSkipped(),
		"duration":        report.Duration.String(),
	}).Info("reporting: execução concluída com sucesso")

	return report, nil
}

// fail registra a falha fatal e congela o relatório parcial para o status API
func (s *Service) fail(report *domain.RunReport, err error, message string) error {
	logrus.WithFields(logrus.Fields{
		"run_id": report.RunID,
		"error":  err.Error(),
	}).Error(message)

	report.FinishedAt = time.Now()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)

	s.mu.Lock()
	s.state = domain.StateFailed
	s.lastReport = report
	s.lastError = err.Error()
	s.mu.Unlock()

	metrics.Runs.WithLabelValues(metrics.OutcomeError).Inc()

	return err
}

// Status retorna o estado atual do pipeline e o resumo da última execução
func (s *Service) Status() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]any{
		"state":      string(s.state),
		"last_error": s.lastError,
	}

	if s.lastReport != nil {
		status["last_run"] = map[string]any{
			"run_id":          s.lastReport.RunID,
			"started_at":      s.lastReport.StartedAt,
			"finished_at":     s.lastReport.FinishedAt,
			"sites_found":     s.lastReport.SitesFound,
			"stats_collected": s.lastReport.StatsCollected,
			"stats_skipped":   s.lastReport.StatsSkipped(),
			"files":           s.lastReport.Files,
		}
	}

	return status
}
