package aggregating

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vfg2006/plausible-stats-aggregator/internal/domain"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/utils"
)

// Service valida e agrega as estatísticas coletadas de um período.
// Não faz rede nem I/O de arquivo: recebe registros, devolve registros.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Clean filtra registros que falham nas checagens básicas de sanidade.
// Cada exclusão é logada e devolvida com o motivo; registros parciais
// passam, desde que os valores presentes sejam válidos.
func (s *Service) Clean(records []domain.SiteStats) ([]domain.SiteStats, []domain.SkippedStat) {
	cleaned := make([]domain.SiteStats, 0, len(records))
	excluded := make([]domain.SkippedStat, 0)

	for _, stats := range records {
		if reason := validate(stats); reason != "" {
			logrus.WithFields(logrus.Fields{
				"site":   stats.SiteDomain,
				"period": stats.Period,
				"reason": reason,
			}).Warn("aggregating: record excluded from aggregation")

			excluded = append(excluded, domain.SkippedStat{
				SiteDomain: stats.SiteDomain,
				Period:     stats.Period,
				Reason:     reason,
			})
			continue
		}

		cleaned = append(cleaned, stats)
	}

	return cleaned, excluded
}

// validate retorna o motivo da exclusão, ou vazio para registros válidos
func validate(stats domain.SiteStats) string {
	if stats.SiteDomain == "" {
		return "site sem domínio"
	}

	if stats.Visitors < 0 || stats.Visits < 0 || stats.Pageviews < 0 {
		return "contagem negativa"
	}

	if !utils.IsFinite(stats.BounceRate) || !utils.IsFinite(stats.VisitDuration) || !utils.IsFinite(stats.ViewsPerVisit) {
		return "valor não finito"
	}

	if stats.BounceRate < 0 || stats.BounceRate > 100 {
		return fmt.Sprintf("bounce_rate fora de [0,100]: %.2f", stats.BounceRate)
	}

	if stats.VisitDuration < 0 || stats.ViewsPerVisit < 0 {
		return "métrica derivada negativa"
	}

	return ""
}

// Totals calcula a linha sintética TOTAL de um período a partir dos
// registros já limpos. Contagens são somadas; bounce rate e duração de
// visita são médias ponderadas por visitas; views por visita é a razão
// entre o total de pageviews e o total de visitas.
func (s *Service) Totals(period domain.Period, cleaned []domain.SiteStats, retrievedAt time.Time) domain.SiteStats {
	totals := domain.SiteStats{
		SiteDomain:  domain.TotalsDomain,
		Period:      period,
		DateRange:   fmt.Sprintf("All sites (%d sites)", len(cleaned)),
		RetrievedAt: retrievedAt,
	}

	var weightedBounce, weightedDuration float64
	for _, stats := range cleaned {
		totals.Visitors += stats.Visitors
		totals.Visits += stats.Visits
		totals.Pageviews += stats.Pageviews

		weightedBounce += (stats.BounceRate / 100) * float64(stats.Visits)
		weightedDuration += stats.VisitDuration * float64(stats.Visits)
	}

	totalVisits := float64(totals.Visits)
	totals.BounceRate = utils.SafeDivide(weightedBounce, totalVisits) * 100
	totals.VisitDuration = utils.SafeDivide(weightedDuration, totalVisits)
	totals.ViewsPerVisit = utils.SafeDivide(float64(totals.Pageviews), totalVisits)

	logrus.WithFields(logrus.Fields{
		"period":   period,
		"sites":    len(cleaned),
		"visitors": totals.Visitors,
		"visits":   totals.Visits,
	}).Info("aggregating: period totals calculated")

	return totals
}
