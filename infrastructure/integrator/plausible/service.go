package plausible

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/vfg2006/plausible-stats-aggregator/infrastructure/integrator/plausible/plausibleclient"
	"github.com/vfg2006/plausible-stats-aggregator/internal/config"
	"github.com/vfg2006/plausible-stats-aggregator/internal/domain"
)

// Integrator expõe as operações do Plausible usadas pelo pipeline
type Integrator interface {
	ListSites(ctx context.Context) ([]domain.Site, error)
	GetSiteStats(ctx context.Context, site domain.Site, period domain.Period) (*domain.SiteStats, error)
}

type PlausibleIntegrator struct {
	cfg    *config.Config
	Client plausibleclient.Client
}

func New(cfg *config.Config, client plausibleclient.Client) *PlausibleIntegrator {
	return &PlausibleIntegrator{
		cfg:    cfg,
		Client: client,
	}
}

// ListSites retorna todos os sites da conta, já paginados pelo client
func (s *PlausibleIntegrator) ListSites(ctx context.Context) ([]domain.Site, error) {
	sites, err := s.Client.ListSites(ctx)
	if err != nil {
		logrus.WithError(err).Error("plausible: failed to list account sites")
		return nil, err
	}

	for _, site := range sites {
		logrus.WithFields(logrus.Fields{
			"domain":   site.Domain,
			"timezone": site.Timezone,
		}).Debug("plausible: site found")
	}

	return sites, nil
}

// GetSiteStats busca as métricas de um site para um período
func (s *PlausibleIntegrator) GetSiteStats(ctx context.Context, site domain.Site, period domain.Period) (*domain.SiteStats, error) {
	stats, err := s.Client.QueryStats(ctx, site.Domain, period)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"site":   site.Domain,
			"period": period,
			"error":  err.Error(),
		}).Error("plausible: failed to get site stats from API")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"site":     site.Domain,
		"period":   period,
		"visitors": stats.Visitors,
	}).Debug("plausible: successfully retrieved site stats")

	return stats, nil
}
