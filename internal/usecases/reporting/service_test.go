package reporting

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vfg2006/plausible-stats-aggregator/infrastructure/integrator/plausible/mocks"
	"github.com/vfg2006/plausible-stats-aggregator/internal/config"
	"github.com/vfg2006/plausible-stats-aggregator/internal/domain"
	"github.com/vfg2006/plausible-stats-aggregator/internal/usecases/aggregating"
	"github.com/vfg2006/plausible-stats-aggregator/internal/usecases/exporting"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/apiErrors"
)

func newTestService(t *testing.T, integrator *mocks.MockIntegrator) (*Service, string) {
	t.Helper()

	outputDir := t.TempDir()
	exporter, err := exporting.NewService(outputDir)
	require.NoError(t, err)

	cfg := &config.Config{
		Export: config.Export{OutputDir: outputDir},
	}

	return NewService(cfg, integrator, aggregating.NewService(), exporter), outputDir
}

func fetchedStats(site domain.Site, period domain.Period) *domain.SiteStats {
	return &domain.SiteStats{
		SiteDomain:    site.Domain,
		Period:        period,
		DateRange:     "2024-06-01 - 2024-06-15",
		Visitors:      100,
		Visits:        120,
		Pageviews:     300,
		BounceRate:    40,
		VisitDuration: 90,
		ViewsPerVisit: 2.5,
		RetrievedAt:   time.Now(),
	}
}

func TestRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	integrator := mocks.NewMockIntegrator(ctrl)

	sites := []domain.Site{
		{Domain: "a.com", Timezone: "UTC"},
		{Domain: "b.com", Timezone: "America/Sao_Paulo"},
	}

	integrator.EXPECT().ListSites(gomock.Any()).Return(sites, nil)
	for _, site := range sites {
		for _, period := range domain.Periods() {
			integrator.EXPECT().
				GetSiteStats(gomock.Any(), site, period).
				Return(fetchedStats(site, period), nil)
		}
	}

	service, outputDir := newTestService(t, integrator)

	report, err := service.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.SitesFound)
	assert.Equal(t, 4, report.StatsCollected)
	assert.Zero(t, report.StatsSkipped())
	require.Len(t, report.Files, 3, "dois CSVs e o resumo")

	for _, file := range report.Files {
		_, err := os.Stat(file)
		assert.NoError(t, err, "arquivo ausente: %s", file)
	}

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	monthTotals := report.Totals[domain.PeriodMonth]
	assert.Equal(t, 200, monthTotals.Visitors)
	assert.Equal(t, 240, monthTotals.Visits)
	assert.Equal(t, "All sites (2 sites)", monthTotals.DateRange)

	status := service.Status()
	assert.Equal(t, string(domain.StateDone), status["state"])
	assert.Empty(t, status["last_error"])
}

func TestRun_SkipsFailedSiteAndContinues(t *testing.T) {
	ctrl := gomock.NewController(t)
	integrator := mocks.NewMockIntegrator(ctrl)

	good := domain.Site{Domain: "a.com", Timezone: "UTC"}
	bad := domain.Site{Domain: "down.com", Timezone: "UTC"}

	integrator.EXPECT().ListSites(gomock.Any()).Return([]domain.Site{good, bad}, nil)
	for _, period := range domain.Periods() {
		integrator.EXPECT().
			GetSiteStats(gomock.Any(), good, period).
			Return(fetchedStats(good, period), nil)
		integrator.EXPECT().
			GetSiteStats(gomock.Any(), bad, period).
			Return(nil, apiErrors.New(apiErrors.ErrRetriesExhausted, "tentativas esgotadas"))
	}

	service, _ := newTestService(t, integrator)

	report, err := service.Run(context.Background())
	require.NoError(t, err, "falha em um site não deve abortar a execução")

	assert.Equal(t, 2, report.SitesFound)
	assert.Equal(t, 2, report.StatsCollected)
	assert.Equal(t, 2, report.StatsSkipped())
	for _, skipped := range report.Skipped {
		assert.Equal(t, "down.com", skipped.SiteDomain)
	}
	assert.Len(t, report.Files, 3)
}

func TestRun_AuthErrorIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	integrator := mocks.NewMockIntegrator(ctrl)

	site := domain.Site{Domain: "a.com", Timezone: "UTC"}

	integrator.EXPECT().ListSites(gomock.Any()).Return([]domain.Site{site}, nil)
	integrator.EXPECT().
		GetSiteStats(gomock.Any(), site, domain.PeriodMonth).
		Return(nil, apiErrors.New(apiErrors.ErrInvalidAPIKey, "chave rejeitada"))

	service, outputDir := newTestService(t, integrator)

	_, err := service.Run(context.Background())
	require.Error(t, err)
	assert.True(t, apiErrors.IsAuthError(err))

	// Nenhum relatório deve ser gravado em uma execução abortada
	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	status := service.Status()
	assert.Equal(t, string(domain.StateFailed), status["state"])
	assert.NotEmpty(t, status["last_error"])
}

func TestRun_ListSitesFailureIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	integrator := mocks.NewMockIntegrator(ctrl)

	integrator.EXPECT().
		ListSites(gomock.Any()).
		Return(nil, apiErrors.New(apiErrors.ErrRetriesExhausted, "tentativas esgotadas"))

	service, _ := newTestService(t, integrator)

	_, err := service.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, apiErrors.ErrRetriesExhausted, apiErrors.CodeOf(err))

	status := service.Status()
	assert.Equal(t, string(domain.StateFailed), status["state"])
}

func TestRun_NoSitesStillExports(t *testing.T) {
	ctrl := gomock.NewController(t)
	integrator := mocks.NewMockIntegrator(ctrl)

	integrator.EXPECT().ListSites(gomock.Any()).Return([]domain.Site{}, nil)

	service, _ := newTestService(t, integrator)

	report, err := service.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.SitesFound)
	assert.Zero(t, report.StatsCollected)
	require.Len(t, report.Files, 3)

	// Os CSVs existem e contêm apenas o cabeçalho e a linha TOTAL
	for _, file := range report.Files {
		if !strings.HasSuffix(file, ".csv") {
			continue
		}
		content, err := os.ReadFile(file)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(content)), "\n")
		assert.Len(t, lines, 2, "cabeçalho + TOTAL em %s", filepath.Base(file))
		assert.True(t, strings.HasPrefix(lines[1], "TOTAL,"))
	}
}

func TestRun_InvalidRecordIsExcludedFromTotals(t *testing.T) {
	ctrl := gomock.NewController(t)
	integrator := mocks.NewMockIntegrator(ctrl)

	good := domain.Site{Domain: "a.com", Timezone: "UTC"}
	broken := domain.Site{Domain: "weird.com", Timezone: "UTC"}

	integrator.EXPECT().ListSites(gomock.Any()).Return([]domain.Site{good, broken}, nil)
	for _, period := range domain.Periods() {
		integrator.EXPECT().
			GetSiteStats(gomock.Any(), good, period).
			Return(fetchedStats(good, period), nil)

		stats := fetchedStats(broken, period)
		stats.BounceRate = 150
		integrator.EXPECT().
			GetSiteStats(gomock.Any(), broken, period).
			Return(stats, nil)
	}

	service, _ := newTestService(t, integrator)

	report, err := service.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.StatsCollected)
	assert.Equal(t, 2, report.StatsSkipped())

	monthTotals := report.Totals[domain.PeriodMonth]
	assert.Equal(t, "All sites (1 sites)", monthTotals.DateRange)
	assert.Equal(t, 100, monthTotals.Visitors)
}

func TestStatus_Idle(t *testing.T) {
	ctrl := gomock.NewController(t)
	service, _ := newTestService(t, mocks.NewMockIntegrator(ctrl))

	status := service.Status()
	assert.Equal(t, string(domain.StateIdle), status["state"])
	assert.Empty(t, status["last_error"])
	assert.NotContains(t, status, "last_run")
}
