package main

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vfg2006/plausible-stats-aggregator/infrastructure/integrator/plausible"
	"github.com/vfg2006/plausible-stats-aggregator/infrastructure/integrator/plausible/plausibleclient"
	"github.com/vfg2006/plausible-stats-aggregator/internal/api"
	"github.com/vfg2006/plausible-stats-aggregator/internal/config"
	"github.com/vfg2006/plausible-stats-aggregator/internal/scheduler"
	"github.com/vfg2006/plausible-stats-aggregator/internal/usecases/aggregating"
	"github.com/vfg2006/plausible-stats-aggregator/internal/usecases/exporting"
	"github.com/vfg2006/plausible-stats-aggregator/internal/usecases/reporting"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/ratelimit"
)

func main() {
	// Inicializa configuração de logs
	configureLogger()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	// Define o nível de log com base na configuração
	logLevel, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		logrus.Warnf("Nível de log inválido: %s, usando 'info'", cfg.App.LogLevel)
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)

	// Configuração inválida aborta antes de qualquer chamada de rede
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Error("Configuração inválida")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// O governador de cota é único por processo: todas as chamadas de
	// estatísticas compartilham o mesmo espaçamento mínimo
	governor := ratelimit.NewGovernor(cfg.Plausible.MaxRequestsPerHour)
	logrus.WithField("interval", governor.Interval().String()).Info("Governador de cota configurado")

	plausibleClient := plausibleclient.NewClient(cfg, governor)
	plausibleIntegrator := plausible.New(cfg, plausibleClient)

	aggregator := aggregating.NewService()

	exporter, err := exporting.NewService(cfg.Export.OutputDir)
	if err != nil {
		logrus.WithError(err).Error("Erro ao preparar o diretório de saída")
		os.Exit(1)
	}

	reportingService := reporting.NewService(cfg, plausibleIntegrator, aggregator, exporter)

	if !cfg.Server.Enabled {
		runOnce(ctx, reportingService)
		return
	}

	// Modo servidor: exportação agendada + status API
	exportSyncService := scheduler.NewExportSyncService(reportingService, cfg)
	if err := exportSyncService.Start(ctx); err != nil {
		logrus.WithError(err).Error("Erro ao iniciar o agendador de exportações")
		os.Exit(1)
	}
	logrus.Info("Agendador de exportações iniciado com sucesso")

	server, err := api.New(cfg, exportSyncService, exporter)
	if err != nil {
		logrus.Fatal(err)
	}

	if err := server.Run(ctx); err != nil {
		logrus.Error(err)
	}
}

// runOnce executa o pipeline uma única vez e encerra com o código de saída
// adequado: falhas fatais retornam 1, sites pulados não alteram o sucesso
func runOnce(ctx context.Context, runner reporting.Runner) {
	report, err := runner.Run(ctx)
	if err != nil {
		logrus.WithError(err).Error("Execução do pipeline falhou")
		os.Exit(1)
	}

	logrus.WithFields(logrus.Fields{
		"run_id":          report.RunID,
		"sites_found":     report.SitesFound,
		"stats_collected": report.StatsCollected,
		"stats_skipped":   report.StatsSkipped(),
		"files":           report.Files,
	}).Info("Exportação concluída com sucesso")

	os.Exit(0)
}

// configureLogger configura o formato e comportamento dos logs
func configureLogger() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
}
