package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/vfg2006/plausible-stats-aggregator/internal/config"
	"github.com/vfg2006/plausible-stats-aggregator/internal/usecases/reporting"
)

// ExportSyncConfig representa a configuração do agendador de exportações
type ExportSyncConfig struct {
	CronSchedule string
	SyncEnabled  bool
}

// ExportSyncService gerencia o agendamento e execução do pipeline de
// exportação de estatísticas do Plausible
type ExportSyncService struct {
	scheduler           *gocron.Scheduler
	config              ExportSyncConfig
	runner              reporting.Runner
	syncRunning         bool
	syncMutex           sync.Mutex
	lastSyncStartedAt   time.Time
	lastSyncCompletedAt time.Time
}

// NewExportSyncService cria uma nova instância do serviço de sincronização
func NewExportSyncService(runner reporting.Runner, appConfig *config.Config) *ExportSyncService {
	syncConfig := ExportSyncConfig{
		CronSchedule: appConfig.ExportSync.CronSchedule,
		SyncEnabled:  appConfig.ExportSync.Enabled,
	}

	scheduler := gocron.NewScheduler(time.Local)

	logrus.WithFields(logrus.Fields{
		"cron_schedule": syncConfig.CronSchedule,
		"sync_enabled":  syncConfig.SyncEnabled,
	}).Info("Configuração do agendador de exportações carregada")

	return &ExportSyncService{
		scheduler:   scheduler,
		config:      syncConfig,
		runner:      runner,
		syncRunning: false,
	}
}

// Start inicia o agendador
func (s *ExportSyncService) Start(ctx context.Context) error {
	if !s.config.SyncEnabled {
		logrus.Info("Exportação agendada desabilitada por configuração")
		return nil
	}

	logrus.WithField("cron", s.config.CronSchedule).Info("Iniciando agendador de exportações")

	_, err := s.scheduler.Cron(s.config.CronSchedule).Do(func() {
		s.runExport(ctx)
	})
	if err != nil {
		return fmt.Errorf("erro ao agendar exportação de estatísticas: %w", err)
	}

	s.scheduler.StartAsync()

	// Configurar o cancelamento do agendador quando o contexto for cancelado
	go func() {
		<-ctx.Done()
		logrus.Info("Parando agendador de exportações")
		s.scheduler.Stop()
	}()

	return nil
}

// runExport executa o pipeline completo, ignorando disparos sobrepostos
func (s *ExportSyncService) runExport(ctx context.Context) {
	s.syncMutex.Lock()
	if s.syncRunning {
		s.syncMutex.Unlock()
		logrus.Info("Exportação já em andamento, ignorando")
		return
	}
	s.syncRunning = true
	s.syncMutex.Unlock()

	s.lastSyncStartedAt = time.Now()

	defer func() {
		s.syncMutex.Lock()
		s.syncRunning = false
		s.syncMutex.Unlock()
	}()

	report, err := s.runner.Run(ctx)
	if err != nil {
		logrus.WithError(err).Error("Erro na execução agendada da exportação")
		return
	}

	logrus.WithFields(logrus.Fields{
		"run_id":          report.RunID,
		"sites_found":     report.SitesFound,
		"stats_collected": report.StatsCollected,
		"stats_skipped":   report.StatsSkipped(),
		"duration":        report.Duration.String(),
	}).Info("Exportação agendada concluída")

	s.lastSyncCompletedAt = time.Now()
}

// TriggerManualSync inicia manualmente uma exportação
func (s *ExportSyncService) TriggerManualSync() {
	s.syncMutex.Lock()
	if s.syncRunning {
		s.syncMutex.Unlock()
		logrus.Info("Exportação já em andamento, ignorando solicitação manual")
		return
	}
	s.syncMutex.Unlock()

	logrus.Info("Iniciando exportação manual")
	go s.runExport(context.Background())
}

// GetStatus retorna o status atual do agendador
func (s *ExportSyncService) GetStatus() map[string]any {
	s.syncMutex.Lock()
	running := s.syncRunning
	s.syncMutex.Unlock()

	return map[string]any{
		"sync_enabled":           s.config.SyncEnabled,
		"sync_cron":              s.config.CronSchedule,
		"sync_running":           running,
		"last_sync_started_at":   s.lastSyncStartedAt,
		"last_sync_completed_at": s.lastSyncCompletedAt,
		"pipeline":               s.runner.Status(),
	}
}
