package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vfg2006/plausible-stats-aggregator/internal/scheduler"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/apiErrors"
)

// TriggerRun dispara manualmente uma execução do pipeline de exportação
func TriggerRun(syncService *scheduler.ExportSyncService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logrus.Info("INIT - TriggerRun")

		if syncService == nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidConfig, "Serviço de exportação não disponível", nil)
			return
		}

		syncService.TriggerManualSync()

		w.WriteHeader(http.StatusAccepted)
		response := map[string]any{
			"message": "Exportação iniciada com sucesso",
		}
		json.NewEncoder(w).Encode(response)
	}
}

// GetRunStatus retorna o status do agendador e da última execução
func GetRunStatus(syncService *scheduler.ExportSyncService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logrus.Info("INIT - GetRunStatus")

		if syncService == nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidConfig, "Serviço de exportação não disponível", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(syncService.GetStatus())
	}
}
