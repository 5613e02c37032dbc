package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vfg2006/plausible-stats-aggregator/internal/usecases/exporting"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/apiErrors"
)

// ListExports lista os relatórios CSV disponíveis no diretório de saída
func ListExports(exporter *exporting.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logrus.Info("INIT - ListExports")

		files, err := exporter.ListExports()
		if err != nil {
			logrus.WithError(err).Error("Erro ao listar os arquivos exportados")
			apiErrors.WriteError(w, apiErrors.ErrExportWrite, "Erro ao listar os arquivos exportados", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"exports": files,
		})
	}
}
