package handler

import (
	"net/http"

	"github.com/vfg2006/plausible-stats-aggregator/internal/api/handler/router"
	"github.com/vfg2006/plausible-stats-aggregator/internal/metrics"
	"github.com/vfg2006/plausible-stats-aggregator/internal/scheduler"
	"github.com/vfg2006/plausible-stats-aggregator/internal/usecases/exporting"
)

func Healthcheck() []router.Route {
	return []router.Route{
		{
			Path:    "/healthcheck",
			Method:  http.MethodGet,
			Handler: HealthcheckHandler(),
		},
	}
}

func Runs(syncService *scheduler.ExportSyncService) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/runs",
			Method:  http.MethodPost,
			Handler: TriggerRun(syncService),
		},
		{
			Path:    "/v1/runs/status",
			Method:  http.MethodGet,
			Handler: GetRunStatus(syncService),
		},
	}
}

func Exports(exporter *exporting.Service) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/exports",
			Method:  http.MethodGet,
			Handler: ListExports(exporter),
		},
	}
}

func Metrics() []router.Route {
	return []router.Route{
		{
			Path:    "/metrics",
			Method:  http.MethodGet,
			Handler: metrics.Handler(),
		},
	}
}
