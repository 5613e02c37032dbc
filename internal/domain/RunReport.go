package domain

import "time"

// RunState representa o estado atual do pipeline de exportação
type RunState string

const (
	StateIdle          RunState = "idle"
	StateListingSites  RunState = "listing_sites"
	StateFetchingStats RunState = "fetching_stats"
	StateAggregating   RunState = "aggregating"
	StateExporting     RunState = "exporting"
	StateDone          RunState = "done"
	StateFailed        RunState = "failed"
)

// SkippedStat identifica uma combinação (site, período) descartada e o motivo
type SkippedStat struct {
	SiteDomain string `json:"site_domain"`
	Period     Period `json:"period"`
	Reason     string `json:"reason"`
}

// RunReport resume uma execução completa do pipeline: sites encontrados,
// estatísticas coletadas e descartadas e os arquivos gerados.
type RunReport struct {
	RunID          string        `json:"run_id"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Duration       time.Duration `json:"-"`
	SitesFound     int           `json:"sites_found"`
	StatsCollected int           `json:"stats_collected"`
	Skipped        []SkippedStat `json:"skipped,omitempty"`
	Files          []string      `json:"files"`

	// Totais por período, espelhando a linha TOTAL de cada CSV
	Totals map[Period]SiteStats `json:"totals"`
}

// StatsSkipped retorna a quantidade de combinações (site, período) descartadas
func (r *RunReport) StatsSkipped() int {
	return len(r.Skipped)
}
