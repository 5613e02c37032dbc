package reporting

import (
	"context"

	"github.com/vfg2006/plausible-stats-aggregator/internal/domain"
)

// Runner é a interface do pipeline completo, consumida pelo agendador e
// pelo status API
type Runner interface {
	Run(ctx context.Context) (*domain.RunReport, error)
	Status() map[string]any
}
