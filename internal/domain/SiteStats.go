package domain

import "time"

// Period representa a janela de apuração dos relatórios
type Period string

const (
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// TotalsDomain é o valor usado na coluna site_domain da linha de totais
const TotalsDomain = "TOTAL"

// Periods retorna as janelas de apuração na ordem em que são processadas
func Periods() []Period {
	return []Period{PeriodMonth, PeriodYear}
}

// Label retorna o rótulo usado nos nomes dos arquivos exportados
func (p Period) Label() string {
	switch p {
	case PeriodMonth:
		return "month-to-date"
	case PeriodYear:
		return "year-to-date"
	}
	return string(p)
}

// Valid indica se o período é um dos valores suportados
func (p Period) Valid() bool {
	return p == PeriodMonth || p == PeriodYear
}

// SiteStats representa as métricas de um site em um período.
// Criado uma única vez por (site, período) a cada execução e nunca
// alterado depois disso; só existe em memória até a exportação.
type SiteStats struct {
	SiteDomain    string    `json:"site_domain"`
	Period        Period    `json:"period"`
	DateRange     string    `json:"date_range"`
	Visitors      int       `json:"visitors"`
	Visits        int       `json:"visits"`
	Pageviews     int       `json:"pageviews"`
	BounceRate    float64   `json:"bounce_rate"`
	VisitDuration float64   `json:"visit_duration"`
	ViewsPerVisit float64   `json:"views_per_visit"`
	RetrievedAt   time.Time `json:"retrieved_at"`

	// Partial indica que alguma métrica solicitada não veio na resposta
	// da API e foi preenchida com zero. O registro continua válido.
	Partial bool `json:"partial,omitempty"`
}

// IsTotals indica se o registro é a linha sintética de totais
func (s SiteStats) IsTotals() bool {
	return s.SiteDomain == TotalsDomain
}
