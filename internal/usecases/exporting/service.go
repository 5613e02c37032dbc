package exporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/vfg2006/plausible-stats-aggregator/internal/domain"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/apiErrors"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/utils"
)

// Ordem fixa das colunas dos CSVs; ferramentas externas dependem dela
var csvHeader = []string{
	"site_domain",
	"period",
	"date_range",
	"visitors",
	"visits",
	"pageviews",
	"bounce_rate",
	"visit_duration",
	"views_per_visit",
	"retrieved_at",
}

const (
	timestampLayout   = "20060102_150405"
	retrievedAtLayout = "2006-01-02 15:04:05"
)

// Service grava os relatórios CSV e o resumo da execução no diretório de
// saída. A escrita é feita em um arquivo temporário renomeado no fim, para
// nunca deixar um relatório parcial visível.
type Service struct {
	outputDir string
}

func NewService(outputDir string) (*Service, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, apiErrors.Wrap(err, apiErrors.ErrExportWrite, "erro ao criar o diretório de saída")
	}

	logrus.WithField("output_dir", outputDir).Info("exporting: output directory ready")

	return &Service{outputDir: outputDir}, nil
}

// ExportPeriod grava o CSV de um período: uma linha por site na ordem de
// listagem e a linha TOTAL por último. Retorna o caminho do arquivo gerado.
func (s *Service) ExportPeriod(period domain.Period, records []domain.SiteStats, totals domain.SiteStats, timestamp time.Time) (string, error) {
	filename := fmt.Sprintf("%s_%s.csv", period.Label(), timestamp.Format(timestampLayout))
	fullPath := filepath.Join(s.outputDir, filename)

	rows := make([][]string, 0, len(records)+1)
	for _, stats := range records {
		rows = append(rows, statsRow(stats))
	}
	rows = append(rows, statsRow(totals))

	if err := s.writeCSV(fullPath, rows); err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"file":   filename,
		"period": period,
		"rows":   len(rows),
	}).Info("exporting: CSV report written")

	return fullPath, nil
}

// statsRow serializa um registro na ordem fixa das colunas
func statsRow(stats domain.SiteStats) []string {
	return []string{
		stats.SiteDomain,
		string(stats.Period),
		stats.DateRange,
		strconv.Itoa(stats.Visitors),
		strconv.Itoa(stats.Visits),
		strconv.Itoa(stats.Pageviews),
		formatFloat(stats.BounceRate),
		formatFloat(stats.VisitDuration),
		formatFloat(stats.ViewsPerVisit),
		stats.RetrievedAt.Format(retrievedAtLayout),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(utils.RoundWithTwoDecimalPlace(f), 'f', 2, 64)
}

// writeCSV grava o cabeçalho e as linhas em um temporário e renomeia ao final
func (s *Service) writeCSV(path string, rows [][]string) error {
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return apiErrors.Wrap(err, apiErrors.ErrExportWrite, "erro ao criar o arquivo temporário")
	}

	writer := csv.NewWriter(file)

	writeErr := writer.Write(csvHeader)
	for _, row := range rows {
		if writeErr != nil {
			break
		}
		writeErr = writer.Write(row)
	}
	writer.Flush()
	if writeErr == nil {
		writeErr = writer.Error()
	}

	if closeErr := file.Close(); writeErr == nil {
		writeErr = closeErr
	}

	if writeErr != nil {
		os.Remove(tmpPath)
		return apiErrors.Wrap(writeErr, apiErrors.ErrExportWrite, "erro ao gravar o CSV")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return apiErrors.Wrap(err, apiErrors.ErrExportWrite, "erro ao renomear o CSV final")
	}

	return nil
}

// WriteSummary grava o resumo em texto da execução: arquivos gerados,
// contagens e o retrato dos totais de cada período
func (s *Service) WriteSummary(report *domain.RunReport, timestamp time.Time) (string, error) {
	filename := fmt.Sprintf("export-summary_%s.txt", timestamp.Format(timestampLayout))
	path := filepath.Join(s.outputDir, filename)

	var b strings.Builder
	b.WriteString("Plausible Stats Export Summary\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")
	fmt.Fprintf(&b, "Run ID: %s\n", report.RunID)
	fmt.Fprintf(&b, "Export Date: %s\n", timestamp.Format(retrievedAtLayout))
	fmt.Fprintf(&b, "Run Duration: %s\n\n", report.Duration.Round(time.Millisecond))

	fmt.Fprintf(&b, "Sites Found: %d\n", report.SitesFound)
	fmt.Fprintf(&b, "Stats Collected: %d\n", report.StatsCollected)
	fmt.Fprintf(&b, "Stats Skipped: %d\n", report.StatsSkipped())

	for _, skipped := range report.Skipped {
		fmt.Fprintf(&b, "  - %s (%s): %s\n", skipped.SiteDomain, skipped.Period, skipped.Reason)
	}

	b.WriteString("\nFiles Generated:\n")
	for _, file := range report.Files {
		fmt.Fprintf(&b, "  - %s\n", filepath.Base(file))
	}

	b.WriteString("\nTotals:\n")
	for _, period := range domain.Periods() {
		totals, ok := report.Totals[period]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  %s: visitors=%d visits=%d pageviews=%d bounce_rate=%s visit_duration=%s views_per_visit=%s\n",
			period.Label(),
			totals.Visitors,
			totals.Visits,
			totals.Pageviews,
			formatFloat(totals.BounceRate),
			formatFloat(totals.VisitDuration),
			formatFloat(totals.ViewsPerVisit),
		)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(b.String()), 0o644); err != nil {
		return "", apiErrors.Wrap(err, apiErrors.ErrExportWrite, "erro ao gravar o resumo da exportação")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", apiErrors.Wrap(err, apiErrors.ErrExportWrite, "erro ao renomear o resumo final")
	}

	logrus.WithField("file", filename).Info("exporting: summary file written")

	return path, nil
}

// ListExports lista os CSVs presentes no diretório de saída, mais recentes
// primeiro
func (s *Service) ListExports() ([]string, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		return nil, errors.Wrap(err, "erro ao listar o diretório de saída")
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		files = append(files, entry.Name())
	}

	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	return files, nil
}
