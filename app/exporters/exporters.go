// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

// Package exporters writes run reports to disk. Each exporter is a
// types.ReportSink; the poller hands it the report after a run persists.
package exporters

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/greenkube/greenkube-agent/app/types"
)

// Default file names inside the export directory. Each run overwrites the
// previous report; the store holds history, the report is a snapshot.
const (
	JSONReportFile = "greenkube-report.json"
	CSVReportFile  = "greenkube-report.csv"
)

// JSONExporter writes the full report, recommendations included, as one
// indented JSON document.
type JSONExporter struct {
	dir string
}

func NewJSONExporter(dir string) *JSONExporter {
	return &JSONExporter{dir: dir}
}

var _ types.ReportSink = (*JSONExporter)(nil)

func (e *JSONExporter) Write(ctx context.Context, report *types.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding report")
	}
	return writeReportFile(e.dir, JSONReportFile, raw)
}

// CSVExporter writes the per-pod metric rows as a flat table. It carries
// only the measures; recommendations are JSON-only.
type CSVExporter struct {
	dir string
}

func NewCSVExporter(dir string) *CSVExporter {
	return &CSVExporter{dir: dir}
}

var _ types.ReportSink = (*CSVExporter)(nil)

var csvHeader = []string{
	"namespace", "pod", "timestamp",
	"joules", "co2e_grams", "embodied_co2e_grams", "grid_intensity", "pue",
	"total_cost", "cpu_usage_millicores", "cpu_request_millicores",
	"is_estimated", "estimation_reasons",
}

func (e *CSVExporter) Write(ctx context.Context, report *types.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for i := range report.Metrics {
		m := &report.Metrics[i]
		row := []string{
			sanitizeCell(m.Namespace),
			sanitizeCell(m.Pod),
			types.FormatTimestamp(m.Timestamp),
			formatMeasure(m.Joules),
			formatMeasure(m.CO2eGrams),
			formatMeasure(m.EmbodiedCO2eGrams),
			formatMeasure(m.GridIntensity),
			formatMeasure(m.PUE),
			formatMeasure(m.TotalCost),
			formatMeasure(m.CPUUsageMillicores),
			formatMeasure(m.CPURequestMillicores),
			fmt.Sprintf("%t", m.IsEstimated),
			sanitizeCell(strings.Join(m.EstimationReasons, ";")),
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "flushing rows")
	}
	return writeReportFile(e.dir, CSVReportFile, []byte(buf.String()))
}

func formatMeasure(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.6f", *v)
}

// sanitizeCell guards against spreadsheet formula injection: a leading
// =, +, -, or @ gets a quote prefix so the cell stays inert text.
func sanitizeCell(v string) string {
	if strings.HasPrefix(v, "=") || strings.HasPrefix(v, "+") ||
		strings.HasPrefix(v, "-") || strings.HasPrefix(v, "@") {
		return "'" + v
	}
	return v
}

func writeReportFile(dir, name string, raw []byte) error {
	if dir == "" {
		return errors.New("export directory is not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

// ForFormats builds the sinks for the configured format names. Unknown
// formats are configuration errors.
func ForFormats(dir string, formats []string) ([]types.ReportSink, error) {
	var sinks []types.ReportSink
	for _, format := range formats {
		switch strings.ToLower(strings.TrimSpace(format)) {
		case "json":
			sinks = append(sinks, NewJSONExporter(dir))
		case "csv":
			sinks = append(sinks, NewCSVExporter(dir))
		case "":
		default:
			return nil, errors.Wrapf(types.ErrConfigurationInvalid, "unknown export format %q", format)
		}
	}
	return sinks, nil
}
