package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"TNSDigest/internal/domain"
	"TNSDigest/internal/ports"
)

// Columns is the header row of every report, in order.
var Columns = []string{
	"objname",
	"name_prefix",
	"ra",
	"dec",
	"radeg",
	"decdeg",
	"discoverydate",
	"discoverymag",
	"discmagfilter",
	"object_type",
	"reporting_group",
	"discovery_data_source",
	"internal_names",
	"ned_name",
	"ned_host_ra",
	"ned_host_dec",
	"ned_type",
	"ned_mag_filter",
	"ned_host_redshift",
	"ned_offset (arcmin)",
	"luminosity_distance (Mpc)",
}

// CSVWriter implements ports.ReportWriter with one CSV file per run date.
type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

var _ ports.ReportWriter = (*CSVWriter)(nil)

// NewCSVWriter writes into dir; an empty dir means the working directory.
func NewCSVWriter(dir string, logger *slog.Logger) *CSVWriter {
	if dir == "" {
		dir = "."
	}
	return &CSVWriter{dir: dir, logger: logger}
}

// FileName is the report name for a run date, e.g. tns_results-2024-3-7.csv.
func FileName(day time.Time) string {
	return fmt.Sprintf("tns_results-%s.csv", domain.RunStamp(day))
}

// Write keeps qualifying records in arrival order and replaces the day's report atomically.
func (w *CSVWriter) Write(ctx context.Context, records []domain.EnrichedRecord, day time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	rows := domain.Qualifying(records)
	target := filepath.Join(w.dir, FileName(day))

	tmp, err := os.CreateTemp(w.dir, ".tns_results-*.csv")
	if err != nil {
		return "", fmt.Errorf("create temp report: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	cw := csv.NewWriter(tmp)
	if err := cw.Write(Columns); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, rec := range rows {
		if err := cw.Write(Row(rec)); err != nil {
			_ = tmp.Close()
			return "", fmt.Errorf("write row %s: %w", rec.Discovery.Name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("flush report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod report: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("move report into place: %w", err)
	}

	if w.logger != nil {
		w.logger.Debug("report written", "path", target, "rows", len(rows), "dropped", len(records)-len(rows))
	}
	return target, nil
}

// Row renders a record in Columns order; absent values become empty cells.
func Row(rec domain.EnrichedRecord) []string {
	d := rec.Discovery
	g := rec.Galaxy
	return []string{
		d.Name,
		d.Prefix,
		d.RASexagesimal,
		d.DecSexagesimal,
		formatFloat(d.RA),
		formatFloat(d.Dec),
		d.DiscoveryDate,
		formatOptional(d.DiscoveryMag),
		d.DiscoveryFilter,
		d.ObjectType,
		d.ReportingGroup,
		d.DiscoveryDataSource,
		d.InternalNames,
		g.Name,
		formatOptional(g.RA),
		formatOptional(g.Dec),
		g.Type,
		g.MagFilter,
		formatOptional(g.Redshift),
		formatOptional(g.Separation),
		formatFloat(rec.LuminosityDistance),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
