package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"TNSDigest/internal/domain"
	"TNSDigest/internal/ports"
)

const archiveTable = "tns_enriched_transients"

// Schema creates the archive table when it does not exist yet.
const Schema = `CREATE TABLE IF NOT EXISTS tns_enriched_transients (
    run_date                date             NOT NULL,
    objname                 text             NOT NULL,
    run_id                  text             NOT NULL,
    name_prefix             text,
    ra_hms                  text,
    dec_dms                 text,
    radeg                   double precision NOT NULL,
    decdeg                  double precision NOT NULL,
    discovery_date          text,
    discovery_mag           double precision,
    disc_mag_filter         text,
    object_type             text,
    reporting_group         text,
    discovery_data_source   text,
    internal_names          text,
    host_name               text,
    host_ra                 double precision,
    host_dec                double precision,
    host_type               text,
    host_mag_filter         text,
    host_redshift           double precision,
    host_offset_arcmin      double precision,
    luminosity_distance_mpc double precision NOT NULL,
    updated_at              timestamptz      NOT NULL DEFAULT NOW(),
    PRIMARY KEY (run_date, objname)
)`

var archiveColumns = []string{
	"run_date",
	"objname",
	"run_id",
	"name_prefix",
	"ra_hms",
	"dec_dms",
	"radeg",
	"decdeg",
	"discovery_date",
	"discovery_mag",
	"disc_mag_filter",
	"object_type",
	"reporting_group",
	"discovery_data_source",
	"internal_names",
	"host_name",
	"host_ra",
	"host_dec",
	"host_type",
	"host_mag_filter",
	"host_redshift",
	"host_offset_arcmin",
	"luminosity_distance_mpc",
}

const upsertSuffix = `ON CONFLICT (run_date, objname) DO UPDATE
SET run_id = EXCLUDED.run_id,
    name_prefix = EXCLUDED.name_prefix,
    ra_hms = EXCLUDED.ra_hms,
    dec_dms = EXCLUDED.dec_dms,
    radeg = EXCLUDED.radeg,
    decdeg = EXCLUDED.decdeg,
    discovery_date = EXCLUDED.discovery_date,
    discovery_mag = EXCLUDED.discovery_mag,
    disc_mag_filter = EXCLUDED.disc_mag_filter,
    object_type = EXCLUDED.object_type,
    reporting_group = EXCLUDED.reporting_group,
    discovery_data_source = EXCLUDED.discovery_data_source,
    internal_names = EXCLUDED.internal_names,
    host_name = EXCLUDED.host_name,
    host_ra = EXCLUDED.host_ra,
    host_dec = EXCLUDED.host_dec,
    host_type = EXCLUDED.host_type,
    host_mag_filter = EXCLUDED.host_mag_filter,
    host_redshift = EXCLUDED.host_redshift,
    host_offset_arcmin = EXCLUDED.host_offset_arcmin,
    luminosity_distance_mpc = EXCLUDED.luminosity_distance_mpc,
    updated_at = NOW()`

// PostgresArchive stores qualifying report rows in Postgres.
type PostgresArchive struct {
	db *sql.DB
}

var _ ports.ReportArchive = (*PostgresArchive)(nil)

// NewPostgresArchive wires a sql.DB implementation.
func NewPostgresArchive(db *sql.DB) *PostgresArchive {
	return &PostgresArchive{db: db}
}

// EnsureSchema applies Schema.
func (r *PostgresArchive) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveRun upserts every record for the run date in one statement. A rerun of the same day refreshes every stored column, so later TNS reclassifications land.
func (r *PostgresArchive) SaveRun(ctx context.Context, runID string, day time.Time, records []domain.EnrichedRecord) error {
	if r.db == nil || len(records) == 0 {
		return nil
	}

	query, args, err := buildUpsert(runID, day, records)
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert run %s: %w", runID, err)
	}
	return nil
}

func buildUpsert(runID string, day time.Time, records []domain.EnrichedRecord) (string, []interface{}, error) {
	runDate := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	insert := sq.Insert(archiveTable).
		Columns(archiveColumns...).
		PlaceholderFormat(sq.Dollar)

	for _, rec := range records {
		d := rec.Discovery
		g := rec.Galaxy
		insert = insert.Values(
			runDate,
			d.Name,
			runID,
			nullString(d.Prefix),
			nullString(d.RASexagesimal),
			nullString(d.DecSexagesimal),
			d.RA,
			d.Dec,
			nullString(d.DiscoveryDate),
			d.DiscoveryMag,
			nullString(d.DiscoveryFilter),
			nullString(d.ObjectType),
			nullString(d.ReportingGroup),
			nullString(d.DiscoveryDataSource),
			nullString(d.InternalNames),
			nullString(g.Name),
			g.RA,
			g.Dec,
			nullString(g.Type),
			nullString(g.MagFilter),
			g.Redshift,
			g.Separation,
			rec.LuminosityDistance,
		)
	}

	return insert.Suffix(upsertSuffix).ToSql()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
