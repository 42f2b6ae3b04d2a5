package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"TNSDigest/internal/domain"
	"TNSDigest/internal/logging"
	"TNSDigest/internal/ports"
)

const (
	phaseDetails = "Getting object details"
	phaseEnrich  = "Searching NED for nearby galaxies"

	defaultRadiusArcmin = 1.0
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Registry  ports.DiscoveryRegistry
	Catalog   ports.GalaxyCatalog
	Distance  ports.DistanceCalculator
	Writer    ports.ReportWriter
	Archive   ports.ReportArchive
	Publisher ports.ReportPublisher
	Notifier  ports.Notifier
	Progress  ports.Progress
	Logger    *slog.Logger

	// RadiusArcmin is the cone search radius; defaults to 1 arcmin.
	RadiusArcmin float64
	// Workers bounds concurrent galaxy lookups; defaults to 1.
	Workers int
	// NewRunID overrides run id generation (tests).
	NewRunID func() string
}

// Pipeline implements the daily discovery enrichment workflow.
type Pipeline struct {
	registry  ports.DiscoveryRegistry
	catalog   ports.GalaxyCatalog
	distance  ports.DistanceCalculator
	writer    ports.ReportWriter
	archive   ports.ReportArchive
	publisher ports.ReportPublisher
	notifier  ports.Notifier
	progress  ports.Progress
	logger    *slog.Logger
	radius    float64
	workers   int
	newRunID  func() string
}

// Result summarizes a finished run.
type Result struct {
	RunID         string
	Day           time.Time
	Searched      int
	Enriched      int
	Qualifying    int
	EmptyLookups  int
	FailedLookups int
	ReportPath    string
	PublishedKey  string
	Records       []domain.EnrichedRecord
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		registry:  deps.Registry,
		catalog:   deps.Catalog,
		distance:  deps.Distance,
		writer:    deps.Writer,
		archive:   deps.Archive,
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
		progress:  deps.Progress,
		logger:    deps.Logger,
		radius:    deps.RadiusArcmin,
		workers:   deps.Workers,
		newRunID:  deps.NewRunID,
	}
	if p.progress == nil {
		p.progress = nopProgress{}
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.radius <= 0 {
		p.radius = defaultRadiusArcmin
	}
	if p.workers < 1 {
		p.workers = 1
	}
	if p.newRunID == nil {
		p.newRunID = uuid.NewString
	}
	return p
}

// ProcessDay fetches discoveries made public since day, attaches the nearest galaxy and
// its distance to each, writes the report and feeds the optional sinks.
func (p *Pipeline) ProcessDay(ctx context.Context, day time.Time) (Result, error) {
	if p.registry == nil || p.catalog == nil || p.distance == nil || p.writer == nil {
		return Result{}, fmt.Errorf("pipeline is missing a required dependency")
	}

	res := Result{RunID: p.newRunID(), Day: day}
	log := p.logger.With("run_id", res.RunID, "day", domain.RunStamp(day))

	names, err := p.registry.SearchSince(ctx, day)
	if err != nil {
		return res, fmt.Errorf("search registry: %w", err)
	}
	res.Searched = len(names)
	log.Info("registry search complete", "objects", len(names))

	discoveries, err := p.fetchDetails(ctx, names)
	if err != nil {
		return res, err
	}

	records, err := p.enrich(ctx, log, discoveries)
	if err != nil {
		return res, err
	}
	res.Records = records
	res.Enriched = len(records)
	for _, rec := range records {
		switch rec.Lookup {
		case domain.LookupEmpty:
			res.EmptyLookups++
		case domain.LookupFailed:
			res.FailedLookups++
		}
	}

	path, err := p.writer.Write(ctx, records, day)
	if err != nil {
		return res, fmt.Errorf("write report: %w", err)
	}
	res.ReportPath = path

	qualifying := domain.Qualifying(records)
	res.Qualifying = len(qualifying)
	log.Info("report written",
		"path", path,
		"rows", res.Qualifying,
		"empty_lookups", res.EmptyLookups,
		"failed_lookups", res.FailedLookups)

	key, err := p.deliver(ctx, res.RunID, day, path, qualifying)
	res.PublishedKey = key
	if err != nil {
		return res, err
	}
	return res, nil
}

func (p *Pipeline) fetchDetails(ctx context.Context, names []string) ([]domain.DiscoveryRecord, error) {
	discoveries := make([]domain.DiscoveryRecord, 0, len(names))
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := p.registry.FetchDetail(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("fetch detail %s: %w", name, err)
		}
		discoveries = append(discoveries, record)
		p.progress.Update(phaseDetails, i+1, len(names))
	}
	if len(names) > 0 {
		p.progress.Finish(phaseDetails)
	}
	return discoveries, nil
}

// enrich looks up galaxies with at most p.workers calls in flight; slot i always holds discoveries[i].
func (p *Pipeline) enrich(ctx context.Context, log *slog.Logger, discoveries []domain.DiscoveryRecord) ([]domain.EnrichedRecord, error) {
	records := make([]domain.EnrichedRecord, len(discoveries))

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, d := range discoveries {
		i, d := i, d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			lookup := p.catalog.QueryNearby(gctx, d.RA, d.Dec, p.radius)
			switch lookup.Status {
			case domain.LookupFailed:
				log.Warn("galaxy lookup failed", "objname", d.Name, "error", lookup.Err)
			case domain.LookupEmpty:
				log.Debug("no galaxy near object", "objname", d.Name)
			}
			records[i] = p.merge(d, lookup)

			mu.Lock()
			done++
			n := done
			mu.Unlock()
			p.progress.Update(phaseEnrich, n, len(discoveries))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enrich discoveries: %w", err)
	}
	if len(discoveries) > 0 {
		p.progress.Finish(phaseEnrich)
	}
	return records, nil
}

func (p *Pipeline) merge(d domain.DiscoveryRecord, lookup domain.GalaxyLookup) domain.EnrichedRecord {
	match := lookup.Match
	if lookup.Status != domain.LookupFound {
		match = domain.GalaxyMatch{}
	}
	return domain.EnrichedRecord{
		Discovery:          d,
		Galaxy:             match,
		Lookup:             lookup.Status,
		LuminosityDistance: p.distance.LuminosityDistance(match.Redshift),
	}
}

// deliver feeds every configured sink; failures are joined so one sink does not starve the others.
func (p *Pipeline) deliver(ctx context.Context, runID string, day time.Time, path string, qualifying []domain.EnrichedRecord) (string, error) {
	var (
		errs []error
		key  string
	)

	if p.archive != nil {
		if err := p.archive.SaveRun(ctx, runID, day, qualifying); err != nil {
			errs = append(errs, fmt.Errorf("archive report: %w", err))
		}
	}

	if p.publisher != nil {
		published, err := p.publisher.Publish(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("publish report: %w", err))
		}
		key = published
	}

	if p.notifier != nil && len(qualifying) > 0 {
		if err := p.notifier.PublishDigest(ctx, buildDigestMessage(day, qualifying)); err != nil {
			errs = append(errs, fmt.Errorf("notify digest: %w", err))
		}
	}

	return key, errors.Join(errs...)
}

func buildDigestMessage(day time.Time, records []domain.EnrichedRecord) string {
	if len(records) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TNS digest %s: %d transient(s) near known galaxies\n\n", domain.RunStamp(day), len(records))
	for _, rec := range records {
		d := rec.Discovery
		g := rec.Galaxy

		name := strings.TrimSpace(d.Prefix + " " + d.Name)
		objType := d.ObjectType
		if objType == "" {
			objType = "unclassified"
		}
		fmt.Fprintf(&b, "- %s (%s)\n", name, objType)
		fmt.Fprintf(&b, "Host: %s", g.Name)
		if g.Redshift != nil {
			fmt.Fprintf(&b, " z=%.4f", *g.Redshift)
		}
		if g.Separation != nil {
			fmt.Fprintf(&b, " offset %.2f'", *g.Separation)
		}
		fmt.Fprintf(&b, "\nD_L: %.1f Mpc\n\n", rec.LuminosityDistance)
	}
	return b.String()
}

type nopProgress struct{}

func (nopProgress) Update(string, int, int) {}
func (nopProgress) Finish(string)           {}
