package ports

import (
	"context"
	"time"

	"TNSDigest/internal/domain"
)

// DiscoveryRegistry lists and resolves newly reported transients.
type DiscoveryRegistry interface {
	SearchSince(ctx context.Context, day time.Time) ([]string, error)
	FetchDetail(ctx context.Context, name string) (domain.DiscoveryRecord, error)
}

// GalaxyCatalog finds the nearest known galaxy to a sky position. Failures are absorbed into the result.
type GalaxyCatalog interface {
	QueryNearby(ctx context.Context, ra, dec, radiusArcmin float64) domain.GalaxyLookup
}

// DistanceCalculator maps a redshift to a luminosity distance in Mpc (NaN when unknown).
type DistanceCalculator interface {
	LuminosityDistance(redshift *float64) float64
}

// ReportWriter persists the qualifying records for a run date and returns the written location.
type ReportWriter interface {
	Write(ctx context.Context, records []domain.EnrichedRecord, day time.Time) (string, error)
}

// ReportArchive keeps qualifying rows for history.
type ReportArchive interface {
	SaveRun(ctx context.Context, runID string, day time.Time, records []domain.EnrichedRecord) error
}

// ReportPublisher ships a written report elsewhere.
type ReportPublisher interface {
	Publish(ctx context.Context, path string) (string, error)
}

// Notifier streams selected digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Progress observes long phases; it must not affect results.
type Progress interface {
	Update(phase string, done, total int)
	Finish(phase string)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
