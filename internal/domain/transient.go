package domain

import (
	"fmt"
	"math"
	"time"
)

// DiscoveryRecord is a transient as reported to the registry, with nested reply structures flattened.
type DiscoveryRecord struct {
	Name                string
	Prefix              string
	RA                  float64
	Dec                 float64
	RASexagesimal       string
	DecSexagesimal      string
	DiscoveryDate       string
	DiscoveryMag        *float64
	DiscoveryFilter     string
	ObjectType          string
	ReportingGroup      string
	DiscoveryDataSource string
	InternalNames       string
}

// GalaxyMatch is a catalog entry near a transient. The zero value means "no galaxy".
type GalaxyMatch struct {
	Name       string
	RA         *float64
	Dec        *float64
	Type       string
	MagFilter  string
	Redshift   *float64
	Separation *float64 // arcmin
}

// IsZero reports whether the match carries no galaxy.
func (m GalaxyMatch) IsZero() bool {
	return m.Name == "" && m.RA == nil && m.Dec == nil && m.Type == "" &&
		m.MagFilter == "" && m.Redshift == nil && m.Separation == nil
}

// LookupStatus tags the outcome of a galaxy catalog query.
type LookupStatus string

const (
	LookupFound  LookupStatus = "found"
	LookupEmpty  LookupStatus = "empty"
	LookupFailed LookupStatus = "failed"
)

// GalaxyLookup is the result of a cone search. Match is the zero value unless Status is LookupFound.
type GalaxyLookup struct {
	Status LookupStatus
	Match  GalaxyMatch
	Err    error
}

// Found wraps a selected match.
func Found(match GalaxyMatch) GalaxyLookup {
	return GalaxyLookup{Status: LookupFound, Match: match}
}

// Empty reports a query that returned no usable entries.
func Empty() GalaxyLookup {
	return GalaxyLookup{Status: LookupEmpty}
}

// Failed absorbs a query error.
func Failed(err error) GalaxyLookup {
	return GalaxyLookup{Status: LookupFailed, Err: err}
}

// EnrichedRecord joins a discovery with its nearest galaxy and derived distance.
type EnrichedRecord struct {
	Discovery          DiscoveryRecord
	Galaxy             GalaxyMatch
	Lookup             LookupStatus
	LuminosityDistance float64 // Mpc, NaN when unknown
}

// Qualifies reports whether the record belongs in the final report.
func (r EnrichedRecord) Qualifies() bool {
	d := r.LuminosityDistance
	return d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d)
}

// Qualifying filters records in place order, keeping those that belong in the report.
func Qualifying(records []EnrichedRecord) []EnrichedRecord {
	out := make([]EnrichedRecord, 0, len(records))
	for _, rec := range records {
		if rec.Qualifies() {
			out = append(out, rec)
		}
	}
	return out
}

// RunStamp renders a run date the way the registry and report names expect: Y-M-D without zero padding.
func RunStamp(day time.Time) string {
	return fmt.Sprintf("%d-%d-%d", day.Year(), int(day.Month()), day.Day())
}
