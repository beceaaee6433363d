// Package mirs identifies and merges MIRS satellite granule files that
// overlap a tropical-cyclone track in space and time.
//
// A granule's NetCDF global attributes declare its time coverage, its ground
// footprint as a well-known-text polygon, and the longitude of its first
// field of view. Matching never touches variable data.
package mirs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"

	"github.com/couchcryptid/tc-mirs-merge/internal/dataset"
	"github.com/couchcryptid/tc-mirs-merge/internal/observability"
	"github.com/couchcryptid/tc-mirs-merge/internal/track"
)

// Filename prefixes distinguishing the two granule variants.
const (
	ImageryPrefix  = "NPR-MIRS-IMG"
	SoundingPrefix = "NPR-MIRS-SND"
)

// DefaultTimeWindow is the default half-width of the acceptance window
// around each track point.
const DefaultTimeWindow = 12 * time.Hour

// Granule global attribute names.
const (
	attrCoverageStart = "time_coverage_start"
	attrCoverageEnd   = "time_coverage_end"
	attrFirstFOVLon   = "geospatial_first_scanline_first_fov_lon"
	attrBounds        = "geospatial_bounds"
)

// MatchOptions controls granule matching.
type MatchOptions struct {
	// TimeWindow is the half-width of the window around each track point.
	// The granule's entire coverage interval must lie inside the window.
	TimeWindow time.Duration

	// RequireEastOfDateline excludes granules whose first field-of-view
	// longitude is >= 0, filtering wrap-around granules for storms that sit
	// strictly west of the dateline. Disable for dateline-crossing storms.
	RequireEastOfDateline bool

	// TrackIndices restricts matching to these track rows. Nil means all.
	TrackIndices []int
}

// DefaultMatchOptions returns the standard matching behavior.
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		TimeWindow:            DefaultTimeWindow,
		RequireEastOfDateline: true,
	}
}

// granuleMeta is the per-file metadata read from global attributes.
type granuleMeta struct {
	start        time.Time
	end          time.Time
	firstScanLon float64
	bounds       orb.Geometry
}

// overlaps reports whether the granule admits the given track point. The
// time test is strict containment: the granule's whole coverage interval
// must lie inside [tBehind, tAhead], not merely intersect it.
func (g *granuleMeta) overlaps(lat, lon180 float64, tBehind, tAhead time.Time, requireEastOfDateline bool) bool {
	if g.start.Before(tBehind) || g.end.After(tAhead) {
		return false
	}
	if requireEastOfDateline && g.firstScanLon >= 0 {
		return false
	}
	return containsPoint(g.bounds, orb.Point{lon180, lat})
}

func containsPoint(g orb.Geometry, p orb.Point) bool {
	switch b := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(b, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(b, p)
	default:
		return false
	}
}

// readGranuleMeta opens one granule file for its global attributes only.
func readGranuleMeta(path string) (*granuleMeta, error) {
	attrs, err := dataset.OpenAttrs(path)
	if err != nil {
		return nil, err
	}
	start, err := attrTime(attrs, attrCoverageStart)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	end, err := attrTime(attrs, attrCoverageEnd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lon, err := attrFloat(attrs, attrFirstFOVLon)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	boundsWKT, err := attrString(attrs, attrBounds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	bounds, err := wkt.Unmarshal(boundsWKT)
	if err != nil {
		return nil, fmt.Errorf("%s: parse %s: %w", path, attrBounds, err)
	}
	return &granuleMeta{start: start, end: end, firstScanLon: lon, bounds: bounds}, nil
}

// Finder scans a granule directory against a storm track.
type Finder struct {
	Dir     string
	Opts    MatchOptions
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// FindGranules returns the sorted imagery and sounding filename lists whose
// granules overlap at least one track point. Every candidate file is opened
// for metadata once per track point; an unreadable file fails the whole scan.
func (f *Finder) FindGranules(ctx context.Context, tr *track.Track) (img, snd []string, err error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("list granule directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".nc") {
			files = append(files, e.Name())
		}
	}

	indices := f.Opts.TrackIndices
	if indices == nil {
		indices = make([]int, tr.Len())
		for i := range indices {
			indices[i] = i
		}
	}

	matched := make(map[string]bool)
	for _, ipt := range indices {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if ipt < 0 || ipt >= tr.Len() {
			return nil, nil, fmt.Errorf("track index %d out of range (track has %d points)", ipt, tr.Len())
		}
		pt := tr.Points[ipt]
		tBehind := pt.ISOTime.Add(-f.Opts.TimeWindow)
		tAhead := pt.ISOTime.Add(f.Opts.TimeWindow)

		f.Logger.Debug("checking track point",
			"index", ipt, "time", pt.ISOTime, "lat", pt.Lat, "lon", pt.Lon180)

		for _, fname := range files {
			meta, err := readGranuleMeta(filepath.Join(f.Dir, fname))
			if err != nil {
				return nil, nil, err
			}
			f.Metrics.GranulesScanned.Inc()
			if meta.overlaps(pt.Lat, pt.Lon180, tBehind, tAhead, f.Opts.RequireEastOfDateline) {
				matched[fname] = true
			}
		}
	}

	for fname := range matched {
		switch {
		case strings.HasPrefix(fname, ImageryPrefix):
			img = append(img, fname)
		case strings.HasPrefix(fname, SoundingPrefix):
			snd = append(snd, fname)
		}
	}
	sort.Strings(img)
	sort.Strings(snd)

	f.Metrics.GranulesMatched.WithLabelValues("imagery").Add(float64(len(img)))
	f.Metrics.GranulesMatched.WithLabelValues("sounding").Add(float64(len(snd)))
	return img, snd, nil
}
