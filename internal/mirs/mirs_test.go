package mirs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tc-mirs-merge/internal/observability"
	"github.com/couchcryptid/tc-mirs-merge/internal/track"
)

var gulfPolygon = orb.Polygon{orb.Ring{
	{-95, 20}, {-80, 20}, {-80, 32}, {-95, 32}, {-95, 20},
}}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func testTrack(points ...track.Point) *track.Track {
	return &track.Track{Points: points}
}

func gulfPoint(t *testing.T, iso string) track.Point {
	t.Helper()
	return track.Point{
		Name:    "TEST",
		ISOTime: mustTime(t, iso),
		Lat:     28.0,
		Lon:     track.LonTo360(-88.0),
		Lon180:  -88.0,
	}
}

func newFinder(dir string, opts MatchOptions) *Finder {
	return &Finder{
		Dir:     dir,
		Opts:    opts,
		Logger:  slog.Default(),
		Metrics: observability.NewMetricsForTesting(),
	}
}

func TestGranuleOverlaps_TimeContainmentIsStrict(t *testing.T) {
	pt := gulfPoint(t, "2020-09-15T12:00:00Z")
	tBehind := pt.ISOTime.Add(-12 * time.Hour)
	tAhead := pt.ISOTime.Add(12 * time.Hour)

	inside := &granuleMeta{
		start:        mustTime(t, "2020-09-15T10:00:00Z"),
		end:          mustTime(t, "2020-09-15T10:30:00Z"),
		firstScanLon: -120,
		bounds:       gulfPolygon,
	}
	assert.True(t, inside.overlaps(pt.Lat, pt.Lon180, tBehind, tAhead, true))

	// Coverage equal to the window boundary still counts as contained.
	exact := &granuleMeta{
		start:        tBehind,
		end:          tAhead,
		firstScanLon: -120,
		bounds:       gulfPolygon,
	}
	assert.True(t, exact.overlaps(pt.Lat, pt.Lon180, tBehind, tAhead, true))

	// One second past either bound disqualifies the granule; intersection
	// alone is not enough.
	lateEnd := &granuleMeta{
		start:        mustTime(t, "2020-09-15T23:00:00Z"),
		end:          tAhead.Add(time.Second),
		firstScanLon: -120,
		bounds:       gulfPolygon,
	}
	assert.False(t, lateEnd.overlaps(pt.Lat, pt.Lon180, tBehind, tAhead, true))

	earlyStart := &granuleMeta{
		start:        tBehind.Add(-time.Second),
		end:          mustTime(t, "2020-09-15T01:00:00Z"),
		firstScanLon: -120,
		bounds:       gulfPolygon,
	}
	assert.False(t, earlyStart.overlaps(pt.Lat, pt.Lon180, tBehind, tAhead, true))
}

func TestGranuleOverlaps_DatelineFilter(t *testing.T) {
	pt := gulfPoint(t, "2020-09-15T12:00:00Z")
	tBehind := pt.ISOTime.Add(-12 * time.Hour)
	tAhead := pt.ISOTime.Add(12 * time.Hour)

	g := &granuleMeta{
		start:        mustTime(t, "2020-09-15T11:00:00Z"),
		end:          mustTime(t, "2020-09-15T11:30:00Z"),
		firstScanLon: 5.0,
		bounds:       gulfPolygon,
	}
	assert.False(t, g.overlaps(pt.Lat, pt.Lon180, tBehind, tAhead, true))
	assert.True(t, g.overlaps(pt.Lat, pt.Lon180, tBehind, tAhead, false))
}

func TestGranuleOverlaps_SpatialContainment(t *testing.T) {
	pt := gulfPoint(t, "2020-09-15T12:00:00Z")
	tBehind := pt.ISOTime.Add(-12 * time.Hour)
	tAhead := pt.ISOTime.Add(12 * time.Hour)

	elsewhere := &granuleMeta{
		start:        mustTime(t, "2020-09-15T11:00:00Z"),
		end:          mustTime(t, "2020-09-15T11:30:00Z"),
		firstScanLon: -120,
		bounds: orb.Polygon{orb.Ring{
			{-40, 10}, {-30, 10}, {-30, 20}, {-40, 20}, {-40, 10},
		}},
	}
	assert.False(t, elsewhere.overlaps(pt.Lat, pt.Lon180, tBehind, tAhead, true))
}

func TestFindGranules_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeGranule(t, dir, granuleFixture{
		name:     "NPR-MIRS-IMG_v11r4_npp_s2020091510000_e2020091510300.nc",
		start:    "2020-09-15T10:00:00Z",
		end:      "2020-09-15T10:30:00Z",
		firstLon: -120,
		bounds:   gulfBounds,
	})
	writeGranule(t, dir, granuleFixture{
		name:     "NPR-MIRS-IMG_v11r4_npp_s2020092010000_e2020092010300.nc",
		start:    "2020-09-20T10:00:00Z", // days outside every window
		end:      "2020-09-20T10:30:00Z",
		firstLon: -120,
		bounds:   gulfBounds,
	})

	tr := testTrack(
		gulfPoint(t, "2020-09-15T06:00:00Z"),
		gulfPoint(t, "2020-09-15T12:00:00Z"),
	)

	f := newFinder(dir, DefaultMatchOptions())
	img, snd, err := f.FindGranules(context.Background(), tr)
	require.NoError(t, err)

	assert.Equal(t, []string{"NPR-MIRS-IMG_v11r4_npp_s2020091510000_e2020091510300.nc"}, img)
	assert.Empty(t, snd)
}

func TestFindGranules_SplitsVariantsAndSorts(t *testing.T) {
	dir := t.TempDir()
	// Written out of lexical order on purpose.
	for _, name := range []string{
		"NPR-MIRS-SND_v11r4_npp_s02.nc",
		"NPR-MIRS-IMG_v11r4_npp_s02.nc",
		"NPR-MIRS-SND_v11r4_npp_s01.nc",
		"NPR-MIRS-IMG_v11r4_npp_s01.nc",
	} {
		writeGranule(t, dir, granuleFixture{
			name:     name,
			start:    "2020-09-15T10:00:00Z",
			end:      "2020-09-15T10:30:00Z",
			firstLon: -120,
			bounds:   gulfBounds,
		})
	}

	// Two points with overlapping windows: matches must dedupe by filename.
	tr := testTrack(
		gulfPoint(t, "2020-09-15T09:00:00Z"),
		gulfPoint(t, "2020-09-15T12:00:00Z"),
	)

	f := newFinder(dir, DefaultMatchOptions())
	img, snd, err := f.FindGranules(context.Background(), tr)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"NPR-MIRS-IMG_v11r4_npp_s01.nc",
		"NPR-MIRS-IMG_v11r4_npp_s02.nc",
	}, img)
	assert.Equal(t, []string{
		"NPR-MIRS-SND_v11r4_npp_s01.nc",
		"NPR-MIRS-SND_v11r4_npp_s02.nc",
	}, snd)
}

func TestFindGranules_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a granule"), 0o644))

	tr := testTrack(gulfPoint(t, "2020-09-15T12:00:00Z"))

	f := newFinder(dir, DefaultMatchOptions())
	img, snd, err := f.FindGranules(context.Background(), tr)
	require.NoError(t, err)
	assert.Empty(t, img)
	assert.Empty(t, snd)
}

func TestFindGranules_UnreadableGranuleFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "NPR-MIRS-IMG_bad.nc"), []byte("garbage"), 0o644))

	tr := testTrack(gulfPoint(t, "2020-09-15T12:00:00Z"))

	f := newFinder(dir, DefaultMatchOptions())
	_, _, err := f.FindGranules(context.Background(), tr)
	require.Error(t, err)
}

func TestFindGranules_TrackIndices(t *testing.T) {
	dir := t.TempDir()
	writeGranule(t, dir, granuleFixture{
		name:     "NPR-MIRS-IMG_early.nc",
		start:    "2020-09-10T10:00:00Z",
		end:      "2020-09-10T10:30:00Z",
		firstLon: -120,
		bounds:   gulfBounds,
	})
	writeGranule(t, dir, granuleFixture{
		name:     "NPR-MIRS-IMG_late.nc",
		start:    "2020-09-15T10:00:00Z",
		end:      "2020-09-15T10:30:00Z",
		firstLon: -120,
		bounds:   gulfBounds,
	})

	tr := testTrack(
		gulfPoint(t, "2020-09-10T12:00:00Z"),
		gulfPoint(t, "2020-09-15T12:00:00Z"),
	)

	opts := DefaultMatchOptions()
	opts.TrackIndices = []int{1}
	f := newFinder(dir, opts)
	img, _, err := f.FindGranules(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, []string{"NPR-MIRS-IMG_late.nc"}, img)

	opts.TrackIndices = []int{7}
	f = newFinder(dir, opts)
	_, _, err = f.FindGranules(context.Background(), tr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}
