// Package track loads IBTrACS best-track data from the NOAA CSV export and
// filters it down to one named storm in one calendar year.
package track

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// isoTimeLayout is the timestamp format used by the ISO_TIME column.
const isoTimeLayout = "2006-01-02 15:04:05"

// DefaultColumns is the set of IBTrACS columns extracted for each track
// point: identity, timing, position, WMO intensity, and the per-quadrant
// wind radii from the USA, Reunion, and BOM agencies.
var DefaultColumns = []string{
	"NAME", "ISO_TIME", "WMO_WIND", "WMO_PRES", "LAT", "LON",
	"USA_R34_NE", "USA_R34_NW", "USA_R34_SE", "USA_R34_SW",
	"USA_R50_NE", "USA_R50_NW", "USA_R50_SE", "USA_R50_SW",
	"USA_R64_NE", "USA_R64_NW", "USA_R64_SE", "USA_R64_SW",
	"REUNION_R34_NE", "REUNION_R34_NW", "REUNION_R34_SE", "REUNION_R34_SW",
	"REUNION_R50_NE", "REUNION_R50_NW", "REUNION_R50_SE", "REUNION_R50_SW",
	"REUNION_R64_NE", "REUNION_R64_NW", "REUNION_R64_SE", "REUNION_R64_SW",
	"BOM_R34_NE", "BOM_R34_SE", "BOM_R34_NW", "BOM_R34_SW",
	"BOM_R50_NE", "BOM_R50_SE", "BOM_R50_NW", "BOM_R50_SW",
	"BOM_R64_NE", "BOM_R64_SE", "BOM_R64_NW", "BOM_R64_SW",
}

// Options controls track loading.
type Options struct {
	// FilterMissingWMO drops rows whose WMO_WIND or WMO_PRES field is blank.
	// Must be off for source years (e.g. 2021) where those fields are empty
	// across the board.
	FilterMissingWMO bool

	// ExtraColumns are extracted in addition to DefaultColumns.
	ExtraColumns []string
}

// DefaultOptions returns the standard loading behavior.
func DefaultOptions() Options {
	return Options{FilterMissingWMO: true}
}

// Point is one timestamped track record. Lon is normalized to [0, 360);
// Lon180 keeps the source's signed convention. Both are always populated.
type Point struct {
	Name    string
	ISOTime time.Time
	Lat     float64
	Lon     float64
	Lon180  float64

	// Fields holds the remaining extracted columns as raw strings, keyed by
	// column name (wind, pressure, quadrant radii).
	Fields map[string]string
}

// Track is the ordered set of points for one storm-year.
type Track struct {
	Points []Point
}

// Len returns the number of track points.
func (t *Track) Len() int { return len(t.Points) }

// LonTo360 converts a signed -180..180 longitude to the 0..360 convention.
func LonTo360(lon float64) float64 {
	return math.Mod(360+math.Mod(lon, 360), 360)
}

// Load reads the IBTrACS CSV and returns the rows where NAME matches exactly
// and ISO_TIME falls within [Jan 1 year, Jan 1 year+1). Rows keep source
// order. No matching rows is not an error; the caller gets an empty track.
func Load(path, name string, year int, opts Options) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open track source: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read track header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.TrimSpace(col)] = i
	}

	columns := append([]string{}, DefaultColumns...)
	for _, c := range opts.ExtraColumns {
		if _, ok := colIndex[c]; !ok {
			return nil, fmt.Errorf("track source has no column %q", c)
		}
		if !contains(columns, c) {
			columns = append(columns, c)
		}
	}
	for _, c := range columns {
		if _, ok := colIndex[c]; !ok {
			return nil, fmt.Errorf("track source has no column %q", c)
		}
	}

	// The first data row of an IBTrACS export carries units, not values.
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("read track units row: %w", err)
	}

	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)

	track := &Track{}
	line := 2
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse track source line %d: %w", line, err)
		}
		line++

		if field(rec, colIndex["NAME"]) != name {
			continue
		}
		ts, err := time.ParseInLocation(isoTimeLayout, field(rec, colIndex["ISO_TIME"]), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse ISO_TIME on line %d: %w", line-1, err)
		}
		if ts.Before(yearStart) || !ts.Before(yearEnd) {
			continue
		}

		if opts.FilterMissingWMO {
			if isBlank(field(rec, colIndex["WMO_WIND"])) || isBlank(field(rec, colIndex["WMO_PRES"])) {
				continue
			}
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(field(rec, colIndex["LAT"])), 64)
		if err != nil {
			return nil, fmt.Errorf("parse LAT on line %d: %w", line-1, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(field(rec, colIndex["LON"])), 64)
		if err != nil {
			return nil, fmt.Errorf("parse LON on line %d: %w", line-1, err)
		}

		fields := make(map[string]string, len(columns))
		for _, c := range columns {
			switch c {
			case "NAME", "ISO_TIME", "LAT", "LON":
			default:
				fields[c] = field(rec, colIndex[c])
			}
		}

		track.Points = append(track.Points, Point{
			Name:    name,
			ISOTime: ts,
			Lat:     lat,
			Lon:     LonTo360(lon),
			Lon180:  lon,
			Fields:  fields,
		})
	}

	return track, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// isBlank reports whether an IBTrACS cell is empty. The CSV export uses a
// single space for missing WMO values.
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
