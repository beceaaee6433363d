package mirs

import (
	"path/filepath"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/stretchr/testify/require"
)

// granuleFixture describes a synthetic MIRS granule written for tests.
type granuleFixture struct {
	name     string // filename, decides IMG vs SND
	start    string // time_coverage_start
	end      string // time_coverage_end
	firstLon float64
	bounds   string // WKT polygon

	// vars are written in addition to the default BT variable, in order.
	vars []namedVar
}

type namedVar struct {
	name string
	v    api.Variable
}

// gulfBounds covers roughly the Gulf of Mexico.
const gulfBounds = "POLYGON ((-95 20, -80 20, -80 32, -95 32, -95 20))"

// writeGranule writes one synthetic granule NetCDF file into dir.
func writeGranule(t *testing.T, dir string, g granuleFixture) {
	t.Helper()

	path := filepath.Join(dir, g.name)
	cw, err := cdf.OpenWriter(path)
	require.NoError(t, err)

	attrs, err := util.NewOrderedMap(
		[]string{attrCoverageStart, attrCoverageEnd, attrFirstFOVLon, attrBounds},
		map[string]any{
			attrCoverageStart: g.start,
			attrCoverageEnd:   g.end,
			attrFirstFOVLon:   g.firstLon,
			attrBounds:        g.bounds,
		})
	require.NoError(t, err)
	require.NoError(t, cw.AddGlobalAttrs(attrs))

	require.NoError(t, cw.AddVar("BT", api.Variable{
		Values:     [][]float32{{230.1, 231.4}, {232.0, 229.8}},
		Dimensions: []string{"Scanline", "Field_of_view"},
	}))
	for _, nv := range g.vars {
		require.NoError(t, cw.AddVar(nv.name, nv.v))
	}

	require.NoError(t, cw.Close())
}
