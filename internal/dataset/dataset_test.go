package dataset_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tc-mirs-merge/internal/dataset"
)

func scanVar(rows ...[]float32) *dataset.Variable {
	return &dataset.Variable{
		Dims:   []string{"Scanline", "Field_of_view"},
		Attrs:  dataset.NewAttrs(),
		Values: rows,
	}
}

func channelVar(vals ...float32) *dataset.Variable {
	return &dataset.Variable{
		Dims:   []string{"Channel"},
		Attrs:  dataset.NewAttrs(),
		Values: vals,
	}
}

func TestConcat_AppendsAlongLeadingDim(t *testing.T) {
	a := dataset.New()
	a.SetVar("BT", scanVar([]float32{1, 2}, []float32{3, 4}))
	a.SetVar("Freq", channelVar(23.8, 31.4))

	b := dataset.New()
	b.SetVar("BT", scanVar([]float32{5, 6}))
	b.SetVar("Freq", channelVar(23.8, 31.4))

	out, err := dataset.Concat("Scanline", a, b)
	require.NoError(t, err)

	bt, ok := out.Var("BT")
	require.True(t, ok)
	want := [][]float32{{1, 2}, {3, 4}, {5, 6}}
	assert.Empty(t, cmp.Diff(want, bt.Values))

	// Variables without the concat dim keep the first dataset's copy.
	freq, ok := out.Var("Freq")
	require.True(t, ok)
	assert.Empty(t, cmp.Diff([]float32{23.8, 31.4}, freq.Values))
}

func TestConcat_MissingVariableFails(t *testing.T) {
	a := dataset.New()
	a.SetVar("BT", scanVar([]float32{1, 2}))

	b := dataset.New() // no BT

	_, err := dataset.Concat("Scanline", a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BT")
}

func TestSelectAndDrop(t *testing.T) {
	d := dataset.New()
	d.SetVar("PTemp", scanVar([]float32{250}))
	d.SetVar("PVapor", scanVar([]float32{0.1}))
	d.SetVar("SWP", scanVar([]float32{9}))

	d.Drop("SWP", "NotThere") // missing names are ignored
	assert.Equal(t, []string{"PTemp", "PVapor"}, d.Names())

	sel, err := d.Select("PVapor")
	require.NoError(t, err)
	assert.Equal(t, []string{"PVapor"}, sel.Names())

	_, err = d.Select("PTemp", "PGraupel")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PGraupel")
}

func TestMerge_DisjointVariables(t *testing.T) {
	a := dataset.New()
	a.SetVar("BT", scanVar([]float32{1, 2}))
	a.Attrs.Set("source", "img")

	b := dataset.New()
	b.SetVar("PTemp", scanVar([]float32{250, 251}))
	b.Attrs.Set("source", "snd") // conflicting global attr: first wins

	out, err := dataset.Merge(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"BT", "PTemp"}, out.Names())

	src, ok := out.Attrs.Get("source")
	require.True(t, ok)
	assert.Equal(t, "img", src)
}

func TestMerge_DuplicateVariableFails(t *testing.T) {
	a := dataset.New()
	a.SetVar("BT", scanVar([]float32{1, 2}))
	b := dataset.New()
	b.SetVar("BT", scanVar([]float32{3, 4}))

	_, err := dataset.Merge(a, b)
	require.Error(t, err)
}

func TestMerge_DimensionLengthConflictFails(t *testing.T) {
	a := dataset.New()
	a.SetVar("BT", scanVar([]float32{1, 2}, []float32{3, 4}))

	b := dataset.New()
	b.SetVar("PTemp", scanVar([]float32{250, 251})) // Scanline=1 vs 2

	_, err := dataset.Merge(a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Scanline")
}

func TestWriteOpenRoundtrip(t *testing.T) {
	d := dataset.New()
	d.Attrs.Set("TC_name", "TEST")
	d.Attrs.Set("TC_minimum_lat", 12.34)

	v := scanVar([]float32{1, 2}, []float32{3, 4})
	v.Attrs.Set("units", "K")
	d.SetVar("BT", v)

	path := filepath.Join(t.TempDir(), "out.nc")
	require.NoError(t, d.Write(path))

	got, err := dataset.Open(path)
	require.NoError(t, err)

	name, ok := got.Attrs.Get("TC_name")
	require.True(t, ok)
	assert.Equal(t, "TEST", name)

	bt, ok := got.Var("BT")
	require.True(t, ok)
	assert.Equal(t, []string{"Scanline", "Field_of_view"}, bt.Dims)
	assert.Empty(t, cmp.Diff([][]float32{{1, 2}, {3, 4}}, bt.Values))
	units, ok := bt.Attrs.Get("units")
	require.True(t, ok)
	assert.Equal(t, "K", units)
}
