// Package output assembles the final merged dataset — imagery, sounding, and
// IBTrACS track variables — and writes the single NetCDF artifact.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/couchcryptid/tc-mirs-merge/internal/dataset"
)

// IBTrACS NetCDF variable and dimension names used for the storm subset.
const (
	stormDim      = "storm"
	nameVarName   = "name"
	seasonVarName = "season"
	isoTimeVar    = "iso_time"
	latVarName    = "lat"
	lonVarName    = "lon"
)

// Builder assembles and writes the output artifact.
type Builder struct {
	IBTracsNC  string
	Name       string
	Year       int
	OutputPath string
	Logger     *slog.Logger
}

// Assemble joins the merged granule datasets with the storm's IBTrACS records
// and writes the artifact to the configured path.
func (b *Builder) Assemble(ctx context.Context, dsImg, dsSnd *dataset.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dsIBT, err := dataset.Open(b.IBTracsNC)
	if err != nil {
		return fmt.Errorf("open track dataset: %w", err)
	}
	out, err := Build(dsImg, dsSnd, dsIBT, b.Name, b.Year)
	if err != nil {
		return err
	}
	if err := out.Write(b.OutputPath); err != nil {
		return err
	}
	b.Logger.Info("output written", "path", b.OutputPath, "variables", out.Len())
	return nil
}

// Build selects the storm's records from the full IBTrACS dataset, merges all
// three sources, and attaches the TC summary attributes. The bounding box
// comes from the selected track records, not the granule data's extent.
func Build(dsImg, dsSnd, dsIBT *dataset.Dataset, stormName string, stormYear int) (*dataset.Dataset, error) {
	dsStorm, err := selectStorm(dsIBT, stormName, stormYear)
	if err != nil {
		return nil, err
	}

	merged, err := dataset.Merge(dsImg, dsSnd, dsStorm)
	if err != nil {
		return nil, fmt.Errorf("merge output sources: %w", err)
	}

	startTime, err := firstIsoTime(dsStorm)
	if err != nil {
		return nil, err
	}
	minLat, maxLat, err := varMinMax(dsStorm, latVarName)
	if err != nil {
		return nil, err
	}
	minLon, maxLon, err := varMinMax(dsStorm, lonVarName)
	if err != nil {
		return nil, err
	}

	merged.Attrs.Set("TC_name", stormName)
	merged.Attrs.Set("TC_time_start", startTime)
	merged.Attrs.Set("TC_minimum_lat", round2(minLat))
	merged.Attrs.Set("TC_minimum_lon", round2(minLon))
	merged.Attrs.Set("TC_maximum_lat", round2(maxLat))
	merged.Attrs.Set("TC_maximum_lon", round2(maxLon))
	merged.Attrs.Set("date_created", clock.Now().UTC().Format(time.RFC3339))

	return merged, nil
}

// selectStorm returns the subset of the IBTrACS dataset along the storm
// dimension where name and season match.
func selectStorm(dsIBT *dataset.Dataset, stormName string, stormYear int) (*dataset.Dataset, error) {
	nameVar, ok := dsIBT.Var(nameVarName)
	if !ok {
		return nil, fmt.Errorf("track dataset has no %q variable", nameVarName)
	}
	names, ok := nameVar.Values.([]string)
	if !ok {
		return nil, fmt.Errorf("track dataset variable %q is not a string array (%T)", nameVarName, nameVar.Values)
	}
	seasonVar, ok := dsIBT.Var(seasonVarName)
	if !ok {
		return nil, fmt.Errorf("track dataset has no %q variable", seasonVarName)
	}
	seasons, err := toFloat64s(seasonVar.Values)
	if err != nil {
		return nil, fmt.Errorf("track dataset variable %q: %w", seasonVarName, err)
	}
	if len(seasons) != len(names) {
		return nil, fmt.Errorf("track dataset %q and %q lengths differ", nameVarName, seasonVarName)
	}

	var indices []int
	for i, n := range names {
		if strings.TrimRight(n, " \x00") == stormName && seasons[i] == float64(stormYear) {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("no track records for storm %q in %d", stormName, stormYear)
	}

	out := dataset.New()
	out.Attrs = dsIBT.Attrs.Clone()
	for _, vname := range dsIBT.Names() {
		v, _ := dsIBT.Var(vname)
		if len(v.Dims) == 0 || v.Dims[0] != stormDim {
			out.SetVar(vname, v)
			continue
		}
		subset, err := takeRows(v.Values, indices)
		if err != nil {
			return nil, fmt.Errorf("subset variable %q: %w", vname, err)
		}
		out.SetVar(vname, &dataset.Variable{Dims: v.Dims, Attrs: v.Attrs, Values: subset})
	}
	return out, nil
}

// takeRows builds a new outer slice holding the given indices of values.
func takeRows(values any, indices []int) (any, error) {
	v := reflect.ValueOf(values)
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("values are not a slice (%T)", values)
	}
	out := reflect.MakeSlice(v.Type(), 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= v.Len() {
			return nil, fmt.Errorf("row index %d out of range", i)
		}
		out = reflect.Append(out, v.Index(i))
	}
	return out.Interface(), nil
}

// firstIsoTime returns the first record's first timestamp string.
func firstIsoTime(dsStorm *dataset.Dataset) (string, error) {
	v, ok := dsStorm.Var(isoTimeVar)
	if !ok {
		return "", fmt.Errorf("track dataset has no %q variable", isoTimeVar)
	}
	s, ok := firstString(reflect.ValueOf(v.Values))
	if !ok {
		return "", fmt.Errorf("track dataset variable %q holds no timestamps", isoTimeVar)
	}
	return strings.TrimRight(s, " \x00"), nil
}

func firstString(v reflect.Value) (string, bool) {
	for v.Kind() == reflect.Slice {
		if v.Len() == 0 {
			return "", false
		}
		v = v.Index(0)
	}
	if v.Kind() == reflect.String {
		return v.String(), true
	}
	return "", false
}

// varMinMax returns the minimum and maximum of a numeric variable, skipping
// NaNs and values equal to the variable's _FillValue attribute.
func varMinMax(ds *dataset.Dataset, name string) (minV, maxV float64, err error) {
	v, ok := ds.Var(name)
	if !ok {
		return 0, 0, fmt.Errorf("track dataset has no %q variable", name)
	}
	fill := math.NaN()
	if raw, ok := v.Attrs.Get("_FillValue"); ok {
		if f, ferr := scalarFloat(raw); ferr == nil {
			fill = f
		}
	}

	minV, maxV = math.Inf(1), math.Inf(-1)
	found := false
	walkFloats(reflect.ValueOf(v.Values), func(f float64) {
		if math.IsNaN(f) || f == fill {
			return
		}
		found = true
		if f < minV {
			minV = f
		}
		if f > maxV {
			maxV = f
		}
	})
	if !found {
		return 0, 0, fmt.Errorf("variable %q has no valid values", name)
	}
	return minV, maxV, nil
}

func walkFloats(v reflect.Value, fn func(float64)) {
	switch v.Kind() {
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			walkFloats(v.Index(i), fn)
		}
	case reflect.Float32, reflect.Float64:
		fn(v.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		fn(float64(v.Int()))
	}
}

func toFloat64s(values any) ([]float64, error) {
	v := reflect.ValueOf(values)
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("not a slice (%T)", values)
	}
	out := make([]float64, v.Len())
	for i := range out {
		f, err := scalarFloat(v.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func scalarFloat(raw any) (float64, error) {
	v := reflect.ValueOf(raw)
	if v.Kind() == reflect.Slice && v.Len() > 0 {
		v = v.Index(0)
	}
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	default:
		return 0, fmt.Errorf("not numeric (%T)", raw)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
