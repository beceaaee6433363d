package mirs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/couchcryptid/tc-mirs-merge/internal/dataset"
	"github.com/couchcryptid/tc-mirs-merge/internal/observability"
)

// scanDim is the dimension granules are concatenated along.
const scanDim = "Scanline"

// Merge failure sentinels, surfaced when matching produced nothing to merge.
var (
	ErrNoImageryGranules  = errors.New("no MIRS IMG granules to merge")
	ErrNoSoundingGranules = errors.New("no MIRS SND granules to merge")
)

// DefaultSoundingKeepVars is the allow-list applied to SND granules: the
// pressure-layer profile variables.
var DefaultSoundingKeepVars = []string{
	"Player", "Plevel", "PTemp", "PVapor", "PClw", "PRain", "PGraupel",
}

// DefaultImageryDropVars is the deny-list applied to IMG granules: surface,
// cloud, and QC products not used in the merged output.
var DefaultImageryDropVars = []string{
	"Atm_type", "ChanSel", "SWP", "IWP", "Snow",
	"SWE", "SnowGS", "SIce", "SIce_MY", "SIce_FY", "SFR",
	"CldTop", "CldBase", "CldThick", "PrecipType", "RFlag", "SurfM",
	"WindSp", "WindDir", "WindU", "WindV", "Prob_SF", "quality_information",
}

// MergeOptions controls which variables survive the merge.
type MergeOptions struct {
	SoundingKeepVars []string
	ImageryDropVars  []string
}

// DefaultMergeOptions returns the standard variable filters.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		SoundingKeepVars: DefaultSoundingKeepVars,
		ImageryDropVars:  DefaultImageryDropVars,
	}
}

// Merger loads matched granules and concatenates each variant along the scan
// dimension.
type Merger struct {
	Dir     string
	Opts    MergeOptions
	Metrics *observability.Metrics
}

// Merge loads every listed granule and returns the merged imagery and
// sounding datasets. Either list being empty is an error — there is nothing
// meaningful to merge. Any single unreadable file fails the whole operation.
func (m *Merger) Merge(ctx context.Context, imgFiles, sndFiles []string) (dsImg, dsSnd *dataset.Dataset, err error) {
	if len(imgFiles) == 0 {
		return nil, nil, ErrNoImageryGranules
	}
	if len(sndFiles) == 0 {
		return nil, nil, ErrNoSoundingGranules
	}

	dsImg, err = m.loadAndConcat(ctx, imgFiles)
	if err != nil {
		return nil, nil, err
	}
	dsImg.Drop(m.Opts.ImageryDropVars...)

	dsSnd, err = m.loadAndConcat(ctx, sndFiles)
	if err != nil {
		return nil, nil, err
	}
	dsSnd, err = dsSnd.Select(m.Opts.SoundingKeepVars...)
	if err != nil {
		return nil, nil, fmt.Errorf("restrict sounding variables: %w", err)
	}

	return dsImg, dsSnd, nil
}

func (m *Merger) loadAndConcat(ctx context.Context, files []string) (*dataset.Dataset, error) {
	datasets := make([]*dataset.Dataset, 0, len(files))
	for _, fname := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ds, err := dataset.Open(filepath.Join(m.Dir, fname))
		if err != nil {
			return nil, err
		}
		m.Metrics.GranulesMerged.Inc()
		datasets = append(datasets, ds)
	}
	return dataset.Concat(scanDim, datasets...)
}
