// Package pipeline orchestrates one merge run: load the storm track, match
// granules, merge them, and assemble the output artifact.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/tc-mirs-merge/internal/dataset"
	"github.com/couchcryptid/tc-mirs-merge/internal/observability"
	"github.com/couchcryptid/tc-mirs-merge/internal/track"
)

// TrackSource loads the filtered storm track.
type TrackSource interface {
	LoadTrack(ctx context.Context) (*track.Track, error)
}

// GranuleFinder returns the matched imagery and sounding filename lists.
type GranuleFinder interface {
	FindGranules(ctx context.Context, tr *track.Track) (img, snd []string, err error)
}

// GranuleMerger loads matched granules into the two merged datasets.
type GranuleMerger interface {
	Merge(ctx context.Context, imgFiles, sndFiles []string) (dsImg, dsSnd *dataset.Dataset, err error)
}

// OutputBuilder joins the merged datasets with the track source and writes
// the artifact.
type OutputBuilder interface {
	Assemble(ctx context.Context, dsImg, dsSnd *dataset.Dataset) error
}

// Pipeline runs the four stages in order. Execution is strictly sequential;
// every failure is fatal to the run.
type Pipeline struct {
	source  TrackSource
	finder  GranuleFinder
	merger  GranuleMerger
	builder OutputBuilder
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
	done    atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(src TrackSource, f GranuleFinder, m GranuleMerger, b OutputBuilder,
	logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Pipeline {
	return &Pipeline{
		source:  src,
		finder:  f,
		merger:  m,
		builder: b,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
	}
}

// CheckReadiness returns nil once the run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.done.Load() {
		return errors.New("merge run has not completed yet")
	}
	return nil
}

// Run executes one merge run. An empty track is not an error here; the merge
// stage then fails on its empty inputs, which is the run's failure point.
func (p *Pipeline) Run(ctx context.Context) error {
	runStart := p.clock.Now()
	p.metrics.RunInProgress.Set(1)
	defer p.metrics.RunInProgress.Set(0)

	stageStart := p.clock.Now()
	tr, err := p.source.LoadTrack(ctx)
	if err != nil {
		return err
	}
	p.observeStage("track", stageStart)
	p.metrics.TrackPointsLoaded.Add(float64(tr.Len()))
	p.logger.Info("track loaded", "points", tr.Len())
	if tr.Len() == 0 {
		p.logger.Warn("no track points matched the storm and year")
	}

	stageStart = p.clock.Now()
	imgFiles, sndFiles, err := p.finder.FindGranules(ctx, tr)
	if err != nil {
		return err
	}
	p.observeStage("match", stageStart)
	p.logger.Info("granules matched", "imagery", len(imgFiles), "sounding", len(sndFiles))

	stageStart = p.clock.Now()
	dsImg, dsSnd, err := p.merger.Merge(ctx, imgFiles, sndFiles)
	if err != nil {
		return err
	}
	p.observeStage("merge", stageStart)
	p.logger.Info("granules merged",
		"imagery_variables", dsImg.Len(), "sounding_variables", dsSnd.Len())

	stageStart = p.clock.Now()
	if err := p.builder.Assemble(ctx, dsImg, dsSnd); err != nil {
		return err
	}
	p.observeStage("assemble", stageStart)

	p.done.Store(true)
	p.logger.Info("run complete", "duration", p.clock.Since(runStart))
	return nil
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(stage).Observe(p.clock.Since(start).Seconds())
}
