package track

import "context"

// Loader binds Load's parameters so it can serve as the pipeline's track stage.
type Loader struct {
	Path string
	Name string
	Year int
	Opts Options
}

// LoadTrack loads the configured storm track.
func (l *Loader) LoadTrack(ctx context.Context) (*Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Load(l.Path, l.Name, l.Year, l.Opts)
}
