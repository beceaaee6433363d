// Command tcmirs builds a merged NetCDF file from IBTrACS track data and
// MIRS satellite granules for one named tropical cyclone.
//
// Usage:
//
//	tcmirs -name IDA -year 2021 -mirs-dir /data/mirs \
//	  -ibt-csv ibtracs.ALL.list.v04r00.csv -ibt-nc IBTrACS.ALL.v04r00.nc
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/tc-mirs-merge/internal/adapter/http"
	"github.com/couchcryptid/tc-mirs-merge/internal/config"
	"github.com/couchcryptid/tc-mirs-merge/internal/mirs"
	"github.com/couchcryptid/tc-mirs-merge/internal/observability"
	"github.com/couchcryptid/tc-mirs-merge/internal/output"
	"github.com/couchcryptid/tc-mirs-merge/internal/pipeline"
	"github.com/couchcryptid/tc-mirs-merge/internal/track"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	name := flag.String("name", "", "storm name (uppercase), e.g. IDA (required)")
	year := flag.Int("year", 0, "storm year, e.g. 2021 (required)")
	mirsDir := flag.String("mirs-dir", cfg.MIRSDir, "directory containing MIRS .nc granules")
	ibtCSV := flag.String("ibt-csv", cfg.IBTracsCSV, "path to the IBTrACS CSV file")
	ibtNC := flag.String("ibt-nc", cfg.IBTracsNC, "path to the IBTrACS NetCDF file")
	outPath := flag.String("output", "", "output filename (default <NAME>_<YEAR>_all_data.nc)")
	trackIndices := flag.String("track-indices", "", "comma-separated track row indices to restrict processing")
	filterMissingWMO := flag.Bool("filter-missing-wmo", true, "drop track rows with missing WMO wind/pressure (forced off for 2021)")
	timeWindow := flag.Duration("time-window", cfg.TimeWindow, "half-width of the granule acceptance window")
	datelineFilter := flag.Bool("dateline-filter", true, "exclude granules with first-FOV longitude >= 0 (disable for dateline-crossing storms)")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "address for the health/metrics server (empty disables it)")
	flag.Parse()

	logger := observability.NewLogger(cfg)

	if *name == "" || *year == 0 {
		flag.Usage()
		logger.Error("missing required flags", "name", *name, "year", *year)
		os.Exit(1)
	}

	stormName := strings.ToUpper(*name)
	outputPath := *outPath
	if outputPath == "" {
		outputPath = fmt.Sprintf("%s_%d_all_data.nc", stormName, *year)
	}

	// 2021 IBTrACS data has blank WMO fields across the board.
	filterWMO := *filterMissingWMO && *year != 2021
	if *filterMissingWMO && !filterWMO {
		logger.Info("missing-WMO filter disabled for 2021 source data")
	}

	indices, err := parseIndices(*trackIndices)
	if err != nil {
		logger.Error("invalid -track-indices", "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	p := pipeline.New(
		&track.Loader{
			Path: *ibtCSV,
			Name: stormName,
			Year: *year,
			Opts: track.Options{FilterMissingWMO: filterWMO},
		},
		&mirs.Finder{
			Dir: *mirsDir,
			Opts: mirs.MatchOptions{
				TimeWindow:            *timeWindow,
				RequireEastOfDateline: *datelineFilter,
				TrackIndices:          indices,
			},
			Logger:  logger,
			Metrics: metrics,
		},
		&mirs.Merger{
			Dir:     *mirsDir,
			Opts:    mirs.DefaultMergeOptions(),
			Metrics: metrics,
		},
		&output.Builder{
			IBTracsNC:  *ibtNC,
			Name:       stormName,
			Year:       *year,
			OutputPath: outputPath,
			Logger:     logger,
		},
		logger, metrics, clockwork.NewRealClock(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if *metricsAddr != "" {
		srv = httpadapter.NewServer(*metricsAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	logger.Info("starting merge run",
		"storm", stormName, "year", *year, "mirs_dir", *mirsDir, "output", outputPath)

	runErr := p.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("merge run failed", "error", runErr)
		os.Exit(1)
	}
}

func parseIndices(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("index %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}
