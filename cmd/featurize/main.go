// Command featurize reads interleaved IMU rows and writes one row of
// per-channel statistical features for each input row.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/sensor.features/internal/config"
	"github.com/banshee-data/sensor.features/internal/featurestore"
	"github.com/banshee-data/sensor.features/internal/fsutil"
	"github.com/banshee-data/sensor.features/internal/monitoring"
	"github.com/banshee-data/sensor.features/internal/pipeline"
	"github.com/banshee-data/sensor.features/internal/report"
	"github.com/banshee-data/sensor.features/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a JSON or YAML config file (default: "+config.DefaultConfigPath+" if present)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// missingInputError reports an input file that does not exist.
type missingInputError struct {
	path string
}

func (e *missingInputError) Error() string {
	return fmt.Sprintf("The file '%s' does not exist.", e.path)
}

func (e *missingInputError) Unwrap() error { return fs.ErrNotExist }

// describe renders a fatal error for the diagnostic stream.
func describe(err error) string {
	var missing *missingInputError
	if errors.As(err, &missing) {
		return missing.Error()
	}
	return fmt.Sprintf("An error occurred: %v", err)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	return config.LoadDefaultConfig(".")
}

// run executes one featurization with cfg against fsys. Optional sinks are
// opened only once the input is known to exist.
func run(ctx context.Context, cfg *config.Config, fsys fsutil.FileSystem, logf monitoring.LogFunc) error {
	input, output := cfg.GetInputPath(), cfg.GetOutputPath()
	if !fsys.Exists(input) {
		return &missingInputError{path: input}
	}

	proc := &pipeline.Processor{
		Workers:  cfg.GetWorkers(),
		Logf:     logf,
		LogEvery: cfg.GetLogEvery(),
	}

	var store *featurestore.Store
	var runID string
	if path := cfg.GetSQLitePath(); path != "" {
		var err error
		store, err = featurestore.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()
		r, err := store.BeginRun(input, version.String())
		if err != nil {
			return err
		}
		runID = r.RunID
		proc.Sinks = append(proc.Sinks, store.Sink(runID))
		logf("recording run %s to %s", runID, path)
	}

	var collector *report.Collector
	if cfg.GetReportPath() != "" {
		collector = report.NewCollector(cfg.GetReportFeature())
		proc.Sinks = append(proc.Sinks, collector)
	}

	stats, err := proc.RunFiles(ctx, fsys, input, output)
	if errors.Is(err, fs.ErrNotExist) && !fsys.Exists(input) {
		return &missingInputError{path: input}
	}
	if err != nil {
		return err
	}

	if store != nil {
		if err := store.FinishRun(runID, stats.Rows, stats.ChannelFailures); err != nil {
			return err
		}
	}
	if collector != nil {
		if err := collector.Render(fsys, cfg.GetReportPath()); err != nil {
			return err
		}
		logf("wrote %s report to %s", collector.Feature(), cfg.GetReportPath())
	}

	logf("wrote %d rows to %s in %s (%d channel failures)", stats.Rows, output, stats.Elapsed, stats.ChannelFailures)
	return nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Printf("An error occurred: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, fsutil.OSFileSystem{}, monitoring.Logf); err != nil {
		log.Print(describe(err))
		stop()
		os.Exit(1)
	}
}
