package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/erp/datasynth/internal/config"
	"github.com/erp/datasynth/internal/logger"
	"github.com/erp/datasynth/internal/metrics"
	"github.com/erp/datasynth/internal/pipeline"
	"github.com/erp/datasynth/internal/sink"
)

type generateFlags struct {
	configPath  string
	seed        uint64
	periods     int
	records     int
	workers     int
	out         string
	report      string
	metricsAddr string
	rate        float64
	burst       int
}

func newGenerateCmd() *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate records as JSON lines.",
		Long: `Generate runs every configured period and writes one JSON record ` +
			`per line. Flags override the configuration file and SYNTH_ ` +
			`environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "Path to the configuration file")
	flags.Uint64Var(&f.seed, "seed", 0, "Override the run seed")
	flags.IntVar(&f.periods, "periods", 0, "Override the number of periods")
	flags.IntVar(&f.records, "records", 0, "Override records per period")
	flags.IntVar(&f.workers, "workers", 0, "Override the number of workers")
	flags.StringVarP(&f.out, "out", "o", "-", "Output file for records, - for stdout; .lz4 files are compressed")
	flags.StringVar(&f.report, "report", "", "Write the YAML quality report to this file")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g., :9090)")
	flags.Float64Var(&f.rate, "rate", 0, "Write at most this many records per second, 0 for no limit")
	flags.IntVar(&f.burst, "burst", 0, "Records written back to back before --rate applies")
	return cmd
}

// applyOverrides applies command line overrides to the configuration.
func applyOverrides(cmd *cobra.Command, cfg *config.Config, f generateFlags) {
	changed := cmd.Flags().Changed
	if changed("seed") {
		cfg.Run.Seed = f.seed
	}
	if changed("periods") {
		if cfg.Drift.TotalPeriods == cfg.Run.Periods {
			cfg.Drift.TotalPeriods = f.periods
		}
		cfg.Run.Periods = f.periods
	}
	if changed("records") {
		cfg.Run.RecordsPerPeriod = f.records
	}
	if changed("workers") {
		cfg.Run.Workers = f.workers
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
}

func runGenerate(cmd *cobra.Command, f generateFlags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyOverrides(cmd, cfg, f)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	collector := metrics.NewCollector(metrics.Config{Namespace: cfg.Metrics.Namespace})
	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(collector, cfg.Metrics.Addr)
		if err := srv.Start(); err != nil {
			return err
		}
		log.Info("serving metrics", zap.String("addr", srv.Addr()))
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(ctx); err != nil {
				log.Warn("stopping metrics server", zap.Error(err))
			}
		}()
	}

	p, err := pipeline.New(pipeline.FromConfig(cfg),
		pipeline.WithLogger(log),
		pipeline.WithMetrics(collector),
	)
	if err != nil {
		return err
	}
	result, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}

	pace := sink.Config{RecordsPerSecond: f.rate, Burst: f.burst}
	if err := writeRecords(cmd.Context(), cmd.OutOrStdout(), f.out, pace, result.Records); err != nil {
		return err
	}
	if f.report != "" {
		if err := writeReport(f.report, cfg.Run.Seed, result); err != nil {
			return err
		}
	}

	printer := message.NewPrinter(language.English)
	printer.Fprintf(cmd.ErrOrStderr(), "Generated %d records (%d lines, %d anomalies) over %d periods\n",
		len(result.Records), result.Lines(), result.Anomalies(), len(result.Periods))
	return nil
}

// writeRecords writes one JSON record per line to path, or to stdout for "-".
// A path ending in .lz4 is compressed.
func writeRecords(ctx context.Context, stdout io.Writer, path string, pace sink.Config, records []pipeline.Record) (err error) {
	w := stdout
	if path != "-" && path != "" {
		file, createErr := sink.Create(path)
		if createErr != nil {
			return createErr
		}
		defer func() {
			if cerr := file.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = file
	}

	lines, err := sink.NewJSONLines(w, pace)
	if err != nil {
		return err
	}
	for i := range records {
		if err := lines.Write(ctx, &records[i]); err != nil {
			return err
		}
	}
	return lines.Flush()
}

// runReport is the YAML quality report of a run.
type runReport struct {
	Seed        uint64                   `yaml:"seed"`
	GeneratedAt time.Time                `yaml:"generated_at"`
	Records     int                      `yaml:"records"`
	Lines       int                      `yaml:"lines"`
	Anomalies   int                      `yaml:"anomalies"`
	Periods     []pipeline.PeriodSummary `yaml:"periods"`
	Quality     pipeline.QualityReport   `yaml:"quality"`
}

func writeReport(path string, seed uint64, result *pipeline.Result) error {
	report := runReport{
		Seed:        seed,
		GeneratedAt: time.Now().UTC(),
		Records:     len(result.Records),
		Lines:       result.Lines(),
		Anomalies:   result.Anomalies(),
		Periods:     result.Periods,
		Quality:     result.Quality,
	}
	data, err := yaml.Marshal(&report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
