package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/stratengine/config"
	"github.com/rustyeddy/stratengine/engine"
	"github.com/rustyeddy/stratengine/internal/id"
	"github.com/rustyeddy/stratengine/internal/logging"
	"github.com/rustyeddy/stratengine/journal"
	"github.com/rustyeddy/stratengine/metrics"
	"github.com/rustyeddy/stratengine/replay"
	"github.com/rustyeddy/stratengine/report"
	"github.com/rustyeddy/stratengine/strategies"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay recorded order books through the engine",
	Long: `Replay a CSV file of order-book snapshots and order updates through the
configured strategy, risk gate and ledger, then print the results.

Settings come from the config file (or defaults), then .env files, then
STRATENGINE_* environment variables. Trading is disabled unless one of them
enables it.

Example:
  stratengine run -f engine.yaml -d books.csv --xlsx out/run.xlsx`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runConfigPath  string
	runEnvFiles    []string
	runDataPath    string
	runFrom        string
	runTo          string
	runMetricsAddr string
	runXLSX        string
	runOrg         string
	runQuiet       bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
	runCmd.Flags().StringSliceVar(&runEnvFiles, "env-file", nil, ".env files to load (default ./.env if present)")
	runCmd.Flags().StringVarP(&runDataPath, "data", "d", "", "CSV of snapshots to replay (required)")
	runCmd.Flags().StringVar(&runFrom, "from", "", "skip events before this RFC3339 time")
	runCmd.Flags().StringVar(&runTo, "to", "", "skip events at or after this RFC3339 time")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	runCmd.Flags().StringVar(&runXLSX, "xlsx", "", "write an Excel report to this path")
	runCmd.Flags().StringVar(&runOrg, "org", "", "write an Org-mode run summary to this path")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "do not print result tables")
	_ = runCmd.MarkFlagRequired("data")
}

func lookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

func loadRunConfig() (config.Config, error) {
	if err := config.LoadEnvFiles(runEnvFiles...); err != nil {
		return config.Config{}, err
	}

	cfg := config.Default()
	if runConfigPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(runConfigPath); err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
	}

	cfg, err := cfg.WithEnv(lookupEnv)
	if err != nil {
		return config.Config{}, err
	}
	if runMetricsAddr != "" {
		cfg.Metrics.Addr = runMetricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// openJournal returns a nil Journal for type "none".
func openJournal(c config.JournalConfig) (journal.Journal, error) {
	switch c.Type {
	case "csv":
		return journal.NewCSV(c.TradesFile, c.EquityFile)
	case "sqlite":
		return journal.NewSQLite(c.DBPath)
	default:
		return nil, nil
	}
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func serveMetrics(log *zap.Logger, addr string, m *metrics.Metrics) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	from, err := parseBound(runFrom)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := parseBound(runTo)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	params, err := cfg.Params()
	if err != nil {
		return err
	}
	gen, err := strategies.NewGenerator(params)
	if err != nil {
		return err
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	if j != nil {
		defer func() {
			if cerr := j.Close(); cerr != nil {
				log.Warn("close journal", zap.Error(cerr))
			}
		}()
	}

	m := metrics.New(cfg.Metrics.Addr != "")
	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(log, cfg.Metrics.Addr, m)
		defer stop()
	}

	e, err := engine.New(gen, cfg.Policy(),
		engine.WithLogger(log),
		engine.WithJournal(j),
		engine.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	log.Info("run starting",
		zap.String("strategy", e.Name()),
		zap.String("data", runDataPath),
		zap.Bool("trading_enabled", cfg.Trading.EnableTrading),
		zap.String("journal", cfg.Journal.Type),
	)

	started := time.Now()
	e.Start()
	playErr := replay.Play(ctx, runDataPath, e, replay.Options{From: from, To: to})
	e.Stop()
	finished := time.Now()

	if playErr != nil && !errors.Is(playErr, context.Canceled) {
		return playErr
	}

	stats := e.PerformanceStats()
	counters := e.Counters()
	log.Info("run finished",
		zap.Uint64("ticks", counters.Ticks),
		zap.Uint64("signals", counters.Signals),
		zap.Uint64("rejections", counters.Rejections),
		zap.Uint64("fills", counters.Fills),
		zap.Uint64("errors", counters.Errors),
		zap.Int("trades", stats.TotalTrades),
		zap.Float64("total_pnl", stats.TotalPnL),
	)

	if !runQuiet {
		out := cmd.OutOrStdout()
		report.Stats(out, stats)
		report.Positions(out, e.Positions())
		report.Trades(out, e.Trades())
	}

	rec := journal.RunRecord{
		RunID:       id.New(),
		Strategy:    e.Name(),
		Dataset:     runDataPath,
		Start:       started,
		End:         finished,
		Ticks:       int(counters.Ticks),
		Trades:      stats.TotalTrades,
		Wins:        stats.WinningTrades,
		Losses:      stats.LosingTrades,
		NetPnL:      stats.TotalPnL,
		WinRate:     stats.WinRate,
		MaxDrawdown: stats.MaxDrawdown,
	}
	if counters.Rejections > 0 {
		rec.Notes = append(rec.Notes, fmt.Sprintf("%d signals rejected by the risk gate", counters.Rejections))
	}
	if counters.Errors > 0 {
		rec.Notes = append(rec.Notes, fmt.Sprintf("%d events failed", counters.Errors))
	}

	if rr, ok := j.(journal.RunRecorder); ok {
		if err := rr.RecordRun(cmd.Context(), rec); err != nil {
			log.Warn("record run", zap.Error(err))
		}
	}

	if runXLSX != "" {
		if err := report.WriteXLSX(runXLSX, stats, e.Trades(), e.Positions()); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		log.Info("wrote workbook", zap.String("path", runXLSX))
	}
	if runOrg != "" {
		if err := journal.WriteRunOrg(runOrg, rec); err != nil {
			return fmt.Errorf("write org: %w", err)
		}
		log.Info("wrote run summary", zap.String("path", runOrg))
	}
	return nil
}
