package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/codec"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/config"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/engine"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/metrics"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/signals"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/state"
)

var (
	configPath string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "controller",
	Short: "Interactive adaptive wheel signal controller",
	Long: `Reads operand pairs and winning positions from stdin.

  a b      score operands a and b and store a pending recommendation
  win n    confirm winning position n for the newest pending record
  quit     exit`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "wheel.yaml", "Path to YAML configuration (missing file uses defaults)")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
}

// #region main
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	rt, err := cfg.Resolve()
	if err != nil {
		return err
	}

	records, err := history.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer records.Close()
	versions, err := state.NewStoreWithDB(records.DB())
	if err != nil {
		return fmt.Errorf("open versions: %w", err)
	}

	reg := metrics.New(true)
	if cfg.Metrics.Enabled {
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: metricsMux(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer srv.Close()
		logger.Info().Str("listen", cfg.Metrics.Listen).Msg("metrics endpoint up")
	}

	eng := engine.NewEngine(engine.Setup{
		Sequence:    rt.Sequence,
		Terminals:   rt.Terminals,
		Catalog:     rt.Catalog,
		ActiveTypes: cfg.ActiveTypes,
		Recorder:    reg,
		Logger:      logger,
	}, cfg.Engine)

	deps := orchestrator.Deps{
		Sequence:  rt.Sequence,
		Terminals: rt.Terminals,
		Engine:    eng,
		History:   records,
		Versions:  versions,
		Observer:  reg,
		Logger:    logger,
	}
	if cfg.Engine.Toggles.ContextModifiers {
		deps.Context = signals.Factory(rt.Sequence, cfg.Context)
	}
	if cfg.Predictor.Enabled {
		client, err := codec.NewPredictorClient(cfg.Predictor.Address, cfg.Predictor.Timeout, logger)
		if err != nil {
			return fmt.Errorf("predictor %s: %w", cfg.Predictor.Address, err)
		}
		defer client.Close()
		client.SetObserver(reg)
		deps.Predictor = client
	}

	oc := orchestrator.DefaultConfig()
	oc.Learning = cfg.Learning
	oc.Eval = cfg.Eval
	orch, err := orchestrator.New(deps, oc)
	if err != nil {
		return err
	}

	fmt.Println("Adaptive wheel controller ready.")
	fmt.Printf("  DB: %s | Predictor: %v | Types: %d\n", cfg.DBPath, cfg.Predictor.Enabled, len(eng.Active()))
	fmt.Println("Enter 'a b', 'win n' or 'quit':")

	return loop(cmd.Context(), orch, logger)
}

// #endregion main

// #region loop
func loop(ctx context.Context, orch *orchestrator.Orchestrator, logger zerolog.Logger) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch {
		case fields[0] == "quit" || fields[0] == "exit":
			return nil

		case fields[0] == "win" && len(fields) == 2:
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("winning position must be an integer")
				continue
			}
			conf, err := orch.Confirm(n)
			if err != nil {
				logger.Warn().Err(err).Msg("confirm failed")
				fmt.Printf("error: %v\n", err)
				continue
			}
			printConfirmation(conf)

		case len(fields) == 2:
			a, errA := strconv.Atoi(fields[0])
			b, errB := strconv.Atoi(fields[1])
			if errA != nil || errB != nil || a < 0 || b < 0 {
				fmt.Println("operands must be non-negative integers")
				continue
			}
			rec, err := orch.Recommend(ctx, a, b)
			if err != nil {
				logger.Error().Err(err).Msg("recommend failed")
				fmt.Printf("error: %v\n", err)
				continue
			}
			printRecommendation(rec)

		default:
			fmt.Println("usage: 'a b' | 'win n' | 'quit'")
		}
	}
}

// #endregion loop

// #region output
func printRecommendation(rec orchestrator.Recommendation) {
	res := rec.Result
	fmt.Printf("\n[#%d] %s", rec.Record.ID, res.Signal.Label())
	if res.Best != nil {
		fmt.Printf("  %s (base %d) score %.2f", res.Best.Label, res.Best.Base, res.Best.FinalScore)
	}
	fmt.Printf("\n  %s\n", res.Reason)
	if ex := res.Explanation; ex != nil {
		fmt.Printf("  %s [%s confidence]\n", ex.Headline, ex.Confidence)
		for _, b := range ex.Bullets {
			fmt.Printf("   - %s\n", b)
		}
		if ex.FactorShift != "" {
			fmt.Printf("   ! %s\n", ex.FactorShift)
		}
	}
	for i, c := range res.Ranked {
		fmt.Printf("  %d. %-12s %6.2f  zone %v\n", i+1, c.GroupID, c.FinalScore, c.Zone.Members())
	}
	if len(res.Skipped) > 0 {
		fmt.Printf("  skipped: %v\n", res.Skipped)
	}
	fmt.Println()
}

func printConfirmation(conf orchestrator.Confirmation) {
	rec := conf.Record
	fmt.Printf("\n[#%d] winning %d → %s", rec.ID, *rec.Winning, rec.Status)
	if rec.PocketDistance != nil {
		fmt.Printf(" (distance %d)", *rec.PocketDistance)
	}
	fmt.Println()
	if conf.Outcome.Played {
		verdict := "lost"
		if conf.Outcome.Won {
			verdict = "won"
		}
		fmt.Printf("  play %s on %s\n", verdict, rec.RecommendedGroup)
	}
	fmt.Printf("  influence %s: %s\n", conf.Update.Decision.Action, conf.Update.Decision.Reason)
	if conf.Version != nil {
		fmt.Printf("  version %s\n", conf.Version.VersionID)
	}
	fmt.Println()
}

func metricsMux(reg *metrics.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	return mux
}

// #endregion output
