package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/config"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/engine"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/gate"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/replay"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/signals"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/state"
)

var (
	configPath  string
	dbPath      string
	fixturePath string
	recordPath  string
	write       bool
	jsonOut     bool
)

// errDiverged makes the process exit non-zero without an extra message.
var errDiverged = errors.New("replay diverged from expectations")

var rootCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-simulate a spin history from scratch",
	Long: `Rebuilds the history by running recommend, evaluate and learn for every
spin in order, starting from neutral influence.

Examples:
  replay --fixture testdata/diff_streak.json      # regression run, exit 1 on drift
  replay --db wheel.db                             # dry-run over stored spins
  replay --db wheel.db --write                     # replace history, commit influence
  replay --db wheel.db --record session.json       # save a regression fixture`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "wheel.yaml", "Path to YAML configuration (missing file uses defaults)")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to read spins from")
	rootCmd.Flags().StringVar(&fixturePath, "fixture", "", "JSON fixture to replay instead of the database")
	rootCmd.Flags().StringVar(&recordPath, "record", "", "Write the run as a JSON fixture to this path")
	rootCmd.Flags().BoolVar(&write, "write", false, "Persist the rebuilt history and final influence to --db")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "Output the summary as JSON")
}

// #region main
func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errDiverged) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if (dbPath == "") == (fixturePath == "") {
		return errors.New("exactly one of --db or --fixture is required")
	}
	if write && dbPath == "" {
		return errors.New("--write needs --db")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	rt, err := cfg.Resolve()
	if err != nil {
		return err
	}

	eng := engine.NewEngine(engine.Setup{
		Sequence:    rt.Sequence,
		Terminals:   rt.Terminals,
		Catalog:     rt.Catalog,
		ActiveTypes: cfg.ActiveTypes,
		Logger:      logger.Level(zerolog.WarnLevel),
	}, cfg.Engine)
	h := replay.NewHarness(rt.Sequence, eng, history.NewEvaluator(rt.Sequence, rt.Terminals, eng.Active()), cfg.Learning).
		WithEval(cfg.Eval)
	if cfg.Engine.Toggles.ContextModifiers {
		h.WithContext(signals.Factory(rt.Sequence, cfg.Context))
	}

	start := factor.NeutralInfluence()
	var (
		spins   []replay.Spin
		records *history.Store
	)
	if fixturePath != "" {
		f, err := replay.LoadFixture(fixturePath)
		if err != nil {
			return err
		}
		start, spins = f.Influence(), f.ToSpins()
	} else {
		records, err = history.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer records.Close()
		stored, err := records.List()
		if err != nil {
			return err
		}
		spins = replay.SpinsFromHistory(stored)
	}
	if len(spins) == 0 {
		return errors.New("no confirmed spins to replay")
	}

	result, err := h.Run(start, spins)
	if err != nil {
		return err
	}
	logger.Info().Str("run", result.ID).Int("spins", len(spins)).Msg("replay complete")

	if write {
		versions, err := state.NewStoreWithDB(records.DB())
		if err != nil {
			return err
		}
		v, err := result.Persist(records, versions)
		if err != nil {
			return err
		}
		logger.Info().Str("version", v.VersionID).Msg("history replaced, influence committed")
	}
	if recordPath != "" {
		if err := writeFixture(recordPath, start, spins, result); err != nil {
			return err
		}
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Summary); err != nil {
			return err
		}
	} else {
		printResults(result)
	}

	if len(result.Summary.Mismatches) > 0 {
		return errDiverged
	}
	return nil
}

func writeFixture(path string, start factor.InfluenceMap, spins []replay.Spin, run replay.Run) error {
	f := replay.NewFixture(fmt.Sprintf("recorded run %s", run.ID), start, spins, run)
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion main

// #region output
func printResults(run replay.Run) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Spin\tSignal\tGroup\tScore\tStatus\tPlay\tAction\tExpected\tMatch")
	for _, r := range run.Results {
		play := "-"
		if r.Played {
			play = "lost"
			if r.Won {
				play = "won"
			}
		}
		match := ""
		if r.Expected != "" {
			match = "OK"
			if r.Mismatch {
				match = "DIFF"
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\t%s\t%s\t%s\t%s\n",
			r.RecordID, r.Signal, r.GroupID, r.Score, r.Status, play, r.Action, r.Expected, match)
	}
	w.Flush()

	s := run.Summary
	fmt.Printf("\nRun %s: %d spins, %d plays, %d wins, %d losses, %d commits, %d eval rollbacks, %d diverge\n",
		s.RunID, s.TotalSpins, s.Plays, s.Wins, s.Losses, s.Commits, s.EvalRollbacks, len(s.Mismatches))

	signalKeys := make([]string, 0, len(s.Signals))
	for k := range s.Signals {
		signalKeys = append(signalKeys, string(k))
	}
	sort.Strings(signalKeys)
	for _, k := range signalKeys {
		fmt.Printf("  %-12s %d\n", k, s.Signals[gate.Signal(k)])
	}

	fmt.Println("Final influence:")
	for _, k := range factor.Kinds() {
		fmt.Printf("  %-24s %.4f\n", k.Label(), s.FinalInfluence.Get(k))
	}
}

// #endregion output
