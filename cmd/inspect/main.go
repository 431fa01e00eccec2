package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/state"
)

var (
	dbPath  string
	last    int
	jsonOut bool
	record  int64
)

var rootCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect the controller database",
	Long: `Read-only views of the history, influence versions and decision log,
plus rollback of the active influence version.

Examples:
  inspect history --db wheel.db --last 30
  inspect influence --db wheel.db
  inspect influence show <version-id> --db wheel.db --json
  inspect log --db wheel.db --record 12
  inspect rollback <version-id> --db wheel.db`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if dbPath == "" {
			return fmt.Errorf("--db is required")
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent history records",
	RunE:  runHistory,
}

var influenceCmd = &cobra.Command{
	Use:   "influence",
	Short: "List influence versions, newest first",
	RunE:  runInfluenceList,
}

var influenceShowCmd = &cobra.Command{
	Use:   "show <version-id>",
	Short: "Show one influence version",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfluenceShow,
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List decision log entries, newest first",
	RunE:  runLog,
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <version-id>",
	Short: "Re-activate an earlier influence version",
	Args:  cobra.ExactArgs(1),
	RunE:  runRollback,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path")
	rootCmd.PersistentFlags().IntVar(&last, "last", 20, "Show N most recent rows")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output as JSON instead of a table")
	logCmd.Flags().Int64Var(&record, "record", 0, "Filter to one record ID")

	influenceCmd.AddCommand(influenceShowCmd)
	rootCmd.AddCommand(historyCmd, influenceCmd, logCmd, rollbackCmd)
}

// #region main

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openStores() (*history.Store, *state.Store, error) {
	records, err := history.NewStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	versions, err := state.NewStoreWithDB(records.DB())
	if err != nil {
		records.Close()
		return nil, nil, err
	}
	return records, versions, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion main

// #region history

type historyRow struct {
	ID          int64    `json:"id"`
	A           int      `json:"a"`
	B           int      `json:"b"`
	Status      string   `json:"status"`
	Winning     *int     `json:"winning,omitempty"`
	Distance    *int     `json:"pocket_distance,omitempty"`
	Recommended string   `json:"recommended_group,omitempty"`
	Signal      string   `json:"signal,omitempty"`
	Score       float64  `json:"score"`
	Hits        []string `json:"hits,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	records, _, err := openStores()
	if err != nil {
		return err
	}
	defer records.Close()

	recent, err := records.Recent(last)
	if err != nil {
		return err
	}
	rows := make([]historyRow, 0, len(recent))
	for _, r := range history.SortedByID(recent) {
		row := historyRow{
			ID:          r.ID,
			A:           r.A,
			B:           r.B,
			Status:      string(r.Status),
			Winning:     r.Winning,
			Distance:    r.PocketDistance,
			Recommended: r.RecommendedGroup,
			Hits:        r.HitTypes(),
			CreatedAt:   r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if r.Snapshot != nil {
			row.Signal = r.Snapshot.Signal
			row.Score = r.Snapshot.Score
		}
		rows = append(rows, row)
	}
	if jsonOut {
		return printJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no history records")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tA\tB\tStatus\tWin\tDist\tGroup\tSignal\tScore\tHits")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t%.2f\t%s\n",
			r.ID, r.A, r.B, r.Status, optInt(r.Winning), optInt(r.Distance),
			dash(r.Recommended), dash(r.Signal), r.Score, strings.Join(r.Hits, ","))
	}
	return w.Flush()
}

func optInt(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion history

// #region influence

func runInfluenceList(cmd *cobra.Command, args []string) error {
	records, versions, err := openStores()
	if err != nil {
		return err
	}
	defer records.Close()

	list, err := versions.ListVersions(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(list)
	}
	if len(list) == 0 {
		fmt.Fprintln(os.Stderr, "no versions found")
		return nil
	}

	active := ""
	if cur, err := versions.GetCurrent(); err == nil {
		active = cur.VersionID
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "\tVersion\tRecord\tDecision")
	for _, k := range factor.Kinds() {
		fmt.Fprintf(w, "\t%s", shortKind(k))
	}
	fmt.Fprintln(w, "\tTime")
	for _, v := range list {
		mark := ""
		if v.VersionID == active {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s", mark, shortID(v.VersionID), v.RecordID, v.Decision)
		for _, k := range factor.Kinds() {
			fmt.Fprintf(w, "\t%.3f", v.Influence.Get(k))
		}
		fmt.Fprintf(w, "\t%s\n", v.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return w.Flush()
}

func runInfluenceShow(cmd *cobra.Command, args []string) error {
	records, versions, err := openStores()
	if err != nil {
		return err
	}
	defer records.Close()

	v, err := versions.GetVersion(args[0])
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(v)
	}
	printVersion(v)
	return nil
}

func printVersion(v state.InfluenceVersion) {
	fmt.Printf("Version:  %s\n", v.VersionID)
	fmt.Printf("Parent:   %s\n", dash(v.ParentID))
	fmt.Printf("Record:   %d\n", v.RecordID)
	fmt.Printf("Decision: %s\n", v.Decision)
	fmt.Printf("Reason:   %s\n", dash(v.Reason))
	fmt.Printf("Created:  %s\n", v.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Println("Influence:")
	for _, k := range factor.Kinds() {
		val := v.Influence.Get(k)
		bar := strings.Repeat("█", int(val*10+0.5))
		fmt.Printf("  %-24s %.4f  %s\n", k.Label(), val, bar)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func shortKind(k factor.Kind) string {
	s := k.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// #endregion influence

// #region log

func runLog(cmd *cobra.Command, args []string) error {
	records, versions, err := openStores()
	if err != nil {
		return err
	}
	defer records.Close()
	if err := logging.EnsureSchema(versions.DB()); err != nil {
		return err
	}

	entries, err := logging.ListDecisions(versions.DB(), record, last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions logged")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Time\tRecord\tKind\tSignal\tGroup\tScore\tVersion\tReason")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
			e.CreatedAt.Format("15:04:05"), e.RecordID, e.Kind, dash(e.Signal), dash(e.GroupID),
			e.Score, shortID(e.InfluenceVersion), e.Reason)
	}
	return w.Flush()
}

// #endregion log

// #region rollback

func runRollback(cmd *cobra.Command, args []string) error {
	records, versions, err := openStores()
	if err != nil {
		return err
	}
	defer records.Close()

	if err := versions.Rollback(args[0]); err != nil {
		return err
	}
	v, err := versions.GetCurrent()
	if err != nil {
		return err
	}
	fmt.Println("Rolled back. Active version:")
	printVersion(v)
	return nil
}

// #endregion rollback
