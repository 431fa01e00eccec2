package logging

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Every pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)
	if err := EnsureSchema(db); err != nil {
		t.Fatalf("schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// #endregion helpers

// #region log-decision-tests
func TestLogDecision_Success(t *testing.T) {
	db := setupDB(t)

	detail, _ := json.Marshal(DecisionRecord{RecordID: 3, A: 10, B: 15, Signal: "play"})
	id, err := LogDecision(db, DecisionEntry{
		RecordID:         3,
		Kind:             "recommend",
		InfluenceVersion: "v1",
		Signal:           "play",
		GroupID:          "diff",
		Score:            4.2,
		Reason:           "diff score 4.20 ≥ play threshold 3.50",
		DetailJSON:       string(detail),
		CreatedAt:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated decision id")
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM decision_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestLogDecision_NullableFields(t *testing.T) {
	db := setupDB(t)

	if _, err := LogDecision(db, DecisionEntry{RecordID: 1, Kind: "recommend", Signal: "wait"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var group, reason sql.NullString
	db.QueryRow("SELECT group_id, reason FROM decision_log").Scan(&group, &reason)
	if group.Valid || reason.Valid {
		t.Errorf("expected NULL group and reason, got %v %v", group, reason)
	}
}

func TestLogDecision_DuplicateID(t *testing.T) {
	db := setupDB(t)
	entry := DecisionEntry{DecisionID: "fixed", RecordID: 1, Kind: "recommend"}
	if _, err := LogDecision(db, entry); err != nil {
		t.Fatal(err)
	}
	if _, err := LogDecision(db, entry); err == nil {
		t.Fatal("expected error on duplicate decision id")
	}
}

func TestLogDecision_NoTable(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := LogDecision(db, DecisionEntry{RecordID: 1, Kind: "recommend"}); err == nil {
		t.Fatal("expected error when table is missing")
	}
}

// #endregion log-decision-tests

// #region list-tests
func TestListDecisions_FilterAndOrder(t *testing.T) {
	db := setupDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []DecisionEntry{
		{RecordID: 1, Kind: "recommend", Signal: "wait", CreatedAt: base},
		{RecordID: 1, Kind: "outcome", CreatedAt: base.Add(time.Second)},
		{RecordID: 2, Kind: "recommend", Signal: "play", GroupID: "sum", Score: 3.9, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if _, err := LogDecision(db, e); err != nil {
			t.Fatal(err)
		}
	}

	all, err := ListDecisions(db, 0, 10)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(all) != 3 || all[0].RecordID != 2 || all[0].GroupID != "sum" {
		t.Fatalf("unexpected order: %+v", all)
	}

	one, err := ListDecisions(db, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(one) != 2 || one[0].Kind != "outcome" {
		t.Errorf("unexpected filter result: %+v", one)
	}
}

// #endregion list-tests

// #region logger-tests
func TestNew_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info().Msg("hidden")
	logger.Warn().Str("group", "diff").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, `"group":"diff"`) {
		t.Errorf("expected JSON output, got %q", out)
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

// #endregion logger-tests
