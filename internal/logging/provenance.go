package logging

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS decision_log (
	decision_id       TEXT PRIMARY KEY,
	record_id         INTEGER NOT NULL,
	kind              TEXT NOT NULL,
	influence_version TEXT,
	signal            TEXT,
	group_id          TEXT,
	score             REAL NOT NULL DEFAULT 0,
	reason            TEXT,
	detail_json       TEXT,
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decision_log_record ON decision_log(record_id);
`

// EnsureSchema creates the decision_log table if it does not exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate decision_log: %w", err)
	}
	return nil
}

// #endregion schema

// #region log-decision
// LogDecision writes an entry to the decision_log table and returns its ID.
func LogDecision(db *sql.DB, entry DecisionEntry) (string, error) {
	if entry.DecisionID == "" {
		entry.DecisionID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (decision_id, record_id, kind, influence_version, signal, group_id, score, reason, detail_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.DecisionID,
		entry.RecordID,
		entry.Kind,
		nullIfEmpty(entry.InfluenceVersion),
		nullIfEmpty(entry.Signal),
		nullIfEmpty(entry.GroupID),
		entry.Score,
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.DetailJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("log decision: %w", err)
	}
	return entry.DecisionID, nil
}

// #endregion log-decision

// #region list-decisions
// ListDecisions returns the most recent entries, newest first. A recordID
// above zero restricts the list to that record.
func ListDecisions(db *sql.DB, recordID int64, limit int) ([]DecisionEntry, error) {
	q := `SELECT decision_id, record_id, kind, influence_version, signal, group_id, score, reason, detail_json, created_at
	      FROM decision_log`
	args := []any{}
	if recordID > 0 {
		q += ` WHERE record_id = ?`
		args = append(args, recordID)
	}
	q += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionEntry
	for rows.Next() {
		var e DecisionEntry
		var version, signal, group, reason, detail sql.NullString
		var created string
		if err := rows.Scan(&e.DecisionID, &e.RecordID, &e.Kind, &version, &signal, &group, &e.Score, &reason, &detail, &created); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.InfluenceVersion = version.String
		e.Signal = signal.String
		e.GroupID = group.String
		e.Reason = reason.String
		e.DetailJSON = detail.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-decisions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
