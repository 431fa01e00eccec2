package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS influence_versions (
	version_id     TEXT PRIMARY KEY,
	parent_id      TEXT,
	influence_json TEXT NOT NULL,
	record_id      INTEGER NOT NULL DEFAULT 0,
	decision       TEXT NOT NULL,
	reason         TEXT,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES influence_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_influence (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES influence_versions(version_id)
);
`
// #endregion schema

// #region store-struct
// Store manages versioned influence maps in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	return NewStoreWithDB(db)
}

// NewStoreWithDB runs migrations on an already open database.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region create-initial
// CreateInitial creates a neutral influence version and makes it active.
func (s *Store) CreateInitial() (InfluenceVersion, error) {
	v := InfluenceVersion{
		VersionID: uuid.New().String(),
		Influence: factor.NeutralInfluence(),
		Decision:  "initial",
		Reason:    "neutral influence",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Commit(v); err != nil {
		return InfluenceVersion{}, err
	}
	return v, nil
}

// EnsureCurrent returns the active version, creating the initial one if the
// store is empty.
func (s *Store) EnsureCurrent() (InfluenceVersion, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM active_influence`).Scan(&n); err != nil {
		return InfluenceVersion{}, fmt.Errorf("count active: %w", err)
	}
	if n == 0 {
		return s.CreateInitial()
	}
	return s.GetCurrent()
}

// #endregion create-initial

// #region get-current
// GetCurrent reads the active influence version.
func (s *Store) GetCurrent() (InfluenceVersion, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_influence WHERE id = 1`).Scan(&versionID)
	if err != nil {
		return InfluenceVersion{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}

// #endregion get-current

// #region get-version
// GetVersion retrieves a specific influence version by ID.
func (s *Store) GetVersion(id string) (InfluenceVersion, error) {
	row := s.db.QueryRow(
		`SELECT version_id, parent_id, influence_json, record_id, decision, reason, created_at
		 FROM influence_versions WHERE version_id = ?`, id,
	)
	v, err := scanVersion(row)
	if err != nil {
		return InfluenceVersion{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return v, nil
}

// #endregion get-version

// #region commit
// Commit inserts a new version and updates the active pointer atomically.
func (s *Store) Commit(v InfluenceVersion) error {
	infJSON, err := json.Marshal(v.Influence)
	if err != nil {
		return fmt.Errorf("marshal influence: %w", err)
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentPtr interface{}
	if v.ParentID != "" {
		parentPtr = v.ParentID
	}

	_, err = tx.Exec(
		`INSERT INTO influence_versions (version_id, parent_id, influence_json, record_id, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.VersionID, parentPtr, string(infJSON), v.RecordID, v.Decision, v.Reason,
		v.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_influence (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		v.VersionID,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}

	return tx.Commit()
}

// CommitNext records influence as the child of the active version.
func (s *Store) CommitNext(influence factor.InfluenceMap, recordID int64, decision, reason string) (InfluenceVersion, error) {
	cur, err := s.GetCurrent()
	if err != nil {
		return InfluenceVersion{}, err
	}
	v := InfluenceVersion{
		VersionID: uuid.New().String(),
		ParentID:  cur.VersionID,
		Influence: influence,
		RecordID:  recordID,
		Decision:  decision,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Commit(v); err != nil {
		return InfluenceVersion{}, err
	}
	return v, nil
}

// #endregion commit

// #region rollback
// Rollback sets the active pointer to a previous version.
func (s *Store) Rollback(targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM influence_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s not found", targetVersionID)
	}

	_, err = s.db.Exec(`UPDATE active_influence SET version_id = ? WHERE id = 1`, targetVersionID)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region list-versions
// ListVersions returns the most recent influence versions, newest first.
func (s *Store) ListVersions(limit int) ([]InfluenceVersion, error) {
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, influence_json, record_id, decision, reason, created_at
		 FROM influence_versions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []InfluenceVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// #endregion list-versions

// #region scan
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(sc rowScanner) (InfluenceVersion, error) {
	var v InfluenceVersion
	var parentID, reason sql.NullString
	var infJSON, createdStr string

	if err := sc.Scan(&v.VersionID, &parentID, &infJSON, &v.RecordID, &v.Decision, &reason, &createdStr); err != nil {
		return InfluenceVersion{}, err
	}
	if parentID.Valid {
		v.ParentID = parentID.String
	}
	if reason.Valid {
		v.Reason = reason.String
	}
	if err := json.Unmarshal([]byte(infJSON), &v.Influence); err != nil {
		return InfluenceVersion{}, fmt.Errorf("unmarshal influence: %w", err)
	}
	v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return v, nil
}

// #endregion scan
