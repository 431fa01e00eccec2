package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS history_records (
	id                INTEGER PRIMARY KEY,
	operand_a         INTEGER NOT NULL,
	operand_b         INTEGER NOT NULL,
	difference        INTEGER NOT NULL,
	status            TEXT NOT NULL,
	winning_position  INTEGER,
	hits_json         TEXT,
	pocket_distance   INTEGER,
	recommended_group TEXT,
	snapshot_json     TEXT,
	created_at        TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct

// Store persists history records in SQLite.
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
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region create-pending

// CreatePending inserts a new pending record with the next monotonic ID.
func (s *Store) CreatePending(a, b int) (Record, error) {
	var maxID sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(id) FROM history_records`).Scan(&maxID); err != nil {
		return Record{}, fmt.Errorf("next id: %w", err)
	}
	rec := NewPending(maxID.Int64+1, a, b)
	if err := s.insert(s.db, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// #endregion create-pending

// #region save

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *Store) insert(x execer, rec Record) error {
	hitsJSON, snapJSON, err := encodeOutcome(rec)
	if err != nil {
		return err
	}
	_, err = x.Exec(
		`INSERT INTO history_records
		 (id, operand_a, operand_b, difference, status, winning_position, hits_json,
		  pocket_distance, recommended_group, snapshot_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.A, rec.B, rec.Difference, string(rec.Status), nullInt(rec.Winning),
		hitsJSON, nullInt(rec.PocketDistance), nullIfEmpty(rec.RecommendedGroup), snapJSON,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert record %d: %w", rec.ID, err)
	}
	return nil
}

// Save updates the mutable fields of an existing record.
func (s *Store) Save(rec Record) error {
	hitsJSON, snapJSON, err := encodeOutcome(rec)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		`UPDATE history_records
		 SET status = ?, winning_position = ?, hits_json = ?, pocket_distance = ?,
		     recommended_group = ?, snapshot_json = ?
		 WHERE id = ?`,
		string(rec.Status), nullInt(rec.Winning), hitsJSON, nullInt(rec.PocketDistance),
		nullIfEmpty(rec.RecommendedGroup), snapJSON, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update record %d: %w", rec.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record %d: %w", rec.ID, ErrNotFound)
	}
	return nil
}

// ReplaceAll discards the collection and inserts records atomically. Used by
// full re-simulation.
func (s *Store) ReplaceAll(records []Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM history_records`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	for _, rec := range records {
		if err := s.insert(tx, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// #endregion save

// #region queries

const selectColumns = `id, operand_a, operand_b, difference, status, winning_position, hits_json,
	pocket_distance, recommended_group, snapshot_json, created_at`

// Get retrieves a record by ID.
func (s *Store) Get(id int64) (Record, error) {
	row := s.db.QueryRow(`SELECT `+selectColumns+` FROM history_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	return rec, err
}

// LatestPending returns the newest pending record.
func (s *Store) LatestPending() (Record, error) {
	row := s.db.QueryRow(`SELECT `+selectColumns+` FROM history_records
		WHERE status = ? ORDER BY id DESC LIMIT 1`, string(StatusPending))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("pending record: %w", ErrNotFound)
	}
	return rec, err
}

// List returns every record ordered by ID ascending.
func (s *Store) List() ([]Record, error) {
	return s.query(`SELECT ` + selectColumns + ` FROM history_records ORDER BY id ASC`)
}

// Recent returns the newest limit records, ordered by ID ascending.
func (s *Store) Recent(limit int) ([]Record, error) {
	recs, err := s.query(`SELECT `+selectColumns+` FROM history_records ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return SortedByID(recs), nil
}

func (s *Store) query(q string, args ...any) ([]Record, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion queries

// #region encoding

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var rec Record
	var status, createdStr string
	var winning, dist sql.NullInt64
	var hitsJSON, group, snapJSON sql.NullString

	err := sc.Scan(&rec.ID, &rec.A, &rec.B, &rec.Difference, &status, &winning, &hitsJSON,
		&dist, &group, &snapJSON, &createdStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan record: %w", err)
	}
	rec.Status = Status(status)
	if winning.Valid {
		w := int(winning.Int64)
		rec.Winning = &w
	}
	if dist.Valid {
		d := int(dist.Int64)
		rec.PocketDistance = &d
	}
	if hitsJSON.Valid && hitsJSON.String != "" {
		if err := json.Unmarshal([]byte(hitsJSON.String), &rec.Hits); err != nil {
			return Record{}, fmt.Errorf("unmarshal hits for %d: %w", rec.ID, err)
		}
	}
	if group.Valid {
		rec.RecommendedGroup = group.String
	}
	if snapJSON.Valid && snapJSON.String != "" {
		var snap Snapshot
		if err := json.Unmarshal([]byte(snapJSON.String), &snap); err != nil {
			return Record{}, fmt.Errorf("unmarshal snapshot for %d: %w", rec.ID, err)
		}
		rec.Snapshot = &snap
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

func encodeOutcome(rec Record) (hits, snap any, err error) {
	if rec.Hits != nil {
		b, err := json.Marshal(rec.Hits)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal hits: %w", err)
		}
		hits = string(b)
	}
	if rec.Snapshot != nil {
		b, err := json.Marshal(rec.Snapshot)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal snapshot: %w", err)
		}
		snap = string(b)
	}
	return hits, snap, nil
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion encoding
