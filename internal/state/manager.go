package state

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/fsys"
)

// DBFileName is the history database inside the state directory
const DBFileName = "history.db"

// Manager handles operation history persistence
type Manager struct {
	db *sql.DB
}

// OperationRecord represents a single archive operation
type OperationRecord struct {
	ID        int64
	Kind      domain.OperationKind
	Source    string
	Target    string
	Entries   int
	Bytes     int64
	Digest    string // sha256 of the produced archive, if any
	Status    domain.OperationStatus
	Error     string
	StartTime time.Time
	EndTime   time.Time
}

// Duration returns the time spent on the operation
func (r OperationRecord) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// RecordFromResult converts a service result into a history record.
// Errors after some entries were processed make the record partial.
func RecordFromResult(res domain.OperationResult) OperationRecord {
	rec := OperationRecord{
		Kind:      res.Kind,
		Source:    res.Source,
		Target:    res.Target,
		Entries:   res.Entries,
		Bytes:     res.Bytes,
		Digest:    res.Digest,
		Status:    domain.StatusSuccess,
		StartTime: res.StartTime,
		EndTime:   res.EndTime,
	}
	if res.Success() {
		return rec
	}

	msgs := make([]string, 0, len(res.Errors))
	partial := res.Entries > 0
	for _, err := range res.Errors {
		msgs = append(msgs, err.Error())
		var perr *domain.PartialError
		if errors.As(err, &perr) && perr.Completed > 0 {
			partial = true
		}
	}
	rec.Error = strings.Join(msgs, "; ")
	rec.Status = domain.StatusFailed
	if partial {
		rec.Status = domain.StatusPartial
	}
	return rec
}

// NewManager creates a new state manager
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := fsys.MakeDir(dataDir, true); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, DBFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit connection pool to prevent "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	manager := &Manager{db: db}
	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return manager, nil
}

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		target TEXT NOT NULL,
		entries INTEGER DEFAULT 0,
		bytes INTEGER DEFAULT 0,
		digest TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_operations_target_time ON operations(target, start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_operations_status ON operations(status);
	`

	_, err := m.db.Exec(schema)
	return err
}

const selectColumns = `SELECT id, kind, source, target, entries, bytes, digest, status, error, start_time, end_time FROM operations`

// RecordOperation stores an operation and returns its id
func (m *Manager) RecordOperation(record OperationRecord) (int64, error) {
	switch record.Status {
	case domain.StatusSuccess, domain.StatusFailed, domain.StatusPartial:
	default:
		return 0, fmt.Errorf("invalid status: %s (must be 'success', 'failed', or 'partial')", record.Status)
	}
	switch record.Kind {
	case domain.OpCompress, domain.OpExtract, domain.OpEmbed, domain.OpStrip:
	default:
		return 0, fmt.Errorf("invalid operation kind: %q", record.Kind)
	}
	if record.Target == "" {
		return 0, fmt.Errorf("operation target cannot be empty")
	}

	// times are stored in UTC so they order as text
	res, err := m.db.Exec(`
		INSERT INTO operations (kind, source, target, entries, bytes, digest, status, error, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(record.Kind),
		record.Source,
		record.Target,
		record.Entries,
		record.Bytes,
		record.Digest,
		string(record.Status),
		record.Error,
		record.StartTime.UTC(),
		record.EndTime.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save operation record: %w", err)
	}
	return res.LastInsertId()
}

// GetHistory retrieves the most recent operations on target
func (m *Manager) GetHistory(target string, limit int) ([]OperationRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	return m.query(selectColumns+` WHERE target = ? ORDER BY start_time DESC, id DESC LIMIT ?`, target, limit)
}

// GetAllHistory retrieves the most recent operations on every target
func (m *Manager) GetAllHistory(limit int) ([]OperationRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	return m.query(selectColumns+` ORDER BY start_time DESC, id DESC LIMIT ?`, limit)
}

// GetLastSuccess retrieves the last successful operation on target, or
// nil when there is none
func (m *Manager) GetLastSuccess(target string) (*OperationRecord, error) {
	records, err := m.query(selectColumns+` WHERE target = ? AND status = 'success' ORDER BY start_time DESC, id DESC LIMIT 1`, target)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// Prune deletes operations that started before cutoff and returns how
// many were removed
func (m *Manager) Prune(cutoff time.Time) (int64, error) {
	res, err := m.db.Exec(`DELETE FROM operations WHERE start_time < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

func (m *Manager) query(query string, args ...any) ([]OperationRecord, error) {
	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []OperationRecord
	for rows.Next() {
		var (
			record       OperationRecord
			kind, status string
		)
		err := rows.Scan(
			&record.ID,
			&kind,
			&record.Source,
			&record.Target,
			&record.Entries,
			&record.Bytes,
			&record.Digest,
			&status,
			&record.Error,
			&record.StartTime,
			&record.EndTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		record.Kind = domain.OperationKind(kind)
		record.Status = domain.OperationStatus(status)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
