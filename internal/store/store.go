// Package store persists a durable history of which domains were ever
// observed for a given flow IP, so that a user-facing client can answer
// "what was 10.0.0.4 talking to" after the in-memory reverse index has
// been cleared. It is an observer bolted onto the engine's flow close
// path — never on the hot decode path, and never
// consulted by domain resolution itself.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/jroosing/flowinspect/internal/flow"
	"github.com/jroosing/flowinspect/internal/helpers"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// maxObservationsLimit bounds ObservationsForIP's LIMIT clause regardless
// of what a caller (the admin API) asks for.
const maxObservationsLimit = 1000

// Store wraps a SQLite connection holding the domain-observation history.
type Store struct {
	conn   *sql.DB
	mu     sync.RWMutex
	logger *slog.Logger
}

// Open opens or creates a SQLite database at path and runs migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	s := &Store{conn: conn}
	if err := s.runMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) runMigrations() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	dbDriver, err := sqlite.WithInstance(s.conn, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SetLogger attaches a logger used for Debug-level persistence logging.
// Nil is valid and leaves the store silent, which is also Open's default.
func (s *Store) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Health checks database connectivity.
func (s *Store) Health() error {
	return s.conn.Ping()
}

// AsObserver adapts the store to flow.Observer, stamping each observation
// with the wall-clock time it was recorded. Kept separate from
// RecordObservation/RecordFlowSnapshot so tests can pass deterministic
// timestamps directly.
func (s *Store) AsObserver() Observer {
	return Observer{store: s}
}

// Observer implements flow.Observer over a Store. flow never imports store,
// so store importing flow for the FlowSnapshot type doesn't create a cycle.
type Observer struct {
	store *Store
}

// RecordObservation satisfies flow.Observer.
func (o Observer) RecordObservation(sessionID uint64, flowIP string, domains []string) {
	if o.store == nil {
		return
	}
	_ = o.store.RecordObservation(context.Background(), sessionID, flowIP, domains, time.Now().Unix())
}

// RecordFlowSnapshot satisfies flow.Observer.
func (o Observer) RecordFlowSnapshot(snap flow.FlowSnapshot) {
	if o.store == nil {
		return
	}
	_ = o.store.RecordFlowSnapshot(context.Background(), snap, time.Now().Unix())
}

// RecordObservation persists the domains resolved for a flow at close time.
// observedAtUnix is passed in rather than computed here so callers (and
// tests) control the timestamp deterministically.
func (s *Store) RecordObservation(ctx context.Context, sessionID uint64, flowIP string, domains []string, observedAtUnix int64) error {
	if len(domains) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO domain_observations (session_id, flow_ip, domain, observed_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, domain := range domains {
		if domain == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, sessionID, flowIP, domain, observedAtUnix); err != nil {
			return fmt.Errorf("failed to insert observation %s: %w", domain, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Debug("recorded domain observations", "flow_ip", flowIP, "count", len(domains))
	}
	return nil
}

// Observation is a single historical domain sighting for a flow IP.
type Observation struct {
	SessionID  uint64
	Domain     string
	ObservedAt int64
}

// ObservationsForIP returns the domain history for a flow IP, most recent first.
func (s *Store) ObservationsForIP(ctx context.Context, flowIP string, limit int) ([]Observation, error) {
	if limit <= 0 {
		limit = 100
	}
	limit = helpers.ClampInt(limit, 1, maxObservationsLimit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT session_id, domain, observed_at
		FROM domain_observations
		WHERE flow_ip = ?
		ORDER BY observed_at DESC
		LIMIT ?
	`, flowIP, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.SessionID, &o.Domain, &o.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// FlowSnapshotRecord is a flow's last-known state as persisted by
// RecordFlowSnapshot, returned by FlowSnapshotForSession.
type FlowSnapshotRecord struct {
	SessionID    uint64
	FlowIP       string
	DstPort      uint16
	Transport    string
	Direction    string
	ProcessID    int
	ProcessName  string
	ProcessPath  string
	Decision     string
	PathDecision string
	Domains      []string
	UpdatedAt    int64
}

// RecordFlowSnapshot upserts the flow's last-known state keyed by session
// ID: a later close of the same session overwrites the earlier one.
func (s *Store) RecordFlowSnapshot(ctx context.Context, snap flow.FlowSnapshot, updatedAtUnix int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO flow_sessions (
			session_id, flow_ip, dst_port, transport, direction,
			process_id, process_name, process_path, decision, path_decision,
			domains, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			flow_ip = excluded.flow_ip,
			dst_port = excluded.dst_port,
			transport = excluded.transport,
			direction = excluded.direction,
			process_id = excluded.process_id,
			process_name = excluded.process_name,
			process_path = excluded.process_path,
			decision = excluded.decision,
			path_decision = excluded.path_decision,
			domains = excluded.domains,
			updated_at = excluded.updated_at
	`,
		snap.SessionID, snap.FlowIP, snap.DstPort, snap.Transport, snap.Direction,
		snap.ProcessID, snap.ProcessName, snap.ProcessPath, snap.Decision, snap.PathDecision,
		strings.Join(snap.Domains, ","), updatedAtUnix,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert flow snapshot: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("recorded flow snapshot", "session_id", snap.SessionID, "decision", snap.Decision)
	}
	return nil
}

// FlowSnapshotForSession returns the last-known state for a session ID, or
// (nil, nil) if the session was never recorded.
func (s *Store) FlowSnapshotForSession(ctx context.Context, sessionID uint64) (*FlowSnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.conn.QueryRowContext(ctx, `
		SELECT session_id, flow_ip, dst_port, transport, direction,
		       process_id, process_name, process_path, decision, path_decision,
		       domains, updated_at
		FROM flow_sessions
		WHERE session_id = ?
	`, sessionID)

	var rec FlowSnapshotRecord
	var domains string
	err := row.Scan(
		&rec.SessionID, &rec.FlowIP, &rec.DstPort, &rec.Transport, &rec.Direction,
		&rec.ProcessID, &rec.ProcessName, &rec.ProcessPath, &rec.Decision, &rec.PathDecision,
		&domains, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query flow snapshot: %w", err)
	}
	if domains != "" {
		rec.Domains = strings.Split(domains, ",")
	}
	return &rec, nil
}
