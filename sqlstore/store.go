// Package sqlstore keeps machine histories in a SQL database through
// database/sql. Driver packages (sqlite, postgres) open the connection and
// hand it to New.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jt05610/ptnet"
	"go.uber.org/zap"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	default:
		return "sqlite"
	}
}

// bind rewrites ? placeholders into the dialect's form.
func (d Dialect) bind(query string) string {
	if d != Postgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

const schema = `CREATE TABLE IF NOT EXISTS ptnet_records (
	machine     TEXT   NOT NULL,
	seq         BIGINT NOT NULL,
	transition  TEXT   NOT NULL,
	state       TEXT   NOT NULL,
	recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (machine, seq)
)`

// Store holds the histories of any number of machines in one table.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
	mu      sync.Mutex
}

// New wraps an open database. Call Migrate before use.
func New(db *sql.DB, dialect Dialect, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, dialect: dialect, logger: logger.Named(dialect.String())}
}

// Migrate creates the records table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB { return s.db }

// History returns the history of one machine.
func (s *Store) History(machine string) *History {
	return &History{store: s, machine: machine}
}

// Machines lists the ids of every machine with stored records.
func (s *Store) Machines(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT machine FROM ptnet_records ORDER BY machine`)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan machine: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// History is one machine's records in a Store.
type History struct {
	store   *Store
	machine string
}

var _ ptnet.History = (*History)(nil)

func (h *History) lastSeq(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}) (int64, bool, error) {
	var last sql.NullInt64
	err := q.QueryRowContext(ctx,
		h.store.dialect.bind(`SELECT MAX(seq) FROM ptnet_records WHERE machine = ?`),
		h.machine,
	).Scan(&last)
	if err != nil {
		return 0, false, fmt.Errorf("read last seq: %w", err)
	}
	return last.Int64, last.Valid, nil
}

func (h *History) Append(ctx context.Context, rec ptnet.Record) error {
	state, err := json.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	tx, err := h.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	last, found, err := h.lastSeq(ctx, tx)
	if err != nil {
		return err
	}
	if err := ptnet.CheckNext(last, found, rec.Seq); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		h.store.dialect.bind(`INSERT INTO ptnet_records (machine, seq, transition, state) VALUES (?, ?, ?, ?)`),
		h.machine, rec.Seq, rec.Transition, string(state),
	)
	if err != nil {
		_ = tx.Rollback()
		return h.insertFailed(ctx, rec.Seq, err)
	}
	if err := tx.Commit(); err != nil {
		return h.insertFailed(ctx, rec.Seq, err)
	}
	h.store.logger.Debug("appended record",
		zap.String("machine", h.machine),
		zap.Int64("seq", rec.Seq),
		zap.String("transition", rec.Transition),
	)
	return nil
}

// insertFailed reports a lost race with another writer as a sequence error.
// The append transaction must be finished before calling it.
func (h *History) insertFailed(ctx context.Context, seq int64, cause error) error {
	last, found, err := h.lastSeq(ctx, h.store.db)
	if err == nil && found && last >= seq {
		return &ptnet.SequenceError{Want: last + 1, Got: seq}
	}
	return fmt.Errorf("insert seq %d: %w", seq, cause)
}

func (h *History) All(ctx context.Context) ([]ptnet.Record, error) {
	rows, err := h.store.db.QueryContext(ctx,
		h.store.dialect.bind(`SELECT seq, transition, state FROM ptnet_records WHERE machine = ? ORDER BY seq`),
		h.machine,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := make([]ptnet.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (h *History) Latest(ctx context.Context) (ptnet.Record, bool, error) {
	row := h.store.db.QueryRowContext(ctx,
		h.store.dialect.bind(`SELECT seq, transition, state FROM ptnet_records WHERE machine = ? ORDER BY seq DESC LIMIT 1`),
		h.machine,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ptnet.Record{}, false, nil
	}
	if err != nil {
		return ptnet.Record{}, false, err
	}
	return rec, true, nil
}

func (h *History) Get(ctx context.Context, seq int64) (ptnet.Record, bool, error) {
	row := h.store.db.QueryRowContext(ctx,
		h.store.dialect.bind(`SELECT seq, transition, state FROM ptnet_records WHERE machine = ? AND seq = ?`),
		h.machine, seq,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ptnet.Record{}, false, nil
	}
	if err != nil {
		return ptnet.Record{}, false, err
	}
	return rec, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (ptnet.Record, error) {
	var rec ptnet.Record
	var state string
	if err := s.Scan(&rec.Seq, &rec.Transition, &state); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan record: %w", err)
	}
	if err := json.Unmarshal([]byte(state), &rec.State); err != nil {
		return rec, &ptnet.CorruptHistoryError{Seq: rec.Seq, Reason: "decoding state", Err: err}
	}
	return rec, nil
}
