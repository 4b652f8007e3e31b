// Package couch keeps machine histories in CouchDB, one document per record.
package couch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	_ "github.com/go-kivik/couchdb/v3"
	"github.com/go-kivik/kivik/v3"
	"github.com/jt05610/ptnet"
	"go.uber.org/zap"
)

type Store struct {
	cancel func()
	db     *kivik.DB
	logger *zap.Logger
}

// Open connects to the CouchDB server at uri and creates database name if it
// does not exist yet.
func Open(ctx context.Context, uri, name string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := kivik.New("couch", uri)
	if err != nil {
		return nil, fmt.Errorf("connect couchdb: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	dbs, err := client.AllDBs(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("list databases: %w", err)
	}
	found := false
	for _, db := range dbs {
		if db == name {
			found = true
			break
		}
	}
	if !found {
		if err := client.CreateDB(ctx, name); err != nil {
			cancel()
			return nil, fmt.Errorf("create database %s: %w", name, err)
		}
		logger.Info("created couchdb database", zap.String("db", name))
	}
	db := client.DB(ctx, name)
	if err := db.Err(); err != nil {
		cancel()
		return nil, fmt.Errorf("open database %s: %w", name, err)
	}
	return &Store{
		cancel: cancel,
		db:     db,
		logger: logger.Named("couch"),
	}, nil
}

func (s *Store) Close() error {
	s.cancel()
	return nil
}

func (s *Store) History(machine string) *History {
	return &History{store: s, machine: machine}
}

type document struct {
	ID         string            `json:"_id"`
	Rev        string            `json:"_rev,omitempty"`
	Machine    string            `json:"machine"`
	Seq        int64             `json:"seq"`
	Transition string            `json:"transition"`
	State      ptnet.StateVector `json:"state"`
}

func (d *document) record() ptnet.Record {
	return ptnet.Record{Seq: d.Seq, Transition: d.Transition, State: d.State}
}

// DocID is the id of a machine's record. The machine id is escaped so that
// the only ':' in a doc id is the separator, and zero padding keeps CouchDB's
// collation of ids in seq order.
func DocID(machine string, seq int64) string {
	return fmt.Sprintf("%s:%020d", url.QueryEscape(machine), seq)
}

// keyRange returns the first and last possible ids of a machine's records.
func keyRange(machine string) (string, string) {
	prefix := url.QueryEscape(machine) + ":"
	return prefix, prefix + "\ufff0"
}

type History struct {
	store   *Store
	machine string
}

var _ ptnet.History = (*History)(nil)

func (h *History) Append(ctx context.Context, rec ptnet.Record) error {
	last, found, err := h.Latest(ctx)
	if err != nil {
		return err
	}
	if err := ptnet.CheckNext(last.Seq, found, rec.Seq); err != nil {
		return err
	}
	doc := &document{
		ID:         DocID(h.machine, rec.Seq),
		Machine:    h.machine,
		Seq:        rec.Seq,
		Transition: rec.Transition,
		State:      rec.State,
	}
	if _, err := h.store.db.Put(ctx, doc.ID, doc); err != nil {
		if kivik.StatusCode(err) == http.StatusConflict {
			// another writer stored this seq first
			return &ptnet.SequenceError{Want: rec.Seq + 1, Got: rec.Seq}
		}
		return fmt.Errorf("put %s: %w", doc.ID, err)
	}
	h.store.logger.Debug("appended record",
		zap.String("machine", h.machine),
		zap.Int64("seq", rec.Seq),
		zap.String("transition", rec.Transition),
	)
	return nil
}

func (h *History) query(ctx context.Context, opts kivik.Options) ([]ptnet.Record, error) {
	rows, err := h.store.db.AllDocs(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", h.machine, err)
	}
	defer func() { _ = rows.Close() }()
	out := make([]ptnet.Record, 0)
	for rows.Next() {
		var doc document
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", rows.ID(), err)
		}
		out = append(out, doc.record())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", h.machine, err)
	}
	return out, nil
}

func (h *History) Get(ctx context.Context, seq int64) (ptnet.Record, bool, error) {
	if seq < 0 {
		return ptnet.Record{}, false, nil
	}
	var doc document
	id := DocID(h.machine, seq)
	if err := h.store.db.Get(ctx, id).ScanDoc(&doc); err != nil {
		if kivik.StatusCode(err) == http.StatusNotFound {
			return ptnet.Record{}, false, nil
		}
		return ptnet.Record{}, false, fmt.Errorf("get %s: %w", id, err)
	}
	return doc.record(), true, nil
}

func (h *History) All(ctx context.Context) ([]ptnet.Record, error) {
	start, end := keyRange(h.machine)
	return h.query(ctx, kivik.Options{
		"include_docs": true,
		"startkey":     start,
		"endkey":       end,
	})
}

func (h *History) Latest(ctx context.Context) (ptnet.Record, bool, error) {
	start, end := keyRange(h.machine)
	records, err := h.query(ctx, kivik.Options{
		"include_docs": true,
		"descending":   true,
		"limit":        1,
		"startkey":     end,
		"endkey":       start,
	})
	if err != nil {
		return ptnet.Record{}, false, err
	}
	if len(records) == 0 {
		return ptnet.Record{}, false, nil
	}
	return records[0], true, nil
}
