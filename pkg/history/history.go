// Package history persists completed runs in BadgerDB so they can be listed
// and replayed later.
package history

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/logging"
)

// Kind names the operation that produced a run.
type Kind string

const (
	KindKMeans  Kind = "kmeans"
	KindSweep   Kind = "sweep"
	KindApriori Kind = "apriori"
	KindPCA     Kind = "pca"
)

// ParseKind accepts a known kind. The empty string means any kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", KindKMeans, KindSweep, KindApriori, KindPCA:
		return k, nil
	}
	return "", errors.InvalidParameter("kind", "unknown run kind %q", s)
}

// Key prefixes for BadgerDB storage
const (
	runKeyPrefix   = "run:"
	indexKeyPrefix = "idx:"
	allKinds       = "all"
)

// Run is one stored invocation.
type Run struct {
	ID        string             `json:"id"`
	Kind      Kind               `json:"kind"`
	CreatedAt time.Time          `json:"createdAt"`
	Params    json.RawMessage    `json:"params,omitempty"`
	Summary   map[string]float64 `json:"summary,omitempty"`
	Result    json.RawMessage    `json:"result,omitempty"`
}

// NewRun encodes params and result into a Run of the given kind.
func NewRun(kind Kind, params interface{}, summary map[string]float64, result interface{}) (*Run, error) {
	p, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "marshal run params")
	}
	r, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(err, "marshal run result")
	}
	return &Run{Kind: kind, Params: p, Summary: summary, Result: r}, nil
}

// Store keeps runs in Badger. Each run is stored once under run:<id> and
// indexed under idx:<kind>:<inverted time>:<id> and idx:all:..., so a forward
// prefix scan yields newest first.
type Store struct {
	db     *badger.DB
	ttl    time.Duration
	ownsDB bool
}

// NewStore wraps an open database. The caller keeps ownership of db.
func NewStore(db *badger.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl}
}

// Open opens (or creates) a store at path. An empty path keeps everything in memory.
func Open(path string, ttl time.Duration) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{logging.Named("badger")})
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open history at %q", path)
	}
	return &Store{db: db, ttl: ttl, ownsDB: true}, nil
}

// Close releases the database if the store opened it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// Save stores run, assigning an ID and timestamp when they are unset.
func (s *Store) Save(ctx context.Context, run *Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run.Kind == "" {
		return errors.InvalidParameter("kind", "run kind is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "marshal run")
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(s.entry([]byte(runKeyPrefix+run.ID), data)); err != nil {
			return errors.Wrap(err, "set run")
		}
		for _, k := range []string{string(run.Kind), allKinds} {
			if err := txn.SetEntry(s.entry(indexKey(k, run.CreatedAt, run.ID), []byte(run.ID))); err != nil {
				return errors.Wrap(err, "set run index")
			}
		}
		return nil
	})
}

// Get returns the run with id, or an error matching errors.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var run Run
	err := s.db.View(func(txn *badger.Txn) error {
		return readRun(txn, id, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns up to limit runs of kind, newest first. An empty kind lists
// every run and a non-positive limit returns all of them. Results are omitted
// to keep listings small; fetch a single run with Get for the full payload.
func (s *Store) List(ctx context.Context, kind Kind, limit int) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scope := string(kind)
	if scope == "" {
		scope = allKinds
	}
	prefix := []byte(indexKeyPrefix + scope + ":")

	runs := make([]Run, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(runs) >= limit {
				break
			}

			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			var run Run
			if err := readRun(txn, id, &run); err != nil {
				if errors.IsNotFound(err) {
					// The run expired before its index entry.
					continue
				}
				return err
			}
			run.Result = nil
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	return runs, nil
}

// Delete removes a run and its index entries. Missing runs are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	run, err := s.Get(ctx, id)
	if errors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		keys := [][]byte{
			[]byte(runKeyPrefix + id),
			indexKey(string(run.Kind), run.CreatedAt, id),
			indexKey(allKinds, run.CreatedAt, id),
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return errors.Wrap(err, "delete run")
			}
		}
		return nil
	})
}

// Count returns the number of stored runs.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(runKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (s *Store) entry(key, value []byte) *badger.Entry {
	e := badger.NewEntry(key, value)
	if s.ttl > 0 {
		e = e.WithTTL(s.ttl)
	}
	return e
}

func readRun(txn *badger.Txn, id string, run *Run) error {
	item, err := txn.Get([]byte(runKeyPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.Wrapf(errors.ErrNotFound, "run %s", id)
	}
	if err != nil {
		return errors.Wrap(err, "get run")
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, run)
	})
}

// indexKey orders newer runs first by storing the nanosecond timestamp
// subtracted from MaxInt64, zero padded.
func indexKey(scope string, at time.Time, id string) []byte {
	inverted := uint64(math.MaxInt64 - at.UnixNano())
	return []byte(fmt.Sprintf("%s%s:%019d:%s", indexKeyPrefix, scope, inverted, id))
}

// badgerLogger routes Badger's internal logging through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}
