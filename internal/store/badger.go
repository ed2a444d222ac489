package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/alucardeht/may-la-specs/internal/spec"
)

const badgerPrefix = "spec/"

// BadgerStore keeps every spec as one JSON value keyed "spec/<id>" in an
// embedded Badger database. Keys sort by id, so listing needs no extra
// ordering step.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens or creates the database in dir. An empty dir keeps
// the data in memory only.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, unavailable("create store dir", err)
	}
	opts = opts.WithLogger(badgerLog{}).WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, unavailable("open store", err)
	}
	log.Info("badger store opened", "path", dir, "in_memory", dir == "")
	return &BadgerStore{db: db}, nil
}

func badgerKey(id string) []byte {
	return []byte(badgerPrefix + id)
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) ListAll(ctx context.Context) ([]*spec.Spec, error) {
	var specs []*spec.Spec
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			sp, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			specs = append(specs, sp)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("list specs", err)
	}
	return specs, nil
}

func (s *BadgerStore) Get(ctx context.Context, id string) (*spec.Spec, error) {
	var sp *spec.Spec
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if err != nil {
			return err
		}
		sp, err = decodeItem(item)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, unavailable("get spec", err)
	}
	return sp, nil
}

func (s *BadgerStore) Put(ctx context.Context, in *spec.Spec) error {
	sp, err := prepare(in)
	if err != nil {
		return err
	}
	val, err := json.Marshal(sp)
	if err != nil {
		return fmt.Errorf("encode spec %s: %w", sp.ID, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(sp.ID), val)
	}); err != nil {
		return unavailable("put spec", err)
	}
	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerKey(id)); err != nil {
			return err
		}
		return txn.Delete(badgerKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound(id)
	}
	if err != nil {
		return unavailable("delete spec", err)
	}
	return nil
}

// Count walks the keys without loading values.
func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, unavailable("count specs", err)
	}
	return n, nil
}

func decodeItem(item *badger.Item) (*spec.Spec, error) {
	var sp spec.Spec
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &sp)
	}); err != nil {
		return nil, fmt.Errorf("decode %s: %w", item.Key(), err)
	}
	return &sp, nil
}

// badgerLog sends Badger's printf-style output to the store logger. Its
// info chatter is demoted to debug.
type badgerLog struct{}

var _ badger.Logger = badgerLog{}

func badgerMsg(format string, args []any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}

func (badgerLog) Errorf(format string, args ...any)   { log.Error(badgerMsg(format, args)) }
func (badgerLog) Warningf(format string, args ...any) { log.Warn(badgerMsg(format, args)) }
func (badgerLog) Infof(format string, args ...any)    { log.Debug(badgerMsg(format, args)) }
func (badgerLog) Debugf(format string, args ...any)   { log.Debug(badgerMsg(format, args)) }
