package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Key layout:
//
//	r:<8-byte big-endian start nanos><16-byte id> -> JSON Record
//	i:<id string>                                  -> record key
//	m:__schema__                                   -> schema version
const (
	prefixRecord = "r:"
	prefixIndex  = "i:"
	schemaKey    = "m:__schema__"
)

// SchemaVersion is the on-disk layout version.
const SchemaVersion = 1

var (
	// ErrNotFound is returned when no record matches an ID.
	ErrNotFound = errors.New("history record not found")

	// ErrAmbiguous is returned when an ID prefix matches several records.
	ErrAmbiguous = errors.New("history ID prefix is ambiguous")
)

// Store is the run history.
type Store struct {
	db *badger.DB
}

// Open opens or creates the store at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return open(opts)
}

// OpenInMemory returns a store that is discarded on Close.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	s := &Store{db: db}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(schemaKey), []byte(fmt.Sprint(SchemaVersion)))
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("writing history schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(r *Record) []byte {
	key := make([]byte, 0, len(prefixRecord)+8+16)
	key = append(key, prefixRecord...)
	key = binary.BigEndian.AppendUint64(key, uint64(r.StartedAt.UnixNano()))
	return append(key, r.ID[:]...)
}

func keyTime(key []byte) time.Time {
	if len(key) < len(prefixRecord)+8 {
		return time.Time{}
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(key[len(prefixRecord):])))
}

// Put stores r, assigning an ID and start time when unset.
func (s *Store) Put(r *Record) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	key := recordKey(r)
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set([]byte(prefixIndex+r.ID.String()), key)
	})
}

// Get returns the record whose ID equals or starts with id.
func (s *Store) Get(id string) (*Record, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return nil, ErrNotFound
	}

	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		key, err := lookup(txn, id)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func lookup(txn *badger.Txn, id string) ([]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := []byte(prefixIndex + id)
	var key []byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if key != nil {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguous, id)
		}
		v, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		key = v
	}
	if key == nil {
		return nil, badger.ErrKeyNotFound
	}
	return key, nil
}

// List returns up to limit records, newest first. A limit of zero or less
// returns all records.
func (s *Store) List(limit int) ([]*Record, error) {
	var out []*Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRecord)
		for it.Seek([]byte(prefixRecord + "\xff")); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, &rec)
		}
		return nil
	})
	return out, err
}

// Cleanup deletes records that started more than retentionDays ago and
// returns how many were removed. A non-positive retention keeps everything.
func (s *Store) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRecord)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if !keyTime(key).Before(cutoff) {
				break
			}
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil || len(stale) == 0 {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		id, err := uuid.FromBytes(key[len(key)-16:])
		if err != nil {
			return 0, err
		}
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
		if err := wb.Delete([]byte(prefixIndex + id.String())); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(stale), nil
}
