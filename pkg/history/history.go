// Package history persists a per-station log of sent and received
// utterances in BadgerDB.
//
// Each record stores the packet text plus the prosody measured at
// capture time, keyed so that a plain iteration walks the log in
// chronological order. The log is observability data: engines append
// to it on a best-effort basis and never block on it.
package history

import (
	"encoding/binary"
	"errors"
	"iter"
	"log"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/januslink/janus/pkg/janus"
)

// Direction records which side of the link produced an entry.
type Direction string

const (
	Sent     Direction = "sent"
	Received Direction = "received"
)

// Record is one logged utterance.
type Record struct {
	Direction Direction      `msgpack:"d"`
	Text      string         `msgpack:"t"`
	Mode      janus.Mode     `msgpack:"m"`
	Prosody   *janus.Prosody `msgpack:"p,omitempty"`
	AtMs      int64          `msgpack:"ts"`
}

// At returns the record timestamp as a time.Time.
func (r Record) At() time.Time { return time.UnixMilli(r.AtMs) }

// Options configures a Log.
type Options struct {
	// Dir is the directory for the database files. Required unless
	// InMemory is set.
	Dir string

	// InMemory keeps the log in memory only. Used in tests.
	InMemory bool
}

// Log is a Badger-backed utterance log.
type Log struct {
	db *badger.DB

	// seq disambiguates records that land on the same millisecond;
	// atomic so concurrent appenders never collide on a key.
	seq atomic.Uint32
}

// Open opens or creates the log.
func Open(opts Options) (*Log, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("history: Options.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(quietLogger{})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	return &Log{db: db}, nil
}

// Append writes one record. A zero AtMs is stamped with now.
func (l *Log) Append(rec Record) error {
	if rec.AtMs == 0 {
		rec.AtMs = time.Now().UnixMilli()
	}
	val, err := msgpack.Marshal(rec)
	if err != nil {
		return err
	}
	key := l.key(rec.AtMs)
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// key layout: 8-byte big-endian millisecond timestamp followed by a
// 4-byte sequence counter, so byte order is chronological order.
func (l *Log) key(atMs int64) []byte {
	k := make([]byte, 12)
	binary.BigEndian.PutUint64(k, uint64(atMs))
	binary.BigEndian.PutUint32(k[8:], l.seq.Add(1))
	return k
}

// All iterates every record in chronological order.
func (l *Log) All() iter.Seq2[Record, error] {
	return l.scan(0, 0)
}

// Since iterates records at or after the given time, oldest first.
func (l *Log) Since(from time.Time) iter.Seq2[Record, error] {
	return l.scan(from.UnixMilli(), 0)
}

// Between iterates records in [from, to), oldest first.
func (l *Log) Between(from, to time.Time) iter.Seq2[Record, error] {
	return l.scan(from.UnixMilli(), to.UnixMilli())
}

func (l *Log) scan(fromMs, toMs int64) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		err := l.db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()

			start := make([]byte, 8)
			binary.BigEndian.PutUint64(start, uint64(fromMs))
			for it.Seek(start); it.Valid(); it.Next() {
				item := it.Item()
				if toMs > 0 {
					atMs := int64(binary.BigEndian.Uint64(item.Key()))
					if atMs >= toMs {
						return nil
					}
				}
				val, err := item.ValueCopy(nil)
				if err != nil {
					if !yield(Record{}, err) {
						return nil
					}
					continue
				}
				var rec Record
				if err := msgpack.Unmarshal(val, &rec); err != nil {
					if !yield(Record{}, err) {
						return nil
					}
					continue
				}
				if !yield(rec, nil) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(Record{}, err)
		}
	}
}

// Recent returns up to n of the newest records, newest first.
func (l *Log) Recent(n int) ([]Record, error) {
	var out []Record
	err := l.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Reverse = true
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		// Seek past the largest possible key.
		top := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
		for it.Seek(top); it.Valid() && len(out) < n; it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec Record
			if err := msgpack.Unmarshal(val, &rec); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// Close flushes and closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}

// quietLogger suppresses badger's info and debug chatter.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{})   { log.Printf("[history] ERROR: "+f, v...) }
func (quietLogger) Warningf(f string, v ...interface{}) { log.Printf("[history] WARN: "+f, v...) }
func (quietLogger) Infof(string, ...interface{})        {}
func (quietLogger) Debugf(string, ...interface{})       {}
