package elogs

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/reusee/scriptd/requests"
	bolt "go.etcd.io/bbolt"
)

var bucketEntries = []byte("entries")

// BoltLogbook stores entries in a bbolt file, opened on first use.
type BoltLogbook struct {
	open func() (*bolt.DB, error)
	once sync.Once
}

var _ Logbook = new(BoltLogbook)

func NewBoltLogbook(path string) *BoltLogbook {
	return &BoltLogbook{
		open: sync.OnceValues(func() (*bolt.DB, error) {
			db, err := bolt.Open(path, 0o644, &bolt.Options{
				Timeout: time.Second,
			})
			if err != nil {
				return nil, err
			}
			err = db.Update(func(tx *bolt.Tx) error {
				_, err := tx.CreateBucketIfNotExists(bucketEntries)
				return err
			})
			if err != nil {
				db.Close()
				return nil, err
			}
			return db, nil
		}),
	}
}

func (b *BoltLogbook) add(entry Entry) error {
	db, err := b.open()
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		entry.Seq = seq
		bs, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return bucket.Put(marshalSeq(seq), bs)
	})
}

func (b *BoltLogbook) ScriptBegin(ctx context.Context, info requests.Info) error {
	return b.add(Entry{
		Kind:   ScriptBegin,
		Time:   time.Now(),
		Number: info.Number,
		Name:   info.Name,
		User:   info.User,
		Script: info.Script,
	})
}

func (b *BoltLogbook) ScriptEnd(ctx context.Context, info requests.Info, outcome string, errText string) error {
	return b.add(Entry{
		Kind:    ScriptEnd,
		Time:    time.Now(),
		Number:  info.Number,
		Name:    info.Name,
		User:    info.User,
		Outcome: outcome,
		Error:   errText,
	})
}

func (b *BoltLogbook) Entries(from uint64, n int) (ret []Entry, err error) {
	db, err := b.open()
	if err != nil {
		return nil, err
	}
	err = db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		for k, v := c.Seek(marshalSeq(from)); k != nil && len(ret) < n; k, v = c.Next() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			ret = append(ret, entry)
		}
		return nil
	})
	return
}

func (b *BoltLogbook) Close() (err error) {
	b.once.Do(func() {
		db, openErr := b.open()
		if openErr != nil {
			return
		}
		err = db.Close()
	})
	return
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
