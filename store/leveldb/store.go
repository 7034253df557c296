// Package leveldb implements store.Store on a goleveldb database.
//
// The key space is split into single-byte prefixed pools:
//
//	P                      platform record
//	C <content id>         content record
//	O <owner> 0x00 <id>    content-by-owner index (empty value)
//	S <content id>         access session
//	W <content id>         ownership record
//	Y <seq:8>              payment receipt, seq big-endian
//	N                      next receipt sequence number
//	R <content id>         creator revenue accumulator
//	U <address>            user payment accumulator
//
// Every Batch becomes one leveldb.Batch, which goleveldb writes atomically.
// Content ids are arbitrary bytes in keys, but JSON values only carry valid
// UTF-8, so records read under a content id take the id from their key.
package leveldb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/xraph/contenthub"
	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/platform"
	"github.com/xraph/contenthub/session"
	"github.com/xraph/contenthub/store"
	"github.com/xraph/contenthub/types"
)

var _ store.Store = (*Store)(nil)

const (
	poolPlatform  = 'P'
	poolContent   = 'C'
	poolOwner     = 'O'
	poolSession   = 'S'
	poolOwnership = 'W'
	poolPayment   = 'Y'
	poolSequence  = 'N'
	poolRevenue   = 'R'
	poolUser      = 'U'
)

// Store implements store.Store on goleveldb. Apply is serialized so that
// precondition reads and the batch write observe the same state.
type Store struct {
	db *leveldb.DB
	mu sync.Mutex
}

// Open opens or creates the database directory at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("contenthub/leveldb: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenMemory opens a database held entirely in memory.
func OpenMemory() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("contenthub/leveldb: open memory: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Migrate(_ context.Context) error {
	return nil // Schemaless
}

func (s *Store) Ping(_ context.Context) error {
	_, err := s.db.GetProperty("leveldb.stats")
	if errors.Is(err, leveldb.ErrClosed) {
		return contenthub.ErrStoreClosed
	}
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Keys ====================

func key(pool byte, parts ...string) []byte {
	n := 1
	for _, p := range parts {
		n += len(p) + 1
	}
	k := make([]byte, 0, n)
	k = append(k, pool)
	for i, p := range parts {
		if i > 0 {
			k = append(k, 0)
		}
		k = append(k, p...)
	}
	return k
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 9)
	k[0] = poolPayment
	binary.BigEndian.PutUint64(k[1:], seq)
	return k
}

func encodeInt(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

func decodeInt(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("contenthub/leveldb: counter has %d bytes", len(b))
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// ==================== Reads ====================

// getJSON decodes the value at k into v, returning notFound if absent.
func (s *Store) getJSON(k []byte, v any, notFound error) error {
	data, err := s.db.Get(k, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("contenthub/leveldb: get: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("contenthub/leveldb: decode: %w", err)
	}
	return nil
}

func (s *Store) getCounter(k []byte) (int64, bool, error) {
	data, err := s.db.Get(k, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("contenthub/leveldb: get counter: %w", err)
	}
	n, err := decodeInt(data)
	return n, true, err
}

func (s *Store) GetPlatform(_ context.Context) (*platform.Platform, error) {
	var p platform.Platform
	if err := s.getJSON([]byte{poolPlatform}, &p, contenthub.ErrPlatformNotInitialized); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetContent(_ context.Context, contentID string) (*content.Content, error) {
	var c content.Content
	if err := s.getJSON(key(poolContent, contentID), &c, contenthub.ErrContentNotFound); err != nil {
		return nil, err
	}
	c.ID, c.Registry.ContentID = contentID, contentID
	return &c, nil
}

// ListContent walks the content pool, or the owner index when filtering.
// Both are ordered by content id.
func (s *Store) ListContent(ctx context.Context, opts content.ListOpts) ([]*content.Content, error) {
	result := make([]*content.Content, 0)

	if opts.Owner == "" {
		iter := s.db.NewIterator(util.BytesPrefix([]byte{poolContent}), nil)
		defer iter.Release()
		for iter.Next() {
			var c content.Content
			if err := json.Unmarshal(iter.Value(), &c); err != nil {
				return nil, fmt.Errorf("contenthub/leveldb: decode content: %w", err)
			}
			contentID := string(iter.Key()[1:])
			c.ID, c.Registry.ContentID = contentID, contentID
			result = append(result, &c)
		}
		if err := iter.Error(); err != nil {
			return nil, fmt.Errorf("contenthub/leveldb: iterate content: %w", err)
		}
		return store.Page(result, opts.Limit, opts.Offset), nil
	}

	prefix := key(poolOwner, string(opts.Owner), "")
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		contentID := string(iter.Key()[len(prefix):])
		c, err := s.GetContent(ctx, contentID)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("contenthub/leveldb: iterate owner index: %w", err)
	}
	return store.Page(result, opts.Limit, opts.Offset), nil
}

func (s *Store) GetSession(_ context.Context, contentID string) (*session.Session, error) {
	var sess session.Session
	if err := s.getJSON(key(poolSession, contentID), &sess, contenthub.ErrSessionNotFound); err != nil {
		return nil, err
	}
	sess.ContentID = contentID
	return &sess, nil
}

func (s *Store) GetOwnership(_ context.Context, contentID string) (*ownership.Record, error) {
	var r ownership.Record
	if err := s.getJSON(key(poolOwnership, contentID), &r, contenthub.ErrOwnershipNotFound); err != nil {
		return nil, err
	}
	r.ContentID, r.Metadata.ContentID = contentID, contentID
	return &r, nil
}

func (s *Store) ListPayments(_ context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	result := make([]*payment.Payment, 0)

	iter := s.db.NewIterator(util.BytesPrefix([]byte{poolPayment}), nil)
	defer iter.Release()
	for iter.Next() {
		var p payment.Payment
		if err := json.Unmarshal(iter.Value(), &p); err != nil {
			return nil, fmt.Errorf("contenthub/leveldb: decode payment: %w", err)
		}
		if opts.Match(&p) {
			result = append(result, &p)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("contenthub/leveldb: iterate payments: %w", err)
	}
	return store.Page(result, opts.Limit, opts.Offset), nil
}

func (s *Store) CreatorRevenue(_ context.Context, contentID string) (int64, error) {
	n, _, err := s.getCounter(key(poolRevenue, contentID))
	return n, err
}

func (s *Store) UserPayments(_ context.Context, addr types.Address) (int64, error) {
	n, _, err := s.getCounter(key(poolUser, string(addr)))
	return n, err
}

// ==================== Apply ====================

func (s *Store) Apply(ctx context.Context, b *store.Batch) error {
	if b.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Preconditions
	plat, err := s.GetPlatform(ctx)
	switch {
	case b.Platform != nil && err == nil:
		return contenthub.ErrAlreadyInitialized
	case b.Platform != nil && errors.Is(err, contenthub.ErrPlatformNotInitialized):
		cp := *b.Platform
		plat = &cp
	case err != nil:
		return err
	}
	next := *plat

	var previous *content.Content
	if c := b.Content; c != nil {
		previous, err = s.GetContent(ctx, c.ID)
		switch {
		case err == nil && b.ContentMustBeNew:
			return contenthub.ErrDuplicateContent
		case err != nil && !errors.Is(err, contenthub.ErrContentNotFound):
			return err
		}
		if next.TotalContent, err = types.AddInt64(next.TotalContent, 1); err != nil {
			return fmt.Errorf("%w: total content", contenthub.ErrCounterOverflow)
		}
	}

	if r := b.Ownership; r != nil && b.OwnershipMustBeNew {
		owned, err := s.db.Has(key(poolOwnership, r.ContentID), nil)
		if err != nil {
			return fmt.Errorf("contenthub/leveldb: ownership check: %w", err)
		}
		if owned {
			return contenthub.ErrAlreadyOwned
		}
	}

	var (
		totals store.Totals
		seq    uint64
	)
	if p := b.Payment; p != nil {
		creator, _, err := s.getCounter(key(poolRevenue, p.ContentID))
		if err != nil {
			return err
		}
		paid, seen, err := s.getCounter(key(poolUser, string(p.Payer)))
		if err != nil {
			return err
		}
		if totals, err = store.ApplyPayment(&next, creator, paid, !seen, p); err != nil {
			return fmt.Errorf("%w: %v", contenthub.ErrCounterOverflow, err)
		}
		next.TotalRevenue = totals.TotalRevenue
		next.TotalUsers = totals.TotalUsers

		last, _, err := s.getCounter([]byte{poolSequence})
		if err != nil {
			return err
		}
		seq = uint64(last) + 1
	}

	// Writes
	batch := new(leveldb.Batch)
	if err := putJSON(batch, []byte{poolPlatform}, &next); err != nil {
		return err
	}

	if c := b.Content; c != nil {
		if previous != nil && previous.Owner != c.Owner {
			batch.Delete(key(poolOwner, string(previous.Owner), c.ID))
		}
		if err := putJSON(batch, key(poolContent, c.ID), c); err != nil {
			return err
		}
		batch.Put(key(poolOwner, string(c.Owner), c.ID), nil)
	}

	if p := b.Payment; p != nil {
		if err := putJSON(batch, seqKey(seq), p); err != nil {
			return err
		}
		batch.Put([]byte{poolSequence}, encodeInt(int64(seq)))
		batch.Put(key(poolRevenue, p.ContentID), encodeInt(totals.Creator))
		batch.Put(key(poolUser, string(p.Payer)), encodeInt(totals.Payer))
	}

	if sess := b.Session; sess != nil {
		if err := putJSON(batch, key(poolSession, sess.ContentID), sess); err != nil {
			return err
		}
	}

	if r := b.Ownership; r != nil {
		if err := putJSON(batch, key(poolOwnership, r.ContentID), r); err != nil {
			return err
		}
	}

	if err := s.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("%w: contenthub/leveldb: write: %v", contenthub.ErrTransactionFailed, err)
	}
	return nil
}

func putJSON(batch *leveldb.Batch, k []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("contenthub/leveldb: encode: %w", err)
	}
	batch.Put(k, data)
	return nil
}
