package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

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

type Store struct {
	mu sync.RWMutex

	platform *platform.Platform

	// Registry
	content map[string]*content.Content

	// Access sessions, one per content id
	sessions map[string]*session.Session

	// Ownership records, one per content id
	ownership map[string]*ownership.Record

	// Receipts in commit order
	payments       []*payment.Payment
	creatorRevenue map[string]int64
	userPayments   map[types.Address]int64

	closed bool
}

func New() *Store {
	return &Store{
		content:        make(map[string]*content.Content),
		sessions:       make(map[string]*session.Session),
		ownership:      make(map[string]*ownership.Record),
		payments:       make([]*payment.Payment, 0),
		creatorRevenue: make(map[string]int64),
		userPayments:   make(map[types.Address]int64),
	}
}

// Platform

func (s *Store) GetPlatform(_ context.Context) (*platform.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.platform == nil {
		return nil, contenthub.ErrPlatformNotInitialized
	}
	p := *s.platform
	return &p, nil
}

// Content

func (s *Store) GetContent(_ context.Context, contentID string) (*content.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.content[contentID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, contenthub.ErrContentNotFound
}

func (s *Store) ListContent(_ context.Context, opts content.ListOpts) ([]*content.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*content.Content, 0)
	for _, c := range s.content {
		if opts.Owner == "" || c.Owner == opts.Owner {
			cp := *c
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return store.Page(result, opts.Limit, opts.Offset), nil
}

// Sessions

func (s *Store) GetSession(_ context.Context, contentID string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[contentID]; ok {
		cp := *sess
		return &cp, nil
	}
	return nil, contenthub.ErrSessionNotFound
}

// Ownership

func (s *Store) GetOwnership(_ context.Context, contentID string) (*ownership.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.ownership[contentID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, contenthub.ErrOwnershipNotFound
}

// Payments

func (s *Store) ListPayments(_ context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*payment.Payment, 0)
	for _, p := range s.payments {
		if opts.Match(p) {
			cp := *p
			result = append(result, &cp)
		}
	}
	return store.Page(result, opts.Limit, opts.Offset), nil
}

func (s *Store) CreatorRevenue(_ context.Context, contentID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creatorRevenue[contentID], nil
}

func (s *Store) UserPayments(_ context.Context, addr types.Address) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userPayments[addr], nil
}

// Apply checks every precondition of b under the write lock, then mutates.
func (s *Store) Apply(_ context.Context, b *store.Batch) error {
	if b.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return contenthub.ErrStoreClosed
	}

	// Preconditions
	plat := s.platform
	if b.Platform != nil {
		if plat != nil {
			return contenthub.ErrAlreadyInitialized
		}
		cp := *b.Platform
		plat = &cp
	} else if plat == nil {
		return contenthub.ErrPlatformNotInitialized
	}
	next := *plat

	if b.Content != nil {
		if _, exists := s.content[b.Content.ID]; exists && b.ContentMustBeNew {
			return contenthub.ErrDuplicateContent
		}
		total, err := types.AddInt64(next.TotalContent, 1)
		if err != nil {
			return fmt.Errorf("%w: total content", contenthub.ErrCounterOverflow)
		}
		next.TotalContent = total
	}

	if b.Ownership != nil && b.OwnershipMustBeNew {
		if _, exists := s.ownership[b.Ownership.ContentID]; exists {
			return contenthub.ErrAlreadyOwned
		}
	}

	var totals store.Totals
	if p := b.Payment; p != nil {
		_, seen := s.userPayments[p.Payer]
		t, err := store.ApplyPayment(&next, s.creatorRevenue[p.ContentID], s.userPayments[p.Payer], !seen, p)
		if err != nil {
			return fmt.Errorf("%w: %v", contenthub.ErrCounterOverflow, err)
		}
		totals = t
		next.TotalRevenue = t.TotalRevenue
		next.TotalUsers = t.TotalUsers
	}

	// Writes
	s.platform = &next

	if b.Content != nil {
		c := *b.Content
		s.content[c.ID] = &c
	}
	if p := b.Payment; p != nil {
		cp := *p
		s.payments = append(s.payments, &cp)
		s.creatorRevenue[p.ContentID] = totals.Creator
		s.userPayments[p.Payer] = totals.Payer
	}
	if b.Session != nil {
		sess := *b.Session
		s.sessions[sess.ContentID] = &sess
	}
	if b.Ownership != nil {
		r := *b.Ownership
		s.ownership[r.ContentID] = &r
	}
	return nil
}

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return contenthub.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
