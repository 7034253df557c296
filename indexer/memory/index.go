// Package memory provides an in-process indexer.Index.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/indexer"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/store"
	"github.com/xraph/contenthub/types"
)

var _ indexer.Index = (*Index)(nil)

type Index struct {
	mu        sync.RWMutex
	content   map[string]*content.Content
	payments  []*payment.Payment
	seen      map[string]bool
	ownership map[string]*ownership.Record
}

func New() *Index {
	return &Index{
		content:   make(map[string]*content.Content),
		seen:      make(map[string]bool),
		ownership: make(map[string]*ownership.Record),
	}
}

func (x *Index) Put(_ context.Context, events []indexer.Event) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	contents, payments, records := indexer.Split(events)
	for _, c := range contents {
		cp := *c
		x.content[c.ID] = &cp
	}
	for _, p := range payments {
		if x.seen[p.ID.String()] {
			continue
		}
		x.seen[p.ID.String()] = true
		cp := *p
		x.payments = append(x.payments, &cp)
	}
	for _, r := range records {
		cp := *r
		x.ownership[r.ContentID] = &cp
	}
	return nil
}

func (x *Index) ContentByOwner(_ context.Context, opts content.ListOpts) ([]*content.Content, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	result := make([]*content.Content, 0)
	for _, c := range x.content {
		if c.Owner == opts.Owner {
			cp := *c
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return store.Page(result, opts.Limit, opts.Offset), nil
}

func (x *Index) Payments(_ context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	result := make([]*payment.Payment, 0)
	for _, p := range x.payments {
		if opts.Match(p) {
			cp := *p
			result = append(result, &cp)
		}
	}
	return store.Page(result, opts.Limit, opts.Offset), nil
}

func (x *Index) OwnedBy(_ context.Context, owner types.Address) ([]*ownership.Record, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	result := make([]*ownership.Record, 0)
	for _, r := range x.ownership {
		if r.Owner == owner {
			cp := *r
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ContentID < result[j].ContentID })
	return result, nil
}

func (x *Index) Migrate(context.Context) error { return nil }

func (x *Index) Ping(context.Context) error { return nil }

func (x *Index) Close() error { return nil }
