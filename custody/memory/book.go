// Package memory provides an in-process Custodian that keeps balances in a
// book. It backs tests and single-node deployments where settlement happens
// outside the process.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/contenthub/custody"
	"github.com/xraph/contenthub/id"
	"github.com/xraph/contenthub/types"
)

var _ custody.Custodian = (*Book)(nil)

// Book is a balance book guarded by a mutex.
type Book struct {
	mu        sync.Mutex
	balances  map[types.Address]int64
	float     int64
	settled   map[string]custody.Transfer
	unmetered bool
	failWith  func(*custody.Transfer) error
	now       func() time.Time
}

// Option configures a Book.
type Option func(*Book)

// Unmetered stops the book from checking payer balances. Payers are
// assumed to have settled externally; balances may go negative.
func Unmetered() Option {
	return func(b *Book) { b.unmetered = true }
}

// FailWith makes every transfer for which fn returns an error fail with it.
func FailWith(fn func(*custody.Transfer) error) Option {
	return func(b *Book) { b.failWith = fn }
}

// New creates an empty book.
func New(opts ...Option) *Book {
	b := &Book{
		balances: make(map[types.Address]int64),
		settled:  make(map[string]custody.Transfer),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Deposit credits addr.
func (b *Book) Deposit(addr types.Address, amount int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next, err := types.AddInt64(b.balances[addr], amount)
	if err != nil {
		return fmt.Errorf("custody: deposit: %w", err)
	}
	b.balances[addr] = next
	return nil
}

// Balance returns addr's balance.
func (b *Book) Balance(addr types.Address) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[addr]
}

// Float returns the fees retained by the platform.
func (b *Book) Float() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.float
}

// Transfer debits From by Amount, credits To with Payout and keeps the fee.
func (b *Book) Transfer(_ context.Context, t *custody.Transfer) (*custody.Receipt, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.ID.IsNil() {
		t.ID = id.NewTransferID()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failWith != nil {
		if err := b.failWith(t); err != nil {
			return nil, err
		}
	}
	if !b.unmetered && b.balances[t.From] < t.Amount {
		return nil, fmt.Errorf("%w: %s has %d, needs %d",
			custody.ErrInsufficientFunds, t.From, b.balances[t.From], t.Amount)
	}

	toBase := b.balances[t.To]
	if t.To == t.From {
		toBase -= t.Amount
	}
	toNext, err := types.AddInt64(toBase, t.Payout)
	if err != nil {
		return nil, fmt.Errorf("custody: credit %s: %w", t.To, err)
	}
	floatNext, err := types.AddInt64(b.float, t.Fee())
	if err != nil {
		return nil, fmt.Errorf("custody: credit platform: %w", err)
	}

	b.balances[t.From] -= t.Amount
	b.balances[t.To] = toNext
	b.float = floatNext
	b.settled[t.ID.String()] = *t

	return &custody.Receipt{
		Transfer:  *t,
		Ref:       t.ID.String(),
		SettledAt: b.now().UTC(),
	}, nil
}

// Reverse undoes a settled transfer exactly once.
func (b *Book) Reverse(_ context.Context, r *custody.Receipt) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.settled[r.Ref]
	if !ok {
		return fmt.Errorf("%w: %s", custody.ErrUnknownTransfer, r.Ref)
	}
	b.balances[t.From] += t.Amount
	b.balances[t.To] -= t.Payout
	b.float -= t.Fee()
	delete(b.settled, r.Ref)
	return nil
}
