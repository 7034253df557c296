package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/contenthub/custody"
	"github.com/xraph/contenthub/custody/memory"
)

func TestTransferAndReverse(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	if err := b.Deposit("BOB", 200); err != nil {
		t.Fatal(err)
	}

	r, err := b.Transfer(ctx, &custody.Transfer{From: "BOB", To: "ALICE", Amount: 150, Payout: 143, Asset: "algo"})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := b.Balance("BOB"); got != 50 {
		t.Errorf("BOB = %d, want 50", got)
	}
	if got := b.Balance("ALICE"); got != 143 {
		t.Errorf("ALICE = %d, want 143", got)
	}
	if got := b.Float(); got != 7 {
		t.Errorf("float = %d, want 7", got)
	}

	if err := b.Reverse(ctx, r); err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if b.Balance("BOB") != 200 || b.Balance("ALICE") != 0 || b.Float() != 0 {
		t.Errorf("reverse left BOB=%d ALICE=%d float=%d", b.Balance("BOB"), b.Balance("ALICE"), b.Float())
	}
	if err := b.Reverse(ctx, r); !errors.Is(err, custody.ErrUnknownTransfer) {
		t.Errorf("second Reverse = %v, want ErrUnknownTransfer", err)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	b := memory.New()
	_ = b.Deposit("BOB", 5)

	_, err := b.Transfer(context.Background(), &custody.Transfer{From: "BOB", To: "ALICE", Amount: 10, Payout: 10})
	if !errors.Is(err, custody.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	if b.Balance("BOB") != 5 || b.Balance("ALICE") != 0 {
		t.Error("failed transfer moved funds")
	}
}

func TestUnmetered(t *testing.T) {
	b := memory.New(memory.Unmetered())
	if _, err := b.Transfer(context.Background(), &custody.Transfer{From: "BOB", To: "ALICE", Amount: 10, Payout: 9}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if b.Balance("BOB") != -10 || b.Balance("ALICE") != 9 || b.Float() != 1 {
		t.Errorf("BOB=%d ALICE=%d float=%d", b.Balance("BOB"), b.Balance("ALICE"), b.Float())
	}
}

func TestFailWith(t *testing.T) {
	boom := errors.New("network down")
	b := memory.New(memory.Unmetered(), memory.FailWith(func(*custody.Transfer) error { return boom }))

	_, err := b.Transfer(context.Background(), &custody.Transfer{From: "BOB", To: "ALICE", Amount: 10, Payout: 9})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want injected error", err)
	}
	if b.Balance("ALICE") != 0 {
		t.Error("failed transfer credited payee")
	}
}

func TestTransferValidation(t *testing.T) {
	b := memory.New(memory.Unmetered())
	tests := []struct {
		name string
		tr   custody.Transfer
	}{
		{"negative amount", custody.Transfer{From: "A", To: "B", Amount: -1}},
		{"payout above amount", custody.Transfer{From: "A", To: "B", Amount: 1, Payout: 2}},
		{"missing payee", custody.Transfer{From: "A", Amount: 1, Payout: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.Transfer(context.Background(), &tt.tr); !errors.Is(err, custody.ErrInvalidTransfer) {
				t.Errorf("got %v, want ErrInvalidTransfer", err)
			}
		})
	}
}
