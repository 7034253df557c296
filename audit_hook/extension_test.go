package audithook_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/xraph/contenthub"
	audithook "github.com/xraph/contenthub/audit_hook"
	"github.com/xraph/contenthub/caller"
	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/platform"
	storemem "github.com/xraph/contenthub/store/memory"
)

type trail struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (t *trail) Record(_ context.Context, e *audithook.AuditEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
	return nil
}

func (t *trail) actions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.events))
	for i, e := range t.events {
		out[i] = e.Action
	}
	return out
}

func run(t *testing.T, ext *audithook.Extension) {
	t.Helper()
	l := contenthub.New(storemem.New(), contenthub.WithPlugin(ext))
	ctx := context.Background()
	op := caller.WithAddress(ctx, "0xop")
	alice := caller.WithAddress(ctx, "0xalice")
	bob := caller.WithAddress(ctx, "0xbob")

	if _, err := l.InitializePlatform(op, platform.Config{FeePercent: 5}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.UploadContent(alice, content.Upload{ContentID: "a", PayloadRef: "ipfs://a", ContentType: content.TypeVideo, ViewPrice: 10, OwnershipPrice: 100}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.PayToView(bob, "a", 1); err == nil {
		t.Fatal("underpayment accepted")
	}
	if _, err := l.PayToView(bob, "a", 10); err != nil {
		t.Fatal(err)
	}
	if _, err := l.PayToOwn(bob, "a", 100); err != nil {
		t.Fatal(err)
	}
}

func TestExtensionRecordsLedgerEvents(t *testing.T) {
	rec := &trail{}
	run(t, audithook.New(rec))

	want := []string{
		audithook.ActionPlatformInitialized,
		audithook.ActionContentUploaded,
		audithook.ActionPaymentFailed,
		audithook.ActionPaymentProcessed,
		audithook.ActionAccessGranted,
		audithook.ActionPaymentProcessed,
		audithook.ActionOwnershipGranted,
		audithook.ActionOwnershipMinted,
	}
	got := rec.actions()
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("actions[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	failed := rec.events[2]
	if failed.Outcome != audithook.OutcomeFailure || failed.Reason == "" || failed.Actor != "0xbob" {
		t.Errorf("failed payment event = %+v", failed)
	}
	paid := rec.events[3]
	if paid.Metadata["fee"] != int64(0) || paid.Metadata["creator_amount"] != int64(10) {
		t.Errorf("payment metadata = %v", paid.Metadata)
	}
}

func TestActionFilters(t *testing.T) {
	tests := []struct {
		name string
		opt  audithook.Option
		want int
	}{
		{"enabled only", audithook.WithEnabledActions(audithook.ActionPaymentProcessed), 2},
		{"disabled", audithook.WithDisabledActions(audithook.ActionPaymentProcessed, audithook.ActionPaymentFailed), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &trail{}
			run(t, audithook.New(rec, tt.opt))
			if n := len(rec.actions()); n != tt.want {
				t.Errorf("recorded %d events, want %d: %v", n, tt.want, rec.actions())
			}
		})
	}
}

func TestRecorderErrorIsSwallowed(t *testing.T) {
	failing := audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("trail offline")
	})
	ext := audithook.New(failing, audithook.WithLogger(slog.New(slog.DiscardHandler)))
	// The ledger would log a hook failure; the extension reports none.
	if err := ext.OnContentUploaded(context.Background(), &content.Content{ID: "a"}); err != nil {
		t.Errorf("err = %v", err)
	}
}

func TestStrandedTransferIsCritical(t *testing.T) {
	rec := &trail{}
	ext := audithook.New(rec)
	ctx := context.Background()

	stranded := &contenthub.ReversalError{
		TransferRef: "xfer_01h2xcejqtf2nbrexx3vqjhp41",
		ContentID:   "a",
		Commit:      contenthub.ErrTransactionFailed,
		Reverse:     errors.New("custodian offline"),
	}
	_ = ext.OnPaymentFailed(ctx, "a", payment.KindView, "0xbob", 10, stranded)
	_ = ext.OnPaymentFailed(ctx, "a", payment.KindView, "0xbob", 9, contenthub.ErrInsufficientPayment)

	if len(rec.events) != 2 {
		t.Fatalf("recorded %d events", len(rec.events))
	}
	if e := rec.events[0]; e.Severity != audithook.SeverityCritical || e.Metadata["transfer_ref"] != stranded.TransferRef {
		t.Errorf("stranded transfer event = %+v", e)
	}
	if e := rec.events[1]; e.Severity != audithook.SeverityWarning || e.Metadata["transfer_ref"] != nil {
		t.Errorf("rejected payment event = %+v", e)
	}
}
