package indexer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/contenthub"
	"github.com/xraph/contenthub/caller"
	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/id"
	"github.com/xraph/contenthub/indexer"
	"github.com/xraph/contenthub/indexer/memory"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/platform"
	storemem "github.com/xraph/contenthub/store/memory"
)

func TestPluginIndexesLedgerEvents(t *testing.T) {
	idx := memory.New()
	p := indexer.NewPlugin(idx, indexer.WithBatch(2, time.Hour))
	l := contenthub.New(storemem.New(), contenthub.WithPlugin(p))

	ctx := context.Background()
	if err := l.Start(ctx); err != nil {
		t.Fatal(err)
	}

	op := caller.WithAddress(ctx, "0xop")
	alice := caller.WithAddress(ctx, "0xalice")
	bob := caller.WithAddress(ctx, "0xbob")

	if _, err := l.InitializePlatform(op, platform.Config{FeePercent: 10}); err != nil {
		t.Fatal(err)
	}
	for _, cid := range []string{"b", "a"} {
		if _, err := l.UploadContent(alice, content.Upload{ContentID: cid, PayloadRef: "ipfs://" + cid, ContentType: content.TypeImage, ViewPrice: 5, OwnershipPrice: 50}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := l.PayToView(bob, "a", 5); err != nil {
		t.Fatal(err)
	}
	if _, err := l.PayToOwn(bob, "b", 50); err != nil {
		t.Fatal(err)
	}

	// Stop flushes the partial batch.
	if err := l.Stop(); err != nil {
		t.Fatal(err)
	}

	owned, err := idx.ContentByOwner(ctx, content.ListOpts{Owner: "0xalice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(owned) != 2 || owned[0].ID != "a" || owned[1].ID != "b" {
		t.Errorf("ContentByOwner = %v", owned)
	}

	paid, err := idx.Payments(ctx, payment.ListOpts{Payer: "0xbob"})
	if err != nil {
		t.Fatal(err)
	}
	if len(paid) != 2 || paid[0].Kind != payment.KindView || paid[1].Kind != payment.KindOwn {
		t.Errorf("Payments = %v", paid)
	}

	records, err := idx.OwnedBy(ctx, "0xbob")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ContentID != "b" {
		t.Errorf("OwnedBy = %v", records)
	}
}

func TestPutIsIdempotent(t *testing.T) {
	idx := memory.New()
	ctx := context.Background()

	pay := &payment.Payment{ID: id.NewPaymentID(), ContentID: "a", Payer: "0xbob", Amount: 5}
	events := []indexer.Event{{Payment: pay}, {Payment: pay}}
	for range 2 {
		if err := idx.Put(ctx, events); err != nil {
			t.Fatal(err)
		}
	}

	got, _ := idx.Payments(ctx, payment.ListOpts{ContentID: "a"})
	if len(got) != 1 {
		t.Errorf("%d receipts after replay, want 1", len(got))
	}
}

func TestBufferFull(t *testing.T) {
	p := indexer.NewPlugin(memory.New(), indexer.WithBufferSize(1))
	ctx := context.Background()

	if err := p.OnContentUploaded(ctx, &content.Content{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	err := p.OnContentUploaded(ctx, &content.Content{ID: "b"})
	if !errors.Is(err, indexer.ErrBufferFull) {
		t.Errorf("err = %v, want ErrBufferFull", err)
	}
}

func TestSplit(t *testing.T) {
	events := []indexer.Event{
		{Content: &content.Content{ID: "a"}},
		{Payment: &payment.Payment{ContentID: "a"}},
		{Content: &content.Content{ID: "b"}},
		{},
	}
	c, p, r := indexer.Split(events)
	if len(c) != 2 || len(p) != 1 || len(r) != 0 {
		t.Errorf("split = %d/%d/%d", len(c), len(p), len(r))
	}
}
