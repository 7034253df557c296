// Package storetest holds the behavior every store.Store backend must share.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/xraph/contenthub"
	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/id"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/platform"
	"github.com/xraph/contenthub/session"
	"github.com/xraph/contenthub/store"
	"github.com/xraph/contenthub/types"
)

// Factory returns a fresh, migrated store. The store is closed by Run.
type Factory func(t *testing.T) store.Store

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Run executes the shared suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"PlatformLifecycle", testPlatformLifecycle},
		{"RequiresPlatform", testRequiresPlatform},
		{"ContentUniqueness", testContentUniqueness},
		{"ContentOverwrite", testContentOverwrite},
		{"ListContent", testListContent},
		{"PaymentCounters", testPaymentCounters},
		{"ListPayments", testListPayments},
		{"SessionReplace", testSessionReplace},
		{"OwnershipUniqueness", testOwnershipUniqueness},
		{"FailedBatchWritesNothing", testFailedBatchWritesNothing},
		{"CounterOverflow", testCounterOverflow},
		{"NotFound", testNotFound},
		{"RawContentID", testRawContentID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func testPlatform() *platform.Platform {
	return &platform.Platform{
		Config: platform.Config{
			Name:       "ContentHub",
			Version:    "1.0.0",
			FeePercent: 5,
			Owner:      "OPS",
			Asset:      "algo",
			Chain:      "algorand",
		},
		InitializedAt: epoch,
	}
}

func testContent(contentID string, owner types.Address) *content.Content {
	return &content.Content{
		Entity:         types.NewEntity(epoch),
		ID:             contentID,
		PayloadRef:     "ipfs://" + contentID,
		MetadataRef:    "ipfs://meta/" + contentID,
		ContentType:    content.TypeVideo,
		Owner:          owner,
		ViewPrice:      10,
		OwnershipPrice: 100,
		Verified:       true,
		Registry: content.RegistryEntry{
			ID:          id.NewRegistryID(),
			ContentID:   contentID,
			PayloadRef:  "ipfs://" + contentID,
			ContentType: content.TypeVideo,
			Platform:    "ContentHub",
			Chain:       "algorand",
			Verified:    true,
			Timestamp:   epoch,
		},
	}
}

func testPayment(kind payment.Kind, contentID string, payer types.Address, amount int64) *payment.Payment {
	fee, rest, _ := types.SplitAmount(amount, 5)
	return &payment.Payment{
		ID:            id.NewPaymentID(),
		Kind:          kind,
		ContentID:     contentID,
		Payer:         payer,
		Creator:       "ALICE",
		Amount:        amount,
		Fee:           fee,
		CreatorAmount: rest,
		FeePercent:    5,
		Currency:      "algo",
		TransferRef:   "xfer-ref",
		CreatedAt:     epoch,
	}
}

func mustApply(t *testing.T, s store.Store, b *store.Batch) {
	t.Helper()
	if err := s.Apply(context.Background(), b); err != nil {
		t.Fatalf("Apply: %v", err)
	}
}

func seed(t *testing.T, s store.Store, ids ...string) {
	t.Helper()
	mustApply(t, s, &store.Batch{Platform: testPlatform()})
	for _, cid := range ids {
		mustApply(t, s, &store.Batch{Content: testContent(cid, "ALICE"), ContentMustBeNew: true})
	}
}

func testPlatformLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()

	if _, err := s.GetPlatform(ctx); !errors.Is(err, contenthub.ErrPlatformNotInitialized) {
		t.Fatalf("GetPlatform before init = %v", err)
	}
	mustApply(t, s, &store.Batch{Platform: testPlatform()})

	got, err := s.GetPlatform(ctx)
	if err != nil {
		t.Fatalf("GetPlatform: %v", err)
	}
	if got.Name != "ContentHub" || got.FeePercent != 5 || got.Owner != "OPS" || got.Asset != "algo" {
		t.Errorf("platform = %+v", got)
	}
	if got.TotalContent != 0 || got.TotalUsers != 0 || got.TotalRevenue != 0 {
		t.Errorf("counters not zero: %+v", got)
	}
	if !got.InitializedAt.Equal(epoch) {
		t.Errorf("InitializedAt = %v", got.InitializedAt)
	}

	if err := s.Apply(ctx, &store.Batch{Platform: testPlatform()}); !errors.Is(err, contenthub.ErrAlreadyInitialized) {
		t.Errorf("second init = %v, want ErrAlreadyInitialized", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func testRequiresPlatform(t *testing.T, s store.Store) {
	err := s.Apply(context.Background(), &store.Batch{Content: testContent("c1", "ALICE")})
	if !errors.Is(err, contenthub.ErrPlatformNotInitialized) {
		t.Fatalf("Apply without platform = %v", err)
	}
}

func testContentUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s, "c1")

	got, err := s.GetContent(ctx, "c1")
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	want := testContent("c1", "ALICE")
	if got.Owner != want.Owner || got.PayloadRef != want.PayloadRef || got.MetadataRef != want.MetadataRef ||
		got.ContentType != want.ContentType || got.ViewPrice != 10 || got.OwnershipPrice != 100 || !got.Verified {
		t.Errorf("content = %+v", got)
	}
	if got.Registry.ContentID != "c1" || got.Registry.Chain != "algorand" || got.Registry.ID.IsNil() {
		t.Errorf("registry entry = %+v", got.Registry)
	}

	err = s.Apply(ctx, &store.Batch{Content: testContent("c1", "MALLORY"), ContentMustBeNew: true})
	if !errors.Is(err, contenthub.ErrDuplicateContent) {
		t.Fatalf("duplicate upload = %v", err)
	}
	plat, _ := s.GetPlatform(ctx)
	if plat.TotalContent != 1 {
		t.Errorf("TotalContent = %d, want 1", plat.TotalContent)
	}
	got, _ = s.GetContent(ctx, "c1")
	if got.Owner != "ALICE" {
		t.Errorf("rejected duplicate changed owner to %s", got.Owner)
	}
}

func testContentOverwrite(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s, "c1")
	mustApply(t, s, &store.Batch{Payment: testPayment(payment.KindView, "c1", "BOB", 100)})

	c := testContent("c1", "MALLORY")
	c.ViewPrice = 1
	mustApply(t, s, &store.Batch{Content: c})

	got, _ := s.GetContent(ctx, "c1")
	if got.Owner != "MALLORY" || got.ViewPrice != 1 {
		t.Errorf("overwrite not applied: %+v", got)
	}
	plat, _ := s.GetPlatform(ctx)
	if plat.TotalContent != 2 {
		t.Errorf("TotalContent = %d, want 2 after overwrite", plat.TotalContent)
	}
	if rev, _ := s.CreatorRevenue(ctx, "c1"); rev != 95 {
		t.Errorf("CreatorRevenue = %d, want 95 untouched", rev)
	}
}

func testListContent(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s, "c3", "c1", "c2")
	mustApply(t, s, &store.Batch{Content: testContent("d1", "BOB"), ContentMustBeNew: true})

	all, err := s.ListContent(ctx, content.ListOpts{})
	if err != nil {
		t.Fatalf("ListContent: %v", err)
	}
	if ids := contentIDs(all); !equal(ids, []string{"c1", "c2", "c3", "d1"}) {
		t.Errorf("all = %v", ids)
	}

	alice, _ := s.ListContent(ctx, content.ListOpts{Owner: "ALICE"})
	if ids := contentIDs(alice); !equal(ids, []string{"c1", "c2", "c3"}) {
		t.Errorf("ALICE = %v", ids)
	}

	page, _ := s.ListContent(ctx, content.ListOpts{Owner: "ALICE", Limit: 1, Offset: 1})
	if ids := contentIDs(page); !equal(ids, []string{"c2"}) {
		t.Errorf("page = %v", ids)
	}

	none, _ := s.ListContent(ctx, content.ListOpts{Owner: "NOBODY"})
	if len(none) != 0 {
		t.Errorf("NOBODY = %v", contentIDs(none))
	}
}

func testPaymentCounters(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s, "c1", "c2")

	mustApply(t, s, &store.Batch{Payment: testPayment(payment.KindView, "c1", "BOB", 10)})
	mustApply(t, s, &store.Batch{Payment: testPayment(payment.KindOwn, "c1", "BOB", 150)})
	mustApply(t, s, &store.Batch{Payment: testPayment(payment.KindView, "c2", "CAROL", 100)})

	plat, _ := s.GetPlatform(ctx)
	if plat.TotalRevenue != 0+7+5 {
		t.Errorf("TotalRevenue = %d, want 12", plat.TotalRevenue)
	}
	if plat.TotalUsers != 2 {
		t.Errorf("TotalUsers = %d, want 2", plat.TotalUsers)
	}
	if rev, _ := s.CreatorRevenue(ctx, "c1"); rev != 10+143 {
		t.Errorf("CreatorRevenue(c1) = %d, want 153", rev)
	}
	if paid, _ := s.UserPayments(ctx, "BOB"); paid != 160 {
		t.Errorf("UserPayments(BOB) = %d, want 160", paid)
	}
	if rev, _ := s.CreatorRevenue(ctx, "unknown"); rev != 0 {
		t.Errorf("CreatorRevenue(unknown) = %d", rev)
	}
	if paid, _ := s.UserPayments(ctx, "NOBODY"); paid != 0 {
		t.Errorf("UserPayments(NOBODY) = %d", paid)
	}
}

func testListPayments(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s, "c1", "c2")

	first := testPayment(payment.KindView, "c1", "BOB", 10)
	mustApply(t, s, &store.Batch{Payment: first})
	mustApply(t, s, &store.Batch{Payment: testPayment(payment.KindOwn, "c1", "CAROL", 150)})
	mustApply(t, s, &store.Batch{Payment: testPayment(payment.KindView, "c2", "BOB", 20)})

	tests := []struct {
		name string
		opts payment.ListOpts
		want []int64
	}{
		{"all", payment.ListOpts{}, []int64{10, 150, 20}},
		{"by content", payment.ListOpts{ContentID: "c1"}, []int64{10, 150}},
		{"by payer", payment.ListOpts{Payer: "BOB"}, []int64{10, 20}},
		{"by kind", payment.ListOpts{Kind: payment.KindOwn}, []int64{150}},
		{"paged", payment.ListOpts{Limit: 1, Offset: 1}, []int64{150}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListPayments(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListPayments: %v", err)
			}
			amounts := make([]int64, len(got))
			for i, p := range got {
				amounts[i] = p.Amount
			}
			if len(amounts) != len(tt.want) {
				t.Fatalf("amounts = %v, want %v", amounts, tt.want)
			}
			for i := range amounts {
				if amounts[i] != tt.want[i] {
					t.Fatalf("amounts = %v, want %v", amounts, tt.want)
				}
			}
		})
	}

	got, _ := s.ListPayments(ctx, payment.ListOpts{Limit: 1})
	p := got[0]
	if p.ID.String() != first.ID.String() || p.Payer != "BOB" || p.Creator != "ALICE" ||
		p.Fee != 0 || p.CreatorAmount != 10 || p.FeePercent != 5 || p.Currency != "algo" ||
		p.TransferRef != "xfer-ref" || !p.CreatedAt.Equal(epoch) {
		t.Errorf("receipt = %+v", p)
	}
}

func testSessionReplace(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s, "c1")

	first := session.New("c1", "BOB", "BOB", epoch, session.DefaultTTL)
	mustApply(t, s, &store.Batch{Session: first})
	got, err := s.GetSession(ctx, "c1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.User != "BOB" || !got.ExpiresAt.Equal(epoch.Add(24*time.Hour)) {
		t.Errorf("session = %+v", got)
	}

	mustApply(t, s, &store.Batch{Session: session.New("c1", "CAROL", "ALICE", epoch, session.DefaultTTL)})
	got, _ = s.GetSession(ctx, "c1")
	if got.User != "CAROL" || got.GrantedBy != "ALICE" {
		t.Errorf("replacement session = %+v", got)
	}
	if got.Allows("BOB", epoch) {
		t.Error("previous grantee still allowed")
	}
}

func testOwnershipUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s, "c1")

	md := ownership.Metadata{ContentID: "c1", Owner: "BOB", Platform: "ContentHub", Chain: "algorand", Timestamp: epoch.Unix(), PayloadRef: "ipfs://c1"}
	rec, err := ownership.Mint(md, id.NewPaymentID(), epoch)
	if err != nil {
		t.Fatal(err)
	}
	mustApply(t, s, &store.Batch{Ownership: rec, OwnershipMustBeNew: true})

	got, err := s.GetOwnership(ctx, "c1")
	if err != nil {
		t.Fatalf("GetOwnership: %v", err)
	}
	if got.Owner != "BOB" || !got.Created || got.MetadataHash != rec.MetadataHash || got.Metadata != md {
		t.Errorf("ownership = %+v", got)
	}
	if err := got.Verify(); err != nil {
		t.Errorf("stored record does not verify: %v", err)
	}

	md.Owner = "CAROL"
	again, _ := ownership.Mint(md, id.NewPaymentID(), epoch)
	if err := s.Apply(ctx, &store.Batch{Ownership: again, OwnershipMustBeNew: true}); !errors.Is(err, contenthub.ErrAlreadyOwned) {
		t.Fatalf("second mint = %v, want ErrAlreadyOwned", err)
	}

	mustApply(t, s, &store.Batch{Ownership: again})
	got, _ = s.GetOwnership(ctx, "c1")
	if got.Owner != "CAROL" {
		t.Errorf("permissive overwrite owner = %s", got.Owner)
	}
}

func testFailedBatchWritesNothing(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s, "c1")

	md := ownership.Metadata{ContentID: "c1", Owner: "BOB", Timestamp: epoch.Unix()}
	rec, _ := ownership.Mint(md, id.NewPaymentID(), epoch)
	mustApply(t, s, &store.Batch{Ownership: rec, OwnershipMustBeNew: true})

	before, _ := s.GetPlatform(ctx)

	md.Owner = "CAROL"
	second, _ := ownership.Mint(md, id.NewPaymentID(), epoch)
	err := s.Apply(ctx, &store.Batch{
		Payment:            testPayment(payment.KindOwn, "c1", "CAROL", 150),
		Ownership:          second,
		OwnershipMustBeNew: true,
	})
	if !errors.Is(err, contenthub.ErrAlreadyOwned) {
		t.Fatalf("Apply = %v, want ErrAlreadyOwned", err)
	}

	after, _ := s.GetPlatform(ctx)
	if after.TotalRevenue != before.TotalRevenue || after.TotalUsers != before.TotalUsers ||
		after.TotalContent != before.TotalContent {
		t.Errorf("platform counters changed: %+v -> %+v", before, after)
	}
	if rev, _ := s.CreatorRevenue(ctx, "c1"); rev != 0 {
		t.Errorf("CreatorRevenue = %d", rev)
	}
	if paid, _ := s.UserPayments(ctx, "CAROL"); paid != 0 {
		t.Errorf("UserPayments = %d", paid)
	}
	if ps, _ := s.ListPayments(ctx, payment.ListOpts{}); len(ps) != 0 {
		t.Errorf("receipts = %d", len(ps))
	}
	got, _ := s.GetOwnership(ctx, "c1")
	if got.Owner != "BOB" {
		t.Errorf("owner = %s", got.Owner)
	}
}

func testCounterOverflow(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s, "c1")

	big := testPayment(payment.KindView, "c1", "BOB", math.MaxInt64)
	big.Fee, big.CreatorAmount = 0, math.MaxInt64
	mustApply(t, s, &store.Batch{Payment: big})

	err := s.Apply(ctx, &store.Batch{Payment: testPayment(payment.KindView, "c1", "CAROL", 100)})
	if !errors.Is(err, contenthub.ErrCounterOverflow) {
		t.Fatalf("Apply = %v, want ErrCounterOverflow", err)
	}
	if paid, _ := s.UserPayments(ctx, "CAROL"); paid != 0 {
		t.Errorf("overflowing batch recorded CAROL's payment: %d", paid)
	}
	plat, _ := s.GetPlatform(ctx)
	if plat.TotalUsers != 1 {
		t.Errorf("TotalUsers = %d, want 1", plat.TotalUsers)
	}
}

func testNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s)

	if _, err := s.GetContent(ctx, "nope"); !errors.Is(err, contenthub.ErrContentNotFound) {
		t.Errorf("GetContent = %v", err)
	}
	if _, err := s.GetSession(ctx, "nope"); !errors.Is(err, contenthub.ErrSessionNotFound) {
		t.Errorf("GetSession = %v", err)
	}
	if _, err := s.GetOwnership(ctx, "nope"); !errors.Is(err, contenthub.ErrOwnershipNotFound) {
		t.Errorf("GetOwnership = %v", err)
	}
}

// Content ids are opaque bytes; every record keyed by one reads back under
// the same bytes.
func testRawContentID(t *testing.T, s store.Store) {
	ctx := context.Background()
	const raw = "clip\xff\xfe"
	seed(t, s, raw)

	md := ownership.Metadata{ContentID: raw, Owner: "BOB", Timestamp: epoch.Unix(), PayloadRef: "ipfs://clip"}
	rec, err := ownership.Mint(md, id.NewPaymentID(), epoch)
	if err != nil {
		t.Fatal(err)
	}
	mustApply(t, s, &store.Batch{
		Payment:            testPayment(payment.KindOwn, raw, "BOB", 100),
		Ownership:          rec,
		OwnershipMustBeNew: true,
		Session:            session.New(raw, "BOB", "BOB", epoch, session.DefaultTTL),
	})

	c, err := s.GetContent(ctx, raw)
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if c.ID != raw || c.Registry.ContentID != raw {
		t.Errorf("content id read back as %q / %q", c.ID, c.Registry.ContentID)
	}
	if got := contentIDs(mustList(t, s, content.ListOpts{})); !equal(got, []string{raw}) {
		t.Errorf("ListContent = %q", got)
	}
	if got := contentIDs(mustList(t, s, content.ListOpts{Owner: "ALICE"})); !equal(got, []string{raw}) {
		t.Errorf("ListContent(owner) = %q", got)
	}

	sess, err := s.GetSession(ctx, raw)
	if err != nil || sess.ContentID != raw || !sess.Allows("BOB", epoch) {
		t.Errorf("GetSession = %+v, %v", sess, err)
	}

	got, err := s.GetOwnership(ctx, raw)
	if err != nil {
		t.Fatalf("GetOwnership: %v", err)
	}
	if got.ContentID != raw || got.Metadata.ContentID != raw {
		t.Errorf("ownership content id read back as %q / %q", got.ContentID, got.Metadata.ContentID)
	}
	if err := got.Verify(); err != nil {
		t.Errorf("stored record does not verify: %v", err)
	}

	again, _ := ownership.Mint(md, id.NewPaymentID(), epoch)
	if err := s.Apply(ctx, &store.Batch{Ownership: again, OwnershipMustBeNew: true}); !errors.Is(err, contenthub.ErrAlreadyOwned) {
		t.Errorf("second mint = %v, want ErrAlreadyOwned", err)
	}
	if rev, _ := s.CreatorRevenue(ctx, raw); rev != 95 {
		t.Errorf("CreatorRevenue = %d, want 95", rev)
	}
}

func mustList(t *testing.T, s store.Store, opts content.ListOpts) []*content.Content {
	t.Helper()
	cs, err := s.ListContent(context.Background(), opts)
	if err != nil {
		t.Fatalf("ListContent: %v", err)
	}
	return cs
}

func contentIDs(cs []*content.Content) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
