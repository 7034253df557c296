package contenthub_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/contenthub"
	"github.com/xraph/contenthub/caller"
	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/custody"
	custodymem "github.com/xraph/contenthub/custody/memory"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/platform"
	"github.com/xraph/contenthub/session"
	"github.com/xraph/contenthub/store"
	"github.com/xraph/contenthub/store/memory"
	"github.com/xraph/contenthub/types"
)

const (
	operator types.Address = "0xoperator"
	creator  types.Address = "0xcreator"
	viewer   types.Address = "0xviewer"
	other    types.Address = "0xother"
)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	l     *contenthub.Ledger
	store store.Store
	book  *custodymem.Book
	clock *stubClock
}

func as(addr types.Address) context.Context {
	return caller.WithAddress(context.Background(), addr)
}

// newFixture builds a ledger on a 5% platform with one content item
// "intro" priced 10 to view and 100 to own. The viewer and other
// addresses are funded with 1000 each.
func newFixture(t *testing.T, s store.Store, opts ...contenthub.Option) *fixture {
	t.Helper()

	if s == nil {
		s = memory.New()
	}
	f := &fixture{
		store: s,
		book:  custodymem.New(),
		clock: &stubClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	for _, addr := range []types.Address{viewer, other} {
		if err := f.book.Deposit(addr, 1000); err != nil {
			t.Fatal(err)
		}
	}

	opts = append([]contenthub.Option{
		contenthub.WithCustodian(f.book),
		contenthub.WithClock(f.clock),
	}, opts...)
	f.l = contenthub.New(s, opts...)

	ctx := context.Background()
	if err := f.l.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := f.l.InitializePlatform(as(operator), platform.Config{FeePercent: 5}); err != nil {
		t.Fatalf("InitializePlatform: %v", err)
	}
	if _, err := f.l.UploadContent(as(creator), content.Upload{
		ContentID:      "intro",
		PayloadRef:     "ipfs://bafyintro",
		ContentType:    content.TypeVideo,
		ViewPrice:      10,
		OwnershipPrice: 100,
		MetadataRef:    "ipfs://bafymeta",
	}); err != nil {
		t.Fatalf("UploadContent: %v", err)
	}
	return f
}

func (f *fixture) stats(t *testing.T) platform.Stats {
	t.Helper()
	s, err := f.l.GetPlatformStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return *s
}

func TestPayToViewScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	purchase, err := f.l.PayToView(as(viewer), "intro", 10)
	if err != nil {
		t.Fatalf("PayToView: %v", err)
	}

	p := purchase.Payment
	if p.Fee != 0 || p.CreatorAmount != 10 {
		t.Errorf("split = fee %d creator %d, want 0/10", p.Fee, p.CreatorAmount)
	}
	if p.Kind != payment.KindView || p.Payer != viewer || p.Creator != creator {
		t.Errorf("receipt = %+v", p)
	}
	if p.TransferRef == "" {
		t.Error("receipt has no transfer reference")
	}

	if got := f.book.Balance(creator); got != 10 {
		t.Errorf("creator balance = %d, want 10", got)
	}
	if got := f.book.Balance(viewer); got != 990 {
		t.Errorf("viewer balance = %d, want 990", got)
	}

	rev, _ := f.l.GetCreatorRevenue(ctx, "intro")
	if rev.Amount != 10 || rev.Currency != "algo" {
		t.Errorf("creator revenue = %v", rev)
	}
	paid, _ := f.l.GetUserPayments(ctx, viewer)
	if paid.Amount != 10 {
		t.Errorf("user payments = %v", paid)
	}

	st := f.stats(t)
	if st.TotalRevenue.Amount != 0 || st.TotalUsers != 1 || st.TotalContent != 1 {
		t.Errorf("stats = %+v", st)
	}

	if want := f.clock.Now().Add(24 * time.Hour); !purchase.Session.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", purchase.Session.ExpiresAt, want)
	}

	f.clock.Advance(86400 * time.Second)
	if ok, _ := f.l.VerifyViewAccess(ctx, "intro", viewer); !ok {
		t.Error("access should hold at the expiry instant")
	}
	f.clock.Advance(time.Second)
	if ok, _ := f.l.VerifyViewAccess(ctx, "intro", viewer); ok {
		t.Error("access should end after expiry")
	}
}

func TestPayToOwnScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	purchase, err := f.l.PayToOwn(as(viewer), "intro", 150)
	if err != nil {
		t.Fatalf("PayToOwn: %v", err)
	}
	if p := purchase.Payment; p.Fee != 7 || p.CreatorAmount != 143 {
		t.Errorf("split = fee %d creator %d, want 7/143", p.Fee, p.CreatorAmount)
	}
	if purchase.Session != nil {
		t.Error("ownership purchase granted a session")
	}

	rec, err := f.l.GetOwnership(ctx, "intro")
	if err != nil {
		t.Fatalf("GetOwnership: %v", err)
	}
	if rec.Owner != viewer || !rec.Created || rec.PaymentID != purchase.Payment.ID {
		t.Errorf("record = %+v", rec)
	}
	if rec.Metadata.PayloadRef != "ipfs://bafyintro" || rec.Metadata.Chain != platform.DefaultChain {
		t.Errorf("metadata = %+v", rec.Metadata)
	}
	if err := rec.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}

	if st := f.stats(t); st.TotalRevenue.Amount != 7 {
		t.Errorf("TotalRevenue = %d, want 7", st.TotalRevenue.Amount)
	}
	if got := f.book.Float(); got != 7 {
		t.Errorf("custodial float = %d, want 7", got)
	}
}

func TestFailedPaymentsChangeNothing(t *testing.T) {
	tests := []struct {
		name    string
		own     bool
		content string
		amount  int64
		opts    []custodymem.Option
		wantErr error
	}{
		{"insufficient view", false, "intro", 9, nil, contenthub.ErrInsufficientPayment},
		{"insufficient own", true, "intro", 99, nil, contenthub.ErrInsufficientPayment},
		{"unknown content", false, "missing", 10, nil, contenthub.ErrUnverifiedContent},
		{"negative amount", false, "intro", -1, nil, contenthub.ErrInvalidInput},
		{"payer short of funds", false, "intro", 2000, nil, contenthub.ErrInsufficientFunds},
		{"transfer refused", false, "intro", 10, []custodymem.Option{custodymem.FailWith(func(*custody.Transfer) error {
			return errors.New("network down")
		})}, contenthub.ErrTransferFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			if tt.opts != nil {
				book := custodymem.New(tt.opts...)
				_ = book.Deposit(viewer, 1000)
				f.book = book
				f.l = contenthub.New(f.store, contenthub.WithCustodian(book), contenthub.WithClock(f.clock))
			}
			before := f.stats(t)

			pay := f.l.PayToView
			if tt.own {
				pay = f.l.PayToOwn
			}
			if _, err := pay(as(viewer), tt.content, tt.amount); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}

			assertUntouched(t, f, before)
		})
	}
}

type failingStore struct {
	store.Store
	fail bool
}

// Apply refuses a done context the way database/sql's BeginTx does.
func (s *failingStore) Apply(ctx context.Context, b *store.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.fail {
		return contenthub.ErrTransactionFailed
	}
	return s.Store.Apply(ctx, b)
}

func TestCommitFailureReversesTransfer(t *testing.T) {
	fs := &failingStore{Store: memory.New()}
	f := newFixture(t, fs)
	before := f.stats(t)

	fs.fail = true
	_, err := f.l.PayToView(as(viewer), "intro", 10)
	if !errors.Is(err, contenthub.ErrTransactionFailed) {
		t.Fatalf("err = %v, want ErrTransactionFailed", err)
	}
	if !contenthub.IsRetryable(err) {
		t.Error("commit failure should be retryable")
	}

	fs.fail = false
	assertUntouched(t, f, before)
}

// cancellingCustodian cancels the caller's context as soon as value has
// moved, and will not reverse on a done context.
type cancellingCustodian struct {
	*custodymem.Book
	cancel context.CancelFunc
	refuse error
}

func (c *cancellingCustodian) Transfer(ctx context.Context, t *custody.Transfer) (*custody.Receipt, error) {
	r, err := c.Book.Transfer(ctx, t)
	c.cancel()
	return r, err
}

func (c *cancellingCustodian) Reverse(ctx context.Context, r *custody.Receipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.refuse != nil {
		return c.refuse
	}
	return c.Book.Reverse(ctx, r)
}

func newCancellingFixture(t *testing.T) (*fixture, *failingStore, *cancellingCustodian, context.Context) {
	t.Helper()
	fs := &failingStore{Store: memory.New()}
	f := newFixture(t, fs)
	ctx, cancel := context.WithCancel(as(viewer))
	t.Cleanup(cancel)
	cust := &cancellingCustodian{Book: f.book, cancel: cancel}
	f.l = contenthub.New(fs,
		contenthub.WithCustodian(cust),
		contenthub.WithClock(f.clock),
		contenthub.WithSettleTimeout(time.Second),
	)
	return f, fs, cust, ctx
}

func TestCancelledCallerStillSettles(t *testing.T) {
	f, _, _, ctx := newCancellingFixture(t)

	purchase, err := f.l.PayToView(ctx, "intro", 10)
	if err != nil {
		t.Fatalf("PayToView: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("caller context was not cancelled during the transfer")
	}

	bg := context.Background()
	if rev, _ := f.l.GetCreatorRevenue(bg, "intro"); rev.Amount != 10 {
		t.Errorf("creator revenue = %v, want 10", rev)
	}
	if paid, _ := f.l.GetUserPayments(bg, viewer); paid.Amount != 10 {
		t.Errorf("user payments = %v, want 10", paid)
	}
	if ok, _ := f.l.VerifyViewAccess(bg, "intro", viewer); !ok {
		t.Error("session not granted")
	}
	receipts, _ := f.l.ListPayments(bg, payment.ListOpts{})
	if len(receipts) != 1 || receipts[0].TransferRef != purchase.Payment.TransferRef {
		t.Errorf("receipts = %+v", receipts)
	}
	if got := f.book.Balance(viewer); got != 990 {
		t.Errorf("viewer balance = %d, want 990", got)
	}
}

func TestCancelledCallerStillReverses(t *testing.T) {
	f, fs, _, ctx := newCancellingFixture(t)
	before := f.stats(t)

	fs.fail = true
	if _, err := f.l.PayToView(ctx, "intro", 10); !errors.Is(err, contenthub.ErrTransactionFailed) {
		t.Fatalf("err = %v, want ErrTransactionFailed", err)
	}

	fs.fail = false
	assertUntouched(t, f, before)
}

func TestReversalFailure(t *testing.T) {
	f, fs, cust, ctx := newCancellingFixture(t)
	cust.refuse = errors.New("custodian offline")

	fs.fail = true
	_, err := f.l.PayToView(ctx, "intro", 10)

	var stranded *contenthub.ReversalError
	if !errors.As(err, &stranded) {
		t.Fatalf("err = %v, want a ReversalError", err)
	}
	if stranded.TransferRef == "" || stranded.ContentID != "intro" {
		t.Errorf("reversal error = %+v", stranded)
	}
	if !errors.Is(err, contenthub.ErrReversalFailed) || !errors.Is(err, contenthub.ErrTransactionFailed) {
		t.Errorf("err = %v should match ErrReversalFailed and the commit error", err)
	}
	if contenthub.IsRetryable(err) || contenthub.IsPaymentError(err) {
		t.Error("a stranded transfer is neither retryable nor a plain rejection")
	}
	if got := f.book.Balance(viewer); got != 990 {
		t.Errorf("viewer balance = %d, want the stranded 990", got)
	}
}

func TestInsufficientFundsIsNotRetryable(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.l.PayToView(as(viewer), "intro", 5000)
	if !errors.Is(err, contenthub.ErrInsufficientFunds) || !errors.Is(err, custody.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if errors.Is(err, contenthub.ErrTransferFailed) {
		t.Error("insufficient funds classified as a failed transfer")
	}
	if contenthub.IsRetryable(err) {
		t.Error("insufficient funds reported retryable")
	}
	if !contenthub.IsPaymentError(err) {
		t.Error("insufficient funds should be a payment error")
	}
}

func assertUntouched(t *testing.T, f *fixture, before platform.Stats) {
	t.Helper()
	ctx := context.Background()

	if after := f.stats(t); after.TotalRevenue.Amount != before.TotalRevenue.Amount ||
		after.TotalUsers != before.TotalUsers || after.TotalContent != before.TotalContent {
		t.Errorf("stats moved: %+v -> %+v", before, after)
	}
	if rev, _ := f.l.GetCreatorRevenue(ctx, "intro"); !rev.IsZero() {
		t.Errorf("creator revenue = %v", rev)
	}
	if paid, _ := f.l.GetUserPayments(ctx, viewer); !paid.IsZero() {
		t.Errorf("user payments = %v", paid)
	}
	if ok, _ := f.l.VerifyViewAccess(ctx, "intro", viewer); ok {
		t.Error("session was granted")
	}
	if _, err := f.l.GetOwnership(ctx, "intro"); !errors.Is(err, contenthub.ErrOwnershipNotFound) {
		t.Errorf("ownership err = %v", err)
	}
	if receipts, _ := f.l.ListPayments(ctx, payment.ListOpts{}); len(receipts) != 0 {
		t.Errorf("%d receipts stored", len(receipts))
	}
	if f.book.Balance(viewer) != 1000 || f.book.Balance(creator) != 0 || f.book.Float() != 0 {
		t.Errorf("custody moved: viewer %d creator %d float %d",
			f.book.Balance(viewer), f.book.Balance(creator), f.book.Float())
	}
}

func TestOwnershipUniqueness(t *testing.T) {
	t.Run("strict", func(t *testing.T) {
		f := newFixture(t, nil)
		if _, err := f.l.PayToOwn(as(viewer), "intro", 100); err != nil {
			t.Fatal(err)
		}
		_, err := f.l.PayToOwn(as(other), "intro", 100)
		if !errors.Is(err, contenthub.ErrAlreadyOwned) {
			t.Fatalf("err = %v, want ErrAlreadyOwned", err)
		}
		if f.book.Balance(other) != 1000 {
			t.Errorf("second buyer was charged: %d", f.book.Balance(other))
		}
		rec, _ := f.l.GetOwnership(context.Background(), "intro")
		if rec.Owner != viewer {
			t.Errorf("owner = %s, want %s", rec.Owner, viewer)
		}
	})

	t.Run("permissive", func(t *testing.T) {
		f := newFixture(t, nil, contenthub.WithPermissiveOwnership())
		for _, buyer := range []types.Address{viewer, other} {
			if _, err := f.l.PayToOwn(as(buyer), "intro", 100); err != nil {
				t.Fatal(err)
			}
		}
		rec, _ := f.l.GetOwnership(context.Background(), "intro")
		if rec.Owner != other {
			t.Errorf("owner = %s, want %s", rec.Owner, other)
		}
		if st := f.stats(t); st.TotalUsers != 2 || st.TotalRevenue.Amount != 10 {
			t.Errorf("stats = %+v", st)
		}
	})
}

func TestDuplicateUpload(t *testing.T) {
	up := content.Upload{ContentID: "intro", PayloadRef: "ipfs://other", ContentType: content.TypeImage, ViewPrice: 1}

	t.Run("strict", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.l.UploadContent(as(other), up)
		if !errors.Is(err, contenthub.ErrDuplicateContent) || !contenthub.IsConflict(err) {
			t.Fatalf("err = %v, want ErrDuplicateContent", err)
		}
		if st := f.stats(t); st.TotalContent != 1 {
			t.Errorf("TotalContent = %d", st.TotalContent)
		}
	})

	t.Run("permissive", func(t *testing.T) {
		f := newFixture(t, nil, contenthub.WithPermissiveUploads())
		if _, err := f.l.PayToView(as(viewer), "intro", 10); err != nil {
			t.Fatal(err)
		}
		if _, err := f.l.UploadContent(as(other), up); err != nil {
			t.Fatal(err)
		}
		info, _ := f.l.GetContentInfo(context.Background(), "intro")
		if info.Owner != other || info.PayloadRef != "ipfs://other" || info.ViewPrice != 1 {
			t.Errorf("info = %+v", info)
		}
		if st := f.stats(t); st.TotalContent != 2 {
			t.Errorf("TotalContent = %d, want 2", st.TotalContent)
		}
		if rev, _ := f.l.GetCreatorRevenue(context.Background(), "intro"); rev.Amount != 10 {
			t.Errorf("revenue reset to %v", rev)
		}
	})
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.l.UploadContent(as(creator), content.Upload{ViewPrice: -1})
	var multi contenthub.MultiError
	if !errors.As(err, &multi) || len(multi.Errors) != 4 {
		t.Fatalf("err = %v, want 4 validation errors", err)
	}
	if !errors.Is(err, contenthub.ErrInvalidInput) {
		t.Error("validation errors should match ErrInvalidInput")
	}

	_, err = f.l.UploadContent(context.Background(), content.Upload{ContentID: "x", PayloadRef: "p", ContentType: "url"})
	if !errors.Is(err, contenthub.ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestRejectsInvalidUTF8(t *testing.T) {
	f := newFixture(t, nil)
	const bad = "clip\xff\xfe"

	tests := []struct {
		name string
		call func() error
	}{
		{"content id", func() error {
			_, err := f.l.UploadContent(as(creator), content.Upload{ContentID: bad, PayloadRef: "p", ContentType: content.TypeURL})
			return err
		}},
		{"grantee", func() error {
			_, err := f.l.GrantViewAccess(as(creator), "intro", types.Address(bad))
			return err
		}},
		{"minted owner", func() error {
			_, err := f.l.MintOwnership(as(operator), "intro", types.Address(bad))
			return err
		}},
		{"payer", func() error {
			_, err := f.l.PayToView(as(types.Address(bad)), "intro", 10)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, contenthub.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
	if st := f.stats(t); st.TotalContent != 1 || st.TotalUsers != 0 {
		t.Errorf("stats moved: %+v", st)
	}
}

func TestGrantViewAccess(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.l.GrantViewAccess(as(creator), "intro", viewer); err != nil {
		t.Fatal(err)
	}
	if ok, _ := f.l.VerifyViewAccess(ctx, "intro", viewer); !ok {
		t.Fatal("first grantee should have access")
	}

	// The platform owner may grant too, and the new grant revokes the first.
	sess, err := f.l.GrantViewAccess(as(operator), "intro", other)
	if err != nil {
		t.Fatal(err)
	}
	if sess.GrantedBy != operator {
		t.Errorf("GrantedBy = %s", sess.GrantedBy)
	}
	if ok, _ := f.l.VerifyViewAccess(ctx, "intro", viewer); ok {
		t.Error("second grant should revoke the first")
	}

	res, err := f.l.CheckViewAccess(ctx, "intro", viewer)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.Reason != session.ReasonGrantee {
		t.Errorf("result = %+v", res)
	}

	_, err = f.l.GrantViewAccess(as(viewer), "intro", viewer)
	if !errors.Is(err, contenthub.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
	_, err = f.l.GrantViewAccess(as(creator), "missing", viewer)
	if !errors.Is(err, contenthub.ErrContentNotFound) {
		t.Errorf("err = %v, want ErrContentNotFound", err)
	}
}

func TestVerifyWithoutSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	ok, err := f.l.VerifyViewAccess(ctx, "intro", viewer)
	if err != nil || ok {
		t.Errorf("VerifyViewAccess = %v, %v; want false, nil", ok, err)
	}
	res, err := f.l.CheckViewAccess(ctx, "never-uploaded", viewer)
	if err != nil || res.Allowed || res.Reason != session.ReasonNoGrant {
		t.Errorf("CheckViewAccess = %+v, %v", res, err)
	}
}

func TestInitializePlatform(t *testing.T) {
	l := contenthub.New(memory.New())

	if _, err := l.InitializePlatform(context.Background(), platform.Config{}); !errors.Is(err, contenthub.ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
	if _, err := l.InitializePlatform(as(operator), platform.Config{FeePercent: 101}); !errors.Is(err, contenthub.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if _, err := l.GetPlatformStats(context.Background()); !errors.Is(err, contenthub.ErrPlatformNotInitialized) {
		t.Errorf("err = %v, want ErrPlatformNotInitialized", err)
	}

	p, err := l.InitializePlatform(as(operator), platform.Config{FeePercent: 20})
	if err != nil {
		t.Fatal(err)
	}
	if p.Owner != operator || p.Name != platform.DefaultName || p.Asset != platform.DefaultAsset {
		t.Errorf("platform = %+v", p)
	}
	if _, err := l.InitializePlatform(as(operator), platform.Config{FeePercent: 5}); !errors.Is(err, contenthub.ErrAlreadyInitialized) {
		t.Errorf("err = %v, want ErrAlreadyInitialized", err)
	}

	st, _ := l.GetPlatformStats(context.Background())
	if st.FeePercent != 20 {
		t.Errorf("FeePercent = %d, want 20", st.FeePercent)
	}
}

func TestMintOwnership(t *testing.T) {
	f := newFixture(t, nil)

	if _, err := f.l.MintOwnership(as(creator), "intro", viewer); !errors.Is(err, contenthub.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
	rec, err := f.l.MintOwnership(as(operator), "intro", viewer)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.PaymentID.IsNil() || rec.Owner != viewer {
		t.Errorf("record = %+v", rec)
	}
	if _, err := f.l.MintOwnership(as(operator), "intro", other); !errors.Is(err, contenthub.ErrAlreadyOwned) {
		t.Errorf("err = %v, want ErrAlreadyOwned", err)
	}
	if st := f.stats(t); st.TotalRevenue.Amount != 0 || st.TotalUsers != 0 {
		t.Errorf("mint moved counters: %+v", st)
	}
}

func TestRevenueConservation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	amounts := []int64{10, 11, 19, 20, 39, 40, 99, 173}
	var total, fees int64
	for _, a := range amounts {
		if _, err := f.l.PayToView(as(other), "intro", a); err != nil {
			t.Fatal(err)
		}
		total += a
		fees += a * 5 / 100
	}

	receipts, err := f.l.ListPayments(ctx, payment.ListOpts{ContentID: "intro"})
	if err != nil {
		t.Fatal(err)
	}
	if len(receipts) != len(amounts) {
		t.Fatalf("%d receipts, want %d", len(receipts), len(amounts))
	}
	for i, p := range receipts {
		if p.Amount != amounts[i] || p.Fee+p.CreatorAmount != p.Amount {
			t.Errorf("receipt %d = %+v", i, p)
		}
	}

	rev, _ := f.l.GetCreatorRevenue(ctx, "intro")
	st := f.stats(t)
	if st.TotalRevenue.Amount != fees {
		t.Errorf("TotalRevenue = %d, want %d", st.TotalRevenue.Amount, fees)
	}
	if rev.Amount+st.TotalRevenue.Amount != total {
		t.Errorf("revenue %d + fees %d != paid %d", rev.Amount, st.TotalRevenue.Amount, total)
	}
	if st.TotalUsers != 1 {
		t.Errorf("TotalUsers = %d, want 1", st.TotalUsers)
	}
	if f.book.Float() != fees {
		t.Errorf("custodial float = %d, want %d", f.book.Float(), fees)
	}
}

func TestReadSurface(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.l.GetContentInfo(ctx, "missing"); !errors.Is(err, contenthub.ErrContentNotFound) {
		t.Errorf("err = %v, want ErrContentNotFound", err)
	}
	info, err := f.l.GetContentInfo(ctx, "intro")
	if err != nil {
		t.Fatal(err)
	}
	want := content.Info{PayloadRef: "ipfs://bafyintro", MetadataRef: "ipfs://bafymeta", Owner: creator, ViewPrice: 10, ContentType: content.TypeVideo}
	if *info != want {
		t.Errorf("info = %+v, want %+v", *info, want)
	}

	for _, cid := range []string{"zeta", "alpha"} {
		if _, err := f.l.UploadContent(as(creator), content.Upload{ContentID: cid, PayloadRef: "p", ContentType: content.TypeURL}); err != nil {
			t.Fatal(err)
		}
	}
	ids, err := f.l.GetUserContent(ctx, creator)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 || ids[0] != "alpha" || ids[1] != "intro" || ids[2] != "zeta" {
		t.Errorf("ids = %v", ids)
	}
	if ids, _ := f.l.GetUserContent(ctx, viewer); len(ids) != 0 {
		t.Errorf("viewer owns %v", ids)
	}

	a, _ := f.l.GetPlatformStats(ctx)
	b, _ := f.l.GetPlatformStats(ctx)
	if *a != *b {
		t.Errorf("stats not idempotent: %+v vs %+v", a, b)
	}

	if _, err := f.l.ListPayments(ctx, payment.ListOpts{Kind: "rent"}); !errors.Is(err, contenthub.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestZeroPriceContent(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.l.UploadContent(as(creator), content.Upload{ContentID: "free", PayloadRef: "p", ContentType: content.TypeImage}); err != nil {
		t.Fatal(err)
	}
	purchase, err := f.l.PayToView(as(viewer), "free", 0)
	if err != nil {
		t.Fatal(err)
	}
	if purchase.Payment.TransferRef != "" {
		t.Error("zero payment should not reach the custodian")
	}
	if st := f.stats(t); st.TotalUsers != 1 {
		t.Errorf("TotalUsers = %d, want 1", st.TotalUsers)
	}
}

type events struct {
	mu   sync.Mutex
	seen []string
}

func (e *events) Name() string { return "events" }

func (e *events) add(s string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, s)
	return nil
}

func (e *events) OnPaymentProcessed(_ context.Context, p *payment.Payment) error {
	return e.add("paid:" + string(p.Kind))
}

func (e *events) OnPaymentFailed(_ context.Context, _ string, kind payment.Kind, _ types.Address, _ int64, _ error) error {
	return e.add("failed:" + string(kind))
}

func (e *events) OnAccessGranted(_ context.Context, _ *session.Session) error {
	return e.add("access")
}

func (e *events) OnOwnershipGranted(_ context.Context, _ *ownership.Record) error {
	return e.add("granted")
}

func (e *events) OnOwnershipMinted(_ context.Context, _ *ownership.Record) error {
	return e.add("minted")
}

func TestPluginEvents(t *testing.T) {
	ev := &events{}
	f := newFixture(t, nil, contenthub.WithPlugin(ev))

	_, _ = f.l.PayToView(as(viewer), "intro", 1)
	_, _ = f.l.PayToView(as(viewer), "intro", 10)
	_, _ = f.l.PayToOwn(as(viewer), "intro", 100)

	want := []string{"failed:view", "paid:view", "access", "paid:own", "granted", "minted"}
	if len(ev.seen) != len(want) {
		t.Fatalf("events = %v, want %v", ev.seen, want)
	}
	for i := range want {
		if ev.seen[i] != want[i] {
			t.Errorf("events = %v, want %v", ev.seen, want)
			break
		}
	}
}
