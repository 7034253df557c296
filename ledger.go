package contenthub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/xraph/contenthub/caller"
	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/custody"
	custodymem "github.com/xraph/contenthub/custody/memory"
	"github.com/xraph/contenthub/id"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/platform"
	"github.com/xraph/contenthub/plugin"
	"github.com/xraph/contenthub/session"
	"github.com/xraph/contenthub/store"
	"github.com/xraph/contenthub/types"
)

// Ledger is the content monetization engine.
type Ledger struct {
	store     store.Store
	custodian custody.Custodian
	plugins   *plugin.Registry
	logger    *slog.Logger
	clock     Clock

	// Serializes every mutating entry point so that the checks made before a
	// transfer still hold when its batch commits.
	mu sync.Mutex

	// Configuration
	sessionTTL          time.Duration
	settleTimeout       time.Duration
	permissiveUploads   bool
	permissiveOwnership bool
}

// DefaultSettleTimeout bounds the commit, and the reversal, of a payment
// whose value has already moved.
const DefaultSettleTimeout = 30 * time.Second

// New creates a new Ledger instance. Without WithCustodian, value moves
// through an unmetered in-memory book.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:         s,
		custodian:     custodymem.New(custodymem.Unmetered()),
		plugins:       plugin.NewRegistry(),
		logger:        slog.Default(),
		clock:         RealClock{},
		sessionTTL:    session.DefaultTTL,
		settleTimeout: DefaultSettleTimeout,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithHookTimeout bounds each plugin hook call.
func WithHookTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.plugins.WithTimeout(d)
	}
}

// WithCustodian sets where purchase value is transferred.
func WithCustodian(c custody.Custodian) Option {
	return func(l *Ledger) {
		l.custodian = c
	}
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithSessionTTL sets how long a view grant lasts.
func WithSessionTTL(ttl time.Duration) Option {
	return func(l *Ledger) {
		if ttl > 0 {
			l.sessionTTL = ttl
		}
	}
}

// WithSettleTimeout sets how long the commit and any reversal of a
// transferred payment may take. They do not end with the caller's context.
func WithSettleTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.settleTimeout = d
		}
	}
}

// WithPermissiveUploads lets an upload replace an existing content id
// instead of failing with ErrDuplicateContent.
func WithPermissiveUploads() Option {
	return func(l *Ledger) {
		l.permissiveUploads = true
	}
}

// WithPermissiveOwnership lets a purchase or mint replace an existing
// ownership record instead of failing with ErrAlreadyOwned.
func WithPermissiveOwnership() Option {
	return func(l *Ledger) {
		l.permissiveOwnership = true
	}
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("contenthub started",
		"plugins", l.plugins.Count(),
		"session_ttl", l.sessionTTL,
		"permissive_uploads", l.permissiveUploads,
		"permissive_ownership", l.permissiveOwnership,
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (l *Ledger) Stop() error {
	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// Health reports whether the store is reachable.
func (l *Ledger) Health(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// ──────────────────────────────────────────────────
// Platform
// ──────────────────────────────────────────────────

// InitializePlatform stores the platform configuration with zeroed
// counters. The caller becomes the platform owner unless cfg names one.
// A platform can be initialized once.
func (l *Ledger) InitializePlatform(ctx context.Context, cfg platform.Config) (*platform.Platform, error) {
	who, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.FeePercent < 0 || cfg.FeePercent > 100 {
		return nil, ValidationError{Field: "fee_percent", Message: "must be between 0 and 100"}
	}
	if cfg.Owner.IsZero() {
		cfg.Owner = who
	}
	cfg = cfg.WithDefaults()
	if !cfg.FeeInAdvisedRange() {
		l.logger.Warn("platform fee outside advised range",
			"fee_percent", cfg.FeePercent,
		)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p := &platform.Platform{
		Config:        cfg,
		InitializedAt: l.clock.Now().UTC(),
	}
	if err := l.store.Apply(ctx, &store.Batch{Platform: p}); err != nil {
		return nil, err
	}

	l.logger.Info("platform initialized",
		"name", p.Name,
		"owner", p.Owner,
		"fee_percent", p.FeePercent,
		"asset", p.Asset,
	)
	l.plugins.EmitPlatformInitialized(ctx, p)
	return p, nil
}

// GetPlatform returns the platform record.
func (l *Ledger) GetPlatform(ctx context.Context) (*platform.Platform, error) {
	return l.store.GetPlatform(ctx)
}

// GetPlatformStats returns the platform counters and fee.
func (l *Ledger) GetPlatformStats(ctx context.Context) (*platform.Stats, error) {
	p, err := l.store.GetPlatform(ctx)
	if err != nil {
		return nil, err
	}
	return p.Stats(), nil
}

// ──────────────────────────────────────────────────
// Registry
// ──────────────────────────────────────────────────

// UploadContent registers content owned by the caller. The record is
// verified on upload.
func (l *Ledger) UploadContent(ctx context.Context, up content.Upload) (*content.Content, error) {
	owner, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateUpload(up); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	plat, err := l.store.GetPlatform(ctx)
	if err != nil {
		return nil, err
	}

	now := l.clock.Now().UTC()
	c := &content.Content{
		Entity:         types.NewEntity(now),
		ID:             up.ContentID,
		PayloadRef:     up.PayloadRef,
		MetadataRef:    up.MetadataRef,
		ContentType:    up.ContentType,
		Owner:          owner,
		ViewPrice:      up.ViewPrice,
		OwnershipPrice: up.OwnershipPrice,
		Verified:       true,
		Registry: content.RegistryEntry{
			ID:          id.NewRegistryID(),
			ContentID:   up.ContentID,
			PayloadRef:  up.PayloadRef,
			ContentType: up.ContentType,
			Platform:    plat.Name,
			Chain:       plat.Chain,
			Verified:    true,
			Timestamp:   now,
		},
	}

	b := &store.Batch{Content: c, ContentMustBeNew: !l.permissiveUploads}
	if err := l.store.Apply(ctx, b); err != nil {
		return nil, err
	}

	l.logger.Info("content uploaded",
		"content_id", c.ID,
		"owner", c.Owner,
		"content_type", c.ContentType,
		"view_price", c.ViewPrice,
		"ownership_price", c.OwnershipPrice,
	)
	l.plugins.EmitContentUploaded(ctx, c)
	return c, nil
}

func validateUpload(up content.Upload) error {
	var errs MultiError
	switch {
	case up.ContentID == "":
		errs.Add(ValidationError{Field: "content_id", Message: "required"})
	case !utf8.ValidString(up.ContentID):
		errs.Add(ValidationError{Field: "content_id", Message: "must be valid UTF-8"})
	}
	if up.PayloadRef == "" {
		errs.Add(ValidationError{Field: "payload_ref", Message: "required"})
	}
	if up.ContentType == "" {
		errs.Add(ValidationError{Field: "content_type", Message: "required"})
	}
	if up.ViewPrice < 0 {
		errs.Add(ValidationError{Field: "view_price", Message: "must not be negative"})
	}
	if up.OwnershipPrice < 0 {
		errs.Add(ValidationError{Field: "ownership_price", Message: "must not be negative"})
	}
	if !errs.HasErrors() {
		return nil
	}
	return errs
}

// GetContentInfo returns the client read view of a content record.
func (l *Ledger) GetContentInfo(ctx context.Context, contentID string) (*content.Info, error) {
	c, err := l.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	return c.Info(), nil
}

// GetContent returns the full content record.
func (l *Ledger) GetContent(ctx context.Context, contentID string) (*content.Content, error) {
	return l.store.GetContent(ctx, contentID)
}

// GetUserContent returns the ids of every content record owned by addr,
// in ascending order.
func (l *Ledger) GetUserContent(ctx context.Context, addr types.Address) ([]string, error) {
	items, err := l.store.ListContent(ctx, content.ListOpts{Owner: addr})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, c := range items {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// ──────────────────────────────────────────────────
// Payments
// ──────────────────────────────────────────────────

// Purchase is the outcome of a settled payment: the receipt and the view
// session or ownership record it bought.
type Purchase struct {
	Payment   *payment.Payment  `json:"payment"`
	Session   *session.Session  `json:"session,omitempty"`
	Ownership *ownership.Record `json:"ownership,omitempty"`
}

// PayToView pays for a view of contentID and grants the caller a session.
func (l *Ledger) PayToView(ctx context.Context, contentID string, amount int64) (*Purchase, error) {
	return l.pay(ctx, contentID, amount, payment.KindView)
}

// PayToOwn pays for ownership of contentID and mints a record for the caller.
func (l *Ledger) PayToOwn(ctx context.Context, contentID string, amount int64) (*Purchase, error) {
	return l.pay(ctx, contentID, amount, payment.KindOwn)
}

func (l *Ledger) pay(ctx context.Context, contentID string, amount int64, kind payment.Kind) (*Purchase, error) {
	payer, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}

	purchase, err := l.settle(ctx, payer, contentID, amount, kind)
	// Hooks report what settled even if the caller has gone away.
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		l.logger.Warn("payment failed",
			"content_id", contentID,
			"kind", kind,
			"payer", payer,
			"amount", amount,
			"error", err,
		)
		l.plugins.EmitPaymentFailed(ctx, contentID, kind, payer, amount, err)
		return nil, err
	}

	p := purchase.Payment
	l.logger.Info("payment processed",
		"payment_id", p.ID.String(),
		"content_id", p.ContentID,
		"kind", p.Kind,
		"payer", p.Payer,
		"amount", p.Amount,
		"fee", p.Fee,
		"creator_amount", p.CreatorAmount,
	)
	l.plugins.EmitPaymentProcessed(ctx, p)
	if purchase.Session != nil {
		l.plugins.EmitAccessGranted(ctx, purchase.Session)
	}
	if purchase.Ownership != nil {
		l.plugins.EmitOwnershipGranted(ctx, purchase.Ownership)
		l.plugins.EmitOwnershipMinted(ctx, purchase.Ownership)
	}
	return purchase, nil
}

// settle validates the purchase, moves the value and commits the books.
// If the commit fails the transfer is reversed.
func (l *Ledger) settle(ctx context.Context, payer types.Address, contentID string, amount int64, kind payment.Kind) (*Purchase, error) {
	if amount < 0 {
		return nil, ValidationError{Field: "amount", Message: "must not be negative"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	plat, err := l.store.GetPlatform(ctx)
	if err != nil {
		return nil, err
	}

	c, err := l.store.GetContent(ctx, contentID)
	switch {
	case errors.Is(err, ErrContentNotFound):
		return nil, fmt.Errorf("%w: %s is not registered", ErrUnverifiedContent, contentID)
	case err != nil:
		return nil, err
	case !c.Verified:
		return nil, fmt.Errorf("%w: %s", ErrUnverifiedContent, contentID)
	}

	own := kind == payment.KindOwn
	if price := c.Price(own); amount < price {
		return nil, fmt.Errorf("%w: paid %d, price is %d", ErrInsufficientPayment, amount, price)
	}
	if own && !l.permissiveOwnership {
		if _, err := l.store.GetOwnership(ctx, contentID); err == nil {
			return nil, ErrAlreadyOwned
		} else if !errors.Is(err, ErrOwnershipNotFound) {
			return nil, err
		}
	}

	fee, creatorAmount, err := types.SplitAmount(amount, plat.FeePercent)
	if err != nil {
		return nil, fmt.Errorf("contenthub: split payment: %w", err)
	}

	now := l.clock.Now().UTC()
	p := &payment.Payment{
		ID:            id.NewPaymentID(),
		Kind:          kind,
		ContentID:     contentID,
		Payer:         payer,
		Creator:       c.Owner,
		Amount:        amount,
		Fee:           fee,
		CreatorAmount: creatorAmount,
		FeePercent:    plat.FeePercent,
		Currency:      plat.Asset,
		CreatedAt:     now,
	}
	purchase := &Purchase{Payment: p}
	b := &store.Batch{Payment: p}

	if own {
		rec, err := ownership.Mint(ownershipMetadata(plat, contentID, c.PayloadRef, payer, now), p.ID, now)
		if err != nil {
			return nil, err
		}
		purchase.Ownership = rec
		b.Ownership = rec
		b.OwnershipMustBeNew = !l.permissiveOwnership
	} else {
		sess := session.New(contentID, payer, payer, now, l.sessionTTL)
		sess.PaymentID = p.ID
		purchase.Session = sess
		b.Session = sess
	}

	var receipt *custody.Receipt
	if amount > 0 {
		receipt, err = l.custodian.Transfer(ctx, &custody.Transfer{
			From:      payer,
			To:        c.Owner,
			Amount:    amount,
			Payout:    creatorAmount,
			Asset:     plat.Asset,
			ContentID: contentID,
		})
		if err != nil {
			return nil, transferError(err)
		}
		p.TransferRef = receipt.Ref
	}

	// Past the transfer, cancelling the caller must not strand the value.
	commitCtx, cancel := l.detach(ctx)
	defer cancel()
	err = l.store.Apply(commitCtx, b)
	if err == nil {
		return purchase, nil
	}
	if receipt == nil {
		return nil, err
	}

	reverseCtx, cancelReverse := l.detach(ctx)
	defer cancelReverse()
	if rerr := l.custodian.Reverse(reverseCtx, receipt); rerr != nil {
		l.logger.Error("transfer reversal failed",
			"transfer_ref", receipt.Ref,
			"content_id", contentID,
			"payer", payer,
			"amount", amount,
			"commit_error", err,
			"error", rerr,
		)
		return nil, &ReversalError{
			TransferRef: receipt.Ref,
			ContentID:   contentID,
			Commit:      err,
			Reverse:     rerr,
		}
	}
	return nil, err
}

// detach returns a context that keeps ctx's values but not its
// cancellation, bounded by the settle timeout.
func (l *Ledger) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), l.settleTimeout)
}

func transferError(err error) error {
	if errors.Is(err, custody.ErrInsufficientFunds) {
		return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
	}
	return fmt.Errorf("%w: %w", ErrTransferFailed, err)
}

// GetCreatorRevenue returns the total forwarded to the creator of contentID.
// Unknown content has zero revenue.
func (l *Ledger) GetCreatorRevenue(ctx context.Context, contentID string) (types.Money, error) {
	asset, err := l.asset(ctx)
	if err != nil {
		return types.Money{}, err
	}
	n, err := l.store.CreatorRevenue(ctx, contentID)
	if err != nil {
		return types.Money{}, err
	}
	return types.New(n, asset), nil
}

// GetUserPayments returns the total addr has paid. Unknown addresses have
// paid zero.
func (l *Ledger) GetUserPayments(ctx context.Context, addr types.Address) (types.Money, error) {
	asset, err := l.asset(ctx)
	if err != nil {
		return types.Money{}, err
	}
	n, err := l.store.UserPayments(ctx, addr)
	if err != nil {
		return types.Money{}, err
	}
	return types.New(n, asset), nil
}

// ListPayments returns receipts in commit order.
func (l *Ledger) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	if opts.Kind != "" && !opts.Kind.Valid() {
		return nil, ValidationError{Field: "kind", Message: fmt.Sprintf("unknown payment kind %q", opts.Kind)}
	}
	return l.store.ListPayments(ctx, opts)
}

func (l *Ledger) asset(ctx context.Context) (string, error) {
	p, err := l.store.GetPlatform(ctx)
	switch {
	case errors.Is(err, ErrPlatformNotInitialized):
		return platform.DefaultAsset, nil
	case err != nil:
		return "", err
	}
	return p.Asset, nil
}

// ──────────────────────────────────────────────────
// Access sessions
// ──────────────────────────────────────────────────

// GrantViewAccess gives user the single view session on contentID,
// replacing any previous grantee. Only the content owner or the platform
// owner may grant.
func (l *Ledger) GrantViewAccess(ctx context.Context, contentID string, user types.Address) (*session.Session, error) {
	granter, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateAddress("user", user); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	plat, err := l.store.GetPlatform(ctx)
	if err != nil {
		return nil, err
	}
	c, err := l.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if granter != c.Owner && granter != plat.Owner {
		return nil, fmt.Errorf("%w: %s may not grant access to %s", ErrUnauthorized, granter, contentID)
	}

	sess := session.New(contentID, user, granter, l.clock.Now(), l.sessionTTL)
	if err := l.store.Apply(ctx, &store.Batch{Session: sess}); err != nil {
		return nil, err
	}

	l.logger.Info("view access granted",
		"content_id", contentID,
		"user", user,
		"granted_by", granter,
		"expires_at", sess.ExpiresAt,
	)
	l.plugins.EmitAccessGranted(ctx, sess)
	return sess, nil
}

// VerifyViewAccess reports whether user holds the live session on
// contentID. A missing session is a plain false.
func (l *Ledger) VerifyViewAccess(ctx context.Context, contentID string, user types.Address) (bool, error) {
	sess, err := l.lookupSession(ctx, contentID)
	if err != nil {
		return false, err
	}
	return sess.Allows(user, l.clock.Now()), nil
}

// CheckViewAccess is VerifyViewAccess with the reason and remaining time.
func (l *Ledger) CheckViewAccess(ctx context.Context, contentID string, user types.Address) (*session.Result, error) {
	sess, err := l.lookupSession(ctx, contentID)
	if err != nil {
		return nil, err
	}
	return session.Check(sess, contentID, user, l.clock.Now()), nil
}

func (l *Ledger) lookupSession(ctx context.Context, contentID string) (*session.Session, error) {
	sess, err := l.store.GetSession(ctx, contentID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	return sess, err
}

// ──────────────────────────────────────────────────
// Ownership
// ──────────────────────────────────────────────────

// MintOwnership records owner as the owner of contentID without a payment.
// Only the platform owner may mint directly.
func (l *Ledger) MintOwnership(ctx context.Context, contentID string, owner types.Address) (*ownership.Record, error) {
	who, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateAddress("owner", owner); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	plat, err := l.store.GetPlatform(ctx)
	if err != nil {
		return nil, err
	}
	if who != plat.Owner {
		return nil, fmt.Errorf("%w: only the platform owner may mint", ErrUnauthorized)
	}
	c, err := l.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}

	now := l.clock.Now().UTC()
	rec, err := ownership.Mint(ownershipMetadata(plat, contentID, c.PayloadRef, owner, now), id.Nil, now)
	if err != nil {
		return nil, err
	}
	b := &store.Batch{Ownership: rec, OwnershipMustBeNew: !l.permissiveOwnership}
	if err := l.store.Apply(ctx, b); err != nil {
		return nil, err
	}

	l.logger.Info("ownership minted",
		"content_id", contentID,
		"owner", owner,
		"metadata_hash", rec.MetadataHash,
	)
	l.plugins.EmitOwnershipMinted(ctx, rec)
	return rec, nil
}

// GetOwnership returns the ownership record of contentID.
func (l *Ledger) GetOwnership(ctx context.Context, contentID string) (*ownership.Record, error) {
	return l.store.GetOwnership(ctx, contentID)
}

func ownershipMetadata(plat *platform.Platform, contentID, payloadRef string, owner types.Address, now time.Time) ownership.Metadata {
	return ownership.Metadata{
		ContentID:  contentID,
		Owner:      owner,
		Platform:   plat.Name,
		Chain:      plat.Chain,
		Timestamp:  now.Unix(),
		PayloadRef: payloadRef,
	}
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func validateAddress(field string, addr types.Address) error {
	switch {
	case addr.IsZero():
		return ValidationError{Field: field, Message: "required"}
	case !utf8.ValidString(string(addr)):
		return ValidationError{Field: field, Message: "must be valid UTF-8"}
	}
	return nil
}

func requireCaller(ctx context.Context) (types.Address, error) {
	addr, ok := caller.FromContext(ctx)
	if !ok {
		return "", ErrUnauthenticated
	}
	if !utf8.ValidString(string(addr)) {
		return "", ValidationError{Field: "caller", Message: "must be valid UTF-8"}
	}
	return addr, nil
}
