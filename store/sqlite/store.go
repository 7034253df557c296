// Package sqlite implements store.Store on an embedded SQLite database.
// Every Batch runs inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/xraph/contenthub"
	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/platform"
	"github.com/xraph/contenthub/session"
	"github.com/xraph/contenthub/store"
	"github.com/xraph/contenthub/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using database/sql and go-sqlite3.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path. Use ":memory:" for a
// throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("contenthub/sqlite: open: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("contenthub/sqlite: %s: %w", pragma, err)
		}
	}
	return &Store{db: db, path: path}, nil
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate brings the schema to the latest version.
func (s *Store) Migrate(_ context.Context) error {
	if err := migrateUp(s.db); err != nil {
		return fmt.Errorf("%w: contenthub/sqlite: %v", contenthub.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// row is satisfied by *sql.Row and *sql.Rows.
type row interface {
	Scan(dest ...any) error
}

// ==================== Platform ====================

const platformColumns = `name, version, fee_percent, owner, asset, chain, initialized_at,
	total_content, total_users, total_revenue`

func (s *Store) GetPlatform(ctx context.Context) (*platform.Platform, error) {
	return getPlatform(ctx, s.db)
}

func getPlatform(ctx context.Context, q queryer) (*platform.Platform, error) {
	var (
		p         platform.Platform
		owner     string
		initedAtN int64
	)
	err := q.QueryRowContext(ctx, `SELECT `+platformColumns+` FROM platform WHERE singleton = 1`).Scan(
		&p.Name, &p.Version, &p.FeePercent, &owner, &p.Asset, &p.Chain, &initedAtN,
		&p.TotalContent, &p.TotalUsers, &p.TotalRevenue,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contenthub.ErrPlatformNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("contenthub/sqlite: get platform: %w", err)
	}
	p.Owner = types.Address(owner)
	p.InitializedAt = fromNanos(initedAtN)
	return &p, nil
}

// ==================== Content ====================

const contentColumns = `id, payload_ref, metadata_ref, content_type, owner, view_price, ownership_price,
	verified, registry_id, registry_platform, registry_chain, registry_timestamp, created_at, updated_at`

func scanContent(r row) (*content.Content, error) {
	var (
		c                  content.Content
		contentType, owner string
		registryTS         int64
		createdAt          int64
		updatedAt          int64
	)
	if err := r.Scan(
		&c.ID, &c.PayloadRef, &c.MetadataRef, &contentType, &owner, &c.ViewPrice, &c.OwnershipPrice,
		&c.Verified, &c.Registry.ID, &c.Registry.Platform, &c.Registry.Chain, &registryTS, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	c.ContentType = content.Type(contentType)
	c.Owner = types.Address(owner)
	c.CreatedAt = fromNanos(createdAt)
	c.UpdatedAt = fromNanos(updatedAt)
	c.Registry.ContentID = c.ID
	c.Registry.PayloadRef = c.PayloadRef
	c.Registry.ContentType = c.ContentType
	c.Registry.Verified = c.Verified
	c.Registry.Timestamp = fromNanos(registryTS)
	return &c, nil
}

func (s *Store) GetContent(ctx context.Context, contentID string) (*content.Content, error) {
	c, err := scanContent(s.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM content WHERE id = ?`, contentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contenthub.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("contenthub/sqlite: get content: %w", err)
	}
	return c, nil
}

func (s *Store) ListContent(ctx context.Context, opts content.ListOpts) ([]*content.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM content`
	var args []any
	if opts.Owner != "" {
		query += ` WHERE owner = ?`
		args = append(args, string(opts.Owner))
	}
	query += ` ORDER BY id ASC` + limitClause(opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("contenthub/sqlite: list content: %w", err)
	}
	defer rows.Close()

	result := make([]*content.Content, 0)
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("contenthub/sqlite: scan content: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// ==================== Sessions ====================

func (s *Store) GetSession(ctx context.Context, contentID string) (*session.Session, error) {
	var (
		sess              session.Session
		viewer, grantedBy string
		grantedAt         int64
		expiresAt         int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT content_id, id, viewer, granted_by, payment_id, granted_at, expires_at
		 FROM sessions WHERE content_id = ?`, contentID,
	).Scan(&sess.ContentID, &sess.ID, &viewer, &grantedBy, &sess.PaymentID, &grantedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contenthub.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("contenthub/sqlite: get session: %w", err)
	}
	sess.User = types.Address(viewer)
	sess.GrantedBy = types.Address(grantedBy)
	sess.GrantedAt = fromNanos(grantedAt)
	sess.ExpiresAt = fromNanos(expiresAt)
	return &sess, nil
}

// ==================== Ownership ====================

func (s *Store) GetOwnership(ctx context.Context, contentID string) (*ownership.Record, error) {
	var (
		r        ownership.Record
		owner    string
		metadata string
		mintedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT content_id, id, owner, metadata_hash, metadata, created, payment_id, minted_at
		 FROM ownership WHERE content_id = ?`, contentID,
	).Scan(&r.ContentID, &r.ID, &owner, &r.MetadataHash, &metadata, &r.Created, &r.PaymentID, &mintedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contenthub.ErrOwnershipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("contenthub/sqlite: get ownership: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &r.Metadata); err != nil {
		return nil, fmt.Errorf("contenthub/sqlite: decode ownership metadata: %w", err)
	}
	// JSON only carries valid UTF-8; the column holds the id's exact bytes.
	r.Metadata.ContentID = r.ContentID
	r.Owner = types.Address(owner)
	r.MintedAt = fromNanos(mintedAt)
	return &r, nil
}

// ==================== Payments ====================

const paymentColumns = `id, kind, content_id, payer, creator, amount, fee, creator_amount,
	fee_percent, currency, transfer_ref, created_at`

func scanPayment(r row) (*payment.Payment, error) {
	var (
		p                    payment.Payment
		kind, payer, creator string
		createdAt            int64
	)
	if err := r.Scan(
		&p.ID, &kind, &p.ContentID, &payer, &creator, &p.Amount, &p.Fee, &p.CreatorAmount,
		&p.FeePercent, &p.Currency, &p.TransferRef, &createdAt,
	); err != nil {
		return nil, err
	}
	p.Kind = payment.Kind(kind)
	p.Payer = types.Address(payer)
	p.Creator = types.Address(creator)
	p.CreatedAt = fromNanos(createdAt)
	return &p, nil
}

func (s *Store) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	var (
		conds []string
		args  []any
	)
	if opts.ContentID != "" {
		conds = append(conds, "content_id = ?")
		args = append(args, opts.ContentID)
	}
	if opts.Payer != "" {
		conds = append(conds, "payer = ?")
		args = append(args, string(opts.Payer))
	}
	if opts.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(opts.Kind))
	}

	query := `SELECT ` + paymentColumns + ` FROM payments`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY seq ASC` + limitClause(opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("contenthub/sqlite: list payments: %w", err)
	}
	defer rows.Close()

	result := make([]*payment.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("contenthub/sqlite: scan payment: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) CreatorRevenue(ctx context.Context, contentID string) (int64, error) {
	n, _, err := counter(ctx, s.db, `SELECT amount FROM creator_revenue WHERE content_id = ?`, contentID)
	return n, err
}

func (s *Store) UserPayments(ctx context.Context, addr types.Address) (int64, error) {
	n, _, err := counter(ctx, s.db, `SELECT amount FROM user_payments WHERE address = ?`, string(addr))
	return n, err
}

// counter reads one accumulator; absent rows read as zero.
func counter(ctx context.Context, q queryer, query string, key string) (int64, bool, error) {
	var n int64
	err := q.QueryRowContext(ctx, query, key).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("contenthub/sqlite: read counter: %w", err)
	}
	return n, true, nil
}

func exists(ctx context.Context, q queryer, query string, key string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("contenthub/sqlite: existence check: %w", err)
	}
	return true, nil
}

// ==================== Apply ====================

// Apply checks the batch preconditions and writes it in one transaction.
func (s *Store) Apply(ctx context.Context, b *store.Batch) error {
	if b.Empty() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: contenthub/sqlite: begin: %v", contenthub.ErrTransactionFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	plat, err := getPlatform(ctx, tx)
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

	if b.Content != nil {
		if b.ContentMustBeNew {
			dup, err := exists(ctx, tx, `SELECT 1 FROM content WHERE id = ?`, b.Content.ID)
			if err != nil {
				return err
			}
			if dup {
				return contenthub.ErrDuplicateContent
			}
		}
		if next.TotalContent, err = types.AddInt64(next.TotalContent, 1); err != nil {
			return fmt.Errorf("%w: total content", contenthub.ErrCounterOverflow)
		}
	}

	if b.Ownership != nil && b.OwnershipMustBeNew {
		owned, err := exists(ctx, tx, `SELECT 1 FROM ownership WHERE content_id = ?`, b.Ownership.ContentID)
		if err != nil {
			return err
		}
		if owned {
			return contenthub.ErrAlreadyOwned
		}
	}

	var totals store.Totals
	if p := b.Payment; p != nil {
		creator, _, err := counter(ctx, tx, `SELECT amount FROM creator_revenue WHERE content_id = ?`, p.ContentID)
		if err != nil {
			return err
		}
		paid, seen, err := counter(ctx, tx, `SELECT amount FROM user_payments WHERE address = ?`, string(p.Payer))
		if err != nil {
			return err
		}
		if totals, err = store.ApplyPayment(&next, creator, paid, !seen, p); err != nil {
			return fmt.Errorf("%w: %v", contenthub.ErrCounterOverflow, err)
		}
		next.TotalRevenue = totals.TotalRevenue
		next.TotalUsers = totals.TotalUsers
	}

	if err := writeBatch(ctx, tx, b, &next, totals); err != nil {
		return fmt.Errorf("%w: contenthub/sqlite: %v", contenthub.ErrTransactionFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: contenthub/sqlite: commit: %v", contenthub.ErrTransactionFailed, err)
	}
	return nil
}

func writeBatch(ctx context.Context, tx *sql.Tx, b *store.Batch, plat *platform.Platform, totals store.Totals) error {
	if b.Platform != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO platform (singleton, `+platformColumns+`) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			plat.Name, plat.Version, plat.FeePercent, string(plat.Owner), plat.Asset, plat.Chain,
			toNanos(plat.InitializedAt), plat.TotalContent, plat.TotalUsers, plat.TotalRevenue,
		); err != nil {
			return fmt.Errorf("insert platform: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`UPDATE platform SET total_content = ?, total_users = ?, total_revenue = ? WHERE singleton = 1`,
			plat.TotalContent, plat.TotalUsers, plat.TotalRevenue,
		); err != nil {
			return fmt.Errorf("update platform: %w", err)
		}
	}

	if c := b.Content; c != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO content (`+contentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.PayloadRef, c.MetadataRef, string(c.ContentType), string(c.Owner), c.ViewPrice, c.OwnershipPrice,
			c.Verified, c.Registry.ID, c.Registry.Platform, c.Registry.Chain, toNanos(c.Registry.Timestamp),
			toNanos(c.CreatedAt), toNanos(c.UpdatedAt),
		); err != nil {
			return fmt.Errorf("write content: %w", err)
		}
	}

	if p := b.Payment; p != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, string(p.Kind), p.ContentID, string(p.Payer), string(p.Creator), p.Amount, p.Fee, p.CreatorAmount,
			p.FeePercent, p.Currency, p.TransferRef, toNanos(p.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO creator_revenue (content_id, amount) VALUES (?, ?)
			 ON CONFLICT (content_id) DO UPDATE SET amount = excluded.amount`,
			p.ContentID, totals.Creator,
		); err != nil {
			return fmt.Errorf("write creator revenue: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_payments (address, amount) VALUES (?, ?)
			 ON CONFLICT (address) DO UPDATE SET amount = excluded.amount`,
			string(p.Payer), totals.Payer,
		); err != nil {
			return fmt.Errorf("write user payments: %w", err)
		}
	}

	if sess := b.Session; sess != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO sessions (content_id, id, viewer, granted_by, payment_id, granted_at, expires_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sess.ContentID, sess.ID, string(sess.User), string(sess.GrantedBy), sess.PaymentID,
			toNanos(sess.GrantedAt), toNanos(sess.ExpiresAt),
		); err != nil {
			return fmt.Errorf("write session: %w", err)
		}
	}

	if r := b.Ownership; r != nil {
		md, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encode ownership metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO ownership (content_id, id, owner, metadata_hash, metadata, created, payment_id, minted_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ContentID, r.ID, string(r.Owner), r.MetadataHash, string(md), r.Created, r.PaymentID, toNanos(r.MintedAt),
		); err != nil {
			return fmt.Errorf("write ownership: %w", err)
		}
	}
	return nil
}

// ==================== Helpers ====================

func limitClause(limit, offset int) string {
	if limit <= 0 && offset <= 0 {
		return ""
	}
	if limit <= 0 {
		limit = -1
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, max(offset, 0))
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
