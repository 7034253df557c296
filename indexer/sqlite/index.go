// Package sqlite implements indexer.Index on SQLite via Grove ORM.
package sqlite

import (
	"context"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/indexer"
	"github.com/xraph/contenthub/indexer/internal/sqlrow"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/types"
)

var _ indexer.Index = (*Index)(nil)

type Index struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

func New(db *grove.DB) *Index {
	return &Index{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (x *Index) DB() *grove.DB { return x.db }

func (x *Index) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(x.sdb)
	if err != nil {
		return fmt.Errorf("contenthub/index/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("contenthub/index/sqlite: migration failed: %w", err)
	}
	return nil
}

func (x *Index) Ping(ctx context.Context) error {
	return x.db.Ping(ctx)
}

func (x *Index) Close() error {
	return x.db.Close()
}

// Put upserts content and ownership rows and inserts receipts once.
func (x *Index) Put(ctx context.Context, events []indexer.Event) error {
	contents, payments, records := indexer.Split(events)

	for _, c := range contents {
		_, err := x.sdb.NewInsert(sqlrow.FromContent(c)).
			OnConflict("(content_id) DO UPDATE").
			Set("owner = EXCLUDED.owner").
			Set("payload_ref = EXCLUDED.payload_ref").
			Set("metadata_ref = EXCLUDED.metadata_ref").
			Set("content_type = EXCLUDED.content_type").
			Set("view_price = EXCLUDED.view_price").
			Set("ownership_price = EXCLUDED.ownership_price").
			Set("verified = EXCLUDED.verified").
			Set("registry_id = EXCLUDED.registry_id").
			Set("registered_at = EXCLUDED.registered_at").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("contenthub/index/sqlite: put content %s: %w", c.ID, err)
		}
	}

	if len(payments) > 0 {
		models := make([]sqlrow.Payment, len(payments))
		for i, p := range payments {
			models[i] = sqlrow.FromPayment(p)
		}
		_, err := x.sdb.NewInsert(&models).
			OnConflict("(id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("contenthub/index/sqlite: put payments: %w", err)
		}
	}

	for _, r := range records {
		m, err := sqlrow.FromOwnership(r)
		if err != nil {
			return err
		}
		_, err = x.sdb.NewInsert(m).
			OnConflict("(content_id) DO UPDATE").
			Set("id = EXCLUDED.id").
			Set("owner = EXCLUDED.owner").
			Set("metadata_hash = EXCLUDED.metadata_hash").
			Set("metadata = EXCLUDED.metadata").
			Set("payment_id = EXCLUDED.payment_id").
			Set("minted_at = EXCLUDED.minted_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("contenthub/index/sqlite: put ownership %s: %w", r.ContentID, err)
		}
	}
	return nil
}

func (x *Index) ContentByOwner(ctx context.Context, opts content.ListOpts) ([]*content.Content, error) {
	var models []sqlrow.Content
	q := x.sdb.NewSelect(&models).
		Where("owner = ?", string(opts.Owner)).
		OrderExpr("content_id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*content.Content, len(models))
	for i := range models {
		c, err := models[i].Record()
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func (x *Index) Payments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []sqlrow.Payment
	q := x.sdb.NewSelect(&models)

	if opts.ContentID != "" {
		q = q.Where("content_id = ?", opts.ContentID)
	}
	if opts.Payer != "" {
		q = q.Where("payer = ?", string(opts.Payer))
	}
	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*payment.Payment, len(models))
	for i := range models {
		p, err := models[i].Record()
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (x *Index) OwnedBy(ctx context.Context, owner types.Address) ([]*ownership.Record, error) {
	var models []sqlrow.Ownership
	err := x.sdb.NewSelect(&models).
		Where("owner = ?", string(owner)).
		OrderExpr("content_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*ownership.Record, len(models))
	for i := range models {
		r, err := models[i].Record()
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}
