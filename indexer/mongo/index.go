// Package mongo implements indexer.Index on MongoDB via Grove ORM.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/indexer"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/types"
)

// Collection name constants.
const (
	colContent   = "contenthub_content"
	colPayments  = "contenthub_payments"
	colOwnership = "contenthub_ownership"
)

var _ indexer.Index = (*Index)(nil)

type Index struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

func New(db *grove.DB) *Index {
	return &Index{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (x *Index) DB() *grove.DB { return x.db }

// Migrate creates the query indexes for every collection.
func (x *Index) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := x.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("contenthub/index/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func (x *Index) Ping(ctx context.Context) error {
	return x.db.Ping(ctx)
}

func (x *Index) Close() error {
	return x.db.Close()
}

func (x *Index) Put(ctx context.Context, events []indexer.Event) error {
	contents, payments, records := indexer.Split(events)

	for _, c := range contents {
		m := toContentModel(c)
		_, err := x.mdb.NewUpdate(m).
			Filter(bson.M{"_id": m.ContentID}).
			SetUpdate(bson.M{"$set": bson.M{
				"owner":           m.Owner,
				"payload_ref":     m.PayloadRef,
				"metadata_ref":    m.MetadataRef,
				"content_type":    m.ContentType,
				"view_price":      m.ViewPrice,
				"ownership_price": m.OwnershipPrice,
				"verified":        m.Verified,
				"registry_id":     m.RegistryID,
				"platform":        m.Platform,
				"chain":           m.Chain,
				"registered_at":   m.RegisteredAt,
				"created_at":      m.CreatedAt,
				"updated_at":      m.UpdatedAt,
			}}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("contenthub/index/mongo: put content %s: %w", c.ID, err)
		}
	}

	for _, p := range payments {
		_, err := x.mdb.NewInsert(toPaymentModel(p)).Exec(ctx)
		if err != nil {
			// Replayed receipts are already indexed.
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("contenthub/index/mongo: put payment %s: %w", p.ID, err)
		}
	}

	for _, r := range records {
		m := toOwnershipModel(r)
		_, err := x.mdb.NewUpdate(m).
			Filter(bson.M{"_id": m.ContentID}).
			SetUpdate(bson.M{"$set": bson.M{
				"record_id":     m.ID,
				"owner":         m.Owner,
				"metadata_hash": m.MetadataHash,
				"metadata":      m.Metadata,
				"payment_id":    m.PaymentID,
				"minted_at":     m.MintedAt,
			}}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("contenthub/index/mongo: put ownership %s: %w", r.ContentID, err)
		}
	}
	return nil
}

func (x *Index) ContentByOwner(ctx context.Context, opts content.ListOpts) ([]*content.Content, error) {
	var models []contentModel
	q := x.mdb.NewFind(&models).
		Filter(bson.M{"owner": string(opts.Owner)}).
		Sort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("contenthub/index/mongo: content by owner: %w", err)
	}

	result := make([]*content.Content, len(models))
	for i := range models {
		c, err := fromContentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func (x *Index) Payments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	filter := bson.M{}
	if opts.ContentID != "" {
		filter["content_id"] = opts.ContentID
	}
	if opts.Payer != "" {
		filter["payer"] = string(opts.Payer)
	}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}

	var models []paymentModel
	q := x.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("contenthub/index/mongo: payments: %w", err)
	}

	result := make([]*payment.Payment, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (x *Index) OwnedBy(ctx context.Context, owner types.Address) ([]*ownership.Record, error) {
	var models []ownershipModel
	err := x.mdb.NewFind(&models).
		Filter(bson.M{"owner": string(owner)}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("contenthub/index/mongo: owned by: %w", err)
	}

	result := make([]*ownership.Record, len(models))
	for i := range models {
		r, err := fromOwnershipModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colContent: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "content_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "payer", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colOwnership: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "_id", Value: 1}}},
			{
				Keys:    bson.D{{Key: "record_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
