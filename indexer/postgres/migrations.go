package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the PostgreSQL index.
var Migrations = migrate.NewGroup("contenthub_index")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_contenthub_content",
			Version: "20250301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS contenthub_content (
    content_id      TEXT PRIMARY KEY,
    owner           TEXT NOT NULL,
    payload_ref     TEXT NOT NULL DEFAULT '',
    metadata_ref    TEXT NOT NULL DEFAULT '',
    content_type    TEXT NOT NULL DEFAULT '',
    view_price      BIGINT NOT NULL DEFAULT 0,
    ownership_price BIGINT NOT NULL DEFAULT 0,
    verified        BOOLEAN NOT NULL DEFAULT FALSE,
    registry_id     TEXT NOT NULL DEFAULT '',
    platform        TEXT NOT NULL DEFAULT '',
    chain           TEXT NOT NULL DEFAULT '',
    registered_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_contenthub_content_owner ON contenthub_content (owner, content_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS contenthub_content`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_contenthub_payments",
			Version: "20250301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS contenthub_payments (
    id             TEXT PRIMARY KEY,
    kind           TEXT NOT NULL,
    content_id     TEXT NOT NULL,
    payer          TEXT NOT NULL,
    creator        TEXT NOT NULL,
    amount         BIGINT NOT NULL,
    fee            BIGINT NOT NULL,
    creator_amount BIGINT NOT NULL,
    fee_percent    INT NOT NULL,
    currency       TEXT NOT NULL DEFAULT '',
    transfer_ref   TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_contenthub_payments_content ON contenthub_payments (content_id, created_at);
CREATE INDEX IF NOT EXISTS idx_contenthub_payments_payer ON contenthub_payments (payer, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS contenthub_payments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_contenthub_ownership",
			Version: "20250301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS contenthub_ownership (
    content_id    TEXT PRIMARY KEY,
    id            TEXT NOT NULL,
    owner         TEXT NOT NULL,
    metadata_hash TEXT NOT NULL,
    metadata      JSONB NOT NULL DEFAULT '{}',
    payment_id    TEXT NOT NULL DEFAULT '',
    minted_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_contenthub_ownership_owner ON contenthub_ownership (owner, content_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS contenthub_ownership`)
				return err
			},
		},
	)
}
