package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// collectionRow is one persisted collection.
type collectionRow struct {
	bun.BaseModel `bun:"table:ticket_collections"`

	Name      string    `bun:"name,pk"`
	Payload   string    `bun:"payload,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// BunKV keeps collections in a SQL table through bun. It serves both the
// sqlite and the postgres drivers.
type BunKV struct {
	Bun *bun.DB
}

func NewBunKV(db *bun.DB) *BunKV {
	return &BunKV{Bun: db}
}

// Migrate creates the collections table when it does not exist yet.
func (b *BunKV) Migrate(ctx context.Context) error {
	_, err := b.Bun.NewCreateTable().
		Model((*collectionRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create ticket_collections: %w", err)
	}
	return nil
}

func (b *BunKV) Get(ctx context.Context, key string) ([]byte, error) {
	var row collectionRow
	err := b.Bun.NewSelect().
		Model(&row).
		Where("name = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select collection %s: %w", key, err)
	}
	return []byte(row.Payload), nil
}

func (b *BunKV) SetMany(ctx context.Context, entries map[string][]byte) error {
	now := time.Now().UTC()
	return b.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for k, v := range entries {
			row := &collectionRow{Name: k, Payload: string(v), UpdatedAt: now}
			_, err := tx.NewInsert().
				Model(row).
				On("CONFLICT (name) DO UPDATE").
				Set("payload = EXCLUDED.payload").
				Set("updated_at = EXCLUDED.updated_at").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("upsert collection %s: %w", k, err)
			}
		}
		return nil
	})
}

func (b *BunKV) Ping(ctx context.Context) error {
	return b.Bun.PingContext(ctx)
}

func (b *BunKV) Close() error {
	return b.Bun.Close()
}
