package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// SendBatch runs b in one round trip when q supports batching (pools and
// transactions do) and statement by statement otherwise. The first failing
// statement's error is returned.
func SendBatch(ctx context.Context, q DBTX, b *pgx.Batch) error {
	if sender, ok := q.(batchSender); ok {
		return sender.SendBatch(ctx, b).Close()
	}
	for _, item := range b.QueuedQueries {
		if _, err := q.Exec(ctx, item.SQL, item.Arguments...); err != nil {
			return err
		}
	}
	return nil
}
