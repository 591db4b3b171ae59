package market

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// authorize is the single ownership check used by every owner-only
// mutation. ownerSQL must select exactly one owner id for $1 and lock the
// resource row (FOR UPDATE). The mutation runs in the same transaction, so
// the owner cannot change between the check and the write.
func authorize(ctx context.Context, db *pgxpool.Pool, ownerSQL, id, callerID string, mutate func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var owner string
	if err := tx.QueryRow(ctx, ownerSQL, id).Scan(&owner); err != nil {
		return classify(err)
	}
	if owner != callerID {
		return newError(ErrForbidden, "not the owner")
	}
	if err := mutate(tx); err != nil {
		return classify(err)
	}
	return tx.Commit(ctx)
}
