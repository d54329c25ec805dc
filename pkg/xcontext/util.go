package xcontext

import (
	"context"

	"gorm.io/gorm"
)

type transaction struct {
	tx   *gorm.DB
	done bool

	// parent is set for a transaction joining an outer one. Commit and
	// rollback of a joined transaction are left to the outermost owner.
	parent *transaction
}

func (t *transaction) root() *transaction {
	for t.parent != nil {
		t = t.parent
	}

	return t
}

func runningTransaction(ctx context.Context) *transaction {
	t, ok := ctx.Value(txKey{}).(*transaction)
	if !ok || t == nil || t.root().done {
		return nil
	}

	return t
}

func WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey{}, db)
}

// DB returns the running transaction of ctx if any, otherwise the root
// database handle.
func DB(ctx context.Context) *gorm.DB {
	if t := runningTransaction(ctx); t != nil {
		return t.root().tx.WithContext(ctx)
	}

	return rootDB(ctx).WithContext(ctx)
}

func rootDB(ctx context.Context) *gorm.DB {
	db, ok := ctx.Value(dbKey{}).(*gorm.DB)
	if !ok {
		panic("xcontext: no database in context")
	}

	return db
}

// WithDBTransaction begins a transaction whose handle is returned by DB for
// the returned context. Calling it on a context which already runs a
// transaction joins that transaction.
func WithDBTransaction(ctx context.Context) context.Context {
	if t := runningTransaction(ctx); t != nil {
		return context.WithValue(ctx, txKey{}, &transaction{parent: t})
	}

	return context.WithValue(ctx, txKey{}, &transaction{tx: rootDB(ctx).WithContext(ctx).Begin()})
}

// WithCommitDBTransaction commits the transaction of ctx. Committing a
// joined transaction does nothing.
func WithCommitDBTransaction(ctx context.Context) error {
	t := runningTransaction(ctx)
	if t == nil || t.parent != nil {
		return nil
	}

	t.done = true
	return t.tx.Commit().Error
}

// WithRollbackDBTransaction rollbacks the transaction of ctx if it has not
// been committed yet. It is safe to defer right after WithDBTransaction.
func WithRollbackDBTransaction(ctx context.Context) {
	t := runningTransaction(ctx)
	if t == nil || t.parent != nil {
		return
	}

	t.done = true
	t.tx.Rollback()
}
