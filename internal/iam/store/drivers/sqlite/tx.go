package sqlite

import (
	"context"
	"database/sql"

	"github.com/veridianhq/veridian/internal/iam/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // outer DB stays open; caller commits or rolls back

// Ping is a no-op for transactions; the connection already exists.
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users             { return &usersRepo{q: t.tx} }
func (t *txStore) AuthStates() store.AuthStates   { return &authStatesRepo{q: t.tx} }
func (t *txStore) ResetTokens() store.ResetTokens { return &resetTokensRepo{q: t.tx} }
func (t *txStore) DeviceCodes() store.DeviceCodes { return &deviceCodesRepo{q: t.tx} }
func (t *txStore) Tenants() store.Tenants         { return &tenantsRepo{q: t.tx} }
func (t *txStore) Terms() store.Terms             { return &termsRepo{q: t.tx} }
func (t *txStore) AuthEvents() store.AuthEvents   { return &authEventsRepo{q: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx starts
