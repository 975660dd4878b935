package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
	ctxErr     error
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.ctxErr = ctx.Err()
	t.committed = true
	return t.commitErr
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (b *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := &fakeBeginner{tx: &fakeTx{}}

	err := WithTx(context.Background(), db, func(DBTX) error { return nil })

	require.NoError(t, err)
	assert.True(t, db.tx.committed)
	assert.False(t, db.tx.rolledBack)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := &fakeBeginner{tx: &fakeTx{}}
	boom := errors.New("insert failed")

	err := WithTx(context.Background(), db, func(DBTX) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.False(t, db.tx.committed)
	assert.True(t, db.tx.rolledBack)
}

func TestWithTx_RollsBackWhenCommitFails(t *testing.T) {
	db := &fakeBeginner{tx: &fakeTx{commitErr: errors.New("serialization failure")}}

	err := WithTx(context.Background(), db, func(DBTX) error { return nil })

	assert.ErrorContains(t, err, "commit tx")
	assert.True(t, db.tx.rolledBack)
}

func TestWithTx_RollsBackAndRepanics(t *testing.T) {
	db := &fakeBeginner{tx: &fakeTx{}}

	assert.Panics(t, func() {
		_ = WithTx(context.Background(), db, func(DBTX) error { panic("boom") })
	})
	assert.True(t, db.tx.rolledBack)
	assert.False(t, db.tx.committed)
}

func TestWithTx_IgnoresCallerCancellation(t *testing.T) {
	db := &fakeBeginner{tx: &fakeTx{}}
	ctx, cancel := context.WithCancel(context.Background())

	err := WithTx(ctx, db, func(DBTX) error {
		cancel()
		return nil
	})

	require.NoError(t, err)
	assert.True(t, db.tx.committed)
	assert.NoError(t, db.tx.ctxErr)
}

func TestWithTx_BeginError(t *testing.T) {
	db := &fakeBeginner{err: errors.New("pool closed")}

	err := WithTx(context.Background(), db, func(DBTX) error {
		t.Fatal("callback must not run")
		return nil
	})

	assert.ErrorContains(t, err, "begin tx")
}
