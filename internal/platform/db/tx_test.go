package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	require.True(t, IsRetryable(&pgconn.PgError{Code: CodeSerializationFailure}))
	require.True(t, IsRetryable(fmt.Errorf("insert sale: %w", &pgconn.PgError{Code: CodeDeadlockDetected})))
	require.False(t, IsRetryable(&pgconn.PgError{Code: CodeUniqueViolation}))
	require.False(t, IsRetryable(errors.New("boom")))
	require.False(t, IsRetryable(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("wrap: %w", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "sales_pkey"})
	require.True(t, IsUniqueViolation(err, ""))
	require.True(t, IsUniqueViolation(err, "sales_pkey"))
	require.False(t, IsUniqueViolation(err, "stock_lots_pkey"))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: CodeSerializationFailure}, ""))
}

type recordingTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (tx *recordingTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *recordingTx) Rollback(context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type recordingBeginner struct {
	opts pgx.TxOptions
	tx   *recordingTx
}

func (b *recordingBeginner) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	b.opts = opts
	b.tx = &recordingTx{}
	return b.tx, nil
}

func TestWithTxIsolationLevels(t *testing.T) {
	ctx := context.Background()
	noop := func(pgx.Tx) error { return nil }

	b := &recordingBeginner{}
	require.NoError(t, WithTx(ctx, b, noop))
	require.Equal(t, pgx.RepeatableRead, b.opts.IsoLevel)
	require.True(t, b.tx.committed)

	require.NoError(t, WithLockingTx(ctx, b, noop))
	require.Equal(t, pgx.ReadCommitted, b.opts.IsoLevel)
	require.True(t, b.tx.committed)
}

func TestWithLockingTxRollsBackOnError(t *testing.T) {
	b := &recordingBeginner{}
	boom := errors.New("boom")
	err := WithLockingTx(context.Background(), b, func(pgx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, b.tx.committed)
	require.True(t, b.tx.rolledBack)
}
