package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("manifest.store")

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx so lookups can run
// either on the pool or inside a write transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func newRetryBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 1 * time.Second
	bo.MaxElapsedTime = 15 * time.Second
	return bo
}

// withWriteTx runs fn inside one BEGIN IMMEDIATE transaction while holding the
// process-wide write mutex. Either every statement fn issued is committed or
// none is. Only SQLITE_BUSY/LOCKED is retried, and fn is rerun from scratch on
// each attempt so its checks see the current state.
func (s *Store) withWriteTx(ctx context.Context, op string, fn func(q querier) error) error {
	ctx, span := tracer.Start(ctx, "store."+op,
		trace.WithAttributes(attribute.String("db.operation", op)))
	defer span.End()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	attempts := 0
	bo := backoff.WithContext(backoff.WithMaxRetries(newRetryBackoff(), uint64(s.cfg.MaxRetries)), ctx)
	err := backoff.Retry(func() error {
		attempts++
		err := s.writeOnce(ctx, op, fn)
		if err == nil {
			return nil
		}
		if isBusy(err) {
			s.log.Warn("store: database busy, retrying", "op", op, "attempt", attempts, "err", err)
			return err
		}
		return backoff.Permanent(err)
	}, bo)

	span.SetAttributes(attribute.Int("retry.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return storageErr(op, err)
	}
	return nil
}

func (s *Store) writeOnce(ctx context.Context, op string, fn func(q querier) error) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// Background so a cancelled caller still releases the reserved lock.
		if _, rbErr := conn.ExecContext(context.Background(), "ROLLBACK"); rbErr != nil {
			s.log.Warn("store: rollback failed", "op", op, "err", rbErr)
		}
	}()

	if err := fn(conn); err != nil {
		return err
	}
	if s.hooks.beforeCommit != nil {
		if err := s.hooks.beforeCommit(op); err != nil {
			return err
		}
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// withReadTx runs fn in a deferred transaction so multi-statement reads see
// one snapshot.
func (s *Store) withReadTx(ctx context.Context, op string, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(op, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return storageErr(op, err)
	}
	return storageErr(op, tx.Commit())
}
