package repo

import (
	"context"
	"time"

	"crossposter/internal/core/dispatch"
	"crossposter/internal/modkit/repokit"
	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/logger"
	"crossposter/internal/services/crosspost/domain"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

const (
	recordAttempts = 3
	defaultRecent  = 50
	maxRecent      = 500
)

// Ledger records dispatch reports through a TxRunner
type Ledger struct {
	db     repokit.TxRunner
	binder repokit.Binder[Repo]
	log    logger.Logger
	retry  failsafe.Executor[any]
}

var _ domain.LedgerPort = (*Ledger)(nil)

// NewLedger binds the Postgres repo to db; every tx runs under a statement timeout
func NewLedger(db repokit.TxRunner, stmtTimeout time.Duration) *Ledger {
	if db == nil {
		panic("crosspost ledger requires a non nil TxRunner")
	}
	if stmtTimeout > 0 {
		db = repokit.WithBeginHooks(db, repokit.StatementTimeout(stmtTimeout))
	}
	l := &Ledger{db: db, binder: NewPG(), log: *logger.Named("ledger")}
	l.retry = l.retryPolicy(50*time.Millisecond, time.Second)
	return l
}

// retryPolicy retries transient contention with jittered backoff and hands back the last error
func (l *Ledger) retryPolicy(base, ceiling time.Duration) failsafe.Executor[any] {
	rp := retrypolicy.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool { return perr.IsRetryable(err) }).
		WithMaxRetries(recordAttempts-1).
		WithBackoff(base, ceiling).
		WithJitterFactor(0.1).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[any]) {
			l.log.Warn().Err(e.LastError()).Int("attempt", e.Attempts()).Msg("ledger write contention, retrying")
		}).
		Build()
	return failsafe.With(rp)
}

// EnsureSchema creates the ledger table when missing
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	return repokit.WithTx(ctx, l.db, func(q repokit.Queryer) error {
		return repokit.MustBind(l.binder, q).EnsureSchema(ctx)
	})
}

// Record writes every outcome of rep in one transaction, retrying transient contention
func (l *Ledger) Record(ctx context.Context, rep dispatch.Report) error {
	rows := Rows(rep)
	if len(rows) == 0 {
		return nil
	}
	took := rep.FinishedAt.Sub(rep.StartedAt).Milliseconds()

	err := l.retry.WithContext(ctx).Run(func() error {
		return repokit.WithTx(ctx, l.db, func(q repokit.Queryer) error {
			r := repokit.MustBind(l.binder, q)
			for _, row := range rows {
				if err := r.InsertOutcome(ctx, row, rep.TextOnly, took); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	l.log.Debug().Str("dispatch_id", rep.DispatchID).Int("rows", len(rows)).Msg("dispatch recorded")
	return nil
}

// Recent returns the newest ledger rows for a post
func (l *Ledger) Recent(ctx context.Context, postID string, limit int) ([]domain.LedgerRow, error) {
	return l.binder.Bind(l.db).Recent(ctx, postID, recentLimit(limit))
}

func recentLimit(n int) int {
	if n <= 0 {
		return defaultRecent
	}
	return min(n, maxRecent)
}

// Noop is the ledger used when recording is disabled
type Noop struct{}

var _ domain.LedgerPort = Noop{}

// EnsureSchema does nothing
func (Noop) EnsureSchema(context.Context) error { return nil }

// Record does nothing
func (Noop) Record(context.Context, dispatch.Report) error { return nil }

// Recent always reports the ledger as disabled
func (Noop) Recent(context.Context, string, int) ([]domain.LedgerRow, error) {
	return nil, perr.Unavailablef("dispatch ledger disabled")
}
