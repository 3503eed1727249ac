// Package repo provides the crosspost dispatch ledger
package repo

import (
	"context"
	"time"

	"crossposter/internal/core/dispatch"
	"crossposter/internal/modkit/repokit"
	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/store"
	pstrings "crossposter/internal/platform/strings"
	"crossposter/internal/services/crosspost/domain"
)

// Repo is the SQL surface of the ledger
type Repo interface {
	EnsureSchema(ctx context.Context) error
	InsertOutcome(ctx context.Context, row domain.LedgerRow, textOnly bool, tookMs int64) error
	Recent(ctx context.Context, postID string, limit int) ([]domain.LedgerRow, error)
}

type (
	// PG is a Postgres ledger repository
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG constructs a Postgres ledger binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind binds a Queryer to a Postgres implementation of Repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// EnsureSchema creates the ledger table and its lookup index
func (r *queries) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS crosspost_dispatches (
			dispatch_id     uuid        NOT NULL,
			post_id         text        NOT NULL,
			conversation_id text        NOT NULL,
			destination     text        NOT NULL,
			ok              boolean     NOT NULL,
			reason          text,
			text_only       boolean     NOT NULL DEFAULT false,
			took_ms         bigint      NOT NULL DEFAULT 0,
			created_at      timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (dispatch_id, destination)
		)
	`
	if _, err := store.Exec(ctx, r.q, ddl); err != nil {
		return perr.FromPostgres(err, "create crosspost_dispatches")
	}
	const idx = `CREATE INDEX IF NOT EXISTS crosspost_dispatches_post_idx ON crosspost_dispatches (post_id, created_at DESC)`
	if _, err := store.Exec(ctx, r.q, idx); err != nil {
		return perr.FromPostgres(err, "create crosspost_dispatches index")
	}
	return nil
}

// InsertOutcome writes one destination row; replays of the same dispatch are ignored
func (r *queries) InsertOutcome(ctx context.Context, row domain.LedgerRow, textOnly bool, tookMs int64) error {
	const sql = `
		INSERT INTO crosspost_dispatches
			(dispatch_id, post_id, conversation_id, destination, ok, reason, text_only, took_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (dispatch_id, destination) DO NOTHING
	`
	_, err := store.Exec(ctx, r.q, sql,
		row.DispatchID, row.PostID, row.ConversationID, row.Destination,
		row.OK, pstrings.SQLNull(row.Reason), textOnly, tookMs, row.CreatedAt)
	return perr.FromPostgresf(err, "insert dispatch %s/%s", row.DispatchID, row.Destination)
}

// Recent lists the newest rows for postID, newest first
func (r *queries) Recent(ctx context.Context, postID string, limit int) ([]domain.LedgerRow, error) {
	const sql = `
		SELECT dispatch_id::text, post_id, conversation_id, destination, ok, COALESCE(reason,''), created_at
		FROM crosspost_dispatches
		WHERE post_id = $1
		ORDER BY created_at DESC, destination
		LIMIT $2
	`
	rows, err := store.Many(ctx, r.q, scanRow, sql, postID, limit)
	if err != nil {
		return nil, perr.FromPostgresf(err, "list dispatches for %s", postID)
	}
	return rows, nil
}

func scanRow(row store.Row) (domain.LedgerRow, error) {
	var l domain.LedgerRow
	var at time.Time
	err := row.Scan(&l.DispatchID, &l.PostID, &l.ConversationID, &l.Destination, &l.OK, &l.Reason, &at)
	l.CreatedAt = at.UTC()
	return l, err
}

// FaultDestination is the destination recorded for a dispatch that broke before reporting
const FaultDestination = "*"

// Rows flattens a report into ledger rows in report order
func Rows(rep dispatch.Report) []domain.LedgerRow {
	at := rep.FinishedAt
	if at.IsZero() {
		at = rep.StartedAt
	}
	base := domain.LedgerRow{
		DispatchID:     rep.DispatchID,
		PostID:         rep.PostID,
		ConversationID: rep.Conversation,
		CreatedAt:      at,
	}
	out := make([]domain.LedgerRow, 0, len(rep.Results)+1)
	for _, o := range rep.Results {
		r := base
		r.Destination, r.OK, r.Reason = o.Destination, o.OK, o.Reason
		out = append(out, r)
	}
	if rep.Fault != "" {
		r := base
		r.Destination, r.Reason = FaultDestination, rep.Fault
		out = append(out, r)
	}
	return out
}
