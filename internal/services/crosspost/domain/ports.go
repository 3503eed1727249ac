// Package domain defines the public ports of the crosspost service
package domain

import (
	"context"
	"time"

	"crossposter/internal/core/dispatch"
)

// IngestPort is what ingestion adapters call
type IngestPort interface {
	// RegisterCandidate starts tracking a tagged message
	RegisterCandidate(ctx context.Context, c Candidate) (Post, error)
	// ReportApproval applies one approval; on ReadyToPublish the dispatch has finished when it returns
	ReportApproval(ctx context.Context, promptID, approverID string, at time.Time) Approval
}

// QueryPort exposes read only views of tracked posts
type QueryPort interface {
	List(ctx context.Context, f ListFilter) ([]Post, error)
	Get(ctx context.Context, id string) (Post, error)
	// Dispatches reads the ledger; it fails with Unavailable when recording is off
	Dispatches(ctx context.Context, postID string, limit int) ([]LedgerRow, error)
}

// WorkerPort runs the expiry sweeper
type WorkerPort interface {
	Run(ctx context.Context) error
}

// LedgerPort records finished dispatches
type LedgerPort interface {
	dispatch.Recorder
	EnsureSchema(ctx context.Context) error
	Recent(ctx context.Context, postID string, limit int) ([]LedgerRow, error)
}
