package service

import (
	"context"
	"slices"
	"strings"

	"crossposter/internal/core/tracking"
	perr "crossposter/internal/platform/errors"
	"crossposter/internal/services/crosspost/domain"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Get returns one tracked post by id
func (s *Svc) Get(_ context.Context, id string) (domain.Post, error) {
	snap, err := s.reg.Get(id)
	if err != nil {
		return domain.Post{}, err
	}
	return s.view(snap), nil
}

// List returns tracked posts, oldest first
func (s *Svc) List(_ context.Context, f domain.ListFilter) ([]domain.Post, error) {
	state := strings.ToLower(strings.TrimSpace(f.State))
	switch state {
	case "", tracking.Pending.String(), tracking.Published.String(), tracking.Expired.String():
	default:
		return nil, perr.WithField(perr.InvalidArgf("unknown state %q", f.State), "state")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	out := []domain.Post{}
	for snap := range s.reg.All() {
		if state != "" && snap.State.String() != state {
			continue
		}
		if f.ConversationID != "" && snap.Conversation != f.ConversationID {
			continue
		}
		out = append(out, s.view(snap))
	}
	slices.SortFunc(out, func(a, b domain.Post) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Dispatches returns recorded outcomes for a post from the ledger
func (s *Svc) Dispatches(ctx context.Context, postID string, limit int) ([]domain.LedgerRow, error) {
	return s.ledger.Recent(ctx, postID, limit)
}

func (s *Svc) view(snap tracking.Snapshot) domain.Post {
	return domain.PostFrom(snap, s.cfg.Threshold, s.cfg.ExpiryWindow)
}
