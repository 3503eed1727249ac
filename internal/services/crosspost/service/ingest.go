package service

import (
	"context"
	"time"

	"crossposter/internal/core/gate"
	"crossposter/internal/core/tracking"
	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/logger"
	"crossposter/internal/platform/net/http/bind"
	"crossposter/internal/services/crosspost/domain"
)

// RegisterCandidate strips the tag from the text and starts tracking the post
func (s *Svc) RegisterCandidate(ctx context.Context, c domain.Candidate) (domain.Post, error) {
	if err := bind.Validate(c); err != nil {
		return domain.Post{}, err
	}
	content := tracking.Content{Text: s.tag.Strip(c.Text)}
	if c.Media != nil {
		m := tracking.Media{Kind: tracking.MediaKind(c.Media.Kind), Locator: c.Media.Locator}
		if !m.Kind.Valid() {
			return domain.Post{}, perr.WithField(perr.InvalidArgf("unsupported media kind %q", c.Media.Kind), "media.kind")
		}
		content.Media = &m
	}
	if content.Text == "" && content.Media == nil {
		return domain.Post{}, perr.WithField(perr.InvalidArgf("nothing left to post once the tag is removed"), "text")
	}

	snap, err := s.reg.Create(c.ID, c.PromptID, c.ConversationID, content, s.now())
	if err != nil {
		return domain.Post{}, err
	}
	s.m.Tracked(s.reg.Len())
	logger.C(logger.WithPost(ctx, snap.ID, "")).Info().
		Str("prompt_id", snap.PromptID).
		Bool("media", content.Media != nil).
		Msg("candidate tracked")
	return s.view(snap), nil
}

// ReportApproval runs the gate and, on ReadyToPublish, dispatches before returning
func (s *Svc) ReportApproval(ctx context.Context, promptID, approverID string, at time.Time) domain.Approval {
	if at.IsZero() {
		at = s.now()
	}
	res := s.gate.Approve(promptID, approverID, at)
	s.log.Debug().Str("prompt_id", promptID).Str("post_id", res.PostID).Str("result", res.Kind.String()).Msg("approval reported")
	out := domain.Approval{
		Result:    res.Kind.String(),
		Kind:      res.Kind,
		PostID:    res.PostID,
		Remaining: res.Remaining,
	}
	if res.Kind != gate.ReadyToPublish {
		return out
	}
	rep := s.disp.Dispatch(ctx, res.Snapshot)
	out.Report = &rep
	return out
}
