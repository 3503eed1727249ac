package domain

import (
	"time"

	"crossposter/internal/core/dispatch"
	"crossposter/internal/core/gate"
	"crossposter/internal/core/tracking"
)

// Media is an attachment reference as ingestion sees it
type Media struct {
	Kind    string `json:"kind" validate:"required,oneof=photo video animation"`
	Locator string `json:"locator" validate:"required,max=2048"`
}

// Candidate is a tagged message handed over by an ingestion adapter
// Text still carries the tag; the service strips it
type Candidate struct {
	ID             string `json:"id" validate:"required,max=128"`
	PromptID       string `json:"prompt_id" validate:"required,max=128"`
	ConversationID string `json:"conversation_id" validate:"required,max=128"`
	Text           string `json:"text" validate:"max=10000"`
	Media          *Media `json:"media,omitempty"`
}

// ApprovalRequest is the HTTP body for one approval; the server clock stamps it
type ApprovalRequest struct {
	PromptID   string `json:"prompt_id" validate:"required"`
	ApproverID string `json:"approver_id" validate:"required"`
}

// Post is the read model of a tracked post
type Post struct {
	ID             string     `json:"id"`
	PromptID       string     `json:"prompt_id"`
	ConversationID string     `json:"conversation_id"`
	Text           string     `json:"text"`
	Media          *Media     `json:"media,omitempty"`
	State          string     `json:"state"`
	Approvals      int        `json:"approvals"`
	Remaining      int        `json:"remaining"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
}

// ListFilter narrows List
type ListFilter struct {
	State          string
	ConversationID string
	Limit          int
}

// Approval is the outcome of ReportApproval
type Approval struct {
	Result    string           `json:"result"`
	Kind      gate.Kind        `json:"-"`
	PostID    string           `json:"post_id,omitempty"`
	Remaining int              `json:"remaining,omitempty"`
	Report    *dispatch.Report `json:"report,omitempty"`
}

// LedgerRow is one recorded destination outcome
type LedgerRow struct {
	DispatchID     string    `json:"dispatch_id"`
	PostID         string    `json:"post_id"`
	ConversationID string    `json:"conversation_id"`
	Destination    string    `json:"destination"`
	OK             bool      `json:"ok"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PostFrom builds the read model from a registry snapshot
func PostFrom(s tracking.Snapshot, threshold int, window time.Duration) Post {
	p := Post{
		ID:             s.ID,
		PromptID:       s.PromptID,
		ConversationID: s.Conversation,
		Text:           s.Content.Text,
		State:          s.State.String(),
		Approvals:      len(s.Approvers),
		CreatedAt:      s.CreatedAt,
		ExpiresAt:      s.CreatedAt.Add(window),
	}
	if s.State == tracking.Pending {
		p.Remaining = max(0, threshold-len(s.Approvers))
	}
	if s.Content.Media != nil {
		p.Media = &Media{Kind: string(s.Content.Media.Kind), Locator: s.Content.Media.Locator}
	}
	if !s.PublishedAt.IsZero() {
		at := s.PublishedAt
		p.PublishedAt = &at
	}
	return p
}
