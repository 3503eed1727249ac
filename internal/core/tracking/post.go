// Package tracking is the registry of posts awaiting approval
package tracking

import (
	"slices"
	"time"
)

// State is where a post is in its lifecycle
type State uint8

// Pending is the only non terminal state
const (
	Pending State = iota
	Published
	Expired
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Published:
		return "published"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// MediaKind is the kind of attachment a post carries
type MediaKind string

// Media kinds the ingestion layer can hand us
const (
	Photo     MediaKind = "photo"
	Video     MediaKind = "video"
	Animation MediaKind = "animation"
)

// Valid reports whether k is a known kind
func (k MediaKind) Valid() bool {
	switch k {
	case Photo, Video, Animation:
		return true
	}
	return false
}

// Media is an opaque reference to an attachment; the engine never reads it
type Media struct {
	Kind    MediaKind
	Locator string
}

// Content is the text to publish plus an optional attachment
type Content struct {
	Text  string
	Media *Media
}

// Post is the mutable record behind a tracked post
// It is only reachable inside Registry.Update
type Post struct {
	ID           string
	PromptID     string
	Conversation string
	Content      Content
	CreatedAt    time.Time
	State        State
	PublishedAt  time.Time

	approvals map[string]struct{}
	order     []string
}

// Approve adds approver; it reports false when approver was already present
func (p *Post) Approve(approver string) bool {
	if _, ok := p.approvals[approver]; ok {
		return false
	}
	p.approvals[approver] = struct{}{}
	p.order = append(p.order, approver)
	return true
}

// HasApproved reports whether approver is in the set
func (p *Post) HasApproved(approver string) bool {
	_, ok := p.approvals[approver]
	return ok
}

// Approvals is the size of the approver set
func (p *Post) Approvals() int { return len(p.approvals) }

// Age is how long ago the post was created
func (p *Post) Age(now time.Time) time.Duration { return now.Sub(p.CreatedAt) }

// Snapshot is an immutable copy of a post
type Snapshot struct {
	ID           string
	PromptID     string
	Conversation string
	Content      Content
	CreatedAt    time.Time
	State        State
	PublishedAt  time.Time
	Approvers    []string
}

// Snapshot copies p, including the media reference and approver list
func (p *Post) Snapshot() Snapshot {
	s := Snapshot{
		ID:           p.ID,
		PromptID:     p.PromptID,
		Conversation: p.Conversation,
		Content:      Content{Text: p.Content.Text},
		CreatedAt:    p.CreatedAt,
		State:        p.State,
		PublishedAt:  p.PublishedAt,
		Approvers:    slices.Clone(p.order),
	}
	if p.Content.Media != nil {
		m := *p.Content.Media
		s.Content.Media = &m
	}
	return s
}
