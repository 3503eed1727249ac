package dispatch

import (
	"strings"
	"time"

	"crossposter/internal/core/tagtext"
)

// Notification texts
const (
	StartText    = "🚀 Initiating crosspost to platforms..."
	reportHeader = "📊 Crosspost Report:\n\n"
	faultPrefix  = "❌ General crosspost error: "
	noPublishers = "No platforms enabled"
)

// Outcome is one destination's result
type Outcome struct {
	Destination string        `json:"destination"`
	OK          bool          `json:"ok"`
	Reason      string        `json:"reason,omitempty"`
	Took        time.Duration `json:"took_ns"`
}

// Line renders the outcome as a report line
func (o Outcome) Line() string {
	if o.OK {
		return "✅ " + tagtext.Label(o.Destination) + ": Successfully posted"
	}
	return "❌ " + tagtext.Label(o.Destination) + ": Error - " + o.Reason
}

// Report is the result of one dispatch
// Results follow the configured publisher order; Fault is set when the dispatch
// itself broke and Results may then be incomplete
type Report struct {
	DispatchID   string    `json:"dispatch_id"`
	PostID       string    `json:"post_id"`
	Conversation string    `json:"conversation_id"`
	TextOnly     bool      `json:"text_only"`
	Results      []Outcome `json:"results"`
	Fault        string    `json:"fault,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Failed counts failure lines
func (r Report) Failed() int {
	n := 0
	for _, o := range r.Results {
		if !o.OK {
			n++
		}
	}
	return n
}

// Text renders the message sent back to the conversation
func (r Report) Text() string {
	if r.Fault != "" {
		return faultPrefix + r.Fault
	}
	var b strings.Builder
	b.WriteString(reportHeader)
	if len(r.Results) == 0 {
		b.WriteString(noPublishers)
		return b.String()
	}
	for i, o := range r.Results {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(o.Line())
	}
	return b.String()
}
