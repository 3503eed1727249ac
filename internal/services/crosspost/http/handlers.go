// Package http provides http transport for crosspost
package http

import (
	stdhttp "net/http"
	"strconv"
	"time"

	"crossposter/internal/core/gate"
	"crossposter/internal/modkit/httpkit"
	perr "crossposter/internal/platform/errors"
	phttp "crossposter/internal/platform/net/http"
	"crossposter/internal/services/crosspost/domain"
)

// Service is what the handlers call
type Service interface {
	domain.IngestPort
	domain.QueryPort
}

// Register mounts the crosspost routes
func Register(r httpkit.Router, s Service, now func() time.Time) {
	h := &handlers{svc: s, now: now}
	r.Post("/candidates", httpkit.JSON(h.register))
	r.Post("/approvals", httpkit.JSON(h.approve))
	r.Get("/posts", httpkit.Call(h.list))
	r.Get("/posts/{id}", httpkit.Call(h.get))
	r.Get("/posts/{id}/dispatches", httpkit.Call(h.dispatches))
}

type handlers struct {
	svc Service
	now func() time.Time
}

// swagger:route POST /api/v1/candidates Crosspost register
// @Summary Track a tagged message as a cross-post candidate
// @Tags crosspost
// @Accept json
// @Produce json
// @Param payload body domain.Candidate true "Candidate"
// @Success 201 {object} domain.Post "created"
// @Failure 409 {object} httpkit.Envelope "id or prompt id already tracked"
// @Router /api/v1/candidates [post]
func (h *handlers) register(r *stdhttp.Request, in domain.Candidate) (any, error) {
	p, err := h.svc.RegisterCandidate(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(p), nil
}

// swagger:route POST /api/v1/approvals Crosspost approve
// @Summary Report one approval; publishes synchronously once the threshold is met
// @Tags crosspost
// @Accept json
// @Produce json
// @Param payload body domain.ApprovalRequest true "Approval"
// @Success 200 {object} domain.Approval "gate result"
// @Failure 404 {object} httpkit.Envelope "nothing to react to"
// @Router /api/v1/approvals [post]
func (h *handlers) approve(r *stdhttp.Request, in domain.ApprovalRequest) (any, error) {
	a := h.svc.ReportApproval(r.Context(), in.PromptID, in.ApproverID, h.now())
	if a.Kind == gate.UnknownPrompt {
		return nil, perr.WithField(perr.NotFoundf("nothing to react to"), "prompt_id")
	}
	return a, nil
}

// swagger:route GET /api/v1/posts Crosspost list
// @Summary List tracked posts, oldest first
// @Tags crosspost
// @Produce json
// @Param state query string false "pending, published or expired"
// @Param conversation_id query string false "conversation filter"
// @Param limit query int false "max rows (default 100)"
// @Success 200 {array} domain.Post "ok"
// @Router /api/v1/posts [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		return nil, err
	}
	return h.svc.List(r.Context(), domain.ListFilter{
		State:          q.Get("state"),
		ConversationID: q.Get("conversation_id"),
		Limit:          limit,
	})
}

// swagger:route GET /api/v1/posts/{id} Crosspost get
// @Summary Get one tracked post
// @Tags crosspost
// @Produce json
// @Param id path string true "post id"
// @Success 200 {object} domain.Post "ok"
// @Failure 404 {object} httpkit.Envelope "not tracked"
// @Router /api/v1/posts/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	return h.svc.Get(r.Context(), phttp.URLParam(r, "id"))
}

// swagger:route GET /api/v1/posts/{id}/dispatches Crosspost dispatches
// @Summary Recorded publish outcomes for a post
// @Tags crosspost
// @Produce json
// @Param id path string true "post id"
// @Param limit query int false "max rows (default 50)"
// @Success 200 {array} domain.LedgerRow "ok"
// @Failure 503 {object} httpkit.Envelope "ledger disabled"
// @Router /api/v1/posts/{id}/dispatches [get]
func (h *handlers) dispatches(r *stdhttp.Request) (any, error) {
	limit, err := intParam(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		return nil, err
	}
	rows, err := h.svc.Dispatches(r.Context(), phttp.URLParam(r, "id"), limit)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.LedgerRow{}
	}
	return rows, nil
}

func intParam(s, name string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, perr.WithField(perr.InvalidArgf("%s must be a non negative integer", name), name)
	}
	return n, nil
}
