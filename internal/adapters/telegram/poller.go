package telegram

import (
	"context"
	"time"

	"crossposter/internal/platform/logger"

	"golang.org/x/sync/errgroup"
)

// UpdateSource is the long poll half of the Bot API
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
	DeleteWebhook(ctx context.Context) error
}

// Poller feeds getUpdates batches to a Handler
type Poller struct {
	src     UpdateSource
	h       Handler
	timeout time.Duration
	workers int
	backoff time.Duration
	maxWait time.Duration
	log     logger.Logger
}

// NewPoller builds a poller; workers bounds concurrent handling within a batch
func NewPoller(src UpdateSource, h Handler, timeout time.Duration, workers int) *Poller {
	return &Poller{
		src:     src,
		h:       h,
		timeout: timeout,
		workers: max(workers, 1),
		backoff: time.Second,
		maxWait: 30 * time.Second,
		log:     *logger.Named("telegram-poll"),
	}
}

// Run polls until ctx is done and returns ctx.Err()
func (p *Poller) Run(ctx context.Context) error {
	if err := p.src.DeleteWebhook(ctx); err != nil {
		p.log.Warn().Err(err).Msg("delete webhook failed; polling anyway")
	}
	p.log.Info().Dur("timeout", p.timeout).Int("workers", p.workers).Msg("polling started")

	var offset int64
	wait := p.backoff
	for {
		updates, err := p.src.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn().Err(err).Dur("retry_in", wait).Msg("get updates failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait = min(wait*2, p.maxWait)
			continue
		}
		wait = p.backoff

		var g errgroup.Group
		g.SetLimit(p.workers)
		for _, u := range updates {
			offset = max(offset, u.UpdateID+1)
			g.Go(func() error {
				p.h.Handle(ctx, u)
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
