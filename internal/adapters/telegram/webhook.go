package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/logger"
	phttp "crossposter/internal/platform/net/http"
)

const (
	secretHeader   = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBytes = 1 << 20
)

// Webhook receives updates pushed by Telegram
// Updates are acknowledged at once and handled on base, outliving the request
type Webhook struct {
	base   context.Context
	h      Handler
	secret string
	wg     sync.WaitGroup
	log    logger.Logger
}

// NewWebhook builds the receiver; an empty secret accepts any caller
func NewWebhook(base context.Context, h Handler, secret string) *Webhook {
	return &Webhook{base: base, h: h, secret: secret, log: *logger.Named("telegram-webhook")}
}

// ServeHTTP implements http.Handler
func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if w.secret != "" {
		got := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(w.secret)) != 1 {
			phttp.RespondError(rw, r, perr.Unauthorizedf("bad webhook secret"))
			return
		}
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBytes))
	if err != nil {
		phttp.RespondError(rw, r, perr.Wrap(err, perr.ErrorCodeJSON, "read update"))
		return
	}
	var u Update
	if err := json.Unmarshal(body, &u); err != nil {
		phttp.RespondError(rw, r, perr.Wrap(err, perr.ErrorCodeJSON, "decode update"))
		return
	}
	w.wg.Go(func() { w.h.Handle(w.base, u) })
	phttp.RespondOK(rw, r, nil)
}

// Wait blocks until every accepted update has been handled
func (w *Webhook) Wait() { w.wg.Wait() }
