package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWebhook(t *testing.T) {
	cases := []struct {
		name   string
		secret string
		header string
		body   string
		status int
		seen   bool
	}{
		{"accepted", "sek", "sek", `{"update_id":5}`, http.StatusOK, true},
		{"no secret configured", "", "", `{"update_id":5}`, http.StatusOK, true},
		{"wrong secret", "sek", "nope", `{"update_id":5}`, http.StatusUnauthorized, false},
		{"missing secret", "sek", "", `{"update_id":5}`, http.StatusUnauthorized, false},
		{"bad json", "", "", `{"update_id":`, http.StatusBadRequest, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := &countingHandler{}
			wh := NewWebhook(context.Background(), h, c.secret)
			req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(c.body))
			if c.header != "" {
				req.Header.Set("X-Telegram-Bot-Api-Secret-Token", c.header)
			}
			rec := httptest.NewRecorder()
			wh.ServeHTTP(rec, req)
			wh.Wait()

			if rec.Code != c.status {
				t.Fatalf("status = %d, want %d", rec.Code, c.status)
			}
			_, ok := h.seen.Load(int64(5))
			if ok != c.seen {
				t.Fatalf("handled = %v, want %v", ok, c.seen)
			}
		})
	}
}
