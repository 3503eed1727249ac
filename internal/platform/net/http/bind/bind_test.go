package bind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "crossposter/internal/platform/errors"
)

type candidateIn struct {
	ID       string `json:"id" validate:"required"`
	PromptID string `json:"prompt_id" validate:"required"`
	Text     string `json:"text" validate:"max=20"`
}

func req(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/v1/candidates", strings.NewReader(body))
}

func TestParseJSON_OK(t *testing.T) {
	got, err := ParseJSON[candidateIn](req(`{"id":"m1","prompt_id":"p1","text":"hello"}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if got.ID != "m1" || got.PromptID != "p1" || got.Text != "hello" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseJSON_Errors(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		code  perr.ErrorCode
		field string
		msg   string
	}{
		{name: "empty", body: ``, code: perr.ErrorCodeJSON, msg: "empty body"},
		{name: "malformed", body: `{"id":`, code: perr.ErrorCodeJSON, msg: "invalid JSON"},
		{name: "unknown field", body: `{"id":"a","prompt_id":"b","extra":1}`, code: perr.ErrorCodeJSON, msg: "unknown field"},
		{name: "trailing", body: `{"id":"a","prompt_id":"b"}{}`, code: perr.ErrorCodeJSON, msg: "trailing"},
		{name: "required", body: `{"id":"a"}`, code: perr.ErrorCodeValidation, field: "prompt_id", msg: "prompt_id is a required field"},
		{name: "max", body: `{"id":"a","prompt_id":"b","text":"this text is far too long"}`, code: perr.ErrorCodeValidation, field: "text", msg: "text must be at most 20"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseJSON[candidateIn](req(c.body))
			if err == nil {
				t.Fatalf("expected error")
			}
			e, ok := perr.As(err)
			if !ok || e.Code() != c.code {
				t.Fatalf("code = %v, want %v (%v)", perr.CodeOf(err), c.code, err)
			}
			if e.Field() != c.field {
				t.Fatalf("field = %q, want %q", e.Field(), c.field)
			}
			if !strings.Contains(err.Error(), c.msg) {
				t.Fatalf("message %q missing %q", err.Error(), c.msg)
			}
		})
	}
}

func TestParseJSON_MaxBytes(t *testing.T) {
	_, err := ParseJSON[candidateIn](req(`{"id":"a","prompt_id":"b"}`), JSONOptions{MaxBytes: 8})
	if !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("expected JSON error for truncated body, got %v", err)
	}
}

func TestValidate_Settings(t *testing.T) {
	type settings struct {
		Threshold int `json:"threshold" validate:"min=1"`
	}
	if err := Validate(settings{Threshold: 1}); err != nil {
		t.Fatalf("Validate ok: %v", err)
	}
	err := Validate(settings{Threshold: 0})
	if e, ok := perr.As(err); !ok || e.Field() != "threshold" || e.Message() != "threshold must be at least 1" {
		t.Fatalf("Validate = %v", err)
	}
	if !perr.IsCode(Validate(42), perr.ErrorCodeUnknown) {
		t.Fatalf("non-struct should be an internal error")
	}
}
