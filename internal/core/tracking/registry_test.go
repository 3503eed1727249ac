package tracking

import (
	"errors"
	"sync"
	"testing"
	"time"

	perr "crossposter/internal/platform/errors"
	kit "crossposter/internal/platform/testkit"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCreate_GetResolve(t *testing.T) {
	r := NewRegistry()
	snap, err := r.Create("m1", "p1", "chat-9", Content{Text: "hello", Media: &Media{Kind: Photo, Locator: "f1"}}, t0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	kit.MustEqual(t, snap.State, Pending, "state")
	kit.MustEqual(t, snap.Content.Media.Locator, "f1", "media locator")

	id, err := r.ResolvePrompt("p1")
	if err != nil || id != "m1" {
		t.Fatalf("resolve = %q, %v", id, err)
	}
	got, err := r.Get("m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	kit.MustEqual(t, got.Conversation, "chat-9", "conversation")
	kit.MustEqual(t, r.Len(), 1, "len")
}

func TestCreate_Duplicates(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("m1", "p1", "c", Content{}, t0); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name, id, prompt, field string
	}{
		{"same id", "m1", "p2", "id"},
		{"same prompt", "m2", "p1", "prompt_id"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := r.Create(c.id, c.prompt, "c", Content{}, t0)
			if !errors.Is(err, ErrDuplicateID) {
				t.Fatalf("want ErrDuplicateID, got %v", err)
			}
			if !perr.IsCode(err, perr.ErrorCodeDuplicateKey) {
				t.Fatalf("want duplicate key code, got %v", perr.CodeOf(err))
			}
			if e, ok := perr.As(err); !ok || e.Field() != c.field {
				t.Fatalf("want field %q", c.field)
			}
		})
	}
	kit.MustEqual(t, r.Len(), 1, "len")
}

func TestCreate_RequiresIDs(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("", "p", "c", Content{}, t0); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	r := NewRegistry()
	media := &Media{Kind: Video, Locator: "v1"}
	if _, err := r.Create("m1", "p1", "c", Content{Text: "x", Media: media}, t0); err != nil {
		t.Fatal(err)
	}
	media.Locator = "mutated"

	_ = r.Update("m1", func(p *Post) error { p.Approve("u1"); return nil })
	s, _ := r.Get("m1")
	s.Approvers[0] = "changed"
	s.Content.Media.Locator = "changed"

	again, _ := r.Get("m1")
	kit.MustEqual(t, again.Approvers[0], "u1", "approver")
	kit.MustEqual(t, again.Content.Media.Locator, "v1", "locator")
}

func TestUpdate_ErrorsAndMissing(t *testing.T) {
	r := NewRegistry()
	if err := r.Update("nope", func(*Post) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	_, _ = r.Create("m1", "p1", "c", Content{}, t0)
	boom := errors.New("boom")
	if err := r.Update("m1", func(*Post) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("fn error should pass through, got %v", err)
	}
}

func TestApprove_SetSemantics(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Create("m1", "p1", "c", Content{}, t0)
	_ = r.Update("m1", func(p *Post) error {
		if !p.Approve("a") || p.Approve("a") || !p.Approve("b") {
			t.Fatalf("unexpected approve results")
		}
		kit.MustEqual(t, p.Approvals(), 2, "approvals")
		if !p.HasApproved("a") || p.HasApproved("z") {
			t.Fatalf("HasApproved wrong")
		}
		kit.MustEqual(t, p.Age(t0.Add(time.Minute)), time.Minute, "age")
		return nil
	})
}

func TestRemove_IdempotentAndClearsPrompt(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Create("m1", "p1", "c", Content{}, t0)
	r.Remove("m1")
	r.Remove("m1")
	if _, err := r.ResolvePrompt("p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("prompt should be gone, got %v", err)
	}
	if _, err := r.Get("m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("post should be gone, got %v", err)
	}
	// ids are reusable once removed
	if _, err := r.Create("m1", "p1", "c", Content{}, t0); err != nil {
		t.Fatalf("re-create: %v", err)
	}
}

func TestRemoveIf(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Create("m1", "p1", "c", Content{}, t0)
	if r.RemoveIf("m1", func(*Post) bool { return false }) {
		t.Fatalf("should keep")
	}
	removed := r.RemoveIf("m1", func(p *Post) bool { p.State = Expired; return true })
	if !removed || r.Len() != 0 {
		t.Fatalf("should remove")
	}
	if r.RemoveIf("m1", func(*Post) bool { return true }) {
		t.Fatalf("second remove should report false")
	}
}

func TestAll_YieldsSnapshotsAndStops(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"a", "b", "c"} {
		_, _ = r.Create(id, "p-"+id, "c", Content{}, t0)
	}
	seen := map[string]bool{}
	for s := range r.All() {
		seen[s.ID] = true
	}
	kit.MustEqual(t, len(seen), 3, "all")

	n := 0
	for range r.All() {
		n++
		break
	}
	kit.MustEqual(t, n, 1, "early stop")
}

func TestAll_ConcurrentWithUpdates(t *testing.T) {
	r := NewRegistry()
	for i := range 20 {
		id := string(rune('a' + i))
		_, _ = r.Create(id, "p"+id, "c", Content{}, t0)
	}
	var wg sync.WaitGroup
	for i := range 20 {
		id := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Update(id, func(p *Post) error {
				p.Approve("x")
				p.State = Published
				return nil
			})
		}()
	}
	for s := range r.All() {
		// a snapshot is either fully before or fully after the update
		if (s.State == Published) != (len(s.Approvers) == 1) {
			t.Fatalf("half updated snapshot: %+v", s)
		}
	}
	wg.Wait()
}

func TestState_String(t *testing.T) {
	kit.MustEqual(t, Pending.String(), "pending", "pending")
	kit.MustEqual(t, Published.String(), "published", "published")
	kit.MustEqual(t, Expired.String(), "expired", "expired")
	kit.MustEqual(t, State(9).String(), "unknown", "unknown")
	if !Photo.Valid() || MediaKind("gif").Valid() {
		t.Fatalf("media kind validity wrong")
	}
}
