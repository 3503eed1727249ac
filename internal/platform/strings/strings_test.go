package strings

import (
	"testing"

	kit "crossposter/internal/platform/testkit"
)

func TestIfEmpty(t *testing.T) {
	if got := IfEmpty(nil, []string{"dryrun"}); len(got) != 1 || got[0] != "dryrun" {
		t.Fatalf("IfEmpty default = %v", got)
	}
	if got := IfEmpty([]int{1, 2}, []int{9}); len(got) != 2 {
		t.Fatalf("IfEmpty kept = %v", got)
	}
}

func TestMustString(t *testing.T) {
	if MustString("x", "token") != "x" {
		t.Fatalf("MustString mismatch")
	}
	kit.MustPanic(t, func() { MustString("  ", "token") })
}

func TestMustPrefix(t *testing.T) {
	cases := map[string]string{
		"api/v1":    "/api/v1",
		" /posts/ ": "/posts",
		"/metrics":  "/metrics",
	}
	for in, want := range cases {
		if got := MustPrefix(in); got != want {
			t.Fatalf("MustPrefix(%q) = %q, want %q", in, got, want)
		}
	}
	kit.MustPanic(t, func() { MustPrefix(" / ") })
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "hello"},
		{"héllo wörld", 7, "héllo w"},
		{"🚀🚀🚀", 2, "🚀🚀"},
		{"anything", 0, "anything"},
		{"", 3, ""},
	}
	for _, c := range cases {
		if got := Truncate(c.in, c.max); got != c.want {
			t.Fatalf("Truncate(%q,%d) = %q, want %q", c.in, c.max, got, c.want)
		}
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold("Shipping today #ToPost", "#topost") {
		t.Fatalf("ContainsFold should match case-insensitively")
	}
	if ContainsFold("nothing here", "#topost") {
		t.Fatalf("ContainsFold false positive")
	}
}

func TestSQLNull(t *testing.T) {
	if SQLNull(" ") != nil {
		t.Fatalf("blank should be nil")
	}
	if SQLNull("x") != "x" {
		t.Fatalf("value should pass through")
	}
}
