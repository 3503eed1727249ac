package tagtext

import (
	"sync"
	"testing"

	perr "crossposter/internal/platform/errors"
	kit "crossposter/internal/platform/testkit"
)

func TestHas(t *testing.T) {
	m := MustNew(DefaultTag)
	cases := []struct {
		in   string
		want bool
	}{
		{"check this #topost", true},
		{"#ToPost at the start", true},
		{"mid #TOPOST, sentence", true},
		{"no tag here", false},
		{"#topostal is a different tag", false},
		{"topost without hash", false},
		{"", false},
	}
	for _, c := range cases {
		if got := m.Has(c.in); got != c.want {
			t.Fatalf("Has(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestStrip(t *testing.T) {
	m := MustNew(DefaultTag)
	cases := []struct {
		name, in, want string
	}{
		{"trailing", "hello world #topost", "hello world"},
		{"leading", "#topost hello", "hello"},
		{"repeated mixed case", "a #TOPOST b #topost c", "a b c"},
		{"keeps newlines", "line one #topost\n\n\nline   two", "line one\nline two"},
		{"only tag", "#topost", ""},
		{"drops zero width space", "he\u200bllo #topost", "hello"},
		{"keeps zwj emoji", "family \U0001F468\u200d\U0001F469 #topost", "family \U0001F468\u200d\U0001F469"},
		{"nfc", "cafe\u0301 #topost", "caf\u00e9"},
		{"control chars", "a\x00b\x7fc #topost", "abc"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			kit.MustEqual(t, m.Strip(c.in), c.want, "strip")
		})
	}
}

func TestNew_CustomAndInvalid(t *testing.T) {
	m, err := New("  !share ")
	if err != nil {
		t.Fatal(err)
	}
	kit.MustEqual(t, m.Tag(), "!share", "tag")
	if !m.Has("please !SHARE") {
		t.Fatalf("custom tag should match case insensitively")
	}

	for _, bad := range []string{"", "   ", "two words"} {
		_, err := New(bad)
		if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			t.Fatalf("New(%q) want invalid argument, got %v", bad, err)
		}
	}
	kit.MustPanic(t, func() { MustNew("") })
}

func TestClean_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if got := Clean("  e\u0301  x "); got != "\u00e9 x" {
					t.Errorf("Clean = %q", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestLabel(t *testing.T) {
	kit.MustEqual(t, Label("bluesky"), "Bluesky", "bluesky")
	kit.MustEqual(t, Label(" twitter "), "Twitter", "twitter")
	kit.MustEqual(t, Label("dryrun"), "Dryrun", "dryrun")
}
