package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	perr "crossposter/internal/platform/errors"
	kit "crossposter/internal/platform/testkit"
)

func TestPublicAddr(t *testing.T) {
	cases := []struct {
		ip   string
		want bool
	}{
		{"8.8.8.8", true},
		{"2606:4700::1111", true},
		{"127.0.0.1", false},
		{"::1", false},
		{"10.1.2.3", false},
		{"172.16.0.9", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"fd00::1", false},
		{"fe80::1", false},
		{"::ffff:127.0.0.1", false},
		{"224.0.0.1", false},
	}
	for _, c := range cases {
		kit.MustEqual(t, PublicAddr(netip.MustParseAddr(c.ip)), c.want, c.ip)
	}
}

func TestPublicControl(t *testing.T) {
	if err := publicControl("tcp", "93.184.216.34:443", nil); err != nil {
		t.Fatalf("public address refused: %v", err)
	}
	for _, addr := range []string{"127.0.0.1:80", "[::1]:443", "169.254.169.254:80", "nonsense"} {
		if err := publicControl("tcp", addr, nil); !errors.Is(err, ErrBlockedAddress) {
			t.Fatalf("%s: want ErrBlockedAddress, got %v", addr, err)
		}
	}
}

func TestDo_PublicOnlyRefusesLoopback(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("secret"))
	}))
	defer srv.Close()

	c := New(Options{Name: "media", MaxRetries: 2, RetryBase: time.Millisecond, NoBreaker: true, PublicOnly: true})
	_, err := c.Do(context.Background(), Request{Path: srv.URL + "/latest/meta-data"})
	if !perr.IsCode(err, perr.ErrorCodeForbidden) {
		t.Fatalf("want forbidden, got %v", err)
	}
	kit.MustEqual(t, hits.Load(), int32(0), "server never reached")
}
