package module

import (
	"strings"
	"testing"

	phttp "crossposter/internal/platform/net/http"
	kit "crossposter/internal/platform/testkit"
)

type runner interface{ Run() int }

type runImpl struct{ v int }

func (r runImpl) Run() int { return r.v }

type fakeModule struct {
	name  string
	ports any
}

func (m fakeModule) Name() string             { return m.name }
func (m fakeModule) Ports() any               { return m.ports }
func (m fakeModule) MountRoutes(phttp.Router) {}

var _ Module = fakeModule{}

func TestPortsOf(t *testing.T) {
	t.Parallel()

	type bundle struct {
		Skip   runner
		hidden runner
		Worker runner
		Count  int
	}
	cases := []struct {
		name  string
		ports any
		want  int
		ok    bool
	}{
		{"nil", nil, 0, false},
		{"direct", runImpl{v: 1}, 1, true},
		{"struct field", bundle{Worker: runImpl{v: 2}}, 2, true},
		{"pointer bundle", &bundle{Worker: runImpl{v: 3}}, 3, true},
		{"nil pointer bundle", (*bundle)(nil), 0, false},
		{"unexported ignored", bundle{hidden: runImpl{v: 4}}, 0, false},
		{"not a struct", 42, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := PortsOf[runner](fakeModule{name: c.name, ports: c.ports})
			if ok != c.ok {
				t.Fatalf("ok = %v, want %v", ok, c.ok)
			}
			if ok && got.Run() != c.want {
				t.Fatalf("Run() = %d, want %d", got.Run(), c.want)
			}
		})
	}
}

func TestMustPortsOf_PanicsWithModuleName(t *testing.T) {
	t.Parallel()

	m := fakeModule{name: "crosspost"}
	defer func() {
		v := recover()
		if v == nil {
			t.Fatalf("expected panic")
		}
		kit.MustContain(t, v.(string), "crosspost")
		if !strings.Contains(v.(string), "runner") {
			t.Fatalf("panic should name the port type: %v", v)
		}
	}()
	MustPortsOf[runner](m)
}

func TestMustPortsOf_Found(t *testing.T) {
	t.Parallel()
	m := fakeModule{name: "x", ports: struct{ R runner }{R: runImpl{v: 9}}}
	if MustPortsOf[runner](m).Run() != 9 {
		t.Fatalf("wrong port returned")
	}
}
