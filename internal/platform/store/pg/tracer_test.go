package pg

import (
	"bytes"
	"context"
	"errors"
	"testing"

	kit "crossposter/internal/platform/testkit"

	"github.com/rs/zerolog"
)

func TestCompact(t *testing.T) {
	in := "SELECT  a,\n\tb\r\n FROM   crosspost_dispatches "
	if got := compact(in); got != "SELECT a, b FROM crosspost_dispatches" {
		t.Fatalf("compact = %q", got)
	}
}

func TestTracer_LogsEvenAboveRootLevel(t *testing.T) {
	var buf bytes.Buffer
	root := zerolog.New(&buf).Level(zerolog.ErrorLevel)
	tr := Tracer(root)

	tr.OnQuery(context.Background(), QueryEvent{SQL: "INSERT\n INTO x", ElapsedUS: 1500})
	tr.OnQuery(context.Background(), QueryEvent{SQL: "SELECT 1", Slow: true, Err: errors.New("late")})

	out := buf.String()
	kit.MustContain(t, out, `"sql":"INSERT INTO x"`)
	kit.MustContain(t, out, `"elapsed_ms":1.5`)
	kit.MustContain(t, out, `"level":"warn"`)
	kit.MustContain(t, out, `"component":"pg"`)
}
