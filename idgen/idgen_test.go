package idgen

import (
	"strings"
	"testing"
)

func TestShort(t *testing.T) {
	for _, length := range []int{4, 8, 12} {
		id := Short(length)()
		if len(id) != length {
			t.Fatalf("Short(%d): got length %d", length, len(id))
		}
		for _, c := range id {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')) {
				t.Fatalf("Short: unexpected character %q in %q", c, id)
			}
		}
	}
}

func TestUUIDv7_SortsByTime(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	if len(prev) != 36 || strings.Count(prev, "-") != 4 {
		t.Fatalf("UUIDv7 format: %q", prev)
	}
	for i := 0; i < 100; i++ {
		id := gen()
		if id == prev {
			t.Fatalf("duplicate at %d", i)
		}
		if id[:8] < prev[:8] {
			t.Fatalf("time prefix went backwards: %s < %s", id, prev)
		}
		prev = id
	}
}

func TestRunAndRequestIDs(t *testing.T) {
	run := Run()
	if !strings.HasPrefix(run, "run_") || len(run) != 4+36 {
		t.Errorf("Run() = %q", run)
	}
	req := Request()
	if !strings.HasPrefix(req, "req_") || len(req) != 4+12 {
		t.Errorf("Request() = %q", req)
	}
	if len(Trace()) != 8 {
		t.Errorf("Trace() length")
	}
}

func TestParseRun(t *testing.T) {
	id := Run()
	got, err := ParseRun(strings.ToUpper(id[:4]) + id[4:])
	if err == nil {
		t.Errorf("uppercase prefix accepted: %q", got)
	}
	got, err = ParseRun("run_" + strings.ToUpper(id[4:]))
	if err != nil || got != id {
		t.Errorf("ParseRun upper uuid = %q, %v; want %q", got, err, id)
	}
	for _, bad := range []string{"", "run_", "run_nope", New()} {
		if _, err := ParseRun(bad); err == nil {
			t.Errorf("ParseRun(%q) accepted", bad)
		}
	}
}
