// CLAUDE:SUMMARY Identifier generators: UUIDv7 run ids, short random trace ids, prefixed variants.
// Package idgen produces the identifiers deckforge hands out: run ids for the
// journal, request ids for HTTP and MCP calls, and short trace ids for logs.
package idgen

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of RFC 9562 version 7 UUIDs. They sort by
// creation time, which keeps journal rows in insertion order.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Short returns a Generator of lowercase base-36 ids of the given length.
func Short(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		for i := range buf {
			buf[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(buf)
	}
}

// Prefixed prepends prefix to every id from gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

var (
	// Run ids identify journal entries ("run_<uuidv7>").
	Run = Prefixed("run_", UUIDv7())

	// Request ids identify one HTTP or MCP call ("req_<12 chars>").
	Request = Prefixed("req_", Short(12))

	// Trace ids tag per-request log lines.
	Trace = Short(8)
)

// New returns a bare UUIDv7.
func New() string { return uuid.Must(uuid.NewV7()).String() }

// ParseRun validates a run id and returns it normalised.
func ParseRun(s string) (string, error) {
	const prefix = "run_"
	if len(s) <= len(prefix) || s[:len(prefix)] != prefix {
		return "", fmt.Errorf("idgen: run id %q lacks %q prefix", s, prefix)
	}
	u, err := uuid.Parse(s[len(prefix):])
	if err != nil {
		return "", fmt.Errorf("idgen: run id %q: %w", s, err)
	}
	return prefix + u.String(), nil
}
