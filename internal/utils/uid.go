package utils

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// UIDGenerator creates stable IDs from a prefix and a content key and
// resolves collisions. Shape: "<slug>-<hash>" or "<slug>-<hash>-N".
// The same inputs give the same ID across runs, which keeps discard logs
// comparable. Not safe for concurrent use.
type UIDGenerator struct {
	used    map[string]struct{}
	counter map[string]int
}

func NewUIDGenerator() *UIDGenerator {
	return &UIDGenerator{
		used:    map[string]struct{}{},
		counter: map[string]int{},
	}
}

// Generate returns a unique ID for (prefix, key).
func (g *UIDGenerator) Generate(prefix, key string) string {
	slug := slugifyASCII(prefix)
	if slug == "" {
		slug = "id"
	}
	base := fmt.Sprintf("%s-%s", slug, shortHashHex(strings.TrimSpace(key)))
	if _, ok := g.used[base]; !ok {
		g.used[base] = struct{}{}
		g.counter[base] = 1
		return base
	}
	n := g.counter[base]
	for {
		n++
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, exists := g.used[candidate]; exists {
			continue
		}
		g.used[candidate] = struct{}{}
		g.counter[base] = n
		return candidate
	}
}

func shortHashHex(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%08x", uint32(h.Sum64()&0xffffffff))
}

func slugifyASCII(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
