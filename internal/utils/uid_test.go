package utils

import (
	"regexp"
	"testing"
)

var uidRe = regexp.MustCompile(`^action-item-[0-9a-f]{8}$`)

func TestUIDGenerator(t *testing.T) {
	g := NewUIDGenerator()
	a := g.Generate("action_item", "I'll run the API test Thursday")
	if !uidRe.MatchString(a) {
		t.Fatalf("unexpected id %q", a)
	}
	if got := g.Generate("action_item", "I'll run the API test Thursday"); got != a+"-2" {
		t.Fatalf("collision: got %q want %q", got, a+"-2")
	}
	if got := g.Generate("action_item", "I'll run the API test Thursday"); got != a+"-3" {
		t.Fatalf("second collision: got %q want %q", got, a+"-3")
	}
	if got := NewUIDGenerator().Generate("action_item", "I'll run the API test Thursday"); got != a {
		t.Fatalf("ids not stable across generators: %q vs %q", got, a)
	}
	if got := g.Generate("  ", "x"); !regexp.MustCompile(`^id-`).MatchString(got) {
		t.Fatalf("blank prefix: got %q", got)
	}
}
