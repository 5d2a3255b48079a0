package jsonutil

import (
	"errors"
	"testing"
)

func TestClean(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"fenced", "Here you go:\n```json\n[{\"a\":1}]\n```\nthanks", `[{"a":1}]`},
		{"prose around", `Sure! {"facts": []} Hope that helps.`, `{"facts": []}`},
		{"trailing commas", `[{"a":1,},]`, `[{"a":1}]`},
		{"line comment", "[\n{\"a\":1} // first\n]", "[\n{\"a\":1} \n]"},
		{"block comment", `[/* note */{"a":1}]`, `[{"a":1}]`},
		{"url survives", `{"u":"https://x.io/a"}`, `{"u":"https://x.io/a"}`},
		{"newline in string", "{\"q\":\"a\nb\"}", `{"q":"a b"}`},
		{"control chars", "[\x01{\"a\":1}]", `[{"a":1}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Clean([]byte(tc.in))
			if err != nil {
				t.Fatalf("Clean: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}

	if _, err := Clean([]byte("no json here")); !errors.Is(err, ErrNoJSON) {
		t.Fatalf("expected ErrNoJSON, got %v", err)
	}
}

func TestUnmarshalFlex(t *testing.T) {
	type fact struct {
		Content string `json:"content"`
	}

	var list []fact
	if err := UnmarshalFlex([]byte("```json\n[{\"content\":\"x\"},]\n```"), &list); err != nil {
		t.Fatalf("fenced array: %v", err)
	}
	if len(list) != 1 || list[0].Content != "x" {
		t.Fatalf("fenced array: got %+v", list)
	}

	var one fact
	if err := UnmarshalFlex([]byte(`"{\"content\":\"y\"}"`), &one); err != nil {
		t.Fatalf("wrapped string: %v", err)
	}
	if one.Content != "y" {
		t.Fatalf("wrapped string: got %+v", one)
	}

	if err := UnmarshalFlex([]byte("not json"), &one); err == nil {
		t.Fatalf("expected an error on garbage")
	}
}

func TestMarshalNoEscape(t *testing.T) {
	b, err := MarshalNoEscape(map[string]string{"k": "a<b&c"})
	if err != nil {
		t.Fatalf("MarshalNoEscape: %v", err)
	}
	if string(b) != `{"k":"a<b&c"}` {
		t.Fatalf("got %s", b)
	}

	b, err = MarshalNoEscapeIndent(map[string]int{"k": 1}, "  ")
	if err != nil {
		t.Fatalf("MarshalNoEscapeIndent: %v", err)
	}
	if string(b) != "{\n  \"k\": 1\n}" {
		t.Fatalf("got %q", b)
	}
}
