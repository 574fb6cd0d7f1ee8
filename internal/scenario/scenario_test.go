package scenario

import (
	"context"
	"strings"
	"testing"

	"climaviz/internal/llm"
)

func TestGenerate(t *testing.T) {
	fake := llm.NewFakeClient().Queue(`{
		"scenario": "The Nagoya city council must decide how to spend this year's discretionary budget.",
		"budget": 100000000,
		"options": ["Repave main roads", "New school equipment", "River flood barriers", "Community sports hall"]
	}`)
	g := NewGenerator(fake)

	s, err := g.Generate(context.Background(), "Nagoya, Japan", "precipitation trends", "ja")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(s.Options) != 4 || s.Budget != 100000000 {
		t.Fatalf("unexpected scenario: %+v", s)
	}

	prompt := fake.Requests[0].Messages[0].Text
	for _, want := range []string{"Nagoya, Japan", "precipitation trends", `"ja"`} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestGenerate_RejectsIncompleteResults(t *testing.T) {
	cases := map[string]string{
		"too few options": `{"scenario": "s", "budget": 1, "options": ["a", "b"]}`,
		"empty scenario":  `{"scenario": "", "budget": 1, "options": ["a", "b", "c", "d"]}`,
		"not json":        `whoops`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			fake := llm.NewFakeClient().Queue(reply)
			if _, err := NewGenerator(fake).Generate(context.Background(), "Nagoya", "air quality", "en"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
