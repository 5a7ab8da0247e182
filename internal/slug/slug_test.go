package slug

import (
	"strings"
	"testing"
)

func TestMakeBasics(t *testing.T) {
	cases := map[string]string{
		"Black Holes":            "black-holes",
		"  Volcanoes!  ":         "volcanoes",
		"Sound & Echoes":         "sound-and-echoes",
		"Crème Brûlée":           "creme-brulee",
		"The   Deep--Sea":        "the-deep-sea",
		"42 Amazing Facts":       "42-amazing-facts",
		"¿Por qué? (the basics)": "por-que-the-basics",
	}
	for in, want := range cases {
		if got := Make(in); got != want {
			t.Errorf("Make(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMakeIdempotent(t *testing.T) {
	inputs := []string{
		"Black Holes",
		"Crème Brûlée & Friends",
		"---",
		"",
		"Ωμέγα",
		"tabs\tand\nnewlines",
	}
	for _, in := range inputs {
		once := Make(in)
		twice := Make(once)
		if once != twice {
			t.Errorf("Make not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestMakeTotal(t *testing.T) {
	inputs := []string{"", "!!!", "日本語", "a", strings.Repeat("é", 50)}
	for _, in := range inputs {
		got := Make(in)
		if strings.HasPrefix(got, "-") || strings.HasSuffix(got, "-") {
			t.Errorf("Make(%q) = %q has leading/trailing hyphen", in, got)
		}
		for _, r := range got {
			valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
			if !valid {
				t.Errorf("Make(%q) = %q contains %q", in, got, r)
			}
		}
	}
}
