package scrub

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCleanStripsBracketedMarkup(t *testing.T) {
	t.Parallel()

	cleaner, err := NewCleaner("")
	if err != nil {
		t.Fatalf("NewCleaner: %v", err)
	}

	cases := []struct {
		input string
		want  string
	}{
		{"[sighs] Fine, go ahead.", "Fine, go ahead."},
		{"Look [pause] I only have a minute.", "Look I only have a minute."},
		{"[static]", ""},
		{"  plain   text  ", "plain text"},
		{"", ""},
		{"a [b] c [d] e", "a c e"},
	}

	for _, tc := range cases {
		if got := cleaner.Clean(tc.input); got != tc.want {
			t.Fatalf("Clean(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestCleanerAppliesSubstitutions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scrub.rules")
	contents := "# fixes\numm -> \nteh -> the\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	cleaner, err := NewCleaner(path)
	if err != nil {
		t.Fatalf("NewCleaner: %v", err)
	}

	if got := cleaner.Clean("umm teh budget is tight"); got != "the budget is tight" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestCleanerMissingRulesFileIsNotAnError(t *testing.T) {
	t.Parallel()

	cleaner, err := NewCleaner(filepath.Join(t.TempDir(), "absent.rules"))
	if err != nil {
		t.Fatalf("missing rules file must not fail: %v", err)
	}
	if got := cleaner.Clean("[hm] ok"); got != "ok" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestCleanerRejectsMalformedRules(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scrub.rules")
	if err := os.WriteFile(path, []byte("no arrow here\n"), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	if _, err := NewCleaner(path); err == nil {
		t.Fatalf("expected a parse error")
	}
}
