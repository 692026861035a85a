// Package scrub normalizes transcript text before it reaches history or
// the UI: bracketed control annotations (stage directions, system tags)
// are stripped, optional user substitution rules are applied, and
// whitespace is collapsed.
package scrub

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	markupPattern     = regexp.MustCompile(`\[[^\[\]]*\]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

type substitution struct {
	from string
	to   string
}

// Cleaner applies the control-markup strip plus optional deterministic
// substitutions loaded from a rules file.
type Cleaner struct {
	subs []substitution
}

// NewCleaner loads substitutions from path. An empty or missing path
// yields a cleaner that only strips markup.
func NewCleaner(path string) (*Cleaner, error) {
	if strings.TrimSpace(path) == "" {
		return &Cleaner{}, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Cleaner{}, nil
		}
		return nil, fmt.Errorf("failed to read substitutions file %q: %w", path, err)
	}

	subs, err := parseSubstitutions(string(contents))
	if err != nil {
		return nil, fmt.Errorf("failed to parse substitutions file %q: %w", path, err)
	}
	return &Cleaner{subs: subs}, nil
}

// Clean strips bracketed annotations, applies substitutions, and trims.
// The result may be empty, in which case callers drop the utterance.
func (c *Cleaner) Clean(text string) string {
	out := markupPattern.ReplaceAllString(text, " ")
	for _, sub := range c.subs {
		out = strings.ReplaceAll(out, sub.from, sub.to)
	}
	out = whitespacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// parseSubstitutions reads "from -> to" lines; blank lines and #-comments
// are skipped.
func parseSubstitutions(contents string) ([]substitution, error) {
	var subs []substitution
	for index, raw := range strings.Split(contents, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		from, to, found := strings.Cut(line, "->")
		if !found {
			return nil, fmt.Errorf("line %d: expected \"from -> to\"", index+1)
		}
		from = strings.TrimSpace(from)
		if from == "" {
			return nil, fmt.Errorf("line %d: empty match text", index+1)
		}
		subs = append(subs, substitution{from: from, to: strings.TrimSpace(to)})
	}
	return subs, nil
}
