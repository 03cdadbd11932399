package service

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

const diffContext = 3

// Compare reports whether actual matches expected after normalisation.
// Both texts are trimmed as a whole and every line is right-trimmed, so only
// trailing whitespace and line endings are ignored. Leading whitespace and case
// are significant. On mismatch a unified diff (expected against actual) is
// returned for display; it never influences the outcome.
func Compare(actual, expected string) (bool, *string) {
	a := normalizeLines(actual)
	e := normalizeLines(expected)
	if equalLines(a, e) {
		return true, nil
	}
	diff := unifiedDiff(e, a)
	return false, &diff
}

// Diff renders the unified diff between expected and actual as Compare would.
func Diff(expected, actual string) string {
	return unifiedDiff(normalizeLines(expected), normalizeLines(actual))
}

func normalizeLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRightFunc(l, unicode.IsSpace)
	}
	return lines
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func unifiedDiff(expected, actual []string) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        withNewlines(expected),
		B:        withNewlines(actual),
		FromFile: "expected",
		ToFile:   "output",
		Context:  diffContext,
	})
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(text, "\n")
}

func withNewlines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + "\n"
	}
	return out
}
