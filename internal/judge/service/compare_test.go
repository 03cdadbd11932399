package service

import (
	"strings"
	"testing"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		actual   string
		expected string
		passed   bool
	}{
		{"identical", "1\n2\n3", "1\n2\n3", true},
		{"trailing spaces per line", "a \nb", "a\nb", true},
		{"crlf", "a\r\nb\r\n", "a\nb", true},
		{"surrounding blank lines", "\n\na\nb\n\n", "a\nb", true},
		{"whole text trimmed first", "  a", "a", true},
		{"inner leading whitespace significant", "a\n b", "a\nb", false},
		{"case significant", "A", "a", false},
		{"different line", "a\nb", "a\nc", false},
		{"extra line", "a\nb\nc", "a\nb", false},
		{"both empty", "  \n", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, diff := Compare(tt.actual, tt.expected)
			if passed != tt.passed {
				t.Fatalf("Compare(%q, %q) = %v, want %v", tt.actual, tt.expected, passed, tt.passed)
			}
			if passed && diff != nil {
				t.Fatalf("diff must be absent on pass, got %q", *diff)
			}
			if !passed && (diff == nil || *diff == "") {
				t.Fatalf("diff must be present on mismatch")
			}
		})
	}
}

func TestCompareReflexive(t *testing.T) {
	for _, s := range []string{"", "x", "1 2 3\n4 5 6\n", "  indented\n\tTabbed  "} {
		if passed, diff := Compare(s, s); !passed || diff != nil {
			t.Fatalf("Compare(%q, itself) = %v, %v", s, passed, diff)
		}
	}
}

func TestCompareDiffFormat(t *testing.T) {
	_, diff := Compare("a\nc", "a\nb")
	want := strings.Join([]string{
		"--- expected",
		"+++ output",
		"@@ -1,2 +1,2 @@",
		" a",
		"-b",
		"+c",
	}, "\n")
	if *diff != want {
		t.Fatalf("diff =\n%s\nwant\n%s", *diff, want)
	}
}
