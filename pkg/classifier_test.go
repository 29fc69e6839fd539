package nextver

import (
	"slices"
	"testing"

	"github.com/bcomnes/nextver/pkg/conventional"
)

func TestShouldCount(t *testing.T) {
	skip := []string{"chore", "docs"}
	tests := []struct {
		commit    string
		skipTypes []string
		expected  bool
	}{
		{"feat: add flag", skip, true},
		{"chore: bump deps", skip, false},
		{"docs(readme): typo", skip, false},
		{"chore!: drop go1.20", skip, false},
		{"Merge branch 'main'", skip, true},
		{"chore: bump deps", nil, true},
		{"", skip, true},
	}
	for _, tc := range tests {
		if got := ShouldCount(tc.commit, tc.skipTypes, conventional.ParserOptions{}); got != tc.expected {
			t.Errorf("ShouldCount(%q, %v) = %v, expected %v", tc.commit, tc.skipTypes, got, tc.expected)
		}
	}
}

func TestShouldCountCustomHeader(t *testing.T) {
	opts := conventional.ParserOptions{HeaderPattern: `^\[(\w+)\] ()(.*)$`}
	if ShouldCount("[chore] tidy", []string{"chore"}, opts) {
		t.Error("custom header type was not recognized")
	}
	if !ShouldCount("chore: tidy", []string{"chore"}, opts) {
		t.Error("commit not matching the custom header should count")
	}
}

func TestCountQualifyingKeepsOrder(t *testing.T) {
	commits := []string{"fix: one", "chore: two", "feat: three", "ci: four", "perf: five"}
	got := CountQualifying(commits, []string{"chore", "ci"}, conventional.ParserOptions{})
	want := []string{"fix: one", "feat: three", "perf: five"}
	if !slices.Equal(got, want) {
		t.Errorf("CountQualifying = %v, expected %v", got, want)
	}
	if got := CountQualifying(nil, []string{"chore"}, conventional.ParserOptions{}); len(got) != 0 {
		t.Errorf("CountQualifying(nil) = %v, expected empty", got)
	}
}
