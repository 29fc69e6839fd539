package nextver

import (
	"slices"

	"github.com/bcomnes/nextver/pkg/conventional"
)

// ShouldCount reports whether commit counts toward a release. Commits whose
// type is listed in skipTypes do not; commits without a recognizable type do.
func ShouldCount(commit string, skipTypes []string, opts conventional.ParserOptions) bool {
	if len(skipTypes) == 0 {
		return true
	}
	parsed, err := conventional.Parse(commit, opts)
	if err != nil || parsed.Type == "" {
		return true
	}
	return !slices.Contains(skipTypes, parsed.Type)
}

// CountQualifying returns the commits that ShouldCount accepts, in order.
func CountQualifying(commits []string, skipTypes []string, opts conventional.ParserOptions) []string {
	qualifying := make([]string, 0, len(commits))
	for _, c := range commits {
		if ShouldCount(c, skipTypes, opts) {
			qualifying = append(qualifying, c)
		}
	}
	return qualifying
}
