package conventional

import (
	"context"
	"errors"
	"fmt"

	"github.com/bcomnes/nextver/pkg/gitsemver"
)

// History is the slice of version control the recommender needs.
type History interface {
	LatestTag(ctx context.Context, tagPrefix string, filter gitsemver.TagFilter) (gitsemver.Tag, error)
	Commits(ctx context.Context, path, since string) ([]string, error)
}

// Request describes which commits to analyse and under which convention.
type Request struct {
	Path         string
	TagPrefix    string
	SkipUnstable bool // Ignore prerelease tags when locating the last release.
	Preset       Preset
	Parser       ParserOptions // Overrides the preset's grammar field by field.
}

// Recommendation is the outcome of analysing a commit window.
type Recommendation struct {
	Bump    Bump
	Level   int
	Reason  string
	Commits int
}

// Recommender inspects the commits since the last release tag and recommends
// a bump category.
type Recommender struct {
	history History
}

// NewRecommender returns a Recommender reading from h.
func NewRecommender(h History) *Recommender {
	return &Recommender{history: h}
}

// Recommend analyses the commits under req.Path since the latest tag carrying
// req.TagPrefix. Without such a tag the whole history is analysed.
func (r *Recommender) Recommend(ctx context.Context, req Request) (Recommendation, error) {
	preset := req.Preset
	if preset.Name == "" {
		var err error
		if preset, err = LookupPreset(""); err != nil {
			return Recommendation{}, err
		}
	}

	since := ""
	tag, err := r.history.LatestTag(ctx, req.TagPrefix, gitsemver.TagFilter{IncludePrerelease: !req.SkipUnstable})
	switch {
	case err == nil:
		since = tag.Name
	case errors.Is(err, gitsemver.ErrNoTag):
	default:
		return Recommendation{}, fmt.Errorf("locating last release tag: %w", err)
	}

	messages, err := r.history.Commits(ctx, req.Path, since)
	if err != nil {
		return Recommendation{}, fmt.Errorf("reading commits: %w", err)
	}

	opts := req.Parser.Merge(preset.Parser)
	commits := make([]Commit, 0, len(messages))
	for _, msg := range messages {
		c, err := Parse(msg, opts)
		if err != nil {
			return Recommendation{}, err
		}
		commits = append(commits, c)
	}

	bump, level, reason := preset.WhatBump(commits)
	return Recommendation{Bump: bump, Level: level, Reason: reason, Commits: len(commits)}, nil
}
