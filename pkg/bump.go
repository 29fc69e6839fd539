package nextver

import (
	"context"

	"github.com/bcomnes/nextver/pkg/conventional"
)

// ManualBump increments since by an operator-chosen release type, ignoring
// commit history entirely. An un-incrementable since yields ErrInvalidVersion.
func ManualBump(since string, releaseType ReleaseType, preid string) (string, error) {
	return Increment(since, releaseType, preid)
}

// AutoBumpRequest holds the inputs of a commit-driven bump.
type AutoBumpRequest struct {
	Since        string
	Preset       conventional.Preset
	Parser       conventional.ParserOptions
	ProjectRoot  string
	TagPrefix    string
	ReleaseType  ReleaseType // Empty or Prerelease.
	Preid        string
	SkipUnstable bool
}

// AutoBump increments req.Since by the category recommended for the project's
// commits. It returns "" with a nil error when no bump is recommended and
// ErrInvalidVersion when the increment is impossible. Recommender failures are
// returned as is.
func (e *Engine) AutoBump(ctx context.Context, req AutoBumpRequest) (string, error) {
	rec, err := e.recommender.Recommend(ctx, conventional.Request{
		Path:         req.ProjectRoot,
		TagPrefix:    req.TagPrefix,
		SkipUnstable: req.SkipUnstable,
		Preset:       req.Preset,
		Parser:       req.Parser,
	})
	if err != nil {
		return "", err
	}
	if rec.Bump == conventional.BumpNone {
		e.logger.Debug("no bump recommended", "projectRoot", req.ProjectRoot, "tagPrefix", req.TagPrefix)
		return "", nil
	}

	effective := effectiveReleaseType(ReleaseType(rec.Bump), req.ReleaseType, req.Since)
	e.logger.Debug("bump recommended",
		"projectRoot", req.ProjectRoot,
		"recommended", string(rec.Bump),
		"effective", string(effective),
		"reason", rec.Reason,
	)
	return Increment(req.Since, effective, req.Preid)
}

// effectiveReleaseType applies the prerelease-chain rule. A stable version
// cannot enter a prerelease train without naming the component to pre-bump,
// so "prerelease" becomes pre<recommended>; inside a train it only advances
// the counter.
func effectiveReleaseType(recommended, requested ReleaseType, since string) ReleaseType {
	if requested != Prerelease {
		return recommended
	}
	if IsPrerelease(since) {
		return Prerelease
	}
	return recommended.Pre()
}
