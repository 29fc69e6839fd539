package nextver

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bcomnes/nextver/pkg/conventional"
)

// ErrDowngrade is returned when a computed version sorts below the previous one.
var ErrDowngrade = errors.New("computed version is lower than the previous version")

// Options is everything TryBump needs to know about a project.
type Options struct {
	ParserOptions     conventional.ParserOptions
	Preset            conventional.Preset // Zero value selects conventionalcommits.
	ProjectRoot       string
	TagPrefix         string
	DependencyRoots   []DependencyRoot
	ReleaseType       ReleaseType // Empty for a commit-driven release.
	Preid             string
	SkipUnstable      bool
	SyncVersions      bool
	AllowEmptyRelease bool
	VersionTagPrefix  *string
	SkipCommitTypes   []string
	ProjectName       string
}

// NewVersion is a release to make.
type NewVersion struct {
	Version           string             `json:"version"`
	PreviousVersion   string             `json:"previousVersion"`
	DependencyUpdates []DependencyUpdate `json:"dependencyUpdates"`
}

// Outcome names the branch that produced a Decision.
type Outcome int

const (
	OutcomeSkip         Outcome = iota // Nothing to release.
	OutcomeManual                      // Release type dictated by the caller.
	OutcomeCommits                     // Bump recommended by the project's commits.
	OutcomeDependencies                // Patch forced by dependency updates alone.
	OutcomeUnchanged                   // Release allowed with the last version unchanged.
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkip:
		return "skip"
	case OutcomeManual:
		return "manual"
	case OutcomeCommits:
		return "commits"
	case OutcomeDependencies:
		return "dependencies"
	case OutcomeUnchanged:
		return "unchanged"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Decision is the result of Decide. Release is nil exactly when Outcome is
// OutcomeSkip.
type Decision struct {
	Outcome Outcome
	Release *NewVersion
	Reason  string
}

func skip(reason string) Decision {
	return Decision{Outcome: OutcomeSkip, Reason: reason}
}

// TryBump returns the next version of the project, or nil when no release is
// warranted. A nil result is not the same as an unchanged version: callers
// must skip the release entirely.
func (e *Engine) TryBump(ctx context.Context, opts Options) (*NewVersion, error) {
	d, err := e.Decide(ctx, opts)
	if err != nil {
		return nil, err
	}
	return d.Release, nil
}

// Decide is TryBump with the reasoning attached.
func (e *Engine) Decide(ctx context.Context, opts Options) (Decision, error) {
	if _, err := ParseReleaseType(string(opts.ReleaseType)); err != nil {
		return Decision{}, err
	}
	preset := opts.Preset
	if preset.Name == "" {
		var err error
		if preset, err = conventional.LookupPreset(""); err != nil {
			return Decision{}, err
		}
	}

	primaryReq := WindowRequest{
		TagPrefix:   opts.TagPrefix,
		ProjectRoot: opts.ProjectRoot,
		ReleaseType: opts.ReleaseType,
		Preid:       opts.Preid,
	}

	var d Decision
	if opts.ReleaseType != "" && opts.ReleaseType != Prerelease {
		// Manual releases only need the last tag, never the commits.
		last, err := e.lastVersion(ctx, primaryReq)
		if err != nil {
			return Decision{}, err
		}
		d = decideManual(last, opts)
	} else {
		s := e.newSession()
		primary, err := s.window(ctx, primaryReq)
		if err != nil {
			return Decision{}, err
		}
		if d, err = e.decideAutomatic(ctx, s, primary, opts, preset); err != nil {
			return Decision{}, err
		}
	}

	if d.Release != nil && compareVersions(d.Release.Version, d.Release.PreviousVersion) < 0 {
		return Decision{}, fmt.Errorf("%w: %s < %s", ErrDowngrade, d.Release.Version, d.Release.PreviousVersion)
	}
	e.logDecision(opts, d)
	return d, nil
}

func decideManual(lastVersion string, opts Options) Decision {
	version, err := ManualBump(lastVersion, opts.ReleaseType, opts.Preid)
	if err != nil {
		return skip(fmt.Sprintf("cannot apply %s to %s: %v", opts.ReleaseType, lastVersion, err))
	}
	return Decision{
		Outcome: OutcomeManual,
		Release: &NewVersion{
			Version:           version,
			PreviousVersion:   lastVersion,
			DependencyUpdates: []DependencyUpdate{},
		},
		Reason: fmt.Sprintf("release type %s requested", opts.ReleaseType),
	}
}

func (e *Engine) decideAutomatic(ctx context.Context, s *session, primary Window, opts Options, preset conventional.Preset) (Decision, error) {
	var (
		projectVersion string
		invalid        bool
		dependencies   []DependencyUpdate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := e.AutoBump(gctx, AutoBumpRequest{
			Since:        primary.LastVersion,
			Preset:       preset,
			Parser:       opts.ParserOptions,
			ProjectRoot:  opts.ProjectRoot,
			TagPrefix:    opts.TagPrefix,
			ReleaseType:  opts.ReleaseType,
			Preid:        opts.Preid,
			SkipUnstable: opts.SkipUnstable,
		})
		if errors.Is(err, ErrInvalidVersion) {
			invalid = true
			return nil
		}
		projectVersion = v
		return err
	})
	g.Go(func() error {
		updates, err := s.dependencyUpdates(gctx, DependencyRequest{
			Roots:            opts.DependencyRoots,
			AnchorRef:        primary.CommitRangeRef,
			Preset:           preset,
			Parser:           opts.ParserOptions,
			ReleaseType:      opts.ReleaseType,
			VersionTagPrefix: opts.VersionTagPrefix,
			SyncVersions:     opts.SyncVersions,
			SkipCommitTypes:  opts.SkipCommitTypes,
			Preid:            opts.Preid,
			SkipUnstable:     opts.SkipUnstable,
		})
		dependencies = updates
		return err
	})
	if err := g.Wait(); err != nil {
		return Decision{}, err
	}

	if invalid {
		return skip(fmt.Sprintf("version %s cannot be incremented", primary.LastVersion)), nil
	}

	updates := make([]DependencyUpdate, 0, len(dependencies))
	for _, u := range dependencies {
		if u.IsNewVersion() {
			updates = append(updates, u)
		}
	}

	release := &NewVersion{
		Version:           projectVersion,
		PreviousVersion:   primary.LastVersion,
		DependencyUpdates: updates,
	}
	d := Decision{Outcome: OutcomeCommits, Release: release, Reason: "commits since " + primary.CommitRangeRef}

	switch {
	case projectVersion == "" && len(updates) > 0:
		version, err := ManualBump(primary.LastVersion, Patch, opts.Preid)
		if err != nil {
			return skip(fmt.Sprintf("cannot patch %s for dependency updates: %v", primary.LastVersion, err)), nil
		}
		release.Version = version
		d.Outcome = OutcomeDependencies
		d.Reason = fmt.Sprintf("%d dependency update(s)", len(updates))
	case projectVersion == "":
		release.Version = primary.LastVersion
		d.Outcome = OutcomeUnchanged
		d.Reason = "no bump recommended"
	}

	parser := opts.ParserOptions.Merge(preset.Parser)
	if len(updates) == 0 && !opts.AllowEmptyRelease && len(CountQualifying(primary.Commits, opts.SkipCommitTypes, parser)) == 0 {
		return skip("no release-worthy commits or dependency updates"), nil
	}
	return d, nil
}

func (e *Engine) logDecision(opts Options, d Decision) {
	attrs := []any{
		"project", opts.ProjectName,
		"outcome", d.Outcome.String(),
		"reason", d.Reason,
	}
	if d.Release != nil {
		attrs = append(attrs, "previousVersion", d.Release.PreviousVersion, "version", d.Release.Version)
	}
	e.logger.Info("release decision", attrs...)
}
