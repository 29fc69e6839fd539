package nextver

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bcomnes/nextver/pkg/conventional"
	"github.com/bcomnes/nextver/pkg/gitsemver"
)

// DependencyKind tags every DependencyUpdate.
const DependencyKind = "dependency"

// DependencyRoot is a sub-project the primary project depends on.
type DependencyRoot struct {
	ProjectRoot string `json:"projectRoot" yaml:"path"`
	Name        string `json:"name" yaml:"name"`
}

// DependencyUpdate reports whether a dependency changed inside the primary
// project's release window. An empty Version means no qualifying change.
type DependencyUpdate struct {
	Kind           string `json:"type"`
	DependencyName string `json:"dependencyName"`
	Version        string `json:"version,omitempty"`
}

// IsNewVersion reports whether u carries a real version, i.e. one that can
// justify a release of the primary project.
func (u DependencyUpdate) IsNewVersion() bool {
	return u.Version != "" && u.Version != InitialVersion
}

// DependencyRequest holds the inputs of ResolveDependencyUpdates.
type DependencyRequest struct {
	Roots            []DependencyRoot
	AnchorRef        string // Commit range start of the primary project.
	Preset           conventional.Preset
	Parser           conventional.ParserOptions
	ReleaseType      ReleaseType
	VersionTagPrefix *string
	SyncVersions     bool
	SkipCommitTypes  []string
	Preid            string
	SkipUnstable     bool
}

// ResolveDependencyUpdates resolves every dependency root concurrently and
// returns one update per root, in input order.
//
// A dependency only matters when it has qualifying commits after AnchorRef. A
// dependency that was never tagged then gets a fresh commit-driven bump; an
// already tagged one reports its existing last version, on the assumption
// that it was versioned by an earlier pass of the same release run.
func (e *Engine) ResolveDependencyUpdates(ctx context.Context, req DependencyRequest) ([]DependencyUpdate, error) {
	return e.newSession().dependencyUpdates(ctx, req)
}

func (s *session) dependencyUpdates(ctx context.Context, req DependencyRequest) ([]DependencyUpdate, error) {
	updates := make([]DependencyUpdate, len(req.Roots))
	if len(req.Roots) == 0 {
		return updates, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, root := range req.Roots {
		g.Go(func() error {
			u, err := s.dependencyUpdate(gctx, root, req)
			if err != nil {
				return fmt.Errorf("dependency %s: %w", root.Name, err)
			}
			updates[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return updates, nil
}

func (s *session) dependencyUpdate(ctx context.Context, root DependencyRoot, req DependencyRequest) (DependencyUpdate, error) {
	update := DependencyUpdate{Kind: DependencyKind, DependencyName: root.Name}
	tagPrefix := gitsemver.FormatTagPrefix(req.VersionTagPrefix, root.Name, req.SyncVersions)

	w, err := s.window(ctx, WindowRequest{
		TagPrefix:   tagPrefix,
		ProjectRoot: root.ProjectRoot,
		ReleaseType: req.ReleaseType,
		Since:       req.AnchorRef,
		Preid:       req.Preid,
	})
	if err != nil {
		return update, err
	}

	parser := req.Parser.Merge(req.Preset.Parser)
	if len(CountQualifying(w.Commits, req.SkipCommitTypes, parser)) == 0 {
		return update, nil
	}

	if w.LastVersion != InitialVersion {
		update.Version = w.LastVersion
		return update, nil
	}

	version, err := s.engine.AutoBump(ctx, AutoBumpRequest{
		Since:        w.LastVersion,
		Preset:       req.Preset,
		Parser:       req.Parser,
		ProjectRoot:  root.ProjectRoot,
		TagPrefix:    tagPrefix,
		ReleaseType:  req.ReleaseType,
		Preid:        req.Preid,
		SkipUnstable: req.SkipUnstable,
	})
	if errors.Is(err, ErrInvalidVersion) {
		return update, nil
	}
	if err != nil {
		return update, err
	}
	update.Version = version
	return update, nil
}
