package nextver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/bcomnes/nextver/pkg/gitsemver"
)

// Window is a project's last version and the commits made since.
type Window struct {
	LastVersion    string   // InitialVersion when the project was never tagged.
	CommitRangeRef string   // Tag of LastVersion, or the first commit.
	Commits        []string // Raw messages since CommitRangeRef, oldest first. Whole history when untagged.
}

// WindowRequest identifies the window to resolve.
type WindowRequest struct {
	TagPrefix   string
	ProjectRoot string
	ReleaseType ReleaseType // Prerelease makes prerelease tags eligible as the last version.
	Since       string      // Overrides the commit-fetch start only.
	Preid       string
}

func (r WindowRequest) key() string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%s", r.TagPrefix, r.ProjectRoot, r.ReleaseType, r.Preid, r.Since)
}

// ResolveWindow looks up the last version of a project and the commits since.
//
// A project without a matching tag falls back to InitialVersion with a warning,
// and its window covers the whole history, first commit included. Any other
// failure is returned unchanged.
func (e *Engine) ResolveWindow(ctx context.Context, req WindowRequest) (Window, error) {
	return e.newSession().window(ctx, req)
}

func (e *Engine) resolveWindow(ctx context.Context, req WindowRequest) (Window, error) {
	last, err := e.lastVersion(ctx, req)
	if err != nil {
		return Window{}, err
	}

	var ref string
	if last == InitialVersion {
		if ref, err = e.history.FirstCommit(ctx); err != nil {
			return Window{}, err
		}
	} else {
		ref = gitsemver.FormatTag(req.TagPrefix, last)
	}

	since := ref
	if req.Since != "" {
		since = req.Since
	}
	// A range starting at the first commit would leave the first commit out.
	if last == InitialVersion && since == ref {
		since = ""
	}
	commits, err := e.history.Commits(ctx, req.ProjectRoot, since)
	if err != nil {
		return Window{}, err
	}
	return Window{LastVersion: last, CommitRangeRef: ref, Commits: commits}, nil
}

// lastVersion returns the project's last tagged version, or InitialVersion
// with a warning when the project was never tagged.
func (e *Engine) lastVersion(ctx context.Context, req WindowRequest) (string, error) {
	filter := gitsemver.TagFilter{IncludePrerelease: req.ReleaseType == Prerelease, Preid: req.Preid}
	last, err := e.history.LastTaggedVersion(ctx, req.TagPrefix, filter)
	if err == nil {
		return last, nil
	}
	if !errors.Is(err, gitsemver.ErrNoTag) {
		return "", err
	}
	e.logger.Warn("no previous version tag found, falling back to "+InitialVersion+"; the new version is calculated from all changes since the first commit",
		"projectRoot", req.ProjectRoot,
		"tagPrefix", req.TagPrefix,
	)
	return InitialVersion, nil
}

// session scopes a window cache to a single resolution. Concurrent requests for
// the same window share one computation and later requests replay its result,
// so version control is queried once per window.
type session struct {
	engine *Engine
	group  singleflight.Group

	mu   sync.Mutex
	done map[string]windowResult
}

type windowResult struct {
	window Window
	err    error
}

func (e *Engine) newSession() *session {
	return &session{engine: e, done: make(map[string]windowResult)}
}

func (s *session) lookup(key string) (windowResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.done[key]
	return r, ok
}

func (s *session) window(ctx context.Context, req WindowRequest) (Window, error) {
	key := req.key()
	if r, ok := s.lookup(key); ok {
		return r.window, r.err
	}

	ch := s.group.DoChan(key, func() (any, error) {
		if r, ok := s.lookup(key); ok {
			return r.window, r.err
		}
		w, err := s.engine.resolveWindow(ctx, req)
		// Cancellation belongs to the caller, not to the window.
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.mu.Lock()
			s.done[key] = windowResult{window: w, err: err}
			s.mu.Unlock()
		}
		return w, err
	})

	select {
	case <-ctx.Done():
		return Window{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Window{}, res.Err
		}
		return res.Val.(Window), nil
	}
}
