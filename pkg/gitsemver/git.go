// Package gitsemver reads semantic version tags and commit windows from a git
// repository by shelling out to the git binary.
//
// Tags are matched by prefix (for example "v" or "my-lib-"), the remainder must
// be a full semantic version (MAJOR.MINOR.PATCH with optional prerelease), and
// the highest version reachable from HEAD wins.
package gitsemver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/cenk/backoff"
	version "github.com/hashicorp/go-version"
	"golang.org/x/mod/semver"
)

var (
	// ErrNoTag is returned when no tag matches the requested prefix and filter.
	ErrNoTag = errors.New("no semver tag found")
	// ErrGitUnavailable is returned by Open when the git binary cannot be run.
	ErrGitUnavailable = errors.New("git is not available on the system")
)

// recordSeparator terminates every commit body in the log output.
const recordSeparator = "\x1e"

// GitError describes a failed git invocation along with what git printed.
type GitError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *GitError) Error() string {
	return fmt.Sprintf("git %s failed: %v, detail: %s", strings.Join(e.Args, " "), e.Err, strings.TrimSpace(e.Stderr))
}

func (e *GitError) Unwrap() error {
	return e.Err
}

// TagFilter narrows which tagged versions are eligible.
//
// Stable versions are always eligible. Prerelease versions are eligible only
// when IncludePrerelease is set, and then only those whose first prerelease
// identifier equals Preid (when Preid is non-empty).
type TagFilter struct {
	IncludePrerelease bool
	Preid             string
}

func (f TagFilter) allows(prerelease string) bool {
	if prerelease == "" {
		return true
	}
	if !f.IncludePrerelease {
		return false
	}
	if f.Preid == "" {
		return true
	}
	return strings.SplitN(prerelease, ".", 2)[0] == f.Preid
}

// Tag is a git tag together with the version it carries.
type Tag struct {
	Name    string // Full tag name, prefix included.
	Version string // Version without the prefix.
}

// Repository runs git commands against a working tree.
type Repository struct {
	dir        string
	logger     *slog.Logger
	maxRetries uint64
	baseDelay  time.Duration
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMaxRetries sets how many times a git command hitting lock contention is retried.
func WithMaxRetries(n uint64) Option {
	return func(r *Repository) {
		r.maxRetries = n
	}
}

// WithBaseDelay sets the initial delay of the retry backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(r *Repository) {
		r.baseDelay = d
	}
}

// checkGit verifies that git is available on the system.
func checkGit() error {
	cmd := exec.Command("git", "--version")
	if err := cmd.Run(); err != nil {
		return ErrGitUnavailable
	}
	return nil
}

// Open returns a Repository for the working tree containing dir.
func Open(dir string, opts ...Option) (*Repository, error) {
	if err := checkGit(); err != nil {
		return nil, err
	}
	r := &Repository{
		dir:        dir,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}

	out, err := r.run(context.Background(), "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return nil, fmt.Errorf("opening repository %q: %w", dir, err)
	}
	if strings.TrimSpace(out) != "true" {
		return nil, fmt.Errorf("opening repository %q: not inside a work tree", dir)
	}
	return r, nil
}

// TopLevel returns the absolute path of the working tree root.
func (r *Repository) TopLevel(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// LatestTag returns the highest semver tag reachable from HEAD whose name starts
// with tagPrefix and whose version passes filter.
func (r *Repository) LatestTag(ctx context.Context, tagPrefix string, filter TagFilter) (Tag, error) {
	out, err := r.run(ctx, "tag", "--merged", "HEAD", "--list", tagPrefix+"*")
	if err != nil {
		return Tag{}, err
	}
	return selectLatest(tagPrefix, strings.Split(out, "\n"), filter)
}

// LastTaggedVersion is LatestTag without the tag name.
func (r *Repository) LastTaggedVersion(ctx context.Context, tagPrefix string, filter TagFilter) (string, error) {
	tag, err := r.LatestTag(ctx, tagPrefix, filter)
	if err != nil {
		return "", err
	}
	return tag.Version, nil
}

// FirstCommit returns the hash of the root commit of HEAD.
func (r *Repository) FirstCommit(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-list", "--max-parents=0", "HEAD")
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", errors.New("repository has no root commit")
}

// Commits returns the raw messages of the commits in (since, HEAD] touching path,
// oldest first. An empty since selects the whole history of HEAD.
func (r *Repository) Commits(ctx context.Context, path, since string) ([]string, error) {
	args := []string{"log", "--reverse", "--format=%B%x1e"}
	if since != "" {
		args = append(args, since+"..HEAD")
	} else {
		args = append(args, "HEAD")
	}
	if path == "" {
		path = "."
	}
	args = append(args, "--", path)

	out, err := r.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var commits []string
	for _, record := range strings.Split(out, recordSeparator) {
		if msg := strings.TrimSpace(record); msg != "" {
			commits = append(commits, msg)
		}
	}
	return commits, nil
}

// run executes git in the repository directory. Failures caused by another git
// process holding a lock are retried with exponential backoff; any other
// failure is returned immediately as a *GitError.
func (r *Repository) run(ctx context.Context, args ...string) (string, error) {
	var stdout string
	var runErr error

	op := func() error {
		cmd := exec.CommandContext(ctx, "git", append([]string{"-C", r.dir}, args...)...)
		var out, stderr bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			runErr = &GitError{Args: args, Stderr: stderr.String(), Err: err}
			if isLockContention(stderr.String()) {
				r.logger.Debug("git lock contention, retrying", "args", strings.Join(args, " "))
				return runErr
			}
			return nil
		}
		stdout, runErr = out.String(), nil
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.baseDelay
	b.MaxInterval = 2 * time.Second
	b.Multiplier = 2.0
	b.Reset()

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, r.maxRetries), ctx))
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return stdout, runErr
}

func isLockContention(stderr string) bool {
	return strings.Contains(stderr, ".lock") || strings.Contains(stderr, "Another git process")
}

// selectLatest picks the highest eligible version among tag names.
func selectLatest(tagPrefix string, names []string, filter TagFilter) (Tag, error) {
	var versions []*version.Version
	tags := make(map[*version.Version]string)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || !strings.HasPrefix(name, tagPrefix) {
			continue
		}
		raw := strings.TrimPrefix(name, tagPrefix)
		if !IsStrictSemver(raw) {
			continue
		}
		v, err := version.NewSemver(raw)
		if err != nil {
			continue
		}
		if !filter.allows(v.Prerelease()) {
			continue
		}
		versions = append(versions, v)
		tags[v] = name
	}
	if len(versions) == 0 {
		return Tag{}, fmt.Errorf("%w for prefix %q", ErrNoTag, tagPrefix)
	}

	sort.Sort(sort.Reverse(version.Collection(versions)))
	best := versions[0]
	return Tag{Name: tags[best], Version: best.Original()}, nil
}

// IsStrictSemver reports whether s is MAJOR.MINOR.PATCH with optional
// prerelease and build parts, and no "v" prefix.
func IsStrictSemver(s string) bool {
	if s == "" || s[0] == 'v' || !semver.IsValid("v"+s) {
		return false
	}
	core := strings.SplitN(strings.SplitN(s, "+", 2)[0], "-", 2)[0]
	return strings.Count(core, ".") == 2
}
