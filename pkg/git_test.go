package nextver

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/bcomnes/nextver/pkg/gitsemver"
)

// newGitRepo creates a temporary git repository, skipping the test when git
// is not available on the system.
func newGitRepo(t *testing.T) (string, func(args ...string)) {
	t.Helper()
	if err := exec.Command("git", "--version").Run(); err != nil {
		t.Skip("git is not available on system")
	}
	tmpDir := t.TempDir()
	runGit := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = tmpDir
		if output, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, output)
		}
	}
	runGit("init")
	runGit("config", "user.email", "test@example.com")
	runGit("config", "user.name", "Test User")
	runGit("config", "commit.gpgsign", "false")
	runGit("config", "tag.gpgsign", "false")
	return tmpDir, runGit
}

func gitCommitFile(t *testing.T, dir string, runGit func(args ...string), name, msg string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(msg + "\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()
	runGit("add", name)
	runGit("commit", "-m", msg)
}

// TestTryBumpGitMonorepo runs the engine against a real repository holding an
// application and a library it depends on.
func TestTryBumpGitMonorepo(t *testing.T) {
	dir, runGit := newGitRepo(t)
	gitCommitFile(t, dir, runGit, "app/main.txt", "feat(app): initial release")
	runGit("tag", "v1.0.0")
	gitCommitFile(t, dir, runGit, "libs/core/core.txt", "feat(core): add core")

	repo, err := gitsemver.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	e := NewGitEngine(repo)
	ctx := context.Background()
	opts := Options{
		ProjectRoot:     "app",
		TagPrefix:       "v",
		DependencyRoots: []DependencyRoot{{ProjectRoot: "libs/core", Name: "core"}},
	}

	// The library was never released: it gets its first version, the app a patch.
	d, err := e.Decide(ctx, opts)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if d.Outcome != OutcomeDependencies || d.Release.Version != "1.0.1" {
		t.Fatalf("decision = %s %+v, expected a dependency patch to 1.0.1", d.Outcome, d.Release)
	}
	if len(d.Release.DependencyUpdates) != 1 || d.Release.DependencyUpdates[0].Version != "0.1.0" {
		t.Errorf("dependency updates = %+v, expected core 0.1.0", d.Release.DependencyUpdates)
	}

	// Once tagged, the library's own tag is reported as is.
	runGit("tag", "core-0.1.0")
	gitCommitFile(t, dir, runGit, "libs/core/core.txt", "fix(core): guard nil")
	next, err := e.TryBump(ctx, opts)
	if err != nil {
		t.Fatalf("TryBump failed: %v", err)
	}
	if next == nil || next.Version != "1.0.1" || next.DependencyUpdates[0].Version != "0.1.0" {
		t.Errorf("next = %+v, expected 1.0.1 with core 0.1.0", next)
	}

	// The app's own feature wins over the forced patch.
	gitCommitFile(t, dir, runGit, "app/main.txt", "feat(app): add dashboard")
	next, err = e.TryBump(ctx, opts)
	if err != nil {
		t.Fatalf("TryBump failed: %v", err)
	}
	if next == nil || next.Version != "1.1.0" {
		t.Errorf("next = %+v, expected 1.1.0", next)
	}
}

func TestTryBumpGitSkipsIgnoredTypes(t *testing.T) {
	dir, runGit := newGitRepo(t)
	gitCommitFile(t, dir, runGit, "main.txt", "feat: initial release")
	runGit("tag", "v0.3.0")
	gitCommitFile(t, dir, runGit, "README.md", "docs: explain flags")
	gitCommitFile(t, dir, runGit, "main.txt", "chore: tidy")

	repo, err := gitsemver.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	e := NewGitEngine(repo)
	opts := Options{ProjectRoot: ".", TagPrefix: "v", SkipCommitTypes: []string{"docs", "chore"}}

	next, err := e.TryBump(context.Background(), opts)
	if err != nil {
		t.Fatalf("TryBump failed: %v", err)
	}
	if next != nil {
		t.Errorf("next = %+v, expected no release", next)
	}

	opts.AllowEmptyRelease = true
	next, err = e.TryBump(context.Background(), opts)
	if err != nil {
		t.Fatalf("TryBump failed: %v", err)
	}
	if next == nil || next.Version != "0.3.1" {
		t.Errorf("next = %+v, expected 0.3.1", next)
	}
}

func TestTryBumpGitPrereleaseTrain(t *testing.T) {
	dir, runGit := newGitRepo(t)
	gitCommitFile(t, dir, runGit, "main.txt", "feat: initial release")
	runGit("tag", "v1.0.0")
	gitCommitFile(t, dir, runGit, "main.txt", "feat: new api")

	repo, err := gitsemver.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	e := NewGitEngine(repo)
	opts := Options{ProjectRoot: ".", TagPrefix: "v", ReleaseType: Prerelease, Preid: "rc"}

	next, err := e.TryBump(context.Background(), opts)
	if err != nil {
		t.Fatalf("TryBump failed: %v", err)
	}
	if next == nil || next.Version != "1.1.0-rc.0" {
		t.Fatalf("next = %+v, expected 1.1.0-rc.0", next)
	}

	runGit("tag", "v1.1.0-rc.0")
	gitCommitFile(t, dir, runGit, "main.txt", "fix: rc bug")
	next, err = e.TryBump(context.Background(), opts)
	if err != nil {
		t.Fatalf("TryBump failed: %v", err)
	}
	if next == nil || next.Version != "1.1.0-rc.1" || next.PreviousVersion != "1.1.0-rc.0" {
		t.Errorf("next = %+v, expected 1.1.0-rc.0 -> 1.1.0-rc.1", next)
	}
}

func TestTryBumpGitFirstRelease(t *testing.T) {
	dir, runGit := newGitRepo(t)
	gitCommitFile(t, dir, runGit, "main.txt", "feat: first")

	repo, err := gitsemver.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	e := NewGitEngine(repo)
	opts := Options{ProjectRoot: ".", TagPrefix: "v", SkipCommitTypes: []string{"chore"}}

	// The first commit alone is enough for a first release.
	d, err := e.Decide(context.Background(), opts)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if d.Outcome != OutcomeCommits || d.Release.Version != "0.1.0" || d.Release.PreviousVersion != InitialVersion {
		t.Fatalf("decision = %s %+v, expected 0.0.0 -> 0.1.0", d.Outcome, d.Release)
	}

	gitCommitFile(t, dir, runGit, "main.txt", "chore: tidy")
	next, err := e.TryBump(context.Background(), opts)
	if err != nil {
		t.Fatalf("TryBump failed: %v", err)
	}
	if next == nil || next.Version != "0.1.0" {
		t.Errorf("next = %+v, expected 0.1.0", next)
	}
}
