package nextver

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"
)

// LocateModuleRoot walks up from start until it finds go.mod.
// Returns the directory containing go.mod, or os.ErrNotExist if none found.
func LocateModuleRoot(start string) (string, error) {
	d, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(d, "go.mod")); err == nil {
			return d, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return "", os.ErrNotExist
}

func parseGoMod(dir string) (*modfile.File, error) {
	modPath := filepath.Join(dir, "go.mod")
	data, err := os.ReadFile(modPath)
	if err != nil {
		return nil, fmt.Errorf("reading go.mod: %w", err)
	}
	f, err := modfile.Parse(modPath, data, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing go.mod: %w", err)
	}
	if f.Module == nil {
		return nil, fmt.Errorf("%s: module directive not found", modPath)
	}
	return f, nil
}

// ModulePath returns the module path declared by dir/go.mod.
func ModulePath(dir string) (string, error) {
	f, err := parseGoMod(dir)
	if err != nil {
		return "", err
	}
	return f.Module.Mod.Path, nil
}

// ProjectNameFromModule derives a project name from a module path: its last
// element, ignoring a major version suffix.
//
//	github.com/acme/widget/v3 -> widget
func ProjectNameFromModule(modulePath string) string {
	base, _, ok := module.SplitPathVersion(modulePath)
	if !ok {
		base = modulePath
	}
	return path.Base(base)
}

// DiscoverDependencyRoots lists the local modules the project at projectRoot
// depends on. A dependency is a required module whose replace directive points
// at a directory; its root is returned relative to repoDir and its name is
// derived from its own go.mod. Roots follow the order of the require block.
func DiscoverDependencyRoots(repoDir, projectRoot string) ([]DependencyRoot, error) {
	projectDir := filepath.Join(repoDir, projectRoot)
	f, err := parseGoMod(projectDir)
	if err != nil {
		return nil, err
	}

	local := make(map[string]string, len(f.Replace))
	for _, r := range f.Replace {
		if r.New.Version != "" || !modfile.IsDirectoryPath(r.New.Path) {
			continue
		}
		local[r.Old.Path] = r.New.Path
	}

	roots := []DependencyRoot{}
	seen := make(map[string]bool)
	for _, req := range f.Require {
		target, ok := local[req.Mod.Path]
		if !ok || seen[req.Mod.Path] {
			continue
		}
		seen[req.Mod.Path] = true

		dir := filepath.Join(projectDir, filepath.FromSlash(target))
		modPath, err := ModulePath(dir)
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", req.Mod.Path, err)
		}
		rel, err := filepath.Rel(repoDir, dir)
		if err != nil {
			return nil, err
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("dependency %s: %s is outside the repository", req.Mod.Path, target)
		}
		roots = append(roots, DependencyRoot{
			ProjectRoot: filepath.ToSlash(rel),
			Name:        ProjectNameFromModule(modPath),
		})
	}
	return roots, nil
}

// MajorPathMismatch returns the module path version requires and whether it
// differs from modulePath. Major versions 0 and 1 use the bare path; later
// majors need a /vN suffix.
func MajorPathMismatch(modulePath, version string) (string, bool) {
	base, _, ok := module.SplitPathVersion(modulePath)
	if !ok {
		base = modulePath
	}
	want := base
	if maj := semver.Major(normalizeVersion(version)); maj != "" && maj != "v0" && maj != "v1" {
		want = base + "/" + maj
	}
	return want, want != modulePath
}
