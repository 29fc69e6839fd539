// Package main implements a CLI tool that computes the next semantic version of
// a project from its git history without changing anything.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	nextver "github.com/bcomnes/nextver/pkg"
	"github.com/bcomnes/nextver/pkg/gitsemver"
)

type cliOptions struct {
	dir              string
	projectRoot      string
	name             string
	tagPrefix        string
	versionTagPrefix string
	preset           string
	preMajor         bool
	releaseAs        string
	preid            string
	skipUnstable     bool
	syncVersions     bool
	allowEmpty       bool
	skipCommitTypes  []string
	dependencies     []string
	discoverDeps     bool
	configPath       string
	json             bool
	quiet            bool
	verbose          bool
	showVersion      bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := &cliOptions{}
	cmd := &cobra.Command{
		Use:   "nextver [flags]",
		Short: "Compute the next semantic version of a project from its commits",
		Long: `Computes the next version of a project from the Conventional Commits made since
its last release tag. Local dependencies that changed within the release window
force at least a patch release. Nothing is written: no tags, no commits, no files.

When no release is warranted, "No release needed" is printed and the exit code is 0.`,
		Example: `  nextver
  nextver --release-as major
  nextver --release-as prerelease --preid rc
  nextver --project-root apps/server --name server --discover-deps --json
  nextver --dependency core=libs/core --skip-commit-types chore,docs`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.showVersion {
				fmt.Fprintln(stdout, "nextver CLI version", Version)
				return nil
			}
			return o.run(cmd, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVar(&o.dir, "dir", ".", "Directory inside the git repository")
	f.StringVar(&o.projectRoot, "project-root", "", "Project directory relative to the repository root (default: --dir)")
	f.StringVar(&o.name, "name", "", "Project name (default: derived from go.mod or the directory name)")
	f.StringVar(&o.tagPrefix, "tag-prefix", "", "Tag prefix of the project (default: derived from the project name)")
	f.StringVar(&o.versionTagPrefix, "version-tag-prefix", "", "Tag prefix template, {projectName} is replaced by each project name")
	f.StringVar(&o.preset, "preset", "", "Commit convention: conventionalcommits or angular")
	f.BoolVar(&o.preMajor, "pre-major", false, "Shift bumps one level down while below 1.0.0")
	f.StringVar(&o.releaseAs, "release-as", "", "Release type: major, minor, patch, premajor, preminor, prepatch or prerelease")
	f.StringVar(&o.preid, "preid", "", "Prerelease identifier, e.g. alpha, beta, rc")
	f.BoolVar(&o.skipUnstable, "skip-unstable", false, "Ignore prerelease tags when analysing commits")
	f.BoolVar(&o.syncVersions, "sync-versions", false, "Projects share one version and the v tag prefix")
	f.BoolVar(&o.allowEmpty, "allow-empty-release", false, "Release even without release-worthy commits")
	f.StringSliceVar(&o.skipCommitTypes, "skip-commit-types", nil, "Commit types that never trigger a release")
	f.StringArrayVar(&o.dependencies, "dependency", nil, "Local dependency as name=path, may be repeated")
	f.BoolVar(&o.discoverDeps, "discover-deps", false, "Add local dependencies found in go.mod replace directives")
	f.StringVar(&o.configPath, "config", "", "Config file (default: "+nextver.ConfigFileName+" in the project directory)")
	f.BoolVar(&o.json, "json", false, "Print the result as JSON")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "Print only the next version")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "Log decision details to stderr")
	f.BoolVar(&o.showVersion, "version", false, "Show CLI version and exit")
	cmd.MarkFlagsMutuallyExclusive("json", "quiet")
	return cmd
}

func (o *cliOptions) logger(stderr io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case o.verbose:
		level = slog.LevelDebug
	case o.quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

func (o *cliOptions) run(cmd *cobra.Command, stdout, stderr io.Writer) error {
	ctx := cmd.Context()
	logger := o.logger(stderr)

	repo, err := gitsemver.Open(o.dir, gitsemver.WithLogger(logger))
	if err != nil {
		return err
	}
	top, err := repo.TopLevel(ctx)
	if err != nil {
		return err
	}
	if repo, err = gitsemver.Open(top, gitsemver.WithLogger(logger)); err != nil {
		return err
	}

	cfg, err := o.loadConfig(cmd, top)
	if err != nil {
		return err
	}
	projectDir := filepath.Join(top, filepath.FromSlash(cfg.ProjectRoot))

	moduleRoot, modulePath, err := findModule(top, projectDir)
	if err != nil {
		return err
	}
	if cfg.ProjectName == "" {
		switch {
		case modulePath != "":
			cfg.ProjectName = nextver.ProjectNameFromModule(modulePath)
		default:
			cfg.ProjectName = filepath.Base(projectDir)
		}
	}

	var deps []nextver.DependencyRoot
	if cfg.DiscoverDependencies {
		if modulePath == "" {
			return fmt.Errorf("discovering dependencies: no go.mod found for %s", cfg.ProjectRoot)
		}
		discovered, err := nextver.DiscoverDependencyRoots(top, moduleRoot)
		if err != nil {
			return fmt.Errorf("discovering dependencies: %w", err)
		}
		deps = mergeDependencies(cfg.Dependencies, discovered)
		logger.Debug("dependencies discovered", "count", len(discovered))
	}

	opts, err := cfg.Options(deps)
	if err != nil {
		return err
	}

	engine := nextver.NewGitEngine(repo, nextver.WithLogger(logger))
	d, err := engine.Decide(ctx, opts)
	if err != nil {
		return err
	}

	if d.Release != nil && modulePath != "" {
		if want, mismatch := nextver.MajorPathMismatch(modulePath, d.Release.Version); mismatch {
			logger.Warn("module path does not match the next major version",
				"module", modulePath,
				"version", d.Release.Version,
				"want", want,
			)
		}
	}

	switch {
	case o.json:
		return writeJSON(stdout, cfg, opts, d)
	case o.quiet:
		if d.Release != nil {
			fmt.Fprintln(stdout, d.Release.Version)
		}
		return nil
	default:
		writeSummary(stdout, cfg, opts, d)
		return nil
	}
}

// loadConfig reads the config file and applies the flags that were set on the
// command line on top of it.
func (o *cliOptions) loadConfig(cmd *cobra.Command, top string) (nextver.Config, error) {
	absDir, err := filepath.Abs(o.dir)
	if err != nil {
		return nextver.Config{}, err
	}
	if resolved, err := filepath.EvalSymlinks(absDir); err == nil {
		absDir = resolved
	}
	if resolved, err := filepath.EvalSymlinks(top); err == nil {
		top = resolved
	}
	dirRoot, err := filepath.Rel(top, absDir)
	if err != nil {
		return nextver.Config{}, err
	}

	projectRoot := dirRoot
	if o.projectRoot != "" {
		projectRoot = o.projectRoot
	}

	path := o.configPath
	if path == "" {
		path = filepath.Join(top, filepath.FromSlash(projectRoot), nextver.ConfigFileName)
	}
	cfg, err := nextver.LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	if cfg.ProjectRoot == "." || cmd.Flags().Changed("project-root") {
		cfg.ProjectRoot = projectRoot
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		cfg.ProjectName = o.name
	}
	if flags.Changed("tag-prefix") {
		cfg.TagPrefix = &o.tagPrefix
	}
	if flags.Changed("version-tag-prefix") {
		cfg.VersionTagPrefix = &o.versionTagPrefix
	}
	if flags.Changed("preset") {
		cfg.Preset = o.preset
	}
	if flags.Changed("pre-major") {
		cfg.PreMajor = o.preMajor
	}
	if flags.Changed("release-as") {
		cfg.ReleaseAs = o.releaseAs
	}
	if flags.Changed("preid") {
		cfg.Preid = o.preid
	}
	if flags.Changed("skip-unstable") {
		cfg.SkipUnstable = o.skipUnstable
	}
	if flags.Changed("sync-versions") {
		cfg.SyncVersions = o.syncVersions
	}
	if flags.Changed("allow-empty-release") {
		cfg.AllowEmptyRelease = o.allowEmpty
	}
	if flags.Changed("skip-commit-types") {
		cfg.SkipCommitTypes = o.skipCommitTypes
	}
	if flags.Changed("discover-deps") {
		cfg.DiscoverDependencies = o.discoverDeps
	}
	if flags.Changed("dependency") {
		deps, err := parseDependencies(o.dependencies)
		if err != nil {
			return cfg, err
		}
		cfg.Dependencies = deps
	}

	if err := cfg.Finalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// findModule locates the go.mod governing projectDir within the repository at
// top. It returns the module directory relative to top and the module path, or
// empty strings when the project is not part of a Go module.
func findModule(top, projectDir string) (string, string, error) {
	dir, err := nextver.LocateModuleRoot(projectDir)
	if errors.Is(err, os.ErrNotExist) {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}
	if resolved, err := filepath.EvalSymlinks(top); err == nil {
		top = resolved
	}
	rel, err := filepath.Rel(top, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		// A go.mod above the repository belongs to someone else.
		return "", "", nil
	}
	modulePath, err := nextver.ModulePath(dir)
	if err != nil {
		return "", "", err
	}
	return filepath.ToSlash(rel), modulePath, nil
}

// parseDependencies turns name=path flag values into dependency roots.
func parseDependencies(values []string) ([]nextver.DependencyRoot, error) {
	deps := make([]nextver.DependencyRoot, 0, len(values))
	for _, v := range values {
		name, path, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("invalid --dependency %q, expected name=path", v)
		}
		deps = append(deps, nextver.DependencyRoot{Name: name, ProjectRoot: path})
	}
	return deps, nil
}

// mergeDependencies appends discovered roots whose name is not configured yet.
func mergeDependencies(configured, discovered []nextver.DependencyRoot) []nextver.DependencyRoot {
	merged := append([]nextver.DependencyRoot{}, configured...)
	seen := make(map[string]bool, len(configured))
	for _, d := range configured {
		seen[d.Name] = true
	}
	for _, d := range discovered {
		if !seen[d.Name] {
			seen[d.Name] = true
			merged = append(merged, d)
		}
	}
	return merged
}

type jsonResult struct {
	Release     bool   `json:"release"`
	Project     string `json:"project,omitempty"`
	ProjectRoot string `json:"projectRoot,omitempty"`
	Tag         string `json:"tag,omitempty"`
	Outcome     string `json:"outcome,omitempty"`
	Reason      string `json:"reason,omitempty"`
	*nextver.NewVersion
}

func writeJSON(w io.Writer, cfg nextver.Config, opts nextver.Options, d nextver.Decision) error {
	res := jsonResult{}
	if d.Release != nil {
		res = jsonResult{
			Release:     true,
			Project:     cfg.ProjectName,
			ProjectRoot: cfg.ProjectRoot,
			Tag:         gitsemver.FormatTag(opts.TagPrefix, d.Release.Version),
			Outcome:     d.Outcome.String(),
			Reason:      d.Reason,
			NewVersion:  d.Release,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func writeSummary(w io.Writer, cfg nextver.Config, opts nextver.Options, d nextver.Decision) {
	r := lipgloss.NewRenderer(w)
	label := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Width(20)
	value := r.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	next := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#3FB950"))

	if d.Release == nil {
		fmt.Fprintln(w, "No release needed")
		if d.Reason != "" {
			fmt.Fprintln(w, label.Render("Reason:")+value.Render(d.Reason))
		}
		return
	}

	row := func(name, text string, style lipgloss.Style) {
		fmt.Fprintln(w, label.Render(name)+style.Render(text))
	}
	row("Project:", cfg.ProjectName, value)
	row("Previous Version:", d.Release.PreviousVersion, value)
	row("Next Version:", d.Release.Version, next)
	row("Tag:", gitsemver.FormatTag(opts.TagPrefix, d.Release.Version), value)
	row("Reason:", d.Reason, value)
	if len(d.Release.DependencyUpdates) > 0 {
		fmt.Fprintln(w, label.Render("Dependency Updates:"))
		for _, u := range d.Release.DependencyUpdates {
			fmt.Fprintf(w, "  %s %s\n", u.DependencyName, value.Render(u.Version))
		}
	}
}
