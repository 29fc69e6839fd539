// Package main implements the nextver CLI tool.
//
// The nextver tool is a command-line interface that computes the next semantic
// version of a Go project from its git history. It finds the last release tag of
// the project (by tag prefix), reads the Conventional Commits made since, and
// prints the version the next release should carry. Local dependencies that
// changed inside the release window force at least a patch release. Nothing is
// tagged, committed or written.
//
// Command Usage:
//
//	nextver [flags]
//
// Flags:
//
//	--dir:                 Directory inside the git repository. (Defaults to ".")
//	--project-root:        Project directory relative to the repository root.
//	--name:                Project name. Defaults to the last element of the go.mod module path.
//	--tag-prefix:          Tag prefix of the project. Defaults to "<name>-", or "v" with --sync-versions.
//	--version-tag-prefix:  Tag prefix template, {projectName} is replaced by each project name.
//	--preset:              Commit convention, conventionalcommits (default) or angular.
//	--pre-major:           Breaking changes bump the minor version and features the patch.
//	--release-as:          Release type overriding the commits: major, minor, patch,
//	                       premajor, preminor, prepatch. prerelease keeps the commits
//	                       in charge and starts or advances a prerelease train.
//	--preid:               Prerelease identifier, e.g. alpha, beta, rc.
//	--skip-unstable:       Ignore prerelease tags when analysing commits.
//	--sync-versions:       All projects share the "v" tag prefix.
//	--allow-empty-release: Release even when every commit type is skipped.
//	--skip-commit-types:   Commit types that never trigger a release (comma separated).
//	--dependency:          Local dependency as name=path. May be repeated.
//	--discover-deps:       Add local dependencies found in go.mod replace directives.
//	--config:              Config file. (Defaults to .nextver.yaml in the project directory)
//	--json:                Print the result as JSON.
//	--quiet:               Print only the next version.
//	--verbose:             Log decision details to stderr.
//	--version:             Displays the version of the nextver CLI tool and exits.
//
// Examples:
//
//	# Next version of the module in the current directory (e.g. 1.2.3 → 1.3.0 after a feat commit)
//	nextver
//
//	# Force a major release (e.g. 1.2.3 → 2.0.0)
//	nextver --release-as major
//
//	# Start a release candidate train (e.g. 1.2.3 → 1.3.0-rc.0), then advance it (→ 1.3.0-rc.1)
//	nextver --release-as prerelease --preid rc
//
//	# Ignore housekeeping commits
//	nextver --skip-commit-types chore,docs,ci
//
//	# Release an application when one of its local libraries changed
//	nextver --project-root apps/server --dependency core=libs/core
//
//	# Machine-readable output for release pipelines
//	nextver --json
//
// When no release is warranted the tool prints "No release needed" (or
// {"release": false} with --json) and exits with status 0.
//
// For more detailed API documentation, please see the documentation in the "pkg" package
// or visit [PkgGoDev](https://pkg.go.dev/github.com/bcomnes/nextver).
package main
