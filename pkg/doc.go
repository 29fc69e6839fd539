// Package nextver computes the next semantic version of a project from its git
// history.
//
// It provides functionalities for:
//   - Locating the last release tag of a project (by tag prefix) and the commits made since.
//   - Recommending a bump category from Conventional Commits and applying it, either
//     as a stable release or as a step of a prerelease train.
//   - Overriding the commits with an explicit release type (major, minor, patch,
//     premajor, preminor, prepatch).
//   - Forcing a patch release when only local dependencies changed, and suppressing
//     releases made only of commit types the project chose to ignore.
//   - Discovering local dependencies from go.mod replace directives and loading
//     .nextver.yaml project configuration.
//
// Nothing is written back: no tags, commits or manifest changes. The result is a
// *NewVersion, or nil when no release is warranted.
//
// Usage Example:
//
//	repo, err := gitsemver.Open(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine := nextver.NewGitEngine(repo)
//	next, err := engine.TryBump(ctx, nextver.Options{ProjectRoot: ".", TagPrefix: "v"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if next == nil {
//	    log.Println("No release needed")
//	    return
//	}
//	log.Printf("%s -> %s", next.PreviousVersion, next.Version)
//
// For additional details and API documentation, see https://pkg.go.dev/github.com/bcomnes/nextver.
package nextver
