package nextver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bcomnes/nextver/pkg/conventional"
)

func TestResolveDependencyUpdatesEmpty(t *testing.T) {
	h := newFakeHistory()
	e := NewEngine(h, newFakeRecommender())
	updates, err := e.ResolveDependencyUpdates(context.Background(), DependencyRequest{AnchorRef: "v1.0.0"})
	if err != nil {
		t.Fatalf("ResolveDependencyUpdates failed: %v", err)
	}
	if updates == nil || len(updates) != 0 {
		t.Errorf("updates = %#v, expected an empty slice", updates)
	}
	if h.tagCalls != 0 || h.commitCalls != 0 {
		t.Errorf("version control queried for no dependencies")
	}
}

func TestResolveDependencyUpdates(t *testing.T) {
	h := newFakeHistory()
	// a: never tagged, has a feature.
	h.commits["libs/a"] = []string{"feat(a): new api"}
	// b: tagged, has a fix.
	h.tags["b-"] = "1.4.0"
	h.commits["libs/b"] = []string{"fix(b): nil deref"}
	// c: tagged, only skipped commit types.
	h.tags["c-"] = "2.0.0"
	h.commits["libs/c"] = []string{"chore(c): lint", "docs(c): readme"}
	// d: never tagged, nothing at all.

	rec := newFakeRecommender()
	rec.bumps["libs/a"] = conventional.BumpMinor
	rec.bumps["libs/b"] = conventional.BumpMajor
	e := NewEngine(h, rec)

	roots := []DependencyRoot{
		{ProjectRoot: "libs/a", Name: "a"},
		{ProjectRoot: "libs/b", Name: "b"},
		{ProjectRoot: "libs/c", Name: "c"},
		{ProjectRoot: "libs/d", Name: "d"},
	}
	updates, err := e.ResolveDependencyUpdates(context.Background(), DependencyRequest{
		Roots:           roots,
		AnchorRef:       "v1.0.0",
		SkipCommitTypes: []string{"chore", "docs"},
	})
	if err != nil {
		t.Fatalf("ResolveDependencyUpdates failed: %v", err)
	}

	expected := []DependencyUpdate{
		{Kind: DependencyKind, DependencyName: "a", Version: "0.1.0"},
		{Kind: DependencyKind, DependencyName: "b", Version: "1.4.0"},
		{Kind: DependencyKind, DependencyName: "c"},
		{Kind: DependencyKind, DependencyName: "d"},
	}
	if len(updates) != len(expected) {
		t.Fatalf("got %d updates, expected %d", len(updates), len(expected))
	}
	for i := range expected {
		if updates[i] != expected[i] {
			t.Errorf("updates[%d] = %+v, expected %+v", i, updates[i], expected[i])
		}
	}

	for _, r := range roots {
		if got := h.sinceFor(r.ProjectRoot); got != "v1.0.0" {
			t.Errorf("%s commits fetched since %q, expected the anchor", r.Name, got)
		}
	}
	// Only the untagged dependency with qualifying commits asks for a bump.
	if rec.calls() != 1 || rec.requests[0].Path != "libs/a" || rec.requests[0].TagPrefix != "a-" {
		t.Errorf("recommender requests = %+v, expected one for libs/a", rec.requests)
	}
}

func TestResolveDependencyUpdatesTagPrefix(t *testing.T) {
	custom := "{projectName}@"
	tests := []struct {
		name             string
		versionTagPrefix *string
		syncVersions     bool
		tagPrefix        string
	}{
		{"own prefix", nil, false, "lib-"},
		{"synced", nil, true, "v"},
		{"override", &custom, false, "lib@"},
		{"override wins over sync", &custom, true, "lib@"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newFakeHistory()
			h.tags[tc.tagPrefix] = "3.1.0"
			h.commits["lib"] = []string{"fix: x"}
			e := NewEngine(h, newFakeRecommender())
			updates, err := e.ResolveDependencyUpdates(context.Background(), DependencyRequest{
				Roots:            []DependencyRoot{{ProjectRoot: "lib", Name: "lib"}},
				AnchorRef:        "root0000",
				VersionTagPrefix: tc.versionTagPrefix,
				SyncVersions:     tc.syncVersions,
			})
			if err != nil {
				t.Fatalf("ResolveDependencyUpdates failed: %v", err)
			}
			if updates[0].Version != "3.1.0" {
				t.Errorf("version = %q, expected the tag under prefix %q", updates[0].Version, tc.tagPrefix)
			}
		})
	}
}

func TestResolveDependencyUpdatesError(t *testing.T) {
	boom := errors.New("recommender exploded")
	h := newFakeHistory()
	h.commits["libs/a"] = []string{"feat: x"}
	rec := newFakeRecommender()
	rec.err = boom
	e := NewEngine(h, rec)

	_, err := e.ResolveDependencyUpdates(context.Background(), DependencyRequest{
		Roots:     []DependencyRoot{{ProjectRoot: "libs/a", Name: "a"}},
		AnchorRef: "root0000",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, expected the recommender failure", err)
	}
	if !strings.Contains(err.Error(), "dependency a") {
		t.Errorf("error %q does not name the dependency", err)
	}
}

func TestResolveDependencyUpdatesCancellation(t *testing.T) {
	h := newFakeHistory()
	h.block = make(chan struct{})
	defer close(h.block)
	e := NewEngine(h, newFakeRecommender())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.ResolveDependencyUpdates(ctx, DependencyRequest{
		Roots: []DependencyRoot{
			{ProjectRoot: "libs/a", Name: "a"},
			{ProjectRoot: "libs/b", Name: "b"},
		},
		AnchorRef: "root0000",
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, expected context.DeadlineExceeded", err)
	}
}
