package nextver

import (
	"context"
	"strings"
	"sync"

	"github.com/bcomnes/nextver/pkg/conventional"
	"github.com/bcomnes/nextver/pkg/gitsemver"
)

// fakeHistory serves tags and commits from memory and counts the queries it
// receives.
type fakeHistory struct {
	mu sync.Mutex

	tags        map[string]string   // tag prefix -> last stable version
	prereleases map[string]string   // tag prefix -> last version when prereleases are eligible
	first       string              // first commit
	commits     map[string][]string // project root -> messages, oldest first
	commitsErr  error
	tagErr      error
	block       chan struct{} // when set, Commits waits on it or on ctx

	tagCalls    int
	firstCalls  int
	commitCalls int
	since       map[string]string // project root -> last since ref received
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{
		tags:        map[string]string{},
		prereleases: map[string]string{},
		first:       "root0000",
		commits:     map[string][]string{},
		since:       map[string]string{},
	}
}

func (h *fakeHistory) LastTaggedVersion(ctx context.Context, tagPrefix string, filter gitsemver.TagFilter) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tagCalls++
	if h.tagErr != nil {
		return "", h.tagErr
	}
	if filter.IncludePrerelease {
		if v, ok := h.prereleases[tagPrefix]; ok {
			return v, nil
		}
	}
	if v, ok := h.tags[tagPrefix]; ok {
		return v, nil
	}
	return "", gitsemver.ErrNoTag
}

func (h *fakeHistory) FirstCommit(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.firstCalls++
	return h.first, nil
}

func (h *fakeHistory) Commits(ctx context.Context, projectRoot, since string) ([]string, error) {
	h.mu.Lock()
	h.commitCalls++
	h.since[projectRoot] = since
	block, err := h.block, h.commitsErr
	commits := append([]string(nil), h.commits[projectRoot]...)
	h.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return commits, nil
}

func (h *fakeHistory) sinceFor(projectRoot string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.since[projectRoot]
}

// fakeRecommender recommends a fixed bump per project root.
type fakeRecommender struct {
	mu       sync.Mutex
	bumps    map[string]conventional.Bump
	err      error
	requests []conventional.Request
}

func newFakeRecommender() *fakeRecommender {
	return &fakeRecommender{bumps: map[string]conventional.Bump{}}
}

func (r *fakeRecommender) Recommend(ctx context.Context, req conventional.Request) (conventional.Recommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.err != nil {
		return conventional.Recommendation{}, r.err
	}
	bump := r.bumps[req.Path]
	if bump == conventional.BumpNone {
		return conventional.Recommendation{Bump: conventional.BumpNone, Level: -1}, nil
	}
	return conventional.Recommendation{Bump: bump, Reason: "fake " + string(bump)}, nil
}

func (r *fakeRecommender) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// logBuffer is a concurrency-safe io.Writer for slog handlers in tests.
type logBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}
