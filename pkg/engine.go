package nextver

import (
	"context"
	"io"
	"log/slog"

	"github.com/bcomnes/nextver/pkg/conventional"
	"github.com/bcomnes/nextver/pkg/gitsemver"
)

// History is the version control the engine reads from. *gitsemver.Repository
// satisfies it.
type History interface {
	// LastTaggedVersion returns gitsemver.ErrNoTag when nothing matches.
	LastTaggedVersion(ctx context.Context, tagPrefix string, filter gitsemver.TagFilter) (string, error)
	FirstCommit(ctx context.Context) (string, error)
	Commits(ctx context.Context, projectRoot, since string) ([]string, error)
}

// Recommender turns the commits since a project's last tag into a bump
// category. *conventional.Recommender satisfies it.
type Recommender interface {
	Recommend(ctx context.Context, req conventional.Request) (conventional.Recommendation, error)
}

// Engine resolves the next version of a project from its history.
type Engine struct {
	history     History
	recommender Recommender
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger receiving warnings and decision traces.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine returns an Engine reading tags and commits from h and bump
// recommendations from r.
func NewEngine(h History, r Recommender, opts ...Option) *Engine {
	e := &Engine{
		history:     h,
		recommender: r,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewGitEngine wires an Engine to a git repository and the conventional
// commits recommender.
func NewGitEngine(repo *gitsemver.Repository, opts ...Option) *Engine {
	return NewEngine(repo, conventional.NewRecommender(repo), opts...)
}
