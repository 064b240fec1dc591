package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/policy/ast"
)

// GitSource loads policies from a git repository. The repository is
// cloned to a local working directory on first sync and pulled on
// later syncs; credentials, when needed, are carried in the clone URL.
type GitSource struct {
	cfg       config.GitConfig
	localPath string
	logger    *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewGitSource creates a git-backed source. An empty localPath clones
// under the system temp directory.
func NewGitSource(cfg config.GitConfig, localPath string, logger *slog.Logger) *GitSource {
	if localPath == "" {
		localPath = filepath.Join(os.TempDir(), "ganymede-policies")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitSource{cfg: cfg, localPath: localPath, logger: logger}
}

// Sync clones the repository on first call and pulls afterwards. An
// up-to-date repository is not an error.
func (s *GitSource) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		if err := s.open(ctx); err != nil {
			return err
		}
		return nil
	}

	worktree, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("policy repository worktree: %w", err)
	}

	err = worktree.PullContext(ctx, &gogit.PullOptions{
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
	})
	if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pulling policy repository: %w", err)
	}

	s.logger.Info("policy repository updated", "url", s.cfg.URL, "branch", s.cfg.Branch)
	return nil
}

// open clones the repository, or reopens a clone left by a previous
// run.
func (s *GitSource) open(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(s.localPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(s.localPath)
		if err != nil {
			return fmt.Errorf("opening policy repository: %w", err)
		}
		s.repo = repo
		return nil
	}

	if err := os.MkdirAll(s.localPath, 0o755); err != nil {
		return fmt.Errorf("creating policy repository directory: %w", err)
	}

	s.logger.Info("cloning policy repository",
		"url", s.cfg.URL,
		"branch", s.cfg.Branch,
		"path", s.localPath,
	)
	repo, err := gogit.PlainCloneContext(ctx, s.localPath, false, &gogit.CloneOptions{
		URL:           s.cfg.URL,
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Depth:         1,
	})
	if err != nil {
		return fmt.Errorf("cloning policy repository: %w", err)
	}
	s.repo = repo
	return nil
}

// Load syncs the repository and parses the configured policy path
// inside it.
func (s *GitSource) Load(ctx context.Context) (*ast.Document, error) {
	if err := s.Sync(ctx); err != nil {
		return nil, err
	}
	return NewFileSource(filepath.Join(s.localPath, s.cfg.Path)).Load(ctx)
}
