// Package project provides project management functionality.
package project

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// Service adapts FromDirectory's git-identity detection onto the
// types.Project wire shape a client (CLI or remote) lists projects
// through. It used to keep its own sha256-of-path identity scheme
// alongside FromDirectory's git-commit one; the two disagreeing on a
// project's ID depending which entry point a caller used was a latent
// bug, not a feature, so Service now always asks FromDirectory.
type Service struct {
	workDir string
}

// NewService creates a new project service.
func NewService(workDir string) *Service {
	return &Service{workDir: workDir}
}

// List returns all projects (currently just the current project).
// It always uses the service's workDir; see ListForDir for another directory.
func (s *Service) List(ctx context.Context) ([]types.Project, error) {
	current, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return []types.Project{*current}, nil
}

// ListForDir returns all projects for a specific directory.
func (s *Service) ListForDir(ctx context.Context, dir string) ([]types.Project, error) {
	current, err := s.CurrentForDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	return []types.Project{*current}, nil
}

// Current returns the current project based on workDir.
func (s *Service) Current(ctx context.Context) (*types.Project, error) {
	return s.CurrentForDir(ctx, s.workDir)
}

// CurrentForDir returns the current project for a specific directory.
func (s *Service) CurrentForDir(ctx context.Context, dir string) (*types.Project, error) {
	info, err := FromDirectory(dir)
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	var vcs string
	if info.VCS != nil {
		vcs = *info.VCS
	}

	created := time.Now().UnixMilli()
	if stat, err := os.Stat(absPath); err == nil {
		created = stat.ModTime().UnixMilli()
	}

	return &types.Project{
		ID:       info.ID,
		Worktree: info.Worktree,
		VCS:      vcs,
		Time: types.ProjectTime{
			Created: created,
		},
	}, nil
}
