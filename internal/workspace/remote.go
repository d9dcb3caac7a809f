package workspace

import (
	"context"
	"fmt"
	"time"
)

// Transport is the minimal operation set a remote backend must support;
// Remote translates Workspace calls into Transport calls so adding a new
// backend (ssh, container exec, a remote agent daemon) means implementing
// this interface and nothing else.
type Transport interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, content []byte) error
	ListDir(ctx context.Context, root string) ([]Entry, error)
	Exec(ctx context.Context, command string, timeout time.Duration) (stdout, stderr string, exitCode int, timedOut bool, err error)
	Environment(ctx context.Context) (Environment, error)
}

// Remote is a Workspace backed by a Transport reaching a non-local
// backend. Glob and fuzzy ranking are performed locally against the
// directory listing the transport returns, so a Transport only has to
// implement a flat directory walk.
type Remote struct {
	transport Transport
}

// NewRemote constructs a Remote workspace over transport.
func NewRemote(transport Transport) *Remote {
	return &Remote{transport: transport}
}

func (r *Remote) ReadFile(ctx context.Context, path string, startLine, endLine int) (string, bool, error) {
	data, err := r.transport.ReadFile(ctx, path)
	if err != nil {
		return "", false, fmt.Errorf("workspace: remote read %s: %w", path, err)
	}
	content := string(data)
	if startLine <= 0 && endLine <= 0 {
		return content, false, nil
	}
	return windowLines(content, startLine, endLine)
}

func (r *Remote) WriteFile(ctx context.Context, path, content string) error {
	if err := r.transport.WriteFile(ctx, path, []byte(content)); err != nil {
		return fmt.Errorf("workspace: remote write %s: %w", path, err)
	}
	return nil
}

func (r *Remote) ListFiles(ctx context.Context, root, query string, ignore []string, limit int) ([]Entry, bool, error) {
	entries, err := r.transport.ListDir(ctx, root)
	if err != nil {
		return nil, false, fmt.Errorf("workspace: remote list %s: %w", root, err)
	}

	patterns := append(append([]string{}, defaultIgnorePatterns...), ignore...)
	var filtered []Entry
	for _, e := range entries {
		if !shouldIgnore(e.Path, e.IsDir, patterns) {
			filtered = append(filtered, e)
		}
	}

	rankByQuery(filtered, query)
	truncated := false
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
		truncated = true
	}
	return filtered, truncated, nil
}

func (r *Remote) Glob(ctx context.Context, pattern, root string, limit int) ([]string, bool, error) {
	entries, err := r.transport.ListDir(ctx, root)
	if err != nil {
		return nil, false, fmt.Errorf("workspace: remote glob %s: %w", pattern, err)
	}
	var matches []string
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		if ok, _ := matchGlob(pattern, e.Path); ok {
			matches = append(matches, e.Path)
		}
	}
	truncated := false
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
		truncated = true
	}
	return matches, truncated, nil
}

func (r *Remote) RunCommand(ctx context.Context, command string, timeout time.Duration) (string, string, int, bool, error) {
	stdout, stderr, exitCode, timedOut, err := r.transport.Exec(ctx, command, timeout)
	if err != nil {
		return stdout, stderr, exitCode, timedOut, fmt.Errorf("workspace: remote exec: %w", err)
	}
	return stdout, stderr, exitCode, timedOut, nil
}

func (r *Remote) Environment(ctx context.Context) (Environment, error) {
	env, err := r.transport.Environment(ctx)
	if err != nil {
		return Environment{}, fmt.Errorf("workspace: remote environment: %w", err)
	}
	return env, nil
}

// InvalidateEnvironmentCache is a no-op: Remote holds no cache of its own,
// every Environment call already re-queries the transport.
func (r *Remote) InvalidateEnvironmentCache(ctx context.Context) error {
	return nil
}
