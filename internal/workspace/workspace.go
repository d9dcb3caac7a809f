// Package workspace abstracts the filesystem and environment a session's
// tools operate against, so the same tool implementations run whether the
// workspace is the local machine or a remote backend reached over a
// transport of its own.
package workspace

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/bmatcuk/doublestar/v4"
)

// Entry is one file or directory returned by ListFiles.
type Entry struct {
	Path  string
	IsDir bool
	Size  int64
}

// Environment is the snapshot of ambient facts a tool or prompt builder
// may need: working directory, OS, and a handful of project markers.
// Workspace caches this with a TTL since most of it is expensive to
// recompute (running git, stat-ing marker files) but rarely changes
// within a single operation.
type Environment struct {
	WorkDir  string
	OS       string
	GitRoot  string
	Branch   string
	Platform string
}

// Workspace is the filesystem and environment surface every tool
// executes against. Local wraps the machine Steer is running on; Remote
// reaches a workspace over a backend-specific transport (ssh, container
// exec, etc).
type Workspace interface {
	// ReadFile returns the content of path, optionally windowed to
	// [startLine, endLine] (1-indexed, inclusive; 0 means unbounded).
	ReadFile(ctx context.Context, path string, startLine, endLine int) (content string, truncated bool, err error)
	WriteFile(ctx context.Context, path, content string) error
	ListFiles(ctx context.Context, root, query string, ignore []string, limit int) ([]Entry, bool, error)
	Glob(ctx context.Context, pattern, root string, limit int) ([]string, bool, error)
	RunCommand(ctx context.Context, command string, timeout time.Duration) (stdout, stderr string, exitCode int, timedOut bool, err error)
	Environment(ctx context.Context) (Environment, error)
	// InvalidateEnvironmentCache forces the next Environment call to
	// recompute rather than serve a cached snapshot. Callers use this
	// after an operation that can change GitRoot or Branch out from
	// under the cache's TTL, such as a bash command that checks out a
	// different branch.
	InvalidateEnvironmentCache(ctx context.Context) error
}

// defaultIgnorePatterns mirrors the directories tools should never
// descend into by default.
var defaultIgnorePatterns = []string{
	"node_modules/", "__pycache__/", ".git/", "dist/", "build/", "target/",
	"vendor/", "bin/", "obj/", ".idea/", ".vscode/", ".cache/", "tmp/",
	"temp/", "logs/", ".venv/", "venv/", "env/",
}

func shouldIgnore(relPath string, isDir bool, patterns []string) bool {
	name := filepath.Base(relPath)
	checkName := name
	if isDir {
		checkName = name + "/"
	}
	for _, p := range patterns {
		if strings.HasSuffix(p, "/") {
			if isDir && checkName == p {
				return true
			}
			continue
		}
		if matched, _ := doublestar.Match(p, name); matched {
			return true
		}
		if matched, _ := doublestar.Match(p, relPath); matched {
			return true
		}
	}
	return false
}

// rankByQuery fuzzy-sorts entries by Levenshtein distance to query against
// their path, ascending (closest match first). Entries are left in their
// original relative order when query is empty.
func rankByQuery(entries []Entry, query string) {
	if query == "" {
		return
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return levenshtein.ComputeDistance(entries[i].Path, query) < levenshtein.ComputeDistance(entries[j].Path, query)
	})
}

// Local is a Workspace backed directly by the local filesystem and shell.
type Local struct {
	root string

	envMu     sync.RWMutex
	envCached Environment
	envAt     time.Time
	envTTL    time.Duration
}

// NewLocal constructs a Local workspace rooted at root.
func NewLocal(root string) *Local {
	return &Local{root: root, envTTL: 30 * time.Second}
}

func (l *Local) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.root, path)
}

func (l *Local) ReadFile(ctx context.Context, path string, startLine, endLine int) (string, bool, error) {
	data, err := os.ReadFile(l.resolve(path))
	if err != nil {
		return "", false, fmt.Errorf("workspace: read %s: %w", path, err)
	}
	if startLine <= 0 && endLine <= 0 {
		return string(data), false, nil
	}
	return windowLines(string(data), startLine, endLine)
}

// windowLines slices content to the 1-indexed, inclusive [startLine,
// endLine] range, reporting whether the slice cut off trailing lines.
func windowLines(content string, startLine, endLine int) (string, bool, error) {
	lines := strings.Split(content, "\n")
	start := startLine - 1
	if start < 0 {
		start = 0
	}
	end := endLine
	truncated := false
	if end <= 0 || end > len(lines) {
		end = len(lines)
	} else {
		truncated = end < len(lines)
	}
	if start > end {
		start = end
	}
	return strings.Join(lines[start:end], "\n"), truncated, nil
}

// matchGlob reports whether name matches pattern using the same glob
// dialect as Local.Glob.
func matchGlob(pattern, name string) (bool, error) {
	return doublestar.Match(pattern, name)
}

func (l *Local) WriteFile(ctx context.Context, path, content string) error {
	full := l.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("workspace: mkdir for %s: %w", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("workspace: write %s: %w", path, err)
	}
	return nil
}

func (l *Local) ListFiles(ctx context.Context, root, query string, ignore []string, limit int) ([]Entry, bool, error) {
	base := l.resolve(root)
	patterns := append(append([]string{}, defaultIgnorePatterns...), ignore...)

	var entries []Entry
	truncated := false
	err := filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort walk; skip unreadable entries
		}
		if path == base {
			return nil
		}
		rel, _ := filepath.Rel(base, path)
		if shouldIgnore(rel, d.IsDir(), patterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if limit > 0 && len(entries) >= limit {
			truncated = true
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		info, _ := d.Info()
		size := int64(0)
		if info != nil {
			size = info.Size()
		}
		entries = append(entries, Entry{Path: rel, IsDir: d.IsDir(), Size: size})
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("workspace: list %s: %w", root, err)
	}

	rankByQuery(entries, query)
	return entries, truncated, nil
}

func (l *Local) Glob(ctx context.Context, pattern, root string, limit int) ([]string, bool, error) {
	base := l.resolve(root)
	fsys := os.DirFS(base)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, false, fmt.Errorf("workspace: glob %s: %w", pattern, err)
	}
	sort.Strings(matches)
	truncated := false
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
		truncated = true
	}
	return matches, truncated, nil
}

func (l *Local) RunCommand(ctx context.Context, command string, timeout time.Duration) (string, string, int, bool, error) {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = l.root

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	timedOut := runCtx.Err() == context.DeadlineExceeded

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else if !timedOut {
			return stdout.String(), stderr.String(), -1, timedOut, fmt.Errorf("workspace: run command: %w", err)
		}
	}
	return stdout.String(), stderr.String(), exitCode, timedOut, nil
}

func (l *Local) Environment(ctx context.Context) (Environment, error) {
	l.envMu.RLock()
	if time.Since(l.envAt) < l.envTTL {
		env := l.envCached
		l.envMu.RUnlock()
		return env, nil
	}
	l.envMu.RUnlock()

	l.envMu.Lock()
	defer l.envMu.Unlock()
	if time.Since(l.envAt) < l.envTTL {
		return l.envCached, nil
	}

	env := Environment{WorkDir: l.root, OS: runtime.GOOS, Platform: runtime.GOOS}
	if out, _, _, _, err := l.RunCommand(ctx, "git rev-parse --show-toplevel", 5*time.Second); err == nil {
		env.GitRoot = strings.TrimSpace(out)
	}
	if out, _, _, _, err := l.RunCommand(ctx, "git rev-parse --abbrev-ref HEAD", 5*time.Second); err == nil {
		env.Branch = strings.TrimSpace(out)
	}

	l.envCached = env
	l.envAt = time.Now()
	return env, nil
}

// InvalidateEnvironmentCache zeroes the cached Environment's timestamp so
// the next Environment call recomputes it from scratch.
func (l *Local) InvalidateEnvironmentCache(ctx context.Context) error {
	l.envMu.Lock()
	defer l.envMu.Unlock()
	l.envAt = time.Time{}
	return nil
}
