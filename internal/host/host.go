package host

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// DefaultCommandTimeout applies when Run is called without a timeout.
const DefaultCommandTimeout = 30 * time.Second

// ErrTimeout is wrapped by Run when a command exceeds its deadline.
var ErrTimeout = errors.New("command timed out")

// ExitError reports a command that ran but exited non-zero. Stdout
// collected before the exit is still returned alongside it.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Name, e.Code, e.Stderr)
}

// Host is the read-only view of the machine that checks inspect. All paths
// are absolute. Implementations must not modify host state.
type Host interface {
	ReadFile(name string) ([]byte, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	Stat(name string) (fs.FileInfo, error)
	// WalkDir walks root like fs.WalkDir, passing absolute paths to fn.
	WalkDir(root string, fn fs.WalkDirFunc) error
	// Glob expands a doublestar pattern and returns absolute paths.
	Glob(pattern string) ([]string, error)
	// Writable reports whether the current user may write name.
	Writable(name string) bool
	// Environ returns the process environment as KEY=VALUE pairs.
	Environ() []string
	Username() (string, error)
	// Run executes a read-only command with an explicit timeout and returns stdout.
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error)
}

// fsView adapts an fs.FS rooted at "/" to absolute-path access.
type fsView struct {
	fsys fs.FS
}

func rel(name string) string {
	name = path.Clean("/" + name)
	if name == "/" {
		return "."
	}
	return name[1:]
}

func abs(p string) string {
	if p == "." {
		return "/"
	}
	return "/" + p
}

func (v fsView) ReadFile(name string) ([]byte, error) { return fs.ReadFile(v.fsys, rel(name)) }

func (v fsView) ReadDir(name string) ([]fs.DirEntry, error) { return fs.ReadDir(v.fsys, rel(name)) }

func (v fsView) Stat(name string) (fs.FileInfo, error) { return fs.Stat(v.fsys, rel(name)) }

func (v fsView) WalkDir(root string, fn fs.WalkDirFunc) error {
	return fs.WalkDir(v.fsys, rel(root), func(p string, d fs.DirEntry, err error) error {
		return fn(abs(p), d, err)
	})
}

func (v fsView) Glob(pattern string) ([]string, error) {
	matches, err := doublestar.Glob(v.fsys, rel(pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = abs(m)
	}
	return out, nil
}

// Lines splits command or file output into trimmed, non-empty lines.
func Lines(b []byte) []string {
	var out []string
	for _, l := range strings.Split(string(b), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
