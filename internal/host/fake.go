package host

import (
	"context"
	"fmt"
	"io/fs"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"testing/fstest"
	"time"
)

// Command is a canned result for Fake.Run.
type Command struct {
	Stdout string
	Err    error
}

// Call records one Fake.Run invocation.
type Call struct {
	Line    string
	Timeout time.Duration
}

// Fake is an in-memory Host for tests. Files are keyed without the leading
// slash, as fstest.MapFS requires. Commands are keyed by "name arg1 arg2".
type Fake struct {
	Files         fstest.MapFS
	Env           map[string]string
	User          string
	WritablePaths map[string]bool
	Commands      map[string]Command

	// Denied paths fail ReadFile and ReadDir with fs.ErrPermission.
	Denied map[string]bool

	mu    sync.Mutex
	calls []Call
}

// NewFake returns a Fake with empty maps ready to populate.
func NewFake() *Fake {
	return &Fake{
		Files:         fstest.MapFS{},
		Env:           map[string]string{},
		User:          "nobody",
		WritablePaths: map[string]bool{},
		Commands:      map[string]Command{},
		Denied:        map[string]bool{},
	}
}

// AddFile stores data at the absolute path name with the given mode.
func (f *Fake) AddFile(name, data string, mode fs.FileMode) {
	f.Files[rel(name)] = &fstest.MapFile{Data: []byte(data), Mode: mode}
}

func (f *Fake) view() fsView { return fsView{fsys: f.Files} }

func (f *Fake) denied(op, name string) error {
	if f.Denied["/"+rel(name)] {
		return &fs.PathError{Op: op, Path: name, Err: fs.ErrPermission}
	}
	return nil
}

func (f *Fake) ReadFile(name string) ([]byte, error) {
	if err := f.denied("open", name); err != nil {
		return nil, err
	}
	return f.view().ReadFile(name)
}

func (f *Fake) ReadDir(name string) ([]fs.DirEntry, error) {
	if err := f.denied("readdir", name); err != nil {
		return nil, err
	}
	return f.view().ReadDir(name)
}

func (f *Fake) Stat(name string) (fs.FileInfo, error) { return f.view().Stat(name) }
func (f *Fake) Glob(pattern string) ([]string, error) { return f.view().Glob(pattern) }

func (f *Fake) WalkDir(root string, fn fs.WalkDirFunc) error { return f.view().WalkDir(root, fn) }

func (f *Fake) Writable(name string) bool { return f.WritablePaths[name] }

func (f *Fake) Environ() []string {
	out := make([]string, 0, len(f.Env))
	for k, v := range f.Env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func (f *Fake) Username() (string, error) {
	if f.User == "" {
		return "", fmt.Errorf("no user configured")
	}
	return f.User, nil
}

// Run returns the canned Command for the invocation. Unknown commands behave
// like a missing binary.
func (f *Fake) Run(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	f.mu.Lock()
	f.calls = append(f.calls, Call{Line: line, Timeout: timeout})
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := f.Commands[line]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", name, exec.ErrNotFound)
	}
	return []byte(c.Stdout), c.Err
}

// Calls returns the recorded Run invocations in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
