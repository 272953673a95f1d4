// Package ignore filters host paths out of path-listing checks using
// gitignore-style patterns from .upsiftignore and the ignore_paths config key.
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// DefaultFile is the ignore file looked up in the working directory.
const DefaultFile = ".upsiftignore"

// Matcher holds normalized patterns. The zero value matches nothing.
type Matcher struct {
	patterns []string
}

// New builds a Matcher from raw patterns, dropping blanks and comments.
func New(patterns ...string) Matcher {
	var m Matcher
	return m.With(patterns...)
}

// With returns a copy of m extended with more patterns.
func (m Matcher) With(patterns ...string) Matcher {
	out := Matcher{patterns: append([]string(nil), m.patterns...)}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		out.patterns = append(out.patterns, p)
	}
	return out
}

// Load reads patterns from path. A missing file yields an empty Matcher.
func Load(path string) (Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Matcher{}, nil
		}
		return Matcher{}, fmt.Errorf("open ignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return Matcher{}, fmt.Errorf("read ignore file: %w", err)
	}
	return New(lines...), nil
}

// Patterns returns the normalized patterns.
func (m Matcher) Patterns() []string { return append([]string(nil), m.patterns...) }

// Match reports whether p, absolute or relative, is covered by any pattern.
//
// A pattern ending in "/" covers a directory and everything beneath it. A
// pattern without a slash matches at any depth. Anything else is anchored
// at the filesystem root.
func (m Matcher) Match(p string) bool {
	p = strings.TrimPrefix(p, "/")
	for _, pat := range m.patterns {
		if matchOne(pat, p) {
			return true
		}
	}
	return false
}

func matchOne(pat, p string) bool {
	if strings.HasSuffix(pat, "/") {
		dir := strings.TrimSuffix(pat, "/")
		if strings.HasPrefix(dir, "/") {
			dir = strings.TrimPrefix(dir, "/")
			return p == dir || glob(dir+"/**", p)
		}
		return glob("**/"+dir, p) || glob("**/"+dir+"/**", p)
	}
	if !strings.Contains(pat, "/") {
		return glob("**/"+pat, p) || glob("**/"+pat+"/**", p)
	}
	pat = strings.TrimPrefix(pat, "/")
	return glob(pat, p) || glob(pat+"/**", p)
}

func glob(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}
