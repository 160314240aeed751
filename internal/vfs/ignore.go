package vfs

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreSet holds compiled gitignore-style exclusion patterns.
//
// Supported pattern forms:
//   - "name"        matches any path component with that name, anywhere
//   - "dir/"        same, but only directories (and everything under them)
//   - "a/b/*.go"    slash patterns match against the full relative path
//   - "**" globs    per doublestar semantics
//
// A path is excluded if the pattern matches the path itself or any of its
// ancestor directories.
type IgnoreSet struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	glob     string
	anchored bool // contains a slash: match against the full relative path
}

// NewIgnoreSet compiles the given patterns. Invalid glob syntax is rejected
// up front so a bad pattern cannot silently ignore nothing.
func NewIgnoreSet(patterns []string) (*IgnoreSet, error) {
	set := &IgnoreSet{}
	for _, raw := range patterns {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		p = strings.TrimSuffix(p, "/")
		anchored := strings.Contains(p, "/")

		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid ignore pattern %q", raw)
		}
		set.patterns = append(set.patterns, ignorePattern{glob: p, anchored: anchored})
	}
	return set, nil
}

// Match reports whether the relative slash-separated path is ignored.
func (s *IgnoreSet) Match(rel string) bool {
	if len(s.patterns) == 0 {
		return false
	}

	// Check the path and each ancestor: ignoring a directory ignores its
	// entire subtree.
	for probe := rel; probe != "" && probe != "."; probe = parentPath(probe) {
		for _, p := range s.patterns {
			if p.anchored {
				if ok, _ := doublestar.Match(p.glob, probe); ok {
					return true
				}
			} else {
				if ok, _ := doublestar.Match(p.glob, lastComponent(probe)); ok {
					return true
				}
			}
		}
	}
	return false
}

// Len returns the number of compiled patterns.
func (s *IgnoreSet) Len() int {
	return len(s.patterns)
}

func parentPath(rel string) string {
	i := strings.LastIndexByte(rel, '/')
	if i < 0 {
		return ""
	}
	return rel[:i]
}

func lastComponent(rel string) string {
	i := strings.LastIndexByte(rel, '/')
	if i < 0 {
		return rel
	}
	return rel[i+1:]
}
