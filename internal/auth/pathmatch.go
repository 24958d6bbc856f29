// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"strconv"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// wildcardSuffix marks an excluded path entry as a prefix pattern.
const wildcardSuffix = "*"

// pathRule is one compiled excluded path entry.
type pathRule struct {
	exact   string    // normalized path, used when neither prefix form is set
	prefix  glob.Glob // compiled prefix pattern for entries ending in '*'
	literal *string   // raw prefix for entries glob cannot compile
}

func (r pathRule) match(normalizedPath string) bool {
	switch {
	case r.prefix != nil:
		return r.prefix.Match(normalizedPath)
	case r.literal != nil:
		return strings.HasPrefix(normalizedPath, *r.literal)
	}
	return normalizedPath == r.exact
}

// PathMatcher decides whether request paths are exempt from authentication.
//
// Entries ending in '*' are prefix patterns: the remainder must be a prefix of
// the normalized request path. Every other entry must equal the request path
// once both carry a trailing slash. The '*' suffix is the only wildcard; any
// other glob metacharacter in an entry is matched literally.
type PathMatcher struct {
	rules []pathRule
}

// NewPathMatcher compiles the excluded path entries in order.
func NewPathMatcher(excluded []string) *PathMatcher {
	m := &PathMatcher{rules: make([]pathRule, 0, len(excluded))}
	for _, entry := range excluded {
		if prefix, ok := strings.CutSuffix(entry, wildcardSuffix); ok {
			// Compile rejects entries that are not valid UTF-8.
			g, err := glob.Compile(glob.QuoteMeta(prefix) + wildcardSuffix)
			if err != nil {
				m.rules = append(m.rules, pathRule{literal: &prefix})
				continue
			}
			m.rules = append(m.rules, pathRule{prefix: g})
			continue
		}
		m.rules = append(m.rules, pathRule{exact: normalizePath(entry)})
	}
	return m
}

// RequiresAuth reports whether path needs authentication.
// An empty path or an empty exclusion list fails closed.
func (m *PathMatcher) RequiresAuth(path string) bool {
	if path == "" || m == nil || len(m.rules) == 0 {
		return true
	}
	normalized := normalizePath(path)
	for _, rule := range m.rules {
		if rule.match(normalized) {
			return false
		}
	}
	return true
}

// RequiresAuth reports whether path needs authentication given the
// request-scoped exclusion list.
func RequiresAuth(path string, excluded []string) bool {
	if path == "" || len(excluded) == 0 {
		return true
	}
	return NewPathMatcher(excluded).RequiresAuth(path)
}

// maxCachedMatchers bounds how many distinct exclusion lists a MatcherCache keeps.
const maxCachedMatchers = 64

// MatcherCache hands out one compiled PathMatcher per distinct exclusion list.
// Lists beyond maxCachedMatchers are compiled on every call.
// The zero value is ready to use.
type MatcherCache struct {
	mu       sync.RWMutex
	matchers map[string]*PathMatcher
}

// Matcher returns the compiled matcher for excluded.
func (c *MatcherCache) Matcher(excluded []string) *PathMatcher {
	key := matcherKey(excluded)

	c.mu.RLock()
	m, ok := c.matchers[key]
	c.mu.RUnlock()
	if ok {
		return m
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.matchers[key]; ok {
		return m
	}
	m = NewPathMatcher(excluded)
	if c.matchers == nil {
		c.matchers = make(map[string]*PathMatcher)
	}
	if len(c.matchers) < maxCachedMatchers {
		c.matchers[key] = m
	}
	return m
}

// matcherKey length-prefixes every entry so distinct lists never collide.
func matcherKey(excluded []string) string {
	var b strings.Builder
	for _, entry := range excluded {
		b.WriteString(strconv.Itoa(len(entry)))
		b.WriteByte(':')
		b.WriteString(entry)
	}
	return b.String()
}

// normalizePath appends a trailing slash so "/x" and "/x/" compare equal.
func normalizePath(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}
