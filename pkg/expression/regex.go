package expression

import (
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
)

var (
	patternCache   = make(map[string]*regexp2.Regexp)
	patternCacheMu sync.RWMutex
)

func compilePattern(pattern string) (*regexp2.Regexp, error) {
	patternCacheMu.RLock()
	re, ok := patternCache[pattern]
	patternCacheMu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}

	patternCacheMu.Lock()
	patternCache[pattern] = re
	patternCacheMu.Unlock()

	return re, nil
}

// matchItem tests the pattern against the title and the release name.
func (e *evalContext) matchItem(re *regexp2.Regexp) bool {
	for _, s := range []string{e.Title, e.ReleaseName} {
		if s == "" {
			continue
		}
		if ok, err := re.MatchString(s); err == nil && ok {
			return true
		}
	}
	return false
}

func splitPatterns(patterns string) []string {
	var out []string
	for _, p := range strings.Split(patterns, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (e *evalContext) RegexMatch(pattern string) bool {
	re, err := compilePattern(pattern)
	if err != nil {
		return false
	}
	return e.matchItem(re)
}

// RegexMatchAny checks the comma separated patterns, invalid ones are skipped.
func (e *evalContext) RegexMatchAny(patterns string) bool {
	for _, p := range splitPatterns(patterns) {
		re, err := compilePattern(p)
		if err != nil {
			continue
		}
		if e.matchItem(re) {
			return true
		}
	}
	return false
}

// RegexMatchAll requires every comma separated pattern to match, an invalid
// pattern fails the check.
func (e *evalContext) RegexMatchAll(patterns string) bool {
	ps := splitPatterns(patterns)
	if len(ps) == 0 {
		return false
	}

	for _, p := range ps {
		re, err := compilePattern(p)
		if err != nil || !e.matchItem(re) {
			return false
		}
	}
	return true
}
