// # internal/engine/glob/pattern.go
package glob

import (
	"strings"

	gobwas "github.com/gobwas/glob"
)

// Pattern is a compiled glob. "**/" may match zero or more directories,
// "*" never crosses a "/", braces and character classes follow gobwas/glob.
type Pattern struct {
	Source   string
	Negated  bool
	prefix   string
	variants []gobwas.Glob
}

// Match reports whether the slash-separated relative path matches.
// Negation is not applied here; callers decide what a negated match means.
func (p *Pattern) Match(rel string) bool {
	for _, g := range p.variants {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Covers reports whether the pattern matches every path below dir, judged by
// one entry one level down and one two levels down.
func (p *Pattern) Covers(dir string) bool {
	child := dir + "/" + dirProbe
	return p.Match(child) && p.Match(child+"/"+dirProbe)
}

// ReachesBelow reports whether the pattern could match dir or anything
// inside it. Only the literal leading segments are compared, so the answer
// errs towards true.
func (p *Pattern) ReachesBelow(dir string) bool {
	if p.prefix == "" || p.prefix == dir {
		return true
	}
	return strings.HasPrefix(p.prefix, dir+"/") || strings.HasPrefix(dir, p.prefix+"/")
}

func compilePattern(source string) (*Pattern, error) {
	p := &Pattern{Source: source}
	body := source
	if strings.HasPrefix(body, "!") {
		p.Negated = true
		body = body[1:]
	}
	body = strings.TrimPrefix(body, "./")
	p.prefix = literalPrefix(body)

	for _, variant := range expandGlobstar(body) {
		g, err := gobwas.Compile(variant, '/')
		if err != nil {
			return nil, err
		}
		p.variants = append(p.variants, g)
	}
	return p, nil
}

// expandGlobstar returns every spelling of pattern in which a "**/" segment
// is either kept or dropped, so "a/**/b" also matches "a/b".
func expandGlobstar(pattern string) []string {
	idx := -1
	for i := 0; i+3 <= len(pattern); i++ {
		if pattern[i:i+3] == "**/" && (i == 0 || pattern[i-1] == '/') {
			idx = i
			break
		}
	}
	if idx < 0 {
		return []string{pattern}
	}

	head := pattern[:idx]
	rest := expandGlobstar(pattern[idx+3:])
	out := make([]string, 0, len(rest)*2)
	for _, r := range rest {
		out = append(out, head+"**/"+r, head+r)
	}
	return out
}

// literalPrefix returns the leading segments of pattern that hold no glob
// syntax.
func literalPrefix(pattern string) string {
	segs := strings.Split(pattern, "/")
	n := 0
	for n < len(segs) && !strings.ContainsAny(segs[n], "*?[{\\") {
		n++
	}
	return strings.Join(segs[:n], "/")
}
