// # internal/engine/ignore/patterns.go
package ignore

import (
	"strings"
)

// Rule is one ignore-file line in glob form. Patterns holds the base
// pattern and the extended one that also covers everything below it.
type Rule struct {
	Negated  bool
	Patterns [2]string
}

func (r Rule) Base() string     { return r.Patterns[0] }
func (r Rule) Extended() string { return r.Patterns[1] }

// ConvertPattern turns a single ignore-file pattern into glob form.
//
//	"*.log"     -> **/*.log, **/*.log/**
//	"!keep.log" -> negated **/keep.log, **/keep.log/**
//	"/root.txt" -> root.txt, root.txt/**
//	"build/"    -> **/build, **/build/**
func ConvertPattern(pattern string) Rule {
	var r Rule
	if strings.HasPrefix(pattern, "!") {
		r.Negated = true
		pattern = pattern[1:]
	}
	pattern = strings.TrimSuffix(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "*/**/")

	if strings.HasPrefix(pattern, "/") {
		pattern = pattern[1:]
	} else if !strings.HasPrefix(pattern, "**/") {
		pattern = "**/" + pattern
	}

	ext := pattern + "/**"
	if strings.HasSuffix(pattern, "/*") {
		ext = pattern
	}
	r.Patterns = [2]string{pattern, ext}
	return r
}

// ParsePatterns reads the content of one ignore file. ancestor is the path
// from the file's directory down to the working directory, with a trailing
// slash, when the file sits above the working directory; patterns are then
// rewritten to be relative to the working directory and those anchored
// elsewhere are dropped.
func ParsePatterns(content, ancestor string) []Rule {
	var rules []Rule
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pattern := strings.TrimSpace(stripComment(line))
		if pattern == "" || pattern == "!" || pattern == "/" {
			continue
		}
		if ancestor != "" {
			var ok bool
			if pattern, ok = rebaseAncestorPattern(pattern, ancestor); !ok {
				continue
			}
			if strings.TrimLeft(pattern, "!/") == "" {
				continue
			}
		}
		rules = append(rules, ConvertPattern(pattern))
	}
	return rules
}

// stripComment cuts the line at the first "#" not escaped by a backslash.
func stripComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] == '#' && (i == 0 || line[i-1] != '\\') {
			return line[:i]
		}
	}
	return line
}

func rebaseAncestorPattern(pattern, ancestor string) (string, bool) {
	prefix := ""
	rest := pattern
	if strings.HasPrefix(rest, "!") {
		prefix, rest = "!", rest[1:]
	}
	if strings.HasPrefix(rest, "/") {
		prefix, rest = prefix+"/", rest[1:]
	}
	if strings.HasPrefix(rest, ancestor) {
		return prefix + rest[len(ancestor):], true
	}

	switch {
	case strings.HasPrefix(pattern, "/**/"):
		return pattern[1:], true
	case strings.HasPrefix(pattern, "!/**/"):
		return "!" + pattern[2:], true
	case strings.HasPrefix(pattern, "/"), strings.HasPrefix(pattern, "!/"):
		return "", false
	}
	return pattern, true
}
