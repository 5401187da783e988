package engine

import (
	"regexp"
	"strings"

	"mesh-router/internal/logging"
	"mesh-router/internal/rules"
)

// stringMatcher is the compiled form of a rules.StringMatch. The
// variants form a closed set; validation guarantees exactly one is
// populated per match.
type stringMatcher interface {
	matches(value string) bool
}

// exactMatcher requires case-sensitive equality.
type exactMatcher string

func (m exactMatcher) matches(value string) bool {
	return value == string(m)
}

// prefixMatcher requires a case-sensitive prefix.
type prefixMatcher string

func (m prefixMatcher) matches(value string) bool {
	return strings.HasPrefix(value, string(m))
}

// regexMatcher holds a precompiled pattern. A pattern that failed to
// compile leaves re nil and never matches: regex errors fail closed at
// evaluation rather than aborting rule-set loading.
type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) matches(value string) bool {
	if m.re == nil {
		return false
	}
	return m.re.MatchString(value)
}

// compileStringMatch builds the matcher for a StringMatch. Returns nil
// for a nil match, meaning "no constraint".
func compileStringMatch(m *rules.StringMatch) stringMatcher {
	if m == nil {
		return nil
	}
	switch {
	case m.Exact != "":
		return exactMatcher(m.Exact)
	case m.Prefix != "":
		return prefixMatcher(m.Prefix)
	case m.Regex != "":
		re, err := regexp.Compile(m.Regex)
		if err != nil {
			logging.Warn("unparsable regex pattern, match will never succeed",
				logging.String("pattern", m.Regex),
				logging.Err(err),
			)
			return regexMatcher{}
		}
		return regexMatcher{re: re}
	default:
		return nil
	}
}
