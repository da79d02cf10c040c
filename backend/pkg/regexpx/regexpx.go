// Package `regexpx` complements the standard package `regexp` with verbose
// patterns, in which whitespace is ignored, so that longer patterns can be
// laid out on several lines.
package regexpx

import (
	"regexp"
	"strings"
	"unicode"
)

// `Verbose()` removes all whitespace from `s`, including whitespace in
// character classes.  Use `\s` or `\x20` to match space.  Example:
//
// ```
// regexp.MustCompile(regexpx.Verbose(`
//     ^
//     SRV [A-Z]+
//     [0-9]+
//     $
// `))
// ```
func Verbose(s string) string {
	dropSpace := func(c rune) rune {
		if unicode.IsSpace(c) {
			return -1
		}
		return c
	}
	return strings.Map(dropSpace, s)
}

// `MustCompileVerbose()` is `regexp.MustCompile(Verbose(s))`.
func MustCompileVerbose(s string) *regexp.Regexp {
	return regexp.MustCompile(Verbose(s))
}
