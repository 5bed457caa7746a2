package prompt

import (
	"fmt"
	"regexp"
)

// Matcher holds the two compiled prompt expressions. Both are compiled once
// at startup and never change afterwards.
type Matcher struct {
	prompt *regexp.Regexp
	yesno  *regexp.Regexp
}

// NewMatcher compiles the password and yes/no prompt patterns (BRE),
// optionally case-insensitively.
func NewMatcher(promptBRE, yesnoBRE string, ignoreCase bool) (*Matcher, error) {
	prompt, err := compileBRE(promptBRE, ignoreCase)
	if err != nil {
		return nil, fmt.Errorf("password prompt: %w", err)
	}
	yesno, err := compileBRE(yesnoBRE, ignoreCase)
	if err != nil {
		return nil, fmt.Errorf("yes/no prompt: %w", err)
	}
	return &Matcher{prompt: prompt, yesno: yesno}, nil
}

func compileBRE(pattern string, ignoreCase bool) (*regexp.Regexp, error) {
	translated, err := TranslateBRE(pattern)
	if err != nil {
		return nil, err
	}
	if ignoreCase {
		translated = "(?i)" + translated
	}
	re, err := regexp.Compile(translated)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

// Prompt reports whether the password prompt matches the window, and the
// offset just past the match.
func (m *Matcher) Prompt(window []byte) (end int, ok bool) {
	return matchEnd(m.prompt, window)
}

// YesNo reports whether the yes/no prompt matches the window, and the offset
// just past the match.
func (m *Matcher) YesNo(window []byte) (end int, ok bool) {
	return matchEnd(m.yesno, window)
}

func matchEnd(re *regexp.Regexp, window []byte) (int, bool) {
	loc := re.FindIndex(window)
	if loc == nil {
		return 0, false
	}
	return loc[1], true
}
