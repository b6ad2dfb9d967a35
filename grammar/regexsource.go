package grammar

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/zjrosen/tmlight/onig"
)

var (
	backReferencePattern = regexp.MustCompile(`\\(\d+)`)
	captureNamePattern   = regexp.MustCompile(`\$(\d+)|\$\{(\d+):/(downcase|upcase)\}`)
)

// regexSource is one alternative of a compiled rule set. \z is rewritten so
// it ignores the newline appended to every line, and \A and \G variants are
// precomputed for the four anchor combinations.
type regexSource struct {
	source            string
	ruleID            RuleID
	hasAnchor         bool
	hasBackReferences bool
	anchors           *anchorVariants
}

type anchorVariants struct {
	a0g0, a0g1, a1g0, a1g1 string
}

func newRegexSource(src string, id RuleID) *regexSource {
	var b strings.Builder
	hasAnchor := false
	last := 0
	for pos := 0; pos < len(src); pos++ {
		if src[pos] != '\\' || pos+1 >= len(src) {
			continue
		}
		switch src[pos+1] {
		case 'z':
			b.WriteString(src[last:pos])
			b.WriteString(`$(?!\n)(?<!\n)`)
			last = pos + 2
		case 'A', 'G':
			hasAnchor = true
		}
		pos++
	}
	if last > 0 {
		b.WriteString(src[last:])
		src = b.String()
	}

	rs := &regexSource{
		source:            src,
		ruleID:            id,
		hasAnchor:         hasAnchor,
		hasBackReferences: backReferencePattern.MatchString(src),
	}
	if hasAnchor {
		rs.anchors = buildAnchorVariants(src)
	}
	return rs
}

// buildAnchorVariants replaces disallowed \A or \G with an escaped U+FFFF,
// which never occurs in text.
func buildAnchorVariants(src string) *anchorVariants {
	var a0g0, a0g1, a1g0, a1g1 strings.Builder
	for pos := 0; pos < len(src); pos++ {
		ch := src[pos]
		a0g0.WriteByte(ch)
		a0g1.WriteByte(ch)
		a1g0.WriteByte(ch)
		a1g1.WriteByte(ch)
		if ch != '\\' || pos+1 >= len(src) {
			continue
		}
		next := src[pos+1]
		switch next {
		case 'A':
			a0g0.WriteString("\uFFFF")
			a0g1.WriteString("\uFFFF")
			a1g0.WriteByte('A')
			a1g1.WriteByte('A')
		case 'G':
			a0g0.WriteString("\uFFFF")
			a0g1.WriteByte('G')
			a1g0.WriteString("\uFFFF")
			a1g1.WriteByte('G')
		default:
			a0g0.WriteByte(next)
			a0g1.WriteByte(next)
			a1g0.WriteByte(next)
			a1g1.WriteByte(next)
		}
		pos++
	}
	return &anchorVariants{
		a0g0: a0g0.String(),
		a0g1: a0g1.String(),
		a1g0: a1g0.String(),
		a1g1: a1g1.String(),
	}
}

func (r *regexSource) resolveAnchors(allowA, allowG bool) string {
	if !r.hasAnchor || r.anchors == nil {
		return r.source
	}
	switch {
	case allowA && allowG:
		return r.anchors.a1g1
	case allowA:
		return r.anchors.a1g0
	case allowG:
		return r.anchors.a0g1
	}
	return r.anchors.a0g0
}

// resolveBackReferences substitutes \N with the escaped text of capture N.
func (r *regexSource) resolveBackReferences(line string, caps []onig.CaptureIndex) string {
	return backReferencePattern.ReplaceAllStringFunc(r.source, func(m string) string {
		n, err := strconv.Atoi(m[1:])
		if err != nil || n >= len(caps) || !caps[n].Matched() {
			return ""
		}
		return escapeRegexp(line[caps[n].Start:caps[n].End])
	})
}

// escapeRegexp escapes the characters that are special in a pattern.
func escapeRegexp(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '-', '\\', '{', '}', '*', '+', '?', '|', '^', '$', '.', ',', '[', ']', '(', ')', '#',
			' ', '\t', '\n', '\r', '\f', '\v':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func hasCaptures(s string) bool {
	return s != "" && captureNamePattern.MatchString(s)
}

// replaceCaptures expands $N, ${N:/downcase} and ${N:/upcase} in a scope
// name with the captured text. Leading dots of captured text are dropped.
func replaceCaptures(name, line string, caps []onig.CaptureIndex) string {
	return captureNamePattern.ReplaceAllStringFunc(name, func(m string) string {
		sub := captureNamePattern.FindStringSubmatch(m)
		idx := sub[1]
		if idx == "" {
			idx = sub[2]
		}
		n, err := strconv.Atoi(idx)
		if err != nil || n >= len(caps) {
			return m
		}
		c := caps[n]
		if !c.Matched() {
			return ""
		}
		text := strings.TrimLeft(line[c.Start:c.End], ".")
		switch sub[3] {
		case "downcase":
			return strings.ToLower(text)
		case "upcase":
			return strings.ToUpper(text)
		}
		return text
	})
}
