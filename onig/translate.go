package onig

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// posixClasses maps POSIX bracket names to character class bodies.
var posixClasses = map[string]string{
	"alnum":  `\p{L}\p{M}\p{Nd}`,
	"alpha":  `\p{L}\p{M}`,
	"ascii":  `\x00-\x7F`,
	"blank":  `\p{Zs}\t`,
	"cntrl":  `\p{Cc}`,
	"digit":  `\d`,
	"graph":  `\x21-\x7E`,
	"lower":  `\p{Ll}`,
	"print":  `\x20-\x7E`,
	"punct":  "\\p{P}$+<=>^`|~",
	"space":  `\s`,
	"upper":  `\p{Lu}`,
	"xdigit": `0-9A-Fa-f`,
	"word":   `\w`,
}

// negatedPosixClasses covers the negated forms expressible inside a class.
// alnum is approximated by \W.
var negatedPosixClasses = map[string]string{
	"alnum": `\W`,
	"alpha": `\P{L}`,
	"cntrl": `\P{Cc}`,
	"digit": `\D`,
	"lower": `\P{Ll}`,
	"punct": `\P{P}`,
	"space": `\S`,
	"upper": `\P{Lu}`,
	"word":  `\W`,
}

// escapes regexp2 understands as-is, outside a class.
const passthroughEscapes = "aAbBcdDefGnrsStuvwWzZ0123456789"

// Translate rewrites an Oniguruma (Ruby syntax) pattern into the dialect
// accepted by regexp2. Named groups become plain groups so that group
// numbers follow source order, and named back-references become numeric.
func Translate(pattern string) (string, error) {
	t := &translator{
		src:    pattern,
		names:  make(map[string]int),
		keepAt: -1,
	}
	t.collectGroupNames()
	if err := t.run(); err != nil {
		return "", err
	}
	if t.keepAt >= 0 {
		return t.keepOut()
	}
	return t.out.String(), nil
}

type translator struct {
	src   string
	pos   int
	out   strings.Builder
	names map[string]int

	// start offsets in out of open groups, and the extended flag per level
	groupStarts []int
	extended    []bool
	lastAtom    int

	// \K position in out, the end of leading (?imx) groups, and whether a
	// top-level alternation was seen
	keepAt         int
	leadingOptsEnd int
	topAlternation bool
}

// keepOut rewrites X\KY as (?<=X)Y. Leading option groups stay in front so
// they still apply to Y.
func (t *translator) keepOut() (string, error) {
	if t.topAlternation {
		return "", fmt.Errorf(`\K with a top-level alternation is not supported`)
	}
	out := t.out.String()
	opts := out[:t.leadingOptsEnd]
	return opts + "(?<=" + out[t.leadingOptsEnd:t.keepAt] + ")" + out[t.keepAt:], nil
}

// collectGroupNames numbers capture groups in source order.
func (t *translator) collectGroupNames() {
	s := t.src
	n := 0
	inClass := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			i++
		case c == '[':
			inClass++
		case c == ']' && inClass > 0:
			inClass--
		case c == '(' && inClass == 0:
			rest := s[i+1:]
			if !strings.HasPrefix(rest, "?") {
				n++
				continue
			}
			name, ok := groupName(rest)
			if ok {
				n++
				if _, seen := t.names[name]; !seen {
					t.names[name] = n
				}
			}
		}
	}
}

// groupName reports the name of a named-group opener following "(".
func groupName(rest string) (string, bool) {
	var open, closing string
	switch {
	case strings.HasPrefix(rest, "?P<"):
		open, closing = "?P<", ">"
	case strings.HasPrefix(rest, "?<") && !strings.HasPrefix(rest, "?<=") && !strings.HasPrefix(rest, "?<!"):
		open, closing = "?<", ">"
	case strings.HasPrefix(rest, "?'"):
		open, closing = "?'", "'"
	default:
		return "", false
	}
	end := strings.Index(rest[len(open):], closing)
	if end <= 0 {
		return "", false
	}
	return rest[len(open) : len(open)+end], true
}

func (t *translator) inExtended() bool {
	if len(t.extended) == 0 {
		return false
	}
	return t.extended[len(t.extended)-1]
}

func (t *translator) run() error {
	t.extended = []bool{false}
	for t.pos < len(t.src) {
		c := t.src[t.pos]

		if t.inExtended() {
			if c == '#' {
				end := strings.IndexByte(t.src[t.pos:], '\n')
				if end < 0 {
					end = len(t.src) - t.pos
				}
				t.out.WriteString(t.src[t.pos : t.pos+end])
				t.pos += end
				continue
			}
			if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v' {
				t.out.WriteByte(c)
				t.pos++
				continue
			}
		}

		switch c {
		case '\\':
			t.lastAtom = t.out.Len()
			if err := t.escape(); err != nil {
				return err
			}
		case '[':
			t.lastAtom = t.out.Len()
			body, err := t.class()
			if err != nil {
				return err
			}
			t.out.WriteString(body)
		case '(':
			if err := t.openGroup(); err != nil {
				return err
			}
		case ')':
			t.closeGroup()
		case '|':
			if len(t.groupStarts) == 0 {
				t.topAlternation = true
			}
			t.out.WriteByte(c)
			t.pos++
		case '*', '+', '?':
			t.pos++
			t.quantifier(string(c))
		case '{':
			if q, ok := t.interval(); ok {
				t.quantifier(q)
				continue
			}
			t.lastAtom = t.out.Len()
			t.out.WriteString(`\{`)
			t.pos++
		default:
			t.lastAtom = t.out.Len()
			_, size := utf8.DecodeRuneInString(t.src[t.pos:])
			t.out.WriteString(t.src[t.pos : t.pos+size])
			t.pos += size
		}
	}
	if len(t.groupStarts) > 0 {
		return fmt.Errorf("unbalanced parenthesis")
	}
	return nil
}

// quantifier writes q and handles the possessive and lazy suffixes.
func (t *translator) quantifier(q string) {
	isInterval := strings.HasPrefix(q, "{")
	if t.pos < len(t.src) && t.src[t.pos] == '+' {
		t.pos++
		cur := t.out.String()
		atom := cur[t.lastAtom:]
		t.out.Reset()
		t.out.WriteString(cur[:t.lastAtom])
		if isInterval {
			// {n,m}+ is a repeated interval in Ruby syntax.
			t.out.WriteString("(?:" + atom + q + ")+")
		} else {
			t.out.WriteString("(?>" + atom + q + ")")
		}
		return
	}
	t.out.WriteString(q)
	if t.pos < len(t.src) && t.src[t.pos] == '?' {
		t.out.WriteByte('?')
		t.pos++
	}
}

// interval parses {n}, {n,}, {,m} or {n,m} at pos.
func (t *translator) interval() (string, bool) {
	end := strings.IndexByte(t.src[t.pos:], '}')
	if end < 0 {
		return "", false
	}
	inner := t.src[t.pos+1 : t.pos+end]
	lo, hi, hasComma := strings.Cut(inner, ",")
	if lo == "" && (!hasComma || hi == "") {
		return "", false
	}
	if lo != "" && !isDigits(lo) || hi != "" && !isDigits(hi) {
		return "", false
	}
	t.pos += end + 1
	if lo == "" {
		lo = "0"
	}
	if !hasComma {
		return "{" + lo + "}", true
	}
	return "{" + lo + "," + hi + "}", true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func (t *translator) openGroup() error {
	start := t.out.Len()
	rest := t.src[t.pos+1:]
	ext := t.inExtended()

	switch {
	case !strings.HasPrefix(rest, "?"):
		t.out.WriteByte('(')
		t.pos++
	case strings.HasPrefix(rest, "?#"):
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return fmt.Errorf("unterminated comment group")
		}
		t.pos += end + 2
		return nil
	case strings.HasPrefix(rest, "?~"):
		return fmt.Errorf("absent operator is not supported")
	default:
		if name, ok := groupName(rest); ok {
			t.out.WriteByte('(')
			skip := 1 + len("?<") + len(name) + 1
			if strings.HasPrefix(rest, "?P<") {
				skip++
			}
			t.pos += skip
			break
		}
		if opts, n, scoped, ok := inlineOptions(rest); ok {
			on, off, _ := strings.Cut(opts, "-")
			if strings.Contains(on, "x") {
				ext = true
			}
			if strings.Contains(off, "x") {
				ext = false
			}
			t.pos += 1 + n
			if !scoped {
				// (?imx) applies to the rest of the enclosing group.
				t.out.WriteString("(?" + rubyOptions(opts) + ")")
				t.extended[len(t.extended)-1] = ext
				if start == t.leadingOptsEnd && len(t.groupStarts) == 0 {
					t.leadingOptsEnd = t.out.Len()
				}
				return nil
			}
			t.out.WriteString("(?" + rubyOptions(opts) + ":")
			break
		}
		// (?: (?= (?! (?> (?<= (?<!
		t.out.WriteByte('(')
		t.pos++
	}

	t.groupStarts = append(t.groupStarts, start)
	t.extended = append(t.extended, ext)
	return nil
}

// inlineOptions parses "?imx-imx)" or "?imx-imx:" and returns the option
// letters, the length consumed after "(" and whether it opens a group.
func inlineOptions(rest string) (string, int, bool, bool) {
	i := 1
	for i < len(rest) && strings.IndexByte("imx-", rest[i]) >= 0 {
		i++
	}
	if i == 1 || i >= len(rest) {
		return "", 0, false, false
	}
	switch rest[i] {
	case ')':
		return rest[1:i], i + 1, false, true
	case ':':
		return rest[1:i], i + 1, true, true
	}
	return "", 0, false, false
}

// rubyOptions maps Ruby's m (dot matches newline) to s.
func rubyOptions(opts string) string {
	return strings.ReplaceAll(opts, "m", "s")
}

func (t *translator) closeGroup() {
	t.out.WriteByte(')')
	t.pos++
	if n := len(t.groupStarts); n > 0 {
		t.lastAtom = t.groupStarts[n-1]
		t.groupStarts = t.groupStarts[:n-1]
		t.extended = t.extended[:len(t.extended)-1]
	}
}

func (t *translator) escape() error {
	if t.pos+1 >= len(t.src) {
		return fmt.Errorf("trailing backslash")
	}
	r, size := utf8.DecodeRuneInString(t.src[t.pos+1:])
	next := t.src[t.pos+1 : t.pos+1+size]
	t.pos += 1 + size

	switch r {
	case 'h':
		t.out.WriteString(`[0-9a-fA-F]`)
	case 'H':
		t.out.WriteString(`[^0-9a-fA-F]`)
	case 'R':
		t.out.WriteString(`(?:\r\n|[\n\v\f\r\u0085\u2028\u2029])`)
	case 'X':
		t.out.WriteString(`(?>\P{M}\p{M}*)`)
	case 'N':
		t.out.WriteString(`[^\n]`)
	case 'O':
		t.out.WriteString(`[\s\S]`)
	case '<', '>', '\'':
		t.out.WriteString(next)
	case 'k':
		return t.namedBackref()
	case 'K':
		if len(t.groupStarts) > 0 {
			return fmt.Errorf(`\K inside a group is not supported`)
		}
		if t.keepAt >= 0 {
			return fmt.Errorf(`repeated \K is not supported`)
		}
		t.keepAt = t.out.Len()
	case 'g':
		return fmt.Errorf("subexpression calls are not supported")
	case 'x':
		t.out.WriteString(t.hexEscape())
	case 'p', 'P':
		prop, err := t.property(r, false)
		if err != nil {
			return err
		}
		t.out.WriteString(prop)
	default:
		if strings.ContainsRune(passthroughEscapes, r) || !isWordRune(r) {
			t.out.WriteString(`\` + next)
		} else {
			// Unknown letter escapes are literals in Oniguruma.
			t.out.WriteString(next)
		}
	}
	return nil
}

func isWordRune(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

// hexEscape handles \xH and \xHH after the "\x" has been consumed.
func (t *translator) hexEscape() string {
	if t.pos < len(t.src) && t.src[t.pos] == '{' {
		end := strings.IndexByte(t.src[t.pos:], '}')
		if end > 0 {
			body := t.src[t.pos : t.pos+end+1]
			t.pos += end + 1
			return `\x` + body
		}
	}
	n := 0
	for n < 2 && t.pos+n < len(t.src) && isHex(t.src[t.pos+n]) {
		n++
	}
	digits := t.src[t.pos : t.pos+n]
	t.pos += n
	switch n {
	case 0:
		return "x"
	case 1:
		return `\x0` + digits
	}
	return `\x` + digits
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// propertyAliases maps Oniguruma property names that regexp2 lacks to a
// POSIX bracket name. Lookup keys are lower case without spaces, hyphens or
// underscores.
var propertyAliases = map[string]string{
	"alnum":      "alnum",
	"alpha":      "alpha",
	"alphabetic": "alpha",
	"ascii":      "ascii",
	"blank":      "blank",
	"cntrl":      "cntrl",
	"digit":      "digit",
	"graph":      "graph",
	"lower":      "lower",
	"lowercase":  "lower",
	"print":      "print",
	"punct":      "punct",
	"space":      "space",
	"whitespace": "space",
	"upper":      "upper",
	"uppercase":  "upper",
	"xdigit":     "xdigit",
	"word":       "word",
}

// property translates \p{Name}, \p{^Name} and \P{Name} after the "\p" has
// been consumed. General categories and scripts pass through; POSIX-style
// names become class bodies.
func (t *translator) property(r rune, inClass bool) (string, error) {
	if !strings.HasPrefix(t.src[t.pos:], "{") {
		return `\` + string(r), nil
	}
	end := strings.IndexByte(t.src[t.pos:], '}')
	if end < 0 {
		return `\` + string(r), nil
	}
	name := t.src[t.pos+1 : t.pos+end]
	t.pos += end + 1

	negated := r == 'P'
	if strings.HasPrefix(name, "^") {
		negated = !negated
		name = name[1:]
	}

	key := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(name))
	if key == "any" {
		if negated {
			return "", fmt.Errorf(`\P{Any} never matches and is not supported`)
		}
		if inClass {
			return `\s\S`, nil
		}
		return `[\s\S]`, nil
	}
	if posix, ok := propertyAliases[key]; ok {
		switch {
		case inClass && negated:
			body, ok := negatedPosixClasses[posix]
			if !ok {
				return "", fmt.Errorf("negated property %q inside a class is not supported", name)
			}
			return body, nil
		case inClass:
			return posixClasses[posix], nil
		case negated:
			return "[^" + posixClasses[posix] + "]", nil
		default:
			return "[" + posixClasses[posix] + "]", nil
		}
	}

	if negated {
		return `\P{` + name + `}`, nil
	}
	return `\p{` + name + `}`, nil
}

func (t *translator) namedBackref() error {
	if t.pos >= len(t.src) {
		return fmt.Errorf("malformed back-reference")
	}
	closing := byte('>')
	switch t.src[t.pos] {
	case '<':
	case '\'':
		closing = '\''
	default:
		return fmt.Errorf("malformed back-reference")
	}
	end := strings.IndexByte(t.src[t.pos+1:], closing)
	if end < 0 {
		return fmt.Errorf("malformed back-reference")
	}
	ref := t.src[t.pos+1 : t.pos+1+end]
	t.pos += end + 2

	if n, err := strconv.Atoi(ref); err == nil && n > 0 {
		t.out.WriteString(`(?:\` + ref + `)`)
		return nil
	}
	num, ok := t.names[ref]
	if !ok {
		return fmt.Errorf("undefined group name %q", ref)
	}
	// Parenthesised so a following digit is not read as part of the number.
	t.out.WriteString(`(?:\` + strconv.Itoa(num) + `)`)
	return nil
}

// class translates a bracket expression starting at pos and returns the
// regexp2 text for it.
func (t *translator) class() (string, error) {
	var b strings.Builder
	t.pos++ // [
	b.WriteByte('[')
	if t.pos < len(t.src) && t.src[t.pos] == '^' {
		b.WriteByte('^')
		t.pos++
	}
	if t.pos < len(t.src) && t.src[t.pos] == ']' {
		b.WriteString(`\]`)
		t.pos++
	}
	body, err := t.classBody()
	if err != nil {
		return "", err
	}
	b.WriteString(body)
	b.WriteByte(']')
	return b.String(), nil
}

// classBody consumes class items up to and including the closing bracket.
func (t *translator) classBody() (string, error) {
	var b strings.Builder
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		switch {
		case c == ']':
			t.pos++
			return b.String(), nil
		case c == '\\':
			if t.pos+1 >= len(t.src) {
				return "", fmt.Errorf("trailing backslash in class")
			}
			r, size := utf8.DecodeRuneInString(t.src[t.pos+1:])
			next := t.src[t.pos+1 : t.pos+1+size]
			t.pos += 1 + size
			switch r {
			case 'h':
				b.WriteString(`0-9a-fA-F`)
			case 'H':
				return "", fmt.Errorf(`\H inside a character class is not supported`)
			case 'x':
				b.WriteString(t.hexEscape())
			case 'p', 'P':
				prop, err := t.property(r, true)
				if err != nil {
					return "", err
				}
				b.WriteString(prop)
			case '<', '>', '\'':
				b.WriteString(next)
			default:
				if strings.ContainsRune(passthroughEscapes, r) || !isWordRune(r) {
					b.WriteString(`\` + next)
				} else {
					b.WriteString(next)
				}
			}
		case c == '[' && strings.HasPrefix(t.src[t.pos:], "[:"):
			end := strings.Index(t.src[t.pos:], ":]")
			if end < 0 {
				b.WriteString(`\[`)
				t.pos++
				continue
			}
			name := t.src[t.pos+2 : t.pos+end]
			negated := strings.HasPrefix(name, "^")
			name = strings.TrimPrefix(name, "^")
			var body string
			var ok bool
			if negated {
				body, ok = negatedPosixClasses[name]
			} else {
				body, ok = posixClasses[name]
			}
			if !ok {
				return "", fmt.Errorf("unsupported POSIX bracket [:%s:]", name)
			}
			b.WriteString(body)
			t.pos += end + 2
		case c == '[':
			if strings.HasPrefix(t.src[t.pos:], "[^") {
				return "", fmt.Errorf("negated nested character class is not supported")
			}
			t.pos++
			if t.pos < len(t.src) && t.src[t.pos] == ']' {
				b.WriteString(`\]`)
				t.pos++
			}
			inner, err := t.classBody()
			if err != nil {
				return "", err
			}
			b.WriteString(inner)
		case c == '&' && strings.HasPrefix(t.src[t.pos:], "&&"):
			return "", fmt.Errorf("character class intersection is not supported")
		default:
			_, size := utf8.DecodeRuneInString(t.src[t.pos:])
			b.WriteString(t.src[t.pos : t.pos+size])
			t.pos += size
		}
	}
	return "", fmt.Errorf("unterminated character class")
}
