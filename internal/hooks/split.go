package hooks

import "strings"

// syntax holds the lexical rules of one engine that decide where a script
// statement ends.
type syntax struct {
	brackets       bool // [identifier] with ]] escapes
	backticks      bool // `identifier` with `` escapes
	backslash      bool // backslash escapes inside quotes
	dollarQuotes   bool // $tag$ ... $tag$ bodies
	hashComments   bool // # to end of line
	nestedComments bool // /* /* */ */
	batches        bool // a line holding only GO ends a statement
}

var syntaxes = map[string]syntax{
	"mssql":    {brackets: true, nestedComments: true, batches: true},
	"mysql":    {backticks: true, backslash: true, hashComments: true},
	"postgres": {dollarQuotes: true, nestedComments: true},
	"sqlite":   {brackets: true, backticks: true},
}

// syntaxFor returns the rules of backend. Unknown backends get a lenient
// mix that keeps dollar bodies and backtick identifiers whole.
func syntaxFor(backend string) syntax {
	if s, ok := syntaxes[backend]; ok {
		return s
	}
	return syntax{backticks: true, dollarQuotes: true, nestedComments: true}
}

type splitter struct {
	src   string
	rules syntax
	start int
	stmts []string
}

// splitStatements cuts a script into statements for backend. Separators
// inside quotes, identifiers, comments and dollar bodies are ignored, as
// are empty statements. Comments stay with the statement they precede.
func splitStatements(backend, src string) []string {
	s := &splitter{src: src, rules: syntaxFor(backend)}
	lineStart := true
	for i := 0; i < len(src); {
		if lineStart && s.rules.batches {
			if end, ok := batchSeparator(src, i); ok {
				s.cut(i, end)
				i = end
				lineStart = false
				continue
			}
		}
		lineStart = false

		c := src[i]
		switch {
		case c == '\n':
			lineStart = true
			i++
		case c == ';':
			s.cut(i, i+1)
			i++
		case strings.HasPrefix(src[i:], "--"), c == '#' && s.rules.hashComments:
			i = lineEnd(src, i)
		case strings.HasPrefix(src[i:], "/*"):
			i = s.blockComment(i)
		case c == '\'' || c == '"':
			i = s.quoted(i, c, s.rules.backslash)
		case c == '`' && s.rules.backticks:
			i = s.quoted(i, '`', false)
		case c == '[' && s.rules.brackets:
			i = s.quoted(i, ']', false)
		case c == '$' && s.rules.dollarQuotes:
			i = s.dollarQuoted(i)
		default:
			i++
		}
	}
	s.cut(len(src), len(src))
	return s.stmts
}

// cut ends the current statement at end and starts the next one at next.
func (s *splitter) cut(end, next int) {
	if stmt := strings.TrimSpace(s.src[s.start:end]); stmt != "" {
		s.stmts = append(s.stmts, stmt)
	}
	s.start = next
}

// quoted returns the offset past the quote opened at i and closed by
// closer. A doubled closer is part of the text.
func (s *splitter) quoted(i int, closer byte, backslash bool) int {
	for j := i + 1; j < len(s.src); j++ {
		switch s.src[j] {
		case '\\':
			if backslash {
				j++
			}
		case closer:
			if j+1 < len(s.src) && s.src[j+1] == closer {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(s.src)
}

func (s *splitter) blockComment(i int) int {
	depth := 0
	for j := i; j+1 < len(s.src); {
		switch {
		case s.src[j] == '/' && s.src[j+1] == '*':
			if depth == 0 || s.rules.nestedComments {
				depth++
			}
			j += 2
		case s.src[j] == '*' && s.src[j+1] == '/':
			depth--
			j += 2
			if depth == 0 {
				return j
			}
		default:
			j++
		}
	}
	return len(s.src)
}

func (s *splitter) dollarQuoted(i int) int {
	tag, ok := dollarTag(s.src[i:])
	if !ok {
		return i + 1
	}
	body := i + len(tag)
	if end := strings.Index(s.src[body:], tag); end >= 0 {
		return body + end + len(tag)
	}
	return len(s.src)
}

// dollarTag returns the $tag$ or $$ opening src. Positional parameters
// such as $1 are not tags.
func dollarTag(src string) (string, bool) {
	j := 1
	for j < len(src) && isTagByte(src[j], j > 1) {
		j++
	}
	if j < len(src) && src[j] == '$' {
		return src[:j+1], true
	}
	return "", false
}

func isTagByte(c byte, digits bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return digits
	}
	return false
}

func lineEnd(src string, i int) int {
	if n := strings.IndexByte(src[i:], '\n'); n >= 0 {
		return i + n
	}
	return len(src)
}

// batchSeparator reports whether the line starting at i holds only GO,
// returning the offset of its line break.
func batchSeparator(src string, i int) (int, bool) {
	end := lineEnd(src, i)
	if !strings.EqualFold(strings.TrimSpace(src[i:end]), "GO") {
		return 0, false
	}
	return end, true
}
