package restql

import (
	"fmt"
	"sort"
	"strconv"
)

// --- Token types ---

type tokenType int

const (
	tokenIdent  tokenType = iota // identifier: letters, digits, underscores
	tokenString                  // quoted "..." or '...'
	tokenNumber                  // bare numeric literal
	tokenLParen                  // (
	tokenRParen                  // )
	tokenLBrace                  // {
	tokenRBrace                  // }
	tokenColon                   // :
	tokenComma                   // ,
	tokenMinus                   // - directly followed by an identifier
	tokenStar                    // *
	tokenEOF
)

func tokenTypeName(t tokenType) string {
	switch t {
	case tokenIdent:
		return "identifier"
	case tokenString:
		return "string"
	case tokenNumber:
		return "number"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenLBrace:
		return "'{'"
	case tokenRBrace:
		return "'}'"
	case tokenColon:
		return "':'"
	case tokenComma:
		return "','"
	case tokenMinus:
		return "'-'"
	case tokenStar:
		return "'*'"
	case tokenEOF:
		return "end of input"
	default:
		return "unknown"
	}
}

type token struct {
	typ tokenType
	val string // decoded content for strings, raw text otherwise
	pos int    // byte offset in input
}

// --- Tokenizer ---

type tokenizer struct {
	input      string
	pos        int
	tokens     []token
	lineStarts []int // byte offsets where each line starts
}

func newTokenizer(input string) *tokenizer {
	t := &tokenizer{
		input:      input,
		lineStarts: []int{0},
	}
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			t.lineStarts = append(t.lineStarts, i+1)
		}
	}
	return t
}

// posAt converts a byte offset into a Pos with line and column.
func (t *tokenizer) posAt(offset int) Pos {
	line := sort.Search(len(t.lineStarts), func(i int) bool {
		return t.lineStarts[i] > offset
	})
	col := offset - t.lineStarts[line-1] + 1
	return Pos{Offset: offset, Line: line, Column: col}
}

// errorAt builds a SyntaxError anchored at offset, carrying the unparsed remainder.
func (t *tokenizer) errorAt(offset int, got, expected, format string, args ...any) *SyntaxError {
	text := ""
	if offset < len(t.input) {
		text = t.input[offset:]
	}
	return &SyntaxError{
		Message:  fmt.Sprintf(format, args...),
		Pos:      t.posAt(offset),
		Got:      got,
		Expected: expected,
		Text:     text,
	}
}

func (t *tokenizer) tokenize() ([]token, error) {
	for t.pos < len(t.input) {
		ch := t.input[t.pos]
		if isSpace(ch) {
			t.pos++
			continue
		}
		switch ch {
		case '(':
			t.emit(tokenLParen, "(")
		case ')':
			t.emit(tokenRParen, ")")
		case '{':
			t.emit(tokenLBrace, "{")
		case '}':
			t.emit(tokenRBrace, "}")
		case ':':
			t.emit(tokenColon, ":")
		case ',':
			t.emit(tokenComma, ",")
		case '*':
			t.emit(tokenStar, "*")
		case '"', '\'':
			if err := t.readString(ch); err != nil {
				return nil, err
			}
		case '-':
			if err := t.readMinus(); err != nil {
				return nil, err
			}
		case '+', '.':
			if err := t.readNumber(); err != nil {
				return nil, err
			}
		default:
			switch {
			case isDigit(ch):
				if err := t.readNumber(); err != nil {
					return nil, err
				}
			case isIdentStart(ch):
				t.readIdent()
			default:
				return nil, t.errorAt(t.pos, string(ch), "", "unexpected character %q", string(ch))
			}
		}
	}
	t.tokens = append(t.tokens, token{typ: tokenEOF, pos: t.pos})
	return t.tokens, nil
}

func (t *tokenizer) emit(typ tokenType, val string) {
	t.tokens = append(t.tokens, token{typ: typ, val: val, pos: t.pos})
	t.pos++
}

// readMinus handles the exclude operator, which must touch its field name.
// A minus in front of a digit or dot starts a negative number instead.
func (t *tokenizer) readMinus() error {
	start := t.pos
	if start+1 >= len(t.input) {
		return t.errorAt(start, "-", "field name", "exclude operator '-' must be followed by a field name")
	}
	next := t.input[start+1]
	switch {
	case isIdentStart(next):
		t.emit(tokenMinus, "-")
		return nil
	case isDigit(next) || next == '.':
		return t.readNumber()
	case isSpace(next):
		return t.errorAt(start, "-", "field name", "exclude operator '-' must be directly followed by a field name, without whitespace")
	default:
		return t.errorAt(start, "-"+string(next), "field name", "exclude operator '-' must be followed by a field name")
	}
}

// readNumber scans [-+]?[0-9]*\.?[0-9]+ and rejects trailing identifier characters.
func (t *tokenizer) readNumber() error {
	start := t.pos
	if c := t.input[t.pos]; c == '-' || c == '+' {
		t.pos++
	}
	intDigits := t.skipDigits()
	fracDigits := 0
	if t.pos < len(t.input) && t.input[t.pos] == '.' {
		t.pos++
		fracDigits = t.skipDigits()
		if fracDigits == 0 {
			return t.errorAt(start, t.input[start:t.pos], "number", "malformed number %q", t.input[start:t.pos])
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return t.errorAt(start, t.input[start:t.pos], "number", "malformed number %q", t.input[start:t.pos])
	}
	if t.pos < len(t.input) && (isIdentChar(t.input[t.pos]) || t.input[t.pos] == '.') {
		end := t.pos
		for end < len(t.input) && (isIdentChar(t.input[end]) || t.input[end] == '.') {
			end++
		}
		return t.errorAt(start, t.input[start:end], "", "invalid value %q", t.input[start:end])
	}
	lit := t.input[start:t.pos]
	if _, err := strconv.ParseFloat(lit, 64); err != nil {
		return t.errorAt(start, lit, "", "number out of range %q", lit)
	}
	t.tokens = append(t.tokens, token{typ: tokenNumber, val: lit, pos: start})
	return nil
}

func (t *tokenizer) skipDigits() int {
	n := 0
	for t.pos < len(t.input) && isDigit(t.input[t.pos]) {
		t.pos++
		n++
	}
	return n
}

// readString scans a quoted literal and keeps the text between the quotes as
// written. A backslash only stops the next character from closing the string.
func (t *tokenizer) readString(quote byte) error {
	startPos := t.pos
	t.pos++ // skip opening quote
	for t.pos < len(t.input) {
		switch t.input[t.pos] {
		case '\\':
			t.pos += 2
		case quote:
			t.tokens = append(t.tokens, token{typ: tokenString, val: t.input[startPos+1 : t.pos], pos: startPos})
			t.pos++
			return nil
		default:
			t.pos++
		}
	}
	return t.errorAt(startPos, t.input[startPos:], "", "unterminated string literal")
}

func (t *tokenizer) readIdent() {
	start := t.pos
	for t.pos < len(t.input) && isIdentChar(t.input[t.pos]) {
		t.pos++
	}
	t.tokens = append(t.tokens, token{typ: tokenIdent, val: t.input[start:t.pos], pos: start})
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// isIdentStart checks if a byte can start an identifier.
func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

// isIdentChar checks if a byte can appear in an identifier after the first character.
func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// --- Raw parse tree ---

type rawItemKind int

const (
	rawField rawItemKind = iota
	rawParent
	rawExcluded
	rawWildcard
)

// rawBlock is one '{...}' with its optional argument block, still string-typed.
type rawBlock struct {
	args  []rawArg
	items []rawItem
	pos   int
}

type rawItem struct {
	kind  rawItemKind
	name  string
	alias string
	block *rawBlock // rawParent only
	pos   int
}

type rawArg struct {
	name  string
	value token
	pos   int
}

// --- Recursive Descent Parser ---

type parser struct {
	tokens []token
	pos    int
	tzer   *tokenizer
}

func (p *parser) peek() token {
	if p.pos >= len(p.tokens) {
		return token{typ: tokenEOF, pos: len(p.tzer.input)}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.peek()
	if tok.typ != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) unexpected(tok token, expected, message string) *SyntaxError {
	got := tok.val
	if tok.typ == tokenEOF {
		got = "end of input"
	}
	return p.tzer.errorAt(tok.pos, got, expected, "%s", message)
}

func (p *parser) expect(typ tokenType) (token, error) {
	tok := p.advance()
	if tok.typ != typ {
		return tok, p.unexpected(tok, tokenTypeName(typ), "expected "+tokenTypeName(typ))
	}
	return tok, nil
}

// parseQuery parses the top level: argsBlock? block EOF
func (p *parser) parseQuery() (*rawBlock, error) {
	start := p.peek()
	if start.typ == tokenEOF {
		return nil, p.unexpected(start, "'{'", "empty query")
	}
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.typ != tokenEOF {
		return nil, p.unexpected(tok, "end of input", "unexpected input after the closing '}'")
	}
	block.pos = start.pos
	return block, nil
}

// parseBlock parses: argsBlock? '{' body? '}'
func (p *parser) parseBlock() (*rawBlock, error) {
	block := &rawBlock{pos: p.peek().pos}
	if p.peek().typ == tokenLParen {
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		block.args = args
	}
	if _, err := p.expect(tokenLBrace); err != nil {
		return nil, err
	}
	for p.peek().typ != tokenRBrace {
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		block.items = append(block.items, *item)
		// Items are separated by a comma or by whitespace alone.
		if p.peek().typ == tokenComma {
			p.advance()
		}
	}
	p.advance() // consume '}'
	return block, nil
}

// parseItem parses: '*' | '-' ident | (ident ':')? ident block?
func (p *parser) parseItem() (*rawItem, error) {
	tok := p.advance()
	switch tok.typ {
	case tokenStar:
		return &rawItem{kind: rawWildcard, pos: tok.pos}, nil
	case tokenMinus:
		nameTok, err := p.expect(tokenIdent)
		if err != nil {
			return nil, err
		}
		if next := p.peek(); next.typ == tokenLBrace || next.typ == tokenLParen {
			return nil, p.tzer.errorAt(tok.pos, "-"+nameTok.val, "",
				"excluded field %q cannot have a sub-selection", nameTok.val)
		}
		return &rawItem{kind: rawExcluded, name: nameTok.val, pos: tok.pos}, nil
	case tokenIdent:
		item := &rawItem{kind: rawField, name: tok.val, pos: tok.pos}
		if p.peek().typ == tokenColon {
			p.advance()
			nameTok := p.advance()
			if nameTok.typ != tokenIdent {
				return nil, p.unexpected(nameTok, "identifier", fmt.Sprintf("expected field name after alias %q", tok.val))
			}
			item.alias = tok.val
			item.name = nameTok.val
		}
		if next := p.peek().typ; next == tokenLBrace || next == tokenLParen {
			block, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			item.kind = rawParent
			item.block = block
		}
		return item, nil
	case tokenEOF:
		return nil, p.unexpected(tok, "'}'", "unbalanced braces")
	default:
		return nil, p.unexpected(tok, "field name", "expected field name")
	}
}

// parseArgs parses: '(' (arg (sep arg)* ','?)? ')'
func (p *parser) parseArgs() ([]rawArg, error) {
	p.advance() // consume '('
	var args []rawArg
	for p.peek().typ != tokenRParen {
		nameTok := p.advance()
		if nameTok.typ != tokenIdent {
			return nil, p.unexpected(nameTok, "identifier", "expected argument name")
		}
		if _, err := p.expect(tokenColon); err != nil {
			return nil, err
		}
		valTok := p.advance()
		switch valTok.typ {
		case tokenString, tokenNumber:
		case tokenIdent:
			if !isKeyword(valTok.val) {
				return nil, p.unexpected(valTok, "string, number, true, false or null",
					fmt.Sprintf("unquoted value %q for argument %q", valTok.val, nameTok.val))
			}
		default:
			return nil, p.unexpected(valTok, "string, number, true, false or null",
				fmt.Sprintf("expected value for argument %q", nameTok.val))
		}
		args = append(args, rawArg{name: nameTok.val, value: valTok, pos: nameTok.pos})
		if p.peek().typ == tokenComma {
			p.advance()
		}
	}
	p.advance() // consume ')'
	return args, nil
}

func isKeyword(s string) bool {
	return s == "true" || s == "false" || s == "null"
}
