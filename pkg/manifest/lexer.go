package manifest

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// LexError describes a single lexical problem.
type LexError struct {
	Pos    Position
	Offset int
	Msg    string
}

func (e LexError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// LexErrors collects every lexical problem found in a document.
type LexErrors []LexError

func (e LexErrors) Error() string {
	switch len(e) {
	case 0:
		return "no lexical errors"
	case 1:
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", e[0].Error(), len(e)-1)
}

type frameKind int

const (
	frameArray frameKind = iota
	frameInline
)

type frame struct {
	kind  frameKind
	value bool
}

// lexer tracks whether it is reading keys or values so that bare words after
// "=" become scalars and a "[" at statement level opens a table header.
type lexer struct {
	src    string
	off    int
	pos    Position
	value  bool
	header bool
	stack  []frame
	tokens []Token
	errs   LexErrors
}

// Tokenize splits src into tokens, trivia included. Lexing never stops early:
// problems are collected and returned as [LexErrors] alongside every token
// that could be recognised.
func Tokenize(src string) ([]Token, error) {
	l := &lexer{src: src}
	l.run()
	if len(l.errs) > 0 {
		return l.tokens, l.errs
	}
	return l.tokens, nil
}

func (l *lexer) run() {
	for l.off < len(l.src) {
		start, startPos := l.off, l.pos
		c := l.src[l.off]

		switch {
		case c == '\n':
			l.advanceTo(l.off + 1)
			l.emit(KindNewline, start, startPos)
			l.endLine()
		case c == '\r' && l.peek(1) == '\n':
			l.advanceTo(l.off + 2)
			l.emit(KindNewline, start, startPos)
			l.endLine()
		case c == ' ' || c == '\t' || c == '\r':
			end := l.off
			for end < len(l.src) && (l.src[end] == ' ' || l.src[end] == '\t' || (l.src[end] == '\r' && (end+1 >= len(l.src) || l.src[end+1] != '\n'))) {
				end++
			}
			l.advanceTo(end)
			l.emit(KindWhitespace, start, startPos)
		case c == '#':
			end := strings.IndexAny(l.src[l.off:], "\r\n")
			if end < 0 {
				end = len(l.src)
			} else {
				end += l.off
			}
			l.advanceTo(end)
			l.emit(KindComment, start, startPos)
		case c == '"' || c == '\'':
			l.lexString(start, startPos)
		case c == '=':
			l.advanceTo(l.off + 1)
			l.emit(KindEquals, start, startPos)
			l.setValue(true)
		case c == ',':
			l.advanceTo(l.off + 1)
			l.emit(KindComma, start, startPos)
			l.setValue(false)
		case c == '.' && !l.inValue():
			l.advanceTo(l.off + 1)
			l.emit(KindDot, start, startPos)
		case c == '[':
			l.lexOpenSquare(start, startPos)
		case c == ']':
			l.lexCloseSquare(start, startPos)
		case c == '{':
			l.advanceTo(l.off + 1)
			if !l.inValue() {
				l.errorf(startPos, start, "unexpected %q", c)
				continue
			}
			l.stack = append(l.stack, frame{kind: frameInline})
			l.emit(KindInlineTableOpen, start, startPos)
		case c == '}':
			l.advanceTo(l.off + 1)
			if n := len(l.stack); n == 0 || l.stack[n-1].kind != frameInline {
				l.errorf(startPos, start, "unexpected %q", c)
				continue
			}
			l.stack = l.stack[:len(l.stack)-1]
			l.emit(KindInlineTableClose, start, startPos)
		case isBareChar(c, l.inValue()):
			l.lexBare(start, startPos)
		default:
			r, size := utf8.DecodeRuneInString(l.src[l.off:])
			l.advanceTo(l.off + size)
			l.errorf(startPos, start, "unexpected character %q", r)
		}
	}
}

func (l *lexer) peek(n int) byte {
	if l.off+n < len(l.src) {
		return l.src[l.off+n]
	}
	return 0
}

// advanceTo moves the cursor to byte offset end, keeping line and column in
// step with the consumed characters.
func (l *lexer) advanceTo(end int) {
	for l.off < end {
		r, size := utf8.DecodeRuneInString(l.src[l.off:])
		if r == '\n' {
			l.pos.Line++
			l.pos.Column = 0
		} else {
			l.pos.Column++
		}
		l.off += size
	}
}

func (l *lexer) emit(kind Kind, start int, startPos Position) {
	l.tokens = append(l.tokens, Token{
		Kind:     kind,
		Category: kind.Category(),
		Text:     l.src[start:l.off],
		Offset:   start,
		Range:    Range{Start: startPos, End: l.pos},
	})
}

func (l *lexer) errorf(pos Position, offset int, format string, args ...any) {
	l.errs = append(l.errs, LexError{Pos: pos, Offset: offset, Msg: fmt.Sprintf(format, args...)})
}

func (l *lexer) inValue() bool {
	if n := len(l.stack); n > 0 {
		f := l.stack[n-1]
		return f.kind == frameArray || f.value
	}
	return l.value
}

func (l *lexer) setValue(v bool) {
	if n := len(l.stack); n > 0 {
		if l.stack[n-1].kind == frameInline {
			l.stack[n-1].value = v
		}
		return
	}
	l.value = v
}

// endLine resets statement state. Arrays may span lines; inline tables may not.
func (l *lexer) endLine() {
	for n := len(l.stack); n > 0 && l.stack[n-1].kind == frameInline; n = len(l.stack) {
		l.stack = l.stack[:n-1]
	}
	if len(l.stack) == 0 {
		l.value = false
		l.header = false
	}
}

func (l *lexer) lexOpenSquare(start int, startPos Position) {
	l.advanceTo(l.off + 1)
	switch {
	case l.inValue():
		l.stack = append(l.stack, frame{kind: frameArray})
		l.emit(KindArrayOpen, start, startPos)
	case len(l.stack) == 0:
		l.header = true
		l.emit(KindTableOpen, start, startPos)
	default:
		l.errorf(startPos, start, "unexpected %q", '[')
	}
}

func (l *lexer) lexCloseSquare(start int, startPos Position) {
	l.advanceTo(l.off + 1)
	switch n := len(l.stack); {
	case n > 0 && l.stack[n-1].kind == frameArray:
		l.stack = l.stack[:n-1]
		l.emit(KindArrayClose, start, startPos)
	case n == 0 && l.header:
		l.emit(KindTableClose, start, startPos)
	default:
		l.errorf(startPos, start, "unexpected %q", ']')
	}
}

func (l *lexer) lexString(start int, startPos Position) {
	quote := l.src[l.off]
	triple := strings.Repeat(string(quote), 3)
	key := !l.inValue()

	if strings.HasPrefix(l.src[l.off:], triple) {
		end, ok := l.scanMultiLine(quote, triple)
		l.advanceTo(end)
		if !ok {
			l.errorf(startPos, start, "unterminated multi-line string")
		}
		if quote == '"' {
			l.emit(KindMultiLineBasicString, start, startPos)
		} else {
			l.emit(KindMultiLineLiteralString, start, startPos)
		}
		return
	}

	end, ok := l.scanSingleLine(quote)
	l.advanceTo(end)
	if !ok {
		l.errorf(startPos, start, "unterminated string")
	}
	switch {
	case key:
		l.emit(KindQuotedKey, start, startPos)
	case quote == '"':
		l.emit(KindBasicString, start, startPos)
	default:
		l.emit(KindLiteralString, start, startPos)
	}
}

// scanSingleLine returns the offset just past the closing quote, or the
// offset of the line end when the string is unterminated.
func (l *lexer) scanSingleLine(quote byte) (int, bool) {
	for i := l.off + 1; i < len(l.src); i++ {
		switch c := l.src[i]; {
		case c == '\n' || c == '\r':
			return i, false
		case c == '\\' && quote == '"':
			if i+1 < len(l.src) && l.src[i+1] != '\n' && l.src[i+1] != '\r' {
				i++
			}
		case c == quote:
			return i + 1, true
		}
	}
	return len(l.src), false
}

func (l *lexer) scanMultiLine(quote byte, triple string) (int, bool) {
	for i := l.off + 3; i < len(l.src); i++ {
		if l.src[i] == '\\' && quote == '"' {
			i++
			continue
		}
		if strings.HasPrefix(l.src[i:], triple) {
			end := i + 3
			// Up to two quotes may sit directly before the closing delimiter.
			for extra := 0; extra < 2 && end < len(l.src) && l.src[end] == quote; extra++ {
				end++
			}
			return end, true
		}
	}
	return len(l.src), false
}

func (l *lexer) lexBare(start int, startPos Position) {
	value := l.inValue()
	end := l.off
	for end < len(l.src) && isBareChar(l.src[end], value) {
		end++
	}
	l.advanceTo(end)

	if !value {
		l.emit(KindBareKey, start, startPos)
		return
	}
	l.emit(classifyBare(l.src[start:end]), start, startPos)
}

func isBareChar(c byte, value bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		return true
	case value:
		return c == '.' || c == '+' || c == ':'
	}
	return false
}

// classifyBare decides what an unquoted value is. Words that are not
// recognisable scalars stay keys, which keeps half-typed values lexable.
func classifyBare(s string) Kind {
	switch s {
	case "true", "false":
		return KindBool
	case "inf", "+inf", "-inf", "nan", "+nan", "-nan":
		return KindFloat
	}
	if isDateTime(s) {
		return KindDateTime
	}

	digits := strings.TrimLeft(s, "+-")
	if digits == "" || digits[0] < '0' || digits[0] > '9' {
		return KindBareKey
	}
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0o") || strings.HasPrefix(digits, "0b") {
		return KindInteger
	}
	if strings.ContainsAny(digits, ".eE") {
		return KindFloat
	}
	return KindInteger
}

func isDateTime(s string) bool {
	if len(s) >= 10 && s[4] == '-' && s[7] == '-' && allDigits(s[:4]) && allDigits(s[5:7]) && allDigits(s[8:10]) {
		return true
	}
	return len(s) >= 8 && s[2] == ':' && s[5] == ':' && allDigits(s[:2])
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
