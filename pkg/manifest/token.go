package manifest

import "fmt"

// Position is a zero-based line/column location. Columns count characters,
// not bytes.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Before reports whether p comes strictly before o.
func (p Position) Before(o Position) bool {
	return p.Line < o.Line || (p.Line == o.Line && p.Column < o.Column)
}

// String formats p as 1-based "line:col" for display.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Column+1)
}

// Range is a span of text. End is exclusive when measuring length but
// [Range.Contains] treats it as inclusive, so a cursor sitting right after a
// value still counts as inside it.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether pos lies within r, both ends included.
func (r Range) Contains(pos Position) bool {
	return !pos.Before(r.Start) && !r.End.Before(pos)
}

// ContainsRange reports whether o lies entirely within r.
func (r Range) ContainsRange(o Range) bool {
	return r.Contains(o.Start) && r.Contains(o.End)
}

// IsZero reports whether r is the zero range.
func (r Range) IsZero() bool { return r == Range{} }

// Kind identifies a token. The set is closed.
type Kind int

const (
	KindNewline Kind = iota
	KindWhitespace
	KindComment
	KindEquals
	KindDot
	KindComma
	KindBareKey
	KindQuotedKey
	KindBasicString
	KindLiteralString
	KindMultiLineBasicString
	KindMultiLineLiteralString
	KindBool
	KindInteger
	KindFloat
	KindDateTime
	KindTableOpen
	KindTableClose
	KindArrayOpen
	KindArrayClose
	KindInlineTableOpen
	KindInlineTableClose
)

var kindNames = [...]string{
	KindNewline:                "Newline",
	KindWhitespace:             "Whitespace",
	KindComment:                "Comment",
	KindEquals:                 "Equals",
	KindDot:                    "Dot",
	KindComma:                  "Comma",
	KindBareKey:                "BareKey",
	KindQuotedKey:              "QuotedKey",
	KindBasicString:            "BasicString",
	KindLiteralString:          "LiteralString",
	KindMultiLineBasicString:   "MultiLineBasicString",
	KindMultiLineLiteralString: "MultiLineLiteralString",
	KindBool:                   "Bool",
	KindInteger:                "Integer",
	KindFloat:                  "Float",
	KindDateTime:               "DateTime",
	KindTableOpen:              "TableOpen",
	KindTableClose:             "TableClose",
	KindArrayOpen:              "ArrayOpen",
	KindArrayClose:             "ArrayClose",
	KindInlineTableOpen:        "InlineTableOpen",
	KindInlineTableClose:       "InlineTableClose",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Category groups token kinds the parser treats alike.
type Category int

const (
	CategoryTrivia Category = iota
	CategoryKey
	CategoryString
	CategoryScalar
	CategoryPunct
	CategoryBracket
)

func (c Category) String() string {
	switch c {
	case CategoryTrivia:
		return "Trivia"
	case CategoryKey:
		return "Key"
	case CategoryString:
		return "String"
	case CategoryScalar:
		return "Scalar"
	case CategoryPunct:
		return "Punct"
	case CategoryBracket:
		return "Bracket"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Category returns the coarse group k belongs to.
func (k Kind) Category() Category {
	switch k {
	case KindNewline, KindWhitespace, KindComment:
		return CategoryTrivia
	case KindBareKey, KindQuotedKey:
		return CategoryKey
	case KindBasicString, KindLiteralString, KindMultiLineBasicString, KindMultiLineLiteralString:
		return CategoryString
	case KindBool, KindInteger, KindFloat, KindDateTime:
		return CategoryScalar
	case KindEquals, KindDot, KindComma:
		return CategoryPunct
	default:
		return CategoryBracket
	}
}

// Token is a lexeme with its location. Category is filled in by the lexer so
// consumers never recompute it.
type Token struct {
	Kind     Kind
	Category Category
	Text     string
	Offset   int
	Range    Range
}

// IsTrivia reports whether the token carries no syntax.
func (t Token) IsTrivia() bool { return t.Category == CategoryTrivia }
