package jsonv

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/mcncl/serdegen/parsec"
	"github.com/mcncl/serdegen/result"
)

// DuplicatePolicy decides what happens when an object repeats a key.
type DuplicatePolicy int

const (
	// LastWins keeps the last value, at the position of the first key.
	LastWins DuplicatePolicy = iota
	// FirstWins keeps the first value and ignores later ones.
	FirstWins
	// Reject fails the parse at the repeated key.
	Reject
)

func (p DuplicatePolicy) String() string {
	switch p {
	case LastWins:
		return "last-wins"
	case FirstWins:
		return "first-wins"
	case Reject:
		return "reject"
	default:
		return "DuplicatePolicy(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParseDuplicatePolicy parses the names returned by DuplicatePolicy.String.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last-wins", "last":
		return LastWins, nil
	case "first-wins", "first":
		return FirstWins, nil
	case "reject", "error":
		return Reject, nil
	default:
		return LastWins, fmt.Errorf("unknown duplicate key policy %q", s)
	}
}

// Options configures a Grammar.
type Options struct {
	Duplicates DuplicatePolicy
	// MaxDepth bounds array and object nesting. Zero means
	// parsec.DefaultMaxDepth.
	MaxDepth int
}

func isDigit(r rune) bool   { return r >= '0' && r <= '9' }
func isDigit19(r rune) bool { return r >= '1' && r <= '9' }
func isHex(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func lexeme(r rune) parsec.Parser[rune] {
	return parsec.Token(parsec.Char(r))
}

var (
	digits = parsec.TakeWhile1("digit", isDigit)

	integerPart = parsec.Label(parsec.Choice(
		parsec.Literal("0"),
		parsec.Span(parsec.Seq2(parsec.CharClass("digit", isDigit19), parsec.TakeWhile(isDigit), func(rune, string) struct{} { return struct{}{} })),
	), "digit")

	fraction = parsec.Right(parsec.Char('.'), digits)

	exponent = parsec.Seq3(
		parsec.CharClass("exponent", func(r rune) bool { return r == 'e' || r == 'E' }),
		parsec.Optional(parsec.CharClass("sign", func(r rune) bool { return r == '+' || r == '-' })),
		digits,
		func(rune, parsec.Option[rune], string) struct{} { return struct{}{} },
	)

	// NumberLiteral matches a JSON number and yields its text.
	NumberLiteral = parsec.Span(parsec.Seq(
		parsec.Discard(parsec.Optional(parsec.Char('-'))),
		parsec.Discard(integerPart),
		parsec.Discard(parsec.Optional(fraction)),
		parsec.Discard(parsec.Optional(exponent)),
	))

	hex4 = parsec.TryMap(
		parsec.Span(parsec.Seq(hexDigit, hexDigit, hexDigit, hexDigit)),
		parsec.KindSyntax,
		func(s string) (rune, error) {
			n, err := strconv.ParseUint(s, 16, 32)
			return rune(n), err
		},
	)
	hexDigit = parsec.CharClass("hex digit", isHex)

	lowSurrogate = parsec.Bind(parsec.Right(parsec.Literal(`\u`), hex4), func(lo rune) parsec.Parser[rune] {
		if lo >= 0xDC00 && lo <= 0xDFFF {
			return parsec.Succeed(lo)
		}
		return parsec.Fail[rune]("low surrogate")
	})

	unicodeEscape = parsec.Bind(hex4, func(r rune) parsec.Parser[string] {
		switch {
		case r >= 0xD800 && r <= 0xDBFF:
			return parsec.Map(parsec.Optional(lowSurrogate), func(lo parsec.Option[rune]) string {
				if !lo.Present {
					return "\uFFFD"
				}
				return string(utf16.DecodeRune(r, lo.Value))
			})
		case r >= 0xDC00 && r <= 0xDFFF:
			return replacement
		default:
			return parsec.Succeed(string(r))
		}
	})
	replacement = parsec.Succeed("\uFFFD")

	simpleEscapes = map[rune]parsec.Parser[string]{
		'"':  parsec.Succeed(`"`),
		'\\': parsec.Succeed(`\`),
		'/':  parsec.Succeed("/"),
		'b':  parsec.Succeed("\b"),
		'f':  parsec.Succeed("\f"),
		'n':  parsec.Succeed("\n"),
		'r':  parsec.Succeed("\r"),
		't':  parsec.Succeed("\t"),
	}

	escapeChar = parsec.CharClass("escape character", func(r rune) bool {
		_, ok := simpleEscapes[r]
		return ok || r == 'u'
	})

	escape = parsec.Right(parsec.Char('\\'), parsec.Bind(escapeChar, func(r rune) parsec.Parser[string] {
		if r == 'u' {
			return unicodeEscape
		}
		return simpleEscapes[r]
	}))

	// Invalid UTF-8 decodes as utf8.RuneError and stops the run; an encoded
	// U+FFFD is matched by replacementChar instead.
	unescaped = parsec.TakeWhile1("string character", func(r rune) bool {
		return r != '"' && r != '\\' && r >= 0x20 && r != utf8.RuneError
	})
	replacementChar = parsec.Label(parsec.Literal("\uFFFD"), "string character")

	// StringLiteral matches a quoted JSON string and yields its decoded text.
	StringLiteral = parsec.Between(
		parsec.Char('"'),
		parsec.Map(parsec.Many(parsec.Choice(unescaped, escape, replacementChar)), joinPieces),
		parsec.Char('"'),
	)

	// BoolLiteral matches true or false.
	BoolLiteral = parsec.Choice(
		parsec.Map(parsec.Literal("true"), func(string) bool { return true }),
		parsec.Map(parsec.Literal("false"), func(string) bool { return false }),
	)

	// NullLiteral matches null.
	NullLiteral = parsec.Literal("null")
)

func joinPieces(pieces []string) string {
	switch len(pieces) {
	case 0:
		return ""
	case 1:
		return pieces[0]
	default:
		return strings.Join(pieces, "")
	}
}

type member struct {
	offset int
	key    string
	value  Value
}

// Grammar parses JSON text into Values. A Grammar is immutable and safe for
// concurrent use.
type Grammar struct {
	opts  Options
	value parsec.Parser[Value]
}

// Default is the grammar used by Parse: last-wins duplicates and the default
// depth limit.
var Default = NewGrammar(Options{})

// NewGrammar builds a grammar with the given options.
func NewGrammar(opts Options) *Grammar {
	g := &Grammar{opts: opts}
	g.value = g.build()
	return g
}

// Options returns the options the grammar was built with.
func (g *Grammar) Options() Options { return g.opts }

// Value returns the parser for a single value. It expects the cursor at the
// first character of the value and consumes trailing whitespace.
func (g *Grammar) Value() parsec.Parser[Value] { return g.value }

// Parse parses text, which must hold exactly one value surrounded by
// optional whitespace.
func (g *Grammar) Parse(text string) result.Result[Value] {
	return parsec.Run(g.value, text, parsec.Options{MaxDepth: g.opts.MaxDepth})
}

// ParseBytes is Parse for a byte slice.
func (g *Grammar) ParseBytes(data []byte) result.Result[Value] {
	return g.Parse(string(data))
}

// Parse parses text with the Default grammar.
func Parse(text string) result.Result[Value] { return Default.Parse(text) }

// ParseBytes parses data with the Default grammar.
func ParseBytes(data []byte) result.Result[Value] { return Default.ParseBytes(data) }

func (g *Grammar) build() parsec.Parser[Value] {
	var value parsec.Parser[Value]
	value = parsec.Lazy(func() parsec.Parser[Value] {
		null := parsec.Map(NullLiteral, func(string) Value { return Null{} })
		boolean := parsec.Map(BoolLiteral, func(b bool) Value { return Bool(b) })
		number := parsec.TryMap(NumberLiteral, parsec.KindResource, func(lit string) (Value, error) {
			d, err := decimal.NewFromString(lit)
			if err != nil {
				return nil, fmt.Errorf("number %s out of range", lit)
			}
			return Number{d: d, lit: lit}, nil
		})
		str := parsec.Map(StringLiteral, func(s string) Value { return String(s) })
		array := parsec.Map(
			parsec.Between(lexeme('['), parsec.SepBy(value, lexeme(',')), parsec.Char(']')),
			func(vs []Value) Value { return Array(vs) },
		)
		return parsec.Token(parsec.Label(parsec.Choice(
			null, boolean, number, str,
			parsec.Nested(array),
			parsec.Nested(g.object(value)),
		), "JSON value"))
	})
	return value
}

func (g *Grammar) object(value parsec.Parser[Value]) parsec.Parser[Value] {
	key := parsec.Label(parsec.Token(StringLiteral), "object key")
	entry := parsec.Seq4(parsec.Position, key, lexeme(':'), value,
		func(off int, k string, _ rune, v Value) member {
			return member{offset: off, key: k, value: v}
		})
	members := parsec.Between(lexeme('{'), parsec.SepBy(entry, lexeme(',')), parsec.Char('}'))

	return func(c parsec.Cursor) parsec.Result[Value] {
		r := members(c)
		if !r.OK() {
			return parsec.Coerce[Value](r)
		}
		obj := &Object{
			members: make([]Member, 0, len(r.Value)),
			index:   make(map[string]int, len(r.Value)),
		}
		for _, m := range r.Value {
			if obj.Has(m.key) {
				switch g.opts.Duplicates {
				case FirstWins:
					continue
				case Reject:
					return parsec.Failed[Value](c.At(m.offset).Failf(parsec.KindSyntax, fmt.Sprintf("duplicate key %q", m.key)))
				}
			}
			obj.Set(m.key, m.value)
		}
		return parsec.Success[Value](obj, r.Next).WithHint(r.Hint())
	}
}
