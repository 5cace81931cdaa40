package mdreveal

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Token is the smallest revealable unit. Segment indexes the owning segment in the
// segment list the token was produced from.
type Token struct {
	Segment int
	Text    string
	First   bool
	Last    bool
	Delay   time.Duration
}

// Timing holds the tunable reveal delays. Math and breaks always use zero delay since
// they reveal atomically.
type Timing struct {
	Text       time.Duration
	CodeLine   time.Duration
	InlineCode time.Duration
}

const (
	DefaultTextDelay       = 25 * time.Millisecond
	DefaultCodeLineDelay   = 3 * time.Millisecond
	DefaultInlineCodeDelay = 15 * time.Millisecond
)

// DefaultTiming returns the default reveal delays.
func DefaultTiming() Timing {
	return Timing{
		Text:       DefaultTextDelay,
		CodeLine:   DefaultCodeLineDelay,
		InlineCode: DefaultInlineCodeDelay,
	}
}

// TokenizeOption configures Tokenize.
type TokenizeOption func(*Timing)

// WithTokenTiming overrides the delays used by Tokenize.
func WithTokenTiming(t Timing) TokenizeOption {
	return func(dst *Timing) {
		*dst = t
	}
}

// Tokenize decomposes segments into reveal tokens. Joining the tokens of a segment in
// order reproduces its content exactly; every segment owns at least one token.
func Tokenize(segments []Segment, opts ...TokenizeOption) []Token {
	timing := DefaultTiming()
	for _, opt := range opts {
		if opt != nil {
			opt(&timing)
		}
	}
	tokens := make([]Token, 0, len(segments)*2)
	for i, seg := range segments {
		start := len(tokens)
		switch seg.Kind {
		case KindInlineCode:
			tokens = append(tokens, Token{Segment: i, Text: seg.Content, Delay: timing.InlineCode})
		case KindCodeBlock:
			tokens = appendLines(tokens, i, seg.Content, timing.CodeLine)
		case KindInlineMath, KindMathBlock:
			tokens = append(tokens, Token{Segment: i, Text: seg.Content})
		case KindBreak:
			tokens = append(tokens, Token{Segment: i, Text: "\n"})
		default:
			tokens = appendWords(tokens, i, seg.Content, timing.Text)
		}
		if len(tokens) == start {
			tokens = append(tokens, Token{Segment: i})
		}
		tokens[start].First = true
		tokens[len(tokens)-1].Last = true
	}
	return tokens
}

// appendWords splits text into alternating runs of non-space and space characters.
func appendWords(dst []Token, seg int, text string, delay time.Duration) []Token {
	for len(text) > 0 {
		r, _ := utf8.DecodeRuneInString(text)
		space := unicode.IsSpace(r)
		end := strings.IndexFunc(text, func(r rune) bool {
			return unicode.IsSpace(r) != space
		})
		if end < 0 {
			end = len(text)
		}
		tok := Token{Segment: seg, Text: text[:end]}
		if !space {
			tok.Delay = delay
		}
		dst = append(dst, tok)
		text = text[end:]
	}
	return dst
}

func appendLines(dst []Token, seg int, text string, delay time.Duration) []Token {
	for len(text) > 0 {
		end := strings.IndexByte(text, '\n')
		if end < 0 {
			end = len(text)
		} else {
			end++
		}
		dst = append(dst, Token{Segment: seg, Text: text[:end], Delay: delay})
		text = text[end:]
	}
	return dst
}
