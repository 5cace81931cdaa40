package mdreveal

import (
	"regexp"
	"strings"
)

// Kind classifies a Segment.
type Kind uint8

const (
	KindText Kind = iota
	KindBold
	KindItalic
	KindInlineCode
	KindCodeBlock
	KindInlineMath
	KindMathBlock
	KindHeading
	KindListItem
	KindBlockquote
	KindLink
	KindBreak
)

var kindNames = [...]string{
	KindText:       "Text",
	KindBold:       "Bold",
	KindItalic:     "Italic",
	KindInlineCode: "InlineCode",
	KindCodeBlock:  "CodeBlock",
	KindInlineMath: "InlineMath",
	KindMathBlock:  "MathBlock",
	KindHeading:    "Heading",
	KindListItem:   "ListItem",
	KindBlockquote: "Blockquote",
	KindLink:       "Link",
	KindBreak:      "Break",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Text"
}

// IsBlock reports whether segments of this kind must be emitted whole when truncating.
func (k Kind) IsBlock() bool {
	return k == KindCodeBlock || k == KindMathBlock
}

// InlineStyle is the emphasis inherited by nested inline text.
type InlineStyle uint8

const (
	StyleBold InlineStyle = 1 << iota
	StyleItalic
)

// Meta holds kind-dependent segment attributes.
type Meta struct {
	// Language is the info string of a code block.
	Language string
	// Fence is the opening backtick run length of a code block.
	Fence int
	// Closed reports whether a code or math block saw its terminator.
	Closed bool
	// Level is the heading level (1-6).
	Level int
	// URL is the link destination.
	URL string
	// Ordered reports whether a list item belongs to a numbered list.
	Ordered bool
	// Number is the item number of an ordered list item.
	Number int
	// Depth is the nesting level of a list item, 0 for top level.
	Depth int
	// Style is the emphasis inherited from enclosing inline containers.
	Style InlineStyle
}

// Segment is an immutable unit of classified markdown content.
type Segment struct {
	Kind    Kind
	Content string
	Meta    Meta
}

const defaultFence = 3

var fenceLine = regexp.MustCompile("^(\\s*)(`{3,})(.*)$")

type segmentMode uint8

const (
	modeNormal segmentMode = iota
	modeCode
	modeMath
)

type segmenter struct {
	out   []Segment
	mode  segmentMode
	text  []string
	block []string

	depth      int
	outerLang  string
	outerFence int
}

// ParseSegments splits markdown into an ordered list of segments. Fenced code blocks and
// display math are isolated line by line; everything else goes through the markdown
// sub-parser. It never fails: malformed input degrades to text segments.
func ParseSegments(markdown string) []Segment {
	s := &segmenter{}
	if markdown == "" {
		return nil
	}
	for _, line := range strings.Split(markdown, "\n") {
		s.line(line)
	}
	s.finish()
	return s.out
}

func (s *segmenter) line(line string) {
	trimmed := strings.TrimSpace(line)
	if s.mode != modeCode && strings.HasPrefix(trimmed, "$$") {
		s.mathDelimiter(trimmed)
		return
	}
	if s.mode == modeMath {
		s.block = append(s.block, line)
		return
	}
	if m := fenceLine.FindStringSubmatch(line); m != nil {
		s.fence(line, len(m[2]), strings.TrimSpace(m[3]))
		return
	}
	if s.mode == modeCode {
		s.block = append(s.block, line)
		return
	}
	s.text = append(s.text, line)
}

func (s *segmenter) mathDelimiter(trimmed string) {
	if s.mode == modeMath {
		s.emitMath(true)
		return
	}
	s.flushText()
	body := strings.TrimSpace(trimmed[2:])
	if strings.HasPrefix(body, "$$") {
		// "$$$$" opens and closes at once; anything after the closer is prose.
		s.out = append(s.out, Segment{Kind: KindMathBlock, Meta: Meta{Closed: true}})
		if rest := strings.TrimSpace(body[2:]); rest != "" {
			s.text = append(s.text, rest)
		}
		return
	}
	if len(trimmed) > 4 && strings.HasSuffix(trimmed, "$$") {
		if inner := strings.TrimSpace(trimmed[2 : len(trimmed)-2]); inner != "" {
			s.out = append(s.out, Segment{Kind: KindMathBlock, Content: inner, Meta: Meta{Closed: true}})
			return
		}
	}
	s.mode = modeMath
	s.block = s.block[:0]
	if body != "" {
		s.block = append(s.block, body)
	}
}

func (s *segmenter) fence(line string, run int, lang string) {
	if s.mode == modeNormal {
		s.flushText()
		s.mode = modeCode
		s.depth = 1
		s.outerLang = lang
		s.outerFence = run
		s.block = s.block[:0]
		return
	}
	switch {
	case lang != "":
		s.depth++
	case run >= s.outerFence:
		s.depth--
		if s.depth == 0 {
			s.emitCode(true)
			return
		}
	}
	s.block = append(s.block, line)
}

func (s *segmenter) emitCode(closed bool) {
	fence := s.outerFence
	if fence < defaultFence {
		fence = defaultFence
	}
	s.out = append(s.out, Segment{
		Kind:    KindCodeBlock,
		Content: strings.Join(s.block, "\n"),
		Meta:    Meta{Language: s.outerLang, Fence: fence, Closed: closed},
	})
	s.block = s.block[:0]
	s.mode = modeNormal
	s.depth = 0
	s.outerLang = ""
	s.outerFence = 0
}

func (s *segmenter) emitMath(closed bool) {
	s.out = append(s.out, Segment{
		Kind:    KindMathBlock,
		Content: strings.Join(s.block, "\n"),
		Meta:    Meta{Closed: closed},
	})
	s.block = s.block[:0]
	s.mode = modeNormal
}

func (s *segmenter) flushText() {
	if len(s.text) == 0 {
		return
	}
	src := strings.Join(s.text, "\n")
	s.text = s.text[:0]
	s.out = append(s.out, parseMarkdown(src)...)
}

func (s *segmenter) finish() {
	switch s.mode {
	case modeCode:
		s.emitCode(false)
	case modeMath:
		s.emitMath(false)
	default:
		s.flushText()
	}
}
