package mdreveal

import (
	"strconv"
	"strings"
	"unicode"
)

// GroupRevealed joins the text of the first revealed tokens per segment index.
func GroupRevealed(tokens []Token, revealed int) map[int]string {
	if revealed > len(tokens) {
		revealed = len(tokens)
	}
	if revealed <= 0 {
		return map[int]string{}
	}
	builders := make(map[int]*strings.Builder)
	for _, tok := range tokens[:revealed] {
		b, ok := builders[tok.Segment]
		if !ok {
			b = &strings.Builder{}
			builders[tok.Segment] = b
		}
		b.WriteString(tok.Text)
	}
	groups := make(map[int]string, len(builders))
	for idx, b := range builders {
		groups[idx] = b.String()
	}
	return groups
}

// Truncate reconstructs a markdown prefix from the first revealed tokens. Code and math
// blocks are emitted whole from their original content. A block that is effectively
// last is dropped unless it is closed and every one of its tokens was revealed, so a
// reveal stopped after completion still returns its final block. Inline code,
// headings, list items and quotes keep their markers, and a prose line that would
// start with $$ or a backtick fence is escaped, so the result never holds an
// unterminated fence or $$ block.
func Truncate(tokens []Token, revealed int, segments []Segment) string {
	groups := GroupRevealed(tokens, revealed)
	var t truncation
	for i, seg := range segments {
		text, ok := groups[i]
		if !ok {
			break
		}
		switch seg.Kind {
		case KindCodeBlock, KindMathBlock:
			if effectivelyLast(i, segments, groups) && !(seg.Meta.Closed && text == seg.Content) {
				return t.String()
			}
			t.block(seg)
		case KindInlineMath:
			t.prose.WriteString("$" + text + "$")
		case KindInlineCode:
			t.prose.WriteString(codeSpan(text))
		case KindHeading:
			t.prose.WriteString(strings.Repeat("#", max(seg.Meta.Level, 1)) + " " + text)
		case KindBlockquote:
			t.prose.WriteString(prefixLines(text, "> ", "> "))
		case KindListItem:
			first, rest := t.listPrefix(seg.Meta)
			t.prose.WriteString(prefixLines(text, first, rest))
		default:
			t.prose.WriteString(text)
		}
	}
	return t.String()
}

// truncation collects prose until the next block so every prose run starts on a
// fresh line.
type truncation struct {
	out   strings.Builder
	prose strings.Builder
	// listOffsets[d] is the content column of the last list item at depth d.
	listOffsets []int
}

func (t *truncation) flush() {
	if t.prose.Len() == 0 {
		return
	}
	t.out.WriteString(escapeBlockStarts(t.prose.String()))
	t.prose.Reset()
}

func (t *truncation) block(seg Segment) {
	t.flush()
	writeBlock(&t.out, seg)
}

func (t *truncation) String() string {
	t.flush()
	return trimTrailingSpace(t.out.String())
}

func (t *truncation) listPrefix(m Meta) (first, rest string) {
	marker := "- "
	if m.Ordered {
		marker = strconv.Itoa(m.Number) + ". "
	}
	n := min(max(m.Depth, 0), len(t.listOffsets))
	indent := 0
	if n > 0 {
		indent = t.listOffsets[n-1]
	}
	t.listOffsets = append(t.listOffsets[:n], indent+len(marker))
	return strings.Repeat(" ", indent) + marker, strings.Repeat(" ", indent+len(marker))
}

// prefixLines puts first before the first line of text and rest before the others.
func prefixLines(text, first, rest string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch {
		case i == 0:
			lines[i] = first + line
		case line != "":
			lines[i] = rest + line
		}
	}
	return strings.Join(lines, "\n")
}

// codeSpan wraps s in a backtick run longer than any run inside it.
func codeSpan(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r != '`' {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	fence := strings.Repeat("`", longest+1)
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		s = " " + s + " "
	}
	return fence + s + fence
}

// escapeBlockStarts backslash-escapes prose lines that would otherwise open a $$ block
// or a code fence when the result is segmented again.
func escapeBlockStarts(prose string) string {
	lines := strings.Split(prose, "\n")
	for i, line := range lines {
		body := strings.TrimLeftFunc(line, unicode.IsSpace)
		if strings.HasPrefix(body, "$$") || strings.HasPrefix(body, "```") {
			lines[i] = line[:len(line)-len(body)] + `\` + body
		}
	}
	return strings.Join(lines, "\n")
}

// effectivelyLast reports whether no segment after i has revealed non-whitespace text.
func effectivelyLast(i int, segments []Segment, groups map[int]string) bool {
	for j := i + 1; j < len(segments); j++ {
		if text, ok := groups[j]; ok && strings.TrimSpace(text) != "" {
			return false
		}
	}
	return true
}

func writeBlock(b *strings.Builder, seg Segment) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
	if seg.Kind == KindMathBlock {
		b.WriteString("$$\n")
		b.WriteString(seg.Content)
		b.WriteString("\n$$\n")
		return
	}
	fence := strings.Repeat("`", max(seg.Meta.Fence, defaultFence))
	b.WriteString(fence)
	b.WriteString(seg.Meta.Language)
	b.WriteByte('\n')
	if seg.Content != "" {
		b.WriteString(seg.Content)
		b.WriteByte('\n')
	}
	b.WriteString(fence)
	b.WriteByte('\n')
}

func trimTrailingSpace(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}
