package mdreveal

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// markdownParser handles everything outside ``` fences and $$ blocks.
var markdownParser = goldmark.New(
	goldmark.WithExtensions(extension.Linkify),
	goldmark.WithParserOptions(
		parser.WithInlineParsers(util.Prioritized(mathInlineParser{}, 150)),
	),
).Parser()

var kindMathInline = ast.NewNodeKind("MathInline")

type mathInline struct {
	ast.BaseInline
	Formula []byte
}

func (n *mathInline) Kind() ast.NodeKind { return kindMathInline }

func (n *mathInline) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Formula": string(n.Formula)}, nil)
}

// mathInlineParser recognizes $formula$ spans. The opening $ must not be followed by
// whitespace, the closing $ must not follow whitespace or precede a digit, so prices
// such as "$5 and $10" stay text.
type mathInlineParser struct{}

func (mathInlineParser) Trigger() []byte {
	return []byte{'$'}
}

func (mathInlineParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	end := inlineMathEnd(line)
	if end < 0 {
		return nil
	}
	node := &mathInline{Formula: append([]byte(nil), line[1:end]...)}
	block.Advance(end + 1)
	return node
}

func inlineMathEnd(line []byte) int {
	if len(line) < 3 || line[0] != '$' || line[1] == '$' || isSpace(line[1]) {
		return -1
	}
	for i := 2; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '$':
			if isSpace(line[i-1]) {
				continue
			}
			if i+1 < len(line) && line[i+1] >= '0' && line[i+1] <= '9' {
				continue
			}
			if i+1 < len(line) && line[i+1] == '$' {
				return -1
			}
			return i
		}
	}
	return -1
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// parseMarkdown converts non-fenced markdown into segments.
func parseMarkdown(src string) []Segment {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	source := []byte(src)
	doc := markdownParser.Parse(text.NewReader(source))
	w := &markdownWalker{src: source}
	w.blocks(doc, 0)
	return w.out
}

type markdownWalker struct {
	src []byte
	out []Segment
}

const thematicBreak = "---"

func separator(s string) Segment {
	return Segment{Kind: KindText, Content: s}
}

func (w *markdownWalker) blocks(parent ast.Node, depth int) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n, depth)
	}
}

func (w *markdownWalker) block(n ast.Node, depth int) {
	switch node := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		run := inlineRun{}
		w.inline(node, 0, &run)
		w.out = append(w.out, run.segs...)
		w.out = append(w.out, separator("\n\n"))
	case *ast.Heading:
		w.out = append(w.out,
			Segment{Kind: KindHeading, Content: w.plain(node), Meta: Meta{Level: node.Level}},
			separator("\n\n"))
	case *ast.Blockquote:
		w.out = append(w.out,
			Segment{Kind: KindBlockquote, Content: w.blockPlain(node)},
			separator("\n\n"))
	case *ast.List:
		w.list(node, depth)
	case *ast.FencedCodeBlock:
		w.out = append(w.out, Segment{
			Kind:    KindCodeBlock,
			Content: w.lines(node),
			Meta:    Meta{Language: string(node.Language(w.src)), Fence: defaultFence, Closed: true},
		})
	case *ast.CodeBlock:
		w.out = append(w.out, Segment{
			Kind:    KindCodeBlock,
			Content: w.lines(node),
			Meta:    Meta{Fence: defaultFence, Closed: true},
		})
	case *ast.ThematicBreak:
		w.out = append(w.out, separator(thematicBreak), separator("\n\n"))
	case *ast.HTMLBlock:
		if raw := w.lines(node); raw != "" {
			w.out = append(w.out, separator(raw), separator("\n\n"))
		}
	default:
		if plain := w.blockPlain(n); plain != "" {
			w.out = append(w.out, separator(plain), separator("\n\n"))
		}
	}
}

func (w *markdownWalker) list(l *ast.List, depth int) {
	ordered := l.IsOrdered()
	number := 0
	if ordered {
		number = l.Start
	}
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		var parts []string
		var nested []*ast.List
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				nested = append(nested, sub)
				continue
			}
			if plain := w.blockPlain(c); plain != "" {
				parts = append(parts, plain)
			}
		}
		w.out = append(w.out,
			Segment{
				Kind:    KindListItem,
				Content: strings.Join(parts, "\n"),
				Meta:    Meta{Ordered: ordered, Number: number, Depth: depth},
			},
			separator("\n"))
		for _, sub := range nested {
			w.list(sub, depth+1)
		}
		if ordered {
			number++
		}
	}
}

type inlineRun struct {
	segs []Segment
}

func (r *inlineRun) add(seg Segment) {
	if seg.Content == "" {
		return
	}
	if n := len(r.segs); n > 0 {
		last := &r.segs[n-1]
		if last.Kind == seg.Kind && last.Meta == seg.Meta && coalescable(seg.Kind) {
			last.Content += seg.Content
			return
		}
	}
	r.segs = append(r.segs, seg)
}

func coalescable(k Kind) bool {
	return k == KindText || k == KindBold || k == KindItalic
}

func styledText(s string, style InlineStyle) Segment {
	kind := KindText
	switch {
	case style&StyleBold != 0:
		kind = KindBold
	case style&StyleItalic != 0:
		kind = KindItalic
	}
	return Segment{Kind: kind, Content: s, Meta: Meta{Style: style}}
}

func (w *markdownWalker) inline(parent ast.Node, style InlineStyle, run *inlineRun) {
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			value := string(node.Segment.Value(w.src))
			if node.HardLineBreak() {
				run.add(styledText(value, style))
				run.add(Segment{Kind: KindBreak, Content: "\n"})
				continue
			}
			if node.SoftLineBreak() {
				value += "\n"
			}
			run.add(styledText(value, style))
		case *ast.String:
			run.add(styledText(string(node.Value), style))
		case *ast.Emphasis:
			next := style | StyleItalic
			if node.Level >= 2 {
				next = style | StyleBold
			}
			w.inline(node, next, run)
		case *ast.CodeSpan:
			run.add(Segment{Kind: KindInlineCode, Content: w.plain(node), Meta: Meta{Style: style}})
		case *mathInline:
			run.add(Segment{Kind: KindInlineMath, Content: string(node.Formula)})
		case *ast.Link:
			run.add(Segment{
				Kind:    KindLink,
				Content: w.plain(node),
				Meta:    Meta{URL: string(node.Destination), Style: style},
			})
		case *ast.AutoLink:
			run.add(Segment{
				Kind:    KindLink,
				Content: string(node.Label(w.src)),
				Meta:    Meta{URL: string(node.URL(w.src)), Style: style},
			})
		case *ast.RawHTML:
			run.add(styledText(w.raw(node), style))
		default:
			w.inline(c, style, run)
		}
	}
}

// plain extracts the text of an inline container.
func (w *markdownWalker) plain(n ast.Node) string {
	var b strings.Builder
	w.writePlain(&b, n)
	return b.String()
}

func (w *markdownWalker) writePlain(b *strings.Builder, n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(w.src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *mathInline:
			b.WriteByte('$')
			b.Write(node.Formula)
			b.WriteByte('$')
		case *ast.AutoLink:
			b.Write(node.Label(w.src))
		case *ast.RawHTML:
			b.WriteString(w.raw(node))
		default:
			w.writePlain(b, c)
		}
	}
}

// blockPlain extracts the text of a block, joining child blocks with newlines.
func (w *markdownWalker) blockPlain(n ast.Node) string {
	switch n.(type) {
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		return w.lines(n)
	case *ast.ThematicBreak:
		return thematicBreak
	}
	first := n.FirstChild()
	if first == nil {
		return ""
	}
	if first.Type() == ast.TypeInline {
		return strings.TrimRight(w.plain(n), "\n")
	}
	var parts []string
	for c := first; c != nil; c = c.NextSibling() {
		if plain := w.blockPlain(c); plain != "" {
			parts = append(parts, plain)
		}
	}
	return strings.Join(parts, "\n")
}

func (w *markdownWalker) lines(n ast.Node) string {
	lines := n.Lines()
	if lines == nil {
		return ""
	}
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(w.src))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (w *markdownWalker) raw(n *ast.RawHTML) string {
	var b strings.Builder
	for i := 0; i < n.Segments.Len(); i++ {
		seg := n.Segments.At(i)
		b.Write(seg.Value(w.src))
	}
	return b.String()
}
