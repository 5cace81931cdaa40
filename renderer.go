package mdreveal

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
)

const clearScreen = "\x1b[H\x1b[2J"

// ANSIRenderer is a Sink that writes revealed tokens to a terminal. Prose is word
// wrapped at Width; code lines are highlighted with chroma and math is converted to
// Unicode. A segment that fails to format is written raw and does not affect the
// segments after it.
//
// An ANSIRenderer is driven by a single Scheduler and is not safe for concurrent use.
type ANSIRenderer struct {
	w      io.Writer
	width  int
	styles Styles
	osc8   bool
	redraw bool
	math   *MathCache
	logger *slog.Logger

	buf          strings.Builder
	doc          *Document
	streamID     string
	lineWidth    int
	wrapIndent   string
	indentWidth  int
	pendingSpace bool
	hl           *highlighter
}

// NewANSIRenderer returns a renderer writing to w. A width of 0 disables wrapping and a
// nil theme selects the default theme.
func NewANSIRenderer(w io.Writer, width int, theme Theme, opts ...RenderOption) *ANSIRenderer {
	cfg := newRenderConfig(opts)
	if theme == nil {
		theme = DefaultTheme()
	}
	return newANSIRenderer(w, width, theme, cfg)
}

func newANSIRenderer(w io.Writer, width int, theme Theme, cfg renderConfig) *ANSIRenderer {
	if width < 0 {
		width = 0
	}
	return &ANSIRenderer{
		w:      w,
		width:  width,
		styles: theme.Styles(),
		osc8:   cfg.osc8,
		redraw: cfg.redraw,
		math:   cfg.mathCache,
		logger: cfg.logger,
	}
}

// WriteFrame renders a single revealed token.
func (r *ANSIRenderer) WriteFrame(f Frame) error {
	if f.Document == nil || f.Index < 0 || f.Index >= f.Document.Len() {
		return fmt.Errorf("render: frame index %d out of range", f.Index)
	}
	r.buf.Reset()
	switch {
	case f.Document.ID != r.streamID:
		if r.redraw {
			r.buf.WriteString(clearScreen)
		} else if r.lineWidth > 0 {
			r.newline()
		}
		r.resetLayout()
		r.streamID = f.Document.ID
		r.doc = f.Document
		r.replay(f.Document, f.Index)
	case f.Document != r.doc:
		r.doc = f.Document
		if r.redraw {
			r.buf.WriteString(clearScreen)
			r.resetLayout()
			r.replay(f.Document, f.Index)
		}
	}
	r.renderToken(f.Document, f.Index)
	return r.flush()
}

// Complete terminates the last line.
func (r *ANSIRenderer) Complete() error {
	r.buf.Reset()
	if r.lineWidth > 0 {
		r.newline()
	}
	return r.flush()
}

// Stopped terminates the last line. The truncated markdown is left to the caller.
func (r *ANSIRenderer) Stopped(string) error {
	r.buf.Reset()
	if r.lineWidth > 0 {
		r.newline()
	}
	return r.flush()
}

func (r *ANSIRenderer) flush() error {
	if r.buf.Len() == 0 {
		return nil
	}
	_, err := io.WriteString(r.w, r.buf.String())
	return err
}

func (r *ANSIRenderer) resetLayout() {
	r.lineWidth = 0
	r.setIndent("", 0)
	r.pendingSpace = false
	r.hl = nil
}

// replay renders the tokens before upto, used when a snapshot is joined mid-stream.
func (r *ANSIRenderer) replay(doc *Document, upto int) {
	for i := 0; i < upto; i++ {
		r.renderToken(doc, i)
	}
}

func (r *ANSIRenderer) renderToken(doc *Document, i int) {
	tok := doc.Tokens[i]
	seg := doc.Segments[tok.Segment]
	if tok.First {
		r.beginSegment(seg)
	}
	switch seg.Kind {
	case KindCodeBlock:
		r.codeLine(tok)
	case KindMathBlock:
		r.mathBlock(tok.Segment, tok.Text)
	case KindInlineMath:
		r.word(r.inlineMath(tok.Segment, tok.Text), r.styles.Math, "")
	case KindInlineCode:
		r.word(tok.Text, r.styles.CodeInline, "")
	case KindBreak:
		r.newline()
	default:
		r.prose(tok.Text, seg)
	}
	if tok.Last {
		r.endSegment(seg)
	}
}

func (r *ANSIRenderer) beginSegment(seg Segment) {
	switch seg.Kind {
	case KindHeading:
		r.ensureLineStart()
		level := min(max(seg.Meta.Level, 1), 6)
		r.write(r.styles.Heading[level-1].Wrap(strings.Repeat("#", level)+" "), level+1)
		r.setIndent(strings.Repeat(" ", level+1), level+1)
	case KindListItem:
		r.ensureLineStart()
		indent := strings.Repeat("  ", seg.Meta.Depth)
		marker := "- "
		if seg.Meta.Ordered {
			marker = fmt.Sprintf("%d. ", seg.Meta.Number)
		}
		r.write(indent+r.styles.ListMarker.Wrap(marker), runewidth.StringWidth(indent+marker))
		r.setIndent(strings.Repeat(" ", r.lineWidth), r.lineWidth)
	case KindBlockquote:
		r.ensureLineStart()
		prefix := r.styles.Quote.Wrap("> ")
		r.write(prefix, 2)
		r.setIndent(prefix, 2)
	case KindCodeBlock:
		r.ensureLineStart()
		if lang := strings.TrimSpace(seg.Meta.Language); lang != "" {
			r.buf.WriteString(r.styles.CodeLabel.Wrap(lang))
			r.newline()
		}
		if r.styles.Chroma != "" {
			r.hl = newHighlighter(seg.Meta.Language, r.styles.Chroma)
		}
	case KindMathBlock:
		r.ensureLineStart()
	}
}

func (r *ANSIRenderer) endSegment(seg Segment) {
	switch seg.Kind {
	case KindHeading, KindListItem, KindBlockquote:
		r.setIndent("", 0)
	case KindCodeBlock:
		r.hl = nil
		if r.lineWidth > 0 {
			r.newline()
		}
	case KindLink:
		if !r.osc8 && seg.Meta.URL != "" && seg.Meta.URL != seg.Content {
			limit := r.width - r.indentWidth - 2
			url := seg.Meta.URL
			if r.width > 0 && limit > 0 {
				url = fitURL(url, limit)
			}
			r.pendingSpace = true
			r.word("("+url+")", r.styles.LinkURL, "")
		}
	}
}

// prose handles word and whitespace tokens of the text-like kinds. Newlines inside a
// segment with text are soft breaks and reflow as spaces; whitespace-only segments
// separate blocks and keep their newlines.
func (r *ANSIRenderer) prose(text string, seg Segment) {
	if text == "" {
		return
	}
	if strings.TrimSpace(text) != "" {
		url := ""
		if seg.Kind == KindLink && r.osc8 {
			url = seg.Meta.URL
		}
		r.word(text, r.proseStyle(seg), url)
		return
	}
	if n := strings.Count(text, "\n"); n > 0 && strings.TrimSpace(seg.Content) == "" {
		for range n {
			r.newline()
		}
		return
	}
	r.pendingSpace = true
}

func (r *ANSIRenderer) proseStyle(seg Segment) Style {
	switch seg.Kind {
	case KindHeading:
		return r.styles.Heading[min(max(seg.Meta.Level, 1), 6)-1]
	case KindBlockquote:
		return r.styles.Quote
	case KindLink:
		return r.styles.LinkText
	case KindText:
		if seg.Content == thematicBreak {
			return r.styles.Rule
		}
	}
	switch {
	case seg.Meta.Style&StyleBold != 0 && seg.Meta.Style&StyleItalic != 0:
		return r.styles.EmphasisStrong
	case seg.Meta.Style&StyleBold != 0 || seg.Kind == KindBold:
		return r.styles.Strong
	case seg.Meta.Style&StyleItalic != 0 || seg.Kind == KindItalic:
		return r.styles.Emphasis
	}
	return r.styles.Text
}

// word writes an unbreakable run, wrapping first when it would overflow the line.
// text may already carry escape sequences.
func (r *ANSIRenderer) word(text string, st Style, url string) {
	if text == "" {
		return
	}
	w := ansi.PrintableRuneWidth(text)
	if r.lineWidth == 0 && r.indentWidth > 0 {
		r.write(r.wrapIndent, r.indentWidth)
		r.pendingSpace = false
	}
	indent := r.indentWidth
	space := 0
	if r.pendingSpace && r.lineWidth > indent {
		space = 1
	}
	if r.width > 0 && r.lineWidth > indent && r.lineWidth+space+w > r.width {
		r.wrapNewline()
		space = 0
	}
	if space == 1 {
		r.write(" ", 1)
	}
	r.pendingSpace = false
	styled := st.Wrap(text)
	if url != "" {
		styled = osc8Start + url + "\x1b\\" + styled + osc8End
	}
	r.write(styled, w)
}

func (r *ANSIRenderer) codeLine(tok Token) {
	line, hasNewline := strings.CutSuffix(tok.Text, "\n")
	out := r.styles.CodeBlock.Wrap(line)
	if r.hl != nil {
		highlighted, err := r.hl.line(line)
		if err != nil {
			r.logger.Warn("code highlighting failed", "segment", tok.Segment, "err", err)
			r.hl = nil
		} else {
			out = highlighted
		}
	}
	r.write(out, runewidth.StringWidth(line))
	if hasNewline {
		r.newline()
	}
}

func (r *ANSIRenderer) mathBlock(segment int, formula string) {
	out, err := r.math.Format(formula)
	if err != nil {
		r.logger.Warn("math formatting failed", "segment", segment, "err", err)
		out = formula
	}
	for _, line := range strings.Split(out, "\n") {
		r.write(r.styles.Math.Wrap(line), runewidth.StringWidth(line))
		r.newline()
	}
}

func (r *ANSIRenderer) inlineMath(segment int, formula string) string {
	out, err := r.math.Format(formula)
	if err != nil {
		r.logger.Warn("math formatting failed", "segment", segment, "err", err)
		return "$" + formula + "$"
	}
	return strings.ReplaceAll(out, "\n", " ")
}

func (r *ANSIRenderer) ensureLineStart() {
	if r.lineWidth > 0 {
		r.newline()
	}
	r.pendingSpace = false
}

func (r *ANSIRenderer) newline() {
	r.buf.WriteByte('\n')
	r.lineWidth = 0
	r.pendingSpace = false
}

func (r *ANSIRenderer) wrapNewline() {
	r.newline()
	if r.indentWidth > 0 {
		r.write(r.wrapIndent, r.indentWidth)
	}
}

// setIndent sets the prefix written at the start of wrapped lines.
func (r *ANSIRenderer) setIndent(prefix string, width int) {
	r.wrapIndent = prefix
	r.indentWidth = width
}

func (r *ANSIRenderer) write(s string, width int) {
	r.buf.WriteString(s)
	r.lineWidth += width
}
