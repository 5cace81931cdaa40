package mdreveal

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const defaultChromaStyle = "monokai"

// highlighter colors code lines one at a time. Lines reveal independently, so each
// line is tokenized on its own and multi-line constructs are not tracked.
type highlighter struct {
	lexer chroma.Lexer
	style *chroma.Style
}

// newHighlighter returns nil when language has no lexer.
func newHighlighter(language, styleName string) *highlighter {
	language = strings.TrimSpace(language)
	if language == "" {
		return nil
	}
	if fields := strings.Fields(language); len(fields) > 0 {
		language = fields[0]
	}
	lexer := lexers.Get(language)
	if lexer == nil {
		return nil
	}
	if styleName == "" {
		styleName = defaultChromaStyle
	}
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	return &highlighter{lexer: chroma.Coalesce(lexer), style: style}
}

// line returns the highlighted form of a single line without its newline.
func (h *highlighter) line(line string) (string, error) {
	if h == nil || line == "" {
		return line, nil
	}
	iterator, err := h.lexer.Tokenise(nil, line)
	if err != nil {
		return "", fmt.Errorf("highlight: %w", err)
	}
	var buf strings.Builder
	if err := (foregroundFormatter{style: h.style}).Format(&buf, iterator); err != nil {
		return "", fmt.Errorf("highlight: %w", err)
	}
	return buf.String(), nil
}

// foregroundFormatter writes chroma tokens with truecolor foregrounds only, leaving the
// terminal background alone.
type foregroundFormatter struct {
	style *chroma.Style
}

func (f foregroundFormatter) Format(w io.Writer, iterator chroma.Iterator) error {
	for token := iterator(); token != chroma.EOF; token = iterator() {
		value := strings.TrimRight(token.Value, "\n")
		if value == "" {
			continue
		}
		entry := f.style.Get(token.Type)
		var codes []string
		if entry.Colour.IsSet() {
			codes = append(codes, fmt.Sprintf("38;2;%d;%d;%d", entry.Colour.Red(), entry.Colour.Green(), entry.Colour.Blue()))
		}
		if entry.Bold == chroma.Yes {
			codes = append(codes, "1")
		}
		if entry.Italic == chroma.Yes {
			codes = append(codes, "3")
		}
		var err error
		if len(codes) > 0 {
			_, err = fmt.Fprintf(w, "\x1b[%sm%s\x1b[0m", strings.Join(codes, ";"), value)
		} else {
			_, err = io.WriteString(w, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
