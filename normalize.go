package mdreveal

import "strings"

// JoinParagraphs turns single newlines outside code and math blocks into paragraph
// breaks, so hand-typed text with one line per paragraph does not collapse into a
// single paragraph.
func JoinParagraphs(text string) string {
	lines := strings.Split(text, "\n")
	var b strings.Builder
	b.Grow(len(text) + len(lines))
	var fence, depth int
	inMath := false
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
			if fence == 0 && !inMath && lines[i-1] != "" && line != "" && !isBlockDelimiter(lines[i-1]) && !isBlockDelimiter(line) {
				b.WriteByte('\n')
			}
		}
		b.WriteString(line)
		switch {
		case fence == 0 && strings.HasPrefix(strings.TrimSpace(line), "$$"):
			if trimmed := strings.TrimSpace(line); !(len(trimmed) > 4 && strings.HasSuffix(trimmed, "$$")) {
				inMath = !inMath
			}
		case !inMath:
			if m := fenceLine.FindStringSubmatch(line); m != nil {
				run := len(m[2])
				switch {
				case fence == 0:
					fence, depth = run, 1
				case strings.TrimSpace(m[3]) != "":
					depth++
				case run >= fence:
					if depth--; depth == 0 {
						fence = 0
					}
				}
			}
		}
	}
	return b.String()
}

func isBlockDelimiter(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "$$")
}

// TrimIncompleteFence drops a trailing line made only of one or two backticks, which
// is what a fence looks like while it is being typed. The line is kept when the rest
// of the text has an odd number of backticks, since it then closes an inline code
// span. This is a parity heuristic and can misjudge text with stray backticks.
func TrimIncompleteFence(text string) string {
	idx := strings.LastIndexByte(text, '\n')
	last := text[idx+1:]
	trimmed := strings.TrimSpace(last)
	if trimmed == "" || len(trimmed) > 2 || strings.Trim(trimmed, "`") != "" {
		return text
	}
	rest := text[:idx+1]
	if strings.Count(rest, "`")%2 != 0 {
		return text
	}
	return rest
}
