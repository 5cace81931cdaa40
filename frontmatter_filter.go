package mdreveal

import "strings"

// StripFrontMatter removes a YAML (---), TOML (+++) or JSON (;;;) front matter block at
// the start of text. The block is kept when its second line does not look like
// metadata or when no closing delimiter follows, so a plain thematic break survives.
func StripFrontMatter(text string) string {
	openLine, next, ok := nextLine(text, 0)
	if !ok {
		return text
	}
	delim, isFrontMatter := parseOpeningFrontMatterDelimiter(openLine)
	if !isFrontMatter {
		return text
	}
	secondLine, _, ok := nextLine(text, next)
	if !ok || !frontMatterMetadataLikely(secondLine) {
		return text
	}
	end, found := findClosingFrontMatterDelimiter(text, next, delim)
	if !found {
		return text
	}
	return strings.TrimLeft(text[end:], "\r\n")
}

// nextLine returns the line starting at start without its line ending and the offset
// of the following line.
func nextLine(src string, start int) (string, int, bool) {
	if start >= len(src) {
		return "", start, false
	}
	i := strings.IndexByte(src[start:], '\n')
	if i < 0 {
		return strings.TrimSuffix(src[start:], "\r"), len(src), true
	}
	return strings.TrimSuffix(src[start:start+i], "\r"), start + i + 1, true
}

func parseOpeningFrontMatterDelimiter(line string) (string, bool) {
	switch trimmed := strings.TrimSpace(strings.TrimPrefix(line, "\ufeff")); trimmed {
	case "---", "+++", ";;;":
		return trimmed, true
	default:
		return "", false
	}
}

func frontMatterMetadataLikely(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return true
	}
	return strings.ContainsAny(trimmed, ":=")
}

func findClosingFrontMatterDelimiter(src string, start int, delim string) (int, bool) {
	for idx := start; idx < len(src); {
		line, next, ok := nextLine(src, idx)
		if !ok {
			return 0, false
		}
		if strings.TrimSpace(line) == delim {
			return next, true
		}
		idx = next
	}
	return 0, false
}
