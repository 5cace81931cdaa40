package mdreveal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func truncateAt(doc *Document, revealed int) string {
	return Truncate(doc.Tokens, revealed, doc.Segments)
}

func TestTruncateNothingRevealedInCodeBlock(t *testing.T) {
	doc := NewDocument("```py\nprint(1)\n```")
	require.Equal(t, "", truncateAt(doc, 0))
}

func TestTruncateFullyRevealedClosedBlock(t *testing.T) {
	doc := NewDocument("```py\nprint(1)\n```")
	require.Equal(t, "```py\nprint(1)\n```", truncateAt(doc, doc.Len()))
}

func TestTruncateDropsStreamingBlockAtEnd(t *testing.T) {
	doc := NewDocument("Intro\n\n```go\na\nb")
	require.Equal(t, []string{"Intro", "\n\n", "a\n", "b"}, tokenTexts(doc.Tokens))
	require.Equal(t, "Intro", truncateAt(doc, 2))
	require.Equal(t, "Intro", truncateAt(doc, 3))
	require.Equal(t, "Intro", truncateAt(doc, 4))
}

func TestTruncateKeepsBlockFollowedByText(t *testing.T) {
	doc := NewDocument("```go\na\n```\nafter")
	require.Equal(t, []string{"a", "after", "\n\n"}, tokenTexts(doc.Tokens))
	require.Equal(t, "```go\na\n```\nafter", truncateAt(doc, 2))
}

func TestTruncateMathBlockIsAtomic(t *testing.T) {
	doc := NewDocument("Text\n\n$$\nx^2\n\n$$\n\nmore")
	blockIdx := -1
	for i, seg := range doc.Segments {
		if seg.Kind == KindMathBlock {
			blockIdx = i
		}
	}
	require.GreaterOrEqual(t, blockIdx, 0)
	var mathTok int
	for i, tok := range doc.Tokens {
		if tok.Segment == blockIdx {
			mathTok = i
		}
	}
	// Math is atomic, so revealing its token means the whole block was shown.
	require.Contains(t, truncateAt(doc, mathTok+1), "$$\nx^2\n\n$$")
	require.Equal(t, "Text", truncateAt(doc, mathTok))
}

func TestTruncateInlineMathKeepsDelimiters(t *testing.T) {
	doc := NewDocument("Area $x^2$ ok")
	require.Equal(t, "Area $x^2$ ok", truncateAt(doc, doc.Len()))
	require.Equal(t, "Area $x^2$", truncateAt(doc, 3))
}

func TestTruncateClampsRevealed(t *testing.T) {
	doc := NewDocument("one two")
	require.Equal(t, "one two", truncateAt(doc, 100))
	require.Equal(t, "", truncateAt(doc, -1))
	require.Empty(t, GroupRevealed(doc.Tokens, 0))
}

func TestTruncateNeverLeavesOpenFence(t *testing.T) {
	src := strings.Join([]string{
		"Intro paragraph with `inline` code.",
		"",
		"```go",
		"package main",
		"",
		"func main() {}",
		"```",
		"",
		"Between blocks.",
		"",
		"```md",
		"```sh",
		"echo nested",
		"```",
		"```",
		"",
		"$$",
		"a^2 + b^2",
		"$$",
		"",
		"Tail text",
		"",
		"```python",
		"print('unterminated')",
	}, "\n")
	doc := NewDocument(src)
	for k := 0; k <= doc.Len(); k++ {
		out := truncateAt(doc, k)
		requireBalancedBlocks(t, out, k)
	}
}

// requireBalancedBlocks checks that re-segmenting md yields no unterminated block.
func requireBalancedBlocks(t *testing.T, md string, k int) {
	t.Helper()
	for _, seg := range ParseSegments(md) {
		if seg.Kind.IsBlock() {
			require.True(t, seg.Meta.Closed, "open %s after %d tokens:\n%s", seg.Kind, k, md)
		}
	}
}

func TestTruncateKeepsMarkdownMarkers(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"Use `x` here", "Use `x` here"},
		{"## Title\n\nBody", "## Title\n\nBody"},
		{"- one\n- two\n  - nested\n", "- one\n- two\n  - nested"},
		{"3. a\n4. b\n", "3. a\n4. b"},
		{"> quoted\n> text", "> quoted\n> text"},
	}
	for _, tc := range tests {
		doc := NewDocument(tc.src)
		require.Equal(t, tc.want, truncateAt(doc, doc.Len()), tc.src)
	}
}

func TestTruncatePartialHeadingKeepsLevel(t *testing.T) {
	doc := NewDocument("# $$ total\n\nafter")
	require.Equal(t, "# $$", truncateAt(doc, 1))
}

func TestCodeSpanOutrunsContent(t *testing.T) {
	require.Equal(t, "`x`", codeSpan("x"))
	require.Equal(t, "``a`b``", codeSpan("a`b"))
	require.Equal(t, "`` `a ``", codeSpan("`a"))
	require.Equal(t, "```a``b```", codeSpan("a``b"))
}

func TestEscapeBlockStarts(t *testing.T) {
	require.Equal(t, "a\n\\$$ b\n  \\```py\nc", escapeBlockStarts("a\n$$ b\n  ```py\nc"))
	require.Equal(t, "x $$ y", escapeBlockStarts("x $$ y"))
}

func TestTruncateNeverOpensBlockFromProse(t *testing.T) {
	inputs := []string{
		"`$$` opens display math.\n\nMore text here.",
		"# $$ total\n\nafter",
		"- `` ```py `` starts a fence\n",
		"$$$$\nx\n$$",
		"> ```sh\n> $$ quoted\n\ntail",
		"1. first\n   ```go\n   code\n   ```\n2. `` ``` `` second\n",
		"Text with ``` `` ``` ticks\n\n```go\nx\n```\n",
	}
	for _, src := range inputs {
		doc := NewDocument(src)
		for k := 0; k <= doc.Len(); k++ {
			requireBalancedBlocks(t, truncateAt(doc, k), k)
		}
	}

	doc := NewDocument(inputs[0])
	require.Equal(t, "`$$` opens display math.\n\nMore text here.", truncateAt(doc, doc.Len()))
}
