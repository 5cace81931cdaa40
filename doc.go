// Package mdreveal reveals Markdown progressively, the way a chat client shows a model
// answer as it streams in.
//
// The pipeline is one-way: ParseSegments splits Markdown into typed segments (text,
// emphasis, code and math blocks, headings, list items, links and so on), Tokenize
// breaks the segments into reveal tokens with per-kind delays, and a Scheduler reveals
// the tokens one at a time to a Sink. Stopping a Scheduler returns a Markdown prefix of
// what was revealed that never ends inside an open code fence or $$ block.
//
// Core properties:
//   - Segmenting and tokenizing are pure; the Scheduler is the only stateful part
//   - Joining the tokens of a segment reproduces its content exactly
//   - One pending timer at a time; stale timer fires are ignored
//   - Growing sources are reloaded with Document.Extend without restarting the reveal
//
// Example:
//
//	res, err := mdreveal.Reveal(ctx, mdreveal.RevealRequest{
//		Reader: strings.NewReader("# Hello\n\nMarkdown in, *slowly*.\n"),
//		Writer: os.Stdout,
//		Width:  80,
//		Theme:  mdreveal.DefaultTheme(),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if res.Truncated {
//		fmt.Println(res.Markdown)
//	}
//
// Rendering is customized with RenderOptions such as OSC 8 hyperlink support, reveal
// timing and a shared MathCache.
package mdreveal
