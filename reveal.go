package mdreveal

import (
	"context"
	"fmt"
	"io"
)

// RenderRequest configures Render.
type RenderRequest struct {
	Reader  io.Reader
	Writer  io.Writer
	Width   int
	Theme   Theme
	Options []RenderOption
}

// Render reads all markdown from Reader and writes every token at once, without any
// reveal delay.
func Render(req RenderRequest) error {
	doc, cfg, err := loadDocument("render", req.Reader, req.Writer, req.Options)
	if err != nil {
		return err
	}
	r := newANSIRenderer(req.Writer, req.Width, themeOrDefault(req.Theme), cfg)
	for i, tok := range doc.Tokens {
		if err := r.WriteFrame(Frame{Document: doc, Index: i, Token: tok, Revealed: i + 1}); err != nil {
			return fmt.Errorf("render: write: %w", err)
		}
	}
	if err := r.Complete(); err != nil {
		return fmt.Errorf("render: write: %w", err)
	}
	return nil
}

// RevealRequest configures Reveal.
type RevealRequest struct {
	Reader  io.Reader
	Writer  io.Writer
	Width   int
	Theme   Theme
	Options []RenderOption
	// Clock overrides the wall clock, mainly for tests.
	Clock Clock
}

// RevealResult describes how a reveal ended.
type RevealResult struct {
	StreamID string
	// Markdown is the full source after a complete reveal, or the truncated prefix when
	// the reveal was cancelled.
	Markdown  string
	Truncated bool
	Revealed  int
	Total     int
}

// Reveal reads all markdown from Reader and reveals it token by token. Cancelling ctx
// stops the reveal; the result then carries the markdown for what was shown.
func Reveal(ctx context.Context, req RevealRequest) (RevealResult, error) {
	doc, cfg, err := loadDocument("reveal", req.Reader, req.Writer, req.Options)
	if err != nil {
		return RevealResult{}, err
	}
	r := newANSIRenderer(req.Writer, req.Width, themeOrDefault(req.Theme), cfg)
	sched := NewScheduler(doc,
		WithSink(r),
		WithClock(req.Clock),
		WithSchedulerLogger(cfg.logger),
	)
	sched.Start()

	select {
	case <-sched.Done():
	case <-ctx.Done():
	}
	res := RevealResult{StreamID: doc.ID, Markdown: doc.Source, Total: doc.Len()}
	if sched.State() != StateComplete {
		res.Markdown = sched.Stop()
		res.Truncated = true
	}
	res.Revealed = sched.Revealed()
	if err := sched.Err(); err != nil {
		return res, fmt.Errorf("reveal: write: %w", err)
	}
	return res, nil
}

func loadDocument(op string, reader io.Reader, writer io.Writer, opts []RenderOption) (*Document, renderConfig, error) {
	if reader == nil {
		return nil, renderConfig{}, fmt.Errorf("%s: reader is nil", op)
	}
	if writer == nil {
		return nil, renderConfig{}, fmt.Errorf("%s: writer is nil", op)
	}
	src, err := io.ReadAll(reader)
	if err != nil {
		return nil, renderConfig{}, fmt.Errorf("%s: read: %w", op, err)
	}
	if err := ValidateInput(src); err != nil {
		return nil, renderConfig{}, fmt.Errorf("%s: %w", op, err)
	}
	cfg := newRenderConfig(opts)
	return PrepareDocument(string(src), opts...), cfg, nil
}

func themeOrDefault(t Theme) Theme {
	if t == nil {
		return DefaultTheme()
	}
	return t
}
