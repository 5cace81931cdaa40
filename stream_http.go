package mdreveal

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPRevealRequest configures HTTPReveal.
type HTTPRevealRequest struct {
	URL     string
	Client  *http.Client
	Writer  io.Writer
	Width   int
	Theme   Theme
	Options []RenderOption
	Clock   Clock
}

// HTTPReveal fetches Markdown over HTTP(S) and reveals it. Cancelling ctx aborts the
// request or stops the reveal, whichever is in progress.
func HTTPReveal(ctx context.Context, req HTTPRevealRequest) (RevealResult, error) {
	if req.URL == "" {
		return RevealResult{}, fmt.Errorf("reveal http: URL is required")
	}
	if req.Writer == nil {
		return RevealResult{}, fmt.Errorf("reveal http: writer is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	client := req.Client
	if client == nil {
		client = http.DefaultClient
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return RevealResult{}, fmt.Errorf("reveal http: build request: %w", err)
	}
	if httpReq.URL.Scheme != "http" && httpReq.URL.Scheme != "https" {
		return RevealResult{}, fmt.Errorf("reveal http: unsupported scheme %q", httpReq.URL.Scheme)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return RevealResult{}, fmt.Errorf("reveal http: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return RevealResult{}, fmt.Errorf("reveal http: status %s", resp.Status)
	}
	return Reveal(ctx, RevealRequest{
		Reader:  resp.Body,
		Writer:  req.Writer,
		Width:   req.Width,
		Theme:   req.Theme,
		Options: req.Options,
		Clock:   req.Clock,
	})
}
