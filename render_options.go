package mdreveal

import "log/slog"

// RenderOption configures rendering behavior.
type RenderOption func(*renderConfig)

type renderConfig struct {
	osc8          bool
	redraw        bool
	timing        Timing
	mathCache     *MathCache
	logger        *slog.Logger
	frontMatter   bool
	paragraphJoin bool
	fenceTrim     bool
}

func newRenderConfig(opts []RenderOption) renderConfig {
	cfg := renderConfig{
		timing: DefaultTiming(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithOSC8 enables or disables OSC 8 hyperlinks.
func WithOSC8(enabled bool) RenderOption {
	return func(cfg *renderConfig) {
		cfg.osc8 = enabled
	}
}

// WithRedraw makes the renderer clear the screen and repaint the revealed prefix
// whenever a new snapshot of the same stream arrives. Use it when the source grows
// while it is revealed, since re-segmenting can restyle text already on screen.
func WithRedraw(enabled bool) RenderOption {
	return func(cfg *renderConfig) {
		cfg.redraw = enabled
	}
}

// WithTiming sets the reveal delays.
func WithTiming(t Timing) RenderOption {
	return func(cfg *renderConfig) {
		cfg.timing = t
	}
}

// WithMathCache shares a formatted-math cache between renderers.
func WithMathCache(cache *MathCache) RenderOption {
	return func(cfg *renderConfig) {
		cfg.mathCache = cache
	}
}

// WithLogger sets the logger for formatting fallbacks and scheduler events.
func WithLogger(logger *slog.Logger) RenderOption {
	return func(cfg *renderConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithFrontMatter strips a leading front matter block before segmenting.
func WithFrontMatter(strip bool) RenderOption {
	return func(cfg *renderConfig) {
		cfg.frontMatter = strip
	}
}

// WithParagraphJoin applies JoinParagraphs before segmenting.
func WithParagraphJoin(enabled bool) RenderOption {
	return func(cfg *renderConfig) {
		cfg.paragraphJoin = enabled
	}
}

// WithFenceTrim applies TrimIncompleteFence before segmenting.
func WithFenceTrim(enabled bool) RenderOption {
	return func(cfg *renderConfig) {
		cfg.fenceTrim = enabled
	}
}

// prepare runs the configured pre-processing steps over raw input.
func (cfg renderConfig) prepare(text string) string {
	text = Sanitize(text)
	if cfg.frontMatter {
		text = StripFrontMatter(text)
	}
	if cfg.fenceTrim {
		text = TrimIncompleteFence(text)
	}
	if cfg.paragraphJoin {
		text = JoinParagraphs(text)
	}
	return text
}

// Prepare applies the pre-processing selected by opts to raw input: sanitizing, then
// front matter stripping, fence trimming and paragraph joining when enabled.
func Prepare(text string, opts ...RenderOption) string {
	return newRenderConfig(opts).prepare(text)
}

// PrepareDocument prepares text and builds a Document using the timing from opts.
func PrepareDocument(text string, opts ...RenderOption) *Document {
	cfg := newRenderConfig(opts)
	return NewDocument(cfg.prepare(text), WithTokenTiming(cfg.timing))
}
