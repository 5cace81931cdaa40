package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"
	"pkt.systems/version"

	"pkt.systems/mdreveal"
	"pkt.systems/mdreveal/internal/config"
)

const defaultWidth = 80

func init() {
	version.SetDefaultModule("pkt.systems/mdreveal")
}

type options struct {
	configPath      string
	themeName       string
	width           int
	osc8            string
	listThemes      bool
	outPath         string
	truncatedPath   string
	boring          bool
	instant         bool
	follow          string
	textDelay       time.Duration
	codeLineDelay   time.Duration
	inlineCodeDelay time.Duration
	joinParagraphs  bool
	trimFences      bool
	keepFrontMatter bool
	verbose         bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options
	flags := pflag.NewFlagSet("mdreveal", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/mdreveal/config.toml)")
	flags.StringVarP(&opts.themeName, "theme", "t", "", "Theme name")
	flags.IntVarP(&opts.width, "width", "w", 0, "Output width override (0 uses terminal width if available)")
	flags.StringVarP(&opts.osc8, "osc8", "8", "", "OSC8 hyperlinks: auto|on|off")
	flags.BoolVar(&opts.listThemes, "list-themes", false, "List available themes")
	flags.StringVarP(&opts.outPath, "output", "o", "", "Output file instead of stdout")
	flags.StringVar(&opts.truncatedPath, "save-truncated", "", "Write the markdown revealed so far to this file when interrupted")
	flags.BoolVarP(&opts.boring, "boring", "b", false, "Generate non-ANSI output")
	flags.BoolVarP(&opts.instant, "instant", "i", false, "Render everything at once instead of revealing")
	flags.StringVarP(&opts.follow, "follow", "f", "", "Reveal a file and keep revealing as it grows")
	flags.DurationVar(&opts.textDelay, "text-delay", 0, "Delay after each word")
	flags.DurationVar(&opts.codeLineDelay, "code-line-delay", 0, "Delay after each code line")
	flags.DurationVar(&opts.inlineCodeDelay, "inline-code-delay", 0, "Delay after each inline code span")
	flags.BoolVar(&opts.joinParagraphs, "join-paragraphs", false, "Treat every single newline as a paragraph break")
	flags.BoolVar(&opts.trimFences, "trim-fences", false, "Drop a trailing partial code fence line")
	flags.BoolVar(&opts.keepFrontMatter, "keep-front-matter", false, "Do not strip front matter")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging on stderr")

	flags.SetInterspersed(true)
	flags.Usage = func() {
		fmt.Fprintln(stderr, version.Module(), version.Current())
		fmt.Fprintf(stderr, "Usage: mdreveal [flags] [inputs...]\n")
		fmt.Fprintln(stderr, "\nIf no input is provided, Markdown is read from stdin.")
		fmt.Fprintln(stderr, "Interrupting a reveal stops it; --save-truncated keeps what was shown.")
		fmt.Fprintln(stderr, "\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.listThemes {
		printThemes(stdout)
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 2
	}
	if err := applyFlags(flags, &opts, cfg); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	logger := newLogger(stderr, cfg, opts.verbose)

	writer, closeOut, err := resolveOutput(opts.outPath, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "open output: %v\n", err)
		return 1
	}
	if closeOut != nil {
		defer func() { _ = closeOut.Close() }()
	}

	theme, ok := mdreveal.ThemeByName(cfg.Theme)
	if !ok {
		fmt.Fprintf(stderr, "unknown theme %q\n\n", cfg.Theme)
		printThemes(stderr)
		return 2
	}
	if opts.boring || (!flags.Changed("theme") && colorProfile(writer) == termenv.Ascii) {
		theme = mdreveal.BoringTheme()
	}

	osc8, err := resolveOSC8(cfg.OSC8)
	if err != nil {
		fmt.Fprintf(stderr, "invalid osc8 %q: %v\n", cfg.OSC8, err)
		return 2
	}
	width := resolveWidth(cfg.Width, writer)
	renderOpts := []mdreveal.RenderOption{
		mdreveal.WithOSC8(osc8),
		mdreveal.WithTiming(cfg.RevealTiming()),
		mdreveal.WithMathCache(mdreveal.NewMathCache(cfg.MathCacheSize)),
		mdreveal.WithLogger(logger),
		mdreveal.WithFrontMatter(cfg.StripFrontMatter),
		mdreveal.WithParagraphJoin(cfg.JoinParagraphs),
		mdreveal.WithFenceTrim(cfg.TrimFences),
	}

	if opts.follow != "" {
		truncated, err := follow(ctx, followRequest{
			path:    normalizePath(opts.follow),
			writer:  writer,
			width:   width,
			theme:   theme,
			options: renderOpts,
			logger:  logger,
		})
		if err != nil {
			fmt.Fprintf(stderr, "follow: %v\n", err)
			return 1
		}
		return saveTruncated(opts.truncatedPath, truncated, stderr)
	}

	reader, closer, err := openInputs(ctx, nil, flags.Args())
	if err != nil {
		fmt.Fprintf(stderr, "open input: %v\n", err)
		return 1
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	if opts.instant || !isTerminal(writer) {
		if err := mdreveal.Render(mdreveal.RenderRequest{
			Reader:  reader,
			Writer:  writer,
			Width:   width,
			Theme:   theme,
			Options: renderOpts,
		}); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		return 0
	}

	res, err := mdreveal.Reveal(ctx, mdreveal.RevealRequest{
		Reader:  reader,
		Writer:  writer,
		Width:   width,
		Theme:   theme,
		Options: renderOpts,
	})
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	logger.Debug("reveal finished", "stream", res.StreamID, "revealed", res.Revealed, "tokens", res.Total, "truncated", res.Truncated)
	if !res.Truncated {
		return 0
	}
	return saveTruncated(opts.truncatedPath, res.Markdown, stderr)
}

// applyFlags overrides config values with the flags given on the command line.
func applyFlags(flags *pflag.FlagSet, opts *options, cfg *config.Config) error {
	if flags.Changed("theme") {
		cfg.Theme = opts.themeName
	}
	if flags.Changed("width") {
		cfg.Width = opts.width
	}
	if flags.Changed("osc8") {
		cfg.OSC8 = opts.osc8
	}
	if flags.Changed("text-delay") {
		cfg.Timing.TextDelayMS = int(opts.textDelay / time.Millisecond)
	}
	if flags.Changed("code-line-delay") {
		cfg.Timing.CodeLineDelayMS = int(opts.codeLineDelay / time.Millisecond)
	}
	if flags.Changed("inline-code-delay") {
		cfg.Timing.InlineCodeDelayMS = int(opts.inlineCodeDelay / time.Millisecond)
	}
	if flags.Changed("join-paragraphs") {
		cfg.JoinParagraphs = opts.joinParagraphs
	}
	if flags.Changed("trim-fences") {
		cfg.TrimFences = opts.trimFences
	}
	if flags.Changed("keep-front-matter") {
		cfg.StripFrontMatter = !opts.keepFrontMatter
	}
	return cfg.Validate()
}

func newLogger(w io.Writer, cfg *config.Config, verbose bool) *slog.Logger {
	level, err := cfg.Level()
	if err != nil {
		level = slog.LevelWarn
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func saveTruncated(path, markdown string, stderr io.Writer) int {
	if path == "" {
		return 130
	}
	clean := normalizePath(path)
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		fmt.Fprintf(stderr, "save truncated: %v\n", err)
		return 1
	}
	if err := os.WriteFile(clean, []byte(markdown+"\n"), 0o644); err != nil {
		fmt.Fprintf(stderr, "save truncated: %v\n", err)
		return 1
	}
	return 130
}

func printThemes(w io.Writer) {
	names := mdreveal.AvailableThemes()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(w, name)
	}
}

func resolveWidth(width int, w io.Writer) int {
	if width > 0 {
		return width
	}
	return terminalWidth(w, defaultWidth)
}

func terminalWidth(w io.Writer, fallback int) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	if value := os.Getenv("COLUMNS"); value != "" {
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// colorProfile reports Ascii for anything that is not a color-capable terminal,
// honoring NO_COLOR.
func colorProfile(w io.Writer) termenv.Profile {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return termenv.Ascii
	}
	return termenv.NewOutput(f).EnvColorProfile()
}

func resolveOSC8(mode string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return mdreveal.DetectOSC8Support(), nil
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("expected auto|on|off")
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
