// Package palette holds the ANSI color palettes behind the built-in themes.
package palette

import "fmt"

const (
	Reset     = "\x1b[0m"
	Bold      = "\x1b[1m"
	Faint     = "\x1b[2m"
	Italic    = "\x1b[3m"
	Underline = "\x1b[4m"
)

// Palette maps semantic roles to ANSI foreground sequences.
type Palette struct {
	Text           string
	H1             string
	H2             string
	H3             string
	H4             string
	H5             string
	H6             string
	Emphasis       string
	Strong         string
	EmphasisStrong string
	CodeInline     string
	CodeBlock      string
	CodeLabel      string
	Math           string
	Quote          string
	ListMarker     string
	LinkText       string
	LinkURL        string
	Rule           string
	// Chroma is the chroma style used to highlight code blocks.
	Chroma string
}

// FG returns a truecolor foreground sequence for a #rrggbb hex color.
func FG(hex string) string {
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return ""
	}
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", r, g, b)
}

var (
	PaletteDefault = Palette{
		Text:           "",
		H1:             Bold + FG("#ff79c6"),
		H2:             Bold + FG("#bd93f9"),
		H3:             Bold + FG("#8be9fd"),
		H4:             FG("#50fa7b"),
		H5:             FG("#f1fa8c"),
		H6:             FG("#ffb86c"),
		Emphasis:       "",
		Strong:         "",
		EmphasisStrong: "",
		CodeInline:     FG("#f1fa8c"),
		CodeBlock:      FG("#e6e6e6"),
		CodeLabel:      Faint,
		Math:           FG("#8be9fd"),
		Quote:          Faint + Italic,
		ListMarker:     FG("#ff79c6"),
		LinkText:       FG("#8be9fd"),
		LinkURL:        Faint,
		Rule:           Faint,
		Chroma:         "monokai",
	}

	PaletteDracula = Palette{
		Text:           FG("#f8f8f2"),
		H1:             Bold + FG("#ff79c6"),
		H2:             Bold + FG("#bd93f9"),
		H3:             FG("#8be9fd"),
		H4:             FG("#50fa7b"),
		H5:             FG("#ffb86c"),
		H6:             FG("#6272a4"),
		Emphasis:       FG("#f1fa8c"),
		Strong:         FG("#ffb86c"),
		EmphasisStrong: FG("#ff5555"),
		CodeInline:     FG("#50fa7b"),
		CodeBlock:      FG("#f8f8f2"),
		CodeLabel:      FG("#6272a4"),
		Math:           FG("#bd93f9"),
		Quote:          Italic + FG("#6272a4"),
		ListMarker:     FG("#ff79c6"),
		LinkText:       FG("#8be9fd"),
		LinkURL:        FG("#6272a4"),
		Rule:           FG("#44475a"),
		Chroma:         "dracula",
	}

	PaletteNord = Palette{
		Text:           FG("#d8dee9"),
		H1:             Bold + FG("#88c0d0"),
		H2:             Bold + FG("#81a1c1"),
		H3:             FG("#5e81ac"),
		H4:             FG("#8fbcbb"),
		H5:             FG("#a3be8c"),
		H6:             FG("#b48ead"),
		Emphasis:       FG("#ebcb8b"),
		Strong:         FG("#eceff4"),
		EmphasisStrong: FG("#d08770"),
		CodeInline:     FG("#a3be8c"),
		CodeBlock:      FG("#e5e9f0"),
		CodeLabel:      FG("#4c566a"),
		Math:           FG("#b48ead"),
		Quote:          Italic + FG("#4c566a"),
		ListMarker:     FG("#88c0d0"),
		LinkText:       FG("#8fbcbb"),
		LinkURL:        FG("#4c566a"),
		Rule:           FG("#3b4252"),
		Chroma:         "nord",
	}

	PaletteGruvbox = Palette{
		Text:           FG("#ebdbb2"),
		H1:             Bold + FG("#fb4934"),
		H2:             Bold + FG("#fabd2f"),
		H3:             FG("#b8bb26"),
		H4:             FG("#8ec07c"),
		H5:             FG("#83a598"),
		H6:             FG("#d3869b"),
		Emphasis:       FG("#fe8019"),
		Strong:         FG("#fabd2f"),
		EmphasisStrong: FG("#fb4934"),
		CodeInline:     FG("#b8bb26"),
		CodeBlock:      FG("#ebdbb2"),
		CodeLabel:      FG("#928374"),
		Math:           FG("#83a598"),
		Quote:          Italic + FG("#928374"),
		ListMarker:     FG("#fe8019"),
		LinkText:       FG("#83a598"),
		LinkURL:        FG("#928374"),
		Rule:           FG("#504945"),
		Chroma:         "gruvbox",
	}

	PaletteSolarizedDark = Palette{
		Text:           FG("#839496"),
		H1:             Bold + FG("#cb4b16"),
		H2:             Bold + FG("#b58900"),
		H3:             FG("#859900"),
		H4:             FG("#2aa198"),
		H5:             FG("#268bd2"),
		H6:             FG("#6c71c4"),
		Emphasis:       FG("#93a1a1"),
		Strong:         FG("#eee8d5"),
		EmphasisStrong: FG("#d33682"),
		CodeInline:     FG("#2aa198"),
		CodeBlock:      FG("#93a1a1"),
		CodeLabel:      FG("#586e75"),
		Math:           FG("#6c71c4"),
		Quote:          Italic + FG("#586e75"),
		ListMarker:     FG("#b58900"),
		LinkText:       FG("#268bd2"),
		LinkURL:        FG("#586e75"),
		Rule:           FG("#073642"),
		Chroma:         "solarized-dark",
	}

	PaletteGithubLight = Palette{
		Text:           FG("#24292f"),
		H1:             Bold + FG("#0550ae"),
		H2:             Bold + FG("#0550ae"),
		H3:             FG("#8250df"),
		H4:             FG("#116329"),
		H5:             FG("#953800"),
		H6:             FG("#6e7781"),
		Emphasis:       FG("#24292f"),
		Strong:         FG("#24292f"),
		EmphasisStrong: FG("#cf222e"),
		CodeInline:     FG("#0a3069"),
		CodeBlock:      FG("#24292f"),
		CodeLabel:      FG("#6e7781"),
		Math:           FG("#8250df"),
		Quote:          Italic + FG("#57606a"),
		ListMarker:     FG("#cf222e"),
		LinkText:       FG("#0969da"),
		LinkURL:        FG("#6e7781"),
		Rule:           FG("#d0d7de"),
		Chroma:         "github",
	}

	PaletteTokyoNight = Palette{
		Text:           FG("#c0caf5"),
		H1:             Bold + FG("#f7768e"),
		H2:             Bold + FG("#bb9af7"),
		H3:             FG("#7aa2f7"),
		H4:             FG("#7dcfff"),
		H5:             FG("#9ece6a"),
		H6:             FG("#e0af68"),
		Emphasis:       FG("#e0af68"),
		Strong:         FG("#ff9e64"),
		EmphasisStrong: FG("#f7768e"),
		CodeInline:     FG("#9ece6a"),
		CodeBlock:      FG("#a9b1d6"),
		CodeLabel:      FG("#565f89"),
		Math:           FG("#bb9af7"),
		Quote:          Italic + FG("#565f89"),
		ListMarker:     FG("#7aa2f7"),
		LinkText:       FG("#7dcfff"),
		LinkURL:        FG("#565f89"),
		Rule:           FG("#3b4261"),
		Chroma:         "tokyonight-night",
	}
)
