package mdreveal

import (
	"container/list"
	"errors"
	"strings"
	"sync"
	"unicode"
)

// ErrUnbalancedMath is returned by FormatMath when braces do not pair up.
var ErrUnbalancedMath = errors.New("unbalanced math braces")

var mathSymbols = map[string]string{
	"alpha": "α", "beta": "β", "gamma": "γ", "delta": "δ", "epsilon": "ε", "varepsilon": "ε",
	"zeta": "ζ", "eta": "η", "theta": "θ", "vartheta": "ϑ", "iota": "ι", "kappa": "κ",
	"lambda": "λ", "mu": "μ", "nu": "ν", "xi": "ξ", "pi": "π", "rho": "ρ", "sigma": "σ",
	"tau": "τ", "upsilon": "υ", "phi": "φ", "varphi": "φ", "chi": "χ", "psi": "ψ", "omega": "ω",
	"Gamma": "Γ", "Delta": "Δ", "Theta": "Θ", "Lambda": "Λ", "Xi": "Ξ", "Pi": "Π",
	"Sigma": "Σ", "Phi": "Φ", "Psi": "Ψ", "Omega": "Ω",
	"sum": "∑", "prod": "∏", "int": "∫", "oint": "∮", "partial": "∂", "nabla": "∇",
	"infty": "∞", "pm": "±", "mp": "∓", "times": "×", "div": "÷", "cdot": "·", "ast": "∗",
	"leq": "≤", "le": "≤", "geq": "≥", "ge": "≥", "neq": "≠", "ne": "≠", "approx": "≈",
	"equiv": "≡", "sim": "∼", "simeq": "≃", "propto": "∝", "ll": "≪", "gg": "≫",
	"in": "∈", "notin": "∉", "subset": "⊂", "subseteq": "⊆", "supset": "⊃", "supseteq": "⊇",
	"cup": "∪", "cap": "∩", "emptyset": "∅", "varnothing": "∅", "forall": "∀", "exists": "∃",
	"neg": "¬", "land": "∧", "wedge": "∧", "lor": "∨", "vee": "∨", "oplus": "⊕", "otimes": "⊗",
	"to": "→", "rightarrow": "→", "leftarrow": "←", "leftrightarrow": "↔", "mapsto": "↦",
	"Rightarrow": "⇒", "Leftarrow": "⇐", "Leftrightarrow": "⇔", "implies": "⟹", "iff": "⟺",
	"uparrow": "↑", "downarrow": "↓",
	"ldots": "…", "cdots": "⋯", "dots": "…", "vdots": "⋮", "ddots": "⋱",
	"langle": "⟨", "rangle": "⟩", "lfloor": "⌊", "rfloor": "⌋", "lceil": "⌈", "rceil": "⌉",
	"hbar": "ℏ", "ell": "ℓ", "Re": "ℜ", "Im": "ℑ", "aleph": "ℵ", "degree": "°", "circ": "∘",
	"angle": "∠", "perp": "⊥", "parallel": "∥", "mid": "∣", "prime": "′",
	"sin": "sin", "cos": "cos", "tan": "tan", "log": "log", "ln": "ln", "exp": "exp",
	"lim": "lim", "max": "max", "min": "min", "det": "det",
	"quad": "  ", "qquad": "    ", ",": " ", ";": " ", ":": " ", "!": "", " ": " ",
	"{": "{", "}": "}", "\\": "\n", "%": "%", "$": "$", "&": "&", "#": "#", "_": "_",
}

var superscripts = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴', '5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
	'+': '⁺', '-': '⁻', '=': '⁼', '(': '⁽', ')': '⁾', 'n': 'ⁿ', 'i': 'ⁱ', 'a': 'ᵃ', 'b': 'ᵇ',
	'c': 'ᶜ', 'd': 'ᵈ', 'e': 'ᵉ', 'k': 'ᵏ', 'm': 'ᵐ', 'o': 'ᵒ', 'p': 'ᵖ', 't': 'ᵗ', 'x': 'ˣ',
	'y': 'ʸ', 'T': 'ᵀ',
}

var subscripts = map[rune]rune{
	'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄', '5': '₅', '6': '₆', '7': '₇', '8': '₈', '9': '₉',
	'+': '₊', '-': '₋', '=': '₌', '(': '₍', ')': '₎', 'a': 'ₐ', 'e': 'ₑ', 'h': 'ₕ', 'i': 'ᵢ',
	'j': 'ⱼ', 'k': 'ₖ', 'l': 'ₗ', 'm': 'ₘ', 'n': 'ₙ', 'o': 'ₒ', 'p': 'ₚ', 'r': 'ᵣ', 's': 'ₛ',
	't': 'ₜ', 'u': 'ᵤ', 'v': 'ᵥ', 'x': 'ₓ',
}

// passthroughCommands render their argument without decoration.
var passthroughCommands = map[string]bool{
	"text": true, "mathrm": true, "mathbf": true, "mathit": true, "mathsf": true,
	"mathtt": true, "operatorname": true, "boldsymbol": true, "textbf": true, "textit": true,
}

// FormatMath converts a LaTeX formula to a plain Unicode approximation suitable for a
// terminal. Unknown commands are kept verbatim.
func FormatMath(formula string) (string, error) {
	if err := checkBraces(formula); err != nil {
		return "", err
	}
	p := mathParser{src: []rune(formula)}
	return strings.TrimSpace(p.sequence(false)), nil
}

func checkBraces(s string) error {
	depth := 0
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '{':
			depth++
		case r == '}':
			depth--
			if depth < 0 {
				return ErrUnbalancedMath
			}
		}
	}
	if depth != 0 {
		return ErrUnbalancedMath
	}
	return nil
}

type mathParser struct {
	src []rune
	pos int
}

// sequence renders until end of input or, when inGroup is set, the closing brace.
func (p *mathParser) sequence(inGroup bool) string {
	var b strings.Builder
	for p.pos < len(p.src) {
		r := p.src[p.pos]
		switch r {
		case '}':
			if inGroup {
				p.pos++
				return b.String()
			}
			p.pos++
		case '{':
			p.pos++
			b.WriteString(p.sequence(true))
		case '\\':
			p.pos++
			b.WriteString(p.command())
		case '^':
			p.pos++
			b.WriteString(script(p.argument(), superscripts, "^"))
		case '_':
			p.pos++
			b.WriteString(script(p.argument(), subscripts, "_"))
		case '~':
			p.pos++
			b.WriteByte(' ')
		default:
			p.pos++
			b.WriteRune(r)
		}
	}
	return b.String()
}

// argument renders the next group or single atom.
func (p *mathParser) argument() string {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return ""
	}
	switch r := p.src[p.pos]; r {
	case '{':
		p.pos++
		return p.sequence(true)
	case '\\':
		p.pos++
		return p.command()
	default:
		p.pos++
		return string(r)
	}
}

func (p *mathParser) command() string {
	if p.pos >= len(p.src) {
		return "\\"
	}
	start := p.pos
	if !unicode.IsLetter(p.src[p.pos]) {
		p.pos++
		name := string(p.src[start:p.pos])
		if sym, ok := mathSymbols[name]; ok {
			return sym
		}
		return name
	}
	for p.pos < len(p.src) && unicode.IsLetter(p.src[p.pos]) {
		p.pos++
	}
	name := string(p.src[start:p.pos])
	switch {
	case name == "frac" || name == "dfrac" || name == "tfrac":
		num, den := p.argument(), p.argument()
		return wrapOperand(num) + "/" + wrapOperand(den)
	case name == "sqrt":
		return "√" + wrapOperand(p.argument())
	case name == "left" || name == "right" || name == "displaystyle" || name == "limits":
		return ""
	case name == "begin" || name == "end":
		p.argument()
		return ""
	case passthroughCommands[name]:
		return p.argument()
	}
	if sym, ok := mathSymbols[name]; ok {
		return sym
	}
	return "\\" + name
}

func wrapOperand(s string) string {
	if len([]rune(s)) <= 1 || !strings.ContainsAny(s, "+-*/ ×·=") {
		return s
	}
	return "(" + s + ")"
}

// script maps s through table, or falls back to marker plus s when any rune is missing.
func script(s string, table map[rune]rune, marker string) string {
	if s == "" {
		return marker
	}
	var b strings.Builder
	for _, r := range s {
		mapped, ok := table[r]
		if !ok {
			if len([]rune(s)) == 1 {
				return marker + s
			}
			return marker + "(" + s + ")"
		}
		b.WriteRune(mapped)
	}
	return b.String()
}

// MathCache is a bounded LRU cache of formatted formulas keyed by the LaTeX source.
// It is safe for concurrent use and is meant to be shared between renderers.
type MathCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*list.Element
	lru     *list.List
}

type mathEntry struct {
	key   string
	value string
}

// DefaultMathCacheSize is used when NewMathCache is given a non-positive size.
const DefaultMathCacheSize = 256

// NewMathCache returns a cache holding at most maxSize formulas.
func NewMathCache(maxSize int) *MathCache {
	if maxSize <= 0 {
		maxSize = DefaultMathCacheSize
	}
	return &MathCache{
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Get returns the cached rendering of formula.
func (c *MathCache) Get(formula string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[formula]
	if !ok {
		return "", false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*mathEntry).value, true
}

// Put stores a rendering, evicting the least recently used entry at capacity.
func (c *MathCache) Put(formula, rendered string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[formula]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*mathEntry).value = rendered
		return
	}
	if c.lru.Len() >= c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			delete(c.entries, oldest.Value.(*mathEntry).key)
			c.lru.Remove(oldest)
		}
	}
	c.entries[formula] = c.lru.PushFront(&mathEntry{key: formula, value: rendered})
}

// Len returns the number of cached formulas.
func (c *MathCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear empties the cache.
func (c *MathCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
}

// Format returns the cached rendering of formula, formatting and storing it on a miss.
// Errors are not cached.
func (c *MathCache) Format(formula string) (string, error) {
	if c == nil {
		return FormatMath(formula)
	}
	if out, ok := c.Get(formula); ok {
		return out, nil
	}
	out, err := FormatMath(formula)
	if err != nil {
		return "", err
	}
	c.Put(formula, out)
	return out, nil
}
