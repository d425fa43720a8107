// Package theme derives CSS custom properties from the church colors.
package theme

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// DarkenAmount is subtracted from each RGB channel for the dark variant.
const DarkenAmount = 30

// CSS custom property names.
const (
	VarPrimary       = "--primary-color"
	VarPrimaryDark   = "--primary-color-dark"
	VarSecondary     = "--secondary-color"
	VarSecondaryDark = "--secondary-color-dark"
)

// Darken returns hex with every channel reduced by amount and clamped to
// [0,255], formatted as lowercase "#rrggbb". Three-digit shorthand is
// accepted. ok is false when hex is not a valid color.
func Darken(hex string, amount int) (string, bool) {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("#%02x%02x%02x", clamp(r-amount), clamp(g-amount), clamp(b-amount)), true
}

func parseHex(hex string) (r, g, b int, ok bool) {
	s, found := strings.CutPrefix(strings.TrimSpace(hex), "#")
	if !found {
		return 0, 0, 0, false
	}
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// Vars computes the custom properties for a primary/secondary pair. An
// invalid color still sets its base property verbatim; the dark property
// is left out.
func Vars(primary, secondary string) map[string]string {
	vars := make(map[string]string, 4)
	setColor(vars, VarPrimary, VarPrimaryDark, primary)
	setColor(vars, VarSecondary, VarSecondaryDark, secondary)
	return vars
}

func setColor(vars map[string]string, base, dark, color string) {
	vars[base] = color
	if d, ok := Darken(color, DarkenAmount); ok {
		vars[dark] = d
	}
}

// Palette is the global presentation state shared by every request.
type Palette struct {
	mu   sync.RWMutex
	vars map[string]string
}

func NewPalette() *Palette {
	return &Palette{vars: map[string]string{}}
}

// Apply replaces the palette with the properties derived from the colors.
func (p *Palette) Apply(primary, secondary string) {
	vars := Vars(primary, secondary)
	p.mu.Lock()
	p.vars = vars
	p.mu.Unlock()
}

// Vars returns a copy of the current properties.
func (p *Palette) Vars() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]string, len(p.vars))
	for k, v := range p.vars {
		out[k] = v
	}
	return out
}

// CSS renders the palette as a :root rule with properties in name order.
func (p *Palette) CSS() string {
	vars := p.Vars()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(":root {\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "  %s: %s;\n", name, sanitize(vars[name]))
	}
	sb.WriteString("}\n")
	return sb.String()
}

// sanitize keeps stored values from closing the declaration or rule.
func sanitize(v string) string {
	return strings.NewReplacer(";", "", "{", "", "}", "", "<", "", "\n", " ").Replace(v)
}
