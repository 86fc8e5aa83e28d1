// Package style provides shared UI styling primitives including brand colors
// and icons for consistent visual presentation across the CLI.
package style

import (
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Brand Colors.
var (
	Iris   = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	White  = lipgloss.Color("#FFFFFF")
	Ink    = lipgloss.Color("#0B0F19")
	Mist   = lipgloss.Color("#F6F7FB")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Tilde   = "~"
	Dot     = "●"
	Circle  = "○"
)

// Result palette roles.
const (
	RolePath      = "path"
	RoleCommand   = "command"
	RoleGood      = "good"
	RoleBad       = "bad"
	RoleError     = "error"
	RolePartition = "partition"
)

// DefaultPalette colors the result report with bright ANSI colors.
var DefaultPalette = Palette{
	RolePath:      lipgloss.Color("12"),
	RoleCommand:   lipgloss.Color("14"),
	RoleGood:      lipgloss.Color("10"),
	RoleBad:       lipgloss.Color("13"),
	RoleError:     lipgloss.Color("9"),
	RolePartition: lipgloss.Color("11"),
}

// Palette maps a report role to its color.
type Palette map[string]lipgloss.Color

var ansiNames = map[string]string{
	"black": "0", "red": "1", "green": "2", "yellow": "3",
	"blue": "4", "magenta": "5", "cyan": "6", "white": "7",
	"bright-black": "8", "bright-red": "9", "bright-green": "10", "bright-yellow": "11",
	"bright-blue": "12", "bright-magenta": "13", "bright-cyan": "14", "bright-white": "15",
}

// WithOverrides returns a copy of p with colors replaced by overrides. A
// value is an ANSI color name, an ANSI number or a #hex color. Unknown roles
// are reported as the second return value and ignored.
func (p Palette) WithOverrides(overrides map[string]string) (Palette, []string) {
	out := make(Palette, len(p))
	for role, c := range p {
		out[role] = c
	}

	var unknown []string
	for role, value := range overrides {
		if _, ok := p[role]; !ok {
			unknown = append(unknown, role)
			continue
		}
		if n, ok := ansiNames[strings.ToLower(value)]; ok {
			value = n
		}
		out[role] = lipgloss.Color(value)
	}
	slices.Sort(unknown)
	return out, unknown
}
