// Package detector decides whether terminal output should be colored.
package detector

import (
	"os"

	"github.com/sawolford/onsub/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/term"
)

// Color modes accepted by --color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// StdoutIsTerminal reports whether stdout is attached to a terminal.
func StdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ResolveColor applies the color mode to the environment.
// noColor (the --nocolor flag) always wins. In auto mode output is colored
// when isTerminal reports a terminal and NO_COLOR is unset.
func ResolveColor(mode string, noColor bool, isTerminal func() bool) (bool, error) {
	if noColor {
		return false, nil
	}

	switch mode {
	case ColorAlways:
		return true, nil
	case ColorNever:
		return false, nil
	case ColorAuto, "":
		if os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		return isTerminal(), nil
	default:
		return false, zerr.With(zerr.Wrap(domain.ErrInvalidFlag, "unknown color mode"), "color", mode)
	}
}
