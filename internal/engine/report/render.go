package report

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/sawolford/onsub/internal/ui/output"
	"github.com/sawolford/onsub/internal/ui/style"
)

// Verbosity thresholds of the text report.
const (
	VerboseErrors  = 1
	VerboseOutput  = 2
	VerboseHeaders = 3
)

// ErrorsBanner separates the per-directory report from the failure summary.
const ErrorsBanner = "<<< ERRORS >>>"

// Renderer writes the text report.
type Renderer struct {
	out      *termenv.Output
	palette  style.Palette
	verbose  int
	suppress bool
}

// NewRenderer creates a Renderer writing to w with the given color profile.
func NewRenderer(w io.Writer, profile func() termenv.Profile, palette style.Palette, verbose int, suppress bool) *Renderer {
	if palette == nil {
		palette = style.DefaultPalette
	}
	return &Renderer{
		out:      output.NewWithProfile(w, profile),
		palette:  palette,
		verbose:  verbose,
		suppress: suppress,
	}
}

// Render prints every result, followed by the failure summary.
func (r *Renderer) Render(results []domain.Result) error {
	failures := 0
	for _, res := range results {
		if res.Failed() {
			failures++
		}
		if r.verbose >= VerboseHeaders {
			if err := r.header(res); err != nil {
				return err
			}
		}
		if r.verbose >= VerboseOutput && res.Output != "" {
			role := style.RoleGood
			if res.Failed() {
				role = style.RoleBad
			}
			if err := r.line(r.paint(res.Output, role)); err != nil {
				return err
			}
		}
	}

	if r.suppress || r.verbose < VerboseErrors || failures == 0 {
		return nil
	}

	if err := r.line(r.paint(ErrorsBanner, style.RolePartition)); err != nil {
		return err
	}
	for _, res := range results {
		if !res.Failed() {
			continue
		}
		code := r.paint(fmt.Sprintf("(%d)", res.ExitCode), style.RoleError)
		if _, err := fmt.Fprintf(r.out, "%s ", code); err != nil {
			return err
		}
		if err := r.header(res); err != nil {
			return err
		}
		if res.Output != "" {
			if err := r.line(r.paint(res.Output, style.RoleError)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Renderer) header(res domain.Result) error {
	return r.line(r.paint(res.Location, style.RolePath) + " " + r.paint(res.Command, style.RoleCommand))
}

func (r *Renderer) paint(s, role string) string {
	return r.out.String(s).Foreground(r.out.Color(string(r.palette[role]))).Bold().String()
}

func (r *Renderer) line(s string) error {
	_, err := fmt.Fprintln(r.out, s)
	return err
}
