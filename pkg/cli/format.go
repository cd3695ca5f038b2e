// Package cli provides output helpers for the ixtopo command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/newtron-network/ixtopo/pkg/alert"
)

// colorEnabled is false when NO_COLOR is set (per no-color.org) or stdout
// is not a terminal.
var colorEnabled = os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stdout.Fd()))

// SetColor forces color output on or off
func SetColor(on bool) {
	colorEnabled = on
}

func wrap(code, s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// Green wraps s in ANSI green
func Green(s string) string { return wrap("32", s) }

// Yellow wraps s in ANSI yellow
func Yellow(s string) string { return wrap("33", s) }

// Red wraps s in ANSI red
func Red(s string) string { return wrap("31", s) }

// Cyan wraps s in ANSI cyan
func Cyan(s string) string { return wrap("36", s) }

// Bold wraps s in ANSI bold
func Bold(s string) string { return wrap("1", s) }

// Dim wraps s in ANSI dim
func Dim(s string) string { return wrap("2", s) }

// DotPad pads name with dots to the given width.
// Example: DotPad("Hostname", 20) → "Hostname ..........."
func DotPad(name string, width int) string {
	if width <= 0 || len(name) >= width-1 {
		return name
	}
	return name + " " + strings.Repeat(".", width-len(name)-1)
}

// YesNo renders a flag for detail views
func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// OrDash returns s, or "-" when s is empty
func OrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// SeverityLabel renders an alert severity as a colored tag
func SeverityLabel(s alert.Severity) string {
	label := strings.ToUpper(string(s))
	switch s {
	case alert.Success:
		return Green(label)
	case alert.Info:
		return Cyan(label)
	case alert.Warning:
		return Yellow(label)
	case alert.Danger:
		return Red(label)
	}
	return label
}

// PrintAlerts writes one line per alert
func PrintAlerts(w io.Writer, alerts []alert.Alert) {
	for _, a := range alerts {
		fmt.Fprintf(w, "%-7s %s\n", SeverityLabel(a.Severity), a.Message)
	}
}

// Detail writes aligned "label ....... value" lines
type Detail struct {
	w     io.Writer
	width int
}

// NewDetail creates a detail writer padding labels to width
func NewDetail(w io.Writer, width int) *Detail {
	return &Detail{w: w, width: width}
}

// Field writes one line
func (d *Detail) Field(label string, value interface{}) {
	fmt.Fprintf(d.w, "%s %v\n", DotPad(label, d.width), value)
}

// Section writes a bold heading
func (d *Detail) Section(title string) {
	fmt.Fprintf(d.w, "\n%s\n", Bold(title))
}
