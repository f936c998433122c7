package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// ANSI colors used by the table renderers.
const (
	colorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorGray   = "\033[90m"
	ColorBold   = "\033[1m"
)

// Printer writes results to stdout and diagnostics to stderr.
type Printer struct {
	out    io.Writer
	errOut io.Writer

	mu     sync.RWMutex
	format Format
	color  bool

	outTTY bool
	errTTY bool
}

// NewPrinter creates a printer. Color is used only when requested, stdout
// is a terminal and NO_COLOR is unset.
func NewPrinter(out, errOut io.Writer, format Format, color bool) *Printer {
	p := &Printer{
		out:    out,
		errOut: errOut,
		outTTY: IsTerminal(out),
		errTTY: IsTerminal(errOut),
	}
	p.Configure(format, color)
	return p
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Configure changes the format and color preference.
func (p *Printer) Configure(format Format, color bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.format = format
	_, noColor := os.LookupEnv("NO_COLOR")
	p.color = color && p.outTTY && !noColor
}

// Format returns the current output format.
func (p *Printer) Format() Format {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.format
}

// Out returns the result writer.
func (p *Printer) Out() io.Writer {
	return p.out
}

// ErrOut returns the diagnostics writer.
func (p *Printer) ErrOut() io.Writer {
	return p.errOut
}

// Interactive reports whether feedback such as spinners can be shown.
func (p *Printer) Interactive() bool {
	return p.errTTY && p.Format() == FormatTable
}

// Print renders data. In table mode table is used when non-nil; JSON and
// YAML always encode data.
func (p *Printer) Print(data any, table *Table) error {
	format := p.Format()
	if format == FormatTable && table != nil {
		return table.Render(p.out)
	}
	return NewFormatter(format).Format(p.out, data)
}

// Infof prints a human-readable status line. It is suppressed for JSON
// and YAML output so scripts only see data.
func (p *Printer) Infof(format string, args ...any) {
	if p.Format() != FormatTable {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Successf prints a status line marked as a success.
func (p *Printer) Successf(format string, args ...any) {
	p.Infof(p.Paint(ColorGreen, "✓")+" "+format, args...)
}

// Warnf prints a warning to stderr.
func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintf(p.errOut, p.paintErr(ColorYellow, "Warning:")+" "+format+"\n", args...)
}

// Error prints err to stderr.
func (p *Printer) Error(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(p.errOut, "%s %s\n", p.paintErr(ColorRed, "Error:"), ErrorMessage(err))
	if hint := ErrorHint(err); hint != "" {
		fmt.Fprintf(p.errOut, "%s\n", p.paintErr(ColorGray, "Hint: "+hint))
	}
}

// Spinner returns a started spinner on stderr, or a disabled one when
// stderr is not a terminal or the output is machine-readable.
func (p *Printer) Spinner(message string) *Spinner {
	return NewSpinner(p.errOut, message, p.Interactive()).Start()
}

// Progress returns a progress bar on stderr.
func (p *Printer) Progress(title string, total int) *ProgressBar {
	return NewProgressBar(p.errOut, title, total, p.Interactive())
}

// Paint wraps s in color when color output is enabled.
func (p *Printer) Paint(color, s string) string {
	p.mu.RLock()
	enabled := p.color
	p.mu.RUnlock()
	if !enabled {
		return s
	}
	return color + s + colorReset
}

func (p *Printer) paintErr(color, s string) string {
	if !p.errTTY {
		return s
	}
	return p.Paint(color, s)
}
