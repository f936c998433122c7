package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// DefaultPrompt is shown while waiting for input.
const DefaultPrompt = "wazuh> "

// MaxLineLength is the longest input line the shell accepts, in bytes.
const MaxLineLength = 1 << 20

// ErrLineTooLong reports an input line longer than MaxLineLength. The line
// is discarded and the shell keeps reading.
var ErrLineTooLong = errors.New("input line too long")

// Executor runs one command line.
type Executor interface {
	Execute(ctx context.Context, args []string) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, args []string) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, args []string) error {
	return f(ctx, args)
}

// Builtin is a command handled by the shell itself.
type Builtin struct {
	Usage string
	Run   func(ctx context.Context, args []string) error
}

// Config configures a REPL.
type Config struct {
	Prompt    string
	Banner    string
	Input     io.Reader
	Output    io.Writer
	Executor  Executor
	Completer *Completer
	History   *History
	// Interrupts delivers Ctrl-C. While a command runs it cancels that
	// command only; while waiting for input it re-prompts.
	Interrupts <-chan os.Signal
	// Builtins adds shell commands next to help, clear, history and exit.
	Builtins map[string]Builtin
	// OnError renders a failed command. Defaults to printing it.
	OnError func(error)
}

// REPL is the Read-Eval-Print Loop.
type REPL struct {
	cfg      Config
	builtins map[string]Builtin
	lines    chan string
	lineErrs chan error
}

// New creates a REPL.
func New(cfg Config) *REPL {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.Input == nil {
		cfg.Input = os.Stdin
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Completer == nil {
		cfg.Completer = NewCompleter()
	}
	if cfg.History == nil {
		cfg.History = NewHistory("", 0)
	}
	if cfg.OnError == nil {
		out := cfg.Output
		cfg.OnError = func(err error) { fmt.Fprintf(out, "Error: %v\n", err) }
	}

	r := &REPL{cfg: cfg, builtins: make(map[string]Builtin)}
	for name, b := range cfg.Builtins {
		r.builtins[name] = b
	}
	r.builtins["help"] = Builtin{Usage: "show commands", Run: r.help}
	r.builtins["clear"] = Builtin{Usage: "clear the screen", Run: r.clear}
	r.builtins["history"] = Builtin{Usage: "show command history", Run: r.showHistory}
	return r
}

// History returns the shell history.
func (r *REPL) History() *History {
	return r.cfg.History
}

// Run reads and executes lines until exit, end of input or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	r.lines = make(chan string)
	r.lineErrs = make(chan error)
	lines := r.lines
	readErr := make(chan error, 1)
	go r.read(ctx, lines, r.lineErrs, readErr)

	if r.cfg.Banner != "" {
		fmt.Fprintln(r.cfg.Output, r.cfg.Banner)
	}

	for {
		fmt.Fprint(r.cfg.Output, r.cfg.Prompt)

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.cfg.Output)
			return nil
		case <-r.cfg.Interrupts:
			fmt.Fprintln(r.cfg.Output)
			continue
		case err := <-readErr:
			fmt.Fprintln(r.cfg.Output)
			return err
		case err := <-r.lineErrs:
			r.cfg.OnError(err)
			continue
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.cfg.Output)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		r.cfg.History.Add(line)

		if exit := r.dispatch(ctx, line); exit {
			return nil
		}
	}
}

// ReadLine prints prompt and returns the next input line. Commands use it
// to ask questions while the shell runs them.
func (r *REPL) ReadLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(r.cfg.Output, prompt)
	if r.lines == nil {
		return "", io.EOF
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-r.lineErrs:
		return "", err
	case l, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		return l, nil
	}
}

// read feeds lines until EOF. Oversized lines are reported on lineErrs, a
// read error on errc; EOF closes lines.
func (r *REPL) read(ctx context.Context, lines chan<- string, lineErrs, errc chan<- error) {
	br := bufio.NewReader(r.cfg.Input)
	for {
		line, err := readLine(br, MaxLineLength)
		switch {
		case errors.Is(err, ErrLineTooLong):
			select {
			case lineErrs <- err:
				continue
			case <-ctx.Done():
				return
			}
		case errors.Is(err, io.EOF):
			close(lines)
			return
		case err != nil:
			errc <- err
			return
		}
		select {
		case lines <- line:
		case <-ctx.Done():
			return
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// limit is consumed up to its newline and reported as ErrLineTooLong.
func readLine(br *bufio.Reader, limit int) (string, error) {
	var (
		buf     []byte
		read    int
		tooLong bool
	)
	for {
		frag, err := br.ReadSlice('\n')
		read += len(frag)
		if !tooLong {
			if len(buf)+len(frag) > limit {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, frag...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		if errors.Is(err, io.EOF) && read == 0 {
			return "", io.EOF
		}
		if tooLong {
			return "", fmt.Errorf("%w (limit %d bytes)", ErrLineTooLong, limit)
		}
		return strings.TrimRight(string(buf), "\r\n"), nil
	}
}

// dispatch executes one line and reports whether the shell should exit.
func (r *REPL) dispatch(ctx context.Context, line string) bool {
	args, err := SplitArgs(line)
	if err != nil {
		r.cfg.OnError(err)
		return false
	}

	name := args[0]
	switch name {
	case "exit", "quit", "q":
		return true
	}

	if b, ok := r.builtins[name]; ok {
		if err := r.run(ctx, func(ctx context.Context) error { return b.Run(ctx, args[1:]) }); err != nil {
			r.cfg.OnError(err)
		}
		return false
	}

	if !r.cfg.Completer.Known(name) {
		fmt.Fprintf(r.cfg.Output, "Unknown command: %s\n", name)
		if s := r.cfg.Completer.Suggest(name); len(s) > 0 {
			fmt.Fprintf(r.cfg.Output, "Did you mean: %s\n", strings.Join(s, ", "))
		} else {
			fmt.Fprintln(r.cfg.Output, "Type 'help' for available commands.")
		}
		return false
	}

	if err := r.run(ctx, func(ctx context.Context) error { return r.cfg.Executor.Execute(ctx, args) }); err != nil {
		r.cfg.OnError(err)
	}
	return false
}

// run executes fn under its own context. An interrupt cancels only that
// context; run still waits for fn so output never interleaves with the
// next prompt.
func (r *REPL) run(ctx context.Context, fn func(context.Context) error) error {
	cmdCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(cmdCtx) }()

	for {
		select {
		case err := <-done:
			return err
		case <-r.cfg.Interrupts:
			cancel()
		}
	}
}

func (r *REPL) help(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return r.cfg.Executor.Execute(ctx, append(args, "--help"))
	}

	out := r.cfg.Output
	fmt.Fprintln(out, "Commands:")
	for _, name := range r.cfg.Completer.Commands() {
		fmt.Fprintf(out, "  %s\n", name)
	}
	fmt.Fprintln(out, "\nShell:")
	names := make([]string, 0, len(r.builtins))
	for name := range r.builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-10s %s\n", name, r.builtins[name].Usage)
	}
	fmt.Fprintf(out, "  %-10s %s\n", "exit", "leave the shell (also quit, q, Ctrl-D)")
	fmt.Fprintln(out, "\nRun 'help <command>' for details.")
	return nil
}

func (r *REPL) clear(ctx context.Context, args []string) error {
	fmt.Fprint(r.cfg.Output, "\033[H\033[2J")
	return nil
}

func (r *REPL) showHistory(ctx context.Context, args []string) error {
	for i, entry := range r.cfg.History.Entries() {
		fmt.Fprintf(r.cfg.Output, "%5d  %s\n", i+1, entry)
	}
	return nil
}
