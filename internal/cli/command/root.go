package command

import (
	"context"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/wazuh-cli-go/internal/cli/config"
	"github.com/yndnr/wazuh-cli-go/internal/cli/output"
	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
	"github.com/yndnr/wazuh-cli-go/internal/infra/buildinfo"
	"github.com/yndnr/wazuh-cli-go/internal/infra/shutdown"
	"github.com/yndnr/wazuh-cli-go/internal/telemetry/logger"
)

// runtimeKey is the App.Metadata key holding the *Runtime.
const runtimeKey = "runtime"

// App creates the CLI application. With no command it starts the
// interactive shell.
func App() *cli.App {
	app := &cli.App{
		Name:                 "wazuh-cli",
		HelpName:             "wazuh-cli",
		Usage:                "Wazuh manager command-line client",
		Version:              buildinfo.String(),
		HideVersion:          true,
		Flags:                globalFlags(),
		Commands:             commands(),
		Before:               before,
		Action:               defaultAction,
		OnUsageError:         usageError,
		ExitErrHandler:       func(*cli.Context, error) {},
		EnableBashCompletion: true,
		Suggest:              true,
	}
	setUsageErrors(app.Commands)
	return app
}

// Run executes args (including the program name) and returns the process
// exit status. Shutdown hooks run before it returns.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := shutdown.WithSignals(ctx, syscall.SIGTERM)
	defer stop()

	app := App()
	app.Reader = stdin
	app.Writer = stdout
	app.ErrWriter = stderr

	err := app.RunContext(ctx, args)

	rt := RuntimeOf(app)
	if rt != nil {
		if serr := rt.Close(); serr != nil {
			rt.Log.Warn("shutdown hooks failed", "error", serr)
		}
	}
	if err != nil {
		if rt != nil {
			rt.Printer.Error(err)
		} else {
			output.NewPrinter(stdout, stderr, output.FormatTable, false).Error(err)
		}
	}
	return ExitCode(err)
}

func commands() []*cli.Command {
	return []*cli.Command{
		AgentCommand(),
		ControlCommand(),
		ConfigCommand(),
		InteractiveCommand(),
		VersionCommand(),
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (default ~/.wazuh-cli/config.yaml)",
			EnvVars: []string{"WAZUH_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Shorthand for --output json",
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "Manager API host",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "Manager API port",
		},
		&cli.StringFlag{
			Name:  "protocol",
			Usage: "Manager API protocol: http, https",
		},
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "API username",
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "API password (prompted for when missing on a terminal)",
			EnvVars: []string{"WAZUH_PASSWORD"},
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "Skip verification of the manager certificate",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:    "metrics-file",
			Usage:   "Write client metrics in textfile-collector format at exit",
			EnvVars: []string{"WAZUH_METRICS_FILE"},
		},
	}
}

// flagOverrides maps the global flags the user set to configuration keys.
func flagOverrides(c *cli.Context) map[string]any {
	m := make(map[string]any)
	if c.IsSet("host") {
		m["api.host"] = c.String("host")
	}
	if c.IsSet("port") {
		m["api.port"] = c.Int("port")
	}
	if c.IsSet("protocol") {
		m["api.protocol"] = c.String("protocol")
	}
	if c.IsSet("user") {
		m["auth.username"] = c.String("user")
	}
	if c.IsSet("password") {
		m["auth.password"] = c.String("password")
	}
	if c.Bool("insecure") {
		m["tls.verify"] = false
	}
	if c.IsSet("output") {
		m["output.format"] = strings.ToLower(c.String("output"))
	}
	if c.Bool("json") {
		m["output.format"] = config.FormatJSON
	}
	return m
}

// before builds the Runtime once. Re-runs from the interactive shell keep
// the existing one.
func before(c *cli.Context) error {
	if RuntimeOf(c.App) != nil {
		return nil
	}

	level := "warn"
	switch {
	case c.IsSet("log-level"):
		level = c.String("log-level")
		if !logger.ValidLevel(level) {
			return domain.Validationf("invalid log level %q: expected debug, info, warn or error", level)
		}
	case c.Bool("verbose"):
		level = "debug"
	}
	if c.IsSet("output") {
		if _, err := output.ParseFormat(c.String("output")); err != nil {
			return domain.Validationf("%v", err)
		}
	}
	log := logger.New(logger.Config{Level: level, Format: "text", Output: c.App.ErrWriter})
	logger.SetDefault(log)

	rt := newRuntime(runtimeOptions{
		configPath:  c.String("config"),
		overrides:   flagOverrides(c),
		metricsFile: c.String("metrics-file"),
		stdin:       c.App.Reader,
		stdout:      c.App.Writer,
		stderr:      c.App.ErrWriter,
		log:         log,
	})
	c.App.Metadata[runtimeKey] = rt

	if rt.ConfigErr != nil {
		rt.Log.Debug("configuration not loaded", "error", rt.ConfigErr)
	}
	return nil
}

// RuntimeOf returns the Runtime built for app, or nil before the first run.
func RuntimeOf(app *cli.App) *Runtime {
	if app.Metadata == nil {
		return nil
	}
	rt, _ := app.Metadata[runtimeKey].(*Runtime)
	return rt
}

// runtimeFrom returns the Runtime of the running application.
func runtimeFrom(c *cli.Context) *Runtime {
	return RuntimeOf(c.App)
}

// commandContext returns the context of one invocation, tagged with a ULID
// so its log lines can be correlated. Outside the interactive shell an
// interrupt cancels it; inside, the shell owns interrupts.
func commandContext(c *cli.Context) (context.Context, context.CancelFunc) {
	rt := runtimeFrom(c)
	ctx := logger.WithLogger(c.Context, rt.Log)
	ctx = logger.WithInvocationID(ctx, ulid.Make().String())
	if rt.Interactive() {
		return context.WithCancel(ctx)
	}
	return shutdown.WithSignals(ctx, os.Interrupt)
}

func defaultAction(c *cli.Context) error {
	if c.NArg() > 0 {
		return domain.Validationf("unknown command %q (see --help)", c.Args().First())
	}
	return runInteractive(c)
}

// groupAction runs for a command group invoked without a known subcommand.
func groupAction(c *cli.Context) error {
	if c.NArg() > 0 {
		return domain.Validationf("unknown command %q for %s (see %s --help)", c.Args().First(), c.Command.HelpName, c.Command.HelpName)
	}
	return cli.ShowSubcommandHelp(c)
}

func usageError(c *cli.Context, err error, _ bool) error {
	return domain.Validationf("%v (see --help)", err)
}

func setUsageErrors(cmds []*cli.Command) {
	for _, cmd := range cmds {
		cmd.OnUsageError = usageError
		setUsageErrors(cmd.Subcommands)
	}
}

// requireArgs checks the number of positional arguments.
func requireArgs(c *cli.Context, n int, usage string) error {
	if c.NArg() != n {
		return domain.Validationf("usage: %s %s", c.Command.HelpName, usage)
	}
	return nil
}
