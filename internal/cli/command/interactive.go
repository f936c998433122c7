package command

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/wazuh-cli-go/internal/cli/config"
	"github.com/yndnr/wazuh-cli-go/internal/cli/output"
	"github.com/yndnr/wazuh-cli-go/internal/cli/repl"
	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
	"github.com/yndnr/wazuh-cli-go/internal/infra/buildinfo"
	"github.com/yndnr/wazuh-cli-go/internal/infra/confloader"
	"github.com/yndnr/wazuh-cli-go/internal/infra/shutdown"
	"github.com/yndnr/wazuh-cli-go/internal/telemetry/logger"
)

// InteractiveCommand returns the interactive shell command.
func InteractiveCommand() *cli.Command {
	return &cli.Command{
		Name:    "interactive",
		Aliases: []string{"i", "shell"},
		Usage:   "Start the interactive shell",
		Action:  runInteractive,
	}
}

// runInteractive runs the shell. Every line is executed by a fresh
// application sharing this Runtime, so the whole shell uses one transport
// and one session.
func runInteractive(c *cli.Context) error {
	rt := runtimeFrom(c)
	if rt.Interactive() {
		return domain.Validationf("already in interactive mode")
	}
	svc, err := rt.Services()
	if err != nil {
		return err
	}

	history := repl.NewHistory(config.DefaultHistoryPath(), repl.DefaultHistorySize)
	if err := history.Load(); err != nil {
		rt.Log.Debug("history not loaded", "error", err)
	}
	rt.Shutdown.OnShutdown(func(context.Context) error {
		return history.Save()
	})

	stopWatch := watchConfig(rt)
	defer stopWatch()

	if pair := svc.Transport.ClientKeyPair(); pair != nil {
		watchCtx, stopPair := context.WithCancel(c.Context)
		defer stopPair()
		go func() {
			if err := pair.Watch(watchCtx); err != nil {
				rt.Log.Debug("client certificate watch unavailable", "error", err)
			}
		}()
	}

	interrupts, stopInterrupts := shutdown.Interrupts()
	defer stopInterrupts()

	exec := repl.ExecutorFunc(func(ctx context.Context, args []string) error {
		app := App()
		app.Reader = c.App.Reader
		app.Writer = c.App.Writer
		app.ErrWriter = c.App.ErrWriter
		app.Metadata = map[string]any{runtimeKey: rt}
		return app.RunContext(ctx, append([]string{c.App.Name}, args...))
	})

	shell := repl.New(repl.Config{
		Banner: fmt.Sprintf("wazuh-cli %s, manager %s as %s\nType 'help' for commands, 'exit' to quit.",
			buildinfo.Version, svc.Transport.BaseURL(), rt.Config.Auth.Username),
		Input:      c.App.Reader,
		Output:     c.App.Writer,
		Executor:   exec,
		Completer:  repl.NewCompleter(commandPaths(commands())...),
		History:    history,
		Interrupts: interrupts,
		Builtins: map[string]repl.Builtin{
			"session": {Usage: "show the API session", Run: func(context.Context, []string) error {
				return showSession(rt, svc)
			}},
			"stats": {Usage: "show client metrics", Run: func(context.Context, []string) error {
				return showStats(rt)
			}},
		},
		OnError: rt.Printer.Error,
	})

	rt.setInteractive(true, shell.ReadLine)
	defer rt.setInteractive(false, nil)

	ctx := logger.WithLogger(c.Context, rt.Log)
	return shell.Run(ctx)
}

// commandPaths lists every command path, aliases included, for completion.
func commandPaths(cmds []*cli.Command) []string {
	var paths []string
	for _, cmd := range cmds {
		for _, name := range cmd.Names() {
			paths = append(paths, name)
			for _, sub := range cmd.Subcommands {
				for _, subName := range sub.Names() {
					paths = append(paths, name+" "+subName)
				}
			}
		}
	}
	return paths
}

// watchConfig reloads the output settings when the configuration file
// changes. Other settings apply to the next process.
func watchConfig(rt *Runtime) func() {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(logger.Slog(rt.Log)))
	if err != nil {
		rt.Log.Debug("config watcher unavailable", "error", err)
		return func() {}
	}
	if err := w.Watch(rt.ConfigPath); err != nil {
		w.Stop()
		return func() {}
	}

	w.OnChange(func(path string) {
		cfg, err := config.Load(path, rt.overrides)
		if err != nil {
			rt.Printer.Warnf("configuration not reloaded: %v", err)
			return
		}
		format, err := output.ParseFormat(cfg.Output.Format)
		if err != nil {
			return
		}
		rt.Printer.Configure(format, cfg.Output.Color)
		rt.Log.Info("output settings reloaded", "file", path, "format", format)
	})
	w.StartAsync()

	return func() { w.Stop() }
}

func showSession(rt *Runtime, svc *Services) error {
	info := svc.Session.Info()

	expires := "-"
	if !info.ExpiresAt.IsZero() {
		expires = fmt.Sprintf("%s (in %s)", output.FormatTime(info.ExpiresAt),
			time.Until(info.ExpiresAt).Truncate(time.Second))
	}
	issued := "-"
	if !info.IssuedAt.IsZero() {
		issued = output.FormatTime(info.IssuedAt)
	}

	data := map[string]string{
		"manager": svc.Transport.BaseURL(),
		"user":    info.Username,
		"state":   info.State.String(),
		"issued":  issued,
		"expires": expires,
	}
	table := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	for _, k := range []string{"manager", "user", "state", "issued", "expires"} {
		table.AddRow(k, data[k])
	}
	return rt.Printer.Print(data, table)
}

func showStats(rt *Runtime) error {
	samples, err := rt.Metrics.Snapshot()
	if err != nil {
		return err
	}
	table := &output.Table{Headers: []string{"METRIC", "LABELS", "VALUE"}}
	for _, s := range samples {
		labels := s.Labels
		if labels == "" {
			labels = "-"
		}
		table.AddRow(s.Name, labels, strconv.FormatFloat(s.Value, 'f', -1, 64))
	}
	return rt.Printer.Print(samples, table)
}
