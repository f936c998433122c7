package command

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/wazuh-cli-go/internal/cli/config"
	"github.com/yndnr/wazuh-cli-go/internal/cli/output"
	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Aliases: []string{"cfg"},
		Usage:   "Manage the CLI configuration",
		Action:  groupAction,
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:      "get",
				Usage:     "Print one configuration value",
				ArgsUsage: "KEY",
				Action:    configGet,
			},
			{
				Name:      "set",
				Usage:     "Change one value in the configuration file",
				ArgsUsage: "KEY VALUE",
				Action:    configSet,
			},
			{
				Name:   "keys",
				Usage:  "List configuration keys",
				Action: configKeys,
			},
			{
				Name:  "init",
				Usage: "Write a default configuration file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing file",
					},
				},
				Action: configInit,
			},
			{
				Name:   "edit",
				Usage:  "Open the configuration file in $EDITOR",
				Action: configEdit,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file path",
				Action: configPath,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	rt := runtimeFrom(c)
	if rt.ConfigErr != nil {
		return rt.ConfigErr
	}

	masked := rt.Config.Masked()
	table := &output.Table{Headers: []string{"KEY", "VALUE"}}
	for _, key := range config.Keys() {
		v, err := masked.Value(key)
		if err != nil {
			return err
		}
		if v == "" {
			v = "-"
		}
		table.AddRow(key, v)
	}
	if err := rt.Printer.Print(maps.Unflatten(masked.Flatten(), "."), table); err != nil {
		return err
	}
	rt.Printer.Infof("\nFile: %s", rt.ConfigPath)
	return nil
}

func configGet(c *cli.Context) error {
	if err := requireArgs(c, 1, "KEY"); err != nil {
		return err
	}
	rt := runtimeFrom(c)
	if rt.ConfigErr != nil {
		return rt.ConfigErr
	}

	key := c.Args().First()
	v, err := rt.Config.Masked().Value(key)
	if err != nil {
		return err
	}
	if rt.Printer.Format() == output.FormatTable {
		_, err := fmt.Fprintln(rt.Printer.Out(), v)
		return err
	}
	return rt.Printer.Print(map[string]string{key: v}, nil)
}

func configSet(c *cli.Context) error {
	if err := requireArgs(c, 2, "KEY VALUE"); err != nil {
		return err
	}
	rt := runtimeFrom(c)
	key, value := c.Args().Get(0), c.Args().Get(1)

	if _, err := config.SetValue(rt.ConfigPath, key, value); err != nil {
		return err
	}

	shown := value
	if config.IsSecretKey(key) {
		shown = config.MaskSecret(value)
	}
	rt.Printer.Successf("%s = %s (%s)", key, shown, rt.ConfigPath)
	return nil
}

func configKeys(c *cli.Context) error {
	rt := runtimeFrom(c)
	keys := config.Keys()
	help := make(map[string]string, len(keys))
	table := &output.Table{Headers: []string{"KEY", "DESCRIPTION"}}
	for _, key := range keys {
		help[key] = config.KeyHelp(key)
		table.AddRow(key, help[key])
	}
	return rt.Printer.Print(help, table)
}

func configInit(c *cli.Context) error {
	rt := runtimeFrom(c)
	if err := config.Init(rt.ConfigPath, c.Bool("force")); err != nil {
		if errors.Is(err, config.ErrExists) {
			return domain.Validationf("%v (use --force to overwrite)", err)
		}
		return err
	}
	rt.Printer.Successf("Wrote %s", rt.ConfigPath)
	return nil
}

func configEdit(c *cli.Context) error {
	rt := runtimeFrom(c)
	path := rt.ConfigPath

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := config.Init(path, false); err != nil {
			return err
		}
	}

	editor := editorCommand()
	args := append(strings.Fields(editor), path)
	cmd := exec.CommandContext(c.Context, args[0], args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = rt.Printer.Out()
	cmd.Stderr = rt.Printer.ErrOut()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run editor %q: %w", editor, err)
	}

	cfg, err := config.LoadFile(path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		rt.Printer.Warnf("%s is not valid: %v", path, err)
		return nil
	}
	rt.Printer.Successf("Saved %s", path)
	return nil
}

func configPath(c *cli.Context) error {
	_, err := fmt.Fprintln(runtimeFrom(c).Printer.Out(), runtimeFrom(c).ConfigPath)
	return err
}

// editorCommand returns $VISUAL, then $EDITOR, then vi.
func editorCommand() string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if e := strings.TrimSpace(os.Getenv(env)); e != "" {
			return e
		}
	}
	return "vi"
}
