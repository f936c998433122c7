package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/wazuh-cli-go/internal/cli/output"
	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

// ControlCommand returns the manager control subcommand group.
func ControlCommand() *cli.Command {
	return &cli.Command{
		Name:    "control",
		Aliases: []string{"ctl", "c"},
		Usage:   "Inspect and control the manager",
		Action:  groupAction,
		Subcommands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "Show the state of the manager daemons",
				ArgsUsage: "[SERVICE]",
				Action:    controlStatus,
			},
			{
				Name:   "info",
				Usage:  "Show manager information",
				Action: controlInfo,
			},
			{
				Name:  "restart",
				Usage: "Restart the manager",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip confirmation",
					},
				},
				Action: controlRestart,
			},
		},
	}
}

func controlStatus(c *cli.Context) error {
	if c.NArg() > 1 {
		return domain.Validationf("usage: %s [SERVICE]", c.Command.HelpName)
	}
	rt := runtimeFrom(c)
	svc, err := rt.Services()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	filter := c.Args().First()
	spin := rt.Printer.Spinner("Fetching manager status...")
	services, err := svc.Manager.Status(ctx, filter)
	spin.Stop()
	if err != nil {
		return err
	}
	if len(services) == 0 {
		return domain.Validationf("no service matches %q", filter)
	}
	return rt.Printer.Print(services, rt.Printer.ServicesTable(services))
}

func controlInfo(c *cli.Context) error {
	rt := runtimeFrom(c)
	svc, err := rt.Services()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	spin := rt.Printer.Spinner("Fetching manager information...")
	info, err := svc.Manager.Info(ctx)
	spin.Stop()
	if err != nil {
		return err
	}
	return rt.Printer.Print(info, rt.Printer.ManagerInfoTable(info))
}

func controlRestart(c *cli.Context) error {
	rt := runtimeFrom(c)
	svc, err := rt.Services()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	if !c.Bool("yes") {
		ok, err := rt.confirm(ctx, "Restart the manager? Agents lose their connection while it restarts.")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(rt.Printer.ErrOut(), "Aborted.")
			return nil
		}
	}

	spin := rt.Printer.Spinner("Restarting manager...")
	ack, err := svc.Manager.Restart(ctx)
	spin.Stop()
	if err != nil {
		return err
	}
	if rt.Printer.Format() != output.FormatTable {
		return rt.Printer.Print(ack, nil)
	}
	rt.Printer.Successf("Manager restart requested")
	return nil
}
