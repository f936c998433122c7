package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/wazuh-cli-go/internal/cli/output"
	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

// AgentCommand returns the agent subcommand group.
func AgentCommand() *cli.Command {
	return &cli.Command{
		Name:    "agent",
		Aliases: []string{"agents", "a"},
		Usage:   "Manage agents",
		Action:  groupAction,
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls", "l"},
				Usage:   "List agents",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "status",
						Aliases: []string{"s"},
						Usage:   "Filter by status: active, disconnected, never_connected, pending",
					},
					&cli.StringFlag{
						Name:  "os",
						Usage: "Filter by OS platform",
					},
					&cli.StringFlag{
						Name:  "version",
						Usage: "Filter by agent version",
					},
					&cli.StringFlag{
						Name:    "group",
						Aliases: []string{"g"},
						Usage:   "Filter by group",
					},
					&cli.StringFlag{
						Name:  "search",
						Usage: "Free-text search",
					},
					&cli.StringFlag{
						Name:  "sort",
						Usage: "Sort fields, e.g. +name,-id",
					},
					&cli.IntFlag{
						Name:  "limit",
						Value: domain.DefaultAgentLimit,
						Usage: "Maximum number of agents",
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of agents to skip",
					},
					&cli.BoolFlag{
						Name:  "count",
						Usage: "Print only the number of matching agents",
					},
				},
				Action: agentList,
			},
			{
				Name:      "get",
				Aliases:   []string{"info", "show"},
				Usage:     "Show agent details",
				ArgsUsage: "AGENT_ID",
				Action:    agentGet,
			},
			{
				Name:    "add",
				Aliases: []string{"create", "new"},
				Usage:   "Register a new agent",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Agent name",
					},
					&cli.StringFlag{
						Name:  "ip",
						Usage: "Agent IP address, CIDR or \"any\"",
					},
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Replace an existing agent with the same name or IP",
					},
				},
				Action: agentAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm", "del", "delete"},
				Usage:     "Remove agents",
				ArgsUsage: "AGENT_ID...",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip confirmation",
					},
				},
				Action: agentRemove,
			},
			{
				Name:      "restart",
				Usage:     "Restart agents",
				ArgsUsage: "AGENT_ID...|all",
				Action:    agentRestart,
			},
			{
				Name:      "upgrade",
				Usage:     "Upgrade agents",
				ArgsUsage: "AGENT_ID...|all",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "version",
						Usage: "Target version (default: the manager's version)",
					},
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Upgrade even when the agent is up to date",
					},
				},
				Action: agentUpgrade,
			},
			{
				Name:      "key",
				Usage:     "Show the registration key of an agent",
				ArgsUsage: "AGENT_ID",
				Action:    agentKey,
			},
		},
	}
}

func agentList(c *cli.Context) error {
	rt := runtimeFrom(c)
	svc, err := rt.Services()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	filter := domain.AgentFilter{
		Status:     domain.AgentStatus(strings.ToLower(c.String("status"))),
		OSPlatform: c.String("os"),
		Version:    c.String("version"),
		Group:      c.String("group"),
		Search:     c.String("search"),
		Sort:       c.String("sort"),
		Limit:      c.Int("limit"),
		Offset:     c.Int("offset"),
	}
	if c.Bool("count") {
		filter.Limit = 1
	}

	spin := rt.Printer.Spinner("Fetching agents...")
	list, err := svc.Agents.List(ctx, filter)
	spin.Stop()
	if err != nil {
		return err
	}

	if c.Bool("count") {
		return rt.Printer.Print(map[string]int{"total": list.Total}, &output.Table{
			Headers: []string{"TOTAL"},
			Rows:    [][]string{{strconv.Itoa(list.Total)}},
		})
	}

	if len(list.Items) == 0 && rt.Printer.Format() == output.FormatTable {
		rt.Printer.Infof("No agents found.")
		return nil
	}
	if err := rt.Printer.Print(list, rt.Printer.AgentsTable(list.Items)); err != nil {
		return err
	}
	rt.Printer.Infof("\nShowing %d of %d agents", len(list.Items), list.Total)
	return nil
}

func agentGet(c *cli.Context) error {
	if err := requireArgs(c, 1, "AGENT_ID"); err != nil {
		return err
	}
	rt := runtimeFrom(c)
	svc, err := rt.Services()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	spin := rt.Printer.Spinner("Fetching agent...")
	agent, err := svc.Agents.Get(ctx, c.Args().First())
	spin.Stop()
	if err != nil {
		return err
	}
	return rt.Printer.Print(agent, rt.Printer.AgentTable(agent))
}

func agentAdd(c *cli.Context) error {
	req := domain.AddAgentRequest{
		Name:  c.String("name"),
		IP:    c.String("ip"),
		Force: c.Bool("force"),
	}
	if req.Name == "" && c.NArg() == 1 {
		req.Name = c.Args().First()
	}
	if err := domain.ValidateAddAgent(req); err != nil {
		return err
	}

	rt := runtimeFrom(c)
	svc, err := rt.Services()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	spin := rt.Printer.Spinner("Registering agent...")
	added, err := svc.Agents.Add(ctx, req)
	spin.Stop()
	if err != nil {
		return err
	}

	rt.Printer.Successf("Agent %s registered with ID %s", req.Name, added.ID)
	return rt.Printer.Print(added, &output.Table{
		Headers: []string{"ID", "KEY"},
		Rows:    [][]string{{added.ID, added.Key}},
	})
}

func agentRemove(c *cli.Context) error {
	ids, err := agentIDs(c, false)
	if err != nil {
		return err
	}
	rt := runtimeFrom(c)
	svc, err := rt.Services()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	if !c.Bool("yes") {
		ok, err := rt.confirm(ctx, fmt.Sprintf("Remove agent %s?", strings.Join(ids, ", ")))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(rt.Printer.ErrOut(), "Aborted.")
			return nil
		}
	}

	if len(ids) == 1 {
		spin := rt.Printer.Spinner("Removing agent...")
		_, err := svc.Agents.Remove(ctx, ids[0])
		spin.Stop()
		if err != nil {
			return err
		}
		return printAck(rt, "agent.remove", ids[0], "Agent %s removed")
	}

	bar := rt.Printer.Progress("Removing", len(ids))
	result := svc.Agents.RemoveMany(ctx, svc.Batch, ids, bar.Step)
	bar.Finish()
	return printBatch(rt, result)
}

func agentRestart(c *cli.Context) error {
	ids, err := agentIDs(c, true)
	if err != nil {
		return err
	}
	rt := runtimeFrom(c)
	svc, err := rt.Services()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	if ids == nil {
		if ids, err = activeAgents(ctx, rt, svc); err != nil || ids == nil {
			return err
		}
	} else if len(ids) == 1 {
		spin := rt.Printer.Spinner("Restarting agent...")
		_, err := svc.Agents.Restart(ctx, ids[0])
		spin.Stop()
		if err != nil {
			return err
		}
		return printAck(rt, "agent.restart", ids[0], "Restart sent to agent %s")
	}

	bar := rt.Printer.Progress("Restarting", len(ids))
	result := svc.Agents.RestartMany(ctx, svc.Batch, ids, bar.Step)
	bar.Finish()
	return printBatch(rt, result)
}

func agentUpgrade(c *cli.Context) error {
	ids, err := agentIDs(c, true)
	if err != nil {
		return err
	}
	opts := domain.UpgradeOptions{Version: c.String("version"), Force: c.Bool("force")}
	if err := domain.ValidateVersion(opts.Version); err != nil {
		return err
	}

	rt := runtimeFrom(c)
	svc, err := rt.Services()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	if ids == nil {
		if ids, err = activeAgents(ctx, rt, svc); err != nil || ids == nil {
			return err
		}
	} else if len(ids) == 1 {
		spin := rt.Printer.Spinner("Starting upgrade...")
		_, err := svc.Agents.Upgrade(ctx, ids[0], opts)
		spin.Stop()
		if err != nil {
			return err
		}
		return printAck(rt, "agent.upgrade", ids[0], "Upgrade started on agent %s")
	}

	bar := rt.Printer.Progress("Upgrading", len(ids))
	result := svc.Agents.UpgradeMany(ctx, svc.Batch, ids, opts, bar.Step)
	bar.Finish()
	return printBatch(rt, result)
}

func agentKey(c *cli.Context) error {
	if err := requireArgs(c, 1, "AGENT_ID"); err != nil {
		return err
	}
	rt := runtimeFrom(c)
	svc, err := rt.Services()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	key, err := svc.Agents.Key(ctx, c.Args().First())
	if err != nil {
		return err
	}
	return rt.Printer.Print(key, &output.Table{
		Headers: []string{"ID", "KEY"},
		Rows:    [][]string{{key.ID, key.Key}},
	})
}

// agentIDs returns the agent IDs given as arguments, accepting comma
// separated lists. With allowAll, a single "all" returns nil. Every ID is
// validated before any request is sent.
func agentIDs(c *cli.Context, allowAll bool) ([]string, error) {
	if c.NArg() == 0 {
		usage := "AGENT_ID..."
		if allowAll {
			usage += "|all"
		}
		return nil, domain.Validationf("usage: %s %s", c.Command.HelpName, usage)
	}
	if allowAll && c.NArg() == 1 && strings.EqualFold(c.Args().First(), "all") {
		return nil, nil
	}

	var ids []string
	seen := make(map[string]bool)
	for _, arg := range c.Args().Slice() {
		for _, id := range strings.Split(arg, ",") {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			if err := domain.ValidateActionTarget(id); err != nil {
				return nil, err
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, domain.Validationf("agent ID required")
	}
	return ids, nil
}

// activeAgents resolves "all". It returns nil after telling the user when
// there is nothing to do.
func activeAgents(ctx context.Context, rt *Runtime, svc *Services) ([]string, error) {
	spin := rt.Printer.Spinner("Fetching active agents...")
	ids, err := svc.Agents.ActiveIDs(ctx)
	spin.Stop()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		rt.Printer.Infof("No active agents.")
		return nil, nil
	}
	return ids, nil
}

func printAck(rt *Runtime, op, id, format string) error {
	if rt.Printer.Format() == output.FormatTable {
		rt.Printer.Successf(format, id)
		return nil
	}
	return rt.Printer.Print(output.NewBatchReport(domain.BatchResult{
		Op:    op,
		Items: []domain.BatchItem{{Target: id}},
	}), nil)
}

// printBatch renders a batch result. When any target failed the returned
// error carries the kind of the first failure, so the exit status reflects
// it.
func printBatch(rt *Runtime, result domain.BatchResult) error {
	if err := rt.Printer.Print(output.NewBatchReport(result), rt.Printer.BatchTable(result)); err != nil {
		return err
	}

	failed := result.Failed()
	rt.Printer.Infof("\n%d of %d succeeded", result.Succeeded(), len(result.Items))
	if len(failed) == 0 {
		return nil
	}
	kind := domain.KindOf(failed[0].Err)
	if kind == "" {
		kind = domain.KindAPI
	}
	return &domain.Error{
		Kind:    kind,
		Op:      result.Op,
		Message: fmt.Sprintf("%d of %d targets failed", len(failed), len(result.Items)),
	}
}
