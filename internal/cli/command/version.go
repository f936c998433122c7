package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/wazuh-cli-go/internal/cli/output"
	"github.com/yndnr/wazuh-cli-go/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			info := buildinfo.Get()
			table := &output.Table{Headers: []string{"FIELD", "VALUE"}}
			table.AddRow("version", info.Version)
			table.AddRow("commit", info.Commit)
			table.AddRow("built", info.BuildTime)
			table.AddRow("go", info.GoVersion)
			table.AddRow("platform", info.Platform)
			return runtimeFrom(c).Printer.Print(info, table)
		},
	}
}
