package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an agent frontend query and mutate kestrel natively. Configure
with:

  {
    "mcpServers": {
      "kestrel": { "command": "kestrel", "args": ["mcp"] }
    }
  }

Available tools: kestrel_list_workstreams, kestrel_get_workstream,
kestrel_update_status, kestrel_list_notifications, kestrel_trash_search,
kestrel_poll_now`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getManager()
		if err != nil {
			return err
		}

		p, err := getPoller()
		if err != nil {
			return err
		}
		if p != nil {
			p.Start()
			defer p.Stop()
		}

		srv := mcp.NewServer(mgr, getQueue(), p)
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
