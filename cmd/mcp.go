package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zheng/rdecomp/internal/mcp"
)

func mcpCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP (Model Context Protocol) server over stdio",
		Long: `Start an MCP server so AI assistants can query the program database
and decompile functions directly. Logs go to stderr.

MCP tools:
  - search: search functions by name
  - callers: direct callers of a function
  - callees: functions reachable from a function, by depth
  - closure: functions and types a decompile would contain
  - decompile: C source for a set of seed functions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, opts, err := flags.resolve()
			if err != nil {
				return err
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			server := mcp.NewServer(db, opts, logger)
			return server.Run()
		},
	}

	cmd.Flags().StringVar(&flags.structOrder, "struct-order", "", "struct order: topo or name")
	cmd.Flags().StringVar(&flags.onError, "on-error", "", "decompiler failures: abort or placeholder")

	return cmd
}
