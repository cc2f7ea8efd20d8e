package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/rdecomp/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rdecomp",
		Short: "Extract a self-contained C source file from a decompiled program",
		Long: `rdecomp takes the functions named in a seed file, follows their calls to
every reachable function, collects the data types those functions use, and
writes one C file: enums, structs in dependency order, then prototypes and
bodies.`,
		SilenceUsage: true,
	}

	cmd.RegisterCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
