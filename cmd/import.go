package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zheng/rdecomp/internal/loader"
	"github.com/zheng/rdecomp/internal/storage"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <export>",
		Short: "Import a program export into the program database",
		Long: `Load a program export (.yaml, .json or .msgpack) written by the analysis
engine, validate it and rebuild the program database from it.

Examples:
  rdecomp import firmware.yaml
  rdecomp import firmware.msgpack -d firmware.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()

			fmt.Printf("Loading export: %s\n", args[0])
			prog, err := loader.Load(args[0], logger)
			if err != nil {
				return err
			}

			db, err := storage.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			fmt.Println("Writing program database...")
			if err := db.Import(prog); err != nil {
				return fmt.Errorf("failed to import program: %w", err)
			}

			stats, err := db.GetStats()
			if err != nil {
				return err
			}

			fmt.Printf("\nImport complete (%v)\n", time.Since(start).Round(time.Millisecond))
			fmt.Printf("  program:   %s\n", stats.Program)
			fmt.Printf("  functions: %d (%d failed to decompile)\n", stats.Functions, stats.Failed)
			fmt.Printf("  calls:     %d\n", stats.Calls)
			fmt.Printf("  types:     %d (%d structs, %d enums)\n", stats.Types, stats.Structs, stats.Enums)
			fmt.Printf("  database:  %s\n", cfg.Database)
			return nil
		},
	}

	return cmd
}
