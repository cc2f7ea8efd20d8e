package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zheng/rdecomp/internal/decomp"
	"github.com/zheng/rdecomp/internal/watcher"
)

func watchCmd() *cobra.Command {
	var flags runFlags
	var debounceMs int

	cmd := &cobra.Command{
		Use:   "watch <seed-file>",
		Short: "Decompile, then decompile again whenever the inputs change",
		Long: `Run decompile once, then watch the seed file and the program source
(the export file with --export, the database otherwise) and re-run after
every change. Runs never overlap.

Examples:
  rdecomp watch seeds.txt
  rdecomp watch seeds.txt --export firmware.yaml --debounce 1000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seedPath := args[0]
			outPath, opts, err := flags.resolve()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("debounce") {
				debounceMs = cfg.WatchDebounceMS
			}

			source := cfg.Database
			if flags.exportPath != "" {
				source = flags.exportPath
			}

			// The export is re-read on every run so edits to it are picked up.
			run := func() error {
				gw, release, err := openGateway(flags.exportPath)
				if err != nil {
					return err
				}
				defer release()
				_, err = decomp.RunFile(gw, seedPath, outPath, opts, logger)
				return err
			}

			fmt.Println("Running initial decompile...")
			if err := run(); err != nil {
				logger.Error("initial decompile failed", "error", err)
			}

			fmt.Printf("\nWatching: %s, %s\n", seedPath, source)
			fmt.Printf("Output: %s\n", outPath)
			fmt.Printf("Debounce: %dms\n", debounceMs)
			fmt.Println("\nPress Ctrl+C to stop...")
			fmt.Println()

			w, err := watcher.New(
				[]string{seedPath, source},
				func(changed []string) error { return run() },
				watcher.WithDebounceDelay(time.Duration(debounceMs)*time.Millisecond),
				watcher.WithOnRunStart(func(changed []string) {
					fmt.Printf("[%s] change detected in %v, decompiling...\n", time.Now().Format("15:04:05"), changed)
				}),
				watcher.WithOnRunDone(func(duration time.Duration) {
					fmt.Printf("[%s] done (took %v)\n", time.Now().Format("15:04:05"), duration.Round(time.Millisecond))
				}),
				watcher.WithOnError(func(err error) {
					fmt.Fprintf(os.Stderr, "[%s] error: %v\n", time.Now().Format("15:04:05"), err)
				}),
			)
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}

			w.Start()
			defer w.Stop()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			fmt.Println("\nStopping...")
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&debounceMs, "debounce", 500, "debounce delay in milliseconds")

	return cmd
}
