package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/zheng/rdecomp/internal/decomp"
	"github.com/zheng/rdecomp/internal/emit"
	"github.com/zheng/rdecomp/internal/gateway"
)

// runFlags are shared by decompile and watch
type runFlags struct {
	output      string
	exportPath  string
	structOrder string
	onError     string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output C file (default decomp.c)")
	cmd.Flags().StringVar(&f.exportPath, "export", "", "read the program from an export file instead of the database")
	cmd.Flags().StringVar(&f.structOrder, "struct-order", "", "struct order: topo or name")
	cmd.Flags().StringVar(&f.onError, "on-error", "", "decompiler failures: abort or placeholder")
}

// resolve merges the flags over the loaded config
func (f *runFlags) resolve() (outPath string, opts decomp.Options, err error) {
	outPath = cfg.Output
	if f.output != "" {
		outPath = f.output
	}

	order := cfg.StructOrder
	if f.structOrder != "" {
		order = f.structOrder
	}
	if opts.StructOrder, err = emit.ParseStructOrder(order); err != nil {
		return "", opts, err
	}

	policy := cfg.OnError
	if f.onError != "" {
		policy = f.onError
	}
	if opts.Policy, err = gateway.ParsePolicy(policy); err != nil {
		return "", opts, err
	}
	return outPath, opts, nil
}

func decompileCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "decompile [seed-file]",
		Short: "Decompile the closure of the seed functions into one C file",
		Long: `Resolve every function named in the seed file (one name or hex entry
address per line), follow calls and referenced data types transitively, and
write enums, structs, prototypes and bodies to a single C file.

Without a seed file argument the file is asked for interactively.

Examples:
  rdecomp decompile seeds.txt
  rdecomp decompile seeds.txt -o out.c --struct-order name
  rdecomp decompile seeds.txt --export firmware.yaml --on-error placeholder`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outPath, opts, err := flags.resolve()
			if err != nil {
				return err
			}

			var seedPath string
			if len(args) > 0 {
				seedPath = args[0]
			} else if seedPath, err = askSeedFile(); err != nil {
				return err
			}

			gw, release, err := openGateway(flags.exportPath)
			if err != nil {
				return err
			}
			defer release()

			_, err = decomp.RunFile(gw, seedPath, outPath, opts, logger)
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

// askSeedFile prompts for the seed file path
func askSeedFile() (string, error) {
	var path string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Seed file").
				Description("Text file with one function name or entry address per line").
				Placeholder("seeds.txt").
				Validate(func(s string) error {
					if s == "" {
						return errors.New("a seed file is required")
					}
					info, err := os.Stat(s)
					if err != nil {
						return err
					}
					if info.IsDir() {
						return fmt.Errorf("%s is a directory", s)
					}
					return nil
				}).
				Value(&path),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("interactive prompt failed: %w", err)
	}
	return path, nil
}
