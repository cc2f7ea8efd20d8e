package cmd

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/zheng/rdecomp/internal/closure"
	"github.com/zheng/rdecomp/internal/decomp"
	"github.com/zheng/rdecomp/internal/display"
	"github.com/zheng/rdecomp/internal/gateway"
	"github.com/zheng/rdecomp/internal/program"
	"github.com/zheng/rdecomp/internal/seeds"
)

// closureReport is the JSON form of a closure
type closureReport struct {
	Summary   *decomp.Summary     `json:"summary"`
	Functions []closureFunction   `json:"functions"`
	Types     []*program.DataType `json:"types"`
}

type closureFunction struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func closureCmd() *cobra.Command {
	var format string
	var exportPath string

	cmd := &cobra.Command{
		Use:   "closure <seed-file>",
		Short: "Show the functions and types reachable from the seeds",
		Long: `Compute the function and type closure of the seed file without writing
any C. Useful to check what a decompile run would contain.

Examples:
  rdecomp closure seeds.txt
  rdecomp closure seeds.txt --format json
  rdecomp closure seeds.txt --format debug --export firmware.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := seeds.ReadFile(args[0])
			if err != nil {
				return err
			}

			gw, release, err := openGateway(exportPath)
			if err != nil {
				return err
			}
			defer release()

			res, summary, err := decomp.Closure(gw, refs, logger)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				report, err := buildClosureReport(gw, res, summary)
				if err != nil {
					return err
				}
				return outputJSON(report)
			case "debug":
				cs := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}
				cs.Fdump(os.Stdout, summary)
				cs.Fdump(os.Stdout, res)
			case "text":
				fmt.Print(display.FormatClosure(res, func(id program.FunctionID) string {
					name, err := gw.FunctionName(id)
					if err != nil {
						return "?"
					}
					return name
				}))
			default:
				return fmt.Errorf("unknown format %q (use text, json or debug)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (text/json/debug)")
	cmd.Flags().StringVar(&exportPath, "export", "", "read the program from an export file instead of the database")

	return cmd
}

func buildClosureReport(gw gateway.Gateway, res *closure.Result, summary *decomp.Summary) (*closureReport, error) {
	report := &closureReport{Summary: summary, Types: closure.Sorted(res.Types)}
	for _, id := range res.SortedFunctions() {
		name, err := gw.FunctionName(id)
		if err != nil {
			return nil, err
		}
		report.Functions = append(report.Functions, closureFunction{ID: id.String(), Name: name})
	}
	return report, nil
}
