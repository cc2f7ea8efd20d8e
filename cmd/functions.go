package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zheng/rdecomp/internal/display"
	"github.com/zheng/rdecomp/internal/storage"
)

func functionsCmd() *cobra.Command {
	var limit int
	var format string
	var calleesOf string
	var callersOf string
	var depth int

	cmd := &cobra.Command{
		Use:   "functions [pattern]",
		Short: "List or search functions in the program database",
		Long: `List the functions of the program database, or those whose name contains
pattern, to help pick seeds. Exact and prefix matches are listed first.

Examples:
  rdecomp functions
  rdecomp functions parse --limit 20
  rdecomp functions --callees-of main --depth 2
  rdecomp functions --callers-of 0x401000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			switch {
			case calleesOf != "":
				return printCallees(db, calleesOf, depth, format)
			case callersOf != "":
				return printCallers(db, callersOf, format)
			}

			pattern := ""
			if len(args) > 0 {
				pattern = args[0]
			}
			funcs, err := db.FindFunctionsByPattern(pattern)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			total := len(funcs)
			if limit > 0 && total > limit {
				funcs = funcs[:limit]
			}

			if format == "json" {
				return outputJSON(funcs)
			}

			if total == 0 {
				fmt.Println("No matching functions")
				return nil
			}
			fmt.Printf("%d function(s):\n\n", total)
			fmt.Print(display.FormatFunctionTable(funcs))
			if len(funcs) < total {
				fmt.Printf("... %d more\n", total-len(funcs))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of functions shown (0=all)")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text/json)")
	cmd.Flags().StringVar(&calleesOf, "callees-of", "", "list functions reachable from this function")
	cmd.Flags().StringVar(&callersOf, "callers-of", "", "list direct callers of this function")
	cmd.Flags().IntVar(&depth, "depth", 0, "call depth for --callees-of (0=unlimited)")

	return cmd
}

func printCallees(db *storage.DB, ref string, depth int, format string) error {
	id, err := db.ResolveFunction(ref)
	if err != nil {
		return err
	}
	callees, err := db.GetDownstreamCallees(id, depth)
	if err != nil {
		return fmt.Errorf("callee query failed: %w", err)
	}
	if format == "json" {
		return outputJSON(callees)
	}

	name, err := db.FunctionName(id)
	if err != nil {
		return err
	}
	fmt.Print(display.FormatReach(fmt.Sprintf("%s  %s", id, name), callees))
	return nil
}

func printCallers(db *storage.DB, ref string, format string) error {
	id, err := db.ResolveFunction(ref)
	if err != nil {
		return err
	}
	callers, err := db.GetDirectCallers(id)
	if err != nil {
		return fmt.Errorf("caller query failed: %w", err)
	}
	if format == "json" {
		return outputJSON(callers)
	}
	if len(callers) == 0 {
		fmt.Println("No callers")
		return nil
	}
	fmt.Print(display.FormatFunctionTable(callers))
	return nil
}
