package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zheng/rdecomp/internal/config"
	"github.com/zheng/rdecomp/internal/log"
)

var (
	DbPath     string
	ConfigPath string
	Verbose    bool
	LogJSON    bool

	// cfg and logger are set up before any subcommand runs
	cfg    *config.Config
	logger *log.DefaultLogger
)

// RegisterCommands adds global flags and all subcommands to the root command
func RegisterCommands(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&DbPath, "db", "d", "", "program database path (default .rdecomp.db)")
	flags.StringVar(&ConfigPath, "config", "", "config file (default ./"+config.DefaultFile+")")
	flags.BoolVarP(&Verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&LogJSON, "log-json", false, "write log lines as JSON")

	rootCmd.PersistentPreRunE = setup

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(decompileCmd())
	rootCmd.AddCommand(closureCmd())
	rootCmd.AddCommand(functionsCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(mcpCmd())
}

// setup applies config file, environment and flags, in increasing priority
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(ConfigPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("db") {
		c.Database = DbPath
	}
	if Verbose {
		c.LogLevel = "debug"
	}
	if cmd.Flags().Changed("log-json") {
		c.LogJSON = LogJSON
	}
	if err := c.Validate(); err != nil {
		return err
	}

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	logger = log.New(log.Config{Level: level, JSONOutput: c.LogJSON})
	cfg = c
	return nil
}
