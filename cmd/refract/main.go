// Package main is the entry point for the refract CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/refractdb/refract/cmd/refract/commands"
	"github.com/refractdb/refract/internal/config"
	"github.com/refractdb/refract/internal/debug"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var debugFlag bool
	rootCmd := &cobra.Command{
		Use:   "refract",
		Short: "Query compiler for relational backends",
		Long:  "Refract compiles abstract CRUD query descriptions into parameterized SQL",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug.Init(debugFlag || cfg.Debug)
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(commands.NewCompileCommand(cfg))
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd.Execute()
}
