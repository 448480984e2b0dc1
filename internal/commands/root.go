// Package commands wires the bridge daemon's cobra command tree.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/Zatlas-Hospitality/intellij-server-mcp/pkg/logger"
)

var configPath string

func NewRootCmd(log *logger.Logger) (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		SilenceErrors: true,
		SilenceUsage:  true,
		Use:           "ijbridged",
		Short:         "Bridges asynchronous development-environment operations behind a synchronous request surface",
		Long: `ijbridged exposes the long-running operations of a development environment
(incremental builds, test runs, ad-hoc processes, debugger control) as
synchronous request/response calls over newline-delimited JSON on
stdin/stdout. Every call returns within its configured time budget.

By default (no command specified), this executable runs the request loop.`,
		RunE: runServe(log),
	}

	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	rootCmd.AddCommand(NewVersionCommand(log.Logger))

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ijbridge.yaml", "Path to the bridge configuration file")
	log.BindVerbosityFlag(rootCmd.PersistentFlags())

	return rootCmd, nil
}
