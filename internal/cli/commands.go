// Package cli implements the restspec command line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/tansive/restspec/internal/common/logtrace"
	"github.com/tansive/restspec/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// Global flags
	jsonOutput bool
	configFile string
	logLevel   string

	// cfg is loaded before any command runs
	cfg *config.Config
)

// ErrAlreadyHandled is returned by commands that have already reported their failure.
var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "restspec [command] [flags]",
		Short: "restspec - declarative HTTP API tests",
		Long: `restspec sends HTTP requests described by specifications and checks the responses.
It runs YAML test suites, sends single requests and serves a local mock API to test against.

Examples:
  # Run a suite
  restspec run -f workspaces.yaml

  # Send a single request and print the body as YAML
  restspec send GET https://jsonplaceholder.typicode.com/users/1 --yaml

  # Start the mock server
  restspec serve --addr 127.0.0.1:8680`,
		PersistentPreRunE: preRunHandlePersistents,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	rootCmd.SilenceErrors = true // errors are printed by Execute
	rootCmd.SilenceUsage = true  // no usage dump after a failed run

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to configuration file (default ./"+config.DefaultFileName+" when present)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "", "", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newServeCmd())
	return rootCmd
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	rootCmd := newRootCmd()

	err := rootCmd.Execute()
	if err != nil {
		if errors.Is(err, ErrAlreadyHandled) {
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(os.Stdout, map[string]string{"error": err.Error()})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// preRunHandlePersistents loads the configuration and initializes logging before any
// command runs.
func preRunHandlePersistents(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}
	level := logLevel
	if level == "" {
		level = cfg.Log.Level
	}
	logtrace.InitConsoleLogger(level)
	return nil
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of restspec",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{
					"version":        getCLIVersion(),
					"config_version": config.ConfigFormatVersion,
				})
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restspec %s\n", getCLIVersion())
			fmt.Fprintf(cmd.OutOrStdout(), "Config format: %s\n", config.ConfigFormatVersion)
		},
	}
}

// printJSON prints data as indented JSON to w
func printJSON(w io.Writer, data any) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(jsonData))
}

// getCLIVersion returns the current CLI version
func getCLIVersion() string {
	return "v0.1.0"
}
