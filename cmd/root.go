package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"shireesh.com/buildergen/internal/config"
	"shireesh.com/buildergen/internal/tui"
)

const (
	configFlag  = "config"
	verboseFlag = "verbose"
)

// NewRootCommand creates the buildergen command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(tui.Terminal{Stdin: os.Stdin, Stdout: os.Stdout})
}

func newRootCommand(prompter tui.Prompter) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "buildergen",
		Short: "Generate builder types for Go constructors, functions and structs",
		Long: `buildergen scans Go packages for declarations marked with

	//buildergen:generate

and writes a builder type for each of them into zz_generated.builders.go.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose, _ := cmd.Flags().GetBool(verboseFlag); verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			cmd.SetContext(slogcontext.NewCtx(cmd.Context(), logger))
		},
	}
	rootCmd.PersistentFlags().String(configFlag, config.FileName, "path of the configuration file")
	rootCmd.PersistentFlags().BoolP(verboseFlag, "v", false, "log debug output")

	rootCmd.AddCommand(
		newGenerateCommand(),
		newListCommand(),
		newInitCommand(prompter),
	)
	return rootCmd
}

// loadConfig reads the configuration named by --config. The default file
// is optional; a file given explicitly must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return nil, err
	}
	return config.Load(path, cmd.Flags().Changed(configFlag))
}

func roots(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	return args
}

func Execute() {
	err := NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
