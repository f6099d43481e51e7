package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"shireesh.com/buildergen/internal/emit"
	"shireesh.com/buildergen/internal/generator"
)

const (
	checkFlag   = "check"
	dryRunFlag  = "dry-run"
	archiveFlag = "archive"
)

func newGenerateCommand() *cobra.Command {
	generateCmd := &cobra.Command{
		Use:     "generate [dirs...]",
		Aliases: []string{"gen"},
		Short:   "Alias: [gen], generate builders for the packages below dirs",
		Long: `Generate scans every package below the given directories (default: the
current directory) and writes one builder file per output package.

Use --check in CI to fail when generated files are out of date.`,
		Example: `  buildergen generate ./...
  buildergen generate --check .
  buildergen generate --dry-run ./internal/model
  buildergen generate --archive builders.zip .`,
		RunE: runGenerate,
	}
	generateCmd.Flags().Bool(checkFlag, false, "report out of date files instead of writing them")
	generateCmd.Flags().Bool(dryRunFlag, false, "print generated files instead of writing them")
	generateCmd.Flags().String(archiveFlag, "", "write generated files into this zip archive")
	generateCmd.MarkFlagsMutuallyExclusive(checkFlag, dryRunFlag, archiveFlag)
	return generateCmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dirs := trimEllipsis(roots(args))

	if check, _ := cmd.Flags().GetBool(checkFlag); check {
		return generator.Check(ctx, cfg, dirs...)
	}

	var sink emit.Sink = emit.DirSink{}
	if dryRun, _ := cmd.Flags().GetBool(dryRunFlag); dryRun {
		sink = emit.NewStdoutSink(cmd.OutOrStdout())
	}
	if archive, _ := cmd.Flags().GetString(archiveFlag); archive != "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		sink = emit.NewArchiveSink(archive, wd)
	}

	res, runErr := generator.Run(ctx, cfg, sink, dirs...)
	if err := sink.Close(); err != nil {
		return errors.Join(runErr, err)
	}
	if res != nil {
		if _, ok := sink.(emit.DirSink); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d builders in %d files, removed %d files\n",
				res.Builders, len(res.Written), len(res.Removed))
		}
	}
	return runErr
}

// trimEllipsis accepts go tool style patterns: ./... walks the same tree
// as ./ since packages are always scanned recursively.
func trimEllipsis(dirs []string) []string {
	out := make([]string, len(dirs))
	for i, d := range dirs {
		if d == "..." {
			d = "."
		} else if trimmed, ok := strings.CutSuffix(d, "/..."); ok && trimmed != "" {
			d = trimmed
		}
		out[i] = d
	}
	return out
}
