package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"shireesh.com/buildergen/internal/config"
	"shireesh.com/buildergen/internal/naming"
	"shireesh.com/buildergen/internal/tui"
)

const customSuffix = "custom"

func newInitCommand(prompter tui.Prompter) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, prompter)
		},
	}
}

func runInit(cmd *cobra.Command, prompter tui.Prompter) error {
	path, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		ok, err := prompter.Confirm(fmt.Sprintf("%s exists, overwrite", path))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	cfg := config.Default()

	suffix, err := prompter.Select("Builder name suffix", []string{naming.DefaultSuffix, "Builder", customSuffix})
	if err != nil {
		return err
	}
	if suffix == customSuffix {
		suffix, err = prompter.Input("Suffix", "", validateSuffix)
		if err != nil {
			return err
		}
	}
	cfg.Suffix = suffix

	cfg.OutputFile, err = prompter.Input("Generated file name", config.DefaultOutputFile, validateOutputFile)
	if err != nil {
		return err
	}

	exclude, err := prompter.Input("Directories to exclude (comma separated globs)", "", nil)
	if err != nil {
		return err
	}
	for _, p := range strings.Split(exclude, ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.Exclude = append(cfg.Exclude, p)
		}
	}

	if err := config.Write(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}

func validateSuffix(s string) error {
	if s == "" {
		return errors.New("suffix must not be empty")
	}
	if err := config.Validate([]byte(fmt.Sprintf("suffix: %q", s))); err != nil {
		return errors.New("suffix must only contain letters, digits and underscores")
	}
	return nil
}

func validateOutputFile(s string) error {
	if err := config.Validate([]byte(fmt.Sprintf("outputFile: %q", s))); err != nil {
		return fmt.Errorf("file name must look like %s", config.DefaultOutputFile)
	}
	return nil
}
