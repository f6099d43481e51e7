package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"shireesh.com/buildergen/internal/generator"
)

const (
	outputFlag = "output"

	outputTable = "table"
	outputYAML  = "yaml"
	outputJSON  = "json"
)

// listEntry is one planned builder as shown by list.
type listEntry struct {
	Target   string   `json:"target" yaml:"target"`
	Origin   string   `json:"origin" yaml:"origin"`
	Call     string   `json:"call" yaml:"call"`
	Builder  string   `json:"builder" yaml:"builder"`
	Package  string   `json:"package" yaml:"package"`
	Public   bool     `json:"public" yaml:"public"`
	Params   []string `json:"params,omitempty" yaml:"params,omitempty"`
	Required []string `json:"required,omitempty" yaml:"required,omitempty"`
	Position string   `json:"position" yaml:"position"`
}

func newListCommand() *cobra.Command {
	listCmd := &cobra.Command{
		Use:     "list [dirs...]",
		Aliases: []string{"ls"},
		Short:   "Alias: [ls], list the builders that generate would produce",
		RunE:    runList,
	}
	listCmd.Flags().StringP(outputFlag, "o", outputTable, "output format: table, yaml or json")
	return listCmd
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, _ := cmd.Flags().GetString(outputFlag)
	switch format {
	case outputTable, outputYAML, outputJSON:
	default:
		return fmt.Errorf("unknown output format %q, expected %s, %s or %s", format, outputTable, outputYAML, outputJSON)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	plan, planErr := generator.Plan(ctx, cfg, trimEllipsis(roots(args))...)
	if plan == nil {
		return planErr
	}

	entries := make([]listEntry, 0, len(plan.Builders))
	for _, b := range plan.Builders {
		t := b.Target
		e := listEntry{
			Target:   t.SimpleName(),
			Origin:   t.Origin.String(),
			Call:     t.Callable.Kind.String(),
			Builder:  b.Identity.Name,
			Package:  b.Identity.PackagePath,
			Public:   b.Identity.Public,
			Params:   t.Callable.ParamNames(),
			Position: relPosition(t.Pos.Filename, t.Pos.Line),
		}
		for _, p := range t.Callable.Params {
			if p.Required {
				e.Required = append(e.Required, p.Name)
			}
		}
		entries = append(entries, e)
	}

	var out []byte
	switch format {
	case outputYAML:
		out, err = yaml.Marshal(entries)
	case outputJSON:
		out, err = json.MarshalIndent(entries, "", "  ")
		out = append(out, '\n')
	default:
		out = renderTable(entries)
	}
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return err
	}
	return planErr
}

func renderTable(entries []listEntry) []byte {
	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.AppendHeader(table.Row{"Package", "Builder", "Target", "Origin", "Call", "Position"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Package, e.Builder, e.Target, e.Origin, e.Call, e.Position})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
	})
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
	return buf.Bytes()
}

// relPosition shortens file to a path relative to the working directory
// when it lies below it.
func relPosition(file string, line int) string {
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, file); err == nil && !strings.HasPrefix(rel, "..") {
			file = rel
		}
	}
	return fmt.Sprintf("%s:%d", filepath.ToSlash(file), line)
}
