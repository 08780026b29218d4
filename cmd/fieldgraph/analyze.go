package main

import (
	"fmt"
	"io"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	analysis "github.com/hanpama/fieldgraph/internal/analysis"
	language "github.com/hanpama/fieldgraph/internal/language"
	schema "github.com/hanpama/fieldgraph/internal/schema"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type analyzeOptions struct {
	operation string
	variables string
	format    string
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var o analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze [query-file]",
		Short: "Print the field dependency graph of a query",
		Long: `Reads a GraphQL executable document from query-file, or from stdin when the
argument is omitted or "-", and prints its field dependency graph.

The text format prints one edge per line, child first. The json format prints
the vertices and edges as served by "fieldgraph serve".`,
		Example: `  fieldgraph analyze --schema schema.graphql query.graphql
  fieldgraph analyze --schema schema.graphql --variables vars.yaml --format json < query.graphql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return a.runAnalyze(cmd, path, o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.operation, "operation", "o", "", "Operation to analyze when the document has several")
	f.StringVar(&o.variables, "variables", "", "YAML or JSON file with variable values")
	f.StringVarP(&o.format, "format", "f", "text", "Output format (text, json)")
	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, path string, o analyzeOptions) error {
	if o.format != "text" && o.format != "json" {
		return fmt.Errorf("unknown format %q", o.format)
	}
	cfg, logger, err := a.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	sch, err := schema.LoadFiles(cfg.Schema...)
	if err != nil {
		return err
	}
	query, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}
	variables, err := readVariables(o.variables)
	if err != nil {
		return err
	}

	start := time.Now()
	doc, err := language.ParseQuery(query)
	if err != nil {
		return err
	}
	root, err := analysis.AnalyzeOperation(sch, doc, o.operation, variables)
	if err != nil {
		return err
	}
	logger.Debug("analysis finished",
		zap.String("operation", o.operation),
		zap.Int("vertices", len(analysis.Vertices(root))),
		zap.Duration("duration", time.Since(start)))

	out := cmd.OutOrStdout()
	if o.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis.Export(root))
	}
	for _, e := range analysis.Edges(root) {
		if _, err := fmt.Fprintln(out, e.String()); err != nil {
			return err
		}
	}
	return nil
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read query: %w", err)
	}
	return string(b), nil
}

// readVariables decodes a variables file. JSON documents are valid YAML.
func readVariables(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read variables: %w", err)
	}
	var vars map[string]any
	if err := yaml.Unmarshal(b, &vars); err != nil {
		return nil, fmt.Errorf("decode variables %s: %w", path, err)
	}
	return vars, nil
}
