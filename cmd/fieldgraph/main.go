// Command fieldgraph analyzes GraphQL queries into field dependency graphs.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hanpama/fieldgraph/internal/config"
	"github.com/hanpama/fieldgraph/internal/logging"
)

const (
	Version = "0.1.0"
	appName = "fieldgraph"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the state shared by subcommands.
type app struct {
	v          *viper.Viper
	configPath string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: config.New()}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Static field dependency analysis for GraphQL",
		Long: `fieldgraph computes which fields a GraphQL operation would resolve, and in
which order, without executing it. Every vertex of the resulting graph is one
field resolved against one concrete object type; every edge points from a
field to the parent field it depends on.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadFile(a.v, a.configPath)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML or JSON)")
	pf.StringSlice("schema", nil, "GraphQL SDL file. Repeatable")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.Bool("log-development", false, "Human-friendly console logging")
	a.bindFlags(pf, map[string]string{
		"schema":          "schema",
		"log_level":       "log-level",
		"log_development": "log-development",
	})

	cmd.AddCommand(
		newAnalyzeCmd(a),
		newServeCmd(a),
		newSchemaCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

func (a *app) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(a.v)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// bindFlags maps config keys to flag names. A flag overrides the config file
// and environment only when it is set explicitly.
func (a *app) bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := a.v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag --%s: %v", name, err))
		}
	}
}
