package main

import (
	"fmt"

	"github.com/spf13/cobra"

	schema "github.com/hanpama/fieldgraph/internal/schema"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the merged schema as SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.load()
			if err != nil {
				return err
			}
			sch, err := schema.LoadFiles(cfg.Schema...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), schema.Render(sch))
			return err
		},
	}
}
