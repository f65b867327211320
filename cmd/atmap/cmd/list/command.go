// Package list implements the list command and its subcommands.
package list

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/atmap/internal/appcontext"
	"github.com/agentstation/atmap/internal/cmd/output"
	"github.com/agentstation/atmap/internal/sources/registry"
	"github.com/agentstation/atmap/pkg/regions"
)

// NewCommand creates the list command with app dependencies.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list [resource]",
		GroupID: "core",
		Short:   "List banks and states",
		Long: `List displays what fetch can be pointed at.

Available subcommands:
  banks   - Bank sources
  states  - States, with the ids and slugs accepted by --states`,
		Example: `  atmap list banks
  atmap list states -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return fmt.Errorf("unknown resource: %s", args[0])
		},
	}

	cmd.AddCommand(NewBanksCommand(app))
	cmd.AddCommand(NewStatesCommand(app))
	return cmd
}

// NewBanksCommand creates the list banks subcommand.
func NewBanksCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "banks",
		Aliases: []string{"bank", "sources"},
		Short:   "List bank sources",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srcs, err := registry.Build(app.SiteConfig())
			if err != nil {
				return err
			}
			format := output.DetectFormat(app.OutputFormat())
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), output.SourcesTable(srcs.List()))
		},
	}
}

// NewStatesCommand creates the list states subcommand.
func NewStatesCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "states",
		Aliases: []string{"state", "regions"},
		Short:   "List states",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := output.DetectFormat(app.OutputFormat())
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), output.RegionsTable(regions.List()))
		},
	}
}
