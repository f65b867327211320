// Package fix implements the fix command.
package fix

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/atmap"
	"github.com/agentstation/atmap/internal/appcontext"
	"github.com/agentstation/atmap/internal/cmd/output"
	"github.com/agentstation/atmap/internal/store"
)

// DefaultType is written into the type property of fixed ATM features.
const DefaultType = "ATM"

// NewCommand creates the fix command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var featureType string
	cmd := &cobra.Command{
		Use:     "fix",
		GroupID: "core",
		Short:   "Turn raw collections into publishable ones",
		Long: `Fix reads every raw collection in the output directory, keeps the
first alternative of list-valued name, municipality, neighborhood and
address properties, sets the type of ATM features and writes the result
next to the raw file as <prefix>-<category>.geojson.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := store.New(app.OutputDir(), store.WithLogger(app.Logger()))
			am, err := app.AtmapWithOptions(atmap.WithStore(st))
			if err != nil {
				return err
			}
			result, err := am.Fix(cmd.Context(), featureType)
			if err != nil {
				return err
			}
			format := output.DetectFormat(app.OutputFormat())
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), output.FixTable(result))
		},
	}
	cmd.Flags().StringVar(&featureType, "type", DefaultType, "type written into fixed ATM features (empty keeps it)")
	return cmd
}
