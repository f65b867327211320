// Package fetch implements the fetch command.
package fetch

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/atmap"
	"github.com/agentstation/atmap/internal/appcontext"
	"github.com/agentstation/atmap/internal/cmd/output"
	"github.com/agentstation/atmap/internal/sources/registry"
	"github.com/agentstation/atmap/internal/store"
	"github.com/agentstation/atmap/pkg/errors"
	"github.com/agentstation/atmap/pkg/regions"
	"github.com/agentstation/atmap/pkg/sources"
)

// Flags holds the fetch command flags.
type Flags struct {
	States         string
	Municipalities string
	Banks          string
	Prefix         string
	Deterministic  bool
	Compress       bool
}

// NewCommand creates the fetch command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}
	cmd := &cobra.Command{
		Use:     "fetch",
		GroupID: "core",
		Short:   "Fetch ATMs from bank sites and write raw collections",
		Long: `Fetch walks every selected bank site, drops exact duplicates,
reconciles ATMs reported at the same coordinate and writes one raw
GeoJSON collection per state and category.`,
		Example: `  atmap fetch                                  # Every bank, every state
  atmap fetch --states oaxaca --banks banamex  # One bank, one state
  atmap fetch -s 9 -m 15,16 -b bbva-bancomer   # Two municipalities of one state`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.States, "states", "s", regions.All, "comma-separated state ids, slugs or names")
	cmd.Flags().StringVarP(&flags.Municipalities, "municipalities", "m", "", "comma-separated municipality ids or names (single state only)")
	cmd.Flags().StringVarP(&flags.Banks, "banks", "b", "", "comma-separated bank source ids (default all)")
	cmd.Flags().StringVar(&flags.Prefix, "prefix", "", "file name prefix (default \"atms\")")
	cmd.Flags().BoolVar(&flags.Deterministic, "deterministic", false, "choose the canonical ATM independently of arrival order")
	cmd.Flags().BoolVar(&flags.Compress, "compress", false, "gzip the written collections")

	return cmd
}

func run(cmd *cobra.Command, app appcontext.Interface, flags *Flags) error {
	rs, err := regions.Parse(flags.States)
	if err != nil {
		return err
	}
	ids, err := ParseBanks(flags.Banks)
	if err != nil {
		return err
	}
	srcs, err := registry.Build(app.SiteConfig(), ids...)
	if err != nil {
		return err
	}

	st := store.New(app.OutputDir(),
		store.WithPrefix(flags.Prefix),
		store.WithCompression(flags.Compress),
		store.WithLogger(app.Logger()))

	opts := []atmap.Option{
		atmap.WithSources(srcs.List()...),
		atmap.WithStore(st),
	}
	if flags.Deterministic {
		opts = append(opts, atmap.WithDeterministicCanonical(true))
	}
	am, err := app.AtmapWithOptions(opts...)
	if err != nil {
		return err
	}

	req := sources.Request{Regions: rs, Municipalities: splitList(flags.Municipalities)}
	result, runErr := am.Run(cmd.Context(), req)
	if result != nil && result.Fetch != nil {
		if err := printResult(cmd, app, result); err != nil {
			return err
		}
	}
	return runErr
}

func printResult(cmd *cobra.Command, app appcontext.Interface, result *atmap.Result) error {
	format := output.DetectFormat(app.OutputFormat())
	formatter := output.NewFormatter(format)
	w := cmd.OutOrStdout()

	if format != output.FormatTable {
		return formatter.Format(w, map[string]any{
			"run_id":      result.RunID,
			"sources":     output.FetchTable(result.Fetch).Records(),
			"collections": output.RunTable(result).Records(),
		})
	}

	if err := formatter.Format(w, output.FetchTable(result.Fetch)); err != nil {
		return err
	}
	if len(result.Collections) == 0 {
		return nil
	}
	return formatter.Format(w, output.RunTable(result))
}

// ParseBanks parses a comma-separated list of source ids. Empty selects
// every source.
func ParseBanks(s string) ([]sources.ID, error) {
	var ids []sources.ID
	for _, part := range splitList(s) {
		id := sources.ID(strings.ToLower(part))
		if !id.IsValid() {
			return nil, errors.NewValidationError("banks", part, "unknown bank; see 'atmap list banks'")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
