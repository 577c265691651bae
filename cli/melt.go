package cli

import (
	"github.com/spf13/cobra"
)

// NewMeltCommand creates the melt command.
func NewMeltCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "melt",
		Short: "Rebuild the long view from the wide store",
		Long: `Reshape the wide store into the tidy long view (as_of_date, category,
amount) without fetching anything. Useful after hand edits to the wide
CSV.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			p, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			return p.Melt()
		},
	}
}
