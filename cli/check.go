package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iAL-2/fed-soma-pipeline/logging"
	"github.com/iAL-2/fed-soma-pipeline/validate"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Strict bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the wide store and the long view",
		Long: `Run consistency checks over both CSV tables: schema, date ordering,
numeric coercion, negative amounts, and component sums against the
total. Errors fail the command; warnings only fail it under --strict.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat warnings as failures")

	return cmd
}

func runCheck(opts *CheckOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	logger := logging.NewComponentLogger("check")

	wide, err := validate.CheckWide(cfg.WideCSVPath())
	if err != nil {
		return err
	}
	long, err := validate.CheckLong(cfg.LongCSVPath())
	if err != nil {
		return err
	}

	errCount, warnCount := 0, 0
	for _, report := range []*validate.Report{wide, long} {
		for _, e := range report.Errors {
			logger.Error().Str("table", report.Table).Msg(e.Error())
		}
		for _, w := range report.Warnings {
			logger.Warn().Str("table", report.Table).Msg(w)
		}
		if report.OK() && len(report.Warnings) == 0 {
			logger.Info().Str("table", report.Table).Int("rows", report.Rows).Msg("Check passed")
		}
		errCount += len(report.Errors)
		warnCount += len(report.Warnings)
	}

	if errCount > 0 {
		return NewExitError(1, fmt.Sprintf("validation failed with %d errors", errCount))
	}
	if opts.Strict && warnCount > 0 {
		return NewExitError(2, fmt.Sprintf("validation produced %d warnings", warnCount))
	}
	return nil
}
