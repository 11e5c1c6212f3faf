package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/semfetch/source/webfetch"
	"github.com/c360studio/semfetch/source/weburl"
)

func validateCmd(flags *globalFlags) *cobra.Command {
	var allowed []string

	cmd := &cobra.Command{
		Use:   "validate URL...",
		Short: "Screen URLs without fetching them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, logger, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			validator := weburl.NewValidator(
				weburl.WithPolicy(loaded.cfg.Fetch.Policy()),
				weburl.WithLogger(logger))

			verdicts := make([]weburl.Verdict, len(args))
			rejected := 0
			for i, u := range args {
				verdicts[i] = validator.Check(u, allowed)
				if !verdicts[i].Valid {
					rejected++
				}
			}
			printVerdicts(cmd.OutOrStdout(), args, verdicts)

			if rejected > 0 {
				return fmt.Errorf("%d of %d URLs rejected (%s)", rejected, len(args), webfetch.CodeValidation)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&allowed, "allow", nil, "Domain patterns to allow, overriding the configured list")
	return cmd
}
