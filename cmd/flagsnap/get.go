package main

import (
	"context"
	"fmt"

	"github.com/OrlandoBitencourt/flagsnap"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newGetCmd(v *viper.Viper, logger log.FieldLogger) *cobra.Command {
	var (
		identifier string
		email      string
		country    string
		attrs      map[string]string
		details    bool
	)

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value of a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := newClient(v, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := refreshIfManual(ctx, client); err != nil {
				return err
			}

			var user *flagsnap.User
			if identifier != "" {
				user = &flagsnap.User{
					Identifier: identifier,
					Email:      email,
					Country:    country,
					Custom:     attrs,
				}
			}

			res := client.GetValueDetails(ctx, args[0], nil, user)
			if res.Error != nil {
				return res.Error
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Value)
			if details {
				fmt.Fprintf(out, "variation: %s\n", res.VariationID)
				switch {
				case res.MatchedTargetingRule != nil:
					r := res.MatchedTargetingRule
					fmt.Fprintf(out, "matched: %s %s %q\n", r.ComparisonAttribute, r.Comparator, r.ComparisonValue)
				case res.MatchedPercentageRule != nil:
					fmt.Fprintf(out, "matched: %d%% rollout\n", res.MatchedPercentageRule.Percentage)
				}
				if res.Warning != nil {
					fmt.Fprintf(out, "warning: %s\n", res.Warning)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&identifier, "identifier", "", "User identifier")
	cmd.Flags().StringVar(&email, "email", "", "User email")
	cmd.Flags().StringVar(&country, "country", "", "User country")
	cmd.Flags().StringToStringVar(&attrs, "attr", nil, "Custom user attribute, e.g. --attr plan=pro")
	cmd.Flags().BoolVar(&details, "details", false, "Print the variation and matched rule")

	return cmd
}

// refreshIfManual downloads the document when nothing else will.
func refreshIfManual(ctx context.Context, client *flagsnap.Client) error {
	if client.Mode() != flagsnap.ModeManual {
		return nil
	}
	return client.ForceRefresh(ctx)
}
