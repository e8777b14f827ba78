package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newKeysCmd(v *viper.Viper, logger log.FieldLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List setting keys",
		Args:  cobra.NoArgs,
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

			keys, err := client.GetAllKeys(ctx)
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}
