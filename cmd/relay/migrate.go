package main

import (
	"fmt"

	"github.com/ZanzyTHEbar/ai-counselor/relay/db"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			database, err := db.Connect(ctx, dbOptions(a.cfg.Database), a.logger)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.Migrate(ctx, database, a.logger); err != nil {
				return err
			}
			version, err := db.Version(ctx, database)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
}
