package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/accountkit/internal/app"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema (PG_CONN_URL)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			return app.Migrate(cmd.Context(), log)
		},
	}
}
