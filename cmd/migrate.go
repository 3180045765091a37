package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}
		zap.L().Info("schema up to date", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

var pruneCacheCmd = &cobra.Command{
	Use:   "prune-cache",
	Short: "Delete expired collection cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		n, err := st.DeleteExpiredCollections(ctx)
		if err != nil {
			return eris.Wrap(err, "prune cache")
		}
		zap.L().Info("cache pruned", zap.Int("deleted", n))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, pruneCacheCmd)
}
