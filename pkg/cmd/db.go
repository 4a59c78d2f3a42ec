package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/casevault/pkg/configs"
	"github.com/yeisme/casevault/pkg/internal/model"
	"github.com/yeisme/casevault/pkg/internal/storage/db"
)

// openLedgerDB 只连接数据库，不初始化存储与消息队列.
func openLedgerDB(ctx context.Context) (*db.Client, error) {
	if err := loadConfig(); err != nil {
		return nil, err
	}

	return db.New(ctx, &configs.GetConfig().DB)
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "ledger database commands",
}

func registerDBCommands() {
	dbCmd.AddCommand(
		&cobra.Command{
			Use:     "types",
			Aliases: []string{"list", "ls"},
			Short:   "list the database drivers compiled into this binary",
			Run: func(cmd *cobra.Command, args []string) {
				for _, t := range db.GetRegisteredDBTypes() {
					fmt.Fprintln(cmd.OutOrStdout(), t)
				}
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "create or update the cases and incidents tables",
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := openLedgerDB(cmd.Context())
				if err != nil {
					return err
				}

				defer func() { _ = client.Close() }()

				if err := client.Migrate(cmd.Context(), model.All()...); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tables\n", len(model.All()))

				return nil
			},
		},
		&cobra.Command{
			Use:   "ping",
			Short: "check that the ledger database is reachable",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
				defer cancel()

				client, err := openLedgerDB(ctx)
				if err != nil {
					return err
				}

				defer func() { _ = client.Close() }()

				start := time.Now()
				if err := client.HealthCheck(ctx); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s ok (%s)\n", configs.GetConfig().DB.GetDBType(), time.Since(start).Round(time.Millisecond))

				return nil
			},
		},
	)

	rootCmd.AddCommand(dbCmd)
}
