package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/casevault/pkg/internal/storage"
	kv "github.com/yeisme/casevault/pkg/internal/storage/kv"
)

var (
	kvCmd = &cobra.Command{
		Use:   "kv",
		Short: "Ledger cache (key-value store) commands",
	}

	kvTypesCmd = &cobra.Command{
		Use:   "types",
		Short: "list all registered kv types",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered kv types:")

			for _, t := range kv.GetRegisteredKVTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	kvFlushCmd = &cobra.Command{
		Use:   "flush [kind [id]]",
		Short: "drop cached attachment ledgers, optionally for one kind or one record",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "ledger.*"

			switch len(args) {
			case 1:
				pattern = "ledger." + args[0] + ".*"
			case 2:
				ref, err := parseOwnerArgs(args)
				if err != nil {
					return err
				}

				pattern = "ledger." + string(ref.Kind) + "." + ref.IDString()
			}

			return withStorage(cmd.Context(), func(ctx context.Context, mgr *storage.Manager) error {
				if mgr.Cache == nil {
					return errors.New("kv is not configured")
				}

				n, err := mgr.Cache.Clear(ctx, pattern)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached ledgers matching %s\n", n, pattern)

				return nil
			})
		},
	}
)

// registerKVCommands 注册 KV 相关命令.
func registerKVCommands() {
	rootCmd.AddCommand(kvCmd)
	kvCmd.AddCommand(kvTypesCmd, kvFlushCmd)
}
