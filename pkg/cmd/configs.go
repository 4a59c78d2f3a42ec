package cmd

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/casevault/pkg/configs"
)

// secretKeys 输出配置时按字段名（不区分大小写）遮蔽的片段.
var secretKeys = []string{"password", "secret", "jwt", "nkey", "dsn"}

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "inspect the effective configuration",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the config file in use",
		Run: func(cmd *cobra.Command, args []string) {
			used := configs.GetViper().ConfigFileUsed()
			if used == "" {
				used = "(none, defaults and CASEVAULT_* environment only)"
			}

			fmt.Fprintln(cmd.OutOrStdout(), used)
		},
	}

	configShowCmd = &cobra.Command{
		Use:     "show",
		Aliases: []string{"debug"},
		Short:   "print the effective config with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				configs.GetViper().Debug()
			}

			raw, err := sonic.Marshal(configs.GetConfig())
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}

			var tree map[string]any
			if err := sonic.Unmarshal(raw, &tree); err != nil {
				return fmt.Errorf("unmarshal config: %w", err)
			}

			maskSecrets(tree)

			out, err := sonic.ConfigStd.MarshalIndent(tree, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			return nil
		},
	}

	configValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "check the config against its validation rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configs.GetConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "config ok")

			return nil
		},
	}
)

func maskSecrets(tree map[string]any) {
	for k, v := range tree {
		switch val := v.(type) {
		case map[string]any:
			maskSecrets(val)
		case string:
			if val != "" && isSecretKey(k) {
				tree[k] = "******"
			}
		}
	}
}

func isSecretKey(k string) bool {
	k = strings.ToLower(k)
	for _, s := range secretKeys {
		if strings.Contains(k, s) {
			return true
		}
	}

	return false
}

func registerConfigsCommands() {
	configCmd.AddCommand(configPathCmd, configShowCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
