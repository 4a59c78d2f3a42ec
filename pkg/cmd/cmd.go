// Package cmd contains the command line applications for the project.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeisme/casevault/pkg/app"
	"github.com/yeisme/casevault/pkg/configs"
	ctxPkg "github.com/yeisme/casevault/pkg/context"
	"github.com/yeisme/casevault/pkg/internal/storage"
)

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:           "casevault",
		Short:         "Evidence attachment ledger for case management",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.NewApp(ctx, cfgFile)
			if err != nil {
				return err
			}

			return a.Run(ctx)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print viper debug output")

	rootCmd.AddCommand(serveCmd)
	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerMQCommands()
	registerBlobCommands()
	registerAttachmentsCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// loadConfig 加载配置文件，供不启动服务的子命令使用.
func loadConfig() error {
	return configs.InitConfig(cfgFile)
}

// withStorage 加载配置并初始化存储，ctx 中携带存储管理器.
func withStorage(ctx context.Context, fn func(ctx context.Context, mgr *storage.Manager) error) error {
	if err := loadConfig(); err != nil {
		return err
	}

	mgr, err := storage.NewManager(ctx, configs.GetConfig())
	if err != nil {
		return err
	}

	defer func() { _ = mgr.Close() }()

	return fn(ctxPkg.WithStorageManager(ctx, mgr), mgr)
}
