package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yeisme/casevault/pkg/configs"
	"github.com/yeisme/casevault/pkg/internal/storage/blob"
)

var (
	blobCmd = &cobra.Command{
		Use:   "blob",
		Short: "Evidence blob store related commands",
	}

	blobTypesCmd = &cobra.Command{
		Use:   "types",
		Short: "list all registered blob store types",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered blob types:")

			for _, t := range blob.GetRegisteredBlobTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	blobListCmd = &cobra.Command{
		Use:     "list [prefix]",
		Short:   "list stored objects under a prefix, e.g. cases/42",
		Aliases: []string{"ls", "l"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(); err != nil {
				return err
			}

			store, err := blob.New(cmd.Context(), &configs.GetConfig().Blob)
			if err != nil {
				return err
			}

			defer func() { _ = store.Close() }()

			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}

			objs, err := store.List(cmd.Context(), prefix)
			if err != nil {
				return err
			}

			var total int64

			for _, o := range objs {
				total += o.Size
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s  %s\n",
					humanize.IBytes(uint64(o.Size)), humanize.Time(o.ModTime), o.Key)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d objects, %s\n", len(objs), humanize.IBytes(uint64(total)))

			return nil
		},
	}
)

// registerBlobCommands 注册 blob 相关命令.
func registerBlobCommands() {
	rootCmd.AddCommand(blobCmd)
	blobCmd.AddCommand(blobTypesCmd)
	blobCmd.AddCommand(blobListCmd)
}
