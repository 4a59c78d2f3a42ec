package cmd

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yeisme/casevault/pkg/configs"
	"github.com/yeisme/casevault/pkg/internal/model"
	"github.com/yeisme/casevault/pkg/internal/service"
	"github.com/yeisme/casevault/pkg/internal/storage"
)

var (
	attachmentsCmd = &cobra.Command{
		Use:     "attachments",
		Short:   "Evidence attachment ledger commands",
		Aliases: []string{"att"},
	}

	attachmentsListCmd = &cobra.Command{
		Use:     "list <cases|incidents> <id>",
		Short:   "list the attachments of a case or incident",
		Aliases: []string{"ls", "l"},
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseOwnerArgs(args)
			if err != nil {
				return err
			}

			return withStorage(cmd.Context(), func(ctx context.Context, _ *storage.Manager) error {
				files, err := service.NewAttachmentService(service.DepsFromContext(ctx)).List(ctx, ref)
				if err != nil {
					return err
				}

				for _, f := range files {
					uploaded := "-"
					if f.UploadedAt != nil {
						uploaded = f.UploadedAt.Format("2006-01-02 15:04:05")
					}

					fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-19s %s (%s)\n",
						humanize.IBytes(uint64(f.Size)), uploaded, f.Filename, f.OriginalName)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%d files\n", len(files))

				return nil
			})
		},
	}

	attachmentsPurgeCmd = &cobra.Command{
		Use:   "purge <cases|incidents> <id>",
		Short: "delete every stored object of a case or incident, the ledger is left untouched",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseOwnerArgs(args)
			if err != nil {
				return err
			}

			return withStorage(cmd.Context(), func(ctx context.Context, _ *storage.Manager) error {
				ctx = service.WithActor(ctx, "cli")

				n, err := service.NewAttachmentService(service.DepsFromContext(ctx)).PurgeAll(ctx, ref, service.PurgeReasonManual)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "purged %d objects from %s\n", n, ref)

				return nil
			})
		},
	}

	attachmentsSweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "remove blobs that no ledger references",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd.Context(), func(ctx context.Context, _ *storage.Manager) error {
				d := service.DepsFromContext(ctx)

				report, err := service.NewSweeper(d, configs.GetConfig().Jobs.OrphanGrace).Run(service.WithActor(ctx, "cli"))
				if err != nil {
					return err
				}

				b, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), string(b))

				return nil
			})
		},
	}
)

func parseOwnerArgs(args []string) (model.OwnerRef, error) {
	kind, err := model.ParseOwnerKind(args[0])
	if err != nil {
		return model.OwnerRef{}, err
	}

	id, err := model.ParseOwnerID(args[1])
	if err != nil {
		return model.OwnerRef{}, err
	}

	return model.OwnerRef{Kind: kind, ID: id}, nil
}

// registerAttachmentsCommands 注册附件相关命令.
func registerAttachmentsCommands() {
	rootCmd.AddCommand(attachmentsCmd)
	attachmentsCmd.AddCommand(attachmentsListCmd)
	attachmentsCmd.AddCommand(attachmentsPurgeCmd)
	attachmentsCmd.AddCommand(attachmentsSweepCmd)
}
