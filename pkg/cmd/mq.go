package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/spf13/cobra"

	"github.com/yeisme/casevault/pkg/internal/storage"
	mq "github.com/yeisme/casevault/pkg/internal/storage/mq"
	"github.com/yeisme/casevault/pkg/queue"
)

var (
	mqCmd = &cobra.Command{
		Use:   "mq",
		Short: "Attachment event queue commands",
	}

	mqTypesCmd = &cobra.Command{
		Use:   "types",
		Short: "list all registered mq types",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered mq types:")

			for _, t := range mq.GetRegisteredMQTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	mqTailCmd = &cobra.Command{
		Use:   "tail [topic...]",
		Short: "print attachment events as they arrive (all attachment topics by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			topics := args
			if len(topics) == 0 {
				topics = queue.AttachmentTopics
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withStorage(ctx, func(ctx context.Context, mgr *storage.Manager) error {
				if mgr.MQ == nil {
					return errors.New("mq is not configured")
				}

				var (
					wg  sync.WaitGroup
					out sync.Mutex
				)

				for _, topic := range topics {
					msgs, err := mgr.MQ.Subscribe(ctx, topic)
					if err != nil {
						return fmt.Errorf("subscribe %s: %w", topic, err)
					}

					wg.Add(1)

					go func() {
						defer wg.Done()

						for msg := range msgs {
							out.Lock()
							printEvent(cmd, topic, msg)
							out.Unlock()
							msg.Ack()
						}
					}()
				}

				wg.Wait()

				return nil
			})
		},
	}
)

func printEvent(cmd *cobra.Command, topic string, msg *message.Message) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", topic, msg.UUID, msg.Payload)
}

// registerMQCommands 注册 MQ 相关命令.
func registerMQCommands() {
	rootCmd.AddCommand(mqCmd)
	mqCmd.AddCommand(mqTypesCmd, mqTailCmd)
}
