package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kgo"

	"regulus/internal/adapters/ledger"
	"regulus/internal/platform/kafka"
	"regulus/internal/platform/kafka/consumer"
	"regulus/internal/platform/logger"
)

func newLedgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "License ledger operations",
		Long:  "Commands for checking the license actions anchored on the ledger topic.",
	}
	cmd.AddCommand(newLedgerVerifyCmd(opts), newLedgerFollowCmd(opts))
	return cmd
}

func newLedgerVerifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Recompute the digest of every anchored license action",
		Long:  "Reads the ledger topic from the beginning up to its current end and\nrecomputes each record's canonical digest. Exits 1 on any mismatch.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			topic := opts.cfg.Kafka.LedgerTopic

			client, err := kafka.New(ctx, opts.cfg.Kafka,
				kgo.ConsumeTopics(topic),
				kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
			)
			if err != nil {
				return err
			}
			if client == nil {
				return errors.New("KAFKA_BROKERS is required")
			}
			defer client.Close()

			end, err := kafka.EndOffsets(ctx, client, topic)
			if err != nil {
				return err
			}
			v := &ledger.Verifier{}
			if _, err := consumer.ReadToEnd(ctx, client, topic, end, v); err != nil {
				return err
			}
			if err := v.Err(); err != nil {
				for _, m := range v.Mismatches {
					fmt.Fprintln(cmd.ErrOrStderr(), "MISMATCH", m)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "FAILED: %v\n", err)
				return errVerifyFailed
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d ledger records verified\n", v.Checked)
			return nil
		},
	}
}

func newLedgerFollowCmd(opts *options) *cobra.Command {
	var withNotifications bool
	cmd := &cobra.Command{
		Use:   "follow",
		Short: "Follow the ledger topic and report records as they arrive",
		Long: "Joins the auditctl consumer group and checks each new ledger record's\n" +
			"digest, logging mismatches. With --notifications the notification topic\n" +
			"is printed as well. Runs until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logger.NewWithWriter(cmd.ErrOrStderr(), opts.cfg.LogLevel)
			kcfg := opts.cfg.Kafka

			topics := []string{kcfg.LedgerTopic}
			if withNotifications {
				topics = append(topics, kcfg.NotificationTopic)
			}
			client, err := kafka.New(ctx, kcfg,
				kgo.ConsumeTopics(topics...),
				kgo.ConsumerGroup(kcfg.ConsumerGroup),
				kgo.DisableAutoCommit(),
			)
			if err != nil {
				return err
			}
			if client == nil {
				return errors.New("KAFKA_BROKERS is required")
			}
			defer client.Close()

			router := consumer.NewRouter(log, nil)
			router.Register(kcfg.LedgerTopic, ledgerFollower(log))
			if withNotifications {
				router.Register(kcfg.NotificationTopic, printer(cmd))
			}

			c, err := consumer.New(client, router, log)
			if err != nil {
				return err
			}
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withNotifications, "notifications", false, "Also print the notification topic")
	return cmd
}

// ledgerFollower verifies one record at a time and logs the outcome.
func ledgerFollower(log *slog.Logger) consumer.Handler {
	return consumer.HandlerFunc(func(ctx context.Context, msg *consumer.Message) error {
		v := &ledger.Verifier{}
		if err := v.Handle(ctx, msg); err != nil {
			return err
		}
		if len(v.Mismatches) > 0 {
			log.ErrorContext(ctx, "ledger record digest mismatch", "record", v.Mismatches[0])
			return nil
		}
		log.InfoContext(ctx, "ledger record verified",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"license_number", string(msg.Key),
		)
		return nil
	})
}

func printer(cmd *cobra.Command) consumer.Handler {
	return consumer.HandlerFunc(func(_ context.Context, msg *consumer.Message) error {
		var v any
		if err := json.Unmarshal(msg.Value, &v); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), string(msg.Value))
			return nil
		}
		out, _ := json.Marshal(map[string]any{"topic": msg.Topic, "key": string(msg.Key), "value": v})
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	})
}
