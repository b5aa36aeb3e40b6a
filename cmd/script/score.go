package main

import (
	"context"
	"fmt"
	"time"

	"web3-token-agent/internal/worker/action"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/runtime"
	"web3-token-agent/pkg/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scoreTicker  string
	scoreAddress string
	scoreChain   string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a token once",
	Long:  `Runs the scoring action for one token and prints every response. Non-neutral scores are persisted.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, span := logger.StartSpan(context.Background(), "script", "score")
		defer span.End()
		e := setup(ctx)
		defer e.repo.Close()

		a := e.agent(ctx)
		defer a.Close()

		start := time.Now()
		msg := &model.Message{
			UserID: "cli",
			RoomID: "cli-" + uuid.NewString(),
			Content: model.Content{
				Text:   fmt.Sprintf("score %s", scoreTicker),
				Action: action.ScoreTokenName,
				Source: "cli",
				Data: map[string]any{
					"ticker":            scoreTicker,
					"inputTokenAddress": scoreAddress,
					"chain":             scoreChain,
				},
			},
		}
		var out runtime.Collector
		if err := a.Runtime.Dispatch(ctx, msg, out.Callback); err != nil {
			exit(err)
		}
		for _, c := range out.Contents {
			fmt.Println(c.Text)
			for _, att := range c.Attachments {
				fmt.Printf("  [%s] %s\n", att.Title, att.URL)
			}
		}
		e.tl.Info("Task completed successfully", zap.Duration("taken_time", time.Since(start)))
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreTicker, "ticker", "", "Token ticker")
	scoreCmd.Flags().StringVar(&scoreAddress, "address", "", "Token contract or mint address")
	scoreCmd.Flags().StringVar(&scoreChain, "chain", "base", "Chain name")

	_ = scoreCmd.MarkFlagRequired("address")
}
