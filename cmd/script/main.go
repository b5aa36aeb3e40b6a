package main

import (
	"context"
	"fmt"
	"os"

	"web3-token-agent/internal/worker"
	"web3-token-agent/internal/worker/config"
	"web3-token-agent/internal/worker/repository"
	"web3-token-agent/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// 一次性任务

var rootCmd = &cobra.Command{
	Use:   "token-agent",
	Short: "Token agent one-shot tasks",
	Long:  `Runs single actions of the token agent (scoring, wallet provisioning, rating lookups) outside the worker.`,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(walletsCmd)
	rootCmd.AddCommand(ratingsCmd)
}

type env struct {
	cfg  config.Config
	tl   *zap.Logger
	repo repository.Repository
}

func setup(ctx context.Context) *env {
	cfg := config.InitConfig()

	logger.InitTrace("web3-token-agent", "script")
	rootLogger := logger.NewLogger("script", logger.WithDir(cfg.Log.Dir))
	logger.SetLogLevel(cfg.Log.Level)
	tl := logger.WithTrace(ctx, rootLogger)

	return &env{cfg: cfg, tl: tl, repo: repository.New(cfg, tl)}
}

func (e *env) agent(ctx context.Context) *worker.Agent {
	if err := e.cfg.Validate(); err != nil {
		exit(err)
	}
	a, err := worker.NewAgent(ctx, e.cfg, e.repo, e.tl)
	if err != nil {
		exit(err)
	}
	return a
}

func exit(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
