package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trivia-service/internal/config"
	"trivia-service/internal/logger"
)

var (
	port       string
	configPath string
	serverURL  string
)

// Execute runs the CLI.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}
	envServer := os.Getenv("TRIVIA_SERVER")

	cmd := &cobra.Command{
		Use:          "trivia",
		Short:        "Timed trivia quiz with a paginated leaderboard",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port to listen on (overrides server.port)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&serverURL, "server", envServer, "base URL of the trivia API for client commands")

	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewPlayCmd(&configPath, &serverURL))
	cmd.AddCommand(NewLeaderboardCmd(&configPath, &serverURL))
	cmd.AddCommand(NewResetCmd(&configPath, &serverURL))
	return cmd
}

// loadRuntime reads the config and builds the process logger from it.
func loadRuntime(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger.New(cfg.Log), nil
}
