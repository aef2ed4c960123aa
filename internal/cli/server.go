package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trivia-service/internal/app"
	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
	"trivia-service/internal/infra/postgres"
	"trivia-service/internal/infra/rabbitmq"
	rediscache "trivia-service/internal/infra/redis"
	"trivia-service/internal/metrics"
	transport "trivia-service/internal/transport/http"
)

const defaultBankID = "default"

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, log, err := loadRuntime(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := config.StringOr(portFlag, config.StringOr(cfg.Server.Port, "8080"))

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var players app.PlayerRepository = memory.NewPlayerStore()
	if pool != nil {
		players = postgres.NewPlayerStore(pool)
	}
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		players = rediscache.NewLeaderboardCache(redisClient, players, config.TTLDuration(cfg.Redis.TTL, 30*time.Second))
		log.Info("leaderboard cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	var questionLoader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleBanks())
	switch {
	case pool != nil:
		questionLoader = postgres.NewQuestionLoader(pool)
	case cfg.Quiz.QuestionsFile != "":
		questionLoader = memory.NewFileQuestionLoader(cfg.Quiz.QuestionsFile)
	}
	questionRepo := memory.NewQuestionRepository(questionLoader, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))

	playerOpts := []app.PlayerOption{app.WithLogger(log)}
	if cfg.RabbitMQ.URL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, config.StringOr(cfg.RabbitMQ.Queue, "trivia.events"))
		if err != nil {
			return err
		}
		defer publisher.Close()
		playerOpts = append(playerOpts, app.WithEvents(publisher))
	}

	board := app.NewLeaderboardService(players, cfg.Leaderboard.DefaultLimit, cfg.Leaderboard.MaxLimit)
	feed := app.NewLeaderboardFeed(board, cfg.Leaderboard.FeedSize)
	playerService := app.NewPlayerService(players, append(playerOpts, app.WithFeed(feed))...)
	questionService := app.NewQuestionService(questionRepo, config.StringOr(cfg.Quiz.BankID, defaultBankID))

	metrics.Init()
	gin.SetMode(gin.ReleaseMode)
	router := transport.NewRouter(
		transport.NewHandler(playerService, board, questionService, log),
		transport.NewWSHandler(feed, log),
		log,
		transport.RouterConfig{ResetPerMinute: cfg.Server.ResetPerMinute},
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting trivia service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBanks is served when neither Postgres nor a questions file is configured.
func sampleBanks() map[string]domain.QuestionBank {
	return map[string]domain.QuestionBank{
		defaultBankID: {
			ID: defaultBankID,
			Questions: []domain.Question{
				{Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOptionIndex: 1},
				{Text: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Jupiter"}, CorrectOptionIndex: 1},
				{Text: "How many continents are there?", Options: []string{"5", "6", "7", "8"}, CorrectOptionIndex: 2},
			},
		},
	}
}
