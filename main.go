package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ctachat/controller"
	"ctachat/model"
	"ctachat/platform"
	"ctachat/service"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	"github.com/robfig/cron/v3"
)

func main() {
	fmt.Println("Server started...")

	//Load the .env file
	if err := godotenv.Load(".env"); err != nil {
		fmt.Println("failed to load the env file")
	}
	cfg := platform.LoadConfig()

	logger := platform.InitAppLogger(cfg.LogPath, "gin", cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %s", err)
	}

	//init database
	db, err := platform.OpenDB(cfg.DB)
	if err != nil {
		logger.Fatalf("failed to connect to database: %s", err)
	}
	defer platform.CloseDB(db)
	if err := model.InstallDB(db); err != nil {
		logger.Fatalf("failed to migrate database: %s", err)
	}

	registry := platform.NewRegistry()
	metrics := service.NewMetrics(registry)

	provider := service.NewProvider(cfg.LLM.Mode, func() *openai.Client {
		return platform.NewLLMClient(cfg.LLM)
	}, cfg.LLM.Model, cfg.LLM.EmbeddingModel, cfg.LLM.MaxTokens)
	generator := service.NewGenerator(provider, service.GeneratorOptions{
		Timeout:      cfg.LLM.Timeout,
		SystemPrompt: cfg.LLM.SystemPrompt,
		RPS:          cfg.LLM.RPS,
		Burst:        cfg.LLM.Burst,
		Embeddings:   cfg.EnableEmbeddings,
	}, logger, metrics)
	logger.Infof("reply provider %s (%s)", provider.Name(), provider.Model())

	tasks := service.NewTaskRegistry()
	conversations := service.NewConversationService(db, generator, tasks, service.Options{
		ReplyTimeout:     cfg.ReplyTimeout,
		EnableEmbeddings: cfg.EnableEmbeddings,
		SerializeReplies: cfg.SerializeReplies,
	}, logger, metrics)
	tokens := service.NewTokenService(cfg.AccessSecret, cfg.TokenTTL)
	users := service.NewUserService(db, service.BcryptHasher{}, tokens, logger)

	c := cron.New()
	if _, err := tasks.SchedulePrune(c, cfg.TaskPruneCron, cfg.TaskTTL, logger); err != nil {
		logger.Fatalf("invalid TASK_PRUNE_CRON %q: %s", cfg.TaskPruneCron, err)
	}
	c.Start()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := controller.NewRouter(controller.RouterConfig{
		CORSOrigin:    cfg.CORSOrigin,
		RequireAuth:   cfg.RequireAuth,
		Conversations: conversations,
		Users:         users,
		Tokens:        tokens,
		Registry:      registry,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s", err)
		}
	}()
	logger.Infof("listening on :%s", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ReplyTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("server shutdown: %s", err)
	}
	<-c.Stop().Done()
	if err := conversations.Wait(ctx); err != nil {
		logger.Warnf("background replies still running at exit: %s", err)
	}
}
