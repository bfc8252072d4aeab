package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contest-service/internal/app"
	"contest-service/internal/config"
	"contest-service/internal/infra/file"
	"contest-service/internal/infra/memory"
	"contest-service/internal/infra/postgres"
	infraredis "contest-service/internal/infra/redis"
	transport "contest-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const configCacheKey = "contest:questions"

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the contest server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "3000"
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var store app.SubmissionStore = memory.NewSubmissionStore()
	if pool != nil {
		store = postgres.NewSubmissionStore(pool)
	}

	loader := buildConfigLoader(cfg, pool)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ttl := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
		loader = infraredis.NewConfigCache(redisClient, loader, configCacheKey, ttl)
	}

	questions := app.NewQuestionSource(loader)
	// Refusing to serve with a broken grading schema beats grading with one.
	if err := questions.Load(ctx); err != nil {
		return fmt.Errorf("initial question config load: %w", err)
	}

	registry := app.NewSessionRegistry()
	service := app.NewContestService(registry, store, questions)

	adminUser, adminPass := cfg.Admin.User, cfg.Admin.Password
	if adminUser == "" {
		adminUser = "admin"
	}
	if adminPass == "" {
		return fmt.Errorf("admin password not configured")
	}

	apiHandler := transport.NewAPIHandler(service, adminUser, adminPass)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	apiHandler.Register(mux)
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/ws/admin", apiHandler.RequireAdmin(wsHandler.ServeAdminWS))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting contest service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildConfigLoader(cfg config.Config, pool *pgxpool.Pool) app.ConfigLoader {
	if cfg.Questions.Path != "" {
		return file.NewConfigLoader(cfg.Questions.Path)
	}
	if pool != nil {
		id := cfg.Questions.ID
		if id == "" {
			id = "default"
		}
		return postgres.NewConfigLoader(pool, id)
	}
	return memory.NewStaticConfigLoader(sampleQuestionConfig())
}

// sampleQuestionConfig is the built-in question set used when no file or
// database origin is configured; swap in a real origin for production runs.
func sampleQuestionConfig() []byte {
	return []byte(`{
		"q1": {"ans": "Netscape", "score": 10},
		"q2": {"keywords": ["scope", "function", "lexical"], "score": 30},
		"q3": {"keywords": ["DEBUG_MODE", "bypass", "config", "true"], "score": 40}
	}`)
}
