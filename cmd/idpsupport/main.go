package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"idpsupport/internal/app/events"
	domainchat "idpsupport/internal/domain/chat"
	domainuser "idpsupport/internal/domain/user"
	"idpsupport/internal/infra/broker/kafka"
	"idpsupport/internal/infra/config"
	mongostore "idpsupport/internal/infra/db/mongo"
	ginserver "idpsupport/internal/infra/http/gin"
	"idpsupport/internal/infra/obs"
	"idpsupport/internal/infra/security"
	"idpsupport/internal/infra/storage/memory"
	"idpsupport/internal/realtime"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		cfg.StorageMode = "memory"
		cfg.ShutdownTimeout = 5 * time.Second
	}

	stores, cleanup, err := buildStores(cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	emitter, emitterClose := buildEmitter(cfg, logger)
	defer emitterClose()
	registry := realtime.NewRegistry()
	coordinator := &realtime.Coordinator{
		Registry: registry,
		Chats:    stores.chats,
		Messages: stores.messages,
		Users:    stores.users,
		Emitter:  emitter,
		Logger:   logger,
	}

	verifier := security.TokenVerifier{Secret: []byte(cfg.JWTSecret)}
	handlers := ginserver.Handlers{
		Chat: ginserver.ChatHandler{
			Chats:    stores.chats,
			Messages: stores.messages,
			Users:    stores.users,
			Emitter:  emitter,
			Logger:   logger,
		},
		WS: &ginserver.WSHandler{
			Coordinator:    coordinator,
			Verifier:       verifier,
			AllowedOrigins: cfg.AllowedOrigins,
			Logger:         logger,
		},
		AuthMiddleware: ginserver.AuthMiddleware{Verifier: verifier, Logger: logger}.Handle,
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: stores.ready,
	}, handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "env", cfg.Env, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type stores struct {
	chats    domainchat.ConversationRepository
	messages domainchat.MessageRepository
	users    domainuser.Repository
	ready    func() error
}

func buildStores(cfg config.Config, logger *slog.Logger) (stores, func(), error) {
	if cfg.StorageMode == "mongo" {
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return stores{}, func() {}, err
		}
		logger.Info("mongo connected", "db", cfg.MongoDB)
		cleanup := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Close(closeCtx); err != nil {
				logger.Warn("mongo disconnect failed", "error", err)
			}
		}
		return stores{
			chats:    mongostore.NewChatRepository(client.DB),
			messages: mongostore.NewMessageRepository(client.DB),
			users:    mongostore.NewUserRepository(client.DB),
			ready: func() error {
				pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return client.Ping(pingCtx)
			},
		}, cleanup, nil
	}

	logger.Info("using in-memory storage")
	return stores{
		chats:    memory.NewConversationRepository(),
		messages: memory.NewMessageRepository(),
		users:    memory.NewUserRepository(),
		ready:    func() error { return nil },
	}, func() {}, nil
}

func buildEmitter(cfg config.Config, logger *slog.Logger) (*events.Emitter, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka disabled, chat events will not be published")
		return &events.Emitter{Logger: logger}, func() {}
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		logger.Warn("kafka producer init failed, chat events disabled", "error", err)
		return &events.Emitter{Logger: logger}, func() {}
	}
	logger.Info("kafka producer connected", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	emitter := &events.Emitter{
		Producer: producer,
		Topic:    cfg.KafkaTopic,
		Logger:   logger,
	}
	return emitter, func() {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
