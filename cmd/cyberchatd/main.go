package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/dhkiller350/cyber-chat/internal/server/config"
	"github.com/dhkiller350/cyber-chat/internal/server/handler"
	"github.com/dhkiller350/cyber-chat/internal/server/hub"
	"github.com/dhkiller350/cyber-chat/internal/server/service"
	"github.com/dhkiller350/cyber-chat/internal/server/store"
	"github.com/dhkiller350/cyber-chat/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(log.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "cyberchatd",
	})
	logger := log.L()

	var modStore store.ModerationStore
	if cfg.Redis.Enabled {
		redisStore, err := store.NewRedisStore(cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		modStore = redisStore
		logger.Info().Str("address", cfg.Redis.Address).Msg("moderation state backed by redis")
	} else {
		modStore = store.NewMemoryStore()
		logger.Info().Msg("moderation state held in memory")
	}
	defer modStore.Close()

	wsHub := hub.NewHub()
	chatSvc := service.NewChatService(wsHub, modStore, cfg.Moderation)

	wsHandler := handler.NewWSHandler(wsHub, chatSvc, cfg.WebSocket)
	apiHandler := handler.NewHTTPHandler(wsHub)

	router := mux.NewRouter()
	handler.RegisterRoutes(router, wsHandler, apiHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("address", server.Addr).Msg("cyberchatd listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info().Msg("shutdown signal received")
	case by := <-chatSvc.ShutdownRequested():
		logger.Info().Str(log.FieldUsername, by).Msg("shutdown requested by host")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	logger.Info().Msg("cyberchatd stopped")
}
