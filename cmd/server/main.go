package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harshchoudhary100/my-chat-box/internal/api"
	"github.com/harshchoudhary100/my-chat-box/internal/auth"
	"github.com/harshchoudhary100/my-chat-box/internal/config"
	"github.com/harshchoudhary100/my-chat-box/internal/core"
	"github.com/harshchoudhary100/my-chat-box/internal/logging"
	"github.com/harshchoudhary100/my-chat-box/internal/store"
)

func main() {
	config.LoadConfig()
	logging.Init(config.AppConfig.Env)

	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer dbStore.Close()

	llmService, err := core.NewLLMService(config.AppConfig.GeminiAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize LLM client")
	}
	defer llmService.Close()

	revocations := auth.NewRevocationList()
	userService := core.NewUserService(dbStore, config.AppConfig.BcryptCost)
	chatService := core.NewChatService(dbStore, llmService,
		time.Duration(config.AppConfig.LLMTimeoutSeconds)*time.Second)

	apiHandler := api.NewAPIHandler(userService, chatService, revocations, []byte(config.AppConfig.JWTSecret))
	router := api.NewRouter(apiHandler, config.AppConfig.CORSOrigin)

	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("could not listen on %s", serverAddr)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exiting gracefully")
}
