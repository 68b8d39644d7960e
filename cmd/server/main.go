package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/viewdesk/viewdesk/config"
	"github.com/viewdesk/viewdesk/internal/api"
	"github.com/viewdesk/viewdesk/internal/api/handlers"
	"github.com/viewdesk/viewdesk/internal/api/middleware"
	"github.com/viewdesk/viewdesk/internal/core/auth"
	"github.com/viewdesk/viewdesk/internal/core/chat"
	"github.com/viewdesk/viewdesk/internal/core/console"
	"github.com/viewdesk/viewdesk/internal/core/draft"
	"github.com/viewdesk/viewdesk/internal/core/history"
	"github.com/viewdesk/viewdesk/internal/core/profile"
	"github.com/viewdesk/viewdesk/internal/core/validation"
	"github.com/viewdesk/viewdesk/internal/discover"
	"github.com/viewdesk/viewdesk/internal/storage/backend"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Validate critical configuration
	if cfg.Operator.AuthEnabled() && cfg.JWT.Secret == "" {
		log.Fatalf("JWT_SECRET environment variable is required when OPERATOR_PASSWORD_HASH is set")
	}
	if !cfg.Operator.AuthEnabled() {
		log.Println("Operator authentication disabled (no OPERATOR_PASSWORD_HASH)")
	}

	ctx := context.Background()

	// Open the key-value store
	kv, closeStore, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Storage.Driver, err)
	}
	defer closeStore()

	// Initialize services
	validator := validation.NewValidator()
	authService := auth.NewService(cfg.Operator, &cfg.JWT)
	profileService := profile.NewService(kv, validator)
	historyStore := history.NewStore(kv, cfg.History.Limit)
	chatService := chat.NewService(kv, chat.NewOpenAICompleter(cfg.OpenAI), validator, cfg.OpenAI.Temperature)
	consoleService := console.NewService(console.Deps{
		KV:       kv,
		Profiles: profileService,
		API:      discover.NewClient(cfg.Discover),
		Mapper: draft.NewMapper(draft.MapperOptions{
			EmitScheduleStrategy:       cfg.Discover.EmitScheduleStrategy,
			TreeFacetsExcludeRedundant: cfg.Discover.TreeFacetsExcludeRedundant,
		}),
		History: historyStore,
		Handoff: chatService,
	})

	if migrated, err := profileService.MigrateLegacy(ctx); err != nil {
		log.Printf("Legacy settings migration failed: %v", err)
	} else if migrated {
		log.Println("Migrated legacy settings to a profile")
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)
	defer rateLimiter.Stop()

	// Setup router
	router := api.NewRouter(authService, rateLimiter, api.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Console:    handlers.NewConsoleHandler(consoleService),
		View:       handlers.NewViewHandler(consoleService),
		Draft:      handlers.NewDraftHandler(consoleService),
		History:    handlers.NewHistoryHandler(consoleService),
		Compare:    handlers.NewCompareHandler(consoleService),
		Navigation: handlers.NewNavigationHandler(consoleService),
		Profile:    handlers.NewProfileHandler(profileService, consoleService),
		Chat:       handlers.NewChatHandler(chatService, profileService),
	})

	engine := router.Setup(cfg.Server.Mode)

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")
		rateLimiter.Stop()
		closeStore()
		os.Exit(0)
	}()

	// Start server
	log.Printf("Starting server on port %s (storage: %s)", cfg.Server.Port, cfg.Storage.Driver)
	if err := engine.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
