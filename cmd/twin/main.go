package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pysugar/digital-twin/internal/auth/google"
	"github.com/pysugar/digital-twin/internal/auth/notion"
	"github.com/pysugar/digital-twin/internal/auth/session"
	"github.com/pysugar/digital-twin/internal/auth/state"
	"github.com/pysugar/digital-twin/internal/config"
	"github.com/pysugar/digital-twin/internal/crypto"
	"github.com/pysugar/digital-twin/internal/db"
	"github.com/pysugar/digital-twin/internal/db/models"
	"github.com/pysugar/digital-twin/internal/llm"
	"github.com/pysugar/digital-twin/internal/orchestrator"
	"github.com/pysugar/digital-twin/internal/server/handlers"
	"github.com/pysugar/digital-twin/internal/server/middleware"
	"github.com/pysugar/digital-twin/internal/services/calendar"
	"github.com/pysugar/digital-twin/internal/services/gmail"
	notionsvc "github.com/pysugar/digital-twin/internal/services/notion"
	"github.com/pysugar/digital-twin/internal/tools"
	"github.com/pysugar/digital-twin/internal/vault"
	"github.com/pysugar/digital-twin/internal/version"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.SecretKey == "" {
		log.Fatalf("SECRET_KEY is required")
	}

	// Initialize database
	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Token cipher and vault
	cipher, err := crypto.NewCipher(crypto.DeriveKey(cfg.TokenKeySource()))
	if err != nil {
		log.Fatalf("Failed to initialize token cipher: %v", err)
	}
	tokenVault := vault.New(database, cipher, map[string]vault.RefreshClient{
		models.ProviderGoogle: vault.NewGoogleRefreshClient(cfg.Google.ClientID, cfg.Google.ClientSecret),
	})

	// Service clients and the tool catalog over them
	calendarClient := calendar.NewClient(tokenVault)
	gmailClient := gmail.NewClient(tokenVault)
	notionClient := notionsvc.NewClient(tokenVault)

	registry, err := tools.DefaultRegistry(calendarClient, gmailClient, notionClient)
	if err != nil {
		log.Fatalf("Failed to build tool registry: %v", err)
	}
	log.Printf("📦 Registered %d tools", registry.Len())

	// Conversation loop
	if cfg.OpenAIAPIKey == "" {
		log.Printf("⚠️ OPENAI_API_KEY is not set, chat requests will fail")
	}
	llmClient := llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.Model)
	orch := orchestrator.New(llmClient, registry, tokenVault)

	// Auth plumbing
	sessions := session.NewManager(cfg.SecretKey)
	states := state.NewStore()

	// Create router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.FrontendURL))

	r.Get("/health", handlers.HealthHandler())

	// OAuth flows
	r.Get("/auth/google/login", google.HandleLogin(cfg, states, sessions))
	r.Get("/auth/google/callback", google.HandleCallback(cfg, database, tokenVault, states, sessions))
	r.Get("/auth/notion/login", notion.HandleLogin(cfg, states, sessions))
	r.Get("/auth/notion/callback", notion.HandleCallback(cfg, database, tokenVault, states, sessions))

	// Session-scoped account routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(sessions))
		r.Get("/auth/me", handlers.MeHandler(database, tokenVault))
		r.Delete("/auth/disconnect/{provider}", handlers.DisconnectHandler(tokenVault, sessions))
	})

	r.Post("/auth/logout", handlers.LogoutHandler(sessions))

	// Chat works with or without a session; tools need one
	r.Post("/chat", handlers.ChatHandler(orch, sessions))

	addr := cfg.ListenAddr()
	log.Printf("🚀 Digital Twin %s listening on %s (model %s)", version.Version, addr, cfg.Model)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
