package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/agentmail-dev/agentmail/agent"
	"github.com/agentmail-dev/agentmail/api"
	"github.com/agentmail-dev/agentmail/config"
	"github.com/agentmail-dev/agentmail/db"
	"github.com/agentmail-dev/agentmail/log"
	"github.com/agentmail-dev/agentmail/ratelimit"
	"github.com/agentmail-dev/agentmail/render"
	"github.com/agentmail-dev/agentmail/sender"
	"github.com/agentmail-dev/agentmail/vendors"
	"github.com/agentmail-dev/agentmail/workers/mailq"
)

func main() {
	cfg := config.Get()

	// Initialize database
	_ = db.GetDB()
	log.Info().Str("path", cfg.DatabasePath).Msg("database initialized")

	// Set Gin to release mode to disable its default debug logging
	// We use our own zerolog-based request logger instead
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(log.GinLogger())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	if !cfg.IsDevelopment() {
		r.Use(securityHeadersMiddleware())
	}

	r.SetTrustedProxies(nil)

	// Wire agent routing and processing
	kv := db.KVStore{}
	llm := vendors.GetOpenAIClient()
	router := agent.NewRouter(llm, agent.NewPromptCache(kv), agent.Options{
		Domain:             cfg.AgentDomain,
		Search:             agent.NewDuckDuckGoClient(cfg.SearchBaseURL),
		Renderer:           render.NewGoldmarkRenderer(),
		ResearchPostFilter: cfg.ResearchPostFilter,
	})
	limiter := ratelimit.New(kv, cfg.RateLimit, cfg.RateLimitWindow)
	mail := sender.New(cfg)

	worker := mailq.NewWorker(mailq.Config{
		QueueSize:   cfg.QueueSize,
		Workers:     cfg.QueueWorkers,
		MaxAttempts: cfg.QueueMaxAttempts,
	}, router, limiter, mail)

	handlers := api.NewHandlers(worker, cfg.AgentDomain, cfg.WebhookSecret)
	api.SetupRoutes(r, handlers)

	log.Info().Msg("starting background workers")
	worker.Start()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:     addr,
		Handler:  r,
		ErrorLog: log.StdErrorLogger(),
	}

	go func() {
		log.Info().
			Str("addr", addr).
			Str("env", cfg.Env).
			Str("domain", cfg.AgentDomain).
			Msg("server starting")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop the worker first so in-flight emails finish before the db closes
	worker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("database close error")
	}

	log.Info().Msg("server stopped")
}

// securityHeadersMiddleware adds security headers to all responses
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "SAMEORIGIN")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}
