package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/radarcol/radarcol/internal/analysis"
	"github.com/radarcol/radarcol/internal/cache"
	"github.com/radarcol/radarcol/internal/config"
	"github.com/radarcol/radarcol/internal/narrative"
	"github.com/radarcol/radarcol/internal/secop"
	"github.com/radarcol/radarcol/internal/service"
)

func main() {
	cfg := config.Load()

	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Analysis engine: artifacts load once here, immutable afterwards
	engine := analysis.NewEngine(cfg.ArtifactsDir, analysis.Options{
		EnableEmbeddings: cfg.EnableEmbeddings,
		EmbeddingDim:     cfg.EmbeddingDim,
	})

	if cfg.GroqAPIKey != "" {
		client := narrative.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel)
		engine.WithNarrator(narrative.NewGenerator(client))
		slog.Info("Narrative generation enabled", "model", cfg.GroqModel)
	} else {
		slog.Warn("GROQ_API_KEY not configured, narratives fall back to canned text")
	}

	resultCache := cache.New(cfg.CacheDatabaseURL, cfg.CacheTTLDays)
	defer resultCache.Close()

	fetcher := secop.NewClient(cfg.SecopBaseURL)
	contracts := service.NewContracts(engine, resultCache, fetcher)

	// Daily housekeeping: purge expired cache rows. Reads filter by
	// expiration regardless, so this only reclaims space.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			resultCache.CleanupExpired()
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"degraded":      engine.Degraded(),
			"semantic":      engine.SemanticEnabled(),
			"cache_enabled": resultCache.Enabled(),
		})
	})

	r.GET("/contratos", func(c *gin.Context) {
		where := c.Query("where")
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if err != nil || limit < 1 || limit > 100 {
			limit = 10
		}

		result, err := contracts.ListContracts(c.Request.Context(), where, limit)
		if err != nil {
			slog.Error("Contract listing failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "No se pudo obtener la información de contratos"})
			return
		}

		c.JSON(http.StatusOK, result)
	})

	r.GET("/contratos/:id/analisis", func(c *gin.Context) {
		contractID := c.Param("id")
		if contractID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id_contrato requerido"})
			return
		}

		result, err := contracts.ContractAnalysis(c.Request.Context(), contractID)
		if err != nil {
			slog.Error("Contract analysis failed", "contract", contractID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "No se pudo analizar el contrato"})
			return
		}

		c.JSON(http.StatusOK, result)
	})

	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"enabled": resultCache.Enabled(),
			"tables":  resultCache.Stats(),
		})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Forced shutdown", "error", err)
	}
}

// requestLogger tags each request with an id and logs method, path, status
// and latency
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		slog.Info("HTTP Request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
