package server

import (
	"embed"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"cipherbot/apps/backend/internal/chat"
	"cipherbot/apps/backend/internal/config"
	"cipherbot/apps/backend/internal/llm"
	"cipherbot/apps/backend/internal/store"
)

//go:embed static/index.html
var staticFiles embed.FS

const genericFailureMessage = "Something went wrong. Please try again."

type App struct {
	cfg     config.Config
	store   store.Driver
	chat    *chat.Service
	limiter *clientRateLimiter
	now     func() time.Time
}

func New(cfg config.Config, driver store.Driver, client llm.Client) *App {
	return &App{
		cfg:     cfg,
		store:   driver,
		chat:    chat.NewService(driver, client),
		limiter: newClientRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		now:     time.Now,
	}
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(requestIDMiddleware(), accessLogMiddleware(), gin.CustomRecovery(a.recoverPanic))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: !allowsAnyOrigin(a.cfg.CORSAllowOrigins),
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", a.index)
	router.GET("/health", a.health)
	router.POST("/chat", a.rateLimitMiddleware(), a.postChat)

	return router
}

func (a *App) index(c *gin.Context) {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		log.Error().Err(err).Msg("[server] index page missing")
		writeError(c, http.StatusInternalServerError, genericFailureMessage)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": a.now().Format(time.RFC3339Nano),
	})
}

func (a *App) recoverPanic(c *gin.Context, recovered any) {
	log.Error().
		Interface("panic", recovered).
		Str("request_id", c.GetString(requestIDKey)).
		Str("path", c.Request.URL.Path).
		Msg("[server] recovered from panic")
	writeError(c, http.StatusInternalServerError, genericFailureMessage)
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// mustJSON binds the body. A body that cannot be decoded is reported as the
// generic failure.
func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		log.Warn().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("[server] undecodable request body")
		writeError(c, http.StatusInternalServerError, genericFailureMessage)
		return false
	}
	return true
}

func allowsAnyOrigin(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
