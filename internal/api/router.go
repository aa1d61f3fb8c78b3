package api

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bsrmarket/marketplace/internal/audit"
	"github.com/bsrmarket/marketplace/internal/config"
	"github.com/bsrmarket/marketplace/internal/metrics"
	"github.com/bsrmarket/marketplace/internal/notify"
	"github.com/bsrmarket/marketplace/internal/storage"
)

// Handler carries the dependencies every endpoint needs. It is built once
// in main and owns no state of its own.
type Handler struct {
	cfg      *config.Config
	db       *storage.Database
	notifier *notify.Notifier
	audit    *audit.Logger
}

func NewHandler(cfg *config.Config, db *storage.Database, notifier *notify.Notifier, auditLog *audit.Logger) *Handler {
	return &Handler{cfg: cfg, db: db, notifier: notifier, audit: auditLog}
}

func init() {
	// Validation errors should name fields the way the JSON body spells
	// them, not the Go struct fields.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// Router assembles the full HTTP surface.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), metrics.PrometheusMiddleware())

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		fail(c, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if h.cfg.Production() {
		api.Use(rateLimiter(h.db, h.cfg.RateLimitRequests, h.cfg.RateLimitWindow))
	}

	api.GET("/users", h.usersGet)
	api.POST("/users", h.usersPost)
	api.PUT("/users", h.usersPut)

	api.GET("/listings", h.listListings)
	api.POST("/listings", h.createListing)
	api.DELETE("/listings", h.deleteListing)

	api.GET("/bookmarks", h.listBookmarks)
	api.POST("/bookmarks", h.toggleBookmark)

	api.GET("/messages", h.listMessages)
	api.POST("/messages", h.sendMessage)
	api.PUT("/messages", h.markMessageRead)

	api.GET("/transactions", h.transactionsGet)
	api.POST("/transactions", h.transactionsPost)
	api.PUT("/transactions", h.transactionsPut)

	api.GET("/reports", h.reportsGet)
	api.POST("/reports", h.reportsPost)
	api.PUT("/reports", h.reportsPut)

	return r
}

// invalidAction is the shared answer for an unknown action parameter.
func invalidAction(c *gin.Context) {
	fail(c, http.StatusBadRequest, "Invalid action")
}
