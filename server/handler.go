package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/theoremus-urban-solutions/gtfsrt-alerts/pipeline"
	"github.com/theoremus-urban-solutions/gtfsrt-alerts/store"
)

// Ingester triggers one feed poll pass on demand.
type Ingester interface {
	Run(ctx context.Context) (pipeline.RunStats, error)
}

// Publications triggers the pending-publication drain on demand.
type Publications interface {
	PublishPending(ctx context.Context) error
}

// Handler serves the read API and the operational trigger endpoints.
type Handler struct {
	store        *store.Store
	ingester     Ingester
	publications Publications
	metrics      http.Handler
	authToken    string
	log          zerolog.Logger
}

func NewHandler(st *store.Store, ing Ingester, pub Publications, metrics http.Handler, authToken string, log zerolog.Logger) *Handler {
	return &Handler{
		store:        st,
		ingester:     ing,
		publications: pub,
		metrics:      metrics,
		authToken:    authToken,
		log:          log.With().Str("component", "server").Logger(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/alerts", h.getAlerts)
	r.POST("/api/ingest", h.requireAuth, h.triggerIngest)
	r.POST("/api/publish", h.requireAuth, h.triggerPublish)
	r.GET("/health", h.health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}
}

func (h *Handler) getAlerts(c *gin.Context) {
	filter := store.Filter{
		Status:    store.Status(c.Query("status")),
		Route:     c.Query("route"),
		Stop:      c.Query("stop"),
		TimeFrame: c.Query("timeFrame"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	switch filter.Status {
	case "", store.StatusActive, store.StatusCompleted, store.StatusUpcoming:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	switch filter.TimeFrame {
	case "", "today", "week", "month":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeFrame"})
		return
	}
	if p := c.Query("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			filter.Page = n
		}
	}
	if ps := c.Query("pageSize"); ps != "" {
		if n, err := strconv.Atoi(ps); err == nil && n > 0 {
			filter.PageSize = n
		}
	}

	alerts, total, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("list alerts failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch alerts"})
		return
	}

	page, pageSize := filter.Page, filter.PageSize
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = store.DefaultPageSize
	}
	totalPages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPages++
	}
	c.JSON(http.StatusOK, alertsResponse{
		Alerts: toViews(alerts),
		Pagination: pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

func (h *Handler) triggerIngest(c *gin.Context) {
	if h.ingester == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ingestion not configured"})
		return
	}
	stats, err := h.ingester.Run(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("manual ingest failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages":   stats.Messages,
		"standalone": stats.Standalone,
		"linked":     stats.Linked,
		"skipped":    stats.Skipped,
		"failed":     stats.Failed,
	})
}

func (h *Handler) triggerPublish(c *gin.Context) {
	if h.publications == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "publication not configured"})
		return
	}
	if err := h.publications.PublishPending(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("manual publish failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "published"})
}

func (h *Handler) health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requireAuth guards the trigger endpoints with a bearer token. An empty
// configured token disables the endpoints rather than leaving them open.
func (h *Handler) requireAuth(c *gin.Context) {
	if h.authToken == "" {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "endpoint disabled"})
		return
	}
	auth := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token != h.authToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}
