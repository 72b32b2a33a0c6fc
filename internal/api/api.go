package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/api/handlers"
	"github.com/andresuchdata/autopo-py/replenishment/internal/api/middleware"
	"github.com/andresuchdata/autopo-py/replenishment/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	ReplenishmentService *service.ReplenishmentService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.ReplenishmentService != nil {
		h := handlers.NewReplenishmentHandler(services.ReplenishmentService)
		group := apiGroup.Group("/replenishment")
		{
			group.POST("/runs", h.GenerateRecommendations)
			group.GET("/runs", h.ListRuns)
			group.GET("/runs/latest", h.GetLatestRun)

			recs := group.Group("/recommendations")
			{
				recs.GET("", h.GetRecommendations)
				recs.GET("/paginated", h.GetRecommendationsPaginated)
				recs.GET("/search", h.SearchRecommendations)
				recs.GET("/top", h.GetTopActionable)
				recs.GET("/by_ads", h.GetByADS)
				recs.GET("/summary", h.GetSummary)
			}

			reports := group.Group("/reports")
			{
				reports.POST("/weekly", h.GenerateWeeklyReport)
				reports.GET("/weekly", h.ListReports)
				reports.GET("/weekly/:date", h.GetReport)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
