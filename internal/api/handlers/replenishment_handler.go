package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/replenishment"
	"github.com/andresuchdata/autopo-py/replenishment/internal/service"
	"github.com/andresuchdata/autopo-py/replenishment/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type ReplenishmentHandler struct {
	service *service.ReplenishmentService
}

func NewReplenishmentHandler(service *service.ReplenishmentService) *ReplenishmentHandler {
	return &ReplenishmentHandler{service: service}
}

type generateRequest struct {
	ProductIDs []int64 `json:"product_ids"`
}

// queryParam returns the first non-empty value among names, so filters can be
// passed by their full name or a short alias.
func queryParam(c *gin.Context, names ...string) string {
	for _, name := range names {
		if value := strings.TrimSpace(c.Query(name)); value != "" {
			return value
		}
	}
	return ""
}

// parseFilter reads the recognised recommendation filters from the query
// string. Malformed numbers are ignored; a malformed date is an error.
func (h *ReplenishmentHandler) parseFilter(c *gin.Context) (domain.RecommendationFilter, error) {
	var filter domain.RecommendationFilter

	if raw := queryParam(c, "calculation_date", "date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
		}
		filter.CalculationDate = &date
	}

	if value := queryParam(c, "min_ads"); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			filter.MinADS = &f
		}
	}

	if value := queryParam(c, "min_recommended_quantity", "min_quantity"); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			filter.MinRecommendedQuantity = &n
		}
	}

	// ?product_ids=1,2&product_ids=3
	for _, raw := range c.QueryArray("product_ids") {
		for _, part := range strings.Split(raw, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
				filter.ProductIDs = append(filter.ProductIDs, id)
			}
		}
	}

	if value := queryParam(c, "actionable_only", "actionable"); value != "" {
		if actionable, err := strconv.ParseBool(value); err == nil {
			filter.ActionableOnly = actionable
		}
	}

	filter.Search = queryParam(c, "search", "q")
	filter.SortBy = strings.TrimSpace(c.Query("sort_by"))
	filter.SortOrder = strings.TrimSpace(c.Query("sort_order"))

	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	return filter, nil
}

func (h *ReplenishmentHandler) GenerateRecommendations(c *gin.Context) {
	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
	}

	recs, err := h.service.GenerateRecommendations(c.Request.Context(), req.ProductIDs, nil)
	if err != nil {
		runErrorResponse(c, err)
		return
	}

	run, err := h.service.GetLatestRun(c.Request.Context())
	if err != nil {
		log.Warn().Err(err).Msg("could not load run after generation")
	}

	c.JSON(http.StatusCreated, gin.H{
		"run":             run,
		"count":           len(recs),
		"recommendations": recs,
	})
}

func (h *ReplenishmentHandler) GenerateWeeklyReport(c *gin.Context) {
	report, key, err := h.service.GenerateWeeklyReport(c.Request.Context())
	if err != nil {
		runErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"report":      report,
		"archive_key": key,
	})
}

func (h *ReplenishmentHandler) ListReports(c *gin.Context) {
	dates, err := h.service.ListArchivedReports(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

func (h *ReplenishmentHandler) GetReport(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	report, err := h.service.GetArchivedReport(c.Request.Context(), date)
	if errors.Is(err, storage.ErrReportNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load report", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReplenishmentHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.service.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *ReplenishmentHandler) GetLatestRun(c *gin.Context) {
	run, err := h.service.GetLatestRun(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch latest run", "details": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no calculation run recorded"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *ReplenishmentHandler) GetRecommendations(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recs, err := h.service.GetRecommendations(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch recommendations", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recs, "count": len(recs)})
}

func (h *ReplenishmentHandler) GetRecommendationsPaginated(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filter.Limit, filter.Offset = 0, 0

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	if err != nil {
		perPage = 50
	}

	result, err := h.service.GetRecommendationsPaginated(c.Request.Context(), page, perPage, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch recommendations", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ReplenishmentHandler) SearchRecommendations(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filter.Search == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter search (or q) is required"})
		return
	}

	recs, err := h.service.SearchRecommendations(c.Request.Context(), filter.Search, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search recommendations", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recs, "count": len(recs)})
}

func (h *ReplenishmentHandler) GetTopActionable(c *gin.Context) {
	n, _ := strconv.Atoi(c.DefaultQuery("n", "10"))

	recs, err := h.service.GetTopActionable(c.Request.Context(), n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch top recommendations", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recs, "count": len(recs)})
}

func (h *ReplenishmentHandler) GetByADS(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	recs, err := h.service.GetByADS(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch recommendations", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recs, "count": len(recs)})
}

func (h *ReplenishmentHandler) GetSummary(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.service.GetSummary(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch summary", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func runErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNoProducts):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no products to process"})
	case replenishment.IsBatchFailure(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "calculation aborted", "details": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "calculation failed", "details": err.Error()})
	}
}
