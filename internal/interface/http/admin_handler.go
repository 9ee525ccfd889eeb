package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/kcal-diary-bot/internal/application"
	"github.com/oksasatya/kcal-diary-bot/internal/infrastructure/search"
	"github.com/oksasatya/kcal-diary-bot/pkg/helpers"
	"github.com/oksasatya/kcal-diary-bot/pkg/response"
	"github.com/oksasatya/kcal-diary-bot/pkg/validation"
)

type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

type DishSearcher interface {
	Search(ctx context.Context, q string, size int) ([]search.Dish, error)
}

type AdminHandler struct {
	Jobs   JobPublisher // nil when RabbitMQ is not configured
	Dishes DishSearcher // nil when Elasticsearch is not configured
	Logger *logrus.Logger
}

func NewAdminHandler(jobs JobPublisher, dishes DishSearcher, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{Jobs: jobs, Dishes: dishes, Logger: logger}
}

type backfillRequest struct {
	Names []string `json:"names" binding:"max=500,dive,required,max=100"`
}

// Backfill queues a backfill job for cmd/backfill_worker.
func (h *AdminHandler) Backfill(c *gin.Context) {
	var req backfillRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
			return
		}
	}
	if h.Jobs == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "job queue not configured", nil)
		return
	}

	job := application.NewBackfillJob(c.GetString("subject"), req.Names)
	if err := h.Jobs.PublishJSON(c.Request.Context(), job); err != nil {
		helpers.LogError(h.Logger, "publish backfill job failed", err, logrus.Fields{"job_id": job.ID})
		response.Error[any](c, http.StatusBadGateway, "failed to queue backfill", nil)
		return
	}
	helpers.LogInfo(h.Logger, "backfill job queued", logrus.Fields{"job_id": job.ID, "requested_by": job.RequestedBy, "names": len(job.Names)})
	response.Success(c, http.StatusAccepted, gin.H{"job_id": job.ID}, "backfill queued", nil)
}

func (h *AdminHandler) SearchDishes(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "missing query", map[string]string{"q": "is required"})
		return
	}
	if h.Dishes == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "search not configured", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Dishes.Search(c.Request.Context(), q, size)
	if err != nil {
		helpers.LogError(h.Logger, "dish search failed", err, logrus.Fields{"q": q})
		response.Error[any](c, http.StatusBadGateway, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "dishes", map[string]any{"count": len(hits)})
}
