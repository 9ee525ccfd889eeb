package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/kcal-diary-bot/internal/application"
	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
	"github.com/oksasatya/kcal-diary-bot/pkg/helpers"
	"github.com/oksasatya/kcal-diary-bot/pkg/response"
)

type ProfileReader interface {
	Summary(ctx context.Context, userID int64) (application.ProfileSummary, error)
	History(ctx context.Context, userID int64) ([]entity.DayTotal, error)
}

type ProfileHandler struct {
	Svc    ProfileReader
	Logger *logrus.Logger
}

func NewProfileHandler(svc ProfileReader, logger *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{Svc: svc, Logger: logger}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error[any](c, http.StatusBadRequest, "invalid user id", nil)
		return
	}
	sum, err := h.Svc.Summary(c.Request.Context(), id)
	if errors.Is(err, application.ErrUserNotFound) {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	if err != nil {
		helpers.LogError(h.Logger, "profile summary failed", err, logrus.Fields{"user_id": id})
		response.Error[any](c, http.StatusInternalServerError, "failed to load profile", nil)
		return
	}
	history, err := h.Svc.History(c.Request.Context(), id)
	if err != nil {
		helpers.LogError(h.Logger, "profile history failed", err, logrus.Fields{"user_id": id})
		response.Error[any](c, http.StatusInternalServerError, "failed to load profile", nil)
		return
	}

	days := make([]gin.H, 0, len(history))
	for _, d := range history {
		days = append(days, gin.H{"day": d.Day.Format("2006-01-02"), "kcal": d.Kcal})
	}
	meals := make([]gin.H, 0, len(sum.TodayMeals))
	for _, m := range sum.TodayMeals {
		meals = append(meals, gin.H{"dish": m.DishName, "grams": m.Grams, "kcal": m.Kcal, "eaten_at": m.EatenAt})
	}
	response.Success(c, http.StatusOK, gin.H{
		"user_id":      sum.User.ID,
		"display_name": sum.User.DisplayName,
		"goal":         sum.User.Goal,
		"daily_norm":   sum.DailyNorm,
		"today_kcal":   sum.TodayKcal,
		"remaining":    sum.Remaining,
		"today_meals":  meals,
		"history":      days,
	}, "profile", nil)
}
