package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/dialog"
	"github.com/oksasatya/kcal-diary-bot/pkg/response"
	"github.com/oksasatya/kcal-diary-bot/pkg/validation"
)

type EventProcessor interface {
	HandleEvent(ctx context.Context, ev dialog.Event) dialog.Prompt
}

// EventHandler is the transport adapter: the chat front-end posts every inbound message here
// and renders the returned prompt.
type EventHandler struct {
	Svc EventProcessor
}

func NewEventHandler(svc EventProcessor) *EventHandler {
	return &EventHandler{Svc: svc}
}

type predictionRequest struct {
	Label      string  `json:"label" binding:"required,max=100"`
	Confidence float64 `json:"confidence" binding:"gte=0,lte=100"`
}

type eventRequest struct {
	UserID      int64               `json:"user_id" binding:"required,gt=0"`
	DisplayName string              `json:"display_name" binding:"max=255"`
	Kind        string              `json:"kind" binding:"required,oneof=text selection photo command"`
	Text        string              `json:"text" binding:"max=4096"`
	Predictions []predictionRequest `json:"predictions" binding:"max=10,dive"`
}

func (r eventRequest) toEvent() dialog.Event {
	ev := dialog.Event{
		UserID:      r.UserID,
		DisplayName: r.DisplayName,
		Kind:        dialog.Kind(r.Kind),
		Text:        r.Text,
	}
	for _, p := range r.Predictions {
		ev.Predictions = append(ev.Predictions, dialog.Prediction{Label: p.Label, Confidence: p.Confidence})
	}
	return ev
}

func (h *EventHandler) Handle(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	reply := h.Svc.HandleEvent(c.Request.Context(), req.toEvent())
	response.Success(c, http.StatusOK, reply, "reply", nil)
}
