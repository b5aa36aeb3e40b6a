package server

import (
	"net/http"
	"strconv"
	"strings"

	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/monitor"
	"web3-token-agent/internal/worker/runtime"
	"web3-token-agent/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const TransportHTTP = "http"

type Handlers struct {
	dispatcher Dispatcher
	ratings    RatingReader
	tl         *zap.Logger
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PostMessage 同步执行动作，返回全部回调内容
func (h *Handlers) PostMessage(c *gin.Context) {
	monitor.InboundMessages.WithLabelValues(TransportHTTP).Inc()

	var msg model.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message"})
		return
	}
	if msg.RoomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id is required"})
		return
	}
	if msg.Content.Source == "" {
		msg.Content.Source = TransportHTTP
	}

	ctx, span := logger.StartSpanWithRequest(c.Request, "server", "PostMessage")
	defer span.End()
	var out runtime.Collector
	if err := h.dispatcher.DispatchInbound(ctx, &msg, out.Callback); err != nil {
		h.tl.Error("Dispatch message failed", zap.String("room_id", msg.RoomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}
	contents := out.Contents
	if contents == nil {
		contents = []model.Content{}
	}
	c.JSON(http.StatusOK, gin.H{"id": msg.ID, "responses": contents})
}

func (h *Handlers) ListRatings(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}
	ratings, err := h.ratings.ListByToken(c.Request.Context(), token, limit)
	if err != nil {
		h.tl.Error("List ratings failed", zap.String("token", token), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ratings"})
		return
	}
	if ratings == nil {
		ratings = []*model.TokenRating{}
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings})
}
