package handler

import (
	"net/http"
	"strconv"

	"FailTales/internal/service"

	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	svc *service.FeedService
}

func NewFeedHandler() *FeedHandler {
	return &FeedHandler{svc: service.NewFeedService()}
}

// GetFeed 个性化feed
func (h *FeedHandler) GetFeed(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	feed, err := h.svc.GetFeed(c.Request.Context(), userIDFromCtx(c), page, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}
