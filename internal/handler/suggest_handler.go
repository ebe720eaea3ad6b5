package handler

import (
	"net/http"
	"strconv"

	"FailTales/internal/service"

	"github.com/gin-gonic/gin"
)

type SuggestHandler struct {
	svc *service.SuggestService
}

func NewSuggestHandler() *SuggestHandler {
	return &SuggestHandler{svc: service.NewSuggestService()}
}

// SuggestedUsers 推荐关注
func (h *SuggestHandler) SuggestedUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	users, err := h.svc.SuggestedUsers(c.Request.Context(), userIDFromCtx(c), limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": users})
}
