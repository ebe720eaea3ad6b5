package handler

import (
	"net/http"
	"strconv"

	"FailTales/internal/middleware"
	"FailTales/internal/service"

	"github.com/gin-gonic/gin"
)

type StoryHandler struct {
	svc *service.StoryService
}

func NewStoryHandler(svc *service.StoryService) *StoryHandler {
	return &StoryHandler{svc: svc}
}

type createStoryReq struct {
	Title    string   `json:"title" binding:"required,max=200"`
	Content  string   `json:"content"`
	Category string   `json:"category" binding:"max=32"`
	Tags     []string `json:"tags" binding:"max=10,dive,max=32"`
	Publish  bool     `json:"publish"`
}

// Create 建稿/发布接口
func (h *StoryHandler) Create(c *gin.Context) {
	var req createStoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	story, err := h.svc.Create(
		c.Request.Context(),
		userIDFromCtx(c),
		stringFromCtx(c, middleware.ContextUsernameKey),
		req.Title, req.Content, req.Category, req.Tags, req.Publish,
	)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": story.ID, "status": story.Status})
}

// Publish 草稿转发布
func (h *StoryHandler) Publish(c *gin.Context) {
	sid, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	if err := h.svc.Publish(c.Request.Context(), sid, userIDFromCtx(c)); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// Get 详情接口，读取同时计浏览
func (h *StoryHandler) Get(c *gin.Context) {
	sid, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	detail, err := h.svc.Get(c.Request.Context(), userIDFromCtx(c), sid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ListByAuthor 作者已发布列表
func (h *StoryHandler) ListByAuthor(c *gin.Context) {
	authorID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	list, err := h.svc.ListByAuthor(c.Request.Context(), authorID, page, size)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

// Archive 归档（软删除）
func (h *StoryHandler) Archive(c *gin.Context) {
	sid, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	if err := h.svc.Archive(c.Request.Context(), userIDFromCtx(c), sid); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

func (h *StoryHandler) Like(c *gin.Context) {
	sid, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	changed, err := h.svc.Like(c.Request.Context(), userIDFromCtx(c), sid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (h *StoryHandler) Unlike(c *gin.Context) {
	sid, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	changed, err := h.svc.Unlike(c.Request.Context(), userIDFromCtx(c), sid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (h *StoryHandler) LikeCount(c *gin.Context) {
	sid, _ := strconv.ParseUint(c.Param("id"), 10, 64)
	cnt, err := h.svc.GetCountWithLock(c.Request.Context(), userIDFromCtx(c), sid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": cnt})
}
