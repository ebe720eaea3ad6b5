package handler

import (
	"errors"

	"FailTales/internal/middleware"
	"FailTales/internal/pkg"

	"github.com/gin-gonic/gin"
)

// respondErr 按错误码映射HTTP状态，统一错误出口
func respondErr(c *gin.Context, err error) {
	code := pkg.CodeOf(err)
	msg := err.Error()
	var ae *pkg.AppError
	if errors.As(err, &ae) {
		msg = ae.Msg
	}
	c.JSON(pkg.HTTPStatus(code), gin.H{"code": code, "msg": msg})
}

func userIDFromCtx(c *gin.Context) uint64 {
	if v, ok := c.Get(middleware.ContextUserIDKey); ok {
		if id, ok2 := v.(uint64); ok2 {
			return id
		}
	}
	return 0
}

func stringFromCtx(c *gin.Context, key string) string {
	if v, ok := c.Get(key); ok {
		if s, ok2 := v.(string); ok2 {
			return s
		}
	}
	return ""
}
