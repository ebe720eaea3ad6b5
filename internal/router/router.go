package router

import (
	"FailTales/internal/handler"
	"FailTales/internal/middleware"
	"FailTales/internal/pkg"
	"FailTales/internal/service"

	"github.com/gin-gonic/gin"
)

func InitRouter(smtpCfg pkg.SMTPConfig) *gin.Engine {
	r := gin.Default()

	emailSvc := service.NewEmailService(smtpCfg)
	viewSvc := service.NewViewService()

	user := handler.NewUserHandler(service.NewUserService(emailSvc))
	email := handler.NewEmailHandler(emailSvc)
	follow := handler.NewFollowHandler()
	feed := handler.NewFeedHandler()
	suggest := handler.NewSuggestHandler()
	story := handler.NewStoryHandler(service.NewStoryService(viewSvc))

	// 邮件相关接口
	emailGroup := r.Group("/api/email")
	{
		emailGroup.POST("/:scope/code", email.SendCode)
	}

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", user.Register)
		userGroup.POST("/login", user.Login)
		userGroup.POST("/reset", user.ResetPassword)
	}

	// token相关接口
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", user.TokenRefresh)
	}

	// 登录态接口
	authGroup := r.Group("/api/auth")
	authGroup.Use(middleware.AuthMiddleware())
	{
		authGroup.POST("/logout", user.Logout)
		authGroup.POST("/change-password", user.ChangePassword)
	}

	// 关注相关接口
	followGroup := r.Group("/api/follow")
	followGroup.Use(middleware.AuthMiddleware())
	{
		followGroup.POST("/:target", follow.Toggle)
		followGroup.GET("/followings", follow.ListFollowings)
		followGroup.GET("/followers", follow.ListFollowers)
		followGroup.GET("/relation", follow.Relation)
	}

	// feed与推荐
	feedGroup := r.Group("/api")
	feedGroup.Use(middleware.AuthMiddleware())
	{
		feedGroup.GET("/feed", feed.GetFeed)
		feedGroup.GET("/users/suggested", suggest.SuggestedUsers)
	}

	// story相关接口
	storyGroup := r.Group("/api/story")
	storyGroup.Use(middleware.AuthMiddleware())
	{
		storyGroup.POST("", story.Create)
		storyGroup.GET("/:id", story.Get)
		storyGroup.POST("/:id/publish", story.Publish)
		storyGroup.DELETE("/:id", story.Archive)
		storyGroup.GET("/author/:id", story.ListByAuthor)
		storyGroup.POST("/:id/like", story.Like)
		storyGroup.DELETE("/:id/like", story.Unlike)
		storyGroup.GET("/:id/likes", story.LikeCount)
	}

	return r
}
