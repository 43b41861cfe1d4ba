package router

import (
	"github.com/gin-gonic/gin"
	"xfriends/config"
	"xfriends/handlers"
	"xfriends/middleware"
	"xfriends/utils"
	"xfriends/websocket"
)

// Setup wires every route against the globals in config, database and
// websocket.
func Setup() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORSMiddleware(config.Cfg.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		utils.Success(c, gin.H{"status": "ok"})
	})

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
		auth.POST("/refresh", middleware.AuthMiddleware(), handlers.RefreshToken)
	}

	searchLimiter := middleware.NewRateLimiter(config.Cfg.SearchInterval)

	users := r.Group("/api/users")
	users.Use(middleware.AuthMiddleware())
	{
		users.GET("/me", handlers.GetCurrentUser)
		users.PUT("/me", handlers.UpdateCurrentUser)
		users.POST("/me/avatar", handlers.UploadAvatar)
		users.GET("/search", searchLimiter.Middleware(), handlers.SearchUsers)
		users.GET("/me/relationships", handlers.GetRelationships)
		users.POST("/me/relationships", handlers.UpdateRelationship)
	}

	r.GET("/files/:filename", handlers.ServeFile)
	r.GET("/ws", websocket.HandleWebSocket)

	return r
}
