package api

import (
	"Courier/internal/api/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	_ = r.SetTrustedProxies([]string{"localhost"})

	r.Use(middleware.CORSMiddleware())

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/login", group.AuthHandler.Login)
		}

		imGroup := apiGroup.Group("/im")
		{
			// WS 升级自带 token 鉴权，不走 Header 中间件
			imGroup.GET("", group.WSHandler.Connect)

			restGroup := imGroup.Group("")
			restGroup.Use(middleware.AuthMiddleware())
			{
				restGroup.GET("/list", group.IMHandler.GetConversationList)
				restGroup.GET("/history", group.IMHandler.GetChatHistory)
				restGroup.GET("/contacts", group.IMHandler.GetContacts)
			}
		}
	}

	return r
}
