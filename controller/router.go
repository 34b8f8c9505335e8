package controller

import (
	"net/http"

	"ctachat/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	CORSOrigin    string
	RequireAuth   bool
	Conversations *service.ConversationService
	Users         *service.UserService
	Tokens        *service.TokenService
	Registry      *prometheus.Registry
	Logger        logrus.FieldLogger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware(cfg.CORSOrigin))
	r.Use(RequestIDMiddleware())
	r.Use(LogMiddleware(cfg.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	auth := NewAuthController(cfg.Tokens, cfg.Logger)
	user := NewUserController(cfg.Users, cfg.Logger)
	conversation := NewConversationController(cfg.Conversations, cfg.Logger)
	message := NewMessageController(cfg.Conversations, cfg.Logger)

	v1 := r.Group("/v1")
	{
		v1.POST("/user/register", user.Register)
		v1.POST("/user/login", user.Login)
		//Refresh the token
		v1.POST("/token/refresh", auth.Refresh)
	}

	chat := v1.Group("")
	if cfg.RequireAuth {
		chat.Use(auth.TokenAuthMiddleware())
	}
	{
		chat.POST("/conversations", conversation.Create)
		chat.GET("/conversations", conversation.List)
		chat.GET("/conversations/:id", conversation.Get)
		chat.PUT("/conversations/:id", conversation.Update)
		chat.DELETE("/conversations/:id", conversation.Delete)
		chat.POST("/conversations/:id/messages", message.Submit)
		chat.GET("/conversations/:id/messages", message.List)

		chat.GET("/messages/:id", message.Get)
		chat.PUT("/messages/:id", message.Update)
		chat.DELETE("/messages/:id", message.Delete)
		chat.GET("/messages/:id/reply", message.ReplyStatus)
	}
	return r
}
