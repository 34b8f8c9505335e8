package controller

import (
	"net/http"

	"ctachat/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthController ...
type AuthController struct {
	tokens *service.TokenService
	log    logrus.FieldLogger
}

func NewAuthController(tokens *service.TokenService, log logrus.FieldLogger) *AuthController {
	return &AuthController{tokens: tokens, log: log}
}

// TokenAuthMiddleware ...
// JWT Authentication middleware attached to each request that needs to be authenticated to
// validate the access_token in the header
func (a *AuthController) TokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenAuth, err := a.tokens.ExtractTokenMetadata(c.Request)
		if err != nil {
			//Token either expired or not valid
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Please login first"})
			return
		}
		c.Set("UserId", tokenAuth.UserID)
		c.Set("UserName", tokenAuth.UserName)
		c.Next()
	}
}

// Refresh ...
func (a *AuthController) Refresh(c *gin.Context) {
	td, err := a.tokens.Refresh(c.Request)
	if err != nil {
		a.log.Warnf("[%s] token refresh rejected: %s", c.GetString("requestId"), err)
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization, please login again"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": td.AccessToken})
}
