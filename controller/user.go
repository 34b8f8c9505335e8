package controller

import (
	"errors"
	"net/http"

	"ctachat/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserController ...
type UserController struct {
	users *service.UserService
	log   logrus.FieldLogger
}

func NewUserController(users *service.UserService, log logrus.FieldLogger) *UserController {
	return &UserController{users: users, log: log}
}

func (ctrl *UserController) Register(c *gin.Context) {
	ctrl.log.Infof("[%s] Handling user registration request", c.GetString("requestId"))

	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Email    string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		ctrl.log.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	user, err := ctrl.users.Register(c.Request.Context(), &service.User{
		Username: input.Username,
		Password: input.Password,
		Email:    input.Email,
	})
	switch {
	case errors.Is(err, service.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrInvalidUsername), errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		ctrl.log.Warnf("[%s] Failed to register user %s: %s", c.GetString("requestId"), input.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	ctrl.log.Infof("[%s] User %s registered successfully", c.GetString("requestId"), user.Username)
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
}

func (ctrl *UserController) Login(c *gin.Context) {
	ctrl.log.Infof("[%s] Handling user login request", c.GetString("requestId"))

	var loginRequest struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&loginRequest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	token, err := ctrl.users.Login(c.Request.Context(), &service.User{
		Username: loginRequest.Username,
		Password: loginRequest.Password,
	})
	if errors.Is(err, service.ErrInvalidCredentials) {
		ctrl.log.Warnf("[%s] User %s failed to login", c.GetString("requestId"), loginRequest.Username)
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		ctrl.log.Warnf("[%s] User %s failed to login: %s", c.GetString("requestId"), loginRequest.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to login"})
		return
	}

	ctrl.log.Infof("[%s] User %s login successfully", c.GetString("requestId"), loginRequest.Username)
	c.JSON(http.StatusOK, gin.H{"token": token})
}
