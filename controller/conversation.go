package controller

import (
	"errors"
	"net/http"
	"time"

	"ctachat/lib"
	"ctachat/model"
	"ctachat/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ConversationController struct {
	svc *service.ConversationService
	log logrus.FieldLogger
}

func NewConversationController(svc *service.ConversationService, log logrus.FieldLogger) *ConversationController {
	return &ConversationController{svc: svc, log: log}
}

// conversationSummary is the list shape: no messages key.
type conversationSummary struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ctrl *ConversationController) Create(c *gin.Context) {
	var input struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		ctrl.log.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	conversation, err := ctrl.svc.CreateConversation(c.Request.Context(), input.Title)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	ctrl.log.Infof("[%s] Conversation %d created", c.GetString("requestId"), conversation.ID)
	c.JSON(http.StatusCreated, conversation)
}

func (ctrl *ConversationController) List(c *gin.Context) {
	offset, limit, err := lib.ParsePage(c.Query("skip"), c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conversations, err := ctrl.svc.ListConversations(c.Request.Context(), offset, limit)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	out := make([]conversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		out = append(out, conversationSummary{
			ID:        conv.ID,
			Title:     conv.Title,
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (ctrl *ConversationController) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	conversation, err := ctrl.svc.GetConversation(c.Request.Context(), id)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	if conversation == nil {
		notFound(c, "Conversation not found")
		return
	}
	c.JSON(http.StatusOK, conversation)
}

func (ctrl *ConversationController) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input struct {
		Title *string `json:"title"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		ctrl.log.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	conversation, err := ctrl.svc.UpdateConversation(c.Request.Context(), id, input.Title)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	if conversation == nil {
		notFound(c, "Conversation not found")
		return
	}
	c.JSON(http.StatusOK, conversation)
}

func (ctrl *ConversationController) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	deleted, err := ctrl.svc.DeleteConversation(c.Request.Context(), id)
	if err != nil {
		ctrl.fail(c, err)
		return
	}
	if !deleted {
		notFound(c, "Conversation not found")
		return
	}
	ctrl.log.Infof("[%s] Conversation %d deleted", c.GetString("requestId"), id)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ctrl *ConversationController) fail(c *gin.Context, err error) {
	respondError(c, ctrl.log, err)
}

// respondError maps service and model errors onto status codes.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, service.ErrConversationMismatch),
		errors.Is(err, service.ErrNotUserMessage),
		errors.Is(err, service.ErrEmptyTitle),
		errors.Is(err, model.ErrEmptyContent),
		errors.Is(err, model.ErrInvalidMessageType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConversationNotFound):
		notFound(c, "Conversation not found")
	default:
		log.Errorf("[%s] %s %s failed: %s", c.GetString("requestId"), c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func notFound(c *gin.Context, detail string) {
	c.JSON(http.StatusNotFound, gin.H{"error": detail})
}

func pathID(c *gin.Context) (uint, bool) {
	id, ok := lib.ParseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
	}
	return id, ok
}
