package controller

import (
	"net/http"
	"strconv"

	"ctachat/lib"
	"ctachat/model"
	"ctachat/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type MessageController struct {
	svc *service.ConversationService
	log logrus.FieldLogger
}

func NewMessageController(svc *service.ConversationService, log logrus.FieldLogger) *MessageController {
	return &MessageController{svc: svc, log: log}
}

type messageCreateRequest struct {
	Content         string            `json:"content"`
	MessageType     model.MessageType `json:"message_type"`
	ConversationID  uint              `json:"conversation_id"`
	MessageMetadata datatypes.JSONMap `json:"message_metadata"`
	Metadata        datatypes.JSONMap `json:"metadata"`
}

// Submit stores a user message and schedules the assistant reply. With
// ?wait=true the reply is generated inline and returned instead.
func (ctrl *MessageController) Submit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input messageCreateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		ctrl.log.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	metadata := input.MessageMetadata
	if metadata == nil {
		metadata = input.Metadata
	}

	mode := service.ModeDetach
	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		mode = service.ModeAwait
	}

	result, err := ctrl.svc.SubmitMessage(c.Request.Context(), id, model.MessageCreate{
		ConversationID: input.ConversationID,
		Content:        input.Content,
		MessageType:    input.MessageType,
		Metadata:       metadata,
	}, mode)
	if err != nil {
		ctrl.log.Warnf("[%s] Failed to submit message to conversation %d: %s", c.GetString("requestId"), id, err)
		respondError(c, ctrl.log, err)
		return
	}

	ctrl.log.Infof("[%s] Message %d stored in conversation %d", c.GetString("requestId"), result.UserMessage.ID, id)
	if mode == service.ModeAwait {
		c.JSON(http.StatusOK, result.Reply)
		return
	}
	c.JSON(http.StatusOK, result.UserMessage)
}

func (ctrl *MessageController) List(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	offset, limit, err := lib.ParsePage(c.Query("skip"), c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	messages, err := ctrl.svc.ListMessages(c.Request.Context(), id, offset, limit)
	if err != nil {
		respondError(c, ctrl.log, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (ctrl *MessageController) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	message, err := ctrl.svc.GetMessage(c.Request.Context(), id)
	if err != nil {
		respondError(c, ctrl.log, err)
		return
	}
	if message == nil {
		notFound(c, "Message not found")
		return
	}
	c.JSON(http.StatusOK, message)
}

func (ctrl *MessageController) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input struct {
		Content         *string           `json:"content"`
		MessageMetadata datatypes.JSONMap `json:"message_metadata"`
		Metadata        datatypes.JSONMap `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		ctrl.log.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	update := model.MessageUpdate{Content: input.Content, Metadata: input.MessageMetadata}
	if update.Metadata == nil {
		update.Metadata = input.Metadata
	}

	message, err := ctrl.svc.UpdateMessage(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, ctrl.log, err)
		return
	}
	if message == nil {
		notFound(c, "Message not found")
		return
	}
	c.JSON(http.StatusOK, message)
}

func (ctrl *MessageController) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	deleted, err := ctrl.svc.DeleteMessage(c.Request.Context(), id)
	if err != nil {
		respondError(c, ctrl.log, err)
		return
	}
	if !deleted {
		notFound(c, "Message not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ReplyStatus reports the reply task triggered by a user message.
func (ctrl *MessageController) ReplyStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	task, found := ctrl.svc.ReplyStatus(id)
	if !found {
		notFound(c, "No reply task for this message")
		return
	}
	c.JSON(http.StatusOK, task)
}
