package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ctachat/lib"
	"ctachat/model"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrConversationMismatch = errors.New("conversation_id does not match the conversation in the path")
	ErrConversationNotFound = model.ErrConversationNotFound
	ErrNotUserMessage       = errors.New("only user messages can be submitted for a reply")
	ErrEmptyTitle           = errors.New("title must not be empty")
)

// CompletionMode selects whether SubmitMessage waits for the reply.
type CompletionMode int

const (
	ModeDetach CompletionMode = iota
	ModeAwait
)

type Options struct {
	ReplyTimeout     time.Duration
	EnableEmbeddings bool
	SerializeReplies bool
}

// SubmitResult is what SubmitMessage hands back. Reply is only set in ModeAwait.
type SubmitResult struct {
	UserMessage *model.Message
	Reply       *model.Message
	Task        ReplyTask
}

// replyJob is everything the reply unit needs. It holds no request state.
type replyJob struct {
	conversationID uint
	triggerID      uint
	content        string
	history        []HistoryEntry
}

type ConversationService struct {
	conversations *model.ConversationRepo
	messages      *model.MessageRepo
	generator     ReplyGenerator
	tasks         *TaskRegistry
	locks         *KeyedMutex
	opts          Options
	log           logrus.FieldLogger
	metrics       *Metrics
	wg            sync.WaitGroup
}

func NewConversationService(db *gorm.DB, generator ReplyGenerator, tasks *TaskRegistry, opts Options, log logrus.FieldLogger, metrics *Metrics) *ConversationService {
	if tasks == nil {
		tasks = NewTaskRegistry()
	}
	s := &ConversationService{
		conversations: model.NewConversationRepo(db),
		messages:      model.NewMessageRepo(db),
		generator:     generator,
		tasks:         tasks,
		opts:          opts,
		log:           log,
		metrics:       metrics,
	}
	if opts.SerializeReplies {
		s.locks = NewKeyedMutex()
	}
	return s
}

func (s *ConversationService) CreateConversation(ctx context.Context, title string) (*model.Conversation, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}
	return s.conversations.Create(ctx, title)
}

func (s *ConversationService) ListConversations(ctx context.Context, offset, limit int) ([]model.Conversation, error) {
	return s.conversations.List(ctx, offset, limit)
}

func (s *ConversationService) GetConversation(ctx context.Context, id uint) (*model.Conversation, error) {
	return s.conversations.Get(ctx, id)
}

func (s *ConversationService) UpdateConversation(ctx context.Context, id uint, title *string) (*model.Conversation, error) {
	if title != nil && strings.TrimSpace(*title) == "" {
		return nil, ErrEmptyTitle
	}
	return s.conversations.Update(ctx, id, title)
}

func (s *ConversationService) DeleteConversation(ctx context.Context, id uint) (bool, error) {
	return s.conversations.Delete(ctx, id)
}

func (s *ConversationService) ListMessages(ctx context.Context, conversationID uint, offset, limit int) ([]model.Message, error) {
	return s.messages.ListForConversation(ctx, conversationID, offset, limit)
}

func (s *ConversationService) GetMessage(ctx context.Context, id uint) (*model.Message, error) {
	return s.messages.Get(ctx, id)
}

func (s *ConversationService) UpdateMessage(ctx context.Context, id uint, in model.MessageUpdate) (*model.Message, error) {
	return s.messages.Update(ctx, id, in)
}

func (s *ConversationService) DeleteMessage(ctx context.Context, id uint) (bool, error) {
	return s.messages.Delete(ctx, id)
}

// ReplyStatus reports the reply task for a user message.
func (s *ConversationService) ReplyStatus(triggerID uint) (ReplyTask, bool) {
	return s.tasks.Get(triggerID)
}

// Wait blocks until all detached reply units have finished or ctx is done.
func (s *ConversationService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitMessage persists a user message and schedules the assistant reply.
// In ModeDetach it returns as soon as the user message is stored.
func (s *ConversationService) SubmitMessage(ctx context.Context, conversationID uint, in model.MessageCreate, mode CompletionMode) (*SubmitResult, error) {
	if in.ConversationID != conversationID {
		return nil, ErrConversationMismatch
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, model.ErrEmptyContent
	}
	if in.MessageType == "" {
		in.MessageType = model.MessageTypeUser
	}
	messageType, err := model.ParseMessageType(string(in.MessageType))
	if err != nil {
		return nil, err
	}
	if messageType != model.MessageTypeUser {
		return nil, ErrNotUserMessage
	}
	in.MessageType = messageType

	userMessage, err := s.messages.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	// The user message stays persisted even if the conversation vanished in between.
	conversation, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}

	job := replyJob{
		conversationID: conversationID,
		triggerID:      userMessage.ID,
		content:        userMessage.Content,
		history:        ProjectHistory(conversation.Messages, userMessage.ID),
	}
	result := &SubmitResult{
		UserMessage: userMessage,
		Task:        s.tasks.Start(userMessage.ID, conversationID),
	}

	if mode == ModeAwait {
		reply, err := s.runReply(ctx, job)
		if err != nil {
			return nil, err
		}
		result.Reply = reply
		result.Task, _ = s.tasks.Get(userMessage.ID)
		return result, nil
	}

	s.wg.Add(1)
	s.metrics.backgroundStarted()
	go func() {
		defer s.wg.Done()
		defer s.metrics.backgroundDone()
		_, _ = s.runReply(context.Background(), job)
	}()
	return result, nil
}

func (s *ConversationService) replyContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.opts.ReplyTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.opts.ReplyTimeout)
}

// runReply generates and stores the reply for one user message, then attaches
// the embedding of that message. Each step gets its own REPLY_TIMEOUT budget
// derived from parent. Failures are logged and recorded on the task.
func (s *ConversationService) runReply(parent context.Context, job replyJob) (*model.Message, error) {
	log := s.log.WithFields(logrus.Fields{
		"conversation_id":    job.conversationID,
		"trigger_message_id": job.triggerID,
	})

	replyCtx, cancelReply := s.replyContext(parent)
	reply, err := s.reply(replyCtx, job)
	cancelReply()
	if err != nil {
		log.Warnf("reply dropped: %s", err)
		s.tasks.Fail(job.triggerID, err)
		s.metrics.reply("failed")
	} else {
		s.tasks.Succeed(job.triggerID, reply.ID)
		if fallback, _ := reply.Metadata["fallback"].(bool); fallback {
			s.metrics.reply("fallback")
		} else {
			s.metrics.reply("succeeded")
		}
	}

	if s.opts.EnableEmbeddings {
		embedCtx, cancelEmbed := s.replyContext(parent)
		s.attachEmbedding(embedCtx, job, log)
		cancelEmbed()
	}
	return reply, err
}

func (s *ConversationService) reply(ctx context.Context, job replyJob) (*model.Message, error) {
	if s.locks != nil {
		unlock, err := s.locks.Lock(ctx, job.conversationID)
		if err != nil {
			return nil, fmt.Errorf("waiting for conversation %d: %w", job.conversationID, err)
		}
		defer unlock()
	}

	generated, err := s.generator.GenerateReply(ctx, job.history)
	if err != nil {
		return nil, err
	}
	return s.messages.Create(ctx, model.MessageCreate{
		ConversationID: job.conversationID,
		Content:        generated.Text,
		MessageType:    model.MessageTypeAI,
		Metadata: datatypes.JSONMap{
			"model":              generated.Model,
			"fallback":           generated.Fallback,
			"trigger_message_id": job.triggerID,
		},
	})
}

func (s *ConversationService) attachEmbedding(ctx context.Context, job replyJob, log logrus.FieldLogger) {
	vector, err := s.generator.GenerateEmbedding(ctx, job.content)
	if err != nil || len(vector) == 0 {
		if err != nil {
			log.Warnf("embedding failed: %s", err)
			s.metrics.embedding("failed")
		} else {
			s.metrics.embedding("absent")
		}
		return
	}
	message, err := s.messages.UpdateEmbedding(ctx, job.triggerID, vector)
	if err != nil {
		log.Warnf("failed to store embedding: %s", err)
		s.metrics.embedding("failed")
		return
	}
	if message == nil {
		s.metrics.embedding("absent")
		return
	}
	s.metrics.embedding("attached")
}

// ProjectHistory maps stored messages to provider roles, up to and including
// the trigger message. ai becomes assistant, every other type is user.
func ProjectHistory(messages []model.Message, triggerID uint) []HistoryEntry {
	history := make([]HistoryEntry, 0, len(messages))
	for _, m := range messages {
		role := RoleUser
		if m.MessageType == model.MessageTypeAI {
			role = RoleAssistant
		}
		content := m.Content
		if format, _ := m.Metadata["format"].(string); strings.EqualFold(format, "html") {
			content = lib.HTMLToMarkdown(content)
		}
		history = append(history, HistoryEntry{Role: role, Content: content})
		if m.ID == triggerID {
			break
		}
	}
	return history
}
