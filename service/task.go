package service

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// ReplyTask tracks the reply generated for one user message.
type ReplyTask struct {
	TriggerMessageID uint       `json:"trigger_message_id"`
	ConversationID   uint       `json:"conversation_id"`
	Status           TaskStatus `json:"status"`
	ReplyMessageID   *uint      `json:"reply_message_id"`
	Error            string     `json:"error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

// TaskRegistry keeps reply tasks in memory, keyed by trigger message id.
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[uint]*ReplyTask
	now   func() time.Time
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{
		tasks: make(map[uint]*ReplyTask),
		now:   time.Now,
	}
}

func (r *TaskRegistry) Start(triggerID, conversationID uint) ReplyTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	task := &ReplyTask{
		TriggerMessageID: triggerID,
		ConversationID:   conversationID,
		Status:           TaskPending,
		CreatedAt:        r.now(),
	}
	r.tasks[triggerID] = task
	return *task
}

func (r *TaskRegistry) Succeed(triggerID, replyID uint) {
	r.finish(triggerID, func(t *ReplyTask) {
		t.Status = TaskSucceeded
		t.ReplyMessageID = &replyID
	})
}

func (r *TaskRegistry) Fail(triggerID uint, err error) {
	r.finish(triggerID, func(t *ReplyTask) {
		t.Status = TaskFailed
		if err != nil {
			t.Error = err.Error()
		}
	})
}

func (r *TaskRegistry) finish(triggerID uint, apply func(*ReplyTask)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[triggerID]
	if !ok {
		return
	}
	apply(task)
	at := r.now()
	task.FinishedAt = &at
}

// Get returns a copy of the task and whether it is known.
func (r *TaskRegistry) Get(triggerID uint) (ReplyTask, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[triggerID]
	if !ok {
		return ReplyTask{}, false
	}
	return *task, true
}

// Prune drops finished tasks that completed more than ttl ago. Pending tasks
// are never pruned.
func (r *TaskRegistry) Prune(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-ttl)
	removed := 0
	for id, task := range r.tasks {
		if task.FinishedAt != nil && task.FinishedAt.Before(cutoff) {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed
}

// SchedulePrune registers a periodic Prune on c.
func (r *TaskRegistry) SchedulePrune(c *cron.Cron, spec string, ttl time.Duration, log logrus.FieldLogger) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		if n := r.Prune(ttl); n > 0 {
			log.Infof("pruned %d finished reply tasks", n)
		}
	})
}
