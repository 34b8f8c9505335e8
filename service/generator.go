package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// FallbackReply is persisted when the provider cannot produce a reply.
const FallbackReply = "I'm sorry, I couldn't generate a response right now. Please try again in a moment."

// ErrLastNotUser means the history handed to GenerateReply did not end with a
// user turn. It is a caller bug and is never retried.
var ErrLastNotUser = errors.New("last history entry must be user-authored")

// Reply is the outcome of a generation. Fallback is set when Text is FallbackReply.
type Reply struct {
	Text     string
	Model    string
	Fallback bool
}

// ReplyGenerator produces reply text and embeddings for the orchestrator.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, history []HistoryEntry) (Reply, error)
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type GeneratorOptions struct {
	Timeout      time.Duration
	SystemPrompt string
	RPS          float64
	Burst        int
	Embeddings   bool
}

// Generator wraps a Provider with a timeout, a rate limit and the fallback
// policy. Provider errors never reach the caller of GenerateReply.
type Generator struct {
	provider     Provider
	limiter      *rate.Limiter
	timeout      time.Duration
	systemPrompt string
	embeddings   bool
	log          logrus.FieldLogger
	metrics      *Metrics
}

func NewGenerator(provider Provider, opts GeneratorOptions, log logrus.FieldLogger, metrics *Metrics) *Generator {
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Generator{
		provider:     provider,
		limiter:      rate.NewLimiter(limit, burst),
		timeout:      opts.Timeout,
		systemPrompt: opts.SystemPrompt,
		embeddings:   opts.Embeddings,
		log:          log,
		metrics:      metrics,
	}
}

var _ ReplyGenerator = (*Generator)(nil)

func (g *Generator) GenerateReply(ctx context.Context, history []HistoryEntry) (Reply, error) {
	if len(history) == 0 || history[len(history)-1].Role != RoleUser {
		return Reply{}, ErrLastNotUser
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	messages := history
	if g.systemPrompt != "" {
		messages = make([]HistoryEntry, 0, len(history)+1)
		messages = append(messages, HistoryEntry{Role: RoleSystem, Content: g.systemPrompt})
		messages = append(messages, history...)
	}

	start := time.Now()
	text, err := g.complete(ctx, messages)
	g.metrics.observeGeneration(time.Since(start).Seconds())
	if err != nil {
		g.log.WithField("provider", g.provider.Name()).Warnf("reply generation failed, using fallback: %s", err)
		return Reply{Text: FallbackReply, Model: g.provider.Model(), Fallback: true}, nil
	}
	return Reply{Text: text, Model: g.provider.Model()}, nil
}

func (g *Generator) complete(ctx context.Context, messages []HistoryEntry) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	text, err := g.provider.ChatCompletion(ctx, messages)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errEmptyCompletion
	}
	return text, nil
}

// GenerateEmbedding is best effort: a disabled capability or a provider
// failure both yield nil, nil.
func (g *Generator) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if !g.embeddings {
		return nil, nil
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		g.log.Warnf("embedding skipped: %s", err)
		return nil, nil
	}
	vector, err := g.provider.Embedding(ctx, text)
	if err != nil {
		g.log.WithField("provider", g.provider.Name()).Warnf("embedding failed: %s", err)
		return nil, nil
	}
	return vector, nil
}

func (g *Generator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
