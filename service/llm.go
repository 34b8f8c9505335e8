package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/openai/openai-go"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// HistoryEntry is one turn of the history sent to the provider.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Provider is the raw model capability. Errors are returned as-is; the
// Generator decides what the rest of the system sees.
type Provider interface {
	Name() string
	Model() string
	ChatCompletion(ctx context.Context, history []HistoryEntry) (string, error)
	// Embedding returns nil, nil when the provider has no embedding model.
	Embedding(ctx context.Context, text string) ([]float32, error)
}

var errEmptyCompletion = errors.New("provider returned no choices")

// OpenAIProvider talks to any OpenAI-compatible chat/embeddings endpoint.
type OpenAIProvider struct {
	client         *openai.Client
	model          string
	embeddingModel string
	maxTokens      int64
}

func NewOpenAIProvider(client *openai.Client, model, embeddingModel string, maxTokens int64) *OpenAIProvider {
	return &OpenAIProvider{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
		maxTokens:      maxTokens,
	}
}

func (p *OpenAIProvider) Name() string  { return "openai" }
func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) ChatCompletion(ctx context.Context, history []HistoryEntry) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{}),
		Model:    openai.F(openai.ChatModel(p.model)),
	}
	if p.maxTokens > 0 {
		params.MaxTokens = openai.F(p.maxTokens)
	}
	for _, entry := range history {
		switch entry.Role {
		case RoleSystem:
			params.Messages.Value = append(params.Messages.Value, openai.SystemMessage(entry.Content))
		case RoleAssistant:
			params.Messages.Value = append(params.Messages.Value, openai.AssistantMessage(entry.Content))
		default:
			params.Messages.Value = append(params.Messages.Value, openai.UserMessage(entry.Content))
		}
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errEmptyCompletion
	}
	return completion.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Embedding(ctx context.Context, text string) ([]float32, error) {
	if p.embeddingModel == "" {
		return nil, nil
	}
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.F[openai.EmbeddingNewParamsInputUnion](openai.EmbeddingNewParamsInputArrayOfStrings{text}),
		Model: openai.F(openai.EmbeddingModel(p.embeddingModel)),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	values := resp.Data[0].Embedding
	vector := make([]float32, len(values))
	for i, v := range values {
		vector[i] = float32(v)
	}
	return vector, nil
}

// MockProvider answers without any network call. It is selected with LLM_MODE=mock.
type MockProvider struct {
	Dimensions int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{Dimensions: 8}
}

func (m *MockProvider) Name() string  { return "mock" }
func (m *MockProvider) Model() string { return "mock" }

func (m *MockProvider) ChatCompletion(ctx context.Context, history []HistoryEntry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	last := ""
	if len(history) > 0 {
		last = history[len(history)-1].Content
	}
	return fmt.Sprintf("You said: %s", strings.TrimSpace(last)), nil
}

// Embedding derives a stable unit vector from the text.
func (m *MockProvider) Embedding(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dims := m.Dimensions
	if dims <= 0 {
		dims = 8
	}
	vector := make([]float32, dims)
	var norm float64
	for i := range vector {
		h := fnv.New32a()
		fmt.Fprintf(h, "%d:%s", i, text)
		v := float64(h.Sum32()%2000)/1000 - 1
		vector[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vector {
			vector[i] = float32(float64(vector[i]) / norm)
		}
	}
	return vector, nil
}

// NewProvider picks the provider for the configured mode.
func NewProvider(mode string, client func() *openai.Client, model, embeddingModel string, maxTokens int64) Provider {
	if mode == "mock" {
		return NewMockProvider()
	}
	return NewOpenAIProvider(client(), model, embeddingModel, maxTokens)
}
