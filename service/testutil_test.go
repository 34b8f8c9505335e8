package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ctachat/model"
	"ctachat/platform"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := platform.OpenDB(platform.DBConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, model.InstallDB(db))
	t.Cleanup(func() { _ = platform.CloseDB(db) })
	return db
}

// stubProvider is a scriptable Provider.
type stubProvider struct {
	mu        sync.Mutex
	reply     string
	err       error
	vector    []float32
	embedErr  error
	block     chan struct{}
	histories [][]HistoryEntry
}

func (p *stubProvider) Name() string  { return "stub" }
func (p *stubProvider) Model() string { return "stub-model" }

func (p *stubProvider) ChatCompletion(ctx context.Context, history []HistoryEntry) (string, error) {
	p.mu.Lock()
	p.histories = append(p.histories, history)
	block := p.block
	p.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.reply, p.err
}

func (p *stubProvider) Embedding(ctx context.Context, text string) ([]float32, error) {
	return p.vector, p.embedErr
}

func (p *stubProvider) calls() [][]HistoryEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]HistoryEntry(nil), p.histories...)
}

var errProviderDown = errors.New("provider down")

func newTestGenerator(p Provider, embeddings bool) *Generator {
	return NewGenerator(p, GeneratorOptions{Embeddings: embeddings}, platform.DiscardLogger(), nil)
}
