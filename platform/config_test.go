package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "LLM_MODE", "LLM_TIMEOUT", "ENABLE_EMBEDDINGS", "TASK_PRUNE_CRON"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, "openai", cfg.LLM.Mode)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, int64(1000), cfg.LLM.MaxTokens)
	assert.True(t, cfg.EnableEmbeddings)
	assert.False(t, cfg.SerializeReplies)
	assert.Equal(t, "@every 10m", cfg.TaskPruneCron)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LLM_MODE", "MOCK")
	t.Setenv("LLM_TIMEOUT", "1500")
	t.Setenv("REPLY_TIMEOUT", "30s")
	t.Setenv("LLM_RPS", "0.5")
	t.Setenv("SERIALIZE_REPLIES", "true")
	t.Setenv("ENABLE_EMBEDDINGS", "not-a-bool")

	cfg := LoadConfig()
	assert.Equal(t, "mock", cfg.LLM.Mode)
	assert.Equal(t, 1500*time.Millisecond, cfg.LLM.Timeout)
	assert.Equal(t, 30*time.Second, cfg.ReplyTimeout)
	assert.Equal(t, 0.5, cfg.LLM.RPS)
	assert.True(t, cfg.SerializeReplies)
	assert.True(t, cfg.EnableEmbeddings)
}

func TestValidateRequiresSecretWithAuth(t *testing.T) {
	cfg := &AppConfig{RequireAuth: true}
	assert.ErrorIs(t, cfg.Validate(), ErrMissingAccessSecret)

	cfg.AccessSecret = "s3cret"
	assert.NoError(t, cfg.Validate())

	assert.NoError(t, (&AppConfig{}).Validate())
}

func TestDBConfigDSN(t *testing.T) {
	mysql := DBConfig{Driver: "mysql", Host: "db", Port: "3306", User: "u", Password: "p", DBName: "chat"}
	assert.Equal(t, "u:p@tcp(db:3306)/chat?charset=utf8mb4&parseTime=True&loc=Local", mysql.dsn())

	postgres := DBConfig{Driver: "postgres", Host: "db", Port: "5432", User: "u", Password: "p", DBName: "chat"}
	assert.Contains(t, postgres.dsn(), "host=db port=5432")

	override := DBConfig{Driver: "sqlite", DSN: "file::memory:"}
	assert.Equal(t, "file::memory:", override.dsn())

	_, err := OpenDB(DBConfig{Driver: "oracle"})
	assert.Error(t, err)
}
