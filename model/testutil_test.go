package model

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ctachat/platform"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := platform.OpenDB(platform.DBConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, InstallDB(db))
	t.Cleanup(func() { _ = platform.CloseDB(db) })
	return db
}
