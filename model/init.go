package model

import (
	"fmt"

	"gorm.io/gorm"
)

// InstallDB creates or migrates the schema.
func InstallDB(db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("failed to enable pgvector: %w", err)
		}
	}
	if err := db.AutoMigrate(
		&Conversation{},
		&Message{},
		&User{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
