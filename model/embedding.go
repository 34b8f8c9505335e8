package model

import (
	"database/sql/driver"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Embedding is a fixed-length vector attached to a message after creation.
// It is stored in pgvector text form ("[1,2,3]"): a vector column on
// postgres and a text column everywhere else.
type Embedding []float32

func (e Embedding) Value() (driver.Value, error) {
	if len(e) == 0 {
		return nil, nil
	}
	return pgvector.NewVector(e).Value()
}

func (e *Embedding) Scan(src interface{}) error {
	if src == nil {
		*e = nil
		return nil
	}
	var v pgvector.Vector
	if err := v.Scan(src); err != nil {
		return err
	}
	*e = Embedding(v.Slice())
	return nil
}

func (Embedding) GormDataType() string {
	return "vector"
}

func (Embedding) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "vector"
	}
	return "text"
}
