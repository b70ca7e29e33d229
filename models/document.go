package models

import "time"

// Document stores one serialized collection or settings value per row for the SQL backend.
type Document struct {
	Name      string    `gorm:"primaryKey;size:128" json:"name"`
	Payload   []byte    `gorm:"not null" json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the table name stable regardless of naming strategy.
func (Document) TableName() string {
	return "gallery_documents"
}
