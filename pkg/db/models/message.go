package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a contact-form submission with optional admin reply state.
type Message struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string     `gorm:"column:name;not null"`
	Email        string     `gorm:"column:email;not null"`
	Subject      string     `gorm:"column:subject;not null"`
	Body         string     `gorm:"column:body;not null"`
	ReadAt       *time.Time `gorm:"column:read_at"`
	ReplyMessage *string    `gorm:"column:reply_message"`
	RepliedAt    *time.Time `gorm:"column:replied_at"`
	RepliedBy    *uuid.UUID `gorm:"column:replied_by;type:uuid"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}
