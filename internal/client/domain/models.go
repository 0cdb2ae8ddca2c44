package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Client struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Phone          string       `gorm:"not null" json:"phone"`
	FullName       string       `gorm:"not null" json:"full_name"`
	Email          *string      `json:"email,omitempty"`
	TelegramChatID *string      `json:"telegram_chat_id,omitempty"`
	Source         string       `gorm:"not null" json:"source"`
	VisitsCount    int          `gorm:"not null" json:"visits_count"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

const SourceWebsite = "website"
