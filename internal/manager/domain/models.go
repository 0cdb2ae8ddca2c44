package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Manager struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	FullName       string       `gorm:"not null" json:"full_name"`
	Email          *string      `json:"email,omitempty"`
	TelegramChatID *string      `json:"telegram_chat_id,omitempty"`
	IsActive       bool         `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

func (Manager) TableName() string { return "managers" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, manager *Manager) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Manager, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]*Manager, error)
}
