package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Channel string

const (
	ChannelTelegram Channel = "TELEGRAM"
	ChannelEmail    Channel = "EMAIL"
)

type RecipientType string

const (
	RecipientClient  RecipientType = "CLIENT"
	RecipientManager RecipientType = "MANAGER"
)

type Status string

const (
	StatusQueued Status = "QUEUED"
	StatusRetry  Status = "RETRY"
	StatusSent   Status = "SENT"
	StatusFailed Status = "FAILED"
)

// PendingStatuses are the statuses a delivery attempt may start from.
var PendingStatuses = []Status{StatusQueued, StatusRetry}

func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

// Notification is one rendered message on one channel. Only the dispatcher
// writes these rows.
type Notification struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	RecipientType RecipientType     `gorm:"not null" json:"recipient_type"`
	RecipientID   string            `gorm:"not null" json:"recipient_id"`
	BookingID     *snowflake.ID     `json:"booking_id,omitempty"`
	Channel       Channel           `gorm:"not null" json:"channel"`
	TemplateID    string            `gorm:"not null" json:"template_id"`
	Payload       datatypes.JSONMap `gorm:"not null" json:"payload"`
	Status        Status            `gorm:"not null" json:"status"`
	RetryCount    int               `gorm:"not null" json:"retry_count"`
	ScheduledAt   time.Time         `gorm:"not null" json:"scheduled_at"`
	SentAt        *time.Time        `json:"sent_at,omitempty"`
	Error         *string           `json:"error,omitempty"`
	CreatedAt     time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null" json:"updated_at"`
}

func (Notification) TableName() string { return "notifications" }

// Payload is the channel-neutral message body.
type Payload struct {
	Subject   string `json:"subject,omitempty"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

const ParseModeHTML = "HTML"

func (p Payload) ToMap() datatypes.JSONMap {
	m := datatypes.JSONMap{"text": p.Text}
	if p.Subject != "" {
		m["subject"] = p.Subject
	}
	if p.ParseMode != "" {
		m["parse_mode"] = p.ParseMode
	}
	return m
}

func PayloadFromMap(m datatypes.JSONMap) Payload {
	str := func(key string) string {
		if v, ok := m[key].(string); ok {
			return v
		}
		return ""
	}
	return Payload{
		Subject:   str("subject"),
		Text:      str("text"),
		ParseMode: str("parse_mode"),
	}
}
