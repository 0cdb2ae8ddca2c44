package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type FindOrCreateRequest struct {
	Phone          string
	FullName       string
	Email          string
	TelegramChatID string
	Source         string
}

type Service interface {
	// FindOrCreate looks the client up by canonical phone, creating it when
	// absent and filling in contact details that were not known before.
	FindOrCreate(ctx context.Context, req FindOrCreateRequest) (Client, error)
	GetByID(ctx context.Context, id snowflake.ID) (Client, error)
}

var (
	ErrInvalidPhone = errors.New("invalid_phone")
	ErrNotFound     = errors.New("client_not_found")
)
