package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Client, error)
	FindByPhone(ctx context.Context, db *gorm.DB, phone string) (*Client, error)
	UpdateContact(ctx context.Context, db *gorm.DB, client *Client) error
	IncrementVisits(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
